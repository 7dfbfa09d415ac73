/*******************************************************************************
* Copyright 2026 ldaptoid contributors
* SPDX-License-Identifier: GPL-3.0-only
* Refer to the file "LICENSE" for details.
*******************************************************************************/

// Package mapping implements the optional persisted key->(UID,GID) store
// used for cross-restart ID stability (spec §4.7). The keys are namespaced
// "ldaptoid:{user|group|synthetic}:{idpId}"; the concrete wire protocol is
// Redis, via the RedisStore implementation of the Store interface, but callers
// only ever see the Store interface so that an in-memory double can stand
// in for tests or for a deployment with no store configured.
package mapping

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/veryCrunchy/ldaptoid/internal/idalloc"
)

// Record is a persisted key->id pair (spec §3 MappingRecord). Once written,
// a Record is never changed; id is unique within its namespace.
type Record struct {
	UID       int32
	GID       int32
	Timestamp time.Time
}

const keyPrefix = "ldaptoid:"

// UserKey builds the namespaced key for a user's UID mapping.
func UserKey(idpID string) string { return keyPrefix + "user:" + idpID }

// GroupKey builds the namespaced key for a group's GID mapping.
func GroupKey(idpID string) string { return keyPrefix + "group:" + idpID }

// SyntheticKey builds the namespaced key for a synthetic group's GID
// mapping (synthetic primary groups and mirror groups).
func SyntheticKey(idpID string) string { return keyPrefix + "synthetic:" + idpID }

// Store is the persistence interface described in spec §4.7. Failure
// during Put must never fail a build (callers log and move on); Store is
// entirely optional, and its absence or unreachability only ever degrades
// health, never halts the core.
type Store interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Put(ctx context.Context, key string, rec Record) error
	Get(ctx context.Context, key string) (Record, bool, error)
	List(ctx context.Context) (map[string]Record, error)
	Ping(ctx context.Context) bool
}

// ErrNotConfigured reports that no mapping store was configured. NullStore
// never returns it: every NullStore operation succeeds as a no-op.
type ErrNotConfigured struct{}

func (ErrNotConfigured) Error() string { return "mapping store not configured" }

// NullStore is the zero-configuration Store used when
// mappingStore.enabled=false. All operations are no-ops; Ping always
// reports false so that health reporting can tell "disabled" apart from
// "configured but unreachable" if it wants to, though both degrade the
// same way per spec §4.7.
type NullStore struct{}

func (NullStore) Connect(context.Context) error    { return nil }
func (NullStore) Disconnect(context.Context) error { return nil }
func (NullStore) Put(context.Context, string, Record) error {
	return nil
}
func (NullStore) Get(context.Context, string) (Record, bool, error) {
	return Record{}, false, nil
}
func (NullStore) List(context.Context) (map[string]Record, error) {
	return map[string]Record{}, nil
}
func (NullStore) Ping(context.Context) bool { return false }

// SeedAllocators lists every record in store and translates it into the
// idalloc.Entry form that the UID and GID allocators expect to Import
// (spec §4.7: "On startup, list() seeds both allocators before the first
// build"). The external store key "ldaptoid:user:<idpId>" becomes the
// allocator-internal key "user:<idpId>", matching exactly what the
// snapshot builder passes to Allocator.Allocate. Both "group:" and
// "synthetic:" store keys seed the GID allocator under its "group:"
// namespace, since synthetic groups (primary groups, mirror groups) share
// the GID number space with real groups and are allocated through that
// same namespace.
func SeedAllocators(ctx context.Context, store Store) (uidEntries, gidEntries []idalloc.Entry, err error) {
	records, err := store.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot list mapping store: %w", err)
	}
	for key, rec := range records {
		switch {
		case strings.HasPrefix(key, keyPrefix+"user:"):
			uidEntries = append(uidEntries, idalloc.Entry{Key: strings.TrimPrefix(key, keyPrefix), ID: rec.UID})
		case strings.HasPrefix(key, keyPrefix+"group:"):
			gidEntries = append(gidEntries, idalloc.Entry{Key: strings.TrimPrefix(key, keyPrefix), ID: rec.GID})
		case strings.HasPrefix(key, keyPrefix+"synthetic:"):
			idpID := strings.TrimPrefix(key, keyPrefix+"synthetic:")
			gidEntries = append(gidEntries, idalloc.Entry{Key: "group:" + idpID, ID: rec.GID})
		}
	}
	return uidEntries, gidEntries, nil
}
