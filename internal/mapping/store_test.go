/*******************************************************************************
* Copyright 2026 ldaptoid contributors
* SPDX-License-Identifier: GPL-3.0-only
* Refer to the file "LICENSE" for details.
*******************************************************************************/

package mapping

import (
	"context"
	"testing"
	"time"
)

func mustPut(t *testing.T, ctx context.Context, store Store, key string, rec Record) {
	t.Helper()
	if err := store.Put(ctx, key, rec); err != nil {
		t.Fatalf("Put(%s): %s", key, err)
	}
}

func TestSeedAllocatorsSplitsByNamespace(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Unix(0, 0)

	mustPut(t, ctx, store, UserKey("alice"), Record{UID: 10042, Timestamp: now})
	mustPut(t, ctx, store, GroupKey("admins"), Record{GID: 20001, Timestamp: now})
	mustPut(t, ctx, store, SyntheticKey("alice"), Record{GID: 30042, Timestamp: now})

	uidEntries, gidEntries, err := SeedAllocators(ctx, store)
	if err != nil {
		t.Fatalf("SeedAllocators: %s", err)
	}

	if len(uidEntries) != 1 || uidEntries[0].Key != "user:alice" || uidEntries[0].ID != 10042 {
		t.Fatalf("unexpected uid entries: %+v", uidEntries)
	}
	if len(gidEntries) != 2 {
		t.Fatalf("expected 2 gid entries (group + synthetic), got %+v", gidEntries)
	}
	byKey := make(map[string]int32, len(gidEntries))
	for _, e := range gidEntries {
		byKey[e.Key] = e.ID
	}
	if byKey["group:admins"] != 20001 {
		t.Fatalf("expected group:admins=20001 in the gid allocator namespace, got %+v", byKey)
	}
	if byKey["group:alice"] != 30042 {
		t.Fatalf("expected the synthetic record to seed the gid allocator under group:alice, got %+v", byKey)
	}
}

func TestNullStoreIsInert(t *testing.T) {
	ctx := context.Background()
	var s NullStore

	mustPut(t, ctx, s, UserKey("alice"), Record{UID: 1})
	_, ok, err := s.Get(ctx, UserKey("alice"))
	if err != nil {
		t.Fatalf("Get: %s", err)
	}
	if ok {
		t.Fatalf("expected NullStore.Get to never find anything")
	}
	if s.Ping(ctx) {
		t.Fatalf("expected NullStore.Ping to report false")
	}
}
