/*******************************************************************************
* Copyright 2026 ldaptoid contributors
* SPDX-License-Identifier: GPL-3.0-only
* Refer to the file "LICENSE" for details.
*******************************************************************************/

package mapping

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures a RedisStore (spec §6 mappingStore.{host,port,
// password,database}).
type RedisOptions struct {
	Host     string
	Port     int
	Password string
	Database int
	// OperationTimeout bounds every individual call (spec §5, default 3s).
	OperationTimeout time.Duration
}

// RedisStore is the Store implementation backed by Redis RESP, the
// concrete wire protocol spec §6 calls out as an implementation choice.
type RedisStore struct {
	opts   RedisOptions
	client *redis.Client
}

// NewRedisStore constructs a RedisStore. Connect must be called before use.
func NewRedisStore(opts RedisOptions) *RedisStore {
	if opts.OperationTimeout == 0 {
		opts.OperationTimeout = 3 * time.Second
	}
	return &RedisStore{opts: opts}
}

func (s *RedisStore) Connect(ctx context.Context) error {
	s.client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port),
		Password: s.opts.Password,
		DB:       s.opts.Database,
	})
	ctx, cancel := context.WithTimeout(ctx, s.opts.OperationTimeout)
	defer cancel()
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Disconnect(context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

type recordJSON struct {
	UID       int32     `json:"uid"`
	GID       int32     `json:"gid"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *RedisStore) Put(ctx context.Context, key string, rec Record) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.OperationTimeout)
	defer cancel()

	buf, err := json.Marshal(recordJSON{UID: rec.UID, GID: rec.GID, Timestamp: rec.Timestamp})
	if err != nil {
		return fmt.Errorf("cannot encode mapping record for %s: %w", key, err)
	}
	// 0 TTL: mapping records persist indefinitely, per spec §3 invariant
	// that a (key -> id) pair, once written, is never changed.
	return s.client.Set(ctx, key, buf, 0).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) (Record, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.OperationTimeout)
	defer cancel()

	buf, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("cannot read mapping record for %s: %w", key, err)
	}
	var rj recordJSON
	if err := json.Unmarshal(buf, &rj); err != nil {
		return Record{}, false, fmt.Errorf("cannot decode mapping record for %s: %w", key, err)
	}
	return Record{UID: rj.UID, GID: rj.GID, Timestamp: rj.Timestamp}, true, nil
}

func (s *RedisStore) List(ctx context.Context) (map[string]Record, error) {
	listCtx, cancel := context.WithTimeout(ctx, s.opts.OperationTimeout)
	defer cancel()

	keys, err := s.client.Keys(listCtx, keyPrefix+"*").Result()
	if err != nil {
		return nil, fmt.Errorf("cannot list mapping store keys: %w", err)
	}

	result := make(map[string]Record, len(keys))
	for _, key := range keys {
		rec, ok, err := s.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			result[key] = rec
		}
	}
	return result, nil
}

func (s *RedisStore) Ping(ctx context.Context) bool {
	if s.client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.OperationTimeout)
	defer cancel()
	return s.client.Ping(ctx).Err() == nil
}
