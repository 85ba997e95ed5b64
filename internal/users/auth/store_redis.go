// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/secrets/internal/platform/constants"
)

// # Session Store (Redis)

// RedisSessionStore implements [SessionStore] using Redis key expiry for the
// session lifetime.
type RedisSessionStore struct {
	client redis.UniversalClient
}

var _ SessionStore = (*RedisSessionStore)(nil)

// NewRedisSessionStore creates a new Redis-backed SessionStore.
func NewRedisSessionStore(client redis.UniversalClient) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func sessionKey(key string) string {
	return constants.RedisPrefixSession + key
}

/*
Save stores the JSON-encoded record with its TTL.

Parameters:
  - context: context.Context
  - key: string
  - record: SessionRecord
  - ttl: time.Duration

Returns:
  - error: Encoding or connectivity errors
*/
func (store *RedisSessionStore) Save(context context.Context, key string, record SessionRecord, ttl time.Duration) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("redis_session_encode_failed: %w", err)
	}

	if err := store.client.Set(context, sessionKey(key), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis_session_set_failed: %w", err)
	}
	return nil
}

/*
Load retrieves a live record.

Description: Returns ErrSessionNotFound if the key is absent or expired.

Parameters:
  - context: context.Context
  - key: string

Returns:
  - *SessionRecord: Stored record
  - error: ErrSessionNotFound or connectivity errors
*/
func (store *RedisSessionStore) Load(context context.Context, key string) (*SessionRecord, error) {
	payload, err := store.client.Get(context, sessionKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("redis_session_get_failed: %w", err)
	}

	var record SessionRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("redis_session_decode_failed: %w", err)
	}
	return &record, nil
}

// Touch resets the key expiry. EXPIRE on a key deleted in the meantime
// reports false, which surfaces as ErrSessionNotFound.
func (store *RedisSessionStore) Touch(context context.Context, key string, ttl time.Duration) error {
	extended, err := store.client.Expire(context, sessionKey(key), ttl).Result()
	if err != nil {
		return fmt.Errorf("redis_session_expire_failed: %w", err)
	}
	if !extended {
		return ErrSessionNotFound
	}
	return nil
}

// Delete removes the key. Deleting an absent key succeeds.
func (store *RedisSessionStore) Delete(context context.Context, key string) error {
	if err := store.client.Del(context, sessionKey(key)).Err(); err != nil {
		return fmt.Errorf("redis_session_delete_failed: %w", err)
	}
	return nil
}
