package staging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/sentinel-kb/internal/model"
	"github.com/kart-io/sentinel-kb/pkg/errors"
)

const draftKeyPrefix = "kb:draft:"

// RedisStore is a Store backed by a Redis instance. Draft bodies are stored
// as JSON values with a per-key TTL, so expiry needs no sweeper.
type RedisStore struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore. A non-positive ttl falls back to DefaultTTL.
func NewRedisStore(client *goredis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func draftKey(id string) string {
	return draftKeyPrefix + id
}

// Put stores the draft and resets its TTL.
func (s *RedisStore) Put(ctx context.Context, draft *model.Draft) error {
	draft.ExpiresAt = time.Now().Add(s.ttl)

	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("marshal draft %s: %w", draft.ID, err)
	}
	if err := s.client.Set(ctx, draftKey(draft.ID), data, s.ttl).Err(); err != nil {
		return errors.ErrCacheConnection.WithCause(err)
	}
	return nil
}

// Get loads a draft. Missing keys map to ErrDraftNotFound.
func (s *RedisStore) Get(ctx context.Context, id string) (*model.Draft, error) {
	data, err := s.client.Get(ctx, draftKey(id)).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, errors.ErrDraftNotFound
		}
		return nil, errors.ErrCacheConnection.WithCause(err)
	}

	var draft model.Draft
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, fmt.Errorf("unmarshal draft %s: %w", id, err)
	}
	return &draft, nil
}

// Delete removes the draft key. Idempotent.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, draftKey(id)).Err(); err != nil {
		return errors.ErrCacheConnection.WithCause(err)
	}
	return nil
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
