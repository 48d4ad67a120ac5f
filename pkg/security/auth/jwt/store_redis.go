package jwt

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/sentinel-kb/pkg/component/redis"
)

// RedisStore 是基于 Redis 的吊销名单实现,多实例部署时共享状态。
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis-backed token store.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "jwt:blacklisted:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Revoke 写入吊销标记,过期时间取 token 的剩余有效期,
// 到期后 Redis 自动清理,名单不会无限膨胀。
func (s *RedisStore) Revoke(ctx context.Context, token string, expiration time.Duration) error {
	return s.client.Client().Set(ctx, s.prefix+token, "revoked", expiration).Err()
}

// IsRevoked checks if a token exists in the Redis blacklist.
func (s *RedisStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	count, err := s.client.Client().Exists(ctx, s.prefix+token).Result()
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}
	return count > 0, nil
}

// Close 是空操作,Redis 连接的生命周期由外部管理。
func (s *RedisStore) Close() error {
	return nil
}
