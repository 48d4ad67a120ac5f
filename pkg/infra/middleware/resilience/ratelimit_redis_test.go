package resilience

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 需要本地 Redis:
//   docker run -d -p 6379:6379 redis:7-alpine
func redisTestClient(tb testing.TB) *redis.Client {
	tb.Helper()

	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		tb.Skipf("Redis 不可用,跳过测试: %v", err)
	}

	client.FlushDB(ctx)
	tb.Cleanup(func() {
		client.FlushDB(context.Background())
		_ = client.Close()
	})
	return client
}

// 多个网关实例共享同一个租户配额。
func TestRedisRateLimiterSharedQuota(t *testing.T) {
	client := redisTestClient(t)
	ctx := context.Background()

	const limit = 100
	window := time.Minute

	instances := []*RedisRateLimiter{
		NewRedisRateLimiter(client, limit, window),
		NewRedisRateLimiter(client, limit, window),
		NewRedisRateLimiter(client, limit, window),
	}

	key := "tenant:team-docs"
	allowedCount := 0
	for i, inst := range instances {
		for j := 0; j < 50; j++ {
			allowed, err := inst.Allow(ctx, key)
			require.NoError(t, err, "instance %d request %d", i+1, j+1)
			if allowed {
				allowedCount++
			}
		}
	}

	// 三个实例共 150 次请求,全局只放行 limit 次。
	assert.Equal(t, limit, allowedCount)
}

func TestRedisRateLimiterReset(t *testing.T) {
	client := redisTestClient(t)
	ctx := context.Background()

	limiter := NewRedisRateLimiter(client, 10, time.Minute)
	key := "tenant:team-docs"

	for i := 0; i < 10; i++ {
		allowed, err := limiter.Allow(ctx, key)
		require.NoError(t, err)
		require.True(t, allowed, "request %d should pass", i+1)
	}

	allowed, err := limiter.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, allowed)

	require.NoError(t, limiter.Reset(ctx, key))

	allowed, err = limiter.Allow(ctx, key)
	require.NoError(t, err)
	assert.True(t, allowed, "reset must restore the quota")
}

func TestRedisRateLimiterSlidingWindow(t *testing.T) {
	if testing.Short() {
		t.Skip("sliding window test sleeps past the window")
	}

	client := redisTestClient(t)
	ctx := context.Background()

	limiter := NewRedisRateLimiter(client, 5, 5*time.Second)
	key := "tenant:team-docs"

	for i := 0; i < 5; i++ {
		allowed, err := limiter.Allow(ctx, key)
		require.NoError(t, err)
		require.True(t, allowed)
	}

	allowed, err := limiter.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, allowed)

	time.Sleep(6 * time.Second)

	allowed, err = limiter.Allow(ctx, key)
	require.NoError(t, err)
	assert.True(t, allowed, "expired window must admit new requests")
}

func BenchmarkRedisRateLimiterAllow(b *testing.B) {
	client := redisTestClient(b)
	limiter := NewRedisRateLimiter(client, 100000, time.Minute)
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = limiter.Allow(ctx, "bench-key")
	}
}

func BenchmarkRedisRateLimiterAllowParallel(b *testing.B) {
	client := redisTestClient(b)
	limiter := NewRedisRateLimiter(client, 100000, time.Minute)
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_, _ = limiter.Allow(ctx, fmt.Sprintf("bench-key-%d", i%8))
			i++
		}
	})
}
