package resilience

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	"github.com/kart-io/sentinel-kb/pkg/errors"
	"github.com/kart-io/sentinel-kb/pkg/infra/middleware/internal/pathutil"
	mwopts "github.com/kart-io/sentinel-kb/pkg/options/middleware"
	"github.com/kart-io/sentinel-kb/pkg/utils/response"
	"github.com/redis/go-redis/v9"
)

// RateLimiter 定义限流器接口。
// 实现可以是内存限流器（单实例）或 Redis 限流器（多实例共享计数）。
type RateLimiter interface {
	// Allow 检查给定 key 的请求是否被允许。
	Allow(ctx context.Context, key string) (bool, error)

	// Reset 重置给定 key 的限流计数。
	Reset(ctx context.Context, key string) error
}

// RateLimit 返回一个使用默认配置和内存限流器的限流中间件。
func RateLimit() gin.HandlerFunc {
	return RateLimitWithOptions(*mwopts.NewRateLimitOptions(), nil)
}

// RateLimitWithOptions 返回一个使用纯配置选项和运行时依赖注入的限流中间件。
// 这是推荐的 API，适用于配置中心场景（配置必须可序列化）。
//
// 参数：
//   - opts: 纯配置选项（可 JSON 序列化）
//   - limiter: 可选的限流器实现，为 nil 时创建内存限流器
//
// 限流 key 为客户端 IP。仅在请求来自 TrustedProxies 且 TrustProxyHeaders
// 开启时才信任代理头，防止伪造头绕过限流。
func RateLimitWithOptions(opts mwopts.RateLimitOptions, limiter RateLimiter) gin.HandlerFunc {
	if limiter == nil {
		limiter = NewMemoryRateLimiter(opts.Limit, opts.GetWindow())
	}

	pathMatcher := pathutil.NewPathMatcher(opts.SkipPaths, nil)

	return func(c *gin.Context) {
		if pathMatcher(c.Request.URL.Path) {
			c.Next()
			return
		}

		key := extractClientIP(c, opts)

		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			// Fail open: a broken limiter backend must not take the service down.
			logger.Errorw("rate limiter error",
				"error", err.Error(),
				"key", key,
			)
			c.Next()
			return
		}

		if !allowed {
			response.Fail(c, errors.ErrRateLimitExceeded)
			return
		}

		c.Next()
	}
}

// extractClientIP extracts the real client IP from the request.
// It only trusts proxy headers (X-Forwarded-For, X-Real-IP) when:
// 1. TrustProxyHeaders is enabled in options
// 2. The request comes from a trusted proxy IP/CIDR
// This prevents IP spoofing attacks via forged headers.
func extractClientIP(c *gin.Context, opts mwopts.RateLimitOptions) string {
	req := c.Request
	remoteIP := getRemoteIP(req)

	// Only trust proxy headers if configured and request is from trusted proxy
	if opts.TrustProxyHeaders && isTrustedProxy(remoteIP, opts.TrustedProxies) {
		// X-Forwarded-For can contain multiple IPs (client, proxy1, proxy2, ...)
		// Use the first IP which should be the original client
		if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
			ips := strings.Split(xff, ",")
			if len(ips) > 0 {
				ip := strings.TrimSpace(ips[0])
				if isValidIP(ip) {
					return ip
				}
			}
		}

		// X-Real-IP header (alternative to X-Forwarded-For)
		if xri := req.Header.Get("X-Real-IP"); xri != "" {
			xri = strings.TrimSpace(xri)
			if isValidIP(xri) {
				return xri
			}
		}
	}

	// Fall back to remote address (directly connected IP)
	// This is always safe as it cannot be spoofed
	return remoteIP
}

// getRemoteIP extracts the IP address from http.Request.RemoteAddr.
// RemoteAddr is in the form "IP:port", so we need to split it.
func getRemoteIP(req *http.Request) string {
	ip, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		// If split fails, return the whole RemoteAddr
		return req.RemoteAddr
	}
	return ip
}

// isTrustedProxy checks if the given IP is in the list of trusted proxies.
// Supports both individual IPs and CIDR ranges.
func isTrustedProxy(ip string, trustedCIDRs []string) bool {
	// If no trusted proxies configured, don't trust any proxy
	if len(trustedCIDRs) == 0 {
		return false
	}

	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return false
	}

	for _, cidr := range trustedCIDRs {
		// Support both single IP addresses and CIDR notation
		if !strings.Contains(cidr, "/") {
			if cidr == ip {
				return true
			}
			continue
		}

		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			logger.Warnw("invalid CIDR in trusted proxies",
				"cidr", cidr,
				"error", err.Error(),
			)
			continue
		}

		if network.Contains(parsedIP) {
			return true
		}
	}

	return false
}

// isValidIP validates that the given string is a valid IP address.
// This prevents injection of invalid data into rate limiting keys.
func isValidIP(ip string) bool {
	return net.ParseIP(ip) != nil
}

// ============================================================================
// Memory Rate Limiter Implementation
// ============================================================================

// MemoryRateLimiter implements rate limiting using in-memory storage.
// It uses a sliding window algorithm for accurate rate limiting.
type MemoryRateLimiter struct {
	limit  int
	window time.Duration
	store  *sync.Map
	// cleanup goroutine cancellation
	stopCleanup chan struct{}
	cleanupOnce sync.Once
}

// rateLimitEntry stores rate limit data for a single key.
type rateLimitEntry struct {
	requests  []time.Time
	mu        sync.Mutex
	lastCheck time.Time
}

// NewMemoryRateLimiter creates a new memory-based rate limiter.
func NewMemoryRateLimiter(limit int, window time.Duration) *MemoryRateLimiter {
	limiter := &MemoryRateLimiter{
		limit:       limit,
		window:      window,
		store:       &sync.Map{},
		stopCleanup: make(chan struct{}),
	}

	// Start cleanup goroutine
	go limiter.cleanupExpiredEntries()

	return limiter
}

// Allow checks if a request with the given key is allowed.
func (m *MemoryRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := time.Now()

	value, _ := m.store.LoadOrStore(key, &rateLimitEntry{
		requests:  make([]time.Time, 0, m.limit),
		lastCheck: now,
	})

	entry := value.(*rateLimitEntry)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	entry.lastCheck = now

	// Remove expired requests (outside the window)
	cutoff := now.Add(-m.window)
	entry.requests = filterExpiredRequests(entry.requests, cutoff)

	if len(entry.requests) >= m.limit {
		return false, nil
	}

	entry.requests = append(entry.requests, now)

	return true, nil
}

// Reset resets the rate limit counter for the given key.
func (m *MemoryRateLimiter) Reset(_ context.Context, key string) error {
	m.store.Delete(key)
	return nil
}

// Stop stops the cleanup goroutine.
func (m *MemoryRateLimiter) Stop() {
	m.cleanupOnce.Do(func() {
		close(m.stopCleanup)
	})
}

// cleanupExpiredEntries periodically removes expired entries from memory.
func (m *MemoryRateLimiter) cleanupExpiredEntries() {
	ticker := time.NewTicker(m.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.performCleanup()
		case <-m.stopCleanup:
			return
		}
	}
}

// performCleanup removes entries that haven't been accessed recently.
func (m *MemoryRateLimiter) performCleanup() {
	now := time.Now()
	threshold := now.Add(-m.window * 2) // Keep entries for 2x window duration

	m.store.Range(func(key, value interface{}) bool {
		entry := value.(*rateLimitEntry)
		entry.mu.Lock()
		lastCheck := entry.lastCheck
		entry.mu.Unlock()

		if lastCheck.Before(threshold) {
			m.store.Delete(key)
		}
		return true
	})
}

// filterExpiredRequests removes timestamps that are outside the time window.
func filterExpiredRequests(requests []time.Time, cutoff time.Time) []time.Time {
	validIdx := 0
	for i, t := range requests {
		if t.After(cutoff) {
			validIdx = i
			break
		}
	}

	if validIdx > 0 {
		return requests[validIdx:]
	}
	return requests
}

// ============================================================================
// Redis Rate Limiter Implementation
// ============================================================================

// RedisRateLimiter implements rate limiting using Redis.
// It uses Redis sorted sets for accurate sliding window rate limiting.
type RedisRateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// NewRedisRateLimiter creates a new Redis-based rate limiter.
func NewRedisRateLimiter(client *redis.Client, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: "ratelimit:",
	}
}

// Allow checks if a request with the given key is allowed using Redis.
func (r *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := time.Now()
	redisKey := r.prefix + key

	// Use Redis sorted set for sliding window
	// Score is timestamp, member is unique request ID
	pipe := r.client.Pipeline()

	// Remove old entries outside the window
	minScore := float64(now.Add(-r.window).UnixNano())
	pipe.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%.0f", minScore))

	// Count current entries
	countCmd := pipe.ZCard(ctx, redisKey)

	// Add current request
	score := float64(now.UnixNano())
	member := fmt.Sprintf("%d", now.UnixNano())
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: score, Member: member})

	// Set expiration
	pipe.Expire(ctx, redisKey, r.window*2)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("redis pipeline error: %w", err)
	}

	if countCmd.Val() >= int64(r.limit) {
		return false, nil
	}

	return true, nil
}

// Reset resets the rate limit counter for the given key in Redis.
func (r *RedisRateLimiter) Reset(ctx context.Context, key string) error {
	redisKey := r.prefix + key
	return r.client.Del(ctx, redisKey).Err()
}

// Ensure implementations satisfy the interface.
var (
	_ RateLimiter = (*MemoryRateLimiter)(nil)
	_ RateLimiter = (*RedisRateLimiter)(nil)
)
