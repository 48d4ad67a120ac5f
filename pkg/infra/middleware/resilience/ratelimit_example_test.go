package resilience_test

import (
	"github.com/kart-io/sentinel-kb/pkg/infra/middleware/resilience"
	mwopts "github.com/kart-io/sentinel-kb/pkg/options/middleware"
	"github.com/redis/go-redis/v9"
)

// Example_rateLimit demonstrates basic rate limiting with default configuration.
func Example_rateLimit() {
	// Create middleware with default configuration:
	// - 100 requests per minute
	// - Rate limiting by client IP
	rateLimitMiddleware := resilience.RateLimit()

	// Use with gin: engine.Use(rateLimitMiddleware)
	_ = rateLimitMiddleware
	// Output:
}

// Example_rateLimitWithOptions demonstrates custom rate limit configuration.
func Example_rateLimitWithOptions() {
	opts := mwopts.NewRateLimitOptions()
	opts.Limit = 50 // 50 requests
	opts.Window = 60 // per minute
	opts.SkipPaths = []string{
		"/health",
		"/metrics",
	}

	rateLimitMiddleware := resilience.RateLimitWithOptions(*opts, nil)
	_ = rateLimitMiddleware
	// Output:
}

// Example_rateLimitBehindProxy demonstrates rate limiting behind a reverse proxy.
// Proxy headers are only trusted when the direct peer is a trusted proxy,
// otherwise a client could spoof X-Forwarded-For to dodge the limiter.
func Example_rateLimitBehindProxy() {
	opts := mwopts.NewRateLimitOptions()
	opts.Limit = 100
	opts.Window = 60
	opts.TrustProxyHeaders = true
	opts.TrustedProxies = []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
	}

	rateLimitMiddleware := resilience.RateLimitWithOptions(*opts, nil)
	_ = rateLimitMiddleware
	// Output:
}

// Example_rateLimitWithRedis demonstrates distributed rate limiting via Redis.
// All instances sharing the Redis backend share one sliding window per client.
func Example_rateLimitWithRedis() {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
	})

	opts := mwopts.NewRateLimitOptions()
	opts.Limit = 200
	opts.Window = 60

	limiter := resilience.NewRedisRateLimiter(client, opts.Limit, opts.GetWindow())
	rateLimitMiddleware := resilience.RateLimitWithOptions(*opts, limiter)
	_ = rateLimitMiddleware
	// Output:
}
