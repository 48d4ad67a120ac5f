package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/sentinel-kb/pkg/infra/middleware/observability"
	"github.com/kart-io/sentinel-kb/pkg/infra/middleware/requestutil"
	"github.com/kart-io/sentinel-kb/pkg/infra/middleware/resilience"
	"github.com/kart-io/sentinel-kb/pkg/infra/middleware/security"
	mwopts "github.com/kart-io/sentinel-kb/pkg/options/middleware"
)

const benchPath = "/v1/drafts"

// benchRouter builds a router with the given middlewares and a trivial
// drafts handler, then drives b.N requests through it.
func benchRouter(b *testing.B, path string, mws ...gin.HandlerFunc) {
	b.Helper()

	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)
	r.Use(mws...)
	r.GET(path, func(c *gin.Context) {
		c.JSON(200, gin.H{"items": []string{}})
	})

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "127.0.0.1:12345"

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		w = httptest.NewRecorder()
		r.ServeHTTP(w, req)
	}
}

func BenchmarkLoggerMiddleware(b *testing.B) {
	opts := mwopts.LoggerOptions{UseStructuredLogger: true}
	benchRouter(b, benchPath, observability.LoggerWithOptions(opts, nil))
}

func BenchmarkLoggerMiddlewareSkipPath(b *testing.B) {
	opts := mwopts.LoggerOptions{
		SkipPaths:           []string{"/healthz"},
		UseStructuredLogger: true,
	}
	benchRouter(b, "/healthz", observability.LoggerWithOptions(opts, nil))
}

func BenchmarkRecoveryMiddleware(b *testing.B) {
	benchRouter(b, benchPath, resilience.RecoveryWithOptions(*mwopts.NewRecoveryOptions(), nil))
}

func BenchmarkRecoveryMiddlewarePanicking(b *testing.B) {
	mw := resilience.RecoveryWithOptions(mwopts.RecoveryOptions{}, nil)

	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)
	r.Use(mw)
	r.GET(benchPath, func(_ *gin.Context) {
		panic("chunker blew up")
	})
	req := httptest.NewRequest(http.MethodGet, benchPath, nil)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		w = httptest.NewRecorder()
		r.ServeHTTP(w, req)
	}
}

func BenchmarkRequestIDMiddleware(b *testing.B) {
	benchRouter(b, benchPath, RequestIDWithOptions(*mwopts.NewRequestIDOptions(), nil))
}

func BenchmarkRequestIDMiddlewareExistingHeader(b *testing.B) {
	mw := RequestIDWithOptions(*mwopts.NewRequestIDOptions(), nil)

	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)
	r.Use(mw)
	r.GET(benchPath, func(c *gin.Context) { c.Status(200) })
	req := httptest.NewRequest(http.MethodGet, benchPath, nil)
	req.Header.Set("X-Request-ID", "upstream-id-12345678")

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		w = httptest.NewRecorder()
		r.ServeHTTP(w, req)
	}
}

func BenchmarkGenerateRequestID(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = requestutil.GenerateRequestID()
	}
}

func BenchmarkRateLimitMiddleware(b *testing.B) {
	limiter := resilience.NewMemoryRateLimiter(1000, time.Minute)
	defer limiter.Stop()

	opts := mwopts.RateLimitOptions{Limit: 1000, Window: 60}
	benchRouter(b, benchPath, resilience.RateLimitWithOptions(opts, limiter))
}

func BenchmarkMemoryRateLimiterAllow(b *testing.B) {
	limiter := resilience.NewMemoryRateLimiter(1000, time.Minute)
	defer limiter.Stop()
	ctx := context.Background()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = limiter.Allow(ctx, "svc-gateway")
	}
}

func BenchmarkSecurityHeaders(b *testing.B) {
	benchRouter(b, benchPath, security.SecurityHeadersWithOptions(*mwopts.NewSecurityHeadersOptions()))
}

func BenchmarkTimeoutMiddleware(b *testing.B) {
	opts := mwopts.TimeoutOptions{Timeout: 30 * time.Second}
	benchRouter(b, benchPath, TimeoutWithOptions(opts))
}

func BenchmarkTimeoutMiddlewareSkipPath(b *testing.B) {
	opts := mwopts.TimeoutOptions{
		Timeout:   30 * time.Second,
		SkipPaths: []string{"/healthz"},
	}
	benchRouter(b, "/healthz", TimeoutWithOptions(opts))
}

// BenchmarkIngestAPIChain mirrors the middleware stack the ingestion API
// actually runs: request id, structured logging, recovery, security
// headers and a memory rate limiter.
func BenchmarkIngestAPIChain(b *testing.B) {
	limiter := resilience.NewMemoryRateLimiter(1000, time.Minute)
	defer limiter.Stop()

	loggerOpts := mwopts.LoggerOptions{
		SkipPaths:           []string{"/healthz", "/metrics"},
		UseStructuredLogger: true,
	}
	benchRouter(b, benchPath,
		RequestID(),
		observability.LoggerWithOptions(loggerOpts, nil),
		resilience.RecoveryWithOptions(mwopts.RecoveryOptions{}, nil),
		security.SecurityHeadersWithOptions(*mwopts.NewSecurityHeadersOptions()),
		resilience.RateLimitWithOptions(mwopts.RateLimitOptions{Limit: 1000, Window: 60}, limiter),
	)
}

func BenchmarkMinimalChain(b *testing.B) {
	benchRouter(b, benchPath, RequestID(), Logger(), Recovery())
}

func BenchmarkChainConcurrent(b *testing.B) {
	limiter := resilience.NewMemoryRateLimiter(1000, time.Minute)
	defer limiter.Stop()

	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)
	r.Use(RequestID(), Logger(), Recovery(),
		resilience.RateLimitWithOptions(mwopts.RateLimitOptions{Limit: 1000, Window: 60}, limiter))
	r.GET(benchPath, func(c *gin.Context) { c.Status(200) })

	req := httptest.NewRequest(http.MethodGet, benchPath, nil)
	req.RemoteAddr = "127.0.0.1:12345"

	b.ResetTimer()
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
		}
	})
}

func BenchmarkChainWithJSONBody(b *testing.B) {
	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)
	r.Use(RequestID(), Logger(), Recovery())
	r.POST(benchPath, func(c *gin.Context) { c.Status(202) })

	body := []byte(`{"name":"handbook","source_url":"https://docs.example.com/handbook"}`)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodPost, benchPath, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w = httptest.NewRecorder()
		r.ServeHTTP(w, req)
	}
}
