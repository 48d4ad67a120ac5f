package resilience

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mwopts "github.com/kart-io/sentinel-kb/pkg/options/middleware"
)

func breakerOptions() mwopts.CircuitBreakerOptions {
	return mwopts.CircuitBreakerOptions{
		MaxFailures:      3,
		Timeout:          2,
		HalfOpenMaxCalls: 1,
		ErrorThreshold:   500,
	}
}

// newBreakerRouter 构建带熔断器的测试路由。
func newBreakerRouter(opts mwopts.CircuitBreakerOptions, path string, status int) *gin.Engine {
	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)
	r.Use(CircuitBreakerWithOptions(opts))
	r.GET(path, func(c *gin.Context) {
		c.JSON(status, gin.H{"status": status})
	})
	return r
}

func doGet(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestCircuitBreakerAllowsHealthyTraffic(t *testing.T) {
	r := newBreakerRouter(breakerOptions(), "/v1/drafts", http.StatusOK)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doGet(r, "/v1/drafts").Code)
	}
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	opts := breakerOptions()
	r := newBreakerRouter(opts, "/v1/executions", http.StatusInternalServerError)

	for i := 0; i < opts.MaxFailures; i++ {
		doGet(r, "/v1/executions")
	}

	// 熔断器打开后直接拒绝。
	assert.Equal(t, http.StatusServiceUnavailable, doGet(r, "/v1/executions").Code)
}

func TestCircuitBreakerSkipPaths(t *testing.T) {
	opts := breakerOptions()
	opts.MaxFailures = 2
	opts.SkipPaths = []string{"/healthz", "/metrics"}

	for _, path := range opts.SkipPaths {
		r := newBreakerRouter(opts, path, http.StatusInternalServerError)
		for i := 0; i < 5; i++ {
			assert.Equal(t, http.StatusInternalServerError, doGet(r, path).Code,
				"skipped path %s must never trip the breaker", path)
		}
	}
}

func TestCircuitBreakerSkipPathPrefixes(t *testing.T) {
	opts := breakerOptions()
	opts.MaxFailures = 2
	opts.SkipPathPrefixes = []string{"/static/", "/public/"}

	for _, path := range []string{"/static/css/main.css", "/public/images/logo.png"} {
		r := newBreakerRouter(opts, path, http.StatusInternalServerError)
		for i := 0; i < 5; i++ {
			assert.Equal(t, http.StatusInternalServerError, doGet(r, path).Code)
		}
	}
}

func TestCircuitBreakerErrorThreshold(t *testing.T) {
	tests := []struct {
		name      string
		threshold int
		status    int
		trips     bool
	}{
		{"500 trips at threshold 500", 500, http.StatusInternalServerError, true},
		{"404 ignored at threshold 500", 500, http.StatusNotFound, false},
		{"404 trips at threshold 400", 400, http.StatusNotFound, true},
		{"200 never trips", 500, http.StatusOK, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := breakerOptions()
			opts.MaxFailures = 2
			opts.Timeout = 10
			opts.ErrorThreshold = tt.threshold

			r := newBreakerRouter(opts, "/v1/drafts", tt.status)
			for i := 0; i < opts.MaxFailures+1; i++ {
				doGet(r, "/v1/drafts")
			}

			code := doGet(r, "/v1/drafts").Code
			if tt.trips {
				assert.Equal(t, http.StatusServiceUnavailable, code)
			} else {
				assert.NotEqual(t, http.StatusServiceUnavailable, code)
			}
		})
	}
}

func TestCircuitBreakerHalfOpenRecovery(t *testing.T) {
	opts := breakerOptions()
	opts.MaxFailures = 2
	opts.Timeout = 1

	mw := CircuitBreakerWithOptions(opts)

	w := httptest.NewRecorder()
	_, failing := gin.CreateTestContext(w)
	failing.Use(mw)
	failing.GET("/v1/executions", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "milvus down"})
	})

	for i := 0; i < opts.MaxFailures; i++ {
		doGet(failing, "/v1/executions")
	}
	require.Equal(t, http.StatusServiceUnavailable, doGet(failing, "/v1/executions").Code)

	// 超时后进入半开，成功请求使其恢复关闭。
	time.Sleep(time.Duration(opts.Timeout+1) * time.Second)

	w = httptest.NewRecorder()
	_, healthy := gin.CreateTestContext(w)
	healthy.Use(mw)
	healthy.GET("/v1/executions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	assert.Equal(t, http.StatusOK, doGet(healthy, "/v1/executions").Code)
	assert.Equal(t, http.StatusOK, doGet(healthy, "/v1/executions").Code)
}

func BenchmarkCircuitBreakerClosed(b *testing.B) {
	opts := breakerOptions()
	opts.MaxFailures = 100
	opts.Timeout = 60
	r := newBreakerRouter(opts, "/v1/drafts", http.StatusOK)
	req := httptest.NewRequest(http.MethodGet, "/v1/drafts", nil)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
	}
}

func BenchmarkCircuitBreakerOpen(b *testing.B) {
	opts := breakerOptions()
	opts.MaxFailures = 2
	opts.Timeout = 60
	r := newBreakerRouter(opts, "/v1/drafts", http.StatusInternalServerError)
	for i := 0; i < opts.MaxFailures; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/drafts", nil))
	}
	req := httptest.NewRequest(http.MethodGet, "/v1/drafts", nil)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
	}
}
