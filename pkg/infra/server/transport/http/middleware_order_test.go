package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	mwopts "github.com/kart-io/sentinel-kb/pkg/options/middleware"
	options "github.com/kart-io/sentinel-kb/pkg/options/server/http"
)

// serveOK 挂一个 /test 路由并发一次请求,返回响应记录器。
func serveOK(t *testing.T, server *Server) *httptest.ResponseRecorder {
	t.Helper()

	server.Engine().GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	server.Engine().ServeHTTP(w, req)
	return w
}

func TestMiddlewareOrderDefault(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mwOpts := mwopts.NewOptions()
	server := NewServer(options.NewOptions(), mwOpts)

	assert.Equal(t, []string{
		mwopts.MiddlewareRecovery,
		mwopts.MiddlewareRequestID,
		mwopts.MiddlewareLogger,
		mwopts.MiddlewareMetrics,
		mwopts.MiddlewareCORS,
		mwopts.MiddlewareTimeout,
	}, mwOpts.GetMiddlewareOrder())

	w := serveOK(t, server)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMiddlewareOrderCustom(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mwOpts := mwopts.NewOptions()
	// CORS 提前到 logger 之前
	customOrder := []string{
		mwopts.MiddlewareRecovery,
		mwopts.MiddlewareRequestID,
		mwopts.MiddlewareCORS,
		mwopts.MiddlewareLogger,
		mwopts.MiddlewareTimeout,
	}
	mwOpts.Middleware = customOrder

	server := NewServer(options.NewOptions(), mwOpts)

	assert.Equal(t, customOrder, mwOpts.GetMiddlewareOrder())

	w := serveOK(t, server)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMiddlewareOrderValidation(t *testing.T) {
	tests := []struct {
		name        string
		middleware  []string
		expectError bool
	}{
		{"valid middleware list", []string{mwopts.MiddlewareRecovery, mwopts.MiddlewareLogger}, false},
		{"unknown middleware", []string{mwopts.MiddlewareRecovery, "unknown-middleware"}, true},
		{"duplicate middleware", []string{mwopts.MiddlewareRecovery, mwopts.MiddlewareRecovery}, true},
		{"empty middleware list", []string{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mwOpts := mwopts.NewOptions()
			mwOpts.Middleware = tt.middleware

			errs := mwOpts.ValidateMiddleware()
			if tt.expectError {
				assert.NotEmpty(t, errs)
			} else {
				assert.Empty(t, errs)
			}
		})
	}
}

func TestMiddlewareOrderExecution(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mwOpts := mwopts.NewOptions()
	mwOpts.Middleware = []string{
		mwopts.MiddlewareRecovery,
		mwopts.MiddlewareRequestID,
		mwopts.MiddlewareLogger,
	}
	mwOpts.SetConfig(mwopts.MiddlewareRecovery, mwopts.NewRecoveryOptions())
	mwOpts.SetConfig(mwopts.MiddlewareRequestID, mwopts.NewRequestIDOptions())
	mwOpts.SetConfig(mwopts.MiddlewareLogger, mwopts.NewLoggerOptions())

	server := NewServer(options.NewOptions(), mwOpts)

	// 手动追加的中间件排在配置链之后,能跑到说明配置链没有中断请求
	var executed []string
	server.Engine().Use(func(c *gin.Context) {
		executed = append(executed, "test-middleware")
		c.Next()
	})

	w := serveOK(t, server)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"test-middleware"}, executed)
}
