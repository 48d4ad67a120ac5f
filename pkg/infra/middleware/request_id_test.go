package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/sentinel-kb/pkg/infra/middleware/requestutil"
	mwopts "github.com/kart-io/sentinel-kb/pkg/options/middleware"
)

// serveRequestID 跑一次请求,返回响应与处理器看到的上下文。
func serveRequestID(mw gin.HandlerFunc) (*httptest.ResponseRecorder, context.Context) {
	var captured context.Context

	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)
	r.Use(mw)
	r.GET("/v1/drafts", func(c *gin.Context) {
		captured = c.Request.Context()
	})
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/drafts", nil))
	return w, captured
}

func TestRequestIDGenerated(t *testing.T) {
	w, _ := serveRequestID(RequestID())

	id := w.Header().Get(HeaderXRequestID)
	require.NotEmpty(t, id)
	// 16 字节随机数的十六进制表示。
	assert.Len(t, id, 32)
}

func TestRequestIDPreservesIncoming(t *testing.T) {
	const existing = "gateway-req-12345"

	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)
	r.Use(RequestID())
	r.GET("/v1/drafts", func(*gin.Context) {})

	req := httptest.NewRequest(http.MethodGet, "/v1/drafts", nil)
	req.Header.Set(HeaderXRequestID, existing)
	r.ServeHTTP(w, req)

	assert.Equal(t, existing, w.Header().Get(HeaderXRequestID))
}

func TestRequestIDCustomHeader(t *testing.T) {
	mw := RequestIDWithOptions(mwopts.RequestIDOptions{Header: "X-Trace-ID"}, nil)
	w, _ := serveRequestID(mw)

	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
	assert.Empty(t, w.Header().Get(HeaderXRequestID))
}

func TestRequestIDCustomGenerator(t *testing.T) {
	mw := RequestIDWithOptions(mwopts.RequestIDOptions{}, func() string {
		return "fixed-id"
	})
	w, _ := serveRequestID(mw)

	assert.Equal(t, "fixed-id", w.Header().Get(HeaderXRequestID))
}

func TestRequestIDEmptyHeaderUsesDefault(t *testing.T) {
	mw := RequestIDWithOptions(mwopts.RequestIDOptions{Header: ""}, nil)
	w, _ := serveRequestID(mw)

	id := w.Header().Get(HeaderXRequestID)
	require.NotEmpty(t, id)
	assert.Len(t, id, 32)
}

func TestRequestIDStoredInContext(t *testing.T) {
	w, ctx := serveRequestID(RequestID())

	id := GetRequestID(ctx)
	require.NotEmpty(t, id)
	assert.Equal(t, w.Header().Get(HeaderXRequestID), id)
}

func TestGetRequestIDMissing(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))

	// 类型不匹配时同样返回空串。
	ctx := context.WithValue(context.Background(), requestutil.RequestIDKey{}, 12345)
	assert.Empty(t, GetRequestID(ctx))
}

func TestGenerateRequestIDUniqueness(t *testing.T) {
	ids := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := requestutil.GenerateRequestID()
		require.Len(t, id, 32)
		require.False(t, ids[id], "duplicate request ID %s", id)
		ids[id] = true
	}
}

func TestRequestIDUniquePerRequest(t *testing.T) {
	mw := RequestID()
	ids := make(map[string]bool)

	for i := 0; i < 10; i++ {
		w, _ := serveRequestID(mw)
		id := w.Header().Get(HeaderXRequestID)
		require.False(t, ids[id], "duplicate request ID %s", id)
		ids[id] = true
	}
}
