package resilience

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	mwopts "github.com/kart-io/sentinel-kb/pkg/options/middleware"
)

// serveWith 挂上中间件和 handler 后发一次 GET /test。
func serveWith(mw gin.HandlerFunc, handler gin.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)
	r.Use(mw)
	r.GET("/test", handler)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	r.ServeHTTP(w, req)
	return w
}

func TestRecoveryPassesThroughWithoutPanic(t *testing.T) {
	handlerCalled := false
	w := serveWith(Recovery(), func(_ *gin.Context) {
		handlerCalled = true
	})

	assert.True(t, handlerCalled)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecoveryCatchesPanic(t *testing.T) {
	w := serveWith(Recovery(), func(_ *gin.Context) {
		panic("test panic")
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRecoveryStackTraceToggle(t *testing.T) {
	for _, enabled := range []bool{true, false} {
		opts := mwopts.RecoveryOptions{EnableStackTrace: enabled}
		w := serveWith(RecoveryWithOptions(opts, nil), func(_ *gin.Context) {
			panic("test panic with stack")
		})

		// 无论是否带栈,对外都是统一的 500 响应
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	}
}

func TestRecoveryOnPanicCallback(t *testing.T) {
	var (
		panicCalled bool
		panicErr    interface{}
		panicStack  []byte
	)
	onPanic := func(_ *gin.Context, err interface{}, stack []byte) {
		panicCalled = true
		panicErr = err
		panicStack = stack
	}

	mw := RecoveryWithOptions(mwopts.RecoveryOptions{EnableStackTrace: false}, onPanic)
	serveWith(mw, func(_ *gin.Context) {
		panic("callback test panic")
	})

	assert.True(t, panicCalled)
	assert.Equal(t, "callback test panic", panicErr)
	assert.NotEmpty(t, panicStack)
}

func TestRecoveryHandlesArbitraryPanicValues(t *testing.T) {
	values := []interface{}{
		"string panic",
		&mockError{msg: "error panic"},
		42,
		nil,
	}

	for _, v := range values {
		v := v
		w := serveWith(Recovery(), func(_ *gin.Context) {
			panic(v)
		})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	}
}

type mockError struct {
	msg string
}

func (e *mockError) Error() string { return e.msg }
