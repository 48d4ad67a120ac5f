package resilience

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mwopts "github.com/kart-io/sentinel-kb/pkg/options/middleware"
)

func serveWithTimeout(mw gin.HandlerFunc, path string, handler gin.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)
	r.Use(mw)
	r.GET(path, handler)
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestTimeoutFastRequestPasses(t *testing.T) {
	called := false
	w := serveWithTimeout(Timeout(100*time.Millisecond), "/v1/drafts", func(_ *gin.Context) {
		called = true
		time.Sleep(10 * time.Millisecond)
	})

	assert.True(t, called)
	assert.NotEqual(t, http.StatusRequestTimeout, w.Code)
}

func TestTimeoutSlowRequestAborts(t *testing.T) {
	w := serveWithTimeout(Timeout(50*time.Millisecond), "/v1/drafts/preview", func(_ *gin.Context) {
		// Chunk preview stuck on a slow source fetch.
		time.Sleep(200 * time.Millisecond)
	})

	assert.Equal(t, http.StatusRequestTimeout, w.Code)
}

func TestTimeoutSkipPaths(t *testing.T) {
	mw := TimeoutWithOptions(mwopts.TimeoutOptions{
		Timeout:   50 * time.Millisecond,
		SkipPaths: []string{"/healthz", "/metrics"},
	})

	slow := func(_ *gin.Context) { time.Sleep(100 * time.Millisecond) }

	tests := []struct {
		path        string
		wantTimeout bool
	}{
		{"/healthz", false},
		{"/metrics", false},
		{"/v1/drafts", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := serveWithTimeout(mw, tt.path, slow)
			if tt.wantTimeout {
				assert.Equal(t, http.StatusRequestTimeout, w.Code)
			} else {
				assert.NotEqual(t, http.StatusRequestTimeout, w.Code)
			}
		})
	}
}

func TestTimeoutZeroFallsBackToDefault(t *testing.T) {
	called := false
	serveWithTimeout(TimeoutWithOptions(mwopts.TimeoutOptions{}), "/v1/drafts", func(_ *gin.Context) {
		called = true
	})
	assert.True(t, called)
}

func TestTimeoutSetsContextDeadline(t *testing.T) {
	timeout := 100 * time.Millisecond

	var deadline time.Time
	var hasDeadline bool
	serveWithTimeout(Timeout(timeout), "/v1/drafts", func(c *gin.Context) {
		deadline, hasDeadline = c.Request.Context().Deadline()
	})

	require.True(t, hasDeadline)
	assert.WithinDuration(t, time.Now().Add(timeout), deadline, 100*time.Millisecond)
}

func TestTimeoutCancelsRequestContext(t *testing.T) {
	resultCh := make(chan error, 1)

	serveWithTimeout(Timeout(50*time.Millisecond), "/v1/drafts", func(c *gin.Context) {
		time.Sleep(100 * time.Millisecond)
		resultCh <- c.Request.Context().Err()
	})

	select {
	case err := <-resultCh:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(200 * time.Millisecond):
		t.Fatal("handler never observed its context")
	}
}

func TestTimeoutHandlerPanicDoesNotEscape(t *testing.T) {
	assert.NotPanics(t, func() {
		serveWithTimeout(Timeout(100*time.Millisecond), "/v1/drafts", func(_ *gin.Context) {
			panic("chunker blew up")
		})
	})
	// Give the handler goroutine time to unwind.
	time.Sleep(50 * time.Millisecond)
}

func TestTimeoutConcurrentSlowRequests(t *testing.T) {
	mw := Timeout(50 * time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := serveWithTimeout(mw, "/v1/drafts", func(_ *gin.Context) {
				time.Sleep(100 * time.Millisecond)
			})
			assert.Equal(t, http.StatusRequestTimeout, w.Code)
		}()
	}
	wg.Wait()
}

func TestTimeoutVeryShort(t *testing.T) {
	w := serveWithTimeout(Timeout(time.Millisecond), "/v1/drafts", func(_ *gin.Context) {
		time.Sleep(10 * time.Millisecond)
	})
	assert.Equal(t, http.StatusRequestTimeout, w.Code)
}
