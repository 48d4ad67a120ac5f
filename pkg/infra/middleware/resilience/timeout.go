package resilience

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	"github.com/kart-io/sentinel-kb/pkg/errors"
	"github.com/kart-io/sentinel-kb/pkg/infra/middleware/internal/pathutil"
	mwopts "github.com/kart-io/sentinel-kb/pkg/options/middleware"
	"github.com/kart-io/sentinel-kb/pkg/utils/response"
)

// DefaultTimeout 是未配置时使用的请求超时时间。
const DefaultTimeout = 30 * time.Second

// Timeout 返回一个使用指定超时时间的超时中间件。
func Timeout(timeout time.Duration) gin.HandlerFunc {
	return TimeoutWithOptions(mwopts.TimeoutOptions{
		Timeout: timeout,
	})
}

// TimeoutWithOptions 返回一个使用纯配置选项的超时中间件。
// 这是推荐的构造函数，直接使用 pkg/options/middleware.TimeoutOptions。
//
// 工作原理：
//  1. 为请求 context 设置截止时间，下游 handler 可以感知取消
//  2. handler 在独立 goroutine 中执行，超时后立即返回 408
//  3. 超时后 handler 继续运行至结束，但其响应会被丢弃
//
// 注意：handler 必须尊重 context 取消，否则超时请求仍会占用资源。
func TimeoutWithOptions(opts mwopts.TimeoutOptions) gin.HandlerFunc {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	pathMatcher := pathutil.NewPathMatcher(opts.SkipPaths, nil)

	return func(c *gin.Context) {
		if pathMatcher(c.Request.URL.Path) {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)

		done := make(chan struct{})
		panicCh := make(chan interface{}, 1)

		go func() {
			defer func() {
				if r := recover(); r != nil {
					panicCh <- r
					return
				}
				close(done)
			}()
			c.Next()
		}()

		select {
		case <-done:
			// Handler completed in time.
		case p := <-panicCh:
			// Re-panic on the request goroutine so Recovery can handle it.
			panic(p)
		case <-ctx.Done():
			logger.Warnw("request timed out",
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"timeout", timeout.String(),
			)
			response.Fail(c, errors.ErrRequestTimeout)
		}
	}
}
