package resilience

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	"github.com/kart-io/sentinel-kb/pkg/errors"
	"github.com/kart-io/sentinel-kb/pkg/infra/middleware/internal/pathutil"
	mwopts "github.com/kart-io/sentinel-kb/pkg/options/middleware"
	resil "github.com/kart-io/sentinel-kb/pkg/resilience"
	"github.com/kart-io/sentinel-kb/pkg/utils/response"
)

// CircuitBreaker 返回一个熔断器中间件,下游持续出错时自动熔断,
// 给向量化、Milvus 这类依赖留出恢复时间。
//
//	router.Use(CircuitBreaker(5, 60, 1))
func CircuitBreaker(maxFailures int, timeout, halfOpenMaxCalls int) gin.HandlerFunc {
	return CircuitBreakerWithOptions(mwopts.CircuitBreakerOptions{
		MaxFailures:      maxFailures,
		Timeout:          timeout,
		HalfOpenMaxCalls: halfOpenMaxCalls,
		ErrorThreshold:   500,
	})
}

// CircuitBreakerWithOptions 返回带配置的熔断器中间件。
//
// 状态机: Closed 正常放行并计失败,失败达到阈值转 Open 拒绝一切请求,
// 超时后转 Half-Open 放少量探测,成功关闭,失败重新打开。
// 响应状态码 >= ErrorThreshold 计为失败。
//
// 熔断器状态是单实例的,不跨实例共享。打开时返回 503。
func CircuitBreakerWithOptions(opts mwopts.CircuitBreakerOptions) gin.HandlerFunc {
	pathMatcher := pathutil.NewPathMatcher(opts.SkipPaths, opts.SkipPathPrefixes)

	breaker := resil.NewCircuitBreaker(&resil.CircuitBreakerConfig{
		MaxFailures:      opts.MaxFailures,
		Timeout:          opts.GetTimeout(),
		HalfOpenMaxCalls: opts.HalfOpenMaxCalls,
	})

	return func(c *gin.Context) {
		req := c.Request

		if pathMatcher(req.URL.Path) {
			c.Next()
			return
		}

		err := breaker.Execute(func() (execErr error) {
			defer func() {
				if r := recover(); r != nil {
					// 先把这次失败记到熔断器上,再重新抛给 Recovery,
					// 不重新 panic 的话 Recovery 拿不到堆栈
					execErr = errors.ErrInternal
					logger.Errorw("circuit breaker caught panic",
						"panic", r,
						"path", req.URL.Path,
					)
					panic(r)
				}
			}()

			c.Next()

			statusCode := c.Writer.Status()
			if statusCode == 0 {
				statusCode = http.StatusOK
			}

			if statusCode >= opts.ErrorThreshold {
				logger.Debugw("circuit breaker detected error response",
					"path", req.URL.Path,
					"status_code", statusCode,
					"threshold", opts.ErrorThreshold,
				)
				return errors.ErrInternal
			}
			return nil
		})

		if err == resil.ErrCircuitBreakerOpen {
			logger.Warnw("circuit breaker open, rejecting request",
				"path", req.URL.Path,
				"state", breaker.State().String(),
				"stats", breaker.Stats(),
			)
			response.Fail(c, errors.ErrServiceUnavailable)
			return
		}
	}
}
