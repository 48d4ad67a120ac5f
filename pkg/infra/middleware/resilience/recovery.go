package resilience

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	"github.com/kart-io/sentinel-kb/pkg/errors"
	mwopts "github.com/kart-io/sentinel-kb/pkg/options/middleware"
	"github.com/kart-io/sentinel-kb/pkg/utils/response"
)

// PanicHandler 在 panic 恢复后被调用,可用于接告警。
type PanicHandler func(ctx *gin.Context, err interface{}, stack []byte)

// Recovery returns a middleware that recovers from panics with default options.
func Recovery() gin.HandlerFunc {
	return RecoveryWithOptions(*mwopts.NewRecoveryOptions(), nil)
}

// RecoveryWithOptions 返回 Recovery 中间件,配置可序列化,
// 运行时依赖通过 onPanic 注入,onPanic 为 nil 时只记日志和返回错误响应。
func RecoveryWithOptions(opts mwopts.RecoveryOptions, onPanic PanicHandler) gin.HandlerFunc {
	isProd := isProductionEnvironment()
	// 生产环境强制不向客户端回堆栈
	shouldReturnStackToClient := validateStackTraceConfig(opts.EnableStackTrace, isProd)

	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()

				// 完整堆栈始终进日志
				logPanicWithStackTrace(c, r, stack)

				if onPanic != nil {
					onPanic(c, r, stack)
				}

				response.Fail(c, buildClientErrorResponse(r, stack, shouldReturnStackToClient))
			}
		}()
		c.Next()
	}
}

// isProductionEnvironment 检查 APP_ENV 和 GO_ENV 判断是否生产环境。
func isProductionEnvironment() bool {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = os.Getenv("GO_ENV")
	}
	switch env {
	case "production", "prod", "PRODUCTION", "PROD":
		return true
	default:
		return false
	}
}

func validateStackTraceConfig(enableStackTrace bool, isProd bool) bool {
	if isProd && enableStackTrace {
		logger.Warn("Stack trace is enabled but running in production environment. " +
			"Stack trace will NOT be returned to clients for security reasons. " +
			"Full stack trace will still be logged.")
		return false
	}
	return enableStackTrace
}

func logPanicWithStackTrace(c *gin.Context, panicValue interface{}, stack []byte) {
	logger.Errorw("panic recovered",
		"panic", panicValue,
		"stack_trace", string(stack),
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
	)
}

func buildClientErrorResponse(panicValue interface{}, stack []byte, includeStackTrace bool) *errors.Errno {
	if includeStackTrace {
		return errors.ErrPanic.WithMessage(fmt.Sprintf("panic: %v\n%s", panicValue, string(stack)))
	}
	return errors.ErrPanic.WithMessage(fmt.Sprintf("panic: %v", panicValue))
}
