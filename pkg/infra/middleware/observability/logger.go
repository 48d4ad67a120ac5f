// Package observability provides observability middleware.
package observability

import (
	"log"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	"github.com/kart-io/sentinel-kb/pkg/infra/middleware/internal/pathutil"
	"github.com/kart-io/sentinel-kb/pkg/infra/middleware/requestutil"
	mwopts "github.com/kart-io/sentinel-kb/pkg/options/middleware"
)

// fields 切片复用池,避免每个请求都分配一次。
var fieldsPool = sync.Pool{
	New: func() interface{} {
		s := make([]interface{}, 0, 16)
		return &s
	},
}

func acquireFields() *[]interface{} {
	return fieldsPool.Get().(*[]interface{})
}

func releaseFields(fields *[]interface{}) {
	*fields = (*fields)[:0]
	fieldsPool.Put(fields)
}

// Logger returns a middleware that logs HTTP requests with default options.
func Logger() gin.HandlerFunc {
	return LoggerWithOptions(*mwopts.NewLoggerOptions(), nil)
}

// LoggerWithOptions 返回请求日志中间件,配置可序列化,
// output 只在 UseStructuredLogger=false 时生效,为 nil 时用 log.Printf。
func LoggerWithOptions(opts mwopts.LoggerOptions, output func(format string, args ...interface{})) gin.HandlerFunc {
	if output == nil {
		output = log.Printf
	}

	pathMatcher := pathutil.NewPathMatcher(opts.SkipPaths, nil)

	return func(c *gin.Context) {
		req := c.Request
		path := req.URL.Path

		if pathMatcher(path) {
			c.Next()
			return
		}

		start := time.Now()
		requestID := requestutil.GetRequestID(c.Request.Context())

		c.Next()

		latency := time.Since(start)

		if opts.UseStructuredLogger {
			fields := acquireFields()
			defer releaseFields(fields)

			*fields = append(*fields,
				"method", req.Method,
				"path", path,
				"status", c.Writer.Status(),
				"remote_addr", req.RemoteAddr,
				"latency", latency.String(),
				"latency_ms", latency.Milliseconds(),
			)
			if requestID != "" {
				*fields = append(*fields, "request_id", requestID)
			}
			logger.Infow("HTTP Request", (*fields)...)
			return
		}

		if requestID != "" {
			output("[%s] %s %s %s %v", requestID, req.Method, path, req.RemoteAddr, latency)
		} else {
			output("%s %s %s %v", req.Method, path, req.RemoteAddr, latency)
		}
	}
}
