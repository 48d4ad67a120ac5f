package resilience

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	"github.com/kart-io/sentinel-kb/pkg/errors"
	"github.com/kart-io/sentinel-kb/pkg/infra/middleware/internal/pathutil"
	mwopts "github.com/kart-io/sentinel-kb/pkg/options/middleware"
	"github.com/kart-io/sentinel-kb/pkg/utils/response"
)

// BodyLimit 返回一个请求体大小限制中间件。
//
//	router.Use(BodyLimit(10 * 1024 * 1024)) // 限制 10MB
func BodyLimit(maxSize int64) gin.HandlerFunc {
	return BodyLimitWithOptions(mwopts.BodyLimitOptions{MaxSize: maxSize})
}

// BodyLimitWithOptions 返回请求体大小限制中间件。
// 先看 Content-Length 快速拒绝,再用 http.MaxBytesReader 兜底,
// Content-Length 可以被伪造,实际读取仍会被截断。
// 必须排在任何读取请求体的中间件之前,文档上传路径配到 SkipPaths 单独处理。
func BodyLimitWithOptions(opts mwopts.BodyLimitOptions) gin.HandlerFunc {
	if opts.MaxSize <= 0 {
		opts.MaxSize = 4 * 1024 * 1024
	}

	pathMatcher := pathutil.NewPathMatcher(opts.SkipPaths, opts.SkipPathPrefixes)
	return func(c *gin.Context) {
		req := c.Request

		if pathMatcher(req.URL.Path) {
			c.Next()
			return
		}

		// Content-Length 已超限时直接拒绝,不读任何数据
		if req.ContentLength > opts.MaxSize {
			logger.Warnw("request body too large (Content-Length check)",
				"path", req.URL.Path,
				"content_length", req.ContentLength,
				"max_size", opts.MaxSize,
			)
			response.Fail(c, errors.ErrRequestTooLarge)
			return
		}

		req.Body = http.MaxBytesReader(c.Writer, req.Body, opts.MaxSize)
		c.Next()
	}
}
