package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/sentinel-kb/pkg/infra/middleware/common"
	"github.com/kart-io/sentinel-kb/pkg/infra/middleware/requestutil"
	mwopts "github.com/kart-io/sentinel-kb/pkg/options/middleware"
)

// HeaderXRequestID is the default request ID header name.
const HeaderXRequestID = common.HeaderXRequestID

// GetRequestID returns the request ID stored in the context, if any.
var GetRequestID = common.GetRequestID

// RequestIDGenerator 定义请求 ID 生成函数类型。
// 用于运行时注入自定义生成逻辑。
type RequestIDGenerator func() string

// RequestID returns a request ID middleware with default options.
func RequestID() gin.HandlerFunc {
	return RequestIDWithOptions(*mwopts.NewRequestIDOptions(), nil)
}

// RequestIDWithOptions 返回一个使用纯配置选项和运行时依赖注入的 RequestID 中间件。
// 这是推荐的 API，适用于配置中心场景（配置必须可序列化）。
//
// 参数：
//   - opts: 纯配置选项（可 JSON 序列化）
//   - generator: 可选的 ID 生成函数，为 nil 时根据 opts.GeneratorType 选择内置生成器
//
// 行为：
//  1. 复用请求头中已有的 ID（网关或上游服务注入的）
//  2. 缺失时生成新 ID
//  3. 将 ID 写入响应头并存入 request context，供日志和追踪中间件读取
func RequestIDWithOptions(opts mwopts.RequestIDOptions, generator RequestIDGenerator) gin.HandlerFunc {
	header := opts.Header
	if header == "" {
		header = HeaderXRequestID
	}

	if generator == nil {
		gen := requestutil.NewGenerator(opts.GeneratorType)
		generator = gen.Generate
	}

	return func(c *gin.Context) {
		requestID := c.Request.Header.Get(header)
		if requestID == "" {
			requestID = generator()
		}

		c.Writer.Header().Set(header, requestID)
		c.Request = c.Request.WithContext(common.WithRequestID(c.Request.Context(), requestID))

		c.Next()
	}
}
