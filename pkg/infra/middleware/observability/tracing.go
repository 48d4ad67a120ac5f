package observability

import (
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/sentinel-kb/pkg/infra/middleware/internal/pathutil"
	"github.com/kart-io/sentinel-kb/pkg/infra/middleware/requestutil"
	"github.com/kart-io/sentinel-kb/pkg/infra/tracing"
)

// TracerName is the tracer name used by the HTTP middleware.
const TracerName = "github.com/kart-io/sentinel-kb/pkg/infra/middleware"

// TracingOptions configures the tracing middleware.
type TracingOptions struct {
	// TracerName 追踪器名称,默认为 TracerName 常量。
	TracerName string

	// SpanNameFormatter 生成 span 名称,默认 "{method} {route}"。
	SpanNameFormatter func(c *gin.Context) string

	// IncludeRequestBody 抓取请求体到 span 属性。可能泄漏敏感数据,慎用。
	IncludeRequestBody bool

	// IncludeResponseBody 抓取响应体到 span 属性。可能泄漏敏感数据,慎用。
	IncludeResponseBody bool

	// SkipPaths 不追踪的精确路径。
	SkipPaths []string

	// SkipPathPrefixes 不追踪的路径前缀。
	SkipPathPrefixes []string

	// AttributeExtractor 从请求中提取自定义属性。
	AttributeExtractor func(c *gin.Context) []attribute.KeyValue
}

// TracingOption is a functional option for TracingOptions.
type TracingOption func(*TracingOptions)

// NewTracingOptions creates default tracing options.
func NewTracingOptions() *TracingOptions {
	return &TracingOptions{
		TracerName:        TracerName,
		SpanNameFormatter: defaultSpanNameFormatter,
		SkipPaths:         []string{},
		SkipPathPrefixes:  []string{},
	}
}

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracingOption {
	return func(o *TracingOptions) { o.TracerName = name }
}

// WithSpanNameFormatter sets the span name formatter.
func WithSpanNameFormatter(formatter func(c *gin.Context) string) TracingOption {
	return func(o *TracingOptions) { o.SpanNameFormatter = formatter }
}

// WithRequestBodyCapture enables request body capture.
func WithRequestBodyCapture(enabled bool) TracingOption {
	return func(o *TracingOptions) { o.IncludeRequestBody = enabled }
}

// WithResponseBodyCapture enables response body capture.
func WithResponseBodyCapture(enabled bool) TracingOption {
	return func(o *TracingOptions) { o.IncludeResponseBody = enabled }
}

// WithTracingSkipPaths sets paths to skip tracing.
func WithTracingSkipPaths(paths []string) TracingOption {
	return func(o *TracingOptions) { o.SkipPaths = paths }
}

// WithTracingSkipPathPrefixes sets path prefixes to skip tracing.
func WithTracingSkipPathPrefixes(prefixes []string) TracingOption {
	return func(o *TracingOptions) { o.SkipPathPrefixes = prefixes }
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(c *gin.Context) []attribute.KeyValue) TracingOption {
	return func(o *TracingOptions) { o.AttributeExtractor = extractor }
}

// Tracing 返回链路追踪中间件: 从请求头提取 W3C Trace Context,
// 为每个请求开 server span,挂标准 HTTP 属性,按状态码标记 span 状态。
//
//	engine.Use(observability.Tracing(
//	    observability.WithTracingSkipPaths([]string{"/health", "/metrics"}),
//	))
func Tracing(opts ...TracingOption) gin.HandlerFunc {
	options := NewTracingOptions()
	for _, opt := range opts {
		opt(options)
	}

	pathMatcher := pathutil.NewPathMatcher(options.SkipPaths, options.SkipPathPrefixes)
	propagator := tracing.GetGlobalTextMapPropagator()

	return func(c *gin.Context) {
		req := c.Request

		if pathMatcher(req.URL.Path) {
			c.Next()
			return
		}

		requestCtx := propagator.Extract(req.Context(), propagation.HeaderCarrier(req.Header))

		spanCtx, span := tracing.StartSpanWithKind(
			requestCtx,
			options.TracerName,
			options.SpanNameFormatter(c),
			trace.SpanKindServer,
		)
		defer span.End()

		c.Request = req.WithContext(spanCtx)

		span.SetAttributes(requestAttributes(c, options)...)

		c.Next()

		statusCode := c.Writer.Status()
		span.SetAttributes(semconv.HTTPStatusCode(statusCode))

		if statusCode >= 400 {
			span.SetStatus(codes.Error, http.StatusText(statusCode))
		} else {
			span.SetStatus(codes.Ok, "")
		}
		if statusCode >= 500 {
			span.RecordError(fmt.Errorf("HTTP %d: %s", statusCode, http.StatusText(statusCode)))
		}
	}
}

// requestAttributes 组装标准 HTTP 属性加上自定义提取器的结果。
func requestAttributes(c *gin.Context, options *TracingOptions) []attribute.KeyValue {
	req := c.Request

	attrs := []attribute.KeyValue{
		semconv.HTTPMethod(req.Method),
		semconv.HTTPURL(req.URL.String()),
		semconv.HTTPTarget(req.URL.Path),
		semconv.HTTPScheme(req.URL.Scheme),
		semconv.ServerAddress(req.Host),
	}

	if userAgent := req.UserAgent(); userAgent != "" {
		attrs = append(attrs, semconv.UserAgentOriginal(userAgent))
	}
	if clientIP := req.RemoteAddr; clientIP != "" {
		attrs = append(attrs, attribute.String(tracing.HTTPClientIP, clientIP))
	}
	if requestID := c.Writer.Header().Get(requestutil.HeaderXRequestID); requestID != "" {
		attrs = append(attrs, attribute.String(tracing.HTTPRequestID, requestID))
	}
	if options.AttributeExtractor != nil {
		attrs = append(attrs, options.AttributeExtractor(c)...)
	}

	return attrs
}

// tracingResponseWriter captures the status code for plain net/http handlers.
type tracingResponseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (w *tracingResponseWriter) WriteHeader(statusCode int) {
	if !w.written {
		w.statusCode = statusCode
		w.written = true
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *tracingResponseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// defaultSpanNameFormatter 优先用路由模式,带参数的路径才能聚合到同一个 span 名。
func defaultSpanNameFormatter(c *gin.Context) string {
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	return fmt.Sprintf("%s %s", c.Request.Method, route)
}

// ExtractTraceID 从请求上下文取 trace ID,便于写进日志或响应。
func ExtractTraceID(c *gin.Context) string {
	return tracing.TraceIDFromContext(c.Request.Context())
}

// ExtractSpanID extracts the span ID from the request context.
func ExtractSpanID(c *gin.Context) string {
	return tracing.SpanIDFromContext(c.Request.Context())
}
