package observability

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	applogger "github.com/kart-io/sentinel-kb/pkg/infra/logger"
	"github.com/kart-io/sentinel-kb/pkg/infra/middleware/requestutil"
	loggeropts "github.com/kart-io/sentinel-kb/pkg/options/logger"
)

// responseWriter 包装 http.ResponseWriter,记录状态码、字节数,可选抓取响应体。
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	body         *bytes.Buffer
	captureBody  bool
}

func newResponseWriter(w http.ResponseWriter, captureBody bool) *responseWriter {
	rw := &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
		captureBody:    captureBody,
	}
	if captureBody {
		rw.body = &bytes.Buffer{}
	}
	return rw
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)

	if rw.captureBody && rw.body != nil {
		rw.body.Write(b)
	}
	return n, err
}

func (rw *responseWriter) Status() int { return rw.statusCode }

func (rw *responseWriter) BytesWritten() int64 { return rw.bytesWritten }

func (rw *responseWriter) Body() string {
	if rw.body == nil {
		return ""
	}
	return rw.body.String()
}

// healthProbePaths 是 SkipHealthChecks 时不打访问日志的路径。
var healthProbePaths = map[string]struct{}{
	"/health":  {},
	"/healthz": {},
	"/livez":   {},
	"/readyz":  {},
}

func shouldSkip(path string, opts *loggeropts.EnhancedLoggerConfig) bool {
	if opts.SkipHealthChecks {
		if _, ok := healthProbePaths[path]; ok {
			return true
		}
	}
	for _, p := range opts.SkipPaths {
		if path == p {
			return true
		}
	}
	return false
}

// sanitizeBody 脱敏并截断请求/响应体,保证日志体积可控。
func sanitizeBody(body string, opts *loggeropts.EnhancedLoggerConfig) string {
	body = redactSensitiveData(body, opts.SensitiveHeaders)
	if len(body) > opts.MaxBodyLogSize {
		body = body[:opts.MaxBodyLogSize] + "...(truncated)"
	}
	return body
}

// EnhancedLogger returns a net/http middleware that logs requests with
// optional body capture, header capture and sensitive data redaction.
func EnhancedLogger(opts *loggeropts.EnhancedLoggerConfig) func(http.Handler) http.Handler {
	if opts == nil {
		opts = loggeropts.NewEnhancedLoggerConfig()
	}

	bufPool := sync.Pool{
		New: func() interface{} { return new(bytes.Buffer) },
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if shouldSkip(r.URL.Path, opts) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()

			// 抓取请求体后要把 Body 还回去,下游 handler 还要读
			var reqBody []byte
			if opts.LogRequestBody && r.Body != nil {
				buf := bufPool.Get().(*bytes.Buffer)
				buf.Reset()
				if _, err := io.Copy(buf, r.Body); err == nil {
					reqBody = buf.Bytes()
					r.Body = io.NopCloser(bytes.NewBuffer(reqBody))
				}
				bufPool.Put(buf)
			}

			rw := newResponseWriter(w, opts.LogResponseBody)
			next.ServeHTTP(rw, r)

			traceID := r.Header.Get(requestutil.HeaderTraceID)
			if traceID == "" {
				traceID = r.Header.Get("X-Request-ID")
			}

			keysAndValues := []interface{}{
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
				"ip", requestutil.GetClientIP(r),
				"status", rw.statusCode,
				"size", rw.bytesWritten,
				"duration", time.Since(start),
				"user_agent", r.UserAgent(),
			}
			if traceID != "" {
				keysAndValues = append(keysAndValues, "trace_id", traceID)
			}

			if len(opts.CaptureHeaders) > 0 {
				headers := make(map[string]string)
				for _, h := range opts.CaptureHeaders {
					if val := r.Header.Get(h); val != "" {
						headers[h] = val
					}
				}
				if len(headers) > 0 {
					keysAndValues = append(keysAndValues, "headers", headers)
				}
			}

			if len(reqBody) > 0 {
				keysAndValues = append(keysAndValues, "request_body", sanitizeBody(string(reqBody), opts))
			}
			if rw.captureBody && rw.body != nil && rw.body.Len() > 0 {
				keysAndValues = append(keysAndValues, "response_body", sanitizeBody(rw.body.String(), opts))
			}

			logger := applogger.GetLogger(context.Background())
			switch {
			case rw.statusCode >= 500:
				logger.Errorw("HTTP Request", keysAndValues...)
			case rw.statusCode >= 400:
				logger.Warnw("HTTP Request", keysAndValues...)
			default:
				logger.Infow("HTTP Request", keysAndValues...)
			}
		})
	}
}

// redactSensitiveData 命中任一敏感模式时整体打码。
// TODO: 按 JSON 字段粒度脱敏,而不是整段替换。
func redactSensitiveData(data string, patterns []string) string {
	lower := strings.ToLower(data)
	for _, pattern := range patterns {
		if strings.Contains(lower, strings.ToLower(pattern)) {
			return "[REDACTED]"
		}
	}
	return data
}
