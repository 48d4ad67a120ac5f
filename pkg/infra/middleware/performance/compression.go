package performance

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/sentinel-kb/pkg/infra/middleware/internal/pathutil"
	mwopts "github.com/kart-io/sentinel-kb/pkg/options/middleware"
)

// 默认压缩的 Content-Type。图片、视频等已压缩内容不在列表中。
var defaultCompressTypes = []string{
	"application/json",
	"application/javascript",
	"text/html",
	"text/css",
	"text/plain",
	"text/xml",
}

// Compression 返回 gzip 压缩中间件,level 取 1-9,推荐 6。
//
//	router.Use(Compression(6))
func Compression(level int) gin.HandlerFunc {
	return CompressionWithOptions(mwopts.CompressionOptions{Level: level})
}

// CompressionWithOptions 返回带配置的 gzip 压缩中间件。
// 这是推荐的构造函数,直接使用 pkg/options/middleware.CompressionOptions。
//
// 仅当客户端 Accept-Encoding 带 gzip 且响应 Content-Type 在压缩列表中时
// 才压缩;小于 MinSize 的响应不值得付出压缩开销,原样返回。
func CompressionWithOptions(opts mwopts.CompressionOptions) gin.HandlerFunc {
	if opts.Level == 0 {
		opts.Level = 6
	}
	if opts.MinSize == 0 {
		opts.MinSize = 1024
	}
	if len(opts.Types) == 0 {
		opts.Types = defaultCompressTypes
	}

	pathMatcher := pathutil.NewPathMatcher(opts.SkipPaths, opts.SkipPathPrefixes)

	compressTypes := make(map[string]bool, len(opts.Types))
	for _, ct := range opts.Types {
		compressTypes[ct] = true
	}

	// gzip.Writer 复用池
	gzipPool := &sync.Pool{
		New: func() interface{} {
			gz, _ := gzip.NewWriterLevel(io.Discard, opts.Level)
			return gz
		},
	}

	return func(c *gin.Context) {
		req := c.Request

		if pathMatcher(req.URL.Path) {
			c.Next()
			return
		}
		if !strings.Contains(req.Header.Get("Accept-Encoding"), "gzip") {
			c.Next()
			return
		}

		gw := &gzipResponseWriter{
			ResponseWriter: c.Writer,
			minSize:        opts.MinSize,
			compressTypes:  compressTypes,
			gzipPool:       gzipPool,
		}
		c.Writer = gw

		c.Next()

		_ = gw.Close()
		c.Writer = gw.ResponseWriter
	}
}

// gzipResponseWriter 包装 gin.ResponseWriter,按 Content-Type 和响应大小
// 决定是否走 gzip。
type gzipResponseWriter struct {
	gin.ResponseWriter
	gzipWriter     *gzip.Writer
	gzipPool       *sync.Pool
	minSize        int
	compressTypes  map[string]bool
	written        int
	headerChecked  bool
	shouldCompress bool
}

func (w *gzipResponseWriter) WriteHeader(code int) {
	w.checkCompressible()
	w.ResponseWriter.WriteHeader(code)
}

// checkCompressible 在首次写响应头时根据 Content-Type 定压缩与否。
func (w *gzipResponseWriter) checkCompressible() {
	if w.headerChecked {
		return
	}
	w.headerChecked = true

	contentType := w.Header().Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}
	// 去掉 charset 等参数
	if idx := strings.Index(contentType, ";"); idx > 0 {
		contentType = contentType[:idx]
	}
	contentType = strings.TrimSpace(contentType)

	w.shouldCompress = w.compressTypes[contentType]
	if w.shouldCompress {
		// 压缩后长度变化,Content-Length 不再可信
		w.Header().Del("Content-Length")
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Set("Vary", "Accept-Encoding")
	}
}

func (w *gzipResponseWriter) Write(b []byte) (int, error) {
	w.checkCompressible()

	if !w.shouldCompress {
		return w.ResponseWriter.Write(b)
	}

	w.written += len(b)

	// 首块小于 MinSize 的响应直接放弃压缩
	if w.gzipWriter == nil {
		if w.written < w.minSize {
			w.Header().Del("Content-Encoding")
			w.Header().Del("Vary")
			w.shouldCompress = false
			return w.ResponseWriter.Write(b)
		}

		gz := w.gzipPool.Get().(*gzip.Writer)
		gz.Reset(w.ResponseWriter)
		w.gzipWriter = gz
	}

	return w.gzipWriter.Write(b)
}

func (w *gzipResponseWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// Close 结束压缩流并把 gzip writer 还回池里。
func (w *gzipResponseWriter) Close() error {
	if w.gzipWriter == nil {
		return nil
	}
	err := w.gzipWriter.Close()
	w.gzipPool.Put(w.gzipWriter)
	w.gzipWriter = nil
	return err
}

// Flush 支持流式响应。
func (w *gzipResponseWriter) Flush() {
	if w.gzipWriter != nil {
		_ = w.gzipWriter.Flush()
	}
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
