package middleware

import (
	"net/http"
	"net/http/pprof"
	"runtime"
	"strings"

	"github.com/gin-gonic/gin"
	mwopts "github.com/kart-io/sentinel-kb/pkg/options/middleware"
)

func pprofPrefix(prefix string) string {
	if prefix == "" {
		prefix = "/debug/pprof"
	}
	return strings.TrimSuffix(prefix, "/")
}

// RegisterPprofRoutesWithOptions 注册 pprof 端点。
//
//	opts := mwopts.NewPprofOptions()
//	RegisterPprofRoutesWithOptions(engine, *opts)
func RegisterPprofRoutesWithOptions(engine *gin.Engine, opts mwopts.PprofOptions) {
	if opts.BlockProfileRate > 0 {
		runtime.SetBlockProfileRate(opts.BlockProfileRate)
	}
	if opts.MutexProfileFraction > 0 {
		runtime.SetMutexProfileFraction(opts.MutexProfileFraction)
	}

	prefix := pprofPrefix(opts.Prefix)

	engine.GET(prefix+"/", gin.WrapF(pprof.Index))
	engine.GET(prefix, gin.WrapF(pprof.Index))

	if opts.EnableCmdline {
		engine.GET(prefix+"/cmdline", gin.WrapF(pprof.Cmdline))
	}
	if opts.EnableProfile {
		engine.GET(prefix+"/profile", gin.WrapF(pprof.Profile))
	}
	if opts.EnableSymbol {
		engine.GET(prefix+"/symbol", gin.WrapF(pprof.Symbol))
		engine.POST(prefix+"/symbol", gin.WrapF(pprof.Symbol))
	}
	if opts.EnableTrace {
		engine.GET(prefix+"/trace", gin.WrapF(pprof.Trace))
	}

	// 具名 profile 直接走标准 handler
	for _, profile := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
		engine.GET(prefix+"/"+profile, gin.WrapH(pprof.Handler(profile)))
	}
}

// PprofHandler 是独立的 http.Handler 版本,需要自行控制挂载位置时使用。
type PprofHandler struct {
	opts mwopts.PprofOptions
}

// NewPprofHandler creates a new pprof handler.
func NewPprofHandler(opts mwopts.PprofOptions) *PprofHandler {
	return &PprofHandler{opts: opts}
}

// ServeHTTP implements http.Handler.
func (h *PprofHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, pprofPrefix(h.opts.Prefix))
	path = strings.TrimPrefix(path, "/")

	serveIf := func(enabled bool, fn http.HandlerFunc) {
		if enabled {
			fn(w, r)
		} else {
			http.NotFound(w, r)
		}
	}

	switch path {
	case "", "index":
		pprof.Index(w, r)
	case "cmdline":
		serveIf(h.opts.EnableCmdline, pprof.Cmdline)
	case "profile":
		serveIf(h.opts.EnableProfile, pprof.Profile)
	case "symbol":
		serveIf(h.opts.EnableSymbol, pprof.Symbol)
	case "trace":
		serveIf(h.opts.EnableTrace, pprof.Trace)
	default:
		// heap、goroutine 等具名 profile 由 Index 页面引导
		pprof.Index(w, r)
	}
}

// EnableBlockProfiling 设置阻塞采样率,1 记录每次阻塞,0 关闭。
func EnableBlockProfiling(rate int) { runtime.SetBlockProfileRate(rate) }

// EnableMutexProfiling 设置锁竞争采样率,1 记录每次竞争,0 关闭。
func EnableMutexProfiling(fraction int) { runtime.SetMutexProfileFraction(fraction) }

// DisableBlockProfiling disables block profiling.
func DisableBlockProfiling() { runtime.SetBlockProfileRate(0) }

// DisableMutexProfiling disables mutex profiling.
func DisableMutexProfiling() { runtime.SetMutexProfileFraction(0) }
