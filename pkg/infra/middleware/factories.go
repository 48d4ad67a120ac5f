// Package middleware 提供 HTTP 中间件的工厂注册。
// 通过 init() 函数自动注册所有内置中间件工厂。
package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/sentinel-kb/pkg/infra/middleware/observability"
	"github.com/kart-io/sentinel-kb/pkg/infra/middleware/performance"
	"github.com/kart-io/sentinel-kb/pkg/infra/middleware/resilience"
	mwopts "github.com/kart-io/sentinel-kb/pkg/options/middleware"
)

// typedFactory 把"断言配置类型 + 调用构造函数"这段样板收拢到一处。
// T 是该中间件对应的 options 类型。
type typedFactory[T any] struct {
	name  string
	build func(opts *T) gin.HandlerFunc
}

func (f *typedFactory[T]) Name() string { return f.name }

func (f *typedFactory[T]) NeedsRuntime() bool { return false }

func (f *typedFactory[T]) Create(cfg mwopts.MiddlewareConfig) (gin.HandlerFunc, error) {
	opts, ok := any(cfg).(*T)
	if !ok {
		return nil, fmt.Errorf("invalid config type for %s: expected %T, got %T", f.name, (*T)(nil), cfg)
	}
	return f.build(opts), nil
}

// runtimeFactory 标记需要运行时依赖注入的中间件。
// 服务器自动装配时会跳过这类中间件，由调用方手动构造并挂载
// （如 AuthWithOptions、RateLimitWithOptions）。
type runtimeFactory struct {
	name string
}

func (f *runtimeFactory) Name() string { return f.name }

func (f *runtimeFactory) NeedsRuntime() bool { return true }

func (f *runtimeFactory) Create(_ mwopts.MiddlewareConfig) (gin.HandlerFunc, error) {
	return nil, fmt.Errorf("middleware %q requires runtime dependencies and cannot be auto-created", f.name)
}

// typedRegistrar 为需要挂路由而非中间件链的组件做同样的类型收拢。
type typedRegistrar[T any] struct {
	name     string
	register func(engine *gin.Engine, opts *T)
}

func (r *typedRegistrar[T]) RegisterRoutes(engine *gin.Engine, cfg mwopts.MiddlewareConfig) error {
	opts, ok := any(cfg).(*T)
	if !ok {
		return fmt.Errorf("invalid config type for %s: expected %T, got %T", r.name, (*T)(nil), cfg)
	}
	r.register(engine, opts)
	return nil
}

func init() {
	// 注册所有内置中间件工厂
	mwopts.RegisterFactory(&typedFactory[mwopts.RecoveryOptions]{
		name: mwopts.MiddlewareRecovery,
		build: func(opts *mwopts.RecoveryOptions) gin.HandlerFunc {
			return resilience.RecoveryWithOptions(*opts, nil)
		},
	})
	mwopts.RegisterFactory(&typedFactory[mwopts.RequestIDOptions]{
		name: mwopts.MiddlewareRequestID,
		build: func(opts *mwopts.RequestIDOptions) gin.HandlerFunc {
			return RequestIDWithOptions(*opts, nil)
		},
	})
	mwopts.RegisterFactory(&typedFactory[mwopts.LoggerOptions]{
		name: mwopts.MiddlewareLogger,
		build: func(opts *mwopts.LoggerOptions) gin.HandlerFunc {
			return observability.LoggerWithOptions(*opts, nil)
		},
	})
	mwopts.RegisterFactory(&typedFactory[mwopts.CORSOptions]{
		name: mwopts.MiddlewareCORS,
		build: func(opts *mwopts.CORSOptions) gin.HandlerFunc {
			return CORSWithOptions(*opts)
		},
	})
	mwopts.RegisterFactory(&typedFactory[mwopts.TimeoutOptions]{
		name: mwopts.MiddlewareTimeout,
		build: func(opts *mwopts.TimeoutOptions) gin.HandlerFunc {
			return TimeoutWithOptions(*opts)
		},
	})
	mwopts.RegisterFactory(&typedFactory[mwopts.BodyLimitOptions]{
		name: mwopts.MiddlewareBodyLimit,
		build: func(opts *mwopts.BodyLimitOptions) gin.HandlerFunc {
			return resilience.BodyLimitWithOptions(*opts)
		},
	})
	mwopts.RegisterFactory(&typedFactory[mwopts.MetricsOptions]{
		name: mwopts.MiddlewareMetrics,
		build: func(opts *mwopts.MetricsOptions) gin.HandlerFunc {
			return MetricsMiddlewareWithOptions(*opts)
		},
	})
	mwopts.RegisterFactory(&typedFactory[mwopts.CompressionOptions]{
		name: mwopts.MiddlewareCompression,
		build: func(opts *mwopts.CompressionOptions) gin.HandlerFunc {
			return performance.CompressionWithOptions(*opts)
		},
	})
	mwopts.RegisterFactory(&typedFactory[mwopts.SecurityHeadersOptions]{
		name: mwopts.MiddlewareSecurityHeaders,
		build: func(opts *mwopts.SecurityHeadersOptions) gin.HandlerFunc {
			return SecurityHeadersWithOptions(*opts)
		},
	})
	mwopts.RegisterFactory(&typedFactory[mwopts.CircuitBreakerOptions]{
		name: mwopts.MiddlewareCircuitBreaker,
		build: func(opts *mwopts.CircuitBreakerOptions) gin.HandlerFunc {
			return resilience.CircuitBreakerWithOptions(*opts)
		},
	})

	// 需要运行时依赖的中间件，仅注册标记
	mwopts.RegisterFactory(&runtimeFactory{name: mwopts.MiddlewareAuth})
	mwopts.RegisterFactory(&runtimeFactory{name: mwopts.MiddlewareAuthz})
	mwopts.RegisterFactory(&runtimeFactory{name: mwopts.MiddlewareRateLimit})

	// 注册路由注册器
	mwopts.RegisterRouteRegistrar(mwopts.MiddlewareHealth, &typedRegistrar[mwopts.HealthOptions]{
		name: mwopts.MiddlewareHealth,
		register: func(engine *gin.Engine, opts *mwopts.HealthOptions) {
			RegisterHealthRoutesWithOptions(engine, *opts, opts.Checker)
		},
	})
	mwopts.RegisterRouteRegistrar(mwopts.MiddlewareMetrics, &typedRegistrar[mwopts.MetricsOptions]{
		name: mwopts.MiddlewareMetrics,
		register: func(engine *gin.Engine, opts *mwopts.MetricsOptions) {
			RegisterMetricsRoutesWithOptions(engine, *opts)
		},
	})
	mwopts.RegisterRouteRegistrar(mwopts.MiddlewarePprof, &typedRegistrar[mwopts.PprofOptions]{
		name: mwopts.MiddlewarePprof,
		register: func(engine *gin.Engine, opts *mwopts.PprofOptions) {
			RegisterPprofRoutesWithOptions(engine, *opts)
		},
	})
	mwopts.RegisterRouteRegistrar(mwopts.MiddlewareVersion, &typedRegistrar[mwopts.VersionOptions]{
		name: mwopts.MiddlewareVersion,
		register: func(engine *gin.Engine, opts *mwopts.VersionOptions) {
			RegisterVersionRoutes(engine, *opts)
		},
	})
}
