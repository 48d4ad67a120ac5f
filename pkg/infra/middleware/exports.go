// Package middleware provides HTTP middleware components.
//
// 本文件把子包的类型和构造函数重新导出,保持旧导入路径可用。
// 新代码请直接导入对应子包:
//
//	import "github.com/kart-io/sentinel-kb/pkg/infra/middleware/observability"
//	import "github.com/kart-io/sentinel-kb/pkg/infra/middleware/resilience"
//	import "github.com/kart-io/sentinel-kb/pkg/infra/middleware/security"
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	mwauth "github.com/kart-io/sentinel-kb/pkg/infra/middleware/auth"
	"github.com/kart-io/sentinel-kb/pkg/infra/middleware/observability"
	"github.com/kart-io/sentinel-kb/pkg/infra/middleware/resilience"
	"github.com/kart-io/sentinel-kb/pkg/infra/middleware/security"
	loggeropts "github.com/kart-io/sentinel-kb/pkg/options/logger"
	options "github.com/kart-io/sentinel-kb/pkg/options/middleware"
)

// 配置类型别名。
type (
	Options          = options.Options
	RecoveryOptions  = options.RecoveryOptions
	RequestIDOptions = options.RequestIDOptions
	LoggerOptions    = options.LoggerOptions
	CORSOptions      = options.CORSOptions
	TimeoutOptions   = options.TimeoutOptions
	HealthOptions    = options.HealthOptions
	MetricsOptions   = options.MetricsOptions
	PprofOptions     = options.PprofOptions
	AuthOptions      = options.AuthOptions
	AuthzOptions     = options.AuthzOptions

	EnhancedLoggerConfig = loggeropts.EnhancedLoggerConfig
	TracingOptions       = observability.TracingOptions
	TracingOption        = observability.TracingOption
	MetricsCollector     = observability.MetricsCollector
	RateLimiter          = resilience.RateLimiter
	MemoryRateLimiter    = resilience.MemoryRateLimiter
)

// 中间件名称常量。
const (
	MiddlewareRecovery  = options.MiddlewareRecovery
	MiddlewareRequestID = options.MiddlewareRequestID
	MiddlewareLogger    = options.MiddlewareLogger
	MiddlewareCORS      = options.MiddlewareCORS
	MiddlewareTimeout   = options.MiddlewareTimeout
	MiddlewareHealth    = options.MiddlewareHealth
	MiddlewareMetrics   = options.MiddlewareMetrics
	MiddlewarePprof     = options.MiddlewarePprof
	MiddlewareAuth      = options.MiddlewareAuth
	MiddlewareAuthz     = options.MiddlewareAuthz

	MiddlewareVersion         = options.MiddlewareVersion
	MiddlewareBodyLimit       = options.MiddlewareBodyLimit
	MiddlewareCompression     = options.MiddlewareCompression
	MiddlewareSecurityHeaders = options.MiddlewareSecurityHeaders
	MiddlewareRateLimit       = options.MiddlewareRateLimit
	MiddlewareCircuitBreaker  = options.MiddlewareCircuitBreaker
)

// TracerNameFromObservability re-exports the tracer name constant.
const TracerNameFromObservability = observability.TracerName

// NewOptions creates default middleware options.
var NewOptions = options.NewOptions

// Observability: 日志与指标。
var (
	Logger         = observability.Logger
	EnhancedLogger = observability.EnhancedLogger

	// LoggerWithOptions 是推荐的 API,适用于配置中心场景。
	LoggerWithOptions = observability.LoggerWithOptions

	GetMetricsCollector   = observability.GetMetricsCollector
	ResetMetricsCollector = observability.ResetMetricsCollector
	ResetMetrics          = observability.ResetMetrics
	NewMetricsCollector   = observability.NewMetricsCollector

	ExtractTraceID = observability.ExtractTraceID
	ExtractSpanID  = observability.ExtractSpanID
)

// Tracing re-exports observability.Tracing.
func Tracing(opts ...TracingOption) gin.HandlerFunc {
	return observability.Tracing(opts...)
}

// NewTracingOptions re-exports observability.NewTracingOptions.
var NewTracingOptions = observability.NewTracingOptions

// Tracing 选项函数。
var (
	WithTracerName              = observability.WithTracerName
	WithSpanNameFormatter       = observability.WithSpanNameFormatter
	WithRequestBodyCapture      = observability.WithRequestBodyCapture
	WithResponseBodyCapture     = observability.WithResponseBodyCapture
	WithTracingSkipPaths        = observability.WithTracingSkipPaths
	WithTracingSkipPathPrefixes = observability.WithTracingSkipPathPrefixes
	WithAttributeExtractor      = observability.WithAttributeExtractor
)

// MetricsMiddlewareWithOptions creates a middleware that collects metrics.
func MetricsMiddlewareWithOptions(opts MetricsOptions) gin.HandlerFunc {
	return observability.MetricsWithOptions(opts)
}

// RegisterMetricsRoutesWithOptions registers the metrics endpoint.
func RegisterMetricsRoutesWithOptions(engine *gin.Engine, opts MetricsOptions) {
	observability.RegisterMetricsRoutesWithOptions(engine, opts)
}

// Resilience: panic 恢复、限流。
var (
	Recovery = resilience.Recovery

	RateLimit = resilience.RateLimit
	// RateLimitWithOptions 是推荐的 API。
	RateLimitWithOptions = resilience.RateLimitWithOptions
	NewMemoryRateLimiter = resilience.NewMemoryRateLimiter
)

// Timeout re-exports resilience.Timeout.
func Timeout(timeout time.Duration) gin.HandlerFunc {
	return resilience.Timeout(timeout)
}

// TimeoutWithOptions 是推荐的构造函数,直接使用 pkg/options/middleware.TimeoutOptions。
var TimeoutWithOptions = resilience.TimeoutWithOptions

// Security: CORS 与安全响应头。
var (
	CORS = security.CORS
	// CORSWithOptions 是推荐的构造函数,直接使用 pkg/options/middleware.CORSOptions。
	CORSWithOptions = security.CORSWithOptions

	SecurityHeaders = security.SecurityHeaders
	// SecurityHeadersWithOptions 是推荐的 API。
	SecurityHeadersWithOptions = security.SecurityHeadersWithOptions
)

// 认证与鉴权,需要运行时依赖,由调用方显式挂载。
var (
	// AuthWithOptions 是推荐的 API,适用于配置中心场景。
	AuthWithOptions = mwauth.AuthWithOptions
	NewAuthOptions  = options.NewAuthOptions

	// AuthzWithOptions 是推荐的 API,适用于配置中心场景。
	AuthzWithOptions = mwauth.AuthzWithOptions
	NewAuthzOptions  = options.NewAuthzOptions
)
