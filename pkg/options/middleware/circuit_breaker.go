package middleware

import (
	"errors"
	"time"

	"github.com/kart-io/sentinel-kb/pkg/options"
	"github.com/spf13/pflag"
)

func init() {
	Register(MiddlewareCircuitBreaker, func() MiddlewareConfig {
		return NewCircuitBreakerOptions()
	})
}

var _ MiddlewareConfig = (*CircuitBreakerOptions)(nil)

// CircuitBreakerOptions 定义熔断器中间件的配置。
// 是否启用由 middleware 数组控制,这里只放参数。
type CircuitBreakerOptions struct {
	// MaxFailures 触发熔断的最大失败次数。
	MaxFailures int `json:"max-failures" mapstructure:"max-failures"`

	// Timeout 熔断器打开后的超时时间,单位秒。
	Timeout int `json:"timeout" mapstructure:"timeout"`

	// HalfOpenMaxCalls 半开状态允许的最大探测次数。
	HalfOpenMaxCalls int `json:"half-open-max-calls" mapstructure:"half-open-max-calls"`

	// SkipPaths 是跳过熔断的路径列表,如健康检查和监控端点。
	SkipPaths []string `json:"skip-paths" mapstructure:"skip-paths"`

	// SkipPathPrefixes 是跳过熔断的路径前缀列表。
	SkipPathPrefixes []string `json:"skip-path-prefixes" mapstructure:"skip-path-prefixes"`

	// ErrorThreshold 是计为失败的最小 HTTP 状态码,
	// 500 表示只有 5xx 计入,400 则 4xx 也计入。
	ErrorThreshold int `json:"error-threshold" mapstructure:"error-threshold"`
}

// NewCircuitBreakerOptions 创建默认的熔断器选项。
func NewCircuitBreakerOptions() *CircuitBreakerOptions {
	return &CircuitBreakerOptions{
		MaxFailures:      5,
		Timeout:          60,
		HalfOpenMaxCalls: 1,
		SkipPaths:        []string{"/health", "/metrics"},
		SkipPathPrefixes: []string{},
		ErrorThreshold:   500,
	}
}

// AddFlags 为熔断器选项添加标志到指定的 FlagSet。
func (o *CircuitBreakerOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefix := options.Join(prefixes...) + "middleware.circuit-breaker."

	fs.IntVar(&o.MaxFailures, prefix+"max-failures", o.MaxFailures, "Maximum number of failures before opening circuit breaker.")
	fs.IntVar(&o.Timeout, prefix+"timeout", o.Timeout, "Circuit breaker timeout duration (seconds).")
	fs.IntVar(&o.HalfOpenMaxCalls, prefix+"half-open-max-calls", o.HalfOpenMaxCalls, "Maximum calls allowed in half-open state.")
	fs.StringSliceVar(&o.SkipPaths, prefix+"skip-paths", o.SkipPaths, "List of paths to skip circuit breaker.")
	fs.StringSliceVar(&o.SkipPathPrefixes, prefix+"skip-path-prefixes", o.SkipPathPrefixes, "List of path prefixes to skip circuit breaker.")
	fs.IntVar(&o.ErrorThreshold, prefix+"error-threshold", o.ErrorThreshold, "HTTP status code threshold for errors (>= this value triggers circuit breaker).")
}

// Validate 验证熔断器选项。
func (o *CircuitBreakerOptions) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.MaxFailures <= 0 {
		errs = append(errs, errors.New("max failures must be positive"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	if o.HalfOpenMaxCalls <= 0 {
		errs = append(errs, errors.New("half-open max calls must be positive"))
	}
	if o.ErrorThreshold < 400 || o.ErrorThreshold > 599 {
		errs = append(errs, errors.New("error threshold must be between 400 and 599"))
	}
	return errs
}

// Complete 完成熔断器选项的默认值设置。
func (o *CircuitBreakerOptions) Complete() error {
	return nil
}

// GetTimeout 返回超时时间的 time.Duration 表示。
func (o *CircuitBreakerOptions) GetTimeout() time.Duration {
	return time.Duration(o.Timeout) * time.Second
}
