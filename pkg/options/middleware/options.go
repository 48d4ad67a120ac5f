// Package middleware provides middleware configuration options.
package middleware

import (
	"fmt"
	"sync"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ConfigError 配置校验错误，携带出错的字段名。
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("config error in field %q: %s", e.Field, e.Message)
}

// PathMatcher contains common path matching configuration.
type PathMatcher struct {
	SkipPaths        []string
	SkipPathPrefixes []string
}

// 中间件名称常量。
const (
	MiddlewareRecovery        = "recovery"
	MiddlewareRequestID       = "request-id"
	MiddlewareLogger          = "logger"
	MiddlewareCORS            = "cors"
	MiddlewareBodyLimit       = "body-limit"
	MiddlewareTimeout         = "timeout"
	MiddlewareHealth          = "health"
	MiddlewareMetrics         = "metrics"
	MiddlewarePprof           = "pprof"
	MiddlewareAuth            = "auth"
	MiddlewareAuthz           = "authz"
	MiddlewareVersion         = "version"
	MiddlewareCompression     = "compression"
	MiddlewareSecurityHeaders = "security-headers"
	MiddlewareRateLimit       = "rate-limit"
	MiddlewareCircuitBreaker  = "circuit-breaker"
)

// Options 中间件动态配置容器。
// 每个中间件的配置都放在 configs map 里，按名称索引；
// 一个中间件是否启用只看它在 map 中是否存在，不看配置里的开关字段。
type Options struct {
	// Middleware 指定中间件应用顺序，为空时走默认顺序。
	// 示例: ["recovery", "request-id", "logger", "cors", "timeout"]
	Middleware []string `json:"middleware" mapstructure:"middleware"`

	mu      sync.RWMutex
	configs map[string]MiddlewareConfig
}

// Option is a function that configures Options.
type Option func(*Options)

// NewOptions 创建默认中间件选项，预置 recovery、request-id、
// logger、health、metrics、version 六个中间件。
func NewOptions() *Options {
	o := &Options{
		configs: make(map[string]MiddlewareConfig),
	}

	for _, name := range []string{
		MiddlewareRecovery,
		MiddlewareRequestID,
		MiddlewareLogger,
		MiddlewareHealth,
		MiddlewareMetrics,
		MiddlewareVersion,
	} {
		if cfg, err := Create(name); err == nil {
			o.configs[name] = cfg
		}
	}

	return o
}

// LoadFromViper 从 viper 加载中间件配置。
// 先解析顺序数组，再按注册表逐个解析出现在配置文件里的中间件。
func (o *Options) LoadFromViper(v *viper.Viper) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.configs == nil {
		o.configs = make(map[string]MiddlewareConfig)
	}

	if v.IsSet("middleware") {
		if err := v.UnmarshalKey("middleware", &o.Middleware); err != nil {
			return fmt.Errorf("unmarshal middleware order: %w", err)
		}
	}

	for _, name := range ListRegistered() {
		if !v.IsSet(name) {
			continue
		}

		// 配置实例从注册表创建，保证拿到正确的具体类型。
		cfg, err := Create(name)
		if err != nil {
			return fmt.Errorf("create config for %s: %w", name, err)
		}
		if err := v.UnmarshalKey(name, cfg); err != nil {
			return fmt.Errorf("unmarshal config for %s: %w", name, err)
		}

		o.configs[name] = cfg
	}

	return nil
}

// SetConfig 设置指定中间件的配置，可用于挂接自定义中间件。
func (o *Options) SetConfig(name string, cfg MiddlewareConfig) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.configs == nil {
		o.configs = make(map[string]MiddlewareConfig)
	}
	o.configs[name] = cfg
}

// GetConfig 获取指定中间件的配置，未配置时返回 nil。
func (o *Options) GetConfig(name string) MiddlewareConfig {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.configs == nil {
		return nil
	}
	return o.configs[name]
}

// GetOrCreate 获取配置，不存在时从注册表新建一份。
func (o *Options) GetOrCreate(name string) MiddlewareConfig {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.configs == nil {
		o.configs = make(map[string]MiddlewareConfig)
	}

	if cfg, ok := o.configs[name]; ok {
		return cfg
	}

	cfg, err := Create(name)
	if err != nil {
		return nil
	}
	o.configs[name] = cfg
	return cfg
}

// DeleteConfig 删除配置，等同于禁用该中间件。
func (o *Options) DeleteConfig(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.configs != nil {
		delete(o.configs, name)
	}
}

// GetConfigTyped 取出配置并断言为具体类型，免去调用方手动断言。
func GetConfigTyped[T MiddlewareConfig](o *Options, name string) (T, bool) {
	cfg := o.GetConfig(name)
	if cfg == nil {
		var zero T
		return zero, false
	}
	typed, ok := cfg.(T)
	return typed, ok
}

// Validate 校验顺序数组和所有已配置中间件。
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	o.mu.RLock()
	defer o.mu.RUnlock()

	errs := o.validateMiddlewareLocked()

	for name, cfg := range o.configs {
		if cfg == nil {
			continue
		}
		for _, err := range cfg.Validate() {
			errs = append(errs, &ConfigError{Field: name, Message: err.Error()})
		}
	}

	return errs
}

// Complete 为所有已配置的中间件填充默认值。
func (o *Options) Complete() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.configs == nil {
		o.configs = make(map[string]MiddlewareConfig)
	}

	for name, cfg := range o.configs {
		if cfg == nil {
			continue
		}
		if err := cfg.Complete(); err != nil {
			return &ConfigError{Field: name, Message: err.Error()}
		}
	}

	return nil
}

// IsEnabled 检查中间件是否启用，即 configs 中存在且非 nil。
func (o *Options) IsEnabled(name string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.configs == nil {
		return false
	}

	cfg, ok := o.configs[name]
	return ok && cfg != nil
}

// GetEnabledMiddlewares 返回所有启用的中间件名称。
func (o *Options) GetEnabledMiddlewares() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.configs == nil {
		return nil
	}

	enabled := make([]string, 0, len(o.configs))
	for name, cfg := range o.configs {
		if cfg != nil {
			enabled = append(enabled, name)
		}
	}
	return enabled
}

// DefaultMiddlewareOrder 返回默认的中间件应用顺序。
func DefaultMiddlewareOrder() []string {
	return []string{
		MiddlewareRecovery,  // 最先注册，兜住后续所有 panic
		MiddlewareRequestID, // 后面的 logger 依赖它
		MiddlewareLogger,
		MiddlewareMetrics,
		MiddlewareCORS,
		MiddlewareTimeout,
	}
}

// GetMiddlewareOrder 返回中间件应用顺序，未配置时用默认顺序。
func (o *Options) GetMiddlewareOrder() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if len(o.Middleware) > 0 {
		return o.Middleware
	}
	return DefaultMiddlewareOrder()
}

// ValidateMiddleware 校验顺序数组的有效性。
func (o *Options) ValidateMiddleware() []error {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return o.validateMiddlewareLocked()
}

// validateMiddlewareLocked 调用前需持有锁。
func (o *Options) validateMiddlewareLocked() []error {
	if len(o.Middleware) == 0 {
		return nil
	}

	registered := make(map[string]bool)
	for _, name := range ListRegistered() {
		registered[name] = true
	}

	var errs []error
	seen := make(map[string]bool)
	for _, name := range o.Middleware {
		if !registered[name] {
			errs = append(errs, &ConfigError{
				Field:   "middleware",
				Message: "unknown middleware: " + name,
			})
		}
		if seen[name] {
			errs = append(errs, &ConfigError{
				Field:   "middleware",
				Message: "duplicate middleware in list: " + name,
			})
		}
		seen[name] = true
	}

	return errs
}

// AddFlags 注册所有已配置中间件的命令行标志。
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	for _, cfg := range o.configs {
		if cfg != nil {
			cfg.AddFlags(fs, prefixes...)
		}
	}
}

// ListConfigs 返回所有已配置的中间件名称。
func (o *Options) ListConfigs() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.configs == nil {
		return nil
	}

	names := make([]string, 0, len(o.configs))
	for name := range o.configs {
		names = append(names, name)
	}
	return names
}

// Configure 泛型配置修改器，T 必须是实现 MiddlewareConfig 的指针类型。
func Configure[T MiddlewareConfig](name string, modifier func(T)) Option {
	return func(o *Options) {
		cfg := o.GetOrCreate(name)
		if cfg == nil {
			return
		}
		if typed, ok := cfg.(T); ok {
			modifier(typed)
		}
	}
}

// Without 按名称禁用中间件。
func Without(name string) Option {
	return func(o *Options) {
		o.DeleteConfig(name)
	}
}

// enable 返回只做 GetOrCreate 的 Option，用于无参数中间件。
func enable(name string) Option {
	return func(o *Options) {
		_ = o.GetOrCreate(name)
	}
}

// WithRecovery 配置并启用 recovery 中间件。
func WithRecovery(enableStackTrace bool) Option {
	return Configure(MiddlewareRecovery, func(cfg *RecoveryOptions) {
		cfg.EnableStackTrace = enableStackTrace
	})
}

// WithoutRecovery 禁用 recovery 中间件。
func WithoutRecovery() Option { return Without(MiddlewareRecovery) }

// WithRequestID 配置并启用 request-id 中间件。
func WithRequestID(header string) Option {
	return Configure(MiddlewareRequestID, func(cfg *RequestIDOptions) {
		if header != "" {
			cfg.Header = header
		}
	})
}

// WithoutRequestID 禁用 request-id 中间件。
func WithoutRequestID() Option { return Without(MiddlewareRequestID) }

// WithLogger 配置并启用 logger 中间件。
func WithLogger(skipPaths ...string) Option {
	return Configure(MiddlewareLogger, func(cfg *LoggerOptions) {
		if len(skipPaths) > 0 {
			cfg.SkipPaths = skipPaths
		}
	})
}

// WithoutLogger 禁用 logger 中间件。
func WithoutLogger() Option { return Without(MiddlewareLogger) }

// WithCORS 配置并启用 CORS 中间件。
func WithCORS(origins ...string) Option {
	return Configure(MiddlewareCORS, func(cfg *CORSOptions) {
		if len(origins) > 0 {
			cfg.AllowOrigins = origins
		}
	})
}

// WithoutCORS 禁用 CORS 中间件。
func WithoutCORS() Option { return Without(MiddlewareCORS) }

// WithTimeout 配置并启用 timeout 中间件。
func WithTimeout(timeout time.Duration, skipPaths ...string) Option {
	return Configure(MiddlewareTimeout, func(cfg *TimeoutOptions) {
		if timeout > 0 {
			cfg.Timeout = timeout
		}
		if len(skipPaths) > 0 {
			cfg.SkipPaths = skipPaths
		}
	})
}

// WithoutTimeout 禁用 timeout 中间件。
func WithoutTimeout() Option { return Without(MiddlewareTimeout) }

// WithHealth 配置并启用 health 中间件。
func WithHealth(path, livenessPath, readinessPath string) Option {
	return Configure(MiddlewareHealth, func(cfg *HealthOptions) {
		if path != "" {
			cfg.Path = path
		}
		if livenessPath != "" {
			cfg.LivenessPath = livenessPath
		}
		if readinessPath != "" {
			cfg.ReadinessPath = readinessPath
		}
	})
}

// WithoutHealth 禁用 health 中间件。
func WithoutHealth() Option { return Without(MiddlewareHealth) }

// WithMetrics 配置并启用 metrics 中间件。
func WithMetrics(path, namespace, subsystem string) Option {
	return Configure(MiddlewareMetrics, func(cfg *MetricsOptions) {
		if path != "" {
			cfg.Path = path
		}
		if namespace != "" {
			cfg.Namespace = namespace
		}
		if subsystem != "" {
			cfg.Subsystem = subsystem
		}
	})
}

// WithoutMetrics 禁用 metrics 中间件。
func WithoutMetrics() Option { return Without(MiddlewareMetrics) }

// WithPprof 配置并启用 pprof 中间件。
func WithPprof(prefix string) Option {
	return Configure(MiddlewarePprof, func(cfg *PprofOptions) {
		if prefix != "" {
			cfg.Prefix = prefix
		}
	})
}

// WithoutPprof 禁用 pprof 中间件。
func WithoutPprof() Option { return Without(MiddlewarePprof) }

// WithAuth 配置并启用 auth 中间件。
func WithAuth(tokenLookup, authScheme string, skipPaths ...string) Option {
	return Configure(MiddlewareAuth, func(cfg *AuthOptions) {
		if tokenLookup != "" {
			cfg.TokenLookup = tokenLookup
		}
		if authScheme != "" {
			cfg.AuthScheme = authScheme
		}
		if len(skipPaths) > 0 {
			cfg.SkipPaths = skipPaths
		}
	})
}

// WithoutAuth 禁用 auth 中间件。
func WithoutAuth() Option { return Without(MiddlewareAuth) }

// WithAuthz 启用 authz 中间件。
func WithAuthz() Option { return enable(MiddlewareAuthz) }

// WithoutAuthz 禁用 authz 中间件。
func WithoutAuthz() Option { return Without(MiddlewareAuthz) }

// WithVersion 配置并启用 version 中间件。
func WithVersion(path string, hideDetails bool) Option {
	return Configure(MiddlewareVersion, func(cfg *VersionOptions) {
		if path != "" {
			cfg.Path = path
		}
		cfg.HideDetails = hideDetails
	})
}

// WithoutVersion 禁用 version 中间件。
func WithoutVersion() Option { return Without(MiddlewareVersion) }

// WithBodyLimit 配置并启用 body-limit 中间件。
func WithBodyLimit(maxSize int64, skipPaths ...string) Option {
	return Configure(MiddlewareBodyLimit, func(cfg *BodyLimitOptions) {
		if maxSize > 0 {
			cfg.MaxSize = maxSize
		}
		if len(skipPaths) > 0 {
			cfg.SkipPaths = skipPaths
		}
	})
}

// WithoutBodyLimit 禁用 body-limit 中间件。
func WithoutBodyLimit() Option { return Without(MiddlewareBodyLimit) }

// WithCompression 配置并启用 compression 中间件。
func WithCompression(level int, minSize int, types ...string) Option {
	return Configure(MiddlewareCompression, func(cfg *CompressionOptions) {
		if level >= -1 && level <= 9 {
			cfg.Level = level
		}
		if minSize >= 0 {
			cfg.MinSize = minSize
		}
		if len(types) > 0 {
			cfg.Types = types
		}
	})
}

// WithoutCompression 禁用 compression 中间件。
func WithoutCompression() Option { return Without(MiddlewareCompression) }

// WithSecurityHeaders 启用 security-headers 中间件。
func WithSecurityHeaders() Option { return enable(MiddlewareSecurityHeaders) }

// WithoutSecurityHeaders 禁用 security-headers 中间件。
func WithoutSecurityHeaders() Option { return Without(MiddlewareSecurityHeaders) }

// WithRateLimit 启用 rate-limit 中间件。
func WithRateLimit() Option { return enable(MiddlewareRateLimit) }

// WithoutRateLimit 禁用 rate-limit 中间件。
func WithoutRateLimit() Option { return Without(MiddlewareRateLimit) }

// WithCircuitBreaker 启用 circuit-breaker 中间件。
func WithCircuitBreaker() Option { return enable(MiddlewareCircuitBreaker) }

// WithoutCircuitBreaker 禁用 circuit-breaker 中间件。
func WithoutCircuitBreaker() Option { return Without(MiddlewareCircuitBreaker) }
