package middleware

import (
	"fmt"
	"sync"
	"time"

	"github.com/kart-io/logger"
	configpkg "github.com/kart-io/sentinel-kb/pkg/infra/config"
	mwopts "github.com/kart-io/sentinel-kb/pkg/options/middleware"
)

// ReloadableMiddleware wraps middleware options with hot reload capability.
// It maintains thread-safe access to middleware configuration and can apply
// configuration changes at runtime without service restart.
//
// Supported hot-reloadable configurations:
//   - CORS settings (origins, methods, headers, credentials, max age)
//   - Timeout duration and skip paths
//   - Request ID header
//   - Logger skip paths
//   - Recovery stack trace settings
//   - Health, metrics and pprof endpoint settings
//
// Note: Some middleware configurations cannot be hot-reloaded as they require
// server restart or middleware chain reconstruction (e.g., the middleware
// order array).
type ReloadableMiddleware struct {
	opts *Options
	mu   sync.RWMutex
	// Callbacks for components that need notification of config changes
	onTimeoutChange func(time.Duration, []string) error
	onCORSChange    func(*CORSOptions) error
}

// NewReloadableMiddleware creates a new reloadable middleware manager.
func NewReloadableMiddleware(opts *Options) *ReloadableMiddleware {
	return &ReloadableMiddleware{
		opts: opts,
	}
}

// OnConfigChange implements the config.Reloadable interface.
// It validates and applies new middleware configuration atomically.
func (rm *ReloadableMiddleware) OnConfigChange(newConfig interface{}) error {
	newOpts, ok := newConfig.(*Options)
	if !ok {
		return fmt.Errorf("invalid config type: expected *middleware.Options, got %T", newConfig)
	}

	// Validate new configuration
	if errs := newOpts.Validate(); len(errs) > 0 {
		return fmt.Errorf("invalid middleware configuration: %v", errs)
	}

	// Acquire write lock
	rm.mu.Lock()
	defer rm.mu.Unlock()

	// Track what changed for logging
	changes := []string{}

	// Update timeout configuration if changed
	if cur, ok := mwopts.GetConfigTyped[*mwopts.TimeoutOptions](rm.opts, MiddlewareTimeout); ok {
		if next, ok := mwopts.GetConfigTyped[*mwopts.TimeoutOptions](newOpts, MiddlewareTimeout); ok {
			if cur.Timeout != next.Timeout {
				changes = append(changes, fmt.Sprintf("timeout: %v -> %v", cur.Timeout, next.Timeout))

				// Call callback if registered
				if rm.onTimeoutChange != nil {
					if err := rm.onTimeoutChange(next.Timeout, next.SkipPaths); err != nil {
						return fmt.Errorf("failed to apply timeout change: %w", err)
					}
				}
			}

			cur.Timeout = next.Timeout
			cur.SkipPaths = append([]string(nil), next.SkipPaths...)
		}
	}

	// Update CORS configuration if changed
	if cur, ok := mwopts.GetConfigTyped[*mwopts.CORSOptions](rm.opts, MiddlewareCORS); ok {
		if next, ok := mwopts.GetConfigTyped[*mwopts.CORSOptions](newOpts, MiddlewareCORS); ok {
			corsChanged := false

			if !stringSlicesEqual(cur.AllowOrigins, next.AllowOrigins) {
				changes = append(changes, "cors.allow-origins")
				corsChanged = true
			}
			if !stringSlicesEqual(cur.AllowMethods, next.AllowMethods) {
				changes = append(changes, "cors.allow-methods")
				corsChanged = true
			}
			if !stringSlicesEqual(cur.AllowHeaders, next.AllowHeaders) {
				changes = append(changes, "cors.allow-headers")
				corsChanged = true
			}
			if cur.AllowCredentials != next.AllowCredentials {
				changes = append(changes, "cors.allow-credentials")
				corsChanged = true
			}
			if cur.MaxAge != next.MaxAge {
				changes = append(changes, "cors.max-age")
				corsChanged = true
			}

			if corsChanged {
				// Call callback if registered
				if rm.onCORSChange != nil {
					if err := rm.onCORSChange(next); err != nil {
						return fmt.Errorf("failed to apply CORS change: %w", err)
					}
				}

				rm.opts.SetConfig(MiddlewareCORS, next)
			}
		}
	}

	// Update Request ID header
	if cur, ok := mwopts.GetConfigTyped[*mwopts.RequestIDOptions](rm.opts, MiddlewareRequestID); ok {
		if next, ok := mwopts.GetConfigTyped[*mwopts.RequestIDOptions](newOpts, MiddlewareRequestID); ok {
			if cur.Header != next.Header {
				changes = append(changes, fmt.Sprintf("request-id.header: %s -> %s", cur.Header, next.Header))
				cur.Header = next.Header
			}
			if cur.GeneratorType != next.GeneratorType {
				changes = append(changes, "request-id.generator")
				cur.GeneratorType = next.GeneratorType
			}
		}
	}

	// Update Logger configuration
	if cur, ok := mwopts.GetConfigTyped[*mwopts.LoggerOptions](rm.opts, MiddlewareLogger); ok {
		if next, ok := mwopts.GetConfigTyped[*mwopts.LoggerOptions](newOpts, MiddlewareLogger); ok {
			if !stringSlicesEqual(cur.SkipPaths, next.SkipPaths) {
				changes = append(changes, "logger.skip-paths")
				cur.SkipPaths = append([]string(nil), next.SkipPaths...)
			}
			if cur.UseStructuredLogger != next.UseStructuredLogger {
				changes = append(changes, fmt.Sprintf("logger.use-structured-logger: %v -> %v",
					cur.UseStructuredLogger, next.UseStructuredLogger))
				cur.UseStructuredLogger = next.UseStructuredLogger
			}
		}
	}

	// Update Recovery stack trace setting
	if cur, ok := mwopts.GetConfigTyped[*mwopts.RecoveryOptions](rm.opts, MiddlewareRecovery); ok {
		if next, ok := mwopts.GetConfigTyped[*mwopts.RecoveryOptions](newOpts, MiddlewareRecovery); ok {
			if cur.EnableStackTrace != next.EnableStackTrace {
				changes = append(changes, fmt.Sprintf("recovery.enable-stack-trace: %v -> %v",
					cur.EnableStackTrace, next.EnableStackTrace))
				cur.EnableStackTrace = next.EnableStackTrace
			}
		}
	}

	// Update Health paths
	if cur, ok := mwopts.GetConfigTyped[*mwopts.HealthOptions](rm.opts, MiddlewareHealth); ok {
		if next, ok := mwopts.GetConfigTyped[*mwopts.HealthOptions](newOpts, MiddlewareHealth); ok {
			if cur.Path != next.Path {
				changes = append(changes, fmt.Sprintf("health.path: %s -> %s", cur.Path, next.Path))
				cur.Path = next.Path
			}
			if cur.LivenessPath != next.LivenessPath {
				changes = append(changes, "health.liveness-path")
				cur.LivenessPath = next.LivenessPath
			}
			if cur.ReadinessPath != next.ReadinessPath {
				changes = append(changes, "health.readiness-path")
				cur.ReadinessPath = next.ReadinessPath
			}
		}
	}

	// Update Metrics configuration
	if cur, ok := mwopts.GetConfigTyped[*mwopts.MetricsOptions](rm.opts, MiddlewareMetrics); ok {
		if next, ok := mwopts.GetConfigTyped[*mwopts.MetricsOptions](newOpts, MiddlewareMetrics); ok {
			if cur.Path != next.Path {
				changes = append(changes, "metrics.path")
				cur.Path = next.Path
			}
			if cur.Namespace != next.Namespace {
				changes = append(changes, "metrics.namespace")
				cur.Namespace = next.Namespace
			}
			if cur.Subsystem != next.Subsystem {
				changes = append(changes, "metrics.subsystem")
				cur.Subsystem = next.Subsystem
			}
		}
	}

	// Update Pprof configuration
	if cur, ok := mwopts.GetConfigTyped[*mwopts.PprofOptions](rm.opts, MiddlewarePprof); ok {
		if next, ok := mwopts.GetConfigTyped[*mwopts.PprofOptions](newOpts, MiddlewarePprof); ok {
			if cur.BlockProfileRate != next.BlockProfileRate {
				changes = append(changes, "pprof.block-profile-rate")
				cur.BlockProfileRate = next.BlockProfileRate
			}
			if cur.MutexProfileFraction != next.MutexProfileFraction {
				changes = append(changes, "pprof.mutex-profile-fraction")
				cur.MutexProfileFraction = next.MutexProfileFraction
			}
		}
	}

	if len(changes) > 0 {
		logger.Infof("Middleware configuration reloaded: %v", changes)
	} else {
		logger.Debug("Middleware configuration unchanged")
	}

	return nil
}

// GetOptions returns a copy of the current middleware options.
// This is thread-safe for reading.
func (rm *ReloadableMiddleware) GetOptions() *Options {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	// Return a deep copy to prevent external modifications
	opts := &Options{
		Middleware: append([]string(nil), rm.opts.Middleware...),
	}

	for _, name := range rm.opts.ListConfigs() {
		opts.SetConfig(name, cloneConfig(name, rm.opts.GetConfig(name)))
	}

	return opts
}

// cloneConfig copies a middleware config so callers cannot mutate live state.
// Unknown config types are returned as-is.
func cloneConfig(name string, cfg mwopts.MiddlewareConfig) mwopts.MiddlewareConfig {
	switch c := cfg.(type) {
	case *mwopts.RecoveryOptions:
		clone := *c
		return &clone
	case *mwopts.RequestIDOptions:
		clone := *c
		return &clone
	case *mwopts.LoggerOptions:
		clone := *c
		clone.SkipPaths = append([]string(nil), c.SkipPaths...)
		return &clone
	case *mwopts.CORSOptions:
		clone := *c
		clone.AllowOrigins = append([]string(nil), c.AllowOrigins...)
		clone.AllowMethods = append([]string(nil), c.AllowMethods...)
		clone.AllowHeaders = append([]string(nil), c.AllowHeaders...)
		clone.ExposeHeaders = append([]string(nil), c.ExposeHeaders...)
		return &clone
	case *mwopts.TimeoutOptions:
		clone := *c
		clone.SkipPaths = append([]string(nil), c.SkipPaths...)
		return &clone
	case *mwopts.HealthOptions:
		clone := *c
		return &clone
	case *mwopts.MetricsOptions:
		clone := *c
		return &clone
	case *mwopts.PprofOptions:
		clone := *c
		return &clone
	default:
		logger.Debugf("no clone strategy for middleware config %q, sharing instance", name)
		return cfg
	}
}

// SetTimeoutChangeCallback registers a callback to be invoked when timeout configuration changes.
// This allows the actual middleware implementation to update its behavior.
func (rm *ReloadableMiddleware) SetTimeoutChangeCallback(fn func(time.Duration, []string) error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.onTimeoutChange = fn
}

// SetCORSChangeCallback registers a callback to be invoked when CORS configuration changes.
// This allows the actual middleware implementation to update its behavior.
func (rm *ReloadableMiddleware) SetCORSChangeCallback(fn func(*CORSOptions) error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.onCORSChange = fn
}

// RegisterWithWatcher registers this reloadable middleware with a configuration watcher.
// The handlerID should be unique across all registered handlers.
func (rm *ReloadableMiddleware) RegisterWithWatcher(watcher *configpkg.Watcher, handlerID, configKey string) {
	target := NewOptions()
	subscriber := configpkg.NewReloadableSubscriber(rm, configKey, target)
	watcher.Subscribe(handlerID, subscriber.Handler())
}

// stringSlicesEqual compares two string slices for equality.
func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
