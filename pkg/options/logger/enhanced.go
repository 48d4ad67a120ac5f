package logger

// EnhancedLoggerConfig configures the enhanced HTTP request logging middleware.
// 纯配置结构，不含运行时依赖，可直接从配置中心反序列化。
type EnhancedLoggerConfig struct {
	// SkipHealthChecks skips logging for common health check paths
	// (/health, /healthz, /livez, /readyz).
	SkipHealthChecks bool `json:"skip-health-checks" mapstructure:"skip-health-checks"`

	// SkipPaths lists additional request paths excluded from logging.
	SkipPaths []string `json:"skip-paths" mapstructure:"skip-paths"`

	// LogRequestBody enables request body capture in logs.
	LogRequestBody bool `json:"log-request-body" mapstructure:"log-request-body"`

	// LogResponseBody enables response body capture in logs.
	LogResponseBody bool `json:"log-response-body" mapstructure:"log-response-body"`

	// CaptureHeaders lists request headers to include in log output.
	// Sensitive headers are redacted before logging.
	CaptureHeaders []string `json:"capture-headers" mapstructure:"capture-headers"`

	// SensitiveHeaders lists field names redacted from captured bodies and headers.
	SensitiveHeaders []string `json:"sensitive-headers" mapstructure:"sensitive-headers"`

	// MaxBodyLogSize caps captured body size in bytes. Larger bodies are truncated.
	MaxBodyLogSize int `json:"max-body-log-size" mapstructure:"max-body-log-size"`
}

// NewEnhancedLoggerConfig creates an EnhancedLoggerConfig with defaults.
func NewEnhancedLoggerConfig() *EnhancedLoggerConfig {
	return &EnhancedLoggerConfig{
		SkipHealthChecks: true,
		SkipPaths:        []string{},
		LogRequestBody:   false,
		LogResponseBody:  false,
		CaptureHeaders:   []string{},
		SensitiveHeaders: []string{"authorization", "cookie", "password", "token", "secret"},
		MaxBodyLogSize:   4096,
	}
}
