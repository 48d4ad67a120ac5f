package middleware

import (
	"github.com/kart-io/sentinel-kb/pkg/options"
	"github.com/spf13/pflag"
)

func init() {
	Register(MiddlewareLogger, func() MiddlewareConfig {
		return NewLoggerOptions()
	})
}

var _ MiddlewareConfig = (*LoggerOptions)(nil)

// LoggerOptions defines logger middleware options.
type LoggerOptions struct {
	SkipPaths           []string `json:"skip-paths" mapstructure:"skip-paths"`
	UseStructuredLogger bool     `json:"use-structured-logger" mapstructure:"use-structured-logger"`
	// Output 仅供测试注入,不参与序列化。
	Output func(format string, args ...interface{}) `json:"-" mapstructure:"-"`
}

// NewLoggerOptions 创建默认的日志中间件配置,探活和指标端点默认不记。
func NewLoggerOptions() *LoggerOptions {
	return &LoggerOptions{
		SkipPaths:           []string{"/health", "/ready", "/live", "/metrics"},
		UseStructuredLogger: true,
		Output:              nil,
	}
}

// AddFlags adds flags for logger options to the specified FlagSet.
func (o *LoggerOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefix := options.Join(prefixes...) + "middleware.logger."

	fs.StringSliceVar(&o.SkipPaths, prefix+"skip-paths", o.SkipPaths, "Paths to skip logging.")
	fs.BoolVar(&o.UseStructuredLogger, prefix+"use-structured-logger", o.UseStructuredLogger, "Use structured logger.")
}

// Validate validates the logger options.
func (o *LoggerOptions) Validate() []error {
	return nil
}

// Complete completes the logger options with defaults.
func (o *LoggerOptions) Complete() error {
	return nil
}
