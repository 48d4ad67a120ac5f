package middleware

import (
	"time"

	"github.com/kart-io/sentinel-kb/pkg/options"
	"github.com/spf13/pflag"
)

func init() {
	Register(MiddlewareTimeout, func() MiddlewareConfig {
		return NewTimeoutOptions()
	})
}

// 确保 TimeoutOptions 实现 MiddlewareConfig 接口。
var _ MiddlewareConfig = (*TimeoutOptions)(nil)

// TimeoutOptions 定义超时中间件的配置选项。
type TimeoutOptions struct {
	// Timeout 是请求处理的最长时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
	// SkipPaths 是跳过超时控制的路径列表。
	SkipPaths []string `json:"skip-paths" mapstructure:"skip-paths"`
}

// NewTimeoutOptions 创建默认的超时选项。
func NewTimeoutOptions() *TimeoutOptions {
	return &TimeoutOptions{
		Timeout:   30 * time.Second,
		SkipPaths: nil,
	}
}

// AddFlags 为超时选项添加标志到指定的 FlagSet。
func (o *TimeoutOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefix := options.Join(prefixes...) + "middleware.timeout."

	fs.DurationVar(&o.Timeout, prefix+"timeout", o.Timeout, "Request timeout duration.")
	fs.StringSliceVar(&o.SkipPaths, prefix+"skip-paths", o.SkipPaths, "Paths to skip timeout control.")
}

// Validate 验证超时选项。
func (o *TimeoutOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Timeout < 0 {
		errs = append(errs, &ConfigError{
			Field:   "middleware.timeout.timeout",
			Message: "timeout must not be negative",
		})
	}
	return errs
}

// Complete 完成超时选项的默认值设置。
func (o *TimeoutOptions) Complete() error {
	if o.Timeout == 0 {
		o.Timeout = 30 * time.Second
	}
	return nil
}
