package middleware

import (
	"github.com/kart-io/sentinel-kb/pkg/options"
	"github.com/spf13/pflag"
)

func init() {
	Register(MiddlewareMetrics, func() MiddlewareConfig {
		return NewMetricsOptions()
	})
}

// 确保 MetricsOptions 实现 MiddlewareConfig 接口。
var _ MiddlewareConfig = (*MetricsOptions)(nil)

// MetricsOptions 定义指标采集中间件的配置选项。
type MetricsOptions struct {
	// Path 是 Prometheus 格式指标端点路径。
	Path string `json:"path" mapstructure:"path"`
	// Namespace 是指标名称前缀。
	Namespace string `json:"namespace" mapstructure:"namespace"`
	// Subsystem 是指标名称子系统段。
	Subsystem string `json:"subsystem" mapstructure:"subsystem"`
}

// NewMetricsOptions 创建默认的指标选项。
func NewMetricsOptions() *MetricsOptions {
	return &MetricsOptions{
		Path:      "/metrics",
		Namespace: "sentinel",
		Subsystem: "http",
	}
}

// AddFlags 为指标选项添加标志到指定的 FlagSet。
func (o *MetricsOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefix := options.Join(prefixes...) + "middleware.metrics."

	fs.StringVar(&o.Path, prefix+"path", o.Path, "Metrics endpoint path.")
	fs.StringVar(&o.Namespace, prefix+"namespace", o.Namespace, "Metrics namespace.")
	fs.StringVar(&o.Subsystem, prefix+"subsystem", o.Subsystem, "Metrics subsystem.")
}

// Validate 验证指标选项。
func (o *MetricsOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Path == "" {
		errs = append(errs, &ConfigError{Field: "middleware.metrics.path", Message: "metrics path is required"})
	}
	if o.Namespace == "" {
		errs = append(errs, &ConfigError{Field: "middleware.metrics.namespace", Message: "metrics namespace is required"})
	}
	if o.Subsystem == "" {
		errs = append(errs, &ConfigError{Field: "middleware.metrics.subsystem", Message: "metrics subsystem is required"})
	}
	return errs
}

// Complete 完成指标选项的默认值设置。
func (o *MetricsOptions) Complete() error {
	if o.Path == "" {
		o.Path = "/metrics"
	}
	return nil
}
