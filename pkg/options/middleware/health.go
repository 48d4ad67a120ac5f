package middleware

import (
	"github.com/kart-io/sentinel-kb/pkg/options"
	"github.com/spf13/pflag"
)

func init() {
	Register(MiddlewareHealth, func() MiddlewareConfig {
		return NewHealthOptions()
	})
}

// 确保 HealthOptions 实现 MiddlewareConfig 接口。
var _ MiddlewareConfig = (*HealthOptions)(nil)

// HealthOptions 定义健康检查端点的配置选项。
type HealthOptions struct {
	// Path 是综合健康检查端点路径。
	Path string `json:"path" mapstructure:"path"`
	// LivenessPath 是存活探针路径。
	LivenessPath string `json:"liveness-path" mapstructure:"liveness-path"`
	// ReadinessPath 是就绪探针路径。
	ReadinessPath string `json:"readiness-path" mapstructure:"readiness-path"`

	// Checker 是可选的就绪检查函数（运行时依赖，不可序列化）。
	// 返回非 nil 错误时就绪探针返回 503。
	Checker func() error `json:"-" mapstructure:"-"`
}

// NewHealthOptions 创建默认的健康检查选项。
func NewHealthOptions() *HealthOptions {
	return &HealthOptions{
		Path:          "/health",
		LivenessPath:  "/live",
		ReadinessPath: "/ready",
	}
}

// AddFlags 为健康检查选项添加标志到指定的 FlagSet。
func (o *HealthOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefix := options.Join(prefixes...) + "middleware.health."

	fs.StringVar(&o.Path, prefix+"path", o.Path, "Health check endpoint path.")
	fs.StringVar(&o.LivenessPath, prefix+"liveness-path", o.LivenessPath, "Liveness probe path.")
	fs.StringVar(&o.ReadinessPath, prefix+"readiness-path", o.ReadinessPath, "Readiness probe path.")
}

// Validate 验证健康检查选项。
func (o *HealthOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Path == "" && o.LivenessPath == "" && o.ReadinessPath == "" {
		errs = append(errs, &ConfigError{
			Field:   "middleware.health",
			Message: "at least one health check path is required",
		})
	}
	return errs
}

// Complete 完成健康检查选项的默认值设置。
func (o *HealthOptions) Complete() error {
	return nil
}
