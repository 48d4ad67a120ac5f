package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/sentinel-kb/pkg/options"
	"github.com/spf13/pflag"
)

func init() {
	Register(MiddlewareRecovery, func() MiddlewareConfig {
		return NewRecoveryOptions()
	})
}

// 确保 RecoveryOptions 实现 MiddlewareConfig 接口。
var _ MiddlewareConfig = (*RecoveryOptions)(nil)

// RecoveryOptions 定义 recovery 中间件的配置选项。
type RecoveryOptions struct {
	// EnableStackTrace 控制是否在错误响应中返回堆栈跟踪。
	// 生产环境下即使开启也会被强制关闭，堆栈仅写入日志。
	EnableStackTrace bool `json:"enable-stack-trace" mapstructure:"enable-stack-trace"`

	// OnPanic 是可选的 panic 回调（运行时依赖，不可序列化）。
	OnPanic func(ctx *gin.Context, err interface{}, stack []byte) `json:"-" mapstructure:"-"`
}

// NewRecoveryOptions 创建默认的 recovery 选项。
func NewRecoveryOptions() *RecoveryOptions {
	return &RecoveryOptions{
		EnableStackTrace: false,
		OnPanic:          nil,
	}
}

// AddFlags 为 recovery 选项添加标志到指定的 FlagSet。
func (o *RecoveryOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefix := options.Join(prefixes...) + "middleware.recovery."

	fs.BoolVar(&o.EnableStackTrace, prefix+"enable-stack-trace", o.EnableStackTrace,
		"Enable stack trace in error responses (forced off in production).")
}

// Validate 验证 recovery 选项。
func (o *RecoveryOptions) Validate() []error {
	return nil
}

// Complete 完成 recovery 选项的默认值设置。
func (o *RecoveryOptions) Complete() error {
	return nil
}
