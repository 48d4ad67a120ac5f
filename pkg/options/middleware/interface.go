// Package middleware provides middleware configuration options.
package middleware

import "github.com/spf13/pflag"

// Config 是所有中间件配置的公共接口,注册器按它统一驱动
// 校验、默认值填充和 flag 注册。
type Config interface {
	Validate() []error
	Complete() error
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}

// MiddlewareConfig 是 Config 的别名,保持向后兼容。
//
//nolint:revive // MiddlewareConfig 保持向后兼容性
type MiddlewareConfig = Config
