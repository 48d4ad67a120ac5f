// Package config provides configuration management and hot reload capabilities.
package config

// Reloadable 由关心配置热更新的组件实现。
// OnConfigChange 应校验新配置并原子地应用,失败时返回错误,
// 由调用方决定是否保留旧配置继续运行。
type Reloadable interface {
	OnConfigChange(newConfig interface{}) error
}
