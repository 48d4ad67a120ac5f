package middleware

import (
	"fmt"
	"sort"
	"sync"
)

// Registry 集中保存三类可插拔组件:
// 配置工厂（创建默认配置实例）、中间件工厂（按配置创建 gin handler）
// 和路由注册器（health、metrics、pprof、version 这类独立端点）。
type Registry struct {
	mu               sync.RWMutex
	factories        map[string]func() MiddlewareConfig
	handlerFactories map[string]Factory
	routeRegistrars  map[string]RouteRegistrar
}

var globalRegistry = &Registry{
	factories:        make(map[string]func() MiddlewareConfig),
	handlerFactories: make(map[string]Factory),
	routeRegistrars:  make(map[string]RouteRegistrar),
}

// sortedKeys 返回按字母排序的键列表。
func sortedKeys[T any](m map[string]T) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register 注册中间件配置工厂,通常在各中间件文件的 init() 中调用。
// 重复注册同名中间件会 panic。
func Register(name string, factory func() MiddlewareConfig) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()

	if _, exists := globalRegistry.factories[name]; exists {
		panic(fmt.Sprintf("middleware %q already registered", name))
	}
	globalRegistry.factories[name] = factory
}

// MustRegister 与 Register 相同但允许覆盖,用于测试或替换默认实现。
func MustRegister(name string, factory func() MiddlewareConfig) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.factories[name] = factory
}

// RegisterFactory 注册中间件工厂,重复注册同名工厂会 panic。
func RegisterFactory(f Factory) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()

	name := f.Name()
	if _, exists := globalRegistry.handlerFactories[name]; exists {
		panic(fmt.Sprintf("middleware factory %q already registered", name))
	}
	globalRegistry.handlerFactories[name] = f
}

// MustRegisterFactory 与 RegisterFactory 相同但允许覆盖。
func MustRegisterFactory(f Factory) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.handlerFactories[f.Name()] = f
}

// RegisterRouteRegistrar 注册路由注册器,允许覆盖。
func RegisterRouteRegistrar(name string, r RouteRegistrar) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.routeRegistrars[name] = r
}

// Create 按名称创建一个新的配置实例。
func Create(name string) (MiddlewareConfig, error) {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	factory, ok := globalRegistry.factories[name]
	if !ok {
		return nil, fmt.Errorf("middleware %q not registered", name)
	}
	return factory(), nil
}

// CreateAll 为所有已注册的中间件创建配置实例。
func CreateAll() map[string]MiddlewareConfig {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	configs := make(map[string]MiddlewareConfig, len(globalRegistry.factories))
	for name, factory := range globalRegistry.factories {
		configs[name] = factory()
	}
	return configs
}

// GetFactory 获取中间件工厂。
func GetFactory(name string) (Factory, bool) {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	f, ok := globalRegistry.handlerFactories[name]
	return f, ok
}

// GetRouteRegistrar 获取路由注册器。
func GetRouteRegistrar(name string) (RouteRegistrar, bool) {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	r, ok := globalRegistry.routeRegistrars[name]
	return r, ok
}

// IsRegistered 检查配置工厂是否已注册。
func IsRegistered(name string) bool {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	_, ok := globalRegistry.factories[name]
	return ok
}

// IsFactoryRegistered 检查中间件工厂是否已注册。
func IsFactoryRegistered(name string) bool {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	_, ok := globalRegistry.handlerFactories[name]
	return ok
}

// ListRegistered 返回所有已注册的配置工厂名称。
func ListRegistered() []string {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	return sortedKeys(globalRegistry.factories)
}

// ListFactories 返回所有已注册的中间件工厂名称。
func ListFactories() []string {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	return sortedKeys(globalRegistry.handlerFactories)
}

// ResetRegistry 清空注册器,仅用于测试。
func ResetRegistry() {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()

	globalRegistry.factories = make(map[string]func() MiddlewareConfig)
	globalRegistry.handlerFactories = make(map[string]Factory)
	globalRegistry.routeRegistrars = make(map[string]RouteRegistrar)
}
