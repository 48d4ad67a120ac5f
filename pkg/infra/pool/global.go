package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kart-io/logger"
)

// 进程级全局池管理器
var (
	globalMu  sync.Mutex
	globalMgr atomic.Pointer[Manager]
)

// GlobalConfig 全局池配置，每个标准池类型一项
type GlobalConfig struct {
	DefaultPool     *Config
	HealthCheckPool *Config
	BackgroundPool  *Config
	CallbackPool    *Config
	TimeoutPool     *Config
	// CustomPools 额外的命名池，按 DefaultPool 类型注册
	CustomPools map[string]*Config
}

// DefaultGlobalConfig 返回默认全局配置
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		DefaultPool:     PresetConfig(DefaultPool),
		HealthCheckPool: PresetConfig(HealthCheckPool),
		BackgroundPool:  PresetConfig(BackgroundPool),
		CallbackPool:    PresetConfig(CallbackPool),
		TimeoutPool:     PresetConfig(TimeoutPool),
		CustomPools:     make(map[string]*Config),
	}
}

// InitGlobal 按默认配置初始化全局池管理器，重复调用为空操作
func InitGlobal() error {
	return InitGlobalWithConfig(nil)
}

// InitGlobalWithConfig 使用自定义配置初始化全局池管理器
func InitGlobalWithConfig(config *GlobalConfig) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalMgr.Load() != nil {
		return nil
	}

	if config == nil {
		config = DefaultGlobalConfig()
	}

	manager := NewManager()

	// 标准池按固定顺序注册，保证失败时的清理行为可预期
	standard := []struct {
		typ Type
		cfg *Config
	}{
		{DefaultPool, config.DefaultPool},
		{HealthCheckPool, config.HealthCheckPool},
		{BackgroundPool, config.BackgroundPool},
		{CallbackPool, config.CallbackPool},
		{TimeoutPool, config.TimeoutPool},
	}

	for _, s := range standard {
		if s.cfg == nil {
			continue
		}
		if err := manager.RegisterWithType(s.typ, s.cfg); err != nil {
			manager.ReleaseAll()
			return err
		}
	}

	for name, cfg := range config.CustomPools {
		if err := manager.Register(name, DefaultPool, cfg); err != nil {
			manager.ReleaseAll()
			return err
		}
	}

	globalMgr.Store(manager)

	logger.Infow("全局池管理器初始化完成", "pools", manager.List())
	return nil
}

// GetGlobal 获取全局池管理器，未初始化时先按默认配置初始化
func GetGlobal() *Manager {
	if mgr := globalMgr.Load(); mgr != nil {
		return mgr
	}
	if err := InitGlobal(); err != nil {
		logger.Errorw("自动初始化全局池管理器失败", "error", err)
		return nil
	}
	return globalMgr.Load()
}

// MustGetGlobal 获取全局池管理器，未初始化时 panic
func MustGetGlobal() *Manager {
	mgr := GetGlobal()
	if mgr == nil {
		panic(ErrManagerNotInitialized)
	}
	return mgr
}

// CloseGlobal 关闭全局池管理器并释放所有池
func CloseGlobal() error {
	globalMu.Lock()
	defer globalMu.Unlock()

	mgr := globalMgr.Swap(nil)
	if mgr == nil {
		return nil
	}

	mgr.ReleaseAll()
	logger.Infow("全局池管理器已关闭")
	return nil
}

// CloseGlobalTimeout 关闭全局池管理器，等待在途任务最多 timeout
func CloseGlobalTimeout(timeout time.Duration) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	mgr := globalMgr.Swap(nil)
	if mgr == nil {
		return nil
	}

	err := mgr.ReleaseAllTimeout(timeout)
	logger.Infow("全局池管理器已关闭", "timeout", timeout)
	return err
}

// ResetGlobal 重置全局池管理器，仅用于测试
func ResetGlobal() {
	globalMu.Lock()
	defer globalMu.Unlock()

	if mgr := globalMgr.Swap(nil); mgr != nil {
		mgr.ReleaseAll()
	}
}

// Submit 提交任务到全局默认池
func Submit(task func()) error {
	mgr := GetGlobal()
	if mgr == nil {
		return ErrManagerNotInitialized
	}
	return mgr.SubmitToDefault(task)
}

// SubmitTo 提交任务到全局管理器中的指定池
func SubmitTo(poolName string, task func()) error {
	mgr := GetGlobal()
	if mgr == nil {
		return ErrManagerNotInitialized
	}
	return mgr.Submit(poolName, task)
}

// SubmitToType 提交任务到指定类型的标准池
func SubmitToType(poolType Type, task func()) error {
	return SubmitTo(string(poolType), task)
}

// SubmitWithContext 提交带上下文的任务到全局默认池
func SubmitWithContext(ctx context.Context, task func()) error {
	return SubmitToWithContext(ctx, string(DefaultPool), task)
}

// SubmitToWithContext 提交带上下文的任务到指定池
func SubmitToWithContext(ctx context.Context, poolName string, task func()) error {
	mgr := GetGlobal()
	if mgr == nil {
		return ErrManagerNotInitialized
	}
	return mgr.SubmitWithContext(ctx, poolName, task)
}

// Register registers a new pool with the global manager.
func Register(name string, typ Type, config *Config) error {
	mgr := GetGlobal()
	if mgr == nil {
		return ErrManagerNotInitialized
	}
	return mgr.Register(name, typ, config)
}

// Get 获取全局管理器中指定名称的池
func Get(name string) (*Pool, error) {
	mgr := GetGlobal()
	if mgr == nil {
		return nil, ErrManagerNotInitialized
	}
	return mgr.Get(name)
}

// GetByType 获取指定类型的标准池
func GetByType(poolType Type) (*Pool, error) {
	return Get(string(poolType))
}

// MustGet 获取池，失败时 panic
func MustGet(name string) *Pool {
	pool, err := Get(name)
	if err != nil {
		panic(err)
	}
	return pool
}

// StatsGlobal returns statistics for all pools.
func StatsGlobal() map[string]Info {
	mgr := GetGlobal()
	if mgr == nil {
		return nil
	}
	return mgr.Stats()
}

// Tune 动态调整指定池的容量
func Tune(name string, size int) error {
	mgr := GetGlobal()
	if mgr == nil {
		return ErrManagerNotInitialized
	}
	return mgr.Tune(name, size)
}
