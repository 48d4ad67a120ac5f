// Package config provides configuration management and hot reload capabilities.
package config

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/kart-io/logger"
	"github.com/spf13/viper"
)

// ChangeHandler 在配置文件变更时被调用,返回 error 表示该订阅者
// 无法应用新配置。
type ChangeHandler func(v *viper.Viper) error

// Watcher 通过 viper + fsnotify 监听配置文件,按订阅 ID 分发变更通知。
// 所有方法并发安全。
type Watcher struct {
	viper    *viper.Viper
	handlers map[string]ChangeHandler
	mu       sync.RWMutex
	watching bool
}

// NewWatcher wraps an already initialized viper instance.
func NewWatcher(v *viper.Viper) *Watcher {
	return &Watcher{
		viper:    v,
		handlers: make(map[string]ChangeHandler),
	}
}

// Subscribe 注册变更处理器,同 ID 重复注册时后者覆盖前者。
func (w *Watcher) Subscribe(id string, handler ChangeHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[id] = handler
	logger.Infof("Config watcher: subscribed handler '%s'", id)
}

// Unsubscribe 按 ID 移除处理器,ID 不存在时静默返回。
func (w *Watcher) Unsubscribe(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.handlers[id]; exists {
		delete(w.handlers, id)
		logger.Infof("Config watcher: unsubscribed handler '%s'", id)
	}
}

// Start 开始监听配置文件。重复调用无额外效果。
// 变更时按订阅逐个通知,单个 handler 失败只记日志,不影响其他订阅者。
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return
	}
	w.watching = true
	w.mu.Unlock()

	w.viper.WatchConfig()
	w.viper.OnConfigChange(func(e fsnotify.Event) {
		logger.Infof("Config file changed: %s", e.Name)
		w.notifyAll()
	})

	logger.Info("Config watcher: started watching for configuration changes")
}

// notifyAll 拷贝一份订阅快照,不持锁调用各 handler。
func (w *Watcher) notifyAll() {
	w.mu.RLock()
	handlers := make(map[string]ChangeHandler, len(w.handlers))
	for id, handler := range w.handlers {
		handlers[id] = handler
	}
	w.mu.RUnlock()

	for id, handler := range handlers {
		if err := handler(w.viper); err != nil {
			logger.Errorf("Config watcher: handler '%s' failed: %v", id, err)
		} else {
			logger.Infof("Config watcher: handler '%s' processed change successfully", id)
		}
	}
}

// Stop 标记停止。viper 没有提供取消 WatchConfig 的手段,这里只翻转状态,
// 保持 API 对称。
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.watching {
		return
	}
	w.watching = false
	logger.Info("Config watcher: stopped")
}

// IsWatching returns whether the watcher is currently active.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.watching
}

// HandlerCount 返回当前订阅数,测试和诊断用。
func (w *Watcher) HandlerCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.handlers)
}

// ReloadableSubscriber 把 Reloadable 组件适配成 ChangeHandler:
// 变更时按 configKey 反序列化配置段,再交给组件的 OnConfigChange。
type ReloadableSubscriber struct {
	component Reloadable
	configKey string
	target    interface{}
}

// NewReloadableSubscriber creates a subscriber for a Reloadable component.
// configKey 是 viper 键路径（如 "server"、"log"）,target 是配置结构指针。
func NewReloadableSubscriber(component Reloadable, configKey string, target interface{}) *ReloadableSubscriber {
	return &ReloadableSubscriber{
		component: component,
		configKey: configKey,
		target:    target,
	}
}

// Handler returns a ChangeHandler suitable for Watcher.Subscribe.
func (rs *ReloadableSubscriber) Handler() ChangeHandler {
	return func(v *viper.Viper) error {
		if err := v.UnmarshalKey(rs.configKey, rs.target); err != nil {
			return fmt.Errorf("failed to unmarshal config key '%s': %w", rs.configKey, err)
		}
		if err := rs.component.OnConfigChange(rs.target); err != nil {
			return fmt.Errorf("component rejected config change: %w", err)
		}
		return nil
	}
}
