package logger

import (
	"fmt"
	"sync"

	"github.com/kart-io/logger"
	"github.com/kart-io/logger/option"
	configpkg "github.com/kart-io/sentinel-kb/pkg/infra/config"
)

// loggerSettings 是支持热更新的那部分日志配置。
type loggerSettings struct {
	Level             string
	Format            string
	Development       bool
	DisableCaller     bool
	DisableStacktrace bool
	OutputPaths       []string
}

func settingsFrom(opts *Options) loggerSettings {
	return loggerSettings{
		Level:             opts.Level,
		Format:            opts.Format,
		Development:       opts.Development,
		DisableCaller:     opts.DisableCaller,
		DisableStacktrace: opts.DisableStacktrace,
		OutputPaths:       opts.OutputPaths,
	}
}

// applyTo 把设置同步到 Options 及其底层 LogOption。
func (s loggerSettings) applyTo(opts *Options) {
	opts.Level = s.Level
	opts.Format = s.Format
	opts.Development = s.Development
	opts.DisableCaller = s.DisableCaller
	opts.DisableStacktrace = s.DisableStacktrace
	opts.OutputPaths = s.OutputPaths

	if opts.LogOption == nil {
		opts.LogOption = option.DefaultLogOption()
	}
	opts.LogOption.Level = s.Level
	opts.LogOption.Format = s.Format
	opts.LogOption.Development = s.Development
	opts.LogOption.DisableCaller = s.DisableCaller
	opts.LogOption.DisableStacktrace = s.DisableStacktrace
	opts.LogOption.OutputPaths = s.OutputPaths
}

// ReloadableLogger 让日志配置支持运行时热更新:
// 级别、格式、输出路径、development 模式、caller/stacktrace 开关。
type ReloadableLogger struct {
	opts *Options
	mu   sync.RWMutex
}

// NewReloadableLogger creates a reloadable logger manager.
func NewReloadableLogger(opts *Options) *ReloadableLogger {
	return &ReloadableLogger{opts: opts}
}

// OnConfigChange implements the config.Reloadable interface.
// 新配置校验通过后原子生效;Init 失败时回滚到旧配置。
func (rl *ReloadableLogger) OnConfigChange(newConfig interface{}) error {
	newOpts, ok := newConfig.(*Options)
	if !ok {
		return fmt.Errorf("invalid config type: expected *logger.Options, got %T", newConfig)
	}
	if err := newOpts.Validate(); err != nil {
		return fmt.Errorf("invalid logger configuration: %w", err)
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	old := settingsFrom(rl.opts)
	settingsFrom(newOpts).applyTo(rl.opts)

	if err := rl.opts.Init(); err != nil {
		old.applyTo(rl.opts)
		return fmt.Errorf("failed to apply logger config: %w", err)
	}

	logger.Infof("Logger configuration reloaded: level=%s, format=%s, development=%v",
		rl.opts.Level, rl.opts.Format, rl.opts.Development)

	return nil
}

// GetOptions 返回当前配置的副本,读安全。
func (rl *ReloadableLogger) GetOptions() *Options {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	return &Options{
		LogOption: &option.LogOption{
			Engine:            rl.opts.Engine,
			Level:             rl.opts.Level,
			Format:            rl.opts.Format,
			OutputPaths:       append([]string(nil), rl.opts.OutputPaths...),
			Development:       rl.opts.Development,
			DisableCaller:     rl.opts.DisableCaller,
			DisableStacktrace: rl.opts.DisableStacktrace,
		},
	}
}

// RegisterWithWatcher 把自己订阅到配置监听器上,handlerID 需全局唯一。
func (rl *ReloadableLogger) RegisterWithWatcher(watcher *configpkg.Watcher, handlerID, configKey string) {
	subscriber := configpkg.NewReloadableSubscriber(rl, configKey, NewOptions())
	watcher.Subscribe(handlerID, subscriber.Handler())
}
