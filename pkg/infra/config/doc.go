// Package config provides configuration management and hot reload capabilities.
//
// Watcher 基于 viper 监听配置文件变化,组件实现 Reloadable 后
// 通过 NewReloadableSubscriber 注册,配置变更时被依次通知:
//
//	v := viper.New()
//	v.SetConfigFile("configs/sentinel-kb.yaml")
//	_ = v.ReadInConfig()
//
//	watcher := config.NewWatcher(v)
//	reloadableLogger := logger.NewReloadableLogger(opts.Log)
//	reloadableLogger.RegisterWithWatcher(watcher, "logger", "log")
//	watcher.Start()
//
// 自定义组件只需实现 OnConfigChange,在其中校验新配置并原子应用:
//
//	func (s *MyService) OnConfigChange(newConfig interface{}) error {
//	    cfg, ok := newConfig.(*MyConfig)
//	    if !ok {
//	        return fmt.Errorf("invalid config type")
//	    }
//	    if err := cfg.Validate(); err != nil {
//	        return err
//	    }
//	    s.mu.Lock()
//	    defer s.mu.Unlock()
//	    s.config = *cfg
//	    return nil
//	}
//
// 所有 watcher 操作都是并发安全的。配置变更时 handler 按顺序串行调用,
// 某个 handler 返回错误只记日志,不影响其余 handler,
// 各组件自己负责在变更失败时保住上一份有效配置。
package config
