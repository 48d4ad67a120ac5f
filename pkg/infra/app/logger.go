// Package app provides logger integration for applications.
package app

import (
	"github.com/kart-io/logger"
	"github.com/kart-io/logger/core"
)

// Logger returns the global logger instance.
func Logger() core.Logger { return logger.Global() }

// 全局日志的便捷转发,应用代码可以直接 app.Infow(...) 而不必引 logger 包。

func Debug(args ...interface{}) { logger.Debug(args...) }
func Info(args ...interface{})  { logger.Info(args...) }
func Warn(args ...interface{})  { logger.Warn(args...) }
func Error(args ...interface{}) { logger.Error(args...) }
func Fatal(args ...interface{}) { logger.Fatal(args...) }

func Debugf(template string, args ...interface{}) { logger.Debugf(template, args...) }
func Infof(template string, args ...interface{})  { logger.Infof(template, args...) }
func Warnf(template string, args ...interface{})  { logger.Warnf(template, args...) }
func Errorf(template string, args ...interface{}) { logger.Errorf(template, args...) }
func Fatalf(template string, args ...interface{}) { logger.Fatalf(template, args...) }

func Debugw(msg string, keysAndValues ...interface{}) { logger.Debugw(msg, keysAndValues...) }
func Infow(msg string, keysAndValues ...interface{})  { logger.Infow(msg, keysAndValues...) }
func Warnw(msg string, keysAndValues ...interface{})  { logger.Warnw(msg, keysAndValues...) }
func Errorw(msg string, keysAndValues ...interface{}) { logger.Errorw(msg, keysAndValues...) }
func Fatalw(msg string, keysAndValues ...interface{}) { logger.Fatalw(msg, keysAndValues...) }

// With creates a child logger with the specified key-value pairs.
func With(keysAndValues ...interface{}) core.Logger {
	return logger.With(keysAndValues...)
}

// Flush flushes any buffered log entries.
func Flush() error {
	return logger.Flush()
}
