// Package logger provides context-aware structured logging capabilities.
package logger

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/kart-io/logger/core"
)

// ContextLogger pairs a core.Logger with the context its fields came from.
// Safe for concurrent use.
type ContextLogger struct {
	ctx    context.Context
	logger core.Logger
}

// NewContextLogger builds a ContextLogger carrying all logger fields stored
// in ctx.
func NewContextLogger(ctx context.Context) *ContextLogger {
	return &ContextLogger{ctx: ctx, logger: GetLogger(ctx)}
}

// WithContext rebinds the logger to a new context, picking up its fields.
func (cl *ContextLogger) WithContext(ctx context.Context) *ContextLogger {
	return &ContextLogger{ctx: ctx, logger: GetLogger(ctx)}
}

// WithFields returns a ContextLogger with extra fields appended.
func (cl *ContextLogger) WithFields(fields ...interface{}) *ContextLogger {
	return &ContextLogger{ctx: cl.ctx, logger: cl.logger.With(fields...)}
}

func (cl *ContextLogger) Debug(msg string)                          { cl.logger.Debug(msg) }
func (cl *ContextLogger) Debugf(format string, args ...interface{}) { cl.logger.Debugf(format, args...) }
func (cl *ContextLogger) Debugw(msg string, keysAndValues ...interface{}) {
	cl.logger.Debugw(msg, keysAndValues...)
}

func (cl *ContextLogger) Info(msg string)                          { cl.logger.Info(msg) }
func (cl *ContextLogger) Infof(format string, args ...interface{}) { cl.logger.Infof(format, args...) }
func (cl *ContextLogger) Infow(msg string, keysAndValues ...interface{}) {
	cl.logger.Infow(msg, keysAndValues...)
}

func (cl *ContextLogger) Warn(msg string)                          { cl.logger.Warn(msg) }
func (cl *ContextLogger) Warnf(format string, args ...interface{}) { cl.logger.Warnf(format, args...) }
func (cl *ContextLogger) Warnw(msg string, keysAndValues ...interface{}) {
	cl.logger.Warnw(msg, keysAndValues...)
}

func (cl *ContextLogger) Error(msg string)                          { cl.logger.Error(msg) }
func (cl *ContextLogger) Errorf(format string, args ...interface{}) { cl.logger.Errorf(format, args...) }
func (cl *ContextLogger) Errorw(msg string, keysAndValues ...interface{}) {
	cl.logger.Errorw(msg, keysAndValues...)
}

func (cl *ContextLogger) Fatal(msg string)                          { cl.logger.Fatal(msg) }
func (cl *ContextLogger) Fatalf(format string, args ...interface{}) { cl.logger.Fatalf(format, args...) }
func (cl *ContextLogger) Fatalw(msg string, keysAndValues ...interface{}) {
	cl.logger.Fatalw(msg, keysAndValues...)
}

// ErrorWithError logs err with its message and type as structured fields,
// optionally attaching a stack trace.
func (cl *ContextLogger) ErrorWithError(msg string, err error, captureStack bool) {
	fields := errorFields(err)
	if captureStack {
		// 跳过 captureStackTrace、ErrorWithError 和调用方
		fields = append(fields, "stack_trace", captureStackTrace(3))
	}
	cl.logger.Errorw(msg, fields...)
}

// Context returns the underlying context.
func (cl *ContextLogger) Context() context.Context { return cl.ctx }

// Logger returns the underlying core.Logger.
func (cl *ContextLogger) Logger() core.Logger { return cl.logger }

func errorFields(err error) []interface{} {
	return []interface{}{
		"error_message", err.Error(),
		"error_type", fmt.Sprintf("%T", err),
	}
}

func captureStackTrace(skip int) string {
	const maxDepth = 32
	var pcs [maxDepth]uintptr
	n := runtime.Callers(skip, pcs[:])
	if n == 0 {
		return ""
	}

	frames := runtime.CallersFrames(pcs[:n])
	var builder strings.Builder
	for {
		frame, more := frames.Next()
		if builder.Len() > 0 {
			builder.WriteString("\n")
		}
		fmt.Fprintf(&builder, "%s:%d %s", frame.File, frame.Line, frame.Function)
		if !more {
			break
		}
	}
	return builder.String()
}

// LogError logs err as structured fields against the context logger.
func LogError(ctx context.Context, msg string, err error, captureStack bool) {
	fields := errorFields(err)
	if captureStack {
		fields = append(fields, "stack_trace", captureStackTrace(2))
	}
	GetLogger(ctx).Errorw(msg, fields...)
}

// LogInfo logs an info message with context fields.
func LogInfo(ctx context.Context, msg string, keysAndValues ...interface{}) {
	GetLogger(ctx).Infow(msg, keysAndValues...)
}

// LogDebug logs a debug message with context fields.
func LogDebug(ctx context.Context, msg string, keysAndValues ...interface{}) {
	GetLogger(ctx).Debugw(msg, keysAndValues...)
}

// LogWarn logs a warning message with context fields.
func LogWarn(ctx context.Context, msg string, keysAndValues ...interface{}) {
	GetLogger(ctx).Warnw(msg, keysAndValues...)
}

// UnwrapError walks the Unwrap chain and collects every message, outermost
// first.
func UnwrapError(err error) []string {
	var messages []string
	for err != nil {
		messages = append(messages, err.Error())

		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = unwrapper.Unwrap()
	}
	return messages
}

// LogErrorChain logs err together with its full unwrap chain.
func LogErrorChain(ctx context.Context, msg string, err error, captureStack bool) {
	fields := append(errorFields(err), "error_chain", UnwrapError(err))
	if captureStack {
		fields = append(fields, "stack_trace", captureStackTrace(2))
	}
	GetLogger(ctx).Errorw(msg, fields...)
}

// ContextualLoggerFunc resolves a logger from a context. Keeping this as a
// named type gives call sites a consistent signature to accept.
type ContextualLoggerFunc func(ctx context.Context) core.Logger

// DefaultContextualLogger is the default resolver, backed by GetLogger.
var DefaultContextualLogger ContextualLoggerFunc = GetLogger

// SetGlobalContextualLogger swaps the resolver, ignoring nil. Mainly for
// tests.
func SetGlobalContextualLogger(fn ContextualLoggerFunc) {
	if fn != nil {
		DefaultContextualLogger = fn
	}
}

// Must panics when err is non-nil, otherwise returns the logger. For
// initialization chains.
func Must(log core.Logger, err error) core.Logger {
	if err != nil {
		panic(err)
	}
	return log
}

// MustInit initializes the global logger from opts and panics on failure.
func MustInit(opts *Options) {
	if err := opts.Init(); err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
}

// SyncGlobal flushes buffered log entries before shutdown. The underlying
// kart-io/logger package does not expose a flush hook yet, so this currently
// does nothing.
func SyncGlobal() error {
	return nil
}
