// Package logger provides structured logging utilities with context propagation.
package logger

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/kart-io/logger"
	"github.com/kart-io/logger/core"
)

type contextKey int

const (
	loggerFieldsKey contextKey = iota
	contextLoggerKey
)

// loggerFields 上下文中累积的结构化日志字段
type loggerFields struct {
	fields map[string]interface{}
}

func newLoggerFields() *loggerFields {
	return &loggerFields{fields: make(map[string]interface{})}
}

// clone 拷贝一份，避免共享 context 间互相污染
func (lf *loggerFields) clone() *loggerFields {
	cp := newLoggerFields()
	for k, v := range lf.fields {
		cp.fields[k] = v
	}
	return cp
}

func (lf *loggerFields) set(key string, value interface{}) {
	lf.fields[key] = value
}

func (lf *loggerFields) toSlice() []interface{} {
	if len(lf.fields) == 0 {
		return nil
	}
	slice := make([]interface{}, 0, len(lf.fields)*2)
	for k, v := range lf.fields {
		slice = append(slice, k, v)
	}
	return slice
}

func getLoggerFields(ctx context.Context) *loggerFields {
	if lf, ok := ctx.Value(loggerFieldsKey).(*loggerFields); ok {
		return lf
	}
	return newLoggerFields()
}

func withField(ctx context.Context, key string, value interface{}) context.Context {
	lf := getLoggerFields(ctx).clone()
	lf.set(key, value)
	return context.WithValue(ctx, loggerFieldsKey, lf)
}

func withNonEmptyField(ctx context.Context, key, value string) context.Context {
	if value == "" {
		return ctx
	}
	return withField(ctx, key, value)
}

// WithRequestID adds request_id to the context logger fields.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withNonEmptyField(ctx, "request_id", requestID)
}

// WithTraceID adds trace_id manually, for callers outside OpenTelemetry.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return withNonEmptyField(ctx, "trace_id", traceID)
}

// WithSpanID adds span_id manually, for callers outside OpenTelemetry.
func WithSpanID(ctx context.Context, spanID string) context.Context {
	return withNonEmptyField(ctx, "span_id", spanID)
}

// WithUserID adds user_id to the context logger fields.
func WithUserID(ctx context.Context, userID string) context.Context {
	return withNonEmptyField(ctx, "user_id", userID)
}

// WithTenantID adds tenant_id to the context logger fields.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return withNonEmptyField(ctx, "tenant_id", tenantID)
}

// WithError adds error_message and error_type fields extracted from err.
func WithError(ctx context.Context, err error) context.Context {
	if err == nil {
		return ctx
	}
	return WithFields(ctx,
		"error_message", err.Error(),
		"error_type", fmt.Sprintf("%T", err))
}

// WithErrorCode adds an application error code field.
func WithErrorCode(ctx context.Context, code string) context.Context {
	return withNonEmptyField(ctx, "error_code", code)
}

// WithFields adds multiple fields given as key-value pairs. A trailing value
// without a key is dropped, as are non-string keys.
func WithFields(ctx context.Context, keysAndValues ...interface{}) context.Context {
	if len(keysAndValues) == 0 {
		return ctx
	}
	if len(keysAndValues)%2 != 0 {
		keysAndValues = keysAndValues[:len(keysAndValues)-1]
	}

	lf := getLoggerFields(ctx).clone()
	for i := 0; i < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			lf.set(key, keysAndValues[i+1])
		}
	}
	return context.WithValue(ctx, loggerFieldsKey, lf)
}

// ExtractOpenTelemetryFields copies trace_id and span_id from the active
// span into the logger fields. Middleware calls this once per request.
func ExtractOpenTelemetryFields(ctx context.Context) context.Context {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return ctx
	}

	spanCtx := span.SpanContext()
	if !spanCtx.IsValid() {
		return ctx
	}

	var pairs []interface{}
	if spanCtx.HasTraceID() {
		pairs = append(pairs, "trace_id", spanCtx.TraceID().String())
	}
	if spanCtx.HasSpanID() {
		pairs = append(pairs, "span_id", spanCtx.SpanID().String())
	}
	if spanCtx.IsSampled() {
		pairs = append(pairs, "trace_sampled", true)
	}
	return WithFields(ctx, pairs...)
}

// GetContextFields returns all logger fields from ctx as a key-value slice,
// nil when there are none.
func GetContextFields(ctx context.Context) []interface{} {
	return getLoggerFields(ctx).toSlice()
}

// GetLogger returns a logger carrying every field stored in ctx. A logger
// placed with WithLogger takes priority over the global one.
func GetLogger(ctx context.Context) core.Logger {
	if ctxLogger, ok := ctx.Value(contextLoggerKey).(core.Logger); ok {
		return ctxLogger
	}

	baseLogger := logger.Global()
	fields := GetContextFields(ctx)
	if len(fields) == 0 {
		return baseLogger
	}
	return baseLogger.With(fields...)
}

// WithLogger stores a pre-configured logger in ctx so it is reused for the
// rest of the request instead of rebuilding from fields.
func WithLogger(ctx context.Context, log core.Logger) context.Context {
	return context.WithValue(ctx, contextLoggerKey, log)
}
