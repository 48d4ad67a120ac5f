package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SpanFromContext returns the current span from the context, or a
// non-recording span when none is active.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// StartSpan starts a new span and returns it with a context carrying it.
func StartSpan(ctx context.Context, tracerName, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, spanName, opts...)
}

// StartSpanWithKind starts a new span with the given span kind.
func StartSpanWithKind(ctx context.Context, tracerName, spanName string, kind trace.SpanKind, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return StartSpan(ctx, tracerName, spanName, append(opts, trace.WithSpanKind(kind))...)
}

// AddSpanAttributes adds attributes to the active span, no-op without one.
func AddSpanAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}

// AddSpanEvent adds an event to the active span.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// RecordError records err on the active span and marks the span as failed.
func RecordError(ctx context.Context, err error, opts ...trace.EventOption) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err, opts...)
	span.SetStatus(codes.Error, err.Error())
}

// RecordErrorWithStatus records err with a custom status message.
func RecordErrorWithStatus(ctx context.Context, err error, statusMsg string, opts ...trace.EventOption) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err, opts...)
	span.SetStatus(codes.Error, statusMsg)
}

// SetSpanStatus sets the status of the active span.
func SetSpanStatus(ctx context.Context, code codes.Code, description string) {
	trace.SpanFromContext(ctx).SetStatus(code, description)
}

// SetSpanOK marks the active span as successful.
func SetSpanOK(ctx context.Context) {
	trace.SpanFromContext(ctx).SetStatus(codes.Ok, "")
}

// SetSpanError marks the active span as failed with the given description.
func SetSpanError(ctx context.Context, description string) {
	trace.SpanFromContext(ctx).SetStatus(codes.Error, description)
}

// WithSpanContext copies the span from spanCtx onto parent. Useful when
// handing trace context to a goroutine with its own cancellation.
func WithSpanContext(parent, spanCtx context.Context) context.Context {
	return trace.ContextWithSpan(parent, trace.SpanFromContext(spanCtx))
}

// TraceIDFromContext extracts the trace ID, empty when no trace is active.
func TraceIDFromContext(ctx context.Context) string {
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}

// SpanIDFromContext extracts the span ID, empty when no span is active.
func SpanIDFromContext(ctx context.Context) string {
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		return sc.SpanID().String()
	}
	return ""
}

// IsRecording reports whether the span in the context is recording.
func IsRecording(ctx context.Context) bool {
	return trace.SpanFromContext(ctx).IsRecording()
}

// EndSpan ends the span, tolerating nil.
func EndSpan(span trace.Span) {
	if span != nil {
		span.End()
	}
}

// Attribute constructors mirroring the otel attribute package, so callers
// avoid a second import.

func String(key, value string) attribute.KeyValue  { return attribute.String(key, value) }
func Int(key string, value int) attribute.KeyValue { return attribute.Int(key, value) }
func Int64(key string, value int64) attribute.KeyValue {
	return attribute.Int64(key, value)
}
func Float64(key string, value float64) attribute.KeyValue {
	return attribute.Float64(key, value)
}
func Bool(key string, value bool) attribute.KeyValue { return attribute.Bool(key, value) }
func StringSlice(key string, value []string) attribute.KeyValue {
	return attribute.StringSlice(key, value)
}
func IntSlice(key string, value []int) attribute.KeyValue {
	return attribute.IntSlice(key, value)
}

// Any stringifies an arbitrary value into an attribute.
func Any(key string, value interface{}) attribute.KeyValue {
	return attribute.String(key, fmt.Sprint(value))
}

// Semantic attribute keys used across HTTP, gRPC and storage spans.
const (
	HTTPMethod       = "http.method"
	HTTPURL          = "http.url"
	HTTPTarget       = "http.target"
	HTTPHost         = "http.host"
	HTTPScheme       = "http.scheme"
	HTTPStatusCode   = "http.status_code"
	HTTPUserAgent    = "http.user_agent"
	HTTPRequestSize  = "http.request.size"
	HTTPResponseSize = "http.response.size"
	HTTPRoute        = "http.route"
	HTTPClientIP     = "http.client_ip"
	HTTPRequestID    = "http.request_id"
	HTTPRequestBody  = "http.request.body"
	HTTPResponseBody = "http.response.body"

	RPCSystem           = "rpc.system"
	RPCService          = "rpc.service"
	RPCMethod           = "rpc.method"
	RPCGRPCStatusCode   = "rpc.grpc.status_code"
	RPCGRPCRequestSize  = "rpc.grpc.request.size"
	RPCGRPCResponseSize = "rpc.grpc.response.size"

	DBSystem    = "db.system"
	DBName      = "db.name"
	DBStatement = "db.statement"
	DBOperation = "db.operation"
	DBUser      = "db.user"

	ErrorType    = "error.type"
	ErrorMessage = "error.message"
	ErrorStack   = "error.stack"

	UserID        = "user.id"
	UserEmail     = "user.email"
	TenantID      = "tenant.id"
	RequestID     = "request.id"
	CorrelationID = "correlation.id"
)
