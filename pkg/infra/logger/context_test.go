package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/kart-io/logger"
	"github.com/kart-io/logger/option"
)

// fieldsAsMap flattens the key/value slice stored on the context.
func fieldsAsMap(ctx context.Context) map[string]interface{} {
	fields := GetContextFields(ctx)
	m := make(map[string]interface{}, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok {
			m[key] = fields[i+1]
		}
	}
	return m
}

func TestWithRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-7f3a")
	assert.Equal(t, "req-7f3a", fieldsAsMap(ctx)["request_id"])

	// Empty values are not attached.
	empty := WithRequestID(context.Background(), "")
	_, ok := fieldsAsMap(empty)["request_id"]
	assert.False(t, ok)
}

func TestWithTraceID(t *testing.T) {
	ctx := WithTraceID(context.Background(), "trace-9c21")
	assert.Equal(t, "trace-9c21", fieldsAsMap(ctx)["trace_id"])

	empty := WithTraceID(context.Background(), "")
	_, ok := fieldsAsMap(empty)["trace_id"]
	assert.False(t, ok)
}

func TestWithUserAndTenantID(t *testing.T) {
	ctx := WithUserID(context.Background(), "svc-gateway")
	ctx = WithTenantID(ctx, "team-docs")

	m := fieldsAsMap(ctx)
	assert.Equal(t, "svc-gateway", m["user_id"])
	assert.Equal(t, "team-docs", m["tenant_id"])
}

func TestWithError(t *testing.T) {
	ctx := WithError(context.Background(), errors.New("page fetch timed out"))

	m := fieldsAsMap(ctx)
	assert.Equal(t, "page fetch timed out", m["error_message"])
	assert.Contains(t, m, "error_type")

	// nil error attaches nothing.
	assert.Empty(t, GetContextFields(WithError(context.Background(), nil)))
}

func TestWithFields(t *testing.T) {
	tests := []struct {
		name string
		kvs  []interface{}
		want map[string]interface{}
	}{
		{
			name: "even pairs",
			kvs:  []interface{}{"document_id", "doc-42", "pages", 50},
			want: map[string]interface{}{"document_id": "doc-42", "pages": 50},
		},
		{
			name: "odd trailing key dropped",
			kvs:  []interface{}{"document_id", "doc-42", "dangling"},
			want: map[string]interface{}{"document_id": "doc-42"},
		},
		{
			name: "no pairs",
			kvs:  nil,
			want: map[string]interface{}{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := WithFields(context.Background(), tt.kvs...)
			assert.Equal(t, tt.want, fieldsAsMap(ctx))
		})
	}
}

func TestExtractOpenTelemetryFields(t *testing.T) {
	tp := noop.NewTracerProvider()
	otel.SetTracerProvider(tp)
	tracer := tp.Tracer("sentinel-kb-test")

	// The noop tracer never produces valid span contexts, so nothing is
	// extracted either with or without a span.
	spanCtx, _ := tracer.Start(context.Background(), "ingest-document")
	for _, ctx := range []context.Context{spanCtx, context.Background()} {
		m := fieldsAsMap(ExtractOpenTelemetryFields(ctx))
		assert.NotContains(t, m, "trace_id")
		assert.NotContains(t, m, "span_id")
	}
}

func newTestGlobalLogger(t *testing.T) {
	t.Helper()
	opts := option.DefaultLogOption()
	opts.Level = "DEBUG"
	opts.Format = "json"
	log, err := logger.New(opts)
	require.NoError(t, err)
	logger.SetGlobal(log)
}

func TestGetLogger(t *testing.T) {
	newTestGlobalLogger(t)

	assert.NotNil(t, GetLogger(context.Background()))

	ctx := WithRequestID(context.Background(), "req-7f3a")
	ctx = WithUserID(ctx, "svc-gateway")
	assert.NotNil(t, GetLogger(ctx))
}

func TestContextLogger(t *testing.T) {
	newTestGlobalLogger(t)

	ctx := WithRequestID(context.Background(), "req-7f3a")
	cl := NewContextLogger(ctx)
	require.NotNil(t, cl)
	assert.Equal(t, ctx, cl.Context())

	other := WithRequestID(context.Background(), "req-9c21")
	assert.Equal(t, other, cl.WithContext(other).Context())

	assert.NotNil(t, cl.WithFields("document_id", "doc-42", "pages", 50))
}

func TestUnwrapError(t *testing.T) {
	assert.Empty(t, UnwrapError(nil))
	assert.Len(t, UnwrapError(errors.New("boom")), 1)
	// errors.Join yields one combined message.
	assert.Len(t, UnwrapError(errors.Join(errors.New("a"), errors.New("b"))), 1)
}

func TestLoggerFieldsClone(t *testing.T) {
	lf := newLoggerFields()
	lf.set("document_id", "doc-42")
	lf.set("pages", 50)

	clone := lf.clone()
	require.Len(t, clone.fields, len(lf.fields))

	clone.set("stage", "chunking")
	assert.NotEqual(t, len(lf.fields), len(clone.fields), "clone must not share storage")
}

func TestLoggerFieldsToSlice(t *testing.T) {
	lf := newLoggerFields()
	lf.set("document_id", "doc-42")
	lf.set("pages", 50)

	slice := lf.toSlice()
	require.Len(t, slice, 4)

	m := make(map[string]interface{})
	for i := 0; i < len(slice); i += 2 {
		m[slice[i].(string)] = slice[i+1]
	}
	assert.Equal(t, "doc-42", m["document_id"])
	assert.Equal(t, 50, m["pages"])
}

func BenchmarkWithRequestID(b *testing.B) {
	ctx := context.Background()
	for i := 0; i < b.N; i++ {
		_ = WithRequestID(ctx, "req-7f3a")
	}
}

func BenchmarkGetContextFields(b *testing.B) {
	ctx := WithRequestID(context.Background(), "req-7f3a")
	ctx = WithUserID(ctx, "svc-gateway")
	ctx = WithTraceID(ctx, "trace-9c21")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = GetContextFields(ctx)
	}
}
