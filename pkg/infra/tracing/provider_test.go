package tracing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noopOptions returns enabled options backed by the noop exporter so
// tests never need a collector.
func noopOptions() *Options {
	return &Options{
		Enabled:        true,
		ServiceName:    "sentinel-kb-ingest",
		ServiceVersion: "1.0.0",
		ExporterType:   ExporterNoop,
		SamplerType:    SamplerAlwaysOn,
		BatchTimeout:   5 * time.Second,
		BatchMaxSize:   512,
		ExportTimeout:  30 * time.Second,
		MaxQueueSize:   2048,
	}
}

func TestNewOptions(t *testing.T) {
	opts := NewOptions()

	assert.False(t, opts.Enabled, "tracing is opt-in")
	assert.Equal(t, "sentinel-kb", opts.ServiceName)
	assert.Equal(t, ExporterOTLPGRPC, opts.ExporterType)
	assert.Equal(t, SamplerParentBased, opts.SamplerType)
	assert.Equal(t, 1.0, opts.SamplerRatio)
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Options)
		wantErr bool
	}{
		{"valid", func(o *Options) {}, false},
		{"disabled skips validation", func(o *Options) { *o = Options{Enabled: false} }, false},
		{"missing service name", func(o *Options) { o.ServiceName = "" }, true},
		{"otlp without endpoint", func(o *Options) { o.ExporterType = ExporterOTLPGRPC; o.Endpoint = "" }, true},
		{"unknown exporter", func(o *Options) { o.ExporterType = "statsd" }, true},
		{"unknown sampler", func(o *Options) { o.SamplerType = "coinflip" }, true},
		{"ratio out of range", func(o *Options) { o.SamplerType = SamplerRatio; o.SamplerRatio = 1.5 }, true},
		{"negative batch timeout", func(o *Options) { o.BatchTimeout = -time.Second }, true},
		{"stdout needs no endpoint", func(o *Options) { o.ExporterType = ExporterStdout }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := noopOptions()
			tt.mutate(opts)
			err := opts.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOptionsComplete(t *testing.T) {
	opts := &Options{}
	require.NoError(t, opts.Complete())
	assert.NotNil(t, opts.Headers)
	assert.NotNil(t, opts.ResourceAttributes)
}

func TestNewProviderDisabled(t *testing.T) {
	provider, err := NewProvider(&Options{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, provider)

	// Disabled tracing still hands out a usable tracer.
	assert.NotNil(t, provider.Tracer("ingest"))
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProviderNoop(t *testing.T) {
	provider, err := NewProvider(noopOptions())
	require.NoError(t, err)
	defer func() { _ = provider.Shutdown(context.Background()) }()

	_, span := provider.Tracer("ingest").Start(context.Background(), "chunk-document")
	require.NotNil(t, span)
	span.End()
}

func TestNewProviderStdout(t *testing.T) {
	opts := noopOptions()
	opts.ExporterType = ExporterStdout

	provider, err := NewProvider(opts)
	require.NoError(t, err)
	defer func() { _ = provider.Shutdown(context.Background()) }()

	_, span := provider.Tracer("ingest").Start(context.Background(), "embed-chunks")
	span.End()

	assert.NoError(t, provider.ForceFlush(context.Background()))
}

func TestProviderShutdownIdempotent(t *testing.T) {
	provider, err := NewProvider(noopOptions())
	require.NoError(t, err)

	_, span := provider.Tracer("ingest").Start(context.Background(), "upsert-vectors")
	span.End()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, provider.Shutdown(ctx))
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestNoopExporter(t *testing.T) {
	exporter := noopExporter{}
	ctx := context.Background()
	assert.NoError(t, exporter.ExportSpans(ctx, nil))
	assert.NoError(t, exporter.Shutdown(ctx))
}

func TestMustNewProvider(t *testing.T) {
	provider := MustNewProvider(noopOptions())
	require.NotNil(t, provider)
	defer func() { _ = provider.Shutdown(context.Background()) }()

	assert.Panics(t, func() {
		MustNewProvider(&Options{
			Enabled:      true,
			ExporterType: ExporterOTLPGRPC,
			SamplerType:  SamplerAlwaysOn,
		})
	})
}

func TestGlobalAccessors(t *testing.T) {
	assert.NotNil(t, GetGlobalTracerProvider())
	assert.NotNil(t, GetGlobalTextMapPropagator())
}

func BenchmarkTracerStartSpan(b *testing.B) {
	provider, err := NewProvider(noopOptions())
	if err != nil {
		b.Fatal(err)
	}
	defer func() { _ = provider.Shutdown(context.Background()) }()

	tracer := provider.Tracer("benchmark")
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, span := tracer.Start(ctx, "chunk-document")
		span.End()
	}
}
