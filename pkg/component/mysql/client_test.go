package mysql

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kbOptions() *Options {
	opts := NewOptions()
	opts.Host = "localhost"
	opts.Database = "sentinel_kb"
	return opts
}

func TestValidateOptions(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Options)
		wantErr bool
	}{
		{"valid options", func(*Options) {}, false},
		{"empty host", func(o *Options) { o.Host = "" }, true},
		{"empty database", func(o *Options) { o.Database = "" }, true},
		{"empty username", func(o *Options) { o.Username = "" }, true},
		{"port too low", func(o *Options) { o.Port = 0 }, true},
		{"port too high", func(o *Options) { o.Port = 65536 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := kbOptions()
			tt.mutate(opts)

			err := validateOptions(opts)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	bad := kbOptions()
	bad.Host = ""
	_, err = New(bad)
	assert.Error(t, err)
}

// 无 MySQL 实例时只验证 API 形状,连接失败是预期行为。
func TestNewWithContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := NewWithContext(ctx, kbOptions()); err != nil {
		t.Logf("MySQL unavailable: %v", err)
	}
}

func TestClientName(t *testing.T) {
	assert.Equal(t, "mysql", (&Client{}).Name())
}

func TestFactory(t *testing.T) {
	opts := kbOptions()
	factory := NewFactory(opts)
	require.NotNil(t, factory)
	assert.Same(t, opts, factory.Options())
}

func TestFactoryClone(t *testing.T) {
	factory := NewFactory(kbOptions())
	cloned := factory.Clone()

	require.NotSame(t, factory, cloned)
	require.NotSame(t, factory.Options(), cloned.Options())

	// 克隆后的配置互不影响。
	cloned.Options().Database = "sentinel_kb_shadow"
	assert.Equal(t, "sentinel_kb", factory.Options().Database)
}

func TestFactoryCreateNilOptions(t *testing.T) {
	_, err := NewFactory(nil).Create(context.Background())
	assert.Error(t, err)
}
