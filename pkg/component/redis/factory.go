package redis

import (
	"context"
	"fmt"

	"github.com/kart-io/sentinel-kb/pkg/component/storage"
	options "github.com/kart-io/sentinel-kb/pkg/options/redis"
)

// Options is re-exported from pkg/options/redis for convenience.
type Options = options.Options

// NewOptions is re-exported from pkg/options/redis for convenience.
var NewOptions = options.NewOptions

// Factory 按 storage.Factory 约定创建 Redis 客户端,
// 草稿暂存和任务队列共用同一份连接配置。
type Factory struct {
	opts *options.Options
}

// NewFactory creates a new Redis client factory with the provided options.
func NewFactory(opts *options.Options) *Factory {
	return &Factory{opts: opts}
}

// Create builds a client, connects, and verifies connectivity.
// The context bounds the whole creation process.
func (f *Factory) Create(ctx context.Context) (storage.Client, error) {
	if f.opts == nil {
		return nil, fmt.Errorf("redis options cannot be nil")
	}
	client, err := NewWithContext(ctx, f.opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}
	return client, nil
}

// Options returns the Redis options used by this factory.
func (f *Factory) Options() *options.Options {
	return f.opts
}

// Clone 复制一份配置,便于基于同一份基础配置做差异化调整。
func (f *Factory) Clone() *Factory {
	optsCopy := *f.opts
	return &Factory{opts: &optsCopy}
}

var _ storage.Factory = (*Factory)(nil)
