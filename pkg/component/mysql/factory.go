package mysql

import (
	"context"
	"fmt"

	"github.com/kart-io/sentinel-kb/pkg/component/storage"
)

// Factory 按 storage.Factory 约定创建 MySQL 客户端,
// 便于依赖注入和在测试中替换。
type Factory struct {
	opts *Options
}

// NewFactory creates a new MySQL client factory with the provided options.
func NewFactory(opts *Options) *Factory {
	return &Factory{opts: opts}
}

// Create builds a client, connects, and verifies connectivity.
// The context bounds the whole creation process.
func (f *Factory) Create(ctx context.Context) (storage.Client, error) {
	if f.opts == nil {
		return nil, fmt.Errorf("mysql options cannot be nil")
	}
	client, err := NewWithContext(ctx, f.opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mysql client: %w", err)
	}
	return client, nil
}

// Options returns the MySQL options used by this factory.
func (f *Factory) Options() *Options {
	return f.opts
}

// Clone 复制一份配置,便于基于同一份基础配置做差异化调整。
func (f *Factory) Clone() *Factory {
	optsCopy := *f.opts
	return &Factory{opts: &optsCopy}
}
