package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClient 按 healthy 开关返回探测结果。
type fakeClient struct {
	name    string
	healthy bool
}

var _ Client = (*fakeClient)(nil)

func (f *fakeClient) Name() string { return f.name }

func (f *fakeClient) Ping(ctx context.Context) error {
	if !f.healthy {
		return context.DeadlineExceeded
	}
	return nil
}

func (f *fakeClient) Close() error { return nil }

func (f *fakeClient) Health() HealthChecker {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		return f.Ping(ctx)
	}
}

func TestHealthChecker(t *testing.T) {
	healthy := &fakeClient{name: "milvus-vectors", healthy: true}
	assert.NoError(t, healthy.Health()())

	broken := &fakeClient{name: "redis-drafts", healthy: false}
	assert.Error(t, broken.Health()())
}

func TestHealthStatusFields(t *testing.T) {
	status := HealthStatus{
		Name:    "mysql-metadata",
		Healthy: true,
		Latency: 10 * time.Millisecond,
	}

	assert.Equal(t, "mysql-metadata", status.Name)
	assert.True(t, status.Healthy)
	assert.Equal(t, 10*time.Millisecond, status.Latency)
	assert.NoError(t, status.Error)
}

type fakeFactory struct{}

var _ Factory = (*fakeFactory)(nil)

func (fakeFactory) Create(ctx context.Context) (Client, error) {
	return &fakeClient{name: "fake", healthy: true}, nil
}
