package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/sentinel-kb/pkg/component/storage"
)

// HealthStats 一次健康检查的详细结果,包含连接池状态
type HealthStats struct {
	Healthy   bool          `json:"healthy"`
	Latency   time.Duration `json:"latency"`
	PoolStats *PoolStats    `json:"pool_stats,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// PoolStats mirrors go-redis connection pool counters.
type PoolStats struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"total_conns"`
	IdleConns  uint32 `json:"idle_conns"`
	StaleConns uint32 `json:"stale_conns"`
}

// HealthWithStats pings Redis and, when healthy, attaches connection pool
// statistics to the result.
func (c *Client) HealthWithStats(ctx context.Context) *HealthStats {
	stats := &HealthStats{}

	start := time.Now()
	err := c.Ping(ctx)
	stats.Latency = time.Since(start)

	if err != nil {
		stats.Error = err.Error()
		return stats
	}
	stats.Healthy = true

	pool := c.client.PoolStats()
	stats.PoolStats = &PoolStats{
		Hits:       pool.Hits,
		Misses:     pool.Misses,
		Timeouts:   pool.Timeouts,
		TotalConns: pool.TotalConns,
		IdleConns:  pool.IdleConns,
		StaleConns: pool.StaleConns,
	}

	return stats
}

// HealthStatus adapts a ping into the storage.Manager health format.
func (c *Client) HealthStatus(ctx context.Context) storage.HealthStatus {
	start := time.Now()
	err := c.Ping(ctx)

	return storage.HealthStatus{
		Name:    c.Name(),
		Healthy: err == nil,
		Latency: time.Since(start),
		Error:   err,
	}
}

// CheckHealth pings with a 5 second default timeout.
func (c *Client) CheckHealth() error {
	return c.HealthWithTimeout(5 * time.Second)
}

// IsHealthy reports whether the connection passes a default health check.
func (c *Client) IsHealthy() bool {
	return c.CheckHealth() == nil
}

// HealthWithTimeout pings with a caller-supplied timeout.
func (c *Client) HealthWithTimeout(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return c.Ping(ctx)
}

// Info returns sections of the Redis INFO command output.
func (c *Client) Info(ctx context.Context, sections ...string) (string, error) {
	result, err := c.client.Info(ctx, sections...).Result()
	if err != nil {
		return "", fmt.Errorf("failed to get redis info: %w", err)
	}
	return result, nil
}

// DBSize returns the number of keys in the current database.
func (c *Client) DBSize(ctx context.Context) (int64, error) {
	return c.client.DBSize(ctx).Result()
}
