package mysql

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/sentinel-kb/pkg/component/storage"
)

// CheckHealth pings MySQL, measures latency, and inspects the connection
// pool for signs of exhaustion.
func CheckHealth(client *Client, timeout time.Duration) storage.HealthStatus {
	status := storage.HealthStatus{
		Name:    client.Name(),
		Healthy: false,
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Ping(ctx); err != nil {
		status.Error = fmt.Errorf("ping failed: %w", err)
		status.Latency = time.Since(start)
		return status
	}
	status.Latency = time.Since(start)

	sqlDB, err := client.SqlDB()
	if err != nil {
		status.Error = fmt.Errorf("failed to get sql.DB: %w", err)
		return status
	}

	stats := sqlDB.Stats()
	if stats.MaxOpenConnections > 0 && stats.OpenConnections > stats.MaxOpenConnections {
		status.Error = fmt.Errorf("connection pool exceeded: open=%d, max=%d",
			stats.OpenConnections, stats.MaxOpenConnections)
		return status
	}
	// 等待时间过长说明连接池可能被打满
	if stats.WaitCount > 0 && stats.WaitDuration > 5*time.Second {
		status.Error = fmt.Errorf("high connection wait time: count=%d, duration=%v",
			stats.WaitCount, stats.WaitDuration)
		return status
	}

	status.Healthy = true
	return status
}

// HealthWithStats 在健康检查之外附带连接池统计,供监控接口使用。
func HealthWithStats(client *Client, timeout time.Duration) (storage.HealthStatus, map[string]interface{}) {
	status := CheckHealth(client, timeout)
	stats := make(map[string]interface{})

	sqlDB, err := client.SqlDB()
	if err != nil {
		stats["error"] = err.Error()
		return status, stats
	}

	dbStats := sqlDB.Stats()
	stats["max_open_connections"] = dbStats.MaxOpenConnections
	stats["open_connections"] = dbStats.OpenConnections
	stats["in_use_connections"] = dbStats.InUse
	stats["idle_connections"] = dbStats.Idle
	stats["wait_count"] = dbStats.WaitCount
	stats["wait_duration"] = dbStats.WaitDuration.String()
	stats["max_idle_closed"] = dbStats.MaxIdleClosed
	stats["max_idle_time_closed"] = dbStats.MaxIdleTimeClosed
	stats["max_lifetime_closed"] = dbStats.MaxLifetimeClosed
	return status, stats
}
