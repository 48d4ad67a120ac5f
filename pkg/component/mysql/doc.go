// Package mysql implements the storage.Client interface on top of GORM.
// It is the metadata store for documents, chunks, and pipeline tasks.
//
// Basic usage:
//
//	opts := mysqlOpts.NewOptions()
//	opts.Host = "localhost"
//	opts.Database = "sentinel_kb"
//
//	client, err := New(opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
// NewWithContext 用于需要超时控制的启动路径。GORM 的 *gorm.DB 通过
// client.DB() 暴露,用于迁移和查询。
//
// Health checking:
//
//	status, stats := HealthWithStats(client, 5*time.Second)
//	if !status.Healthy {
//	    log.Printf("mysql unhealthy: %v", status.Error)
//	}
//
// The client is safe for concurrent use. Connection pooling is delegated
// to database/sql, tuned through the MaxIdleConnections, MaxOpenConnections
// and MaxConnectionLifeTime options.
package mysql
