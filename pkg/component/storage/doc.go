// Package storage defines the common contract for storage backends in
// sentinel-kb: MySQL for knowledge base metadata, Redis for draft staging,
// Milvus for vectors.
//
// 所有存储客户端实现 Client 接口,由 Manager 统一注册、健康检查和关闭。
//
// # Quick Start
//
//	client, err := redis.New(opts)
//	if err != nil {
//	    log.Fatalf("failed to connect: %v", err)
//	}
//	defer client.Close()
//
//	if err := client.Ping(ctx); err != nil {
//	    log.Printf("health check failed: %v", err)
//	}
//
// # Using the Manager
//
// 多后端场景下用 Manager 管理生命周期:
//
//	mgr := storage.NewManager()
//	mgr.MustRegister("redis-drafts", redisClient)
//	mgr.MustRegister("mysql-metadata", mysqlClient)
//	mgr.MustRegister("milvus-vectors", milvusClient)
//
//	cache, err := mgr.Get("redis-drafts")
//
//	statuses := mgr.HealthCheckAll(ctx)
//	for name, status := range statuses {
//	    if !status.Healthy {
//	        log.Printf("%s: unhealthy - %v", name, status.Error)
//	    }
//	}
//
//	defer mgr.CloseAll()
//
// # Error Handling
//
// 包内预定义了一组哨兵错误,可用 errors.Is 判定,也可以取出结构化细节:
//
//	if errors.Is(err, storage.ErrNotConnected) {
//	    log.Println("client is not connected")
//	}
//
//	if storageErr, ok := storage.GetError(err); ok {
//	    log.Printf("code=%s message=%s", storageErr.Code, storageErr.Message)
//	}
//
// # Implementing a Client
//
// 新后端只需实现四个方法:
//
//	func (c *MyClient) Name() string { return "mystorage" }
//
//	func (c *MyClient) Ping(ctx context.Context) error {
//	    return c.conn.Ping(ctx)
//	}
//
//	func (c *MyClient) Close() error { return c.conn.Close() }
//
//	func (c *MyClient) Health() storage.HealthChecker {
//	    return func() error {
//	        ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//	        defer cancel()
//	        return c.Ping(ctx)
//	    }
//	}
//
// Manager 本身并发安全;各客户端的并发语义见各自文档。所有可能阻塞的
// 操作都接收 context.Context 控制超时与取消。
package storage
