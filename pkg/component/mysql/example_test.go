package mysql_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/kart-io/sentinel-kb/pkg/component/mysql"
)

// Example_basicUsage 创建客户端并访问元数据库。
func Example_basicUsage() {
	opts := mysql.NewOptions()
	opts.Host = "localhost"
	opts.Port = 3306
	opts.Username = "root"
	opts.Password = "password"
	opts.Database = "sentinel_kb"

	client, err := mysql.New(opts)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = client.Close() }()

	fmt.Printf("Connected to MySQL: %s\n", client.Name())
}

// Example_withContext 用上下文限制建连时长。
func Example_withContext() {
	opts := mysql.NewOptions()
	opts.Host = "localhost"
	opts.Database = "sentinel_kb"

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mysql.NewWithContext(ctx, opts)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = client.Close() }()

	if err := client.Ping(ctx); err != nil {
		log.Printf("Ping failed: %v", err)
		return
	}
	fmt.Println("MySQL connection verified")
}

// Example_healthCheck 带超时的健康检查。
func Example_healthCheck() {
	opts := mysql.NewOptions()
	opts.Host = "localhost"
	opts.Database = "sentinel_kb"

	client, err := mysql.New(opts)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = client.Close() }()

	status := mysql.CheckHealth(client, 5*time.Second)
	if status.Healthy {
		fmt.Println("MySQL is healthy")
	} else {
		fmt.Printf("MySQL is unhealthy: %v\n", status.Error)
	}
}

// Example_factory 通过 Factory 构造客户端。
func Example_factory() {
	opts := mysql.NewOptions()
	opts.Host = "localhost"
	opts.Database = "sentinel_kb"

	factory := mysql.NewFactory(opts)

	client, err := factory.Create(context.Background())
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = client.Close() }()

	fmt.Printf("Client created via factory: %s\n", client.Name())
}

// Example_gormUsage 直接使用底层 GORM 句柄。
func Example_gormUsage() {
	type Document struct {
		ID     uint   `gorm:"primaryKey"`
		Name   string `gorm:"size:255"`
		Status string `gorm:"size:32"`
	}

	opts := mysql.NewOptions()
	opts.Host = "localhost"
	opts.Database = "sentinel_kb"

	client, err := mysql.New(opts)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = client.Close() }()

	db := client.DB()
	_ = db.AutoMigrate(&Document{})

	db.Create(&Document{Name: "handbook.pdf", Status: "processed"})

	var docs []Document
	db.Where("status = ?", "processed").Find(&docs)

	fmt.Printf("Found %d documents\n", len(docs))
}

// Example_connectionPool 连接池配置与统计。
func Example_connectionPool() {
	opts := mysql.NewOptions()
	opts.Host = "localhost"
	opts.Database = "sentinel_kb"
	opts.MaxIdleConnections = 10
	opts.MaxOpenConnections = 100
	opts.MaxConnectionLifeTime = 10 * time.Second

	client, err := mysql.New(opts)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = client.Close() }()

	sqlDB, err := client.SqlDB()
	if err != nil {
		log.Fatal(err)
	}

	stats := sqlDB.Stats()
	fmt.Printf("Max open connections: %d\n", stats.MaxOpenConnections)
	fmt.Printf("Open connections: %d\n", stats.OpenConnections)
}

// Example_errorHandling 校验失败时 New 直接报错。
func Example_errorHandling() {
	opts := mysql.NewOptions()
	opts.Host = ""
	opts.Database = ""

	if _, err := mysql.New(opts); err != nil {
		fmt.Printf("Error creating client: %v\n", err)
	}
}

// Example_multipleClients 用 Clone 派生不同库的工厂。
func Example_multipleClients() {
	baseOpts := mysql.NewOptions()
	baseOpts.Host = "localhost"
	baseOpts.Username = "root"

	factory := mysql.NewFactory(baseOpts)

	metaFactory := factory.Clone()
	metaFactory.Options().Database = "sentinel_kb"

	auditFactory := factory.Clone()
	auditFactory.Options().Database = "sentinel_kb_audit"

	metaClient, _ := metaFactory.Create(context.Background())
	defer func() { _ = metaClient.Close() }()

	auditClient, _ := auditFactory.Create(context.Background())
	defer func() { _ = auditClient.Close() }()

	fmt.Println("Multiple clients created successfully")
}
