package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kart-io/sentinel-kb/pkg/infra/pool"
)

// Manager is a registry of storage clients with centralized health checking
// and lifecycle management. It is safe for concurrent use.
//
//	mgr := storage.NewManager()
//	mgr.Register("mysql-metadata", mysqlClient)
//	mgr.Register("redis-drafts", redisClient)
//	mgr.Register("milvus-vectors", milvusClient)
//
//	statuses := mgr.HealthCheckAll(ctx)
//	defer mgr.CloseAll()
type Manager struct {
	mu      sync.RWMutex
	clients map[string]Client
}

// NewManager creates a new storage manager instance.
func NewManager() *Manager {
	return &Manager{clients: make(map[string]Client)}
}

// Register 以唯一名称注册客户端,如 "redis-drafts"、"mysql-metadata"。
// 重名注册返回 ErrClientAlreadyExists。
func (m *Manager) Register(name string, client Client) error {
	if name == "" {
		return ErrInvalidConfig.WithMessage("client name cannot be empty")
	}
	if client == nil {
		return ErrInvalidConfig.WithMessage("client cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.clients[name]; exists {
		return ErrClientAlreadyExists.WithMessage(fmt.Sprintf("client '%s' is already registered", name))
	}
	m.clients[name] = client
	return nil
}

// MustRegister 注册失败直接 panic,用于后端缺失即致命的初始化路径。
func (m *Manager) MustRegister(name string, client Client) {
	if err := m.Register(name, client); err != nil {
		panic(fmt.Sprintf("failed to register storage client: %v", err))
	}
}

// Unregister removes a client from the registry without closing it.
func (m *Manager) Unregister(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.clients[name]; !exists {
		return ErrClientNotFound.WithMessage(fmt.Sprintf("client '%s' not found", name))
	}
	delete(m.clients, name)
	return nil
}

// Get retrieves a storage client by name.
func (m *Manager) Get(name string) (Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	client, exists := m.clients[name]
	if !exists {
		return nil, ErrClientNotFound.WithMessage(fmt.Sprintf("client '%s' not found", name))
	}
	return client, nil
}

// Has checks if a client with the given name is registered.
func (m *Manager) Has(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.clients[name]
	return exists
}

// List returns all registered client names.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.clients))
	for name := range m.clients {
		names = append(names, name)
	}
	return names
}

// Count returns the number of registered clients.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// snapshot 拷贝一份客户端表,健康检查不持锁进行。
func (m *Manager) snapshot() map[string]Client {
	m.mu.RLock()
	defer m.mu.RUnlock()

	clients := make(map[string]Client, len(m.clients))
	for name, client := range m.clients {
		clients[name] = client
	}
	return clients
}

func pingClient(ctx context.Context, name string, client Client) HealthStatus {
	start := time.Now()
	err := client.Ping(ctx)

	return HealthStatus{
		Name:    name,
		Healthy: err == nil,
		Latency: time.Since(start),
		Error:   err,
	}
}

// HealthCheck pings a single client and reports latency and error.
func (m *Manager) HealthCheck(ctx context.Context, name string) HealthStatus {
	client, err := m.Get(name)
	if err != nil {
		return HealthStatus{Name: name, Healthy: false, Error: err}
	}
	return pingClient(ctx, name, client)
}

// HealthCheckAll pings all registered clients concurrently.
// 并发检查走 ants 健康检查池,池不可用时降级为裸 goroutine。
func (m *Manager) HealthCheckAll(ctx context.Context) map[string]HealthStatus {
	clients := m.snapshot()

	statuses := make(map[string]HealthStatus, len(clients))
	var statusMu sync.Mutex
	var wg sync.WaitGroup

	healthPool, err := pool.GetByType(pool.HealthCheckPool)
	usePool := err == nil && healthPool != nil

	for name, client := range clients {
		n, c := name, client
		wg.Add(1)

		task := func() {
			defer wg.Done()
			status := pingClient(ctx, n, c)

			statusMu.Lock()
			statuses[n] = status
			statusMu.Unlock()
		}

		if !usePool {
			go task()
			continue
		}
		if submitErr := healthPool.Submit(task); submitErr != nil {
			go task()
		}
	}

	wg.Wait()
	return statuses
}

// AllHealthy reports whether every registered client passes its health check.
func (m *Manager) AllHealthy(ctx context.Context) bool {
	for _, status := range m.HealthCheckAll(ctx) {
		if !status.Healthy {
			return false
		}
	}
	return true
}

// Close closes a specific client and removes it from the manager.
func (m *Manager) Close(name string) error {
	client, err := m.Get(name)
	if err != nil {
		return err
	}
	if closeErr := client.Close(); closeErr != nil {
		return closeErr
	}
	return m.Unregister(name)
}

// CloseAll 关停所有客户端,单个失败不阻断其余关闭,返回首个错误。
// 应用退出时调用。
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for name, client := range m.clients {
		if err := client.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close client '%s': %w", name, err)
		}
		delete(m.clients, name)
	}
	return firstErr
}

// Clear drops all clients from the registry without closing them.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients = make(map[string]Client)
}
