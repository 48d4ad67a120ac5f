package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kart-io/logger"
	"github.com/panjf2000/ants/v2"
)

// Type defines the type of worker pool.
type Type string

const (
	// DefaultPool 默认通用池
	DefaultPool Type = "default"
	// HealthCheckPool 存储健康探测专用池
	HealthCheckPool Type = "health-check"
	// BackgroundPool 后台任务池（草稿回收、状态同步等）
	BackgroundPool Type = "background"
	// CallbackPool 流水线回调执行池
	CallbackPool Type = "callback"
	// TimeoutPool 超时中间件池
	TimeoutPool Type = "timeout"
)

// Config defines the configuration for the worker pool.
type Config struct {
	// Capacity 最大并发 goroutine 数，0 表示无限制（不推荐）
	Capacity int
	// ExpiryDuration goroutine 空闲回收时间
	ExpiryDuration time.Duration
	// PreAlloc 预分配 worker 队列内存
	PreAlloc bool
	// Nonblocking 池满时 Submit 立即返回错误而非排队
	Nonblocking bool
	// MaxBlockingTasks 阻塞模式下最大排队任务数，0 表示无限制
	MaxBlockingTasks int
	// PanicHandler 任务 panic 的处理函数
	PanicHandler func(interface{})
}

// DefaultPoolConfig 返回默认池配置
func DefaultPoolConfig() *Config {
	return &Config{
		Capacity:       1000,
		ExpiryDuration: 10 * time.Second,
	}
}

// PresetConfig 按池类型返回推荐配置。
// 健康探测和超时处理不能在池上排队等待,因此走 Nonblocking。
func PresetConfig(typ Type) *Config {
	switch typ {
	case HealthCheckPool:
		return &Config{Capacity: 100, ExpiryDuration: 30 * time.Second, PreAlloc: true, Nonblocking: true, MaxBlockingTasks: 10}
	case BackgroundPool:
		return &Config{Capacity: 50, ExpiryDuration: 60 * time.Second, Nonblocking: true, MaxBlockingTasks: 100}
	case CallbackPool:
		return &Config{Capacity: 200, ExpiryDuration: 5 * time.Second, MaxBlockingTasks: 1000}
	case TimeoutPool:
		return &Config{Capacity: 5000, ExpiryDuration: 5 * time.Second, PreAlloc: true, Nonblocking: true, MaxBlockingTasks: 1000}
	default:
		return DefaultPoolConfig()
	}
}

// Pool represents a worker pool.
type Pool struct {
	name     string
	typ      Type
	pool     *ants.Pool
	config   *Config
	stats    *poolStatsCounter
	closed   atomic.Bool
	closedMu sync.Mutex
}

type poolStatsCounter struct {
	SubmittedTasks  atomic.Int64
	CompletedTasks  atomic.Int64
	FailedTasks     atomic.Int64
	RejectedTasks   atomic.Int64
	PanicRecovered  atomic.Int64
	TotalWaitTimeNs atomic.Int64
}

// Stats contains statistics about the worker pool.
type Stats struct {
	SubmittedTasks  int64
	CompletedTasks  int64
	FailedTasks     int64
	RejectedTasks   int64
	PanicRecovered  int64
	TotalWaitTimeNs int64
}

// NewPool creates a new worker pool with the given configuration.
func NewPool(name string, typ Type, config *Config) (*Pool, error) {
	if config == nil {
		config = DefaultPoolConfig()
	}

	panicHandler := config.PanicHandler
	if panicHandler == nil {
		panicHandler = func(r interface{}) {
			logger.Errorw("Worker panic recovered",
				"pool", name,
				"panic", r,
			)
		}
	}

	antsPool, err := ants.NewPool(config.Capacity,
		ants.WithExpiryDuration(config.ExpiryDuration),
		ants.WithPreAlloc(config.PreAlloc),
		ants.WithNonblocking(config.Nonblocking),
		ants.WithMaxBlockingTasks(config.MaxBlockingTasks),
		ants.WithPanicHandler(panicHandler),
	)
	if err != nil {
		return nil, fmt.Errorf("创建 ants 池失败: %w", err)
	}

	p := &Pool{
		name:   name,
		typ:    typ,
		pool:   antsPool,
		config: config,
		stats:  &poolStatsCounter{},
	}

	logger.Infow("Worker pool created",
		"name", name,
		"capacity", config.Capacity,
		"preAlloc", config.PreAlloc,
	)

	return p, nil
}

// Name 返回池名称
func (p *Pool) Name() string { return p.name }

// Type 返回池类型
func (p *Pool) Type() Type { return p.typ }

// Cap 返回池容量
func (p *Pool) Cap() int { return p.pool.Cap() }

// Running 返回正在运行的 goroutine 数量
func (p *Pool) Running() int { return p.pool.Running() }

// Free 返回可用 goroutine 数量
func (p *Pool) Free() int { return p.pool.Free() }

// Waiting 返回等待执行的任务数量
func (p *Pool) Waiting() int { return p.pool.Waiting() }

// instrument 包装任务以维护统计计数,panic 会重新抛出交给 ants 的 PanicHandler。
func (p *Pool) instrument(task func(), enqueuedAt time.Time) func() {
	return func() {
		p.stats.TotalWaitTimeNs.Add(int64(time.Since(enqueuedAt)))
		p.stats.SubmittedTasks.Add(1)

		defer func() {
			if r := recover(); r != nil {
				p.stats.PanicRecovered.Add(1)
				p.stats.FailedTasks.Add(1)
				panic(r)
			}
			p.stats.CompletedTasks.Add(1)
		}()

		task()
	}
}

// Submit 提交任务到池中执行
func (p *Pool) Submit(task func()) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}

	if err := p.pool.Submit(p.instrument(task, time.Now())); err != nil {
		if errors.Is(err, ants.ErrPoolOverload) {
			p.stats.RejectedTasks.Add(1)
			return ErrPoolOverload
		}
		p.stats.FailedTasks.Add(1)
		return err
	}
	return nil
}

// SubmitWithContext 提交任务，上下文已取消时直接拒绝；
// 排队期间取消的任务在出队时跳过执行。
func (p *Pool) SubmitWithContext(ctx context.Context, task func()) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return p.Submit(func() {
		if ctx.Err() != nil {
			return
		}
		task()
	})
}

// Release 关闭池并释放资源
func (p *Pool) Release() {
	p.closedMu.Lock()
	defer p.closedMu.Unlock()

	if p.closed.Load() {
		return
	}

	p.closed.Store(true)
	p.pool.Release()
	logger.Infow("Worker pool released", "name", p.name)
}

// ReleaseTimeout 关闭池，最多等待 timeout 让在途任务结束
func (p *Pool) ReleaseTimeout(timeout time.Duration) error {
	p.closedMu.Lock()
	defer p.closedMu.Unlock()

	if p.closed.Load() {
		return nil
	}

	p.closed.Store(true)
	return p.pool.ReleaseTimeout(timeout)
}

// Tune 动态调整池容量
func (p *Pool) Tune(size int) {
	p.pool.Tune(size)
	p.config.Capacity = size
	logger.Infow("Worker pool tuned", "name", p.name, "new_capacity", size)
}

// GetStats 获取统计计数的原子快照
func (p *Pool) GetStats() (submitted, completed, failed, rejected, panics int64) {
	return p.stats.SubmittedTasks.Load(),
		p.stats.CompletedTasks.Load(),
		p.stats.FailedTasks.Load(),
		p.stats.RejectedTasks.Load(),
		p.stats.PanicRecovered.Load()
}

// Stats 返回池统计信息快照
func (p *Pool) Stats() Stats {
	return Stats{
		SubmittedTasks:  p.stats.SubmittedTasks.Load(),
		CompletedTasks:  p.stats.CompletedTasks.Load(),
		FailedTasks:     p.stats.FailedTasks.Load(),
		RejectedTasks:   p.stats.RejectedTasks.Load(),
		PanicRecovered:  p.stats.PanicRecovered.Load(),
		TotalWaitTimeNs: p.stats.TotalWaitTimeNs.Load(),
	}
}
