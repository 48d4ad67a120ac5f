// Package resilience 提供重试与熔断原语,管线阶段与 HTTP 中间件共用。
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kart-io/logger"
)

// RetryConfig 控制指数退避重试。
type RetryConfig struct {
	// MaxAttempts 总尝试次数,含首次调用,小于 1 时按 1 处理。
	MaxAttempts int

	// InitialDelay 首次重试前的等待时间。
	InitialDelay time.Duration

	// MaxDelay 退避上限,0 表示不设上限。
	MaxDelay time.Duration

	// Multiplier 每轮等待的倍增因子。
	Multiplier float64

	// Retryable 判断错误是否值得重试,nil 表示全部重试。
	Retryable func(error) bool
}

// DefaultRetryConfig 返回默认重试配置。
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}
}

// Retry 按配置执行 fn,无论预算多小都至少执行一次。不可重试的错误和
// 预算耗尽后的最后一次错误都原样返回,调用方据此保留自己的错误类型。
// 上下文取消优先于剩余预算。
func Retry(ctx context.Context, cfg *RetryConfig, fn func() error) error {
	if cfg == nil {
		cfg = DefaultRetryConfig()
	}
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	delay := cfg.InitialDelay
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}
		if cfg.Retryable != nil && !cfg.Retryable(err) {
			return err
		}
		if attempt >= attempts {
			logger.Warnw("retry budget exhausted", "attempts", attempt, "error", err.Error())
			return err
		}

		logger.Debugw("retrying after failure",
			"attempt", attempt, "delay", delay, "error", err.Error())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
}

// ErrCircuitBreakerOpen 表示熔断器处于打开状态,请求被直接拒绝。
var ErrCircuitBreakerOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig 熔断器配置。
type CircuitBreakerConfig struct {
	// MaxFailures 连续失败多少次后打开熔断器。
	MaxFailures int

	// Timeout 打开后多久放行探测请求。
	Timeout time.Duration

	// HalfOpenMaxCalls 半开状态放行的探测请求数。
	HalfOpenMaxCalls int
}

// DefaultCircuitBreakerConfig 返回默认熔断器配置。
func DefaultCircuitBreakerConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		MaxFailures:      5,
		Timeout:          60 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

// CircuitBreakerState 熔断器状态。
type CircuitBreakerState int

const (
	// StateClosed 正常放行并统计失败。
	StateClosed CircuitBreakerState = iota
	// StateOpen 拒绝所有请求。
	StateOpen
	// StateHalfOpen 放行有限探测请求。
	StateHalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// CircuitBreaker 按连续失败计数熔断。Closed 下失败达到阈值转 Open,
// Open 超时后转 Half-Open 放行探测,探测额度全部成功回到 Closed,
// 任何一次探测失败立即回到 Open。
type CircuitBreaker struct {
	cfg *CircuitBreakerConfig

	mu        sync.Mutex
	state     CircuitBreakerState
	failures  int
	openedAt  time.Time
	probes    int
	probeWins int
}

// NewCircuitBreaker 创建熔断器,nil 配置使用默认值。
func NewCircuitBreaker(cfg *CircuitBreakerConfig) *CircuitBreaker {
	if cfg == nil {
		cfg = DefaultCircuitBreakerConfig()
	}
	return &CircuitBreaker{cfg: cfg}
}

// Execute 通过熔断器执行 fn,被拒绝时返回 ErrCircuitBreakerOpen。
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.allow() {
		return ErrCircuitBreakerOpen
	}
	err := fn()
	cb.record(err)
	return err
}

// allow 决定本次调用是否放行,必要时完成 Open -> Half-Open 迁移。
// 触发迁移的调用本身计入探测额度。
func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true

	case StateOpen:
		if time.Since(cb.openedAt) <= cb.cfg.Timeout {
			return false
		}
		logger.Infow("circuit breaker half-open, probing")
		cb.state = StateHalfOpen
		cb.probes = 1
		cb.probeWins = 0
		return true

	default: // StateHalfOpen
		if cb.probes >= cb.cfg.HalfOpenMaxCalls {
			return false
		}
		cb.probes++
		return true
	}
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		switch cb.state {
		case StateClosed:
			cb.failures = 0
		case StateHalfOpen:
			cb.probeWins++
			if cb.probeWins >= cb.cfg.HalfOpenMaxCalls {
				logger.Infow("circuit breaker closed after successful probes")
				cb.state = StateClosed
				cb.failures = 0
			}
		}
		return
	}

	cb.failures++
	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.cfg.MaxFailures {
			logger.Warnw("circuit breaker open",
				"failures", cb.failures, "max_failures", cb.cfg.MaxFailures)
			cb.state = StateOpen
			cb.openedAt = time.Now()
		}
	case StateHalfOpen:
		logger.Warnw("circuit breaker re-open after failed probe")
		cb.state = StateOpen
		cb.openedAt = time.Now()
	}
}

// State 返回当前状态。
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// BreakerStats 是熔断器的瞬时统计快照。
type BreakerStats struct {
	State    string    `json:"state"`
	Failures int       `json:"failures"`
	OpenedAt time.Time `json:"opened_at"`
}

// Stats 返回当前统计信息。
func (cb *CircuitBreaker) Stats() BreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return BreakerStats{
		State:    cb.state.String(),
		Failures: cb.failures,
		OpenedAt: cb.openedAt,
	}
}

// Reset 强制回到关闭状态并清空计数。
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.probes = 0
	cb.probeWins = 0
}
