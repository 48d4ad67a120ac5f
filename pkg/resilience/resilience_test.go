package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func retryTestConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRetryFirstAttemptSucceeds(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), retryTestConfig(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryEventualSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), retryTestConfig(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryBudgetExhaustedReturnsLastError(t *testing.T) {
	calls := 0
	boom := errors.New("persistent")
	err := Retry(context.Background(), retryTestConfig(), func() error {
		calls++
		return boom
	})
	// 原样返回最后一次错误,不做包装
	assert.Equal(t, boom, err)
	assert.Equal(t, 3, calls)
}

func TestRetryNonRetryableStopsImmediately(t *testing.T) {
	cfg := retryTestConfig()
	cfg.Retryable = func(err error) bool { return err.Error() != "fatal" }

	calls := 0
	fatal := errors.New("fatal")
	err := Retry(context.Background(), cfg, func() error {
		calls++
		return fatal
	})
	assert.Equal(t, fatal, err)
	assert.Equal(t, 1, calls)
}

func TestRetryZeroBudgetStillRunsOnce(t *testing.T) {
	for _, attempts := range []int{0, -1} {
		cfg := retryTestConfig()
		cfg.MaxAttempts = attempts

		calls := 0
		err := Retry(context.Background(), cfg, func() error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls, "MaxAttempts=%d must still run the call", attempts)
	}
}

func TestRetryContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := retryTestConfig()
	cfg.MaxAttempts = 5
	cfg.InitialDelay = 50 * time.Millisecond
	cfg.MaxDelay = time.Second

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	calls := 0
	err := Retry(ctx, cfg, func() error {
		calls++
		return errors.New("transient")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, calls, 2)
}

func TestCircuitBreakerOpensOnMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker(&CircuitBreakerConfig{
		MaxFailures:      3,
		Timeout:          time.Second,
		HalfOpenMaxCalls: 1,
	})
	assert.Equal(t, StateClosed, cb.State())

	boom := errors.New("boom")
	for i := 0; i < 3; i++ {
		assert.Error(t, cb.Execute(func() error { return boom }))
	}
	assert.Equal(t, StateOpen, cb.State())

	// 打开后直接拒绝,不再执行下游
	err := cb.Execute(func() error { return nil })
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen)
}

func TestCircuitBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(&CircuitBreakerConfig{
		MaxFailures:      2,
		Timeout:          time.Second,
		HalfOpenMaxCalls: 1,
	})

	boom := errors.New("boom")
	_ = cb.Execute(func() error { return boom })
	require.NoError(t, cb.Execute(func() error { return nil }))
	_ = cb.Execute(func() error { return boom })

	// 中间的成功清零了计数,单次失败不应打开
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 1, cb.Stats().Failures)
}

func TestCircuitBreakerHalfOpenProbeCloses(t *testing.T) {
	cb := NewCircuitBreaker(&CircuitBreakerConfig{
		MaxFailures:      2,
		Timeout:          50 * time.Millisecond,
		HalfOpenMaxCalls: 1,
	})

	boom := errors.New("boom")
	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return boom })
	}
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(80 * time.Millisecond)

	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreakerHalfOpenProbeFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(&CircuitBreakerConfig{
		MaxFailures:      2,
		Timeout:          50 * time.Millisecond,
		HalfOpenMaxCalls: 1,
	})

	boom := errors.New("boom")
	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return boom })
	}
	time.Sleep(80 * time.Millisecond)

	assert.Error(t, cb.Execute(func() error { return boom }))
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreakerReset(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())

	boom := errors.New("boom")
	for i := 0; i < 5; i++ {
		_ = cb.Execute(func() error { return boom })
	}
	require.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	require.NoError(t, cb.Execute(func() error { return nil }))
}

func TestCircuitBreakerStats(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())

	stats := cb.Stats()
	assert.Equal(t, "closed", stats.State)
	assert.Zero(t, stats.Failures)

	_ = cb.Execute(func() error { return errors.New("boom") })
	assert.Equal(t, 1, cb.Stats().Failures)
}

func BenchmarkCircuitBreakerExecute(b *testing.B) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cb.Execute(func() error { return nil })
	}
}
