package mysql

import (
	"context"
	"time"

	gormlogger "gorm.io/gorm/logger"

	"github.com/kart-io/logger"
)

// GormLogger 把 GORM 的日志接到统一日志上。
type GormLogger struct {
	LogLevel                  gormlogger.LogLevel
	SlowThreshold             time.Duration
	IgnoreRecordNotFoundError bool
}

var _ gormlogger.Interface = (*GormLogger)(nil)

// NewGormLogger creates a new GormLogger.
func NewGormLogger(logLevel gormlogger.LogLevel, slowThreshold time.Duration, ignoreRecordNotFoundError bool) *GormLogger {
	return &GormLogger{
		LogLevel:                  logLevel,
		SlowThreshold:             slowThreshold,
		IgnoreRecordNotFoundError: ignoreRecordNotFoundError,
	}
}

// LogMode sets the log level.
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.LogLevel = level
	return &clone
}

// Info logs info messages.
func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormlogger.Info {
		logger.Global().WithCtx(ctx).Infof(msg, data...)
	}
}

// Warn logs warning messages.
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormlogger.Warn {
		logger.Global().WithCtx(ctx).Warnf(msg, data...)
	}
}

// Error logs error messages.
func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormlogger.Error {
		logger.Global().WithCtx(ctx).Errorf(msg, data...)
	}
}

func ms(d time.Duration) float64 { return float64(d.Nanoseconds()) / 1e6 }

// Trace logs SQL queries. 错误和慢查询优先,其余在 Info 级别输出。
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	log := logger.Global().WithCtx(ctx)

	switch {
	case err != nil && l.LogLevel >= gormlogger.Error && !l.suppressed(err):
		sql, rows := fc()
		log.Errorw("Database query failed",
			"error", err, "sql", sql, "rows", rows, "duration_ms", ms(elapsed))
	case l.slow(elapsed) && l.LogLevel >= gormlogger.Warn:
		sql, rows := fc()
		log.Warnw("Slow database query detected",
			"sql", sql, "rows", rows, "duration_ms", ms(elapsed), "threshold_ms", ms(l.SlowThreshold))
	case l.LogLevel >= gormlogger.Info:
		sql, rows := fc()
		log.Infow("Database query executed",
			"sql", sql, "rows", rows, "duration_ms", ms(elapsed))
	}
}

func (l *GormLogger) slow(elapsed time.Duration) bool {
	return l.SlowThreshold != 0 && elapsed > l.SlowThreshold
}

func (l *GormLogger) suppressed(err error) bool {
	return l.IgnoreRecordNotFoundError && err == gormlogger.ErrRecordNotFound
}
