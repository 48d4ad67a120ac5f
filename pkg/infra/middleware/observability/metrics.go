package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/sentinel-kb/pkg/observability/metrics"
	options "github.com/kart-io/sentinel-kb/pkg/options/middleware"
)

// MetricsCollector 基于统一 metrics 包收集 HTTP 请求指标。
type MetricsCollector struct {
	namespace string
	subsystem string

	requestsTotal   metrics.CounterVec
	requestDuration metrics.HistogramVec
	activeRequests  metrics.Gauge
	startTime       metrics.Gauge
}

// NewMetricsCollector creates a collector and registers its metrics with the
// default registry.
func NewMetricsCollector(namespace, subsystem string) *MetricsCollector {
	prefix := namespace
	if subsystem != "" {
		prefix += "_" + subsystem
	}

	m := &MetricsCollector{
		namespace: namespace,
		subsystem: subsystem,
		requestsTotal: metrics.NewCounterVec(
			prefix+"_requests_total",
			"Total number of HTTP requests.",
		),
		requestDuration: metrics.NewHistogramVec(
			prefix+"_request_duration_seconds",
			"HTTP request duration in seconds.",
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		),
		activeRequests: metrics.NewGauge(
			prefix+"_requests_active",
			"Current number of active requests.",
		),
		// uptime 不单独上报,由 start_time 推算
		startTime: metrics.NewGauge(
			prefix+"_process_start_time_seconds",
			"Start time of the process.",
		),
	}
	m.startTime.Set(float64(time.Now().Unix()))

	metrics.Register(m.requestsTotal)
	metrics.Register(m.requestDuration)
	metrics.Register(m.activeRequests)
	metrics.Register(m.startTime)

	return m
}

var (
	globalMetricsCollector *MetricsCollector
	metricsOnce            sync.Once
	metricsMu              sync.RWMutex
)

// GetMetricsCollector returns the global metrics collector, creating it on
// first use.
func GetMetricsCollector(namespace, subsystem string) *MetricsCollector {
	metricsOnce.Do(func() {
		globalMetricsCollector = NewMetricsCollector(namespace, subsystem)
	})

	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return globalMetricsCollector
}

// ResetMetricsCollector 重置全局采集器,测试用。
// 同时清空默认注册表,避免重复注册报错。
func ResetMetricsCollector() {
	metricsMu.Lock()
	defer metricsMu.Unlock()

	metrics.DefaultRegistry.Reset()
	globalMetricsCollector = nil
	metricsOnce = sync.Once{}
}

// ResetMetrics 清空所有指标数据,测试用。
func ResetMetrics() {
	metrics.DefaultRegistry.Reset()
	ResetMetricsCollector()
}

func requestLabels(method, path string, status int) map[string]string {
	return map[string]string{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
}

// RecordRequest records one finished request.
func (m *MetricsCollector) RecordRequest(method, path string, status int, duration time.Duration) {
	labels := requestLabels(method, path, status)
	m.requestsTotal.With(labels).Inc()
	m.requestDuration.With(labels).Observe(duration.Seconds())
}

// IncrementActive increments the in-flight request gauge.
func (m *MetricsCollector) IncrementActive() { m.activeRequests.Inc() }

// DecrementActive decrements the in-flight request gauge.
func (m *MetricsCollector) DecrementActive() { m.activeRequests.Dec() }

// Export exports all registered metrics in Prometheus text format.
func (m *MetricsCollector) Export() string {
	return metrics.Export()
}

// GetRequestCount 按 method/path/status 查询计数,测试断言用。
func (m *MetricsCollector) GetRequestCount(method, path string, status int) uint64 {
	return uint64(m.requestsTotal.With(requestLabels(method, path, status)).Get())
}

// MetricsMiddleware creates a middleware that collects metrics.
//
// Deprecated: 使用 MetricsWithOptions 替代。此函数将在 v2.0.0 中移除。
func MetricsMiddleware(opts options.MetricsOptions) gin.HandlerFunc {
	return MetricsWithOptions(opts)
}

// MetricsWithOptions 返回采集请求指标的中间件。
// 这是推荐的 API,适用于配置中心场景（配置必须可序列化）。
//
//	opts := mwopts.NewMetricsOptions()
//	opts.Path = "/metrics"
//	opts.Namespace = "myapp"
//	middleware.MetricsWithOptions(opts)
func MetricsWithOptions(opts options.MetricsOptions) gin.HandlerFunc {
	collector := GetMetricsCollector(opts.Namespace, opts.Subsystem)

	return func(c *gin.Context) {
		path := c.Request.URL.Path

		// 指标端点自身不计入
		if path == opts.Path {
			c.Next()
			return
		}

		collector.IncrementActive()
		start := time.Now()

		c.Next()

		collector.DecrementActive()
		collector.RecordRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// RegisterMetricsRoutesWithOptions 注册指标导出端点。
//
//	opts := mwopts.NewMetricsOptions()
//	RegisterMetricsRoutesWithOptions(engine, *opts)
func RegisterMetricsRoutesWithOptions(engine *gin.Engine, opts options.MetricsOptions) {
	GetMetricsCollector(opts.Namespace, opts.Subsystem)

	engine.GET(opts.Path, func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; charset=utf-8")
		c.String(http.StatusOK, metrics.Export())
	})
}
