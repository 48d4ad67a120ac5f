// Package metrics 提供轻量的指标采集,按 Prometheus 文本格式导出。
package metrics

// MetricType represents the type of metric.
type MetricType string

const (
	TypeCounter   MetricType = "counter"
	TypeGauge     MetricType = "gauge"
	TypeHistogram MetricType = "histogram"
	TypeSummary   MetricType = "summary"
)

// Metric is the base interface for all metrics.
type Metric interface {
	Name() string
	Help() string
	Type() MetricType
	// Describe 按 Prometheus 文本格式输出指标
	Describe() string
}

// Counter 只增不减的累计计数。
type Counter interface {
	Metric
	Inc()
	Add(float64)
	Get() float64
}

// Gauge 可任意升降的瞬时值。
type Gauge interface {
	Metric
	Set(float64)
	Inc()
	Dec()
	Add(float64)
	Sub(float64)
	Get() float64
}

// Histogram 按桶统计观测值分布,常用于时延和大小。
type Histogram interface {
	Metric
	Observe(float64)
}

// Vector 是同名不同标签的一组指标。
type Vector interface {
	Metric
	// WithLabels 返回对应标签组合的指标,泛化形式便于统一处理
	WithLabels(labels map[string]string) Metric
}

// CounterVec is a vector of counters.
type CounterVec interface {
	Vector
	With(labels map[string]string) Counter
}

// GaugeVec is a vector of gauges.
type GaugeVec interface {
	Vector
	With(labels map[string]string) Gauge
}

// HistogramVec is a vector of histograms.
type HistogramVec interface {
	Vector
	With(labels map[string]string) Histogram
}
