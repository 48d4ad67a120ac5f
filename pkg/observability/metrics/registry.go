package metrics

import (
	"strings"
	"sync"
)

// Registry manages a collection of metrics.
type Registry struct {
	metrics sync.Map // 指标名 -> Metric
}

// NewRegistry creates a new metrics registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// DefaultRegistry is the default global registry.
var DefaultRegistry = NewRegistry()

// Register registers a metric with the registry.
func (r *Registry) Register(m Metric) {
	r.metrics.Store(m.Name(), m)
}

// Register registers a metric with the default registry.
func Register(m Metric) {
	DefaultRegistry.Register(m)
}

// Export 按指标名排序输出全部指标的 Prometheus 文本。
func (r *Registry) Export() string {
	var sb strings.Builder
	for _, name := range sortedKeys(&r.metrics) {
		val, ok := r.metrics.Load(name)
		if !ok {
			continue
		}
		if m, ok := val.(Metric); ok {
			sb.WriteString(m.Describe())
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// Export returns all metrics from the default registry in Prometheus text format.
func Export() string {
	return DefaultRegistry.Export()
}

// Unregister removes a metric from the registry.
func (r *Registry) Unregister(name string) {
	r.metrics.Delete(name)
}

// Reset clears all metrics from the registry.
func (r *Registry) Reset() {
	r.metrics.Range(func(key, _ interface{}) bool {
		r.metrics.Delete(key)
		return true
	})
}
