package metrics

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// atomicFloat 以 uint64 位模式存储 float64，支持无锁累加。
type atomicFloat struct {
	bits uint64
}

func (f *atomicFloat) add(v float64) {
	for {
		old := atomic.LoadUint64(&f.bits)
		updated := math.Float64bits(math.Float64frombits(old) + v)
		if atomic.CompareAndSwapUint64(&f.bits, old, updated) {
			return
		}
	}
}

func (f *atomicFloat) store(v float64) {
	atomic.StoreUint64(&f.bits, math.Float64bits(v))
}

func (f *atomicFloat) load() float64 {
	return math.Float64frombits(atomic.LoadUint64(&f.bits))
}

type baseMetric struct {
	name string
	help string
	typ  MetricType
}

func (m *baseMetric) Name() string     { return m.name }
func (m *baseMetric) Help() string     { return m.help }
func (m *baseMetric) Type() MetricType { return m.typ }

// describeHeader 输出 Prometheus 文本格式的 HELP/TYPE 头。
func (m *baseMetric) describeHeader(sb *strings.Builder) {
	fmt.Fprintf(sb, "# HELP %s %s\n", m.name, m.help)
	fmt.Fprintf(sb, "# TYPE %s %s\n", m.name, m.typ)
}

type counter struct {
	baseMetric
	val atomicFloat
}

// NewCounter creates a new Counter metric with the given name and help text.
func NewCounter(name, help string) Counter {
	return &counter{
		baseMetric: baseMetric{name: name, help: help, typ: TypeCounter},
	}
}

func (c *counter) Inc() { c.Add(1) }

func (c *counter) Add(v float64) {
	// 计数器只增不减。
	if v < 0 {
		return
	}
	c.val.add(v)
}

func (c *counter) Get() float64 { return c.val.load() }

func (c *counter) Describe() string {
	var sb strings.Builder
	c.describeHeader(&sb)
	fmt.Fprintf(&sb, "%s %.6f\n", c.name, c.Get())
	return sb.String()
}

type gauge struct {
	baseMetric
	val atomicFloat
}

// NewGauge creates a new Gauge metric with the given name and help text.
func NewGauge(name, help string) Gauge {
	return &gauge{
		baseMetric: baseMetric{name: name, help: help, typ: TypeGauge},
	}
}

func (g *gauge) Set(v float64) { g.val.store(v) }
func (g *gauge) Inc()          { g.Add(1) }
func (g *gauge) Dec()          { g.Sub(1) }
func (g *gauge) Add(v float64) { g.val.add(v) }
func (g *gauge) Sub(v float64) { g.val.add(-v) }
func (g *gauge) Get() float64  { return g.val.load() }

func (g *gauge) Describe() string {
	var sb strings.Builder
	g.describeHeader(&sb)
	fmt.Fprintf(&sb, "%s %.6f\n", g.name, g.Get())
	return sb.String()
}

type histogram struct {
	baseMetric
	buckets []float64
	counts  []uint64
	sum     atomicFloat
	count   uint64
	mu      sync.RWMutex
}

// NewHistogram creates a new Histogram metric. With no explicit buckets the
// default latency-oriented boundaries are used.
func NewHistogram(name, help string, buckets []float64) Histogram {
	if len(buckets) == 0 {
		buckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	}
	sort.Float64s(buckets)
	return &histogram{
		baseMetric: baseMetric{name: name, help: help, typ: TypeHistogram},
		buckets:    buckets,
		counts:     make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(v float64) {
	atomic.AddUint64(&h.count, 1)
	h.sum.add(v)

	// 桶计数加锁更新，观测值与桶之间无需严格原子。
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, bucket := range h.buckets {
		if v <= bucket {
			h.counts[i]++
		}
	}
}

func (h *histogram) Describe() string {
	var sb strings.Builder
	h.describeHeader(&sb)

	h.mu.RLock()
	defer h.mu.RUnlock()

	for i, bucket := range h.buckets {
		fmt.Fprintf(&sb, "%s_bucket{le=\"%.6g\"} %d\n", h.name, bucket, h.counts[i])
	}
	total := atomic.LoadUint64(&h.count)
	fmt.Fprintf(&sb, "%s_bucket{le=\"+Inf\"} %d\n", h.name, total)
	fmt.Fprintf(&sb, "%s_sum %.6f\n", h.name, h.sum.load())
	fmt.Fprintf(&sb, "%s_count %d\n", h.name, total)

	return sb.String()
}

// formatLabels 生成 name{k1="v1",k2="v2"} 形式的序列名，标签按键排序。
func formatLabels(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	pairs := make([]string, 0, len(labels))
	for k, v := range labels {
		pairs = append(pairs, fmt.Sprintf("%s=\"%s\"", k, v))
	}
	sort.Strings(pairs)
	return fmt.Sprintf("%s{%s}", name, strings.Join(pairs, ","))
}

// sortedKeys 收集 sync.Map 的字符串键并排序，保证导出顺序稳定。
func sortedKeys(m *sync.Map) []string {
	var keys []string
	m.Range(func(key, _ interface{}) bool {
		keys = append(keys, key.(string))
		return true
	})
	sort.Strings(keys)
	return keys
}

type counterVec struct {
	baseMetric
	metrics sync.Map // 序列名 -> *counter
}

// NewCounterVec creates a new CounterVec metric with the given name and help text.
func NewCounterVec(name, help string) CounterVec {
	return &counterVec{
		baseMetric: baseMetric{name: name, help: help, typ: TypeCounter},
	}
}

func (v *counterVec) WithLabels(labels map[string]string) Metric {
	return v.With(labels)
}

func (v *counterVec) With(labels map[string]string) Counter {
	key := formatLabels(v.name, labels)
	if val, ok := v.metrics.Load(key); ok {
		return val.(*counter)
	}

	// 子计数器直接以带标签的序列名作为 name，导出时原样输出。
	c := &counter{
		baseMetric: baseMetric{name: key, help: v.help, typ: TypeCounter},
	}
	actual, _ := v.metrics.LoadOrStore(key, c)
	return actual.(*counter)
}

func (v *counterVec) Describe() string {
	var sb strings.Builder
	v.describeHeader(&sb)

	for _, key := range sortedKeys(&v.metrics) {
		if val, ok := v.metrics.Load(key); ok {
			fmt.Fprintf(&sb, "%s %.6f\n", key, val.(*counter).Get())
		}
	}
	return sb.String()
}

type gaugeVec struct {
	baseMetric
	metrics sync.Map // 序列名 -> *gauge
}

// NewGaugeVec creates a new GaugeVec metric with the given name and help text.
func NewGaugeVec(name, help string) GaugeVec {
	return &gaugeVec{
		baseMetric: baseMetric{name: name, help: help, typ: TypeGauge},
	}
}

func (v *gaugeVec) WithLabels(labels map[string]string) Metric {
	return v.With(labels)
}

func (v *gaugeVec) With(labels map[string]string) Gauge {
	key := formatLabels(v.name, labels)
	if val, ok := v.metrics.Load(key); ok {
		return val.(*gauge)
	}

	g := &gauge{
		baseMetric: baseMetric{name: key, help: v.help, typ: TypeGauge},
	}
	actual, _ := v.metrics.LoadOrStore(key, g)
	return actual.(*gauge)
}

func (v *gaugeVec) Describe() string {
	var sb strings.Builder
	v.describeHeader(&sb)

	for _, key := range sortedKeys(&v.metrics) {
		if val, ok := v.metrics.Load(key); ok {
			fmt.Fprintf(&sb, "%s %.6f\n", key, val.(*gauge).Get())
		}
	}
	return sb.String()
}

type histogramVec struct {
	baseMetric
	buckets []float64
	metrics sync.Map // 序列名 -> *histogram
}

// NewHistogramVec creates a new HistogramVec metric with the given name, help text, and bucket boundaries.
func NewHistogramVec(name, help string, buckets []float64) HistogramVec {
	return &histogramVec{
		baseMetric: baseMetric{name: name, help: help, typ: TypeHistogram},
		buckets:    buckets,
	}
}

func (v *histogramVec) WithLabels(labels map[string]string) Metric {
	return v.With(labels)
}

func (v *histogramVec) With(labels map[string]string) Histogram {
	key := v.name + formatLabels("", labels)

	if val, ok := v.metrics.Load(key); ok {
		return val.(*histogram)
	}

	h := NewHistogram(key, v.help, v.buckets).(*histogram)
	actual, _ := v.metrics.LoadOrStore(key, h)
	return actual.(*histogram)
}

func (v *histogramVec) Describe() string {
	var sb strings.Builder
	v.describeHeader(&sb)

	for _, key := range sortedKeys(&v.metrics) {
		val, ok := v.metrics.Load(key)
		if !ok {
			continue
		}
		h := val.(*histogram)

		// 序列名形如 name{labels}，桶行要把 le 与原有标签合并。
		labelPart := ""
		if idx := strings.Index(key, "{"); idx != -1 {
			labelPart = key[idx:]
		}
		inner := ""
		if labelPart != "" {
			inner = "," + labelPart[1:len(labelPart)-1]
		}

		h.mu.RLock()
		for i, bucket := range h.buckets {
			fmt.Fprintf(&sb, "%s_bucket{le=\"%.6g\"%s} %d\n", v.name, bucket, inner, h.counts[i])
		}
		total := atomic.LoadUint64(&h.count)
		fmt.Fprintf(&sb, "%s_bucket{le=\"+Inf\"%s} %d\n", v.name, inner, total)
		fmt.Fprintf(&sb, "%s_sum%s %.6f\n", v.name, labelPart, h.sum.load())
		fmt.Fprintf(&sb, "%s_count%s %d\n", v.name, labelPart, total)
		h.mu.RUnlock()
	}
	return sb.String()
}
