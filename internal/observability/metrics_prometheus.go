package observability

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/georgisalene/gnss-rt/internal/ports"
)

// PrometheusMetrics implements ports.Metrics on a dedicated registry.
// Counter, histogram and gauge vectors are created lazily per metric name;
// the label set of the first observation fixes the vector's labels.
type PrometheusMetrics struct {
	mu        sync.Mutex
	prefix    string
	registry  *prometheus.Registry
	baseTags  map[string]string
	counters  map[string]*prometheus.CounterVec
	histos    map[string]*prometheus.HistogramVec
	gauges    map[string]*prometheus.GaugeVec
}

// NewPrometheusMetrics creates a prometheus-backed metrics instance. The
// prefix is prepended to every metric name.
func NewPrometheusMetrics(prefix string) *PrometheusMetrics {
	return &PrometheusMetrics{
		prefix:   prefix,
		registry: prometheus.NewRegistry(),
		baseTags: make(map[string]string),
		counters: make(map[string]*prometheus.CounterVec),
		histos:   make(map[string]*prometheus.HistogramVec),
		gauges:   make(map[string]*prometheus.GaugeVec),
	}
}

// Registry exposes the underlying registry for the scrape handler.
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// IncrementCounter increments a counter metric by 1.
func (m *PrometheusMetrics) IncrementCounter(name string, tags map[string]string) {
	labels := m.merged(tags)

	m.mu.Lock()
	vec, ok := m.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: m.metricName(name),
			Help: fmt.Sprintf("Total %s events", name),
		}, labelKeys(labels))
		m.registry.MustRegister(vec)
		m.counters[name] = vec
	}
	m.mu.Unlock()

	if c, err := vec.GetMetricWith(prometheus.Labels(labels)); err == nil {
		c.Inc()
	}
}

// RecordHistogram records a value in a histogram distribution.
func (m *PrometheusMetrics) RecordHistogram(name string, value float64, tags map[string]string) {
	labels := m.merged(tags)

	m.mu.Lock()
	vec, ok := m.histos[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    m.metricName(name),
			Help:    fmt.Sprintf("Distribution of %s", name),
			Buckets: prometheus.DefBuckets,
		}, labelKeys(labels))
		m.registry.MustRegister(vec)
		m.histos[name] = vec
	}
	m.mu.Unlock()

	if h, err := vec.GetMetricWith(prometheus.Labels(labels)); err == nil {
		h.Observe(value)
	}
}

// RecordGauge records a point-in-time measurement.
func (m *PrometheusMetrics) RecordGauge(name string, value float64, tags map[string]string) {
	labels := m.merged(tags)

	m.mu.Lock()
	vec, ok := m.gauges[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: m.metricName(name),
			Help: fmt.Sprintf("Current %s", name),
		}, labelKeys(labels))
		m.registry.MustRegister(vec)
		m.gauges[name] = vec
	}
	m.mu.Unlock()

	if g, err := vec.GetMetricWith(prometheus.Labels(labels)); err == nil {
		g.Set(value)
	}
}

// WithTags returns a new Metrics instance with additional default tags.
// The vectors and registry are shared with the parent.
func (m *PrometheusMetrics) WithTags(tags map[string]string) ports.Metrics {
	merged := make(map[string]string, len(m.baseTags)+len(tags))
	for k, v := range m.baseTags {
		merged[k] = v
	}
	for k, v := range tags {
		merged[k] = v
	}
	return &PrometheusMetrics{
		prefix:   m.prefix,
		registry: m.registry,
		baseTags: merged,
		counters: m.counters,
		histos:   m.histos,
		gauges:   m.gauges,
	}
}

func (m *PrometheusMetrics) merged(tags map[string]string) map[string]string {
	out := make(map[string]string, len(m.baseTags)+len(tags))
	for k, v := range m.baseTags {
		out[k] = v
	}
	for k, v := range tags {
		out[k] = v
	}
	return out
}

func (m *PrometheusMetrics) metricName(name string) string {
	n := strings.ReplaceAll(name, ".", "_")
	if m.prefix == "" {
		return n
	}
	return m.prefix + "_" + n
}

func labelKeys(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
