package observability

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/georgisalene/gnss-rt/internal/ports"
)

// StdoutMetrics implements ports.Metrics by printing metric lines. Values are
// also kept in memory so tests can assert on them.
type StdoutMetrics struct {
	tags   map[string]string
	logger *log.Logger
	mu     *sync.Mutex

	counters map[string]int64
	gauges   map[string]float64
}

// NewStdoutMetrics creates a new stdout metrics instance
func NewStdoutMetrics() *StdoutMetrics {
	return &StdoutMetrics{
		tags:     make(map[string]string),
		logger:   log.New(os.Stdout, "", 0),
		mu:       &sync.Mutex{},
		counters: make(map[string]int64),
		gauges:   make(map[string]float64),
	}
}

// IncrementCounter increments a counter metric
func (m *StdoutMetrics) IncrementCounter(name string, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := m.buildKey(name, tags)
	m.counters[key]++
	m.logger.Printf("METRIC COUNTER %s=%d %s", name, m.counters[key], formatTags(m.merged(tags)))
}

// RecordHistogram records a histogram value
func (m *StdoutMetrics) RecordHistogram(name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Printf("METRIC HISTOGRAM %s=%g %s", name, value, formatTags(m.merged(tags)))
}

// RecordGauge records a gauge value
func (m *StdoutMetrics) RecordGauge(name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := m.buildKey(name, tags)
	m.gauges[key] = value
	m.logger.Printf("METRIC GAUGE %s=%g %s", name, value, formatTags(m.merged(tags)))
}

// WithTags returns a new Metrics instance with additional default tags.
// The in-memory stores are shared with the parent.
func (m *StdoutMetrics) WithTags(tags map[string]string) ports.Metrics {
	return &StdoutMetrics{
		tags:     m.merged(tags),
		logger:   m.logger,
		mu:       m.mu,
		counters: m.counters,
		gauges:   m.gauges,
	}
}

// GetCounter returns the current value of a counter (useful for testing)
func (m *StdoutMetrics) GetCounter(name string, tags map[string]string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[m.buildKey(name, tags)]
}

func (m *StdoutMetrics) merged(tags map[string]string) map[string]string {
	out := make(map[string]string, len(m.tags)+len(tags))
	for k, v := range m.tags {
		out[k] = v
	}
	for k, v := range tags {
		out[k] = v
	}
	return out
}

func (m *StdoutMetrics) buildKey(name string, tags map[string]string) string {
	return name + "{" + formatTags(m.merged(tags)) + "}"
}

func formatTags(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, tags[k]))
	}
	return strings.Join(parts, ",")
}
