// Package observability wires structured logging and metrics for the
// acquisition pipeline.
package observability

import (
	"fmt"

	"github.com/georgisalene/gnss-rt/internal/config"
	"github.com/georgisalene/gnss-rt/internal/ports"
)

type observability struct {
	config  *config.Config
	logger  ports.Logger
	metrics ports.Metrics
}

// New creates the observability provider for the configured backends.
func New(cfg *config.Config) (ports.Observability, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	logger := NewLogger()

	var metrics ports.Metrics
	switch cfg.Metrics.Adapter {
	case "prometheus":
		metrics = NewPrometheusMetrics(metricName(cfg.ServiceName))
	case "stdout", "":
		metrics = NewStdoutMetrics()
	default:
		return nil, fmt.Errorf("unknown metrics adapter %q", cfg.Metrics.Adapter)
	}

	return &observability{
		config:  cfg,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Components returns logger and metrics without any scoping
func (obs *observability) Components() (ports.Logger, ports.Metrics, error) {
	if obs.logger == nil || obs.metrics == nil {
		return nil, nil, fmt.Errorf("observability not initialized")
	}
	return obs.logger, obs.metrics, nil
}

// ComponentsScoped returns logger and metrics scoped to a specific component
func (obs *observability) ComponentsScoped(component string) (ports.Logger, ports.Metrics, error) {
	if obs.logger == nil || obs.metrics == nil {
		return nil, nil, fmt.Errorf("observability not initialized")
	}
	return obs.getScopedLogger(component), obs.getScopedMetrics(component), nil
}

// Logger returns the root logger without scoping
func (obs *observability) Logger() (ports.Logger, error) {
	if obs.logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	return obs.logger, nil
}

// LoggerScoped returns a logger scoped to a specific component
func (obs *observability) LoggerScoped(component string) (ports.Logger, error) {
	if obs.logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	return obs.getScopedLogger(component), nil
}

// Metrics returns the root metrics without scoping
func (obs *observability) Metrics() (ports.Metrics, error) {
	if obs.metrics == nil {
		return nil, fmt.Errorf("metrics not initialized")
	}
	return obs.metrics, nil
}

// MetricsScoped returns metrics scoped to a specific component
func (obs *observability) MetricsScoped(component string) (ports.Metrics, error) {
	if obs.metrics == nil {
		return nil, fmt.Errorf("metrics not initialized")
	}
	return obs.getScopedMetrics(component), nil
}

// getScopedLogger creates a logger with component and service context
func (obs *observability) getScopedLogger(component string) ports.Logger {
	return obs.logger.WithFields(map[string]interface{}{
		"service":   obs.config.ServiceName,
		"env":       obs.config.Environment,
		"component": component,
	})
}

// getScopedMetrics creates metrics with component and service tags
func (obs *observability) getScopedMetrics(component string) ports.Metrics {
	return obs.metrics.WithTags(map[string]string{
		"service":   obs.config.ServiceName,
		"env":       obs.config.Environment,
		"component": component,
	})
}

// metricName normalizes the service name into a valid metric prefix.
func metricName(service string) string {
	out := make([]byte, 0, len(service))
	for i := 0; i < len(service); i++ {
		c := service[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
