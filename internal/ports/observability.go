package ports

// Observability hands out loggers and metrics, optionally scoped to a
// pipeline component so every line and sample carries service, environment
// and component context.
type Observability interface {
	// Components returns the root logger and metrics without scoping.
	Components() (Logger, Metrics, error)

	// ComponentsScoped returns logger and metrics tagged with the component.
	ComponentsScoped(component string) (Logger, Metrics, error)

	// Logger returns the root logger.
	Logger() (Logger, error)

	// LoggerScoped returns a logger tagged with the component.
	LoggerScoped(component string) (Logger, error)

	// Metrics returns the root metrics.
	Metrics() (Metrics, error)

	// MetricsScoped returns metrics tagged with the component.
	MetricsScoped(component string) (Metrics, error)
}

// Logger is the structured logger used across the pipeline. Fields are
// alternating key-value pairs.
type Logger interface {
	// Info records normal operation: state transitions, completed
	// downloads, pass summaries.
	Info(msg string, fields ...interface{})

	// Error records a failure together with the error. Pass the actual
	// error value; implementations extract type and message from it.
	Error(msg string, fields ...interface{})

	// WithFields returns a Logger that adds the fields to every entry.
	// Used to pin session_id or component onto a whole code path.
	WithFields(fields map[string]interface{}) Logger
}

// Metrics records counters, distributions and point-in-time values.
type Metrics interface {
	// IncrementCounter counts discrete events: attempts, retries,
	// completed runs.
	IncrementCounter(name string, tags map[string]string)

	// RecordHistogram records a sample in a distribution: download
	// durations, artifact sizes.
	RecordHistogram(name string, value float64, tags map[string]string)

	// RecordGauge records a point-in-time measurement.
	RecordGauge(name string, value float64, tags map[string]string)

	// WithTags returns a Metrics that adds the tags to every observation.
	WithTags(tags map[string]string) Metrics
}
