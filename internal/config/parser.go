package config

import "strings"

// parse reads configuration from environment variables
func parse() (*Config, error) {
	cfg := &Config{
		// Core
		Environment: getEnv("ENVIRONMENT", "local"),
		ServiceName: getEnv("SERVICE_NAME", "gnss-rt"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Database Configuration
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getInt("DB_PORT", 5432),
			Database: getEnv("DB_NAME", "gnssrt"),
			Username: getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),

			// Connection pool
			MaxOpenConns: getInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getInt("DB_MAX_IDLE_CONNS", 5),
		},

		// Storage Configuration
		Storage: StorageConfig{
			Adapter: getEnv("STORAGE_ADAPTER", "fs"),
			Bucket:  getEnv("STORAGE_BUCKET", "products"),
			FS: FSConfig{
				BasePath: getEnv("STORAGE_FS_PATH", "/var/lib/gnssrt"),
			},
			S3: S3Config{
				Region:          getEnv("AWS_REGION", "us-east-1"),
				AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
				SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
				Endpoint:        getEnv("S3_ENDPOINT", ""),
				PathStyle:       getBool("STORAGE_S3_PATH_STYLE", false),
			},
		},

		// Queue Configuration
		Queue: QueueConfig{
			Adapter:    getEnv("QUEUE_ADAPTER", "noop"),
			URL:        getEnv("QUEUE_URL", ""),
			Exchange:   getEnv("QUEUE_EXCHANGE", "gnssrt.runs"),
			RoutingKey: getEnv("QUEUE_ROUTING_KEY", "run.event"),
		},

		// Registry Configuration
		Registry: RegistryConfig{
			Path: getEnv("REGISTRY_PATH", ""),
		},

		// Retry Configuration
		Retry: RetryConfig{
			MaxAttempts: getInt("RETRY_MAX_ATTEMPTS", 5),
			BaseDelay:   getDuration("RETRY_BASE_DELAY", "30s"),
			MaxDelay:    getDuration("RETRY_MAX_DELAY", "10m"),
			Jitter:      getFloat64("RETRY_JITTER", 0.1),
		},

		// Processor Configuration
		Processor: ProcessorConfig{
			Command:  getEnv("PROCESSOR_COMMAND", ""),
			Args:     splitArgs(getEnv("PROCESSOR_ARGS", "")),
			Timeout:  getDuration("PROCESSOR_TIMEOUT", "30m"),
			WorkDir:  getEnv("PROCESSOR_WORKDIR", ""),
			Stations: SplitList(getEnv("PROCESSOR_STATIONS", "")),
		},

		// Transport Configuration
		Transport: TransportConfig{
			ConnectTimeout: getDuration("TRANSPORT_CONNECT_TIMEOUT", "30s"),
			RequestTimeout: getDuration("TRANSPORT_REQUEST_TIMEOUT", "5m"),
			UserAgent:      getEnv("TRANSPORT_USER_AGENT", "gnss-rt/1.0"),
		},

		// Pipeline Configuration
		Pipeline: PipelineConfig{
			MaxParallelCategories: getInt("PIPELINE_MAX_PARALLEL_CATEGORIES", 6),
			MaxParallelWindows:    getInt("PIPELINE_MAX_PARALLEL_WINDOWS", 4),
		},

		// Metrics Configuration
		Metrics: MetricsConfig{
			Adapter: getEnv("METRICS_ADAPTER", "prometheus"),
			Addr:    getEnv("METRICS_ADDR", ""),
		},
	}

	return cfg, nil
}

// splitArgs splits a whitespace separated argument string; quoting is not
// supported, use PROCESSOR_ARGS for simple flags only.
func splitArgs(s string) []string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// SplitList splits a comma or whitespace separated list, dropping empty
// entries.
func SplitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(fields) == 0 {
		return nil
	}
	return fields
}
