package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Core settings
	Environment string
	ServiceName string
	LogLevel    string

	// Component configurations
	Database  DatabaseConfig
	Storage   StorageConfig
	Queue     QueueConfig
	Registry  RegistryConfig
	Retry     RetryConfig
	Processor ProcessorConfig
	Transport TransportConfig
	Pipeline  PipelineConfig
	Metrics   MetricsConfig
}

// DatabaseConfig holds postgres connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	MaxOpenConns int
	MaxIdleConns int
}

// DSN builds the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.Username, d.Password, d.Database, d.SSLMode)
}

// StorageConfig selects and configures the artifact store
type StorageConfig struct {
	// Adapter is "fs" or "s3"
	Adapter string
	// Bucket is the artifact namespace: the S3 bucket name, or the
	// directory under the filesystem base path
	Bucket string

	FS FSConfig
	S3 S3Config
}

// FSConfig holds filesystem adapter settings
type FSConfig struct {
	// BasePath is the root directory buckets live under
	BasePath string
}

// S3Config holds S3 credentials and endpoint overrides
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	// PathStyle forces path-style addressing; implied by a custom Endpoint
	PathStyle bool
}

// QueueConfig holds run-event publishing settings
type QueueConfig struct {
	// Adapter is "rabbitmq" or "noop"
	Adapter string
	URL     string
	// Exchange the run events are published to
	Exchange string
	// RoutingKey for run lifecycle events
	RoutingKey string
}

// RegistryConfig points at the product source registry file
type RegistryConfig struct {
	// Path to the YAML registry; empty means built-in defaults only
	Path string
}

// RetryConfig holds the per-source download retry policy
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      float64
}

// ProcessorConfig describes the external processing engine invocation
type ProcessorConfig struct {
	// Command is the engine executable; empty selects the noop processor
	Command string
	// Args are fixed arguments placed before the generated ones
	Args []string
	// Timeout bounds one engine invocation
	Timeout time.Duration
	// WorkDir is the engine working directory; empty inherits
	WorkDir string
	// Stations restricts processing to the listed station codes; empty
	// means every station the engine is configured for
	Stations []string
}

// TransportConfig holds download connection settings
type TransportConfig struct {
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	UserAgent      string
}

// PipelineConfig bounds pipeline concurrency
type PipelineConfig struct {
	// MaxParallelCategories caps concurrent category resolutions per window
	MaxParallelCategories int
	// MaxParallelWindows caps concurrent windows in range mode
	MaxParallelWindows int
}

// MetricsConfig selects the metrics backend
type MetricsConfig struct {
	// Adapter is "prometheus" or "stdout"
	Adapter string
	// Addr is the prometheus scrape listener; empty disables the listener
	Addr string
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	var errs []string

	if c.ServiceName == "" {
		errs = append(errs, "SERVICE_NAME is required")
	}

	switch c.Storage.Adapter {
	case "fs", "s3":
	default:
		errs = append(errs, fmt.Sprintf("STORAGE_ADAPTER must be fs or s3, got %q", c.Storage.Adapter))
	}
	if c.Storage.Bucket == "" {
		errs = append(errs, "STORAGE_BUCKET is required")
	}
	if c.Storage.Adapter == "fs" && c.Storage.FS.BasePath == "" {
		errs = append(errs, "STORAGE_FS_PATH is required when STORAGE_ADAPTER=fs")
	}

	switch c.Queue.Adapter {
	case "rabbitmq", "noop":
	default:
		errs = append(errs, fmt.Sprintf("QUEUE_ADAPTER must be rabbitmq or noop, got %q", c.Queue.Adapter))
	}
	if c.Queue.Adapter == "rabbitmq" && c.Queue.URL == "" {
		errs = append(errs, "QUEUE_URL is required when QUEUE_ADAPTER=rabbitmq")
	}

	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, "RETRY_MAX_ATTEMPTS must be at least 1")
	}
	if c.Retry.BaseDelay <= 0 {
		errs = append(errs, "RETRY_BASE_DELAY must be positive")
	}
	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		errs = append(errs, "RETRY_MAX_DELAY must be at least RETRY_BASE_DELAY")
	}
	if c.Retry.Jitter < 0 || c.Retry.Jitter > 1 {
		errs = append(errs, "RETRY_JITTER must be in [0,1]")
	}

	if c.Processor.Timeout <= 0 {
		errs = append(errs, "PROCESSOR_TIMEOUT must be positive")
	}
	if c.Transport.ConnectTimeout <= 0 {
		errs = append(errs, "TRANSPORT_CONNECT_TIMEOUT must be positive")
	}
	if c.Pipeline.MaxParallelCategories < 1 {
		errs = append(errs, "PIPELINE_MAX_PARALLEL_CATEGORIES must be at least 1")
	}
	if c.Pipeline.MaxParallelWindows < 1 {
		errs = append(errs, "PIPELINE_MAX_PARALLEL_WINDOWS must be at least 1")
	}

	if c.IsProduction() {
		if c.Database.Password == "" {
			errs = append(errs, "DB_PASSWORD is required in production")
		}
	}
	if c.Metrics.Adapter == "stdout" && !c.IsLocal() && !c.IsTest() {
		errs = append(errs, "METRICS_ADAPTER stdout is only for local and test environments")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
