package storage

import (
	"fmt"

	"github.com/georgisalene/gnss-rt/internal/config"
	"github.com/georgisalene/gnss-rt/internal/ports"
)

// New creates the configured storage adapter.
func New(cfg *config.Config, obs ports.Observability) (ports.Storage, error) {
	logger, metrics, err := obs.ComponentsScoped("storage")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability: %w", err)
	}

	switch cfg.Storage.Adapter {
	case "s3":
		logger.Info("Creating S3 storage adapter",
			"bucket", cfg.Storage.Bucket,
			"region", cfg.Storage.S3.Region)
		return NewS3(&cfg.Storage, logger, metrics)

	case "fs":
		logger.Info("Creating filesystem storage adapter",
			"path", cfg.Storage.FS.BasePath,
			"bucket", cfg.Storage.Bucket)
		return NewFilesystem(cfg.Storage.FS.BasePath, logger, metrics)

	default:
		return nil, fmt.Errorf("unsupported storage adapter: %s", cfg.Storage.Adapter)
	}
}
