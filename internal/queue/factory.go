package queue

import (
	"fmt"

	"github.com/georgisalene/gnss-rt/internal/config"
	"github.com/georgisalene/gnss-rt/internal/ports"
)

// New creates the queue adapter named by the configuration.
func New(cfg *config.QueueConfig, obs ports.Observability) (ports.Queue, error) {
	logger, err := obs.LoggerScoped("queue.factory")
	if err != nil {
		return nil, fmt.Errorf("failed to get logger from observability: %w", err)
	}

	switch cfg.Adapter {
	case "rabbitmq":
		logger.Info("Creating RabbitMQ queue adapter", "exchange", cfg.Exchange)
		return NewRabbitMQ(cfg, obs)

	case "noop", "":
		return NewNoop(logger), nil

	default:
		return nil, fmt.Errorf("unsupported queue adapter: %s", cfg.Adapter)
	}
}
