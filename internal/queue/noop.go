package queue

import (
	"context"

	"github.com/georgisalene/gnss-rt/internal/ports"
)

// noopQueue drops every message. Used when no downstream consumer exists.
type noopQueue struct {
	logger ports.Logger
}

func NewNoop(logger ports.Logger) ports.Queue {
	return &noopQueue{logger: logger}
}

func (q *noopQueue) Publish(ctx context.Context, message *ports.QueueMessage) error {
	q.logger.Info("dropping event, no queue configured", "target", message.Target)
	return nil
}

func (q *noopQueue) Close() error { return nil }
