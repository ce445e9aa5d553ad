package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/georgisalene/gnss-rt/internal/config"
	"github.com/georgisalene/gnss-rt/internal/ports"
)

// rabbitQueue publishes run lifecycle events to a durable topic exchange.
// Message targets map to routing keys; consumers bind their own queues.
type rabbitQueue struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	logger   ports.Logger
	metrics  ports.Metrics
}

func NewRabbitMQ(cfg *config.QueueConfig, obs ports.Observability) (ports.Queue, error) {
	logger, metrics, err := obs.ComponentsScoped("queue.rabbitmq")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}

	conn, err := amqp091.Dial(cfg.URL)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		logger.Error("failed to create channel", "error", err)
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	if err := channel.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // kind
		true,         // durable
		false,        // auto-delete
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	); err != nil {
		channel.Close()
		conn.Close()
		logger.Error("failed to declare exchange", "error", err, "exchange", cfg.Exchange)
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	logger.Info("RabbitMQ queue initialized", "exchange", cfg.Exchange)

	return &rabbitQueue{
		conn:     conn,
		channel:  channel,
		exchange: cfg.Exchange,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

func (q *rabbitQueue) Publish(ctx context.Context, message *ports.QueueMessage) error {
	startTime := time.Now()
	defer func() {
		q.metrics.RecordHistogram("queue.publish.duration",
			time.Since(startTime).Seconds(),
			map[string]string{"target": message.Target})
	}()

	body, err := json.Marshal(message.Body)
	if err != nil {
		q.logger.Error("failed to marshal message", "error", err)
		q.metrics.IncrementCounter("queue.publish.error",
			map[string]string{"target": message.Target, "error": "marshal_failed"})
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = q.channel.PublishWithContext(
		ctx,
		q.exchange,
		message.Target, // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			DeliveryMode: amqp091.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		q.logger.Error("failed to publish message", "error", err, "target", message.Target)
		q.metrics.IncrementCounter("queue.publish.error",
			map[string]string{"target": message.Target, "error": "publish_failed"})
		return fmt.Errorf("failed to publish message: %w", err)
	}

	q.logger.Info("message published", "target", message.Target, "size", len(body))
	q.metrics.IncrementCounter("queue.publish.success",
		map[string]string{"target": message.Target})

	return nil
}

func (q *rabbitQueue) Close() error {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}
