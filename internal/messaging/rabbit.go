// internal/messaging/rabbit.go
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"hospitality-ops/internal/metrics"
	"hospitality-ops/internal/model"
)

// QueueName is the durable queue holding a tenant's domain events.
func QueueName(tenantID string) string {
	return fmt.Sprintf("tenant_%s_events", tenantID)
}

func dlqName(tenantID string) string {
	return fmt.Sprintf("tenant_%s_events_dlq", tenantID)
}

type RabbitClient struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	URL     string
	log     *zap.Logger

	mu       sync.Mutex
	declared map[string]bool
}

func NewRabbitClient(url string, log *zap.Logger) (*RabbitClient, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	return &RabbitClient{
		conn:     conn,
		channel:  ch,
		URL:      url,
		log:      log.With(zap.String("component", "rabbit")),
		declared: make(map[string]bool),
	}, nil
}

func (r *RabbitClient) GetChannel() *amqp.Channel {
	return r.channel
}

func (r *RabbitClient) GetConnection() *amqp.Connection {
	return r.conn
}

// DeclareQueue creates a tenant-specific durable event queue and its DLQ.
func (r *RabbitClient) DeclareQueue(tenantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.declareLocked(tenantID)
}

func (r *RabbitClient) declareLocked(tenantID string) error {
	if r.declared[tenantID] {
		return nil
	}

	dlq := dlqName(tenantID)
	_, err := r.channel.QueueDeclare(
		dlq,
		true, false, false, false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": dlq,
	}
	_, err = r.channel.QueueDeclare(
		QueueName(tenantID),
		true, false, false, false,
		args,
	)
	if err != nil {
		return fmt.Errorf("declare main queue: %w", err)
	}

	r.declared[tenantID] = true
	r.log.Info("Queues declared", zap.String("tenant", tenantID))
	return nil
}

// Emit publishes a domain event to the tenant's queue, declaring it on first use.
func (r *RabbitClient) Emit(_ context.Context, e model.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.declareLocked(e.TenantID); err != nil {
		return err
	}

	queueName := QueueName(e.TenantID)
	err = r.channel.Publish(
		"",        // default exchange
		queueName, // routing key (queue name)
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    e.ID,
			Type:         e.Name,
			Timestamp:    e.OccurredAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to queue %s: %w", queueName, err)
	}
	return nil
}

// Close cleans up connection and channel
func (r *RabbitClient) Close() error {
	if err := r.channel.Close(); err != nil {
		return err
	}
	if err := r.conn.Close(); err != nil {
		return err
	}
	return nil
}

func (r *RabbitClient) UpdateQueueDepth(tenantID string) {
	r.mu.Lock()
	q, err := r.channel.QueueInspect(QueueName(tenantID))
	r.mu.Unlock()
	if err != nil {
		r.log.Warn("Failed to inspect queue", zap.String("tenant", tenantID), zap.Error(err))
		return
	}

	metrics.QueueDepth.WithLabelValues(tenantID).Set(float64(q.Messages))
}
