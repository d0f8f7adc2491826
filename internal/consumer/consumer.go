// Package consumer drains a tenant's event queue into its worker pool.
package consumer

import (
	"fmt"
	"sync"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"hospitality-ops/internal/messaging"
	"hospitality-ops/internal/worker"
)

// prefetchPerWorker bounds the unacked deliveries the broker hands out.
const prefetchPerWorker = 2

// Consumer is one running tenant subscription.
type Consumer struct {
	tenantID string
	queue    string
	tag      string
	ch       *amqp.Channel
	pool     *worker.WorkerPool
	log      *zap.Logger

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// StartConsumer opens a dedicated channel on conn and feeds the tenant's event
// queue into pool.
func StartConsumer(conn *amqp.Connection, tenantID string, pool *worker.WorkerPool, log *zap.Logger) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("tenant %s: failed to open channel: %w", tenantID, err)
	}
	if err := ch.Qos(pool.WorkerCount()*prefetchPerWorker, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("tenant %s: failed to set prefetch: %w", tenantID, err)
	}

	c := &Consumer{
		tenantID: tenantID,
		queue:    messaging.QueueName(tenantID),
		tag:      "consumer-" + tenantID,
		ch:       ch,
		pool:     pool,
		log:      log.With(zap.String("component", "consumer"), zap.String("tenant", tenantID)),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	// Manual ack: the pool acks once the event is stored.
	deliveries, err := ch.Consume(c.queue, c.tag, false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("tenant %s: failed to start consuming: %w", tenantID, err)
	}

	pool.Start()
	go c.forward(deliveries)

	c.log.Info("Started consumer", zap.String("queue", c.queue))
	return c, nil
}

// Queue is the name of the consumed queue.
func (c *Consumer) Queue() string { return c.queue }

func (c *Consumer) forward(deliveries <-chan amqp.Delivery) {
	defer close(c.done)

	for {
		select {
		case d, ok := <-deliveries:
			if !ok {
				c.log.Info("Delivery channel closed")
				return
			}
			if !c.pool.Submit(d) {
				// Pool is gone; hand the event back to the broker.
				_ = d.Nack(false, true)
				return
			}
		case <-c.stop:
			_ = c.ch.Cancel(c.tag, false)
			return
		}
	}
}

// Stop cancels the subscription, drains the pool and closes the channel.
// Calling it more than once is a no-op.
func (c *Consumer) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
		<-c.done
		c.pool.Stop()
		_ = c.ch.Close()
		c.log.Info("Stopped consumer")
	})
}

// SetWorkerCount rescales the pool and the broker prefetch to match.
func (c *Consumer) SetWorkerCount(n int) {
	c.pool.SetWorkerCount(n)
	if err := c.ch.Qos(c.pool.WorkerCount()*prefetchPerWorker, 0, false); err != nil {
		c.log.Warn("Failed to update prefetch", zap.Error(err))
	}
}
