package worker

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"hospitality-ops/internal/metrics"
	"hospitality-ops/internal/model"
)

// HandlerFunc processes one decoded tenant event.
type HandlerFunc func(ctx context.Context, e *model.Event) error

// WorkerPool fans the deliveries of one tenant queue out to a fixed number of
// goroutines. Failed deliveries are rejected without requeue so the broker
// moves them to the tenant's DLQ.
type WorkerPool struct {
	tenantID string
	handler  HandlerFunc
	log      *zap.Logger

	jobs chan amqp.Delivery
	done chan struct{}

	mu      sync.Mutex
	workers int
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func NewWorkerPool(tenantID string, workerCount int, handler HandlerFunc, log *zap.Logger) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &WorkerPool{
		tenantID: tenantID,
		handler:  handler,
		log:      log.With(zap.String("component", "worker"), zap.String("tenant", tenantID)),
		jobs:     make(chan amqp.Delivery),
		done:     make(chan struct{}),
		workers:  workerCount,
	}
}

func (wp *WorkerPool) Start() {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	wp.startLocked()
}

func (wp *WorkerPool) startLocked() {
	wp.log.Info("Starting pool", zap.Int("workers", wp.workers))
	wp.stopCh = make(chan struct{})
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.run(wp.stopCh)
	}
}

func (wp *WorkerPool) run(stop <-chan struct{}) {
	defer wp.wg.Done()
	metrics.WorkerActive.WithLabelValues(wp.tenantID).Add(1)
	defer metrics.WorkerActive.WithLabelValues(wp.tenantID).Sub(1)

	for {
		select {
		case <-stop:
			return
		case msg := <-wp.jobs:
			wp.process(msg)
		}
	}
}

// Submit hands a delivery to the next free worker. It blocks until one is
// available and returns false once the pool is stopped.
func (wp *WorkerPool) Submit(msg amqp.Delivery) bool {
	select {
	case wp.jobs <- msg:
		return true
	case <-wp.done:
		return false
	}
}

// Stop terminates all workers and waits for in-flight events.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	select {
	case <-wp.done:
		return
	default:
	}
	close(wp.done)
	close(wp.stopCh)
	wp.wg.Wait()
	wp.log.Info("Stopped pool")
}

func (wp *WorkerPool) process(msg amqp.Delivery) {
	var e model.Event
	if err := json.Unmarshal(msg.Body, &e); err != nil {
		wp.log.Warn("Failed to parse event", zap.Error(err))
		_ = msg.Reject(false)
		return
	}
	if e.TenantID == "" {
		e.TenantID = wp.tenantID
	}

	if err := wp.handler(context.Background(), &e); err != nil {
		wp.log.Warn("Failed to process event", zap.String("event", e.Name), zap.Error(err))
		_ = msg.Reject(false)
		return
	}

	_ = msg.Ack(false)
	metrics.WorkerProcessed.WithLabelValues(wp.tenantID).Inc()
}

// SetWorkerCount rescales the pool to n goroutines.
func (wp *WorkerPool) SetWorkerCount(n int) {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if n <= 0 || n == wp.workers {
		return
	}
	select {
	case <-wp.done:
		return
	default:
	}

	wp.log.Info("Rescaling worker pool", zap.Int("from", wp.workers), zap.Int("to", n))

	close(wp.stopCh)
	wp.wg.Wait()

	wp.workers = n
	wp.startLocked()
}

// WorkerCount returns the current concurrency level.
func (wp *WorkerPool) WorkerCount() int {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	return wp.workers
}
