// internal/manager/tenant_manager.go
package manager

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"hospitality-ops/internal/apperr"
	"hospitality-ops/internal/consumer"
	"hospitality-ops/internal/messaging"
	"hospitality-ops/internal/model"
	"hospitality-ops/internal/worker"
)

// EventLog is where consumed tenant events end up.
type EventLog interface {
	EnsurePartition(ctx context.Context, tenantID string) error
	InsertEvent(ctx context.Context, e *model.Event) error
}

// TenantManager runs one event consumer per tenant.
type TenantManager struct {
	rabbitConn *amqp.Connection
	rabbit     *messaging.RabbitClient
	events     EventLog
	workers    int
	log        *zap.Logger

	mu        sync.RWMutex
	consumers map[string]*consumer.Consumer
}

func NewTenantManager(
	rabbit *messaging.RabbitClient,
	events EventLog,
	workers int,
	log *zap.Logger,
) *TenantManager {
	return &TenantManager{
		rabbitConn: rabbit.GetConnection(),
		rabbit:     rabbit,
		events:     events,
		workers:    workers,
		log:        log.With(zap.String("component", "tenant-manager")),
		consumers:  make(map[string]*consumer.Consumer),
	}
}

// AddTenant creates the event log partition and the queue, then spawns the consumer
func (tm *TenantManager) AddTenant(ctx context.Context, tenantID string) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if _, exists := tm.consumers[tenantID]; exists {
		return nil
	}

	if err := tm.events.EnsurePartition(ctx, tenantID); err != nil {
		return fmt.Errorf("tenant %s: %w", tenantID, err)
	}

	if err := tm.rabbit.DeclareQueue(tenantID); err != nil {
		return fmt.Errorf("tenant %s: %w", tenantID, err)
	}

	pool := worker.NewWorkerPool(tenantID, tm.workers, tm.handleEvent, tm.log)
	c, err := consumer.StartConsumer(tm.rabbitConn, tenantID, pool, tm.log)
	if err != nil {
		return err
	}
	tm.consumers[tenantID] = c

	tm.log.Info("Tenant added and consumer started", zap.String("tenant", tenantID))
	return nil
}

// ShutdownAll stops every tenant consumer
func (tm *TenantManager) ShutdownAll() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	for id, c := range tm.consumers {
		c.Stop()
		tm.log.Info("Stopped tenant", zap.String("tenant", id))
	}
	tm.consumers = make(map[string]*consumer.Consumer)
}

func (tm *TenantManager) handleEvent(ctx context.Context, e *model.Event) error {
	if err := tm.events.InsertEvent(ctx, e); err != nil {
		return fmt.Errorf("store event %s: %w", e.ID, err)
	}
	return nil
}

// ListTenantIDs returns all currently registered tenant ids, sorted
func (tm *TenantManager) ListTenantIDs() []string {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	ids := make([]string, 0, len(tm.consumers))
	for id := range tm.consumers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SetWorkerCount rescales the event workers of a running tenant pipeline.
func (tm *TenantManager) SetWorkerCount(tenantID string, n int) error {
	if n < 1 {
		return apperr.InvalidInput("workers must be at least 1")
	}

	tm.mu.RLock()
	defer tm.mu.RUnlock()

	c, ok := tm.consumers[tenantID]
	if !ok {
		return apperr.NotFound("no event pipeline for tenant " + tenantID)
	}
	c.SetWorkerCount(n)
	tm.log.Info("Worker count updated", zap.String("tenant", tenantID), zap.Int("workers", n))
	return nil
}
