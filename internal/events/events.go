// Package events defines the notification sink the core emits domain events
// to. Emission is fire-and-forget: a failing sink never fails the operation
// that produced the event.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hospitality-ops/internal/model"
)

type Sink interface {
	Emit(ctx context.Context, e model.Event) error
}

// NewEvent builds an envelope with a time-ordered id.
func NewEvent(tenantID, name string, payload any, now time.Time) (model.Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return model.Event{}, fmt.Errorf("encode %s payload: %w", name, err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return model.Event{}, fmt.Errorf("event id: %w", err)
	}
	return model.Event{
		ID:         id.String(),
		TenantID:   tenantID,
		Name:       name,
		Payload:    raw,
		OccurredAt: now.UTC(),
	}, nil
}

// Fire emits an event and logs instead of returning failures.
func Fire(ctx context.Context, sink Sink, log *zap.Logger, tenantID, name string, payload any) {
	if sink == nil {
		return
	}
	e, err := NewEvent(tenantID, name, payload, time.Now())
	if err == nil {
		err = sink.Emit(ctx, e)
	}
	if err != nil {
		log.Warn("Failed to emit event",
			zap.String("tenant", tenantID),
			zap.String("event", name),
			zap.Error(err))
	}
}

// LogSink only logs events. Used when no broker is configured.
type LogSink struct {
	Log *zap.Logger
}

func (s LogSink) Emit(_ context.Context, e model.Event) error {
	s.Log.Debug("Event", zap.String("tenant", e.TenantID), zap.String("event", e.Name), zap.String("id", e.ID))
	return nil
}
