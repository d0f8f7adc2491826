// internal/model/event.go
package model

import (
	"encoding/json"
	"time"
)

const (
	EventBookingCreated  = "booking.created"
	EventMessageReceived = "message.received"
	EventMessageSent     = "message.sent"
	EventMessageFailed   = "message.failed"
)

// Event is the envelope published to a tenant's event queue and kept in the
// event log.
type Event struct {
	ID         string          `json:"id" db:"id"`
	TenantID   string          `json:"tenantId" db:"tenant_id"`
	Name       string          `json:"name" db:"name"`
	Payload    json.RawMessage `json:"payload" db:"payload"`
	OccurredAt time.Time       `json:"occurredAt" db:"occurred_at"`
}
