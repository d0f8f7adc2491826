package manager

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hospitality-ops/internal/apperr"
	"hospitality-ops/internal/consumer"
	"hospitality-ops/internal/model"
)

type memoryLog struct {
	events []*model.Event
	err    error
}

func (m *memoryLog) EnsurePartition(context.Context, string) error { return nil }

func (m *memoryLog) InsertEvent(_ context.Context, e *model.Event) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}

func TestHandleEventStoresEvent(t *testing.T) {
	log := &memoryLog{}
	tm := &TenantManager{events: log, log: zap.NewNop(), consumers: map[string]*consumer.Consumer{}}

	require.NoError(t, tm.handleEvent(context.Background(), &model.Event{ID: "e1", TenantID: "t1"}))
	require.Len(t, log.events, 1)
	assert.Equal(t, "e1", log.events[0].ID)
}

func TestHandleEventPropagatesStoreFailure(t *testing.T) {
	tm := &TenantManager{events: &memoryLog{err: errors.New("db down")}, log: zap.NewNop()}

	err := tm.handleEvent(context.Background(), &model.Event{ID: "e1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestListTenantIDsSorted(t *testing.T) {
	tm := &TenantManager{consumers: map[string]*consumer.Consumer{"t-b": nil, "t-a": nil}}

	assert.Equal(t, []string{"t-a", "t-b"}, tm.ListTenantIDs())
}

func TestSetWorkerCountUnknownTenant(t *testing.T) {
	tm := &TenantManager{consumers: map[string]*consumer.Consumer{}}

	err := tm.SetWorkerCount("missing", 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSetWorkerCountRejectsNonPositive(t *testing.T) {
	tm := &TenantManager{consumers: map[string]*consumer.Consumer{}}

	assert.ErrorIs(t, tm.SetWorkerCount("t-a", 0), apperr.ErrInvalidInput)
}
