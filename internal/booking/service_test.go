package booking

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hospitality-ops/internal/apperr"
	"hospitality-ops/internal/model"
	"hospitality-ops/internal/storage"
	"hospitality-ops/internal/store"
)

var fixedNow = time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)

type recordingSink struct {
	mu     sync.Mutex
	events []model.Event
}

func (r *recordingSink) Emit(_ context.Context, e model.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func newService(t *testing.T) (*Service, *store.Store, *recordingSink) {
	t.Helper()
	fs := storage.NewFileStorage(filepath.Join(t.TempDir(), "data.json"))
	st := store.New(fs, zap.NewNop(), store.WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, st.Load(context.Background()))

	sink := &recordingSink{}
	return NewService(st, sink, zap.NewNop(), WithClock(func() time.Time { return fixedNow })), st, sink
}

func TestCreateOverlapScenario(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	_, err := svc.Create(ctx, "t1", NewBooking{UnitID: "u1", StartDate: "2024-01-10", EndDate: "2024-01-15"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, "t1", NewBooking{UnitID: "u1", StartDate: "2024-01-14", EndDate: "2024-01-20"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	b, err := svc.Create(ctx, "t1", NewBooking{UnitID: "u1", StartDate: "2024-01-15", EndDate: "2024-01-20"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), b.StartDate)

	assert.Len(t, svc.List("t1"), 2)
}

func TestCreateAppliesDefaults(t *testing.T) {
	svc, _, sink := newService(t)

	b, err := svc.Create(context.Background(), "t1", NewBooking{
		UnitID:    "u1",
		GuestName: "Ana",
		StartDate: "2024-02-01T14:00:00Z",
		EndDate:   "2024-02-03T10:00:00Z",
	})
	require.NoError(t, err)

	assert.Regexp(t, `^b-[0-9a-f-]{36}$`, b.ID)
	assert.Equal(t, model.SourceDirect, b.Source)
	assert.Equal(t, model.BookingConfirmed, b.Status)
	assert.Zero(t, b.Price)
	assert.Equal(t, fixedNow, b.CreatedAt)

	require.Len(t, sink.events, 1)
	e := sink.events[0]
	assert.Equal(t, model.EventBookingCreated, e.Name)
	assert.Equal(t, "t1", e.TenantID)

	var payload CreatedEvent
	require.NoError(t, json.Unmarshal(e.Payload, &payload))
	assert.Equal(t, b.ID, payload.Booking.ID)
	assert.Equal(t, "t1", payload.TenantID)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		req  NewBooking
	}{
		{"missing unit", NewBooking{StartDate: "2024-01-10", EndDate: "2024-01-12"}},
		{"missing start", NewBooking{UnitID: "u1", EndDate: "2024-01-12"}},
		{"bad date", NewBooking{UnitID: "u1", StartDate: "10/01/2024", EndDate: "2024-01-12"}},
		{"start equals end", NewBooking{UnitID: "u1", StartDate: "2024-01-10", EndDate: "2024-01-10"}},
		{"start after end", NewBooking{UnitID: "u1", StartDate: "2024-01-12", EndDate: "2024-01-10"}},
		{"negative price", NewBooking{UnitID: "u1", StartDate: "2024-01-10", EndDate: "2024-01-12", Price: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, st, sink := newService(t)

			_, err := svc.Create(context.Background(), "t1", tt.req)
			require.Error(t, err)
			assert.True(t, apperr.HasCode(err, apperr.CodeInvalidInput), "got %v", err)
			assert.Empty(t, st.GetTenantData("t1").Bookings)
			assert.Empty(t, sink.events)
		})
	}
}

func TestCancelledBookingsDoNotBlock(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	b, err := svc.Create(ctx, "t1", NewBooking{UnitID: "u1", StartDate: "2024-01-10", EndDate: "2024-01-15"})
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, "t1", b.ID, model.BookingCancelled)
	require.NoError(t, err)

	_, err = svc.Create(ctx, "t1", NewBooking{UnitID: "u1", StartDate: "2024-01-12", EndDate: "2024-01-14"})
	require.NoError(t, err)

	// Re-activating the cancelled booking now collides.
	_, err = svc.SetStatus(ctx, "t1", b.ID, model.BookingConfirmed)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestOtherUnitsAndTenantsAreIndependent(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	req := NewBooking{UnitID: "u1", StartDate: "2024-01-10", EndDate: "2024-01-15"}
	_, err := svc.Create(ctx, "t1", req)
	require.NoError(t, err)

	_, err = svc.Create(ctx, "t2", req)
	require.NoError(t, err)

	req.UnitID = "u2"
	_, err = svc.Create(ctx, "t1", req)
	require.NoError(t, err)
}

func TestCreateValidatesCleaner(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	_, err := svc.Create(ctx, store.DemoTenantID, NewBooking{
		UnitID: "u4", StartDate: "2024-06-01", EndDate: "2024-06-05", AssignedCleanerID: "nobody",
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	b, err := svc.Create(ctx, store.DemoTenantID, NewBooking{
		UnitID: "u4", StartDate: "2024-06-01", EndDate: "2024-06-05", AssignedCleanerID: "s2",
	})
	require.NoError(t, err)
	assert.Equal(t, "s2", b.AssignedCleanerID)
}

func TestAssignCleaner(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newService(t)

	b, err := svc.AssignCleaner(ctx, store.DemoTenantID, "b2", "s2")
	require.NoError(t, err)
	assert.Equal(t, "s2", b.AssignedCleanerID)

	_, err = svc.AssignCleaner(ctx, store.DemoTenantID, "missing", "s2")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.AssignCleaner(ctx, store.DemoTenantID, "b2", "s9")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	for _, got := range st.GetTenantData(store.DemoTenantID).Bookings {
		if got.ID == "b2" {
			assert.Equal(t, "s2", got.AssignedCleanerID)
		}
	}
}

func TestConcurrentCreatesAdmitOne(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newService(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Create(ctx, "t1", NewBooking{UnitID: "u1", StartDate: "2024-01-10", EndDate: "2024-01-15"})
		}()
	}
	wg.Wait()

	assert.Len(t, st.GetTenantData("t1").Bookings, 1)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-01-10")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("2024-01-10T15:04:05.000Z")
	require.NoError(t, err)
	assert.Equal(t, 15, d.Hour())

	_, err = ParseDate("tomorrow")
	assert.Error(t, err)
}
