// Package booking admits new reservations into a tenant's calendar. A unit
// never carries two non-cancelled bookings whose [start, end) ranges overlap.
package booking

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"hospitality-ops/internal/apperr"
	"hospitality-ops/internal/events"
	"hospitality-ops/internal/metrics"
	"hospitality-ops/internal/model"
	"hospitality-ops/internal/tracing"
	"hospitality-ops/internal/validation"
)

// TenantStore is the part of the tenant store the service needs.
type TenantStore interface {
	GetTenantData(tenantID string) *model.TenantData
	Update(ctx context.Context, tenantID string, fn func(d *model.TenantData) error) (*model.TenantData, error)
	StaffMember(tenantID, id string) (model.StaffMember, error)
}

// NewBooking is a booking request. Dates are RFC 3339 timestamps or plain
// YYYY-MM-DD dates.
type NewBooking struct {
	ID                string  `json:"id"`
	UnitID            string  `json:"unitId" validate:"notblank"`
	GuestName         string  `json:"guestName"`
	GuestPhone        string  `json:"guestPhone"`
	StartDate         string  `json:"startDate" validate:"notblank"`
	EndDate           string  `json:"endDate" validate:"notblank"`
	Source            string  `json:"source"`
	Status            string  `json:"status"`
	Price             float64 `json:"price" validate:"min=0"`
	AssignedCleanerID string  `json:"assignedCleanerId"`
}

// CreatedEvent is the payload of booking.created.
type CreatedEvent struct {
	Booking  model.Booking `json:"booking"`
	TenantID string        `json:"tenantId"`
}

type Service struct {
	store TenantStore
	sink  events.Sink
	log   *zap.Logger
	now   func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store TenantStore, sink events.Sink, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store: store,
		sink:  sink,
		log:   log.With(zap.String("component", "booking")),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the tenant's bookings in insertion order.
func (s *Service) List(tenantID string) []model.Booking {
	return s.store.GetTenantData(tenantID).Bookings
}

// Create validates req, checks availability and appends the booking. The
// availability check and the insert run in the same partition transaction.
func (s *Service) Create(ctx context.Context, tenantID string, req NewBooking) (b model.Booking, err error) {
	ctx, end := tracing.Start(ctx, "booking.create", tenantID, attribute.String("unit.id", req.UnitID))
	defer func() { end(err) }()

	if err := validation.Validate(req); err != nil {
		s.reject(tenantID, "invalid")
		return model.Booking{}, err
	}
	start, err := ParseDate(req.StartDate)
	if err != nil {
		s.reject(tenantID, "invalid")
		return model.Booking{}, apperr.InvalidInput("invalid startDate")
	}
	endDate, err := ParseDate(req.EndDate)
	if err != nil {
		s.reject(tenantID, "invalid")
		return model.Booking{}, apperr.InvalidInput("invalid endDate")
	}
	if !start.Before(endDate) {
		s.reject(tenantID, "invalid")
		return model.Booking{}, apperr.InvalidInput("endDate must be after startDate")
	}

	if req.AssignedCleanerID != "" {
		if _, err := s.store.StaffMember(tenantID, req.AssignedCleanerID); err != nil {
			s.reject(tenantID, "unknown_cleaner")
			return model.Booking{}, err
		}
	}

	now := s.now()
	b = model.Booking{
		ID:                req.ID,
		UnitID:            strings.TrimSpace(req.UnitID),
		GuestName:         req.GuestName,
		GuestPhone:        req.GuestPhone,
		StartDate:         start,
		EndDate:           endDate,
		Source:            req.Source,
		Status:            req.Status,
		Price:             req.Price,
		CreatedAt:         now,
		AssignedCleanerID: req.AssignedCleanerID,
	}
	if b.ID == "" {
		b.ID = "b-" + uuid.NewString()
	}
	if b.Source == "" {
		b.Source = model.SourceDirect
	}
	if b.Status == "" {
		b.Status = model.BookingConfirmed
	}

	_, err = s.store.Update(ctx, tenantID, func(d *model.TenantData) error {
		if slices.ContainsFunc(d.Bookings, func(o model.Booking) bool { return o.ID == b.ID }) {
			return apperr.Conflict(fmt.Sprintf("booking %s already exists", b.ID))
		}
		if b.Active() {
			if err := checkAvailability(d.Bookings, b, ""); err != nil {
				return err
			}
		}
		d.Bookings = append(d.Bookings, b)
		return nil
	})
	if err != nil {
		if apperr.HasCode(err, apperr.CodeConflict) {
			s.reject(tenantID, "conflict")
		}
		return model.Booking{}, err
	}

	metrics.BookingsCreated.WithLabelValues(tenantID).Inc()
	s.log.Info("Booking created",
		zap.String("tenant", tenantID),
		zap.String("booking", b.ID),
		zap.String("unit", b.UnitID))

	events.Fire(ctx, s.sink, s.log, tenantID, model.EventBookingCreated, CreatedEvent{Booking: b, TenantID: tenantID})
	return b, nil
}

// AssignCleaner sets or clears (empty staffID) the cleaner of a booking.
func (s *Service) AssignCleaner(ctx context.Context, tenantID, bookingID, staffID string) (model.Booking, error) {
	if staffID != "" {
		if _, err := s.store.StaffMember(tenantID, staffID); err != nil {
			return model.Booking{}, err
		}
	}
	return s.mutate(ctx, tenantID, bookingID, func(d *model.TenantData, b *model.Booking) error {
		b.AssignedCleanerID = staffID
		return nil
	})
}

// SetStatus changes a booking's status. Moving a cancelled booking back to an
// active status re-checks availability.
func (s *Service) SetStatus(ctx context.Context, tenantID, bookingID, status string) (model.Booking, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return model.Booking{}, apperr.InvalidInput("status is required")
	}
	return s.mutate(ctx, tenantID, bookingID, func(d *model.TenantData, b *model.Booking) error {
		wasActive := b.Active()
		b.Status = status
		if !wasActive && b.Active() {
			return checkAvailability(d.Bookings, *b, b.ID)
		}
		return nil
	})
}

func (s *Service) mutate(ctx context.Context, tenantID, bookingID string, fn func(d *model.TenantData, b *model.Booking) error) (model.Booking, error) {
	var out model.Booking
	_, err := s.store.Update(ctx, tenantID, func(d *model.TenantData) error {
		idx := slices.IndexFunc(d.Bookings, func(b model.Booking) bool { return b.ID == bookingID })
		if idx < 0 {
			return apperr.NotFound("booking not found")
		}
		if err := fn(d, &d.Bookings[idx]); err != nil {
			return err
		}
		out = d.Bookings[idx]
		return nil
	})
	return out, err
}

// checkAvailability fails with Conflict when b overlaps an active booking of
// the same unit. The booking with id skipID is ignored.
func checkAvailability(existing []model.Booking, b model.Booking, skipID string) error {
	for _, o := range existing {
		if o.ID == skipID || o.UnitID != b.UnitID || !o.Active() {
			continue
		}
		if o.Overlaps(b.StartDate, b.EndDate) {
			return apperr.Conflict("Unit is already booked for these dates")
		}
	}
	return nil
}

func (s *Service) reject(tenantID, reason string) {
	metrics.BookingsRejected.WithLabelValues(tenantID, reason).Inc()
}

// ParseDate accepts RFC 3339 timestamps and YYYY-MM-DD dates (UTC midnight).
func ParseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, v)
}
