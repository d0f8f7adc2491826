// internal/model/booking.go
package model

import "time"

const (
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"

	SourceDirect = "direct"
)

type Booking struct {
	ID                string    `json:"id"`
	UnitID            string    `json:"unitId"`
	GuestName         string    `json:"guestName"`
	GuestPhone        string    `json:"guestPhone"`
	StartDate         time.Time `json:"startDate"`
	EndDate           time.Time `json:"endDate"`
	Source            string    `json:"source"`
	Status            string    `json:"status"`
	Price             float64   `json:"price"`
	CreatedAt         time.Time `json:"createdAt"`
	AssignedCleanerID string    `json:"assignedCleanerId,omitempty"`
}

// Overlaps reports whether b shares at least one instant with [start, end).
// Bookings that only touch at a boundary do not overlap.
func (b Booking) Overlaps(start, end time.Time) bool {
	return start.Before(b.EndDate) && end.After(b.StartDate)
}

// Active reports whether the booking takes part in availability checks.
func (b Booking) Active() bool {
	return b.Status != BookingCancelled
}
