package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"hospitality-ops/internal/auth"
	"hospitality-ops/internal/booking"
)

type AssignCleanerRequest struct {
	StaffID string `json:"staffId"`
}

type BookingStatusRequest struct {
	Status string `json:"status"`
}

// @Summary List bookings
// @Tags Bookings
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {array} model.Booking
// @Router /bookings [get]
func (a *API) ListBookings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Bookings.List(auth.GetTenantID(r)))
}

// @Summary Create a booking
// @Description Rejects bookings that overlap a non-cancelled booking of the same unit.
// @Tags Bookings
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param body body booking.NewBooking true "Booking"
// @Success 201 {object} model.Booking
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /bookings [post]
func (a *API) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var body booking.NewBooking
	if err := decodeJSON(r, &body); err != nil {
		a.writeError(w, r, err)
		return
	}
	b, err := a.Bookings.Create(r.Context(), auth.GetTenantID(r), body)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// @Summary Assign a cleaner to a booking
// @Tags Bookings
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param id path string true "Booking id"
// @Param body body AssignCleanerRequest true "Staff member, empty to unassign"
// @Success 200 {object} model.Booking
// @Router /bookings/{id}/cleaner [put]
func (a *API) AssignCleaner(w http.ResponseWriter, r *http.Request) {
	var body AssignCleanerRequest
	if err := decodeJSON(r, &body); err != nil {
		a.writeError(w, r, err)
		return
	}
	b, err := a.Bookings.AssignCleaner(r.Context(), auth.GetTenantID(r), chi.URLParam(r, "id"), body.StaffID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// @Summary Change a booking's status
// @Tags Bookings
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param id path string true "Booking id"
// @Param body body BookingStatusRequest true "New status"
// @Success 200 {object} model.Booking
// @Failure 409 {object} map[string]string
// @Router /bookings/{id}/status [put]
func (a *API) SetBookingStatus(w http.ResponseWriter, r *http.Request) {
	var body BookingStatusRequest
	if err := decodeJSON(r, &body); err != nil {
		a.writeError(w, r, err)
		return
	}
	b, err := a.Bookings.SetStatus(r.Context(), auth.GetTenantID(r), chi.URLParam(r, "id"), body.Status)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}
