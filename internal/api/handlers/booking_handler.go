package handlers

import (
	"context"
	"net/http"

	"github.com/estatehub/marketplace/backend/internal/application/services"
	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/domain/repositories"
)

// BookingService defines the tour scheduling operations used by the handler
type BookingService interface {
	Schedule(ctx context.Context, actor entities.Actor, input services.ScheduleBookingInput) (*entities.Booking, error)
	Approve(ctx context.Context, actor entities.Actor, bookingID string) (*entities.Booking, error)
	Reject(ctx context.Context, actor entities.Actor, bookingID string) (*entities.Booking, error)
	Cancel(ctx context.Context, actor entities.Actor, bookingID string) (*entities.Booking, error)
	Complete(ctx context.Context, actor entities.Actor, bookingID string) (*entities.Booking, error)
	Get(ctx context.Context, actor entities.Actor, bookingID string) (*entities.Booking, error)
	ListForProperty(ctx context.Context, actor entities.Actor, propertyID string, filter repositories.BookingFilter) ([]*entities.Booking, error)
}

// BookingDeleter soft-deletes bookings
type BookingDeleter interface {
	DeleteBooking(ctx context.Context, actor entities.Actor, bookingID string) error
}

// BookingHandler handles tour booking requests
type BookingHandler struct {
	service BookingService
	deletes BookingDeleter
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(service BookingService, deletes BookingDeleter) *BookingHandler {
	return &BookingHandler{service: service, deletes: deletes}
}

// ScheduleBooking handles POST /api/properties/{id}/bookings
func (h *BookingHandler) ScheduleBooking(w http.ResponseWriter, r *http.Request) {
	var input services.ScheduleBookingInput
	if err := decodeJSON(w, r, &input); err != nil {
		respondWithError(w, r, "booking.schedule", err)
		return
	}
	input.PropertyID = r.PathValue("id")

	booking, err := h.service.Schedule(r.Context(), actorOf(r), input)
	if err != nil {
		respondWithError(w, r, "booking.schedule", err)
		return
	}
	respondWithData(w, http.StatusCreated, "booking requested", booking)
}

// ListPropertyBookings handles GET /api/properties/{id}/bookings
func (h *BookingHandler) ListPropertyBookings(w http.ResponseWriter, r *http.Request) {
	filter, err := bookingFilter(r)
	if err != nil {
		respondWithError(w, r, "booking.list", err)
		return
	}

	bookings, err := h.service.ListForProperty(r.Context(), actorOf(r), r.PathValue("id"), filter)
	if err != nil {
		respondWithError(w, r, "booking.list", err)
		return
	}
	respondWithData(w, http.StatusOK, "", bookings)
}

func bookingFilter(r *http.Request) (repositories.BookingFilter, error) {
	page, err := listFilter(r)
	if err != nil {
		return repositories.BookingFilter{}, err
	}
	from, err := queryTime(r, "from")
	if err != nil {
		return repositories.BookingFilter{}, err
	}
	to, err := queryTime(r, "to")
	if err != nil {
		return repositories.BookingFilter{}, err
	}
	return repositories.BookingFilter{
		Status:     entities.BookingStatus(r.URL.Query().Get("status")),
		From:       from,
		To:         to,
		ListFilter: page,
	}, nil
}

// GetBooking handles GET /api/bookings/{id}
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.service.Get(r.Context(), actorOf(r), r.PathValue("id"))
	if err != nil {
		respondWithError(w, r, "booking.get", err)
		return
	}
	respondWithData(w, http.StatusOK, "", booking)
}

// ApproveBooking handles POST /api/bookings/{id}/approve
func (h *BookingHandler) ApproveBooking(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "booking.approve", "booking approved", h.service.Approve)
}

// RejectBooking handles POST /api/bookings/{id}/reject
func (h *BookingHandler) RejectBooking(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "booking.reject", "booking rejected", h.service.Reject)
}

// CancelBooking handles POST /api/bookings/{id}/cancel
func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "booking.cancel", "booking cancelled", h.service.Cancel)
}

// CompleteBooking handles POST /api/bookings/{id}/complete
func (h *BookingHandler) CompleteBooking(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "booking.complete", "booking completed", h.service.Complete)
}

func (h *BookingHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	operation, message string,
	fn func(context.Context, entities.Actor, string) (*entities.Booking, error),
) {
	booking, err := fn(r.Context(), actorOf(r), r.PathValue("id"))
	if err != nil {
		respondWithError(w, r, operation, err)
		return
	}
	respondWithData(w, http.StatusOK, message, booking)
}

// DeleteBooking handles DELETE /api/bookings/{id}
func (h *BookingHandler) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	if err := h.deletes.DeleteBooking(r.Context(), actorOf(r), r.PathValue("id")); err != nil {
		respondWithError(w, r, "booking.delete", err)
		return
	}
	respondWithData(w, http.StatusOK, "booking deleted", nil)
}
