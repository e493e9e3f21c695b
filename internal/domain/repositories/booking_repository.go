package repositories

import (
	"context"
	"time"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
)

// BookingRepository defines the interface for booking data operations
type BookingRepository interface {
	// Create creates a new booking
	Create(ctx context.Context, booking *entities.Booking) error

	// GetByID retrieves a live booking by ID
	GetByID(ctx context.Context, id string) (*entities.Booking, error)

	// FindApprovedOverlap returns an approved live booking on the property
	// overlapping [start, end), other than excludeID, or nil
	FindApprovedOverlap(ctx context.Context, propertyID string, start, end time.Time, excludeID string) (*entities.Booking, error)

	// Transition writes the status provided the stored status is still one of
	// from. An approval that would overlap another approved booking fails
	// with SLOT_CONFLICT.
	Transition(ctx context.Context, booking *entities.Booking, from []entities.BookingStatus) error

	// ListByProperty lists live bookings of a property ordered by slot
	ListByProperty(ctx context.Context, propertyID string, filter BookingFilter) ([]*entities.Booking, error)

	// SoftDelete marks the booking deleted. It reports false when it already was.
	SoftDelete(ctx context.Context, id string, now time.Time) (bool, error)
}

// BookingFilter defines filters for listing bookings
type BookingFilter struct {
	Status entities.BookingStatus
	From   *time.Time
	To     *time.Time
	ListFilter
}
