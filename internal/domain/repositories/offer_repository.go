package repositories

import (
	"context"
	"time"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
)

// OfferRepository defines the interface for offer data operations
type OfferRepository interface {
	// Create stores a new offer. A second active offer for the same
	// (buyer, property) fails with DUPLICATE_ACTIVE_OFFER.
	Create(ctx context.Context, offer *entities.Offer) error

	// GetByID retrieves a live offer by ID
	GetByID(ctx context.Context, id string) (*entities.Offer, error)

	// FindActive returns the live pending/countered offer of a buyer on a property, or nil
	FindActive(ctx context.Context, buyerID, propertyID string) (*entities.Offer, error)

	// FindAccepted returns the live accepted offer of a property, or nil
	FindAccepted(ctx context.Context, propertyID string) (*entities.Offer, error)

	// Transition writes status, amount and expiry, provided the stored status
	// is still one of from. Otherwise it fails with INVALID_TRANSITION.
	Transition(ctx context.Context, offer *entities.Offer, from []entities.OfferStatus) error

	// RejectActiveExcept rejects every other active offer on the property and returns them
	RejectActiveExcept(ctx context.Context, propertyID, exceptID string, now time.Time) ([]*entities.Offer, error)

	// ExpireDue rejects active offers whose expiry is at or before now and returns them
	ExpireDue(ctx context.Context, now time.Time, limit int) ([]*entities.Offer, error)

	// ListByProperty lists live offers of a property, newest first
	ListByProperty(ctx context.Context, propertyID string, filter OfferFilter) ([]*entities.Offer, error)

	// ListByBuyer lists live offers made by a buyer, newest first
	ListByBuyer(ctx context.Context, buyerID string, filter OfferFilter) ([]*entities.Offer, error)

	// SoftDelete marks the offer deleted. It reports false when it already was.
	SoftDelete(ctx context.Context, id string, now time.Time) (bool, error)
}

// OfferFilter defines filters for listing offers
type OfferFilter struct {
	Status entities.OfferStatus
	ListFilter
}
