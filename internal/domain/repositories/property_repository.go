package repositories

import (
	"context"
	"time"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
)

// PropertyRepository defines the interface for property data operations.
// Every read excludes soft-deleted properties.
type PropertyRepository interface {
	// Create creates a new property
	Create(ctx context.Context, property *entities.Property) error

	// GetByID retrieves a live property by ID
	GetByID(ctx context.Context, id string) (*entities.Property, error)

	// GetForUpdate retrieves a live property and locks its row until the
	// surrounding transaction ends. Engines use it to serialize work per property.
	GetForUpdate(ctx context.Context, id string) (*entities.Property, error)

	// ApplyRatingDelta moves ratings count and sum and refreshes the average in one write
	ApplyRatingDelta(ctx context.Context, id string, countDelta, sumDelta int, now time.Time) error

	// SetRatingAggregate overwrites the rating aggregate
	SetRatingAggregate(ctx context.Context, id string, count, sum int, now time.Time) error

	// AdjustFavorites moves favorites_count by delta and returns the new value
	AdjustFavorites(ctx context.Context, id string, delta int64, now time.Time) (int64, error)

	// IncrementViews adds one view
	IncrementViews(ctx context.Context, id string, now time.Time) error

	// ListActivity returns boost inputs for every live property, counting
	// offers and bookings created at or after since
	ListActivity(ctx context.Context, since time.Time) ([]entities.PropertyActivity, error)

	// UpdateBoostScore stores a recomputed boost score
	UpdateBoostScore(ctx context.Context, id string, score float64, computedAt time.Time) error

	// SoftDelete marks the property deleted. It reports false when it already was.
	SoftDelete(ctx context.Context, id string, now time.Time) (bool, error)
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *entities.User) error

	// GetByID retrieves a live user by ID
	GetByID(ctx context.Context, id string) (*entities.User, error)

	// ApplyRatingDelta moves the agent rating aggregate
	ApplyRatingDelta(ctx context.Context, id string, countDelta, sumDelta int, now time.Time) error
}
