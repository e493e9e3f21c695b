package repositories

import (
	"context"
	"time"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
)

// ReviewRepository defines the interface for review data operations
type ReviewRepository interface {
	// Create stores a review. A second live review for the same (user, property)
	// fails with CONFLICT.
	Create(ctx context.Context, review *entities.Review) error

	// FindActive returns the live review of a user on a property, or nil
	FindActive(ctx context.Context, userID, propertyID string) (*entities.Review, error)

	// Update rewrites rating and comment of a live review
	Update(ctx context.Context, review *entities.Review) error

	// SoftDelete marks the review deleted. It reports false when it already was.
	SoftDelete(ctx context.Context, id string, now time.Time) (bool, error)

	// ListByProperty lists live reviews of a property, newest first
	ListByProperty(ctx context.Context, propertyID string, filter ListFilter) ([]*entities.Review, error)

	// Aggregate returns count and sum of the live reviews of a property
	Aggregate(ctx context.Context, propertyID string) (count int, sum int, err error)
}

// FavoriteRepository defines the interface for favorite data operations
type FavoriteRepository interface {
	// Create stores a favorite. A second live favorite for the same
	// (user, property) fails with ALREADY_FAVORITED.
	Create(ctx context.Context, favorite *entities.Favorite) error

	// FindActive returns the live favorite of a user on a property, or nil
	FindActive(ctx context.Context, userID, propertyID string) (*entities.Favorite, error)

	// SoftDelete marks the favorite deleted. It reports false when it already was.
	SoftDelete(ctx context.Context, id string, now time.Time) (bool, error)

	// ListByUser lists the live favorites of a user, newest first
	ListByUser(ctx context.Context, userID string, filter ListFilter) ([]*entities.Favorite, error)
}
