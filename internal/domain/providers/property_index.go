package providers

import (
	"context"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
)

// NearbyQuery describes a geo search over listed properties
type NearbyQuery struct {
	Latitude  float64
	Longitude float64
	RadiusKm  float64
	MaxPrice  float64
	Limit     int
	Offset    int
}

// PropertyHit is one search result, ranked by boost score
type PropertyHit struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Price         float64 `json:"price"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	AverageRating float64 `json:"average_rating"`
	BoostScore    float64 `json:"boost_score"`
}

// PropertyIndex is the search index of active listings. It is derived data:
// the store stays authoritative and the index may lag behind it.
type PropertyIndex interface {
	// Index upserts the search document of a property
	Index(ctx context.Context, property *entities.Property) error

	// Remove drops a property from the index
	Remove(ctx context.Context, id string) error

	// SearchNearby returns active listings around a point
	SearchNearby(ctx context.Context, query NearbyQuery) ([]PropertyHit, error)
}
