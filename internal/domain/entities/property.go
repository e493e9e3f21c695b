package entities

import "time"

// PropertyStatus represents the listing state of a property
type PropertyStatus string

const (
	PropertyStatusDraft    PropertyStatus = "draft"
	PropertyStatusActive   PropertyStatus = "active"
	PropertyStatusSold     PropertyStatus = "sold"
	PropertyStatusRented   PropertyStatus = "rented"
	PropertyStatusArchived PropertyStatus = "archived"
)

// Valid reports whether s is a known status
func (s PropertyStatus) Valid() bool {
	switch s {
	case PropertyStatusDraft, PropertyStatusActive, PropertyStatusSold, PropertyStatusRented, PropertyStatusArchived:
		return true
	}
	return false
}

// Property represents a listing
type Property struct {
	ID              string         `json:"id" db:"id"`
	OwnerID         string         `json:"owner_id" db:"owner_id"`
	AgentID         *string        `json:"agent_id,omitempty" db:"agent_id"`
	Title           string         `json:"title" db:"title"`
	Price           float64        `json:"price" db:"price"`
	Longitude       float64        `json:"longitude" db:"longitude"`
	Latitude        float64        `json:"latitude" db:"latitude"`
	Status          PropertyStatus `json:"status" db:"status"`
	AverageRating   float64        `json:"average_rating" db:"average_rating"`
	RatingsCount    int            `json:"ratings_count" db:"ratings_count"`
	RatingsSum      int            `json:"-" db:"ratings_sum"`
	FavoritesCount  int64          `json:"favorites_count" db:"favorites_count"`
	ViewsCount      int64          `json:"views_count" db:"views_count"`
	BoostScore      float64        `json:"boost_score" db:"boost_score"`
	BoostComputedAt *time.Time     `json:"boost_computed_at,omitempty" db:"boost_computed_at"`
	Timestamps
	SoftDelete
}

// IsManagedBy reports whether the actor may act on the seller side
func (p *Property) IsManagedBy(actor Actor) bool {
	if actor.IsAdmin() {
		return true
	}
	if actor.UserID == "" {
		return false
	}
	if p.OwnerID == actor.UserID {
		return true
	}
	return p.AgentID != nil && *p.AgentID == actor.UserID
}

// IsOwnedBy reports whether userID is the owner or the agent
func (p *Property) IsOwnedBy(userID string) bool {
	return p.OwnerID == userID || (p.AgentID != nil && *p.AgentID == userID)
}

// AcceptsOffers reports whether the listing is open for negotiation
func (p *Property) AcceptsOffers() bool {
	return p.Status == PropertyStatusActive
}

// AverageOf returns sum/count, or 0 when there is nothing to average
func AverageOf(sum, count int) float64 {
	if count <= 0 {
		return 0
	}
	return float64(sum) / float64(count)
}

// ApplyRating moves the rating aggregate by a delta
func (p *Property) ApplyRating(countDelta, sumDelta int) {
	p.RatingsCount += countDelta
	p.RatingsSum += sumDelta
	p.AverageRating = AverageOf(p.RatingsSum, p.RatingsCount)
}

// PropertyActivity is the input of a boost score computation
type PropertyActivity struct {
	PropertyID     string `db:"property_id"`
	ViewsCount     int64  `db:"views_count"`
	FavoritesCount int64  `db:"favorites_count"`
	RecentOffers   int64  `db:"recent_offers"`
	RecentBookings int64  `db:"recent_bookings"`
}
