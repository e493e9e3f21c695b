package entities

const (
	MinRating = 1
	MaxRating = 5
)

// ValidRating reports whether r is within the rating scale
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}

// Review represents a user's rating of a property
type Review struct {
	ID         string  `json:"id" db:"id"`
	PropertyID string  `json:"property_id" db:"property_id"`
	UserID     string  `json:"user_id" db:"user_id"`
	AgentID    *string `json:"agent_id,omitempty" db:"agent_id"`
	Rating     int     `json:"rating" db:"rating"`
	Comment    string  `json:"comment,omitempty" db:"comment"`
	Timestamps
	SoftDelete
}

// RatingSummary is the aggregate returned after a review mutation
type RatingSummary struct {
	PropertyID    string  `json:"property_id"`
	AverageRating float64 `json:"average_rating"`
	RatingsCount  int     `json:"ratings_count"`
}
