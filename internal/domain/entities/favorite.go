package entities

// Favorite marks a property saved by a user. Presence is the signal.
type Favorite struct {
	ID         string `json:"id" db:"id"`
	UserID     string `json:"user_id" db:"user_id"`
	PropertyID string `json:"property_id" db:"property_id"`
	Timestamps
	SoftDelete
}

// FavoriteResult is returned by favorite toggles
type FavoriteResult struct {
	Favorite       *Favorite `json:"favorite,omitempty"`
	FavoritesCount int64     `json:"favorites_count"`
}
