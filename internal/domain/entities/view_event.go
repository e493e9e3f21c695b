package entities

import "time"

// ViewEvent is one analytics record of a property page view
type ViewEvent struct {
	ID         string    `json:"id" db:"id"`
	PropertyID string    `json:"property_id" db:"property_id"`
	ViewerID   *string   `json:"viewer_id,omitempty" db:"viewer_id"`
	Source     string    `json:"source" db:"source"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
