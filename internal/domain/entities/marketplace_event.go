package entities

import "time"

// MarketplaceEventType represents the type of marketplace event
type MarketplaceEventType string

const (
	EventPropertyCreated  MarketplaceEventType = "property_created"
	EventPropertyDeleted  MarketplaceEventType = "property_deleted"
	EventOfferChanged     MarketplaceEventType = "offer_changed"
	EventBookingChanged   MarketplaceEventType = "booking_changed"
	EventRatingChanged    MarketplaceEventType = "rating_changed"
	EventFavoritesChanged MarketplaceEventType = "favorites_changed"
	EventBoostRecomputed  MarketplaceEventType = "boost_recomputed"
)

// MarketplaceEvent is published after a committed write that changes what
// readers of a property see
type MarketplaceEvent struct {
	ID         string                 `json:"id"`
	Type       MarketplaceEventType   `json:"type"`
	PropertyID string                 `json:"property_id"`
	EntityID   string                 `json:"entity_id,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// NewMarketplaceEvent creates an event stamped with now
func NewMarketplaceEvent(id string, eventType MarketplaceEventType, propertyID, entityID string, now time.Time) *MarketplaceEvent {
	return &MarketplaceEvent{
		ID:         id,
		Type:       eventType,
		PropertyID: propertyID,
		EntityID:   entityID,
		Timestamp:  now,
		Data:       make(map[string]interface{}),
	}
}
