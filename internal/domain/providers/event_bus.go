package providers

import (
	"context"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to marketplace events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.MarketplaceEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.MarketplaceEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

const (
	// EventChannelMarketplace carries every marketplace event
	EventChannelMarketplace = "marketplace:events"

	// EventChannelPropertyPrefix is the prefix for property-specific channels
	EventChannelPropertyPrefix = "property:"
)

// GetPropertyChannel returns the channel name for a specific property
func GetPropertyChannel(propertyID string) string {
	return EventChannelPropertyPrefix + propertyID
}
