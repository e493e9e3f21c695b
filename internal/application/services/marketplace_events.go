package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/domain/providers"
	"github.com/estatehub/marketplace/backend/internal/infrastructure/observability"
)

// eventPublisher fans committed changes out to the event bus. Publishing is
// best effort: the store write already happened and stays authoritative.
type eventPublisher struct {
	bus providers.EventBus
}

func (p *eventPublisher) publish(ctx context.Context, eventType entities.MarketplaceEventType, propertyID, entityID string, now time.Time, data map[string]interface{}) {
	if p.bus == nil {
		return
	}

	event := entities.NewMarketplaceEvent(uuid.New().String(), eventType, propertyID, entityID, now)
	for k, v := range data {
		event.Data[k] = v
	}

	logger := observability.LoggerFromContext(ctx)
	for _, channel := range []string{providers.EventChannelMarketplace, providers.GetPropertyChannel(propertyID)} {
		if err := p.bus.Publish(ctx, channel, event); err != nil {
			logger.Warn().Err(err).
				Str("channel", channel).
				Str("event_type", string(eventType)).
				Str("property_id", propertyID).
				Msg("failed to publish marketplace event")
		}
	}
}

func utcNow() time.Time {
	return time.Now().UTC()
}
