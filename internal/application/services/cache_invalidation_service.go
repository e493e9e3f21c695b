package services

import (
	"context"
	"fmt"
	"time"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/domain/providers"
	"github.com/estatehub/marketplace/backend/internal/infrastructure/observability"
)

// CacheInvalidationService drops cached property reads when a marketplace
// event says the property changed
type CacheInvalidationService struct {
	cache    providers.CacheProvider
	eventBus providers.EventBus
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	started  bool
}

// NewCacheInvalidationService creates a new cache invalidation service
func NewCacheInvalidationService(cache providers.CacheProvider, eventBus providers.EventBus) *CacheInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheInvalidationService{
		cache:    cache,
		eventBus: eventBus,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start begins listening for events and invalidating cache
func (s *CacheInvalidationService) Start() error {
	eventChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelMarketplace)
	if err != nil {
		return fmt.Errorf("failed to subscribe to marketplace events: %w", err)
	}

	s.started = true
	go s.processEvents(eventChan)
	observability.GetLogger().Info().Msg("cache invalidation service started")
	return nil
}

// Stop stops the cache invalidation service
func (s *CacheInvalidationService) Stop() {
	s.cancel()
	if s.started {
		<-s.done
	}
	observability.GetLogger().Info().Msg("cache invalidation service stopped")
}

func (s *CacheInvalidationService) processEvents(eventChan <-chan *entities.MarketplaceEvent) {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			s.handleEvent(event)
		}
	}
}

func (s *CacheInvalidationService) handleEvent(event *entities.MarketplaceEvent) {
	if event.PropertyID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.InvalidateProperty(ctx, event.PropertyID); err != nil {
		observability.GetLogger().Warn().Err(err).
			Str("event_id", event.ID).
			Str("event_type", string(event.Type)).
			Msg("failed to invalidate property cache")
	}
}

// InvalidateProperty drops the cached read of one property
func (s *CacheInvalidationService) InvalidateProperty(ctx context.Context, propertyID string) error {
	if err := providers.InvalidateProperty(ctx, s.cache, propertyID); err != nil {
		return fmt.Errorf("failed to invalidate property cache: %w", err)
	}
	return nil
}
