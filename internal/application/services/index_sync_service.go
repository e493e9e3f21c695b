package services

import (
	"context"
	"fmt"
	"time"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/domain/providers"
	"github.com/estatehub/marketplace/backend/internal/domain/repositories"
	"github.com/estatehub/marketplace/backend/internal/infrastructure/observability"
	apperrors "github.com/estatehub/marketplace/backend/pkg/errors"
)

// IndexSyncService keeps the search index following the store. Every event
// triggers a re-read of the property, so a lost or reordered event is healed
// by the next one.
type IndexSyncService struct {
	properties repositories.PropertyRepository
	index      providers.PropertyIndex
	eventBus   providers.EventBus
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	started    bool
}

// NewIndexSyncService creates a new index sync service
func NewIndexSyncService(properties repositories.PropertyRepository, index providers.PropertyIndex, eventBus providers.EventBus) *IndexSyncService {
	ctx, cancel := context.WithCancel(context.Background())
	return &IndexSyncService{
		properties: properties,
		index:      index,
		eventBus:   eventBus,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Start subscribes to marketplace events
func (s *IndexSyncService) Start() error {
	eventChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelMarketplace)
	if err != nil {
		return fmt.Errorf("failed to subscribe to marketplace events: %w", err)
	}
	s.started = true
	go s.processEvents(eventChan)
	observability.GetLogger().Info().Msg("index sync service started")
	return nil
}

// Stop stops the index sync service
func (s *IndexSyncService) Stop() {
	s.cancel()
	if s.started {
		<-s.done
	}
}

func (s *IndexSyncService) processEvents(eventChan <-chan *entities.MarketplaceEvent) {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil || !indexRelevant(event.Type) {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := s.Sync(ctx, event.PropertyID); err != nil {
				observability.GetLogger().Warn().Err(err).
					Str("property_id", event.PropertyID).
					Str("event_type", string(event.Type)).
					Msg("failed to sync property index")
			}
			cancel()
		}
	}
}

func indexRelevant(t entities.MarketplaceEventType) bool {
	switch t {
	case entities.EventPropertyCreated, entities.EventPropertyDeleted,
		entities.EventRatingChanged, entities.EventBoostRecomputed:
		return true
	}
	return false
}

// Sync indexes an active property and removes anything else from the index
func (s *IndexSyncService) Sync(ctx context.Context, propertyID string) error {
	if propertyID == "" {
		return nil
	}
	property, err := s.properties.GetByID(ctx, propertyID)
	if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		return s.index.Remove(ctx, propertyID)
	}
	if err != nil {
		return err
	}
	if property.Status != entities.PropertyStatusActive {
		return s.index.Remove(ctx, propertyID)
	}
	return s.index.Index(ctx, property)
}
