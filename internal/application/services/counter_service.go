package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/domain/providers"
	"github.com/estatehub/marketplace/backend/internal/domain/repositories"
	"github.com/estatehub/marketplace/backend/internal/infrastructure/observability"
	apperrors "github.com/estatehub/marketplace/backend/pkg/errors"
)

// CounterService keeps favorites and views counters on properties in step
// with the rows that feed them
type CounterService struct {
	store       repositories.Store
	events      eventPublisher
	now         func() time.Time
	viewTimeout time.Duration
	inflight    sync.WaitGroup
}

// NewCounterService creates a new counter service. viewTimeout bounds each
// background view write.
func NewCounterService(store repositories.Store, viewTimeout time.Duration) *CounterService {
	if viewTimeout <= 0 {
		viewTimeout = 5 * time.Second
	}
	return &CounterService{
		store:       store,
		now:         utcNow,
		viewTimeout: viewTimeout,
	}
}

// SetEventBus sets the event bus for publishing counter changes
func (s *CounterService) SetEventBus(bus providers.EventBus) {
	s.events.bus = bus
}

// SetClock replaces the time source
func (s *CounterService) SetClock(now func() time.Time) {
	s.now = now
}

// AddFavorite saves a property for the actor and bumps its favorites count
func (s *CounterService) AddFavorite(ctx context.Context, actor entities.Actor, propertyID string) (*entities.FavoriteResult, error) {
	if !actor.Valid() {
		return nil, apperrors.NewNotAuthorizedError("an authenticated actor is required")
	}

	now := s.now()
	result := &entities.FavoriteResult{}
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Repositories) error {
		if _, err := tx.Properties().GetForUpdate(ctx, propertyID); err != nil {
			return err
		}
		existing, err := tx.Favorites().FindActive(ctx, actor.UserID, propertyID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperrors.NewAlreadyFavoritedError(existing.ID)
		}

		favorite := &entities.Favorite{
			ID:         uuid.New().String(),
			UserID:     actor.UserID,
			PropertyID: propertyID,
		}
		favorite.Stamp(now)
		if err := tx.Favorites().Create(ctx, favorite); err != nil {
			return err
		}

		count, err := tx.Properties().AdjustFavorites(ctx, propertyID, 1, now)
		if err != nil {
			return err
		}
		result.Favorite = favorite
		result.FavoritesCount = count
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishFavorites(ctx, propertyID, result, now)
	return result, nil
}

// RemoveFavorite soft-deletes the actor's favorite and lowers the count
func (s *CounterService) RemoveFavorite(ctx context.Context, actor entities.Actor, propertyID string) (*entities.FavoriteResult, error) {
	if !actor.Valid() {
		return nil, apperrors.NewNotAuthorizedError("an authenticated actor is required")
	}

	now := s.now()
	result := &entities.FavoriteResult{}
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Repositories) error {
		if _, err := tx.Properties().GetForUpdate(ctx, propertyID); err != nil {
			return err
		}
		existing, err := tx.Favorites().FindActive(ctx, actor.UserID, propertyID)
		if err != nil {
			return err
		}
		if existing == nil {
			return apperrors.NewNotFoundError("favorite not found")
		}

		changed, err := tx.Favorites().SoftDelete(ctx, existing.ID, now)
		if err != nil {
			return err
		}
		if !changed {
			return apperrors.NewNotFoundError("favorite not found")
		}

		count, err := tx.Properties().AdjustFavorites(ctx, propertyID, -1, now)
		if err != nil {
			return err
		}
		result.FavoritesCount = count
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishFavorites(ctx, propertyID, result, now)
	return result, nil
}

func (s *CounterService) publishFavorites(ctx context.Context, propertyID string, result *entities.FavoriteResult, now time.Time) {
	entityID := ""
	if result.Favorite != nil {
		entityID = result.Favorite.ID
	}
	s.events.publish(ctx, entities.EventFavoritesChanged, propertyID, entityID, now, map[string]interface{}{
		"favorites_count": result.FavoritesCount,
	})
}

// ListFavorites lists the actor's live favorites
func (s *CounterService) ListFavorites(ctx context.Context, actor entities.Actor, filter repositories.ListFilter) ([]*entities.Favorite, error) {
	if !actor.Valid() {
		return nil, apperrors.NewNotAuthorizedError("an authenticated actor is required")
	}
	return s.store.Favorites().ListByUser(ctx, actor.UserID, filter)
}

// RecordView counts a property view in the background. The caller never
// waits for it and never sees its failure.
func (s *CounterService) RecordView(ctx context.Context, propertyID, viewerID, source string) {
	logger := observability.LoggerFromContext(ctx).With().
		Str("property_id", propertyID).
		Logger()

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		ctx, cancel := context.WithTimeout(logger.WithContext(context.Background()), s.viewTimeout)
		defer cancel()

		if err := s.recordView(ctx, propertyID, viewerID, source); err != nil {
			logger.Warn().Err(err).Msg("failed to record property view")
		}
	}()
}

func (s *CounterService) recordView(ctx context.Context, propertyID, viewerID, source string) error {
	now := s.now()
	event := &entities.ViewEvent{
		ID:         uuid.New().String(),
		PropertyID: propertyID,
		Source:     source,
		CreatedAt:  now,
	}
	if viewerID != "" {
		event.ViewerID = &viewerID
	}
	if event.Source == "" {
		event.Source = "web"
	}

	return s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Repositories) error {
		if err := tx.Properties().IncrementViews(ctx, propertyID, now); err != nil {
			return err
		}
		return tx.Views().Create(ctx, event)
	})
}

// Wait blocks until every background view write has finished
func (s *CounterService) Wait() {
	s.inflight.Wait()
}
