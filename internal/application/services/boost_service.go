package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/domain/providers"
	"github.com/estatehub/marketplace/backend/internal/domain/repositories"
	"github.com/estatehub/marketplace/backend/internal/infrastructure/observability"
	"github.com/estatehub/marketplace/backend/pkg/config"
)

// BoostScore ranks a property by engagement:
//
//	wViews*ln(1+views) + wFavorites*favorites + wOffers*recentOffers + wBookings*recentBookings
func BoostScore(a entities.PropertyActivity, w config.BoostWeights) float64 {
	views := float64(a.ViewsCount)
	if views < 0 {
		views = 0
	}
	return w.Views*math.Log1p(views) +
		w.Favorites*float64(a.FavoritesCount) +
		w.Offers*float64(a.RecentOffers) +
		w.Bookings*float64(a.RecentBookings)
}

// BoostService recomputes the derived boost score of every live property
type BoostService struct {
	properties repositories.PropertyRepository
	weights    config.BoostWeights
	window     time.Duration
	events     eventPublisher
	now        func() time.Time
}

// NewBoostService creates a new boost service
func NewBoostService(properties repositories.PropertyRepository, weights config.BoostWeights, window time.Duration) *BoostService {
	return &BoostService{
		properties: properties,
		weights:    weights,
		window:     window,
		now:        utcNow,
	}
}

// SetEventBus sets the event bus for publishing recomputed scores
func (s *BoostService) SetEventBus(bus providers.EventBus) {
	s.events.bus = bus
}

// SetClock replaces the time source
func (s *BoostService) SetClock(now func() time.Time) {
	s.now = now
}

// Recompute scores every live property from its counters and its offers and
// bookings created within the activity window. It returns how many scores
// were written.
func (s *BoostService) Recompute(ctx context.Context) (int, error) {
	ctx, span := observability.StartSpan(ctx, "BoostService.Recompute")
	defer span.End()

	now := s.now()
	activity, err := s.properties.ListActivity(ctx, now.Add(-s.window))
	if err != nil {
		observability.RecordError(span, err)
		return 0, fmt.Errorf("failed to load property activity: %w", err)
	}

	logger := observability.LoggerFromContext(ctx)
	updated := 0
	for _, a := range activity {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		score := BoostScore(a, s.weights)
		if err := s.properties.UpdateBoostScore(ctx, a.PropertyID, score, now); err != nil {
			// a property deleted since the scan is expected; anything else is logged and skipped
			logger.Warn().Err(err).Str("property_id", a.PropertyID).Msg("failed to store boost score")
			continue
		}
		updated++
		s.events.publish(ctx, entities.EventBoostRecomputed, a.PropertyID, "", now, map[string]interface{}{
			"boost_score": score,
		})
	}

	logger.Info().
		Int("properties", len(activity)).
		Int("updated", updated).
		Dur("took", s.now().Sub(now)).
		Msg("recomputed boost scores")
	return updated, nil
}

// StartPeriodic recomputes once immediately and then on every tick until
// ctx is cancelled. A score is therefore at most one interval plus one
// recompute old.
func (s *BoostService) StartPeriodic(ctx context.Context, interval time.Duration) {
	logger := observability.LoggerFromContext(ctx)
	if _, err := s.Recompute(ctx); err != nil {
		logger.Error().Err(err).Msg("initial boost recompute failed")
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Info().Msg("stopping boost recompute")
				return
			case <-ticker.C:
				if _, err := s.Recompute(ctx); err != nil {
					logger.Error().Err(err).Msg("periodic boost recompute failed")
				}
			}
		}
	}()
	logger.Info().Dur("interval", interval).Msg("started periodic boost recompute")
}
