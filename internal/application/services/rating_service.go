package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/domain/providers"
	"github.com/estatehub/marketplace/backend/internal/domain/repositories"
	"github.com/estatehub/marketplace/backend/internal/infrastructure/observability"
	apperrors "github.com/estatehub/marketplace/backend/pkg/errors"
)

// RatingService keeps the denormalized rating aggregates of properties and
// their agents in step with the live review set
type RatingService struct {
	store  repositories.Store
	events eventPublisher
	now    func() time.Time
}

// NewRatingService creates a new rating service
func NewRatingService(store repositories.Store) *RatingService {
	return &RatingService{store: store, now: utcNow}
}

// SetEventBus sets the event bus for publishing rating changes
func (s *RatingService) SetEventBus(bus providers.EventBus) {
	s.events.bus = bus
}

// SetClock replaces the time source
func (s *RatingService) SetClock(now func() time.Time) {
	s.now = now
}

// UpsertReview creates the actor's review of a property or edits the live one
func (s *RatingService) UpsertReview(ctx context.Context, actor entities.Actor, propertyID string, rating int, comment string) (*entities.Review, *entities.RatingSummary, error) {
	if !entities.ValidRating(rating) {
		return nil, nil, apperrors.NewInvalidRatingError(rating)
	}
	if !actor.Valid() {
		return nil, nil, apperrors.NewNotAuthorizedError("an authenticated actor is required")
	}

	now := s.now()
	var (
		review  *entities.Review
		summary *entities.RatingSummary
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Repositories) error {
		property, err := tx.Properties().GetForUpdate(ctx, propertyID)
		if err != nil {
			return err
		}
		if property.IsOwnedBy(actor.UserID) {
			return apperrors.NewNotAuthorizedError("the seller side cannot review its own property")
		}

		existing, err := tx.Reviews().FindActive(ctx, actor.UserID, propertyID)
		if err != nil {
			return err
		}

		countDelta, sumDelta := 0, 0
		if existing != nil {
			sumDelta = rating - existing.Rating
			existing.Rating = rating
			existing.Comment = comment
			existing.Touch(now)
			if err := tx.Reviews().Update(ctx, existing); err != nil {
				return err
			}
			review = existing
		} else {
			review = &entities.Review{
				ID:         uuid.New().String(),
				PropertyID: propertyID,
				UserID:     actor.UserID,
				AgentID:    property.AgentID,
				Rating:     rating,
				Comment:    comment,
			}
			review.Stamp(now)
			if err := tx.Reviews().Create(ctx, review); err != nil {
				return err
			}
			countDelta, sumDelta = 1, rating
		}

		summary, err = s.applyDelta(ctx, tx, property, review.AgentID, countDelta, sumDelta, now)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.publish(ctx, summary, review.ID, now)
	return review, summary, nil
}

// RemoveReview soft-deletes the live review of userID on a property and takes
// it out of the aggregates. Only the reviewer or an admin may do this.
func (s *RatingService) RemoveReview(ctx context.Context, actor entities.Actor, userID, propertyID string) (*entities.RatingSummary, error) {
	if actor.UserID == "" || (actor.UserID != userID && !actor.IsAdmin()) {
		return nil, apperrors.NewNotAuthorizedError("only the reviewer can remove this review")
	}

	now := s.now()
	var (
		review  *entities.Review
		summary *entities.RatingSummary
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Repositories) error {
		property, err := tx.Properties().GetForUpdate(ctx, propertyID)
		if err != nil {
			return err
		}
		review, err = tx.Reviews().FindActive(ctx, userID, propertyID)
		if err != nil {
			return err
		}
		if review == nil {
			return apperrors.NewNotFoundError("review not found")
		}

		changed, err := tx.Reviews().SoftDelete(ctx, review.ID, now)
		if err != nil {
			return err
		}
		if !changed {
			return apperrors.NewNotFoundError("review not found")
		}

		summary, err = s.applyDelta(ctx, tx, property, review.AgentID, -1, -review.Rating, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, summary, review.ID, now)
	return summary, nil
}

func (s *RatingService) applyDelta(
	ctx context.Context,
	tx repositories.Repositories,
	property *entities.Property,
	agentID *string,
	countDelta, sumDelta int,
	now time.Time,
) (*entities.RatingSummary, error) {
	if countDelta != 0 || sumDelta != 0 {
		if err := tx.Properties().ApplyRatingDelta(ctx, property.ID, countDelta, sumDelta, now); err != nil {
			return nil, err
		}
		property.ApplyRating(countDelta, sumDelta)

		if agentID != nil && *agentID != "" {
			err := tx.Users().ApplyRatingDelta(ctx, *agentID, countDelta, sumDelta, now)
			if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
				observability.LoggerFromContext(ctx).Warn().
					Str("agent_id", *agentID).
					Str("property_id", property.ID).
					Msg("agent missing, skipping agent rating update")
			} else if err != nil {
				return nil, err
			}
		}
	}

	return &entities.RatingSummary{
		PropertyID:    property.ID,
		AverageRating: property.AverageRating,
		RatingsCount:  property.RatingsCount,
	}, nil
}

// Reconcile recomputes a property's aggregate from its live reviews
func (s *RatingService) Reconcile(ctx context.Context, propertyID string) (*entities.RatingSummary, error) {
	now := s.now()
	var summary *entities.RatingSummary
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Repositories) error {
		property, err := tx.Properties().GetForUpdate(ctx, propertyID)
		if err != nil {
			return err
		}
		count, sum, err := tx.Reviews().Aggregate(ctx, propertyID)
		if err != nil {
			return err
		}

		if count != property.RatingsCount || sum != property.RatingsSum {
			observability.LoggerFromContext(ctx).Info().
				Str("property_id", propertyID).
				Int("stored_count", property.RatingsCount).
				Int("actual_count", count).
				Int("stored_sum", property.RatingsSum).
				Int("actual_sum", sum).
				Msg("repairing rating aggregate")
			if err := tx.Properties().SetRatingAggregate(ctx, propertyID, count, sum, now); err != nil {
				return err
			}
		}

		summary = &entities.RatingSummary{
			PropertyID:    propertyID,
			AverageRating: entities.AverageOf(sum, count),
			RatingsCount:  count,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// ListForProperty lists the live reviews of a property
func (s *RatingService) ListForProperty(ctx context.Context, propertyID string, filter repositories.ListFilter) ([]*entities.Review, error) {
	if _, err := s.store.Properties().GetByID(ctx, propertyID); err != nil {
		return nil, err
	}
	return s.store.Reviews().ListByProperty(ctx, propertyID, filter)
}

func (s *RatingService) publish(ctx context.Context, summary *entities.RatingSummary, reviewID string, now time.Time) {
	s.events.publish(ctx, entities.EventRatingChanged, summary.PropertyID, reviewID, now, map[string]interface{}{
		"average_rating": summary.AverageRating,
		"ratings_count":  summary.RatingsCount,
	})
}
