package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/domain/providers"
	"github.com/estatehub/marketplace/backend/internal/domain/repositories"
	"github.com/estatehub/marketplace/backend/internal/infrastructure/observability"
	apperrors "github.com/estatehub/marketplace/backend/pkg/errors"
)

// OfferPolicy holds the expiry rules of the negotiation
type OfferPolicy struct {
	OfferTTL        time.Duration
	CounterOfferTTL time.Duration
}

// CreateOfferInput is the buyer's opening bid
type CreateOfferInput struct {
	PropertyID string     `json:"property_id"`
	Amount     float64    `json:"amount"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	Message    string     `json:"message,omitempty"`
}

// OfferService runs the offer negotiation state machine
type OfferService struct {
	store  repositories.Store
	policy OfferPolicy
	events eventPublisher
	now    func() time.Time
}

// NewOfferService creates a new offer service
func NewOfferService(store repositories.Store, policy OfferPolicy) *OfferService {
	return &OfferService{
		store:  store,
		policy: policy,
		now:    utcNow,
	}
}

// SetEventBus sets the event bus for publishing offer changes
func (s *OfferService) SetEventBus(bus providers.EventBus) {
	s.events.bus = bus
}

// SetClock replaces the time source
func (s *OfferService) SetClock(now func() time.Time) {
	s.now = now
}

func validAmount(amount float64) bool {
	return amount > 0 && !math.IsInf(amount, 0) && !math.IsNaN(amount)
}

func invalidState(message, currentStatus string) *apperrors.AppError {
	err := &apperrors.AppError{Type: apperrors.ErrorTypeInvalidTransition, Message: message}
	if currentStatus != "" {
		err.WithDetail(apperrors.DetailCurrentStatus, currentStatus)
	}
	return err
}

// Create opens a new pending offer from the actor on a property
func (s *OfferService) Create(ctx context.Context, actor entities.Actor, input CreateOfferInput) (*entities.Offer, error) {
	if !actor.Valid() {
		return nil, apperrors.NewNotAuthorizedError("an authenticated actor is required")
	}
	if !validAmount(input.Amount) {
		return nil, apperrors.NewInvalidAmountError("offer amount must be greater than zero")
	}

	now := s.now()
	expiresAt := now.Add(s.policy.OfferTTL)
	if input.ExpiresAt != nil {
		if !input.ExpiresAt.After(now) {
			return nil, apperrors.NewValidationError("expires_at must be in the future")
		}
		expiresAt = input.ExpiresAt.UTC()
	}

	var offer *entities.Offer
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Repositories) error {
		property, err := tx.Properties().GetForUpdate(ctx, input.PropertyID)
		if err != nil {
			return err
		}
		if property.IsOwnedBy(actor.UserID) {
			return apperrors.NewNotAuthorizedError("the seller side cannot make offers on its own property")
		}
		if !property.AcceptsOffers() {
			return invalidState("property is not accepting offers", string(property.Status))
		}

		winner, err := tx.Offers().FindAccepted(ctx, property.ID)
		if err != nil {
			return err
		}
		if winner != nil {
			return invalidState("property already has an accepted offer", "").
				WithDetail(apperrors.DetailConflictingID, winner.ID)
		}

		existing, err := tx.Offers().FindActive(ctx, actor.UserID, property.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			if !existing.IsExpired(now) {
				return apperrors.NewDuplicateActiveOfferError(existing.ID)
			}
			if err := s.expire(ctx, tx, existing, now); err != nil {
				return err
			}
		}

		offer = &entities.Offer{
			ID:         uuid.New().String(),
			PropertyID: property.ID,
			BuyerID:    actor.UserID,
			Amount:     input.Amount,
			Message:    input.Message,
			Status:     entities.OfferStatusPending,
			ExpiresAt:  expiresAt,
		}
		offer.Stamp(now)
		if err := tx.Offers().Create(ctx, offer); err != nil {
			return err
		}

		notices := make([]notice, 0, 2)
		for _, userID := range sellerSide(property) {
			notices = append(notices, notice{
				userID:   userID,
				kind:     entities.NotificationOfferReceived,
				title:    "New offer received",
				message:  fmt.Sprintf("An offer of %.2f was made on %s", offer.Amount, property.Title),
				entity:   entities.EntityOffer,
				entityID: offer.ID,
			})
		}
		return recordNotices(ctx, tx.Notifications(), now, notices...)
	})
	if err != nil {
		return nil, err
	}

	s.events.publish(ctx, entities.EventOfferChanged, offer.PropertyID, offer.ID, now, map[string]interface{}{
		"status": string(offer.Status),
	})
	return offer, nil
}

// Counter replaces the amount of an open offer on behalf of the seller side
func (s *OfferService) Counter(ctx context.Context, actor entities.Actor, offerID string, newAmount float64) (*entities.Offer, error) {
	if !validAmount(newAmount) {
		return nil, apperrors.NewInvalidAmountError("counter amount must be greater than zero")
	}
	return s.transition(ctx, actor, offerID, entities.OfferStatusCountered, sellerOnly, func(o *entities.Offer, now time.Time) {
		o.Amount = newAmount
		o.ExpiresAt = now.Add(s.policy.CounterOfferTTL)
	})
}

// Accept closes the negotiation in the buyer's favor. Every other open offer
// on the property is rejected in the same transaction.
func (s *OfferService) Accept(ctx context.Context, actor entities.Actor, offerID string) (*entities.Offer, error) {
	return s.transition(ctx, actor, offerID, entities.OfferStatusAccepted, sellerOnly, nil)
}

// Reject declines an open offer
func (s *OfferService) Reject(ctx context.Context, actor entities.Actor, offerID string) (*entities.Offer, error) {
	return s.transition(ctx, actor, offerID, entities.OfferStatusRejected, sellerOnly, nil)
}

// Withdraw lets the buyer retract an open offer
func (s *OfferService) Withdraw(ctx context.Context, actor entities.Actor, offerID string) (*entities.Offer, error) {
	return s.transition(ctx, actor, offerID, entities.OfferStatusWithdrawn, buyerOnly, nil)
}

type offerAuthorizer func(actor entities.Actor, property *entities.Property, offer *entities.Offer) error

func sellerOnly(actor entities.Actor, property *entities.Property, offer *entities.Offer) error {
	if !property.IsManagedBy(actor) {
		return apperrors.NewNotAuthorizedError("only the property owner or agent can do this").
			WithDetail(apperrors.DetailEntityID, offer.ID)
	}
	return nil
}

func buyerOnly(actor entities.Actor, property *entities.Property, offer *entities.Offer) error {
	if actor.UserID == "" || offer.BuyerID != actor.UserID {
		return apperrors.NewNotAuthorizedError("only the buyer can withdraw this offer").
			WithDetail(apperrors.DetailEntityID, offer.ID)
	}
	return nil
}

func (s *OfferService) transition(
	ctx context.Context,
	actor entities.Actor,
	offerID string,
	to entities.OfferStatus,
	authorize offerAuthorizer,
	mutate func(o *entities.Offer, now time.Time),
) (*entities.Offer, error) {
	now := s.now()

	var (
		offer      *entities.Offer
		property   *entities.Property
		rejected   []*entities.Offer
		expiredErr error
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Repositories) error {
		rejected, expiredErr = nil, nil

		var err error
		offer, err = tx.Offers().GetByID(ctx, offerID)
		if err != nil {
			return err
		}
		property, err = tx.Properties().GetForUpdate(ctx, offer.PropertyID)
		if err != nil {
			return err
		}
		if err := authorize(actor, property, offer); err != nil {
			return err
		}

		// lazy expiry: the expiry is committed and the requested move is refused
		if offer.IsExpired(now) {
			from := offer.Status
			if err := s.expire(ctx, tx, offer, now); err != nil {
				return err
			}
			expiredErr = apperrors.NewInvalidTransitionError("offer", string(from), string(to)).
				WithDetail(apperrors.DetailReason, "expired")
			return nil
		}

		from := offer.Status
		if !from.CanTransitionTo(to) {
			return apperrors.NewInvalidTransitionError("offer", string(from), string(to))
		}

		if to == entities.OfferStatusAccepted {
			winner, err := tx.Offers().FindAccepted(ctx, property.ID)
			if err != nil {
				return err
			}
			if winner != nil {
				return invalidState("property already has an accepted offer", string(from)).
					WithDetail(apperrors.DetailConflictingID, winner.ID)
			}
		}

		if mutate != nil {
			mutate(offer, now)
		}
		offer.Status = to
		offer.Touch(now)
		if err := tx.Offers().Transition(ctx, offer, []entities.OfferStatus{from}); err != nil {
			return err
		}

		if to == entities.OfferStatusAccepted {
			rejected, err = tx.Offers().RejectActiveExcept(ctx, property.ID, offer.ID, now)
			if err != nil {
				return err
			}
		}

		return recordNotices(ctx, tx.Notifications(), now, s.transitionNotices(property, offer, rejected)...)
	})
	if err != nil {
		return nil, err
	}
	if expiredErr != nil {
		return nil, expiredErr
	}

	s.events.publish(ctx, entities.EventOfferChanged, offer.PropertyID, offer.ID, now, map[string]interface{}{
		"status":         string(offer.Status),
		"rejected_count": len(rejected),
	})
	return offer, nil
}

func (s *OfferService) transitionNotices(property *entities.Property, offer *entities.Offer, rejected []*entities.Offer) []notice {
	var notices []notice
	switch offer.Status {
	case entities.OfferStatusCountered:
		notices = append(notices, notice{
			userID:   offer.BuyerID,
			kind:     entities.NotificationOfferCountered,
			title:    "Your offer was countered",
			message:  fmt.Sprintf("The seller countered with %.2f on %s", offer.Amount, property.Title),
			entity:   entities.EntityOffer,
			entityID: offer.ID,
		})
	case entities.OfferStatusAccepted:
		notices = append(notices, notice{
			userID:   offer.BuyerID,
			kind:     entities.NotificationOfferAccepted,
			title:    "Your offer was accepted",
			message:  fmt.Sprintf("Your offer of %.2f on %s was accepted", offer.Amount, property.Title),
			entity:   entities.EntityOffer,
			entityID: offer.ID,
		})
	case entities.OfferStatusRejected:
		notices = append(notices, rejectionNotice(property, offer))
	case entities.OfferStatusWithdrawn:
		for _, userID := range sellerSide(property) {
			notices = append(notices, notice{
				userID:   userID,
				kind:     entities.NotificationOfferWithdrawn,
				title:    "Offer withdrawn",
				message:  fmt.Sprintf("An offer on %s was withdrawn", property.Title),
				entity:   entities.EntityOffer,
				entityID: offer.ID,
			})
		}
	}
	for _, other := range rejected {
		notices = append(notices, rejectionNotice(property, other))
	}
	return notices
}

func rejectionNotice(property *entities.Property, offer *entities.Offer) notice {
	n := notice{
		userID:   offer.BuyerID,
		kind:     entities.NotificationOfferRejected,
		title:    "Offer rejected",
		entity:   entities.EntityOffer,
		entityID: offer.ID,
	}
	if property == nil {
		n.title = "Offer expired"
		n.message = "Your offer expired without a response"
		return n
	}
	n.message = fmt.Sprintf("Your offer on %s was not accepted", property.Title)
	return n
}

// expire moves an outdated open offer to rejected inside tx
func (s *OfferService) expire(ctx context.Context, tx repositories.Repositories, offer *entities.Offer, now time.Time) error {
	from := offer.Status
	offer.Status = entities.OfferStatusRejected
	offer.Touch(now)
	if err := tx.Offers().Transition(ctx, offer, []entities.OfferStatus{from}); err != nil {
		return err
	}
	return recordNotices(ctx, tx.Notifications(), now, rejectionNotice(nil, offer))
}

// SweepExpired rejects every open offer past its expiry. It returns how many were expired.
func (s *OfferService) SweepExpired(ctx context.Context, batchSize int) (int, error) {
	now := s.now()
	total := 0
	for {
		var expired []*entities.Offer
		err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Repositories) error {
			var err error
			expired, err = tx.Offers().ExpireDue(ctx, now, batchSize)
			if err != nil {
				return err
			}
			notices := make([]notice, 0, len(expired))
			for _, o := range expired {
				notices = append(notices, rejectionNotice(nil, o))
			}
			return recordNotices(ctx, tx.Notifications(), now, notices...)
		})
		if err != nil {
			return total, fmt.Errorf("failed to sweep expired offers: %w", err)
		}

		for _, o := range expired {
			s.events.publish(ctx, entities.EventOfferChanged, o.PropertyID, o.ID, now, map[string]interface{}{
				"status": string(o.Status),
				"reason": "expired",
			})
		}
		total += len(expired)

		if batchSize <= 0 || len(expired) < batchSize {
			break
		}
	}

	if total > 0 {
		observability.LoggerFromContext(ctx).Info().Int("expired", total).Msg("expired open offers")
	}
	return total, nil
}

// Get returns an offer visible to the actor
func (s *OfferService) Get(ctx context.Context, actor entities.Actor, offerID string) (*entities.Offer, error) {
	offer, err := s.store.Offers().GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.BuyerID == actor.UserID || actor.IsAdmin() {
		return offer, nil
	}
	property, err := s.store.Properties().GetByID(ctx, offer.PropertyID)
	if err != nil {
		return nil, err
	}
	if !property.IsManagedBy(actor) {
		return nil, apperrors.NewNotAuthorizedError("offer is not visible to this user")
	}
	return offer, nil
}

// ListForProperty lists the offers on a property for its seller side
func (s *OfferService) ListForProperty(ctx context.Context, actor entities.Actor, propertyID string, filter repositories.OfferFilter) ([]*entities.Offer, error) {
	property, err := s.store.Properties().GetByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if !property.IsManagedBy(actor) {
		return nil, apperrors.NewNotAuthorizedError("only the property owner or agent can list offers")
	}
	return s.store.Offers().ListByProperty(ctx, propertyID, filter)
}

// ListForBuyer lists the actor's own offers
func (s *OfferService) ListForBuyer(ctx context.Context, actor entities.Actor, filter repositories.OfferFilter) ([]*entities.Offer, error) {
	if !actor.Valid() {
		return nil, apperrors.NewNotAuthorizedError("an authenticated actor is required")
	}
	return s.store.Offers().ListByBuyer(ctx, actor.UserID, filter)
}

// StartSweeper runs SweepExpired on every tick until ctx is cancelled
func (s *OfferService) StartSweeper(ctx context.Context, interval time.Duration, batchSize int) {
	logger := observability.LoggerFromContext(ctx)
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Info().Msg("stopping offer expiry sweep")
				return
			case <-ticker.C:
				if _, err := s.SweepExpired(ctx, batchSize); err != nil {
					logger.Error().Err(err).Msg("offer expiry sweep failed")
				}
			}
		}
	}()
	logger.Info().Dur("interval", interval).Msg("started offer expiry sweep")
}
