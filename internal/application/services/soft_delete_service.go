package services

import (
	"context"
	"time"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/domain/providers"
	"github.com/estatehub/marketplace/backend/internal/domain/repositories"
	"github.com/estatehub/marketplace/backend/internal/infrastructure/observability"
	apperrors "github.com/estatehub/marketplace/backend/pkg/errors"
)

const defaultAuditLimit = 100

// SoftDeleteService removes records by marking them deleted. Repeating a
// delete succeeds without changing anything.
type SoftDeleteService struct {
	store  repositories.Store
	cache  providers.CacheProvider
	events eventPublisher
	now    func() time.Time
}

// NewSoftDeleteService creates a new soft delete service
func NewSoftDeleteService(store repositories.Store) *SoftDeleteService {
	return &SoftDeleteService{store: store, now: utcNow}
}

// SetEventBus sets the event bus for publishing deletions
func (s *SoftDeleteService) SetEventBus(bus providers.EventBus) {
	s.events.bus = bus
}

// SetCache sets the property read cache dropped after a property delete
func (s *SoftDeleteService) SetCache(cache providers.CacheProvider) {
	s.cache = cache
}

// SetClock replaces the time source
func (s *SoftDeleteService) SetClock(now func() time.Time) {
	s.now = now
}

// DeleteProperty hides a property. Its open offers are rejected in the same
// transaction.
func (s *SoftDeleteService) DeleteProperty(ctx context.Context, actor entities.Actor, propertyID string) error {
	now := s.now()
	changed := false
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Repositories) error {
		changed = false

		property, err := tx.Properties().GetForUpdate(ctx, propertyID)
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			// already deleted rows report false; unknown ids keep NOT_FOUND
			_, err = tx.Properties().SoftDelete(ctx, propertyID, now)
			return err
		}
		if err != nil {
			return err
		}
		if property.OwnerID != actor.UserID && !actor.IsAdmin() {
			return apperrors.NewNotAuthorizedError("only the owner can delete this property")
		}

		changed, err = tx.Properties().SoftDelete(ctx, propertyID, now)
		if err != nil || !changed {
			return err
		}

		rejected, err := tx.Offers().RejectActiveExcept(ctx, propertyID, "", now)
		if err != nil {
			return err
		}
		notices := make([]notice, 0, len(rejected))
		for _, o := range rejected {
			n := rejectionNotice(property, o)
			n.message = "The property you made an offer on is no longer listed"
			notices = append(notices, n)
		}
		return recordNotices(ctx, tx.Notifications(), now, notices...)
	})
	if err != nil {
		return err
	}

	// the read cache must not outlive the commit; the event below is only a backup
	if s.cache != nil {
		if err := providers.InvalidateProperty(ctx, s.cache, propertyID); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).
				Str("property_id", propertyID).
				Msg("failed to drop cached property after delete")
		}
	}
	if changed {
		s.events.publish(ctx, entities.EventPropertyDeleted, propertyID, propertyID, now, nil)
	}
	return nil
}

// DeleteOffer hides an offer from its buyer's and the seller's lists
func (s *SoftDeleteService) DeleteOffer(ctx context.Context, actor entities.Actor, offerID string) error {
	now := s.now()
	var offer *entities.Offer
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Repositories) error {
		var err error
		offer, err = tx.Offers().GetByID(ctx, offerID)
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			offer = nil
			_, err = tx.Offers().SoftDelete(ctx, offerID, now)
			return err
		}
		if err != nil {
			return err
		}
		if offer.BuyerID != actor.UserID && !actor.IsAdmin() {
			return apperrors.NewNotAuthorizedError("only the buyer can delete this offer")
		}
		_, err = tx.Offers().SoftDelete(ctx, offerID, now)
		return err
	})
	if err != nil {
		return err
	}

	if offer != nil {
		s.events.publish(ctx, entities.EventOfferChanged, offer.PropertyID, offer.ID, now, map[string]interface{}{
			"deleted": true,
		})
	}
	return nil
}

// DeleteBooking hides a booking. A deleted approved booking frees its slot.
func (s *SoftDeleteService) DeleteBooking(ctx context.Context, actor entities.Actor, bookingID string) error {
	now := s.now()
	var booking *entities.Booking
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Repositories) error {
		var err error
		booking, err = tx.Bookings().GetByID(ctx, bookingID)
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			booking = nil
			_, err = tx.Bookings().SoftDelete(ctx, bookingID, now)
			return err
		}
		if err != nil {
			return err
		}
		if booking.BuyerID != actor.UserID && !actor.IsAdmin() {
			return apperrors.NewNotAuthorizedError("only the buyer can delete this booking")
		}
		_, err = tx.Bookings().SoftDelete(ctx, bookingID, now)
		return err
	})
	if err != nil {
		return err
	}

	if booking != nil {
		s.events.publish(ctx, entities.EventBookingChanged, booking.PropertyID, booking.ID, now, map[string]interface{}{
			"deleted": true,
		})
	}
	return nil
}

// ListDeleted is the audit view over soft-deleted records. Admins only.
func (s *SoftDeleteService) ListDeleted(ctx context.Context, actor entities.Actor, kind entities.EntityKind, since time.Time, limit int) ([]entities.DeletedRecord, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewNotAuthorizedError("audit listing requires the admin role")
	}
	if _, ok := entities.ParseEntityKind(string(kind)); !ok {
		return nil, apperrors.NewValidationError("unknown entity kind " + string(kind))
	}
	if limit <= 0 || limit > 1000 {
		limit = defaultAuditLimit
	}
	return s.store.Audit().ListDeleted(ctx, kind, since, limit)
}
