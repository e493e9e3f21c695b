package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/domain/providers"
	"github.com/estatehub/marketplace/backend/internal/domain/repositories"
	apperrors "github.com/estatehub/marketplace/backend/pkg/errors"
)

// BookingPolicy holds the tour duration rules
type BookingPolicy struct {
	DefaultTourMinutes int
	MaxTourMinutes     int
}

// ScheduleBookingInput is a tour request
type ScheduleBookingInput struct {
	PropertyID      string    `json:"property_id"`
	ScheduledDate   time.Time `json:"scheduled_date"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
	Note            string    `json:"note,omitempty"`
}

// BookingService resolves tour scheduling conflicts. Pending requests may
// overlap freely; approval is where the exclusion is enforced.
type BookingService struct {
	store  repositories.Store
	policy BookingPolicy
	events eventPublisher
	now    func() time.Time
}

// NewBookingService creates a new booking service
func NewBookingService(store repositories.Store, policy BookingPolicy) *BookingService {
	return &BookingService{
		store:  store,
		policy: policy,
		now:    utcNow,
	}
}

// SetEventBus sets the event bus for publishing booking changes
func (s *BookingService) SetEventBus(bus providers.EventBus) {
	s.events.bus = bus
}

// SetClock replaces the time source
func (s *BookingService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *BookingService) duration(requested int) (int, error) {
	if requested == 0 {
		return s.policy.DefaultTourMinutes, nil
	}
	if requested < 0 || requested > s.policy.MaxTourMinutes {
		return 0, apperrors.NewInvalidSlotError(
			fmt.Sprintf("duration must be between 1 and %d minutes", s.policy.MaxTourMinutes))
	}
	return requested, nil
}

// Schedule records a pending tour request from the actor
func (s *BookingService) Schedule(ctx context.Context, actor entities.Actor, input ScheduleBookingInput) (*entities.Booking, error) {
	if !actor.Valid() {
		return nil, apperrors.NewNotAuthorizedError("an authenticated actor is required")
	}
	now := s.now()
	if input.ScheduledDate.IsZero() || !input.ScheduledDate.After(now) {
		return nil, apperrors.NewInvalidSlotError("scheduled_date must be in the future")
	}
	minutes, err := s.duration(input.DurationMinutes)
	if err != nil {
		return nil, err
	}

	var booking *entities.Booking
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Repositories) error {
		property, err := tx.Properties().GetForUpdate(ctx, input.PropertyID)
		if err != nil {
			return err
		}
		if property.IsOwnedBy(actor.UserID) {
			return apperrors.NewNotAuthorizedError("the seller side cannot book a tour of its own property")
		}
		if !property.AcceptsOffers() {
			return invalidState("property is not open for tours", string(property.Status))
		}

		booking = &entities.Booking{
			ID:         uuid.New().String(),
			PropertyID: property.ID,
			BuyerID:    actor.UserID,
			Note:       input.Note,
			Status:     entities.BookingStatusPending,
		}
		booking.SetSlot(input.ScheduledDate.UTC(), minutes)
		booking.Stamp(now)
		if err := tx.Bookings().Create(ctx, booking); err != nil {
			return err
		}

		notices := make([]notice, 0, 2)
		for _, userID := range sellerSide(property) {
			notices = append(notices, notice{
				userID:   userID,
				kind:     entities.NotificationBookingRequest,
				title:    "New tour request",
				message:  fmt.Sprintf("A tour of %s was requested for %s", property.Title, booking.ScheduledDate.Format(time.RFC3339)),
				entity:   entities.EntityBooking,
				entityID: booking.ID,
			})
		}
		return recordNotices(ctx, tx.Notifications(), now, notices...)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, booking, now)
	return booking, nil
}

// Approve confirms a pending request. It fails with SLOT_CONFLICT when an
// approved booking on the same property already overlaps the slot.
func (s *BookingService) Approve(ctx context.Context, actor entities.Actor, bookingID string) (*entities.Booking, error) {
	return s.transition(ctx, actor, bookingID, entities.BookingStatusApproved, bookingSellerOnly)
}

// Reject declines a pending request
func (s *BookingService) Reject(ctx context.Context, actor entities.Actor, bookingID string) (*entities.Booking, error) {
	return s.transition(ctx, actor, bookingID, entities.BookingStatusRejected, bookingSellerOnly)
}

// Cancel calls off a pending or approved tour, by the buyer or the seller side
func (s *BookingService) Cancel(ctx context.Context, actor entities.Actor, bookingID string) (*entities.Booking, error) {
	return s.transition(ctx, actor, bookingID, entities.BookingStatusCancelled, bookingParticipant)
}

// Complete marks an approved tour as held
func (s *BookingService) Complete(ctx context.Context, actor entities.Actor, bookingID string) (*entities.Booking, error) {
	return s.transition(ctx, actor, bookingID, entities.BookingStatusCompleted, bookingSellerOnly)
}

type bookingAuthorizer func(actor entities.Actor, property *entities.Property, booking *entities.Booking) error

func bookingSellerOnly(actor entities.Actor, property *entities.Property, booking *entities.Booking) error {
	if !property.IsManagedBy(actor) {
		return apperrors.NewNotAuthorizedError("only the property owner or agent can do this").
			WithDetail(apperrors.DetailEntityID, booking.ID)
	}
	return nil
}

func bookingParticipant(actor entities.Actor, property *entities.Property, booking *entities.Booking) error {
	if actor.UserID != "" && booking.BuyerID == actor.UserID {
		return nil
	}
	return bookingSellerOnly(actor, property, booking)
}

func (s *BookingService) transition(
	ctx context.Context,
	actor entities.Actor,
	bookingID string,
	to entities.BookingStatus,
	authorize bookingAuthorizer,
) (*entities.Booking, error) {
	now := s.now()

	var booking *entities.Booking
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Repositories) error {
		var err error
		booking, err = tx.Bookings().GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		property, err := tx.Properties().GetForUpdate(ctx, booking.PropertyID)
		if err != nil {
			return err
		}
		if err := authorize(actor, property, booking); err != nil {
			return err
		}

		from := booking.Status
		if !from.CanTransitionTo(to) {
			return apperrors.NewInvalidTransitionError("booking", string(from), string(to))
		}

		switch to {
		case entities.BookingStatusApproved:
			if !booking.ScheduledDate.After(now) {
				return apperrors.NewInvalidSlotError("cannot approve a tour whose slot has passed")
			}
			start, end := booking.Interval()
			conflict, err := tx.Bookings().FindApprovedOverlap(ctx, booking.PropertyID, start, end, booking.ID)
			if err != nil {
				return err
			}
			if conflict != nil {
				return apperrors.NewSlotConflictError(conflict.ID)
			}
		case entities.BookingStatusCompleted:
			if now.Before(booking.ScheduledDate) {
				return invalidState("tour has not started yet", string(from))
			}
		}

		booking.Status = to
		booking.Touch(now)
		if err := tx.Bookings().Transition(ctx, booking, []entities.BookingStatus{from}); err != nil {
			return err
		}

		return recordNotices(ctx, tx.Notifications(), now, bookingNotices(actor, property, booking)...)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, booking, now)
	return booking, nil
}

func bookingNotices(actor entities.Actor, property *entities.Property, booking *entities.Booking) []notice {
	base := notice{entity: entities.EntityBooking, entityID: booking.ID, userID: booking.BuyerID}
	switch booking.Status {
	case entities.BookingStatusApproved:
		base.kind = entities.NotificationBookingApproved
		base.title = "Tour approved"
		base.message = fmt.Sprintf("Your tour of %s on %s was approved", property.Title, booking.ScheduledDate.Format(time.RFC3339))
		return []notice{base}
	case entities.BookingStatusRejected:
		base.kind = entities.NotificationBookingRejected
		base.title = "Tour declined"
		base.message = fmt.Sprintf("Your tour request for %s was declined", property.Title)
		return []notice{base}
	case entities.BookingStatusCancelled:
		base.kind = entities.NotificationBookingCanceled
		base.title = "Tour cancelled"
		base.message = fmt.Sprintf("The tour of %s on %s was cancelled", property.Title, booking.ScheduledDate.Format(time.RFC3339))
		if actor.UserID != booking.BuyerID {
			return []notice{base}
		}
		var notices []notice
		for _, userID := range sellerSide(property) {
			n := base
			n.userID = userID
			notices = append(notices, n)
		}
		return notices
	}
	return nil
}

func (s *BookingService) publish(ctx context.Context, booking *entities.Booking, now time.Time) {
	s.events.publish(ctx, entities.EventBookingChanged, booking.PropertyID, booking.ID, now, map[string]interface{}{
		"status":         string(booking.Status),
		"scheduled_date": booking.ScheduledDate,
		"ends_at":        booking.EndsAt,
	})
}

// Get returns a booking visible to the actor
func (s *BookingService) Get(ctx context.Context, actor entities.Actor, bookingID string) (*entities.Booking, error) {
	booking, err := s.store.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.BuyerID == actor.UserID || actor.IsAdmin() {
		return booking, nil
	}
	property, err := s.store.Properties().GetByID(ctx, booking.PropertyID)
	if err != nil {
		return nil, err
	}
	if !property.IsManagedBy(actor) {
		return nil, apperrors.NewNotAuthorizedError("booking is not visible to this user")
	}
	return booking, nil
}

// ListForProperty lists the tours of a property for its seller side
func (s *BookingService) ListForProperty(ctx context.Context, actor entities.Actor, propertyID string, filter repositories.BookingFilter) ([]*entities.Booking, error) {
	property, err := s.store.Properties().GetByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if !property.IsManagedBy(actor) {
		return nil, apperrors.NewNotAuthorizedError("only the property owner or agent can list bookings")
	}
	return s.store.Bookings().ListByProperty(ctx, propertyID, filter)
}
