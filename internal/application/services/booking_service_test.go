package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estatehub/marketplace/backend/internal/adapters/memory"
	"github.com/estatehub/marketplace/backend/internal/application/services"
	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/domain/repositories"
	apperrors "github.com/estatehub/marketplace/backend/pkg/errors"
)

func newBookingService(t *testing.T) (*services.BookingService, *memory.Store, *testClock) {
	t.Helper()
	store := memory.NewStore()
	clock := newTestClock()
	svc := services.NewBookingService(store, services.BookingPolicy{DefaultTourMinutes: 60, MaxTourMinutes: 240})
	svc.SetClock(clock.Now)
	svc.SetEventBus(NewMockEventBus())
	return svc, store, clock
}

func tourAt(hour, minute int) time.Time {
	return time.Date(2026, 3, 10, hour, minute, 0, 0, time.UTC)
}

func TestBookingService_ConflictScenario(t *testing.T) {
	svc, store, _ := newBookingService(t)
	seedProperty(t, store, "prop-y")
	ctx := context.Background()

	first, err := svc.Schedule(ctx, buyer, services.ScheduleBookingInput{PropertyID: "prop-y", ScheduledDate: tourAt(10, 0)})
	require.NoError(t, err)
	assert.Equal(t, entities.BookingStatusPending, first.Status)
	assert.Equal(t, 60, first.DurationMinutes)
	assert.Equal(t, tourAt(11, 0), first.EndsAt)

	// overlapping requests are accepted while pending
	second, err := svc.Schedule(ctx, buyer2, services.ScheduleBookingInput{PropertyID: "prop-y", ScheduledDate: tourAt(10, 30)})
	require.NoError(t, err)
	assert.Equal(t, entities.BookingStatusPending, second.Status)

	approved, err := svc.Approve(ctx, seller, first.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.BookingStatusApproved, approved.Status)

	_, err = svc.Approve(ctx, seller, second.ID)
	require.ErrorIs(t, err, apperrors.ErrSlotConflict)
	appErr, _ := apperrors.As(err)
	assert.Equal(t, first.ID, appErr.Details[apperrors.DetailConflictingID])

	stored, err := store.Bookings().GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.BookingStatusPending, stored.Status)

	assert.Contains(t, notificationTypes(t, store, buyer.UserID), entities.NotificationBookingApproved)
	assert.Contains(t, notificationTypes(t, store, seller.UserID), entities.NotificationBookingRequest)
}

func TestBookingService_BackToBackSlotsDoNotConflict(t *testing.T) {
	svc, store, _ := newBookingService(t)
	seedProperty(t, store, "prop-1")
	ctx := context.Background()

	morning, err := svc.Schedule(ctx, buyer, services.ScheduleBookingInput{PropertyID: "prop-1", ScheduledDate: tourAt(9, 0), DurationMinutes: 60})
	require.NoError(t, err)
	next, err := svc.Schedule(ctx, buyer2, services.ScheduleBookingInput{PropertyID: "prop-1", ScheduledDate: tourAt(10, 0), DurationMinutes: 30})
	require.NoError(t, err)

	_, err = svc.Approve(ctx, seller, morning.ID)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, agent, next.ID)
	assert.NoError(t, err)
}

func TestBookingService_ConflictIsPerProperty(t *testing.T) {
	svc, store, _ := newBookingService(t)
	seedProperty(t, store, "prop-1")
	seedProperty(t, store, "prop-2")
	ctx := context.Background()

	a, err := svc.Schedule(ctx, buyer, services.ScheduleBookingInput{PropertyID: "prop-1", ScheduledDate: tourAt(10, 0)})
	require.NoError(t, err)
	b, err := svc.Schedule(ctx, buyer, services.ScheduleBookingInput{PropertyID: "prop-2", ScheduledDate: tourAt(10, 0)})
	require.NoError(t, err)

	_, err = svc.Approve(ctx, seller, a.ID)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, seller, b.ID)
	assert.NoError(t, err)
}

func TestBookingService_ScheduleValidation(t *testing.T) {
	svc, store, _ := newBookingService(t)
	seedProperty(t, store, "prop-1")
	ctx := context.Background()

	tests := []struct {
		name    string
		actor   entities.Actor
		input   services.ScheduleBookingInput
		errType apperrors.ErrorType
	}{
		{"past slot", buyer, services.ScheduleBookingInput{PropertyID: "prop-1", ScheduledDate: baseTime.Add(-time.Hour)}, apperrors.ErrorTypeInvalidSlot},
		{"now", buyer, services.ScheduleBookingInput{PropertyID: "prop-1", ScheduledDate: baseTime}, apperrors.ErrorTypeInvalidSlot},
		{"negative duration", buyer, services.ScheduleBookingInput{PropertyID: "prop-1", ScheduledDate: tourAt(10, 0), DurationMinutes: -15}, apperrors.ErrorTypeInvalidSlot},
		{"too long", buyer, services.ScheduleBookingInput{PropertyID: "prop-1", ScheduledDate: tourAt(10, 0), DurationMinutes: 241}, apperrors.ErrorTypeInvalidSlot},
		{"missing property", buyer, services.ScheduleBookingInput{PropertyID: "nope", ScheduledDate: tourAt(10, 0)}, apperrors.ErrorTypeNotFound},
		{"owner books", seller, services.ScheduleBookingInput{PropertyID: "prop-1", ScheduledDate: tourAt(10, 0)}, apperrors.ErrorTypeNotAuthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Schedule(ctx, tt.actor, tt.input)
			assert.Equal(t, tt.errType, apperrors.TypeOf(err))
		})
	}

	longest, err := svc.Schedule(ctx, buyer, services.ScheduleBookingInput{PropertyID: "prop-1", ScheduledDate: tourAt(10, 0), DurationMinutes: 240})
	require.NoError(t, err)
	assert.Equal(t, tourAt(14, 0), longest.EndsAt)
}

func TestBookingService_TransitionRules(t *testing.T) {
	svc, store, clock := newBookingService(t)
	seedProperty(t, store, "prop-1")
	ctx := context.Background()

	booking, err := svc.Schedule(ctx, buyer, services.ScheduleBookingInput{PropertyID: "prop-1", ScheduledDate: tourAt(10, 0)})
	require.NoError(t, err)

	_, err = svc.Approve(ctx, buyer, booking.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotAuthorized)
	_, err = svc.Complete(ctx, seller, booking.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	_, err = svc.Approve(ctx, seller, booking.ID)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, seller, booking.ID)
	require.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	appErr, _ := apperrors.As(err)
	assert.Equal(t, "approved", appErr.Details[apperrors.DetailCurrentStatus])

	// completing before the tour starts is refused
	_, err = svc.Complete(ctx, seller, booking.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	clock.Advance(tourAt(10, 30).Sub(baseTime))
	done, err := svc.Complete(ctx, agent, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.BookingStatusCompleted, done.Status)

	_, err = svc.Cancel(ctx, buyer, booking.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestBookingService_Cancel(t *testing.T) {
	svc, store, _ := newBookingService(t)
	seedProperty(t, store, "prop-1")
	ctx := context.Background()

	pending, err := svc.Schedule(ctx, buyer, services.ScheduleBookingInput{PropertyID: "prop-1", ScheduledDate: tourAt(10, 0)})
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, buyer2, pending.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotAuthorized)

	cancelled, err := svc.Cancel(ctx, buyer, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.BookingStatusCancelled, cancelled.Status)
	assert.Contains(t, notificationTypes(t, store, seller.UserID), entities.NotificationBookingCanceled)

	approved, err := svc.Schedule(ctx, buyer, services.ScheduleBookingInput{PropertyID: "prop-1", ScheduledDate: tourAt(10, 0)})
	require.NoError(t, err)
	_, err = svc.Approve(ctx, seller, approved.ID)
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, seller, approved.ID)
	require.NoError(t, err)
	assert.Contains(t, notificationTypes(t, store, buyer.UserID), entities.NotificationBookingCanceled)

	// a cancelled approval frees the slot
	other, err := svc.Schedule(ctx, buyer2, services.ScheduleBookingInput{PropertyID: "prop-1", ScheduledDate: tourAt(10, 15)})
	require.NoError(t, err)
	_, err = svc.Approve(ctx, seller, other.ID)
	assert.NoError(t, err)
}

func TestBookingService_ApprovePastSlot(t *testing.T) {
	svc, store, clock := newBookingService(t)
	seedProperty(t, store, "prop-1")
	ctx := context.Background()

	booking, err := svc.Schedule(ctx, buyer, services.ScheduleBookingInput{PropertyID: "prop-1", ScheduledDate: tourAt(10, 0)})
	require.NoError(t, err)

	clock.Advance(tourAt(12, 0).Sub(baseTime))
	_, err = svc.Approve(ctx, seller, booking.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidSlot)
}

func TestBookingService_ConcurrentApprovalsNeverOverlap(t *testing.T) {
	svc, store, _ := newBookingService(t)
	seedProperty(t, store, "prop-1")
	ctx := context.Background()

	var ids []string
	for i := 0; i < 8; i++ {
		b, err := svc.Schedule(ctx, entities.Actor{UserID: "b-" + string(rune('a'+i)), Role: entities.RoleBuyer},
			services.ScheduleBookingInput{PropertyID: "prop-1", ScheduledDate: tourAt(10, i*10)})
		require.NoError(t, err)
		ids = append(ids, b.ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := svc.Approve(ctx, seller, id)
			if err != nil && !apperrors.IsType(err, apperrors.ErrorTypeSlotConflict) {
				t.Errorf("unexpected error: %v", err)
			}
		}(id)
	}
	wg.Wait()

	approved, err := store.Bookings().ListByProperty(ctx, "prop-1", repositories.BookingFilter{Status: entities.BookingStatusApproved})
	require.NoError(t, err)
	require.NotEmpty(t, approved)
	for i := range approved {
		for j := i + 1; j < len(approved); j++ {
			assert.False(t, approved[i].Overlaps(approved[j]), "%s overlaps %s", approved[i].ID, approved[j].ID)
		}
	}
}

func TestBookingService_Visibility(t *testing.T) {
	svc, store, _ := newBookingService(t)
	seedProperty(t, store, "prop-1")
	ctx := context.Background()

	booking, err := svc.Schedule(ctx, buyer, services.ScheduleBookingInput{PropertyID: "prop-1", ScheduledDate: tourAt(10, 0), Note: "ring twice"})
	require.NoError(t, err)

	got, err := svc.Get(ctx, seller, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, "ring twice", got.Note)
	_, err = svc.Get(ctx, buyer2, booking.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotAuthorized)

	list, err := svc.ListForProperty(ctx, agent, "prop-1", repositories.BookingFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	_, err = svc.ListForProperty(ctx, buyer, "prop-1", repositories.BookingFilter{})
	assert.ErrorIs(t, err, apperrors.ErrNotAuthorized)
}
