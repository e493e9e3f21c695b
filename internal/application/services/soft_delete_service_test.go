package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estatehub/marketplace/backend/internal/adapters/memory"
	"github.com/estatehub/marketplace/backend/internal/application/services"
	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/domain/providers"
	apperrors "github.com/estatehub/marketplace/backend/pkg/errors"
)

type softDeleteFixture struct {
	store    *memory.Store
	clock    *testClock
	bus      *MockEventBus
	deletes  *services.SoftDeleteService
	offers   *services.OfferService
	bookings *services.BookingService
	ratings  *services.RatingService
}

func newSoftDeleteFixture(t *testing.T) *softDeleteFixture {
	t.Helper()
	f := &softDeleteFixture{
		store: memory.NewStore(),
		clock: newTestClock(),
		bus:   NewMockEventBus(),
	}
	f.deletes = services.NewSoftDeleteService(f.store)
	f.deletes.SetClock(f.clock.Now)
	f.deletes.SetEventBus(f.bus)
	f.offers = services.NewOfferService(f.store, services.OfferPolicy{OfferTTL: 24 * time.Hour, CounterOfferTTL: 24 * time.Hour})
	f.offers.SetClock(f.clock.Now)
	f.bookings = services.NewBookingService(f.store, services.BookingPolicy{DefaultTourMinutes: 60, MaxTourMinutes: 240})
	f.bookings.SetClock(f.clock.Now)
	f.ratings = services.NewRatingService(f.store)
	f.ratings.SetClock(f.clock.Now)
	return f
}

func TestSoftDeleteService_DeletePropertyIsIdempotent(t *testing.T) {
	f := newSoftDeleteFixture(t)
	seedProperty(t, f.store, "prop-1")
	ctx := context.Background()

	offer, err := f.offers.Create(ctx, buyer, services.CreateOfferInput{PropertyID: "prop-1", Amount: 100})
	require.NoError(t, err)

	err = f.deletes.DeleteProperty(ctx, buyer, "prop-1")
	assert.ErrorIs(t, err, apperrors.ErrNotAuthorized)

	require.NoError(t, f.deletes.DeleteProperty(ctx, seller, "prop-1"))

	_, err = f.store.Properties().GetByID(ctx, "prop-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// open offers do not outlive the listing
	stored, err := f.store.Offers().GetByID(ctx, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.OfferStatusRejected, stored.Status)

	records, err := f.deletes.ListDeleted(ctx, admin, entities.EntityProperty, time.Time{}, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	firstDeletedAt := records[0].DeletedAt

	f.clock.Advance(time.Hour)
	require.NoError(t, f.deletes.DeleteProperty(ctx, seller, "prop-1"))

	records, err = f.deletes.ListDeleted(ctx, admin, entities.EntityProperty, time.Time{}, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, firstDeletedAt, records[0].DeletedAt)

	// one deletion event, not two
	deletions := 0
	for _, e := range f.bus.Published() {
		if e.Type == entities.EventPropertyDeleted {
			deletions++
		}
	}
	assert.Equal(t, 1, deletions)

	err = f.deletes.DeleteProperty(ctx, seller, "never-existed")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSoftDeleteService_DeletedRowsLeaveUniquenessRules(t *testing.T) {
	f := newSoftDeleteFixture(t)
	seedProperty(t, f.store, "prop-1")
	ctx := context.Background()

	offer, err := f.offers.Create(ctx, buyer, services.CreateOfferInput{PropertyID: "prop-1", Amount: 100})
	require.NoError(t, err)

	require.NoError(t, f.deletes.DeleteOffer(ctx, buyer, offer.ID))
	require.NoError(t, f.deletes.DeleteOffer(ctx, buyer, offer.ID))

	_, err = f.offers.Get(ctx, buyer, offer.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.offers.Create(ctx, buyer, services.CreateOfferInput{PropertyID: "prop-1", Amount: 120})
	assert.NoError(t, err)
}

func TestSoftDeleteService_DeletedBookingFreesSlot(t *testing.T) {
	f := newSoftDeleteFixture(t)
	seedProperty(t, f.store, "prop-1")
	ctx := context.Background()

	first, err := f.bookings.Schedule(ctx, buyer, services.ScheduleBookingInput{PropertyID: "prop-1", ScheduledDate: tourAt(10, 0)})
	require.NoError(t, err)
	second, err := f.bookings.Schedule(ctx, buyer2, services.ScheduleBookingInput{PropertyID: "prop-1", ScheduledDate: tourAt(10, 0)})
	require.NoError(t, err)
	_, err = f.bookings.Approve(ctx, seller, first.ID)
	require.NoError(t, err)

	err = f.deletes.DeleteBooking(ctx, buyer2, first.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotAuthorized)
	require.NoError(t, f.deletes.DeleteBooking(ctx, admin, first.ID))

	_, err = f.bookings.Approve(ctx, seller, second.ID)
	assert.NoError(t, err)
}

func TestSoftDeleteService_ListDeletedRequiresAdmin(t *testing.T) {
	f := newSoftDeleteFixture(t)
	ctx := context.Background()

	_, err := f.deletes.ListDeleted(ctx, seller, entities.EntityOffer, time.Time{}, 10)
	assert.ErrorIs(t, err, apperrors.ErrNotAuthorized)

	_, err = f.deletes.ListDeleted(ctx, admin, entities.EntityKind("users"), time.Time{}, 10)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestSoftDeleteService_ReviewRemovalIsAudited(t *testing.T) {
	f := newSoftDeleteFixture(t)
	seedProperty(t, f.store, "prop-1")
	ctx := context.Background()

	_, _, err := f.ratings.UpsertReview(ctx, buyer, "prop-1", 4, "")
	require.NoError(t, err)
	_, err = f.ratings.RemoveReview(ctx, buyer, buyer.UserID, "prop-1")
	require.NoError(t, err)

	// a new live review is allowed next to the deleted one
	_, summary, err := f.ratings.UpsertReview(ctx, buyer, "prop-1", 2, "")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.RatingsCount)

	records, err := f.deletes.ListDeleted(ctx, admin, entities.EntityReview, time.Time{}, 0)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestSoftDeleteService_DeletePropertyDropsCachedRead(t *testing.T) {
	f := newSoftDeleteFixture(t)
	seedProperty(t, f.store, "prop-1")
	ctx := context.Background()

	cache := NewMockCacheProvider()
	f.deletes.SetCache(cache)
	key := providers.PropertyCacheKey("prop-1")
	require.NoError(t, cache.Set(ctx, key, []byte(`{"id":"prop-1"}`), 300))

	// a refused delete leaves the cache alone
	require.Error(t, f.deletes.DeleteProperty(ctx, buyer, "prop-1"))
	cached, _ := cache.Exists(ctx, key)
	assert.True(t, cached)

	require.NoError(t, f.deletes.DeleteProperty(ctx, seller, "prop-1"))

	cached, _ = cache.Exists(ctx, key)
	assert.False(t, cached, "cached read must be gone when DeleteProperty returns")
	guarded, _ := cache.Exists(ctx, providers.PropertyInvalidatedKey("prop-1"))
	assert.True(t, guarded)
}
