package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/estatehub/marketplace/backend/internal/adapters/memory"
	"github.com/estatehub/marketplace/backend/internal/application/services"
	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/domain/providers"
)

func TestCacheInvalidationService_Start(t *testing.T) {
	cache := NewMockCacheProvider()
	eventBus := NewMockEventBus()
	service := services.NewCacheInvalidationService(cache, eventBus)

	require.NoError(t, service.Start())
	assert.Equal(t, 1, eventBus.SubscriberCount(providers.EventChannelMarketplace))

	service.Stop()
}

func TestCacheInvalidationService_StopWithoutStart(t *testing.T) {
	service := services.NewCacheInvalidationService(NewMockCacheProvider(), NewMockEventBus())
	assert.NotPanics(t, service.Stop)
}

func TestCacheInvalidationService_HandleEvent(t *testing.T) {
	cache := NewMockCacheProvider()
	eventBus := NewMockEventBus()
	service := services.NewCacheInvalidationService(cache, eventBus)
	require.NoError(t, service.Start())
	defer service.Stop()

	ctx := context.Background()
	key := providers.PropertyCacheKey("prop-1")
	require.NoError(t, cache.Set(ctx, key, []byte("{}"), 300))
	require.NoError(t, cache.Set(ctx, providers.PropertyCacheKey("prop-2"), []byte("{}"), 300))

	event := entities.NewMarketplaceEvent("evt-1", entities.EventRatingChanged, "prop-1", "review-1", baseTime)
	require.NoError(t, eventBus.Publish(ctx, providers.EventChannelMarketplace, event))

	assert.Eventually(t, func() bool {
		exists, _ := cache.Exists(ctx, key)
		return !exists
	}, time.Second, 10*time.Millisecond)

	untouched, err := cache.Exists(ctx, providers.PropertyCacheKey("prop-2"))
	require.NoError(t, err)
	assert.True(t, untouched)
}

func TestCacheInvalidationService_EngineWriteInvalidatesRead(t *testing.T) {
	store := memory.NewStore()
	seedProperty(t, store, "prop-1")
	cache := NewMockCacheProvider()
	eventBus := NewMockEventBus()

	service := services.NewCacheInvalidationService(cache, eventBus)
	require.NoError(t, service.Start())
	defer service.Stop()

	counters := services.NewCounterService(store, time.Second)
	counters.SetEventBus(eventBus)

	_, err := counters.AddFavorite(context.Background(), buyer, "prop-1")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		for _, k := range cache.Deleted() {
			if k == providers.PropertyCacheKey("prop-1") {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestIndexSyncService_FollowsEvents(t *testing.T) {
	store := memory.NewStore()
	seedProperty(t, store, "prop-1")
	eventBus := NewMockEventBus()
	index := new(MockPropertyIndex)

	indexed := make(chan string, 4)
	removed := make(chan string, 4)
	index.On("Index", mock.Anything, mock.AnythingOfType("*entities.Property")).
		Run(func(args mock.Arguments) { indexed <- args.Get(1).(*entities.Property).ID }).
		Return(nil)
	index.On("Remove", mock.Anything, "prop-1").
		Run(func(args mock.Arguments) { removed <- args.String(1) }).
		Return(nil)

	sync := services.NewIndexSyncService(store.Properties(), index, eventBus)
	require.NoError(t, sync.Start())
	defer sync.Stop()

	ctx := context.Background()
	ratings := services.NewRatingService(store)
	ratings.SetEventBus(eventBus)
	_, _, err := ratings.UpsertReview(ctx, buyer, "prop-1", 5, "")
	require.NoError(t, err)

	select {
	case id := <-indexed:
		assert.Equal(t, "prop-1", id)
	case <-time.After(time.Second):
		t.Fatal("property was not indexed")
	}

	deletes := services.NewSoftDeleteService(store)
	deletes.SetEventBus(eventBus)
	require.NoError(t, deletes.DeleteProperty(ctx, seller, "prop-1"))

	select {
	case id := <-removed:
		assert.Equal(t, "prop-1", id)
	case <-time.After(time.Second):
		t.Fatal("property was not removed from the index")
	}
}

func TestIndexSyncService_SyncSkipsInactive(t *testing.T) {
	store := memory.NewStore()
	draft := &entities.Property{ID: "draft", OwnerID: seller.UserID, Title: "Draft", Price: 1, Status: entities.PropertyStatusDraft}
	require.NoError(t, store.Properties().Create(context.Background(), draft))

	index := new(MockPropertyIndex)
	index.On("Remove", mock.Anything, "draft").Return(nil).Once()

	sync := services.NewIndexSyncService(store.Properties(), index, NewMockEventBus())
	require.NoError(t, sync.Sync(context.Background(), "draft"))
	index.AssertExpectations(t)
	index.AssertNotCalled(t, "Index", mock.Anything, mock.Anything)
}
