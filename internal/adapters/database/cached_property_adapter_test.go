package database_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estatehub/marketplace/backend/internal/adapters/database"
	"github.com/estatehub/marketplace/backend/internal/adapters/memory"
	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/domain/providers"
	apperrors "github.com/estatehub/marketplace/backend/pkg/errors"
)

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte

	// Set on holdKey signals entered and waits for release
	holdKey string
	entered chan struct{}
	release chan struct{}
	heldSet bool
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string][]byte)}
}

func (c *mapCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, providers.ErrCacheMiss
	}
	return v, nil
}

func (c *mapCache) holdSetsOf(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.holdKey = key
	c.entered = make(chan struct{})
	c.release = make(chan struct{})
}

func (c *mapCache) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	c.mu.Lock()
	held := c.holdKey != "" && key == c.holdKey
	entered, release := c.entered, c.release
	c.mu.Unlock()

	if held {
		close(entered)
		<-release
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	if held {
		c.heldSet = true
	}
	return nil
}

func (c *mapCache) heldSetDone() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.heldSet
}

func (c *mapCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *mapCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok, nil
}

func TestCachedPropertyAdapter_GetByID(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, store.Properties().Create(ctx, &entities.Property{
		ID: "prop-1", OwnerID: "seller-1", Title: "Loft", Price: 1, Status: entities.PropertyStatusActive,
	}))

	cache := newMapCache()
	cached := database.NewCachedPropertyAdapter(store.Properties(), cache)

	first, err := cached.GetByID(ctx, "prop-1")
	require.NoError(t, err)
	assert.Equal(t, "Loft", first.Title)

	assert.Eventually(t, func() bool {
		ok, _ := cache.Exists(ctx, providers.PropertyCacheKey("prop-1"))
		return ok
	}, time.Second, 10*time.Millisecond)

	// served from the cache until something invalidates it
	require.NoError(t, store.Properties().IncrementViews(ctx, "prop-1", now))
	second, err := cached.GetByID(ctx, "prop-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), second.ViewsCount)

	require.NoError(t, cache.Delete(ctx, providers.PropertyCacheKey("prop-1")))
	third, err := cached.GetByID(ctx, "prop-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), third.ViewsCount)

	_, err = cached.GetByID(ctx, "missing")
	assert.Error(t, err)
}

func TestCachedPropertyAdapter_LateFillAfterDelete(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, store.Properties().Create(ctx, &entities.Property{
		ID: "prop-1", OwnerID: "seller-1", Title: "Loft", Price: 1, Status: entities.PropertyStatusActive,
	}))

	cache := newMapCache()
	key := providers.PropertyCacheKey("prop-1")
	cache.holdSetsOf(key)
	cached := database.NewCachedPropertyAdapter(store.Properties(), cache)

	// miss: the fill has read the live row and is stuck writing it
	_, err := cached.GetByID(ctx, "prop-1")
	require.NoError(t, err)
	select {
	case <-cache.entered:
	case <-time.After(time.Second):
		t.Fatal("cache fill never started")
	}

	changed, err := store.Properties().SoftDelete(ctx, "prop-1", now)
	require.NoError(t, err)
	require.True(t, changed)
	require.NoError(t, providers.InvalidateProperty(ctx, cache, "prop-1"))

	close(cache.release)

	// the late write lands and is withdrawn again
	assert.Eventually(t, func() bool {
		ok, _ := cache.Exists(ctx, key)
		return cache.heldSetDone() && !ok
	}, time.Second, 10*time.Millisecond)

	_, err = cached.GetByID(ctx, "prop-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCachedPropertyAdapter_UnreadableEntryFallsThrough(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, store.Properties().Create(ctx, &entities.Property{
		ID: "prop-1", OwnerID: "seller-1", Title: "Loft", Price: 1, Status: entities.PropertyStatusActive,
	}))

	cache := newMapCache()
	require.NoError(t, cache.Set(ctx, providers.PropertyCacheKey("prop-1"), []byte("{not json"), 60))
	cached := database.NewCachedPropertyAdapter(store.Properties(), cache)

	property, err := cached.GetByID(ctx, "prop-1")
	require.NoError(t, err)
	assert.Equal(t, "Loft", property.Title)
}
