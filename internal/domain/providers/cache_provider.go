package providers

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent
var ErrCacheMiss = errors.New("cache miss")

// CacheProvider defines the interface for caching operations
type CacheProvider interface {
	// Get retrieves a value from cache. A missing key yields ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration
	Set(ctx context.Context, key string, value []byte, expirationSeconds int) error

	// Delete removes values from cache
	Delete(ctx context.Context, keys ...string) error

	// Exists checks if a key exists in cache
	Exists(ctx context.Context, key string) (bool, error)
}

// PropertyCacheKey is the cache key of a single property read
func PropertyCacheKey(id string) string {
	return "property:" + id
}

// GetJSON decodes a cached JSON value into v
func GetJSON(ctx context.Context, cache CacheProvider, key string, v interface{}) error {
	data, err := cache.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// SetJSON encodes v as JSON and caches it for ttlSeconds
func SetJSON(ctx context.Context, cache CacheProvider, key string, v interface{}, ttlSeconds int) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return cache.Set(ctx, key, data, ttlSeconds)
}

// InvalidationGuardSeconds is how long an invalidation blocks cache fills.
// It must outlive any fill started before the invalidation.
const InvalidationGuardSeconds = 10

// PropertyInvalidatedKey marks a property whose cached read was just dropped
func PropertyInvalidatedKey(id string) string {
	return "property-invalidated:" + id
}

// InvalidateProperty drops the cached read of a property. The marker is
// written before the delete so a concurrent FillProperty either sees it or
// has its entry removed by the delete.
func InvalidateProperty(ctx context.Context, cache CacheProvider, id string) error {
	if err := cache.Set(ctx, PropertyInvalidatedKey(id), []byte("1"), InvalidationGuardSeconds); err != nil {
		return err
	}
	return cache.Delete(ctx, PropertyCacheKey(id))
}

// FillProperty caches a property read from the store, then withdraws the
// entry if an invalidation happened meanwhile
func FillProperty(ctx context.Context, cache CacheProvider, id string, v interface{}, ttlSeconds int) error {
	key := PropertyCacheKey(id)
	if err := SetJSON(ctx, cache, key, v, ttlSeconds); err != nil {
		return err
	}
	invalidated, err := cache.Exists(ctx, PropertyInvalidatedKey(id))
	if err == nil && !invalidated {
		return nil
	}
	// an unverifiable entry is not kept either
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if delErr := cache.Delete(cleanupCtx, key); delErr != nil {
		return delErr
	}
	return err
}
