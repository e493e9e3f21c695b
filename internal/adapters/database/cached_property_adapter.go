package database

import (
	"context"
	"errors"
	"time"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/domain/providers"
	"github.com/estatehub/marketplace/backend/internal/domain/repositories"
	"github.com/estatehub/marketplace/backend/internal/infrastructure/observability"
)

// Cache TTLs (in seconds)
const propertyByIDTTL = 300

// CachedPropertyAdapter serves single property reads from the cache. Engine
// writes go through the store; entries are dropped with
// providers.InvalidateProperty by the soft delete service and by the cache
// invalidation service when a marketplace event names the property.
type CachedPropertyAdapter struct {
	repositories.PropertyRepository
	cache providers.CacheProvider
}

// NewCachedPropertyAdapter creates a new cached property adapter
func NewCachedPropertyAdapter(adapter repositories.PropertyRepository, cache providers.CacheProvider) *CachedPropertyAdapter {
	return &CachedPropertyAdapter{
		PropertyRepository: adapter,
		cache:              cache,
	}
}

// GetByID retrieves a property by ID with caching
func (a *CachedPropertyAdapter) GetByID(ctx context.Context, id string) (*entities.Property, error) {
	cacheKey := providers.PropertyCacheKey(id)
	logger := observability.LoggerFromContext(ctx)

	var cached entities.Property
	switch err := providers.GetJSON(ctx, a.cache, cacheKey, &cached); {
	case err == nil:
		observability.RecordCacheHit(ctx, "property")
		return &cached, nil
	case !errors.Is(err, providers.ErrCacheMiss):
		logger.Warn().Err(err).Str("property_id", id).Msg("unreadable cached property")
	}
	observability.RecordCacheMiss(ctx, "property")

	property, err := a.PropertyRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// fill the cache off the request path
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := providers.FillProperty(bgCtx, a.cache, id, property, propertyByIDTTL); err != nil {
			logger.Warn().Err(err).Str("property_id", id).Msg("failed to cache property")
		}
	}()

	return property, nil
}
