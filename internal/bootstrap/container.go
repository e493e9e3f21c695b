// Package bootstrap wires the stores, clients and services shared by the
// API server and the admin CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/estatehub/marketplace/backend/internal/adapters/cache"
	"github.com/estatehub/marketplace/backend/internal/adapters/database"
	"github.com/estatehub/marketplace/backend/internal/adapters/events"
	"github.com/estatehub/marketplace/backend/internal/adapters/memory"
	"github.com/estatehub/marketplace/backend/internal/adapters/search"
	"github.com/estatehub/marketplace/backend/internal/application/services"
	"github.com/estatehub/marketplace/backend/internal/domain/providers"
	"github.com/estatehub/marketplace/backend/internal/domain/repositories"
	"github.com/estatehub/marketplace/backend/internal/infrastructure/clients/postgres"
	"github.com/estatehub/marketplace/backend/internal/infrastructure/clients/redis"
	"github.com/estatehub/marketplace/backend/internal/infrastructure/clients/typesense"
	"github.com/estatehub/marketplace/backend/internal/infrastructure/observability"
	"github.com/estatehub/marketplace/backend/pkg/config"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Container holds the wired application graph
type Container struct {
	Config *config.Config

	Store    repositories.Store
	Postgres *postgres.Client
	EventBus providers.EventBus
	Cache    providers.CacheProvider
	Index    providers.PropertyIndex

	Properties    *services.PropertyService
	Offers        *services.OfferService
	Bookings      *services.BookingService
	Ratings       *services.RatingService
	Counters      *services.CounterService
	Deletes       *services.SoftDeleteService
	Notifications *services.NotificationService
	Boost         *services.BoostService
	IndexSync     *services.IndexSyncService

	cacheInvalidation *services.CacheInvalidationService
	healthChecks      map[string]func(ctx context.Context) error
	closers           []func() error
}

// New connects the configured backing services and builds the services
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{Config: cfg, healthChecks: make(map[string]func(ctx context.Context) error)}
	logger := observability.GetLogger()

	switch cfg.App.StoreDriver {
	case StoreDriverMemory:
		c.Store = memory.NewStore()
		logger.Warn().Msg("using the in-memory store; data is lost on exit")
	case StoreDriverPostgres, "":
		pgClient, err := postgres.NewClient(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL client: %w", err)
		}
		c.Postgres = pgClient
		c.Store = database.NewStore(pgClient)
		c.closers = append(c.closers, pgClient.Close)
		c.healthChecks["postgres"] = pgClient.Ping
		logger.Info().Msg("PostgreSQL client initialized successfully")
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.App.StoreDriver)
	}

	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(&cfg.Redis)
		if err != nil {
			// the engines are correct without Redis; only caching and fan-out degrade
			logger.Warn().Err(err).Msg("Redis unavailable, continuing without cache")
		} else {
			c.Cache = cache.NewRedisAdapter(redisClient)
			c.EventBus = events.NewRedisEventBus(redisClient)
			c.closers = append(c.closers, redisClient.Close)
			c.healthChecks["redis"] = redisClient.Ping
			logger.Info().Msg("Redis client initialized successfully")
		}
	}
	if c.EventBus == nil {
		c.EventBus = events.NewLocalEventBus()
		logger.Info().Msg("using the in-process event bus")
	}

	if cfg.Typesense.Enabled {
		tsClient, err := typesense.NewClient(&cfg.Typesense)
		if err != nil {
			logger.Warn().Err(err).Msg("Typesense unavailable, nearby search disabled")
		} else {
			if err := tsClient.InitSchema(ctx); err != nil {
				logger.Warn().Err(err).Msg("failed to init Typesense schema")
			}
			c.Index = search.NewTypesenseAdapter(tsClient)
		}
	}

	c.buildServices()
	return c, nil
}

func (c *Container) buildServices() {
	mkt := c.Config.Marketplace

	var reader repositories.PropertyRepository
	if c.Cache != nil {
		reader = database.NewCachedPropertyAdapter(c.Store.Properties(), c.Cache)
	}

	c.Properties = services.NewPropertyService(c.Store, reader)
	c.Offers = services.NewOfferService(c.Store, services.OfferPolicy{
		OfferTTL:        mkt.OfferTTL,
		CounterOfferTTL: mkt.CounterOfferTTL,
	})
	c.Bookings = services.NewBookingService(c.Store, services.BookingPolicy{
		DefaultTourMinutes: mkt.DefaultTourMinutes,
		MaxTourMinutes:     mkt.MaxTourMinutes,
	})
	c.Ratings = services.NewRatingService(c.Store)
	c.Counters = services.NewCounterService(c.Store, mkt.ViewTimeout)
	c.Deletes = services.NewSoftDeleteService(c.Store)
	c.Notifications = services.NewNotificationService(c.Store)
	c.Boost = services.NewBoostService(c.Store.Properties(), mkt.BoostWeights, mkt.BoostWindow)

	c.Properties.SetEventBus(c.EventBus)
	c.Offers.SetEventBus(c.EventBus)
	c.Bookings.SetEventBus(c.EventBus)
	c.Ratings.SetEventBus(c.EventBus)
	c.Counters.SetEventBus(c.EventBus)
	c.Deletes.SetEventBus(c.EventBus)
	c.Boost.SetEventBus(c.EventBus)

	if c.Index != nil {
		c.Properties.SetPropertyIndex(c.Index)
		c.IndexSync = services.NewIndexSyncService(c.Store.Properties(), c.Index, c.EventBus)
	}
	if c.Cache != nil {
		c.Deletes.SetCache(c.Cache)
		c.cacheInvalidation = services.NewCacheInvalidationService(c.Cache, c.EventBus)
	}
}

// StartSubscribers starts the event consumers that keep derived data fresh
func (c *Container) StartSubscribers() error {
	if c.cacheInvalidation != nil {
		if err := c.cacheInvalidation.Start(); err != nil {
			return fmt.Errorf("failed to start cache invalidation: %w", err)
		}
	}
	if c.IndexSync != nil {
		if err := c.IndexSync.Start(); err != nil {
			return fmt.Errorf("failed to start index sync: %w", err)
		}
	}
	return nil
}

// HealthChecks returns the probes of the connected backing services
func (c *Container) HealthChecks() map[string]func(ctx context.Context) error {
	return c.healthChecks
}

// Close drains background work and releases connections
func (c *Container) Close() error {
	c.Counters.Wait()
	if c.cacheInvalidation != nil {
		c.cacheInvalidation.Stop()
	}
	if c.IndexSync != nil {
		c.IndexSync.Stop()
	}

	errs := []error{c.EventBus.Close()}
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	return errors.Join(errs...)
}
