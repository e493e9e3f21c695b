package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/estatehub/marketplace/backend/internal/domain/providers"
	redisclient "github.com/estatehub/marketplace/backend/internal/infrastructure/clients/redis"
)

// KeyNamespace prefixes every key written by the marketplace
const KeyNamespace = "mkt:"

// RedisAdapter is the read cache in front of property lookups. Entries are
// short-lived and dropped on marketplace events, so losing Redis only costs
// latency.
type RedisAdapter struct {
	client    *redis.Client
	namespace string
}

// NewRedisAdapter creates a cache adapter over the shared Redis client
func NewRedisAdapter(client *redisclient.Client) providers.CacheProvider {
	return &RedisAdapter{client: client.Client(), namespace: KeyNamespace}
}

func (a *RedisAdapter) key(k string) string {
	return a.namespace + k
}

func (a *RedisAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := a.client.Get(ctx, a.key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, providers.ErrCacheMiss
	case err != nil:
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}
	return value, nil
}

func (a *RedisAdapter) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	ttl := time.Duration(expirationSeconds) * time.Second
	if err := a.client.Set(ctx, a.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Delete drops keys in one round trip; absent keys are not an error
func (a *RedisAdapter) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	namespaced := make([]string, len(keys))
	for i, k := range keys {
		namespaced[i] = a.key(k)
	}
	if err := a.client.Unlink(ctx, namespaced...).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

func (a *RedisAdapter) Exists(ctx context.Context, key string) (bool, error) {
	n, err := a.client.Exists(ctx, a.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("cache exists %s: %w", key, err)
	}
	return n > 0, nil
}
