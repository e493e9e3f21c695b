package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/domain/providers"
	redisclient "github.com/estatehub/marketplace/backend/internal/infrastructure/clients/redis"
	"github.com/estatehub/marketplace/backend/internal/infrastructure/observability"
)

// RedisEventBus implements the EventBus interface using Redis Pub/Sub, so
// events published by the worker reach subscribers in the API processes
type RedisEventBus struct {
	client        *redis.Client
	hub           *hub
	subscriptions map[string]*redis.PubSub
	mu            sync.Mutex
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewRedisEventBus creates a new Redis-based event bus
func NewRedisEventBus(client *redisclient.Client) providers.EventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client:        client.Client(),
		hub:           newHub(),
		subscriptions: make(map[string]*redis.PubSub),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Publish publishes an event to all subscribers
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.MarketplaceEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	observability.LoggerFromContext(ctx).Debug().
		Str("channel", channel).
		Str("event_id", event.ID).
		Str("event_type", string(event.Type)).
		Msg("published event")
	return nil
}

// Subscribe subscribes to events on a channel until ctx is done
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.MarketplaceEvent, error) {
	b.mu.Lock()
	if _, exists := b.subscriptions[channel]; !exists {
		pubsub := b.client.Subscribe(b.ctx, channel)
		b.subscriptions[channel] = pubsub
		go b.receiveMessages(channel, pubsub)
	}
	eventChan, subscriberCount := b.hub.add(channel)
	b.mu.Unlock()

	observability.GetLogger().Info().Str("channel", channel).Int("subscribers", subscriberCount).Msg("subscribed to channel")

	go func() {
		select {
		case <-ctx.Done():
		case <-b.ctx.Done():
		}
		if b.hub.remove(channel, eventChan) {
			b.closeSubscription(channel)
		}
	}()

	return eventChan, nil
}

// receiveMessages decodes Redis messages and broadcasts them to subscribers
func (b *RedisEventBus) receiveMessages(channel string, pubsub *redis.PubSub) {
	ch := pubsub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			event, err := decodeEvent(msg.Payload)
			if err != nil {
				observability.GetLogger().Warn().Err(err).Str("channel", channel).Msg("failed to decode event")
				continue
			}
			b.hub.broadcast(channel, event)
		}
	}
}

func decodeEvent(payload string) (*entities.MarketplaceEvent, error) {
	var event entities.MarketplaceEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return &event, nil
}

func (b *RedisEventBus) closeSubscription(channel string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if pubsub, ok := b.subscriptions[channel]; ok {
		if err := pubsub.Close(); err != nil {
			observability.GetLogger().Warn().Err(err).Str("channel", channel).Msg("failed to close subscription")
		}
		delete(b.subscriptions, channel)
	}
}

// Unsubscribe closes every subscriber of a channel
func (b *RedisEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.hub.closeChannel(channel)
	b.closeSubscription(channel)
	observability.LoggerFromContext(ctx).Info().Str("channel", channel).Msg("unsubscribed from channel")
	return nil
}

// Close closes the event bus and all subscriptions
func (b *RedisEventBus) Close() error {
	b.cancel()

	for _, channel := range b.hub.channels() {
		b.hub.closeChannel(channel)
	}

	b.mu.Lock()
	channels := make([]string, 0, len(b.subscriptions))
	for channel := range b.subscriptions {
		channels = append(channels, channel)
	}
	b.mu.Unlock()

	for _, channel := range channels {
		b.closeSubscription(channel)
	}

	observability.GetLogger().Info().Msg("event bus closed")
	return nil
}
