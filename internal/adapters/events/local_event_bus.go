package events

import (
	"context"
	"sync"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/domain/providers"
)

// LocalEventBus delivers events inside one process. It backs single-node
// deployments without Redis.
type LocalEventBus struct {
	hub    *hub
	closed bool
	mu     sync.RWMutex
}

// NewLocalEventBus creates a new in-process event bus
func NewLocalEventBus() *LocalEventBus {
	return &LocalEventBus{hub: newHub()}
}

var _ providers.EventBus = (*LocalEventBus)(nil)

// Publish delivers the event to current subscribers of the channel
func (b *LocalEventBus) Publish(ctx context.Context, channel string, event *entities.MarketplaceEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil
	}
	b.hub.broadcast(channel, event)
	return nil
}

// Subscribe subscribes to a channel until ctx is done
func (b *LocalEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.MarketplaceEvent, error) {
	eventChan, _ := b.hub.add(channel)
	go func() {
		<-ctx.Done()
		b.hub.remove(channel, eventChan)
	}()
	return eventChan, nil
}

// Unsubscribe closes every subscriber of a channel
func (b *LocalEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.hub.closeChannel(channel)
	return nil
}

// Close closes all subscriptions
func (b *LocalEventBus) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	for _, channel := range b.hub.channels() {
		b.hub.closeChannel(channel)
	}
	return nil
}
