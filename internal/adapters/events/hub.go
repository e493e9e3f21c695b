package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/infrastructure/observability"
)

const (
	subscriberBuffer = 100
	// deliveryTimeout bounds how long one broadcast waits on full subscribers
	deliveryTimeout = 100 * time.Millisecond
)

// hub fans events out to the in-process subscribers of each channel
type hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan *entities.MarketplaceEvent]struct{}
	timeout     time.Duration
	dropped     atomic.Int64
}

func newHub() *hub {
	return &hub{
		subscribers: make(map[string]map[chan *entities.MarketplaceEvent]struct{}),
		timeout:     deliveryTimeout,
	}
}

// add registers a subscriber and returns the channel size after adding
func (h *hub) add(channel string) (chan *entities.MarketplaceEvent, int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subscribers[channel] == nil {
		h.subscribers[channel] = make(map[chan *entities.MarketplaceEvent]struct{})
	}
	eventChan := make(chan *entities.MarketplaceEvent, subscriberBuffer)
	h.subscribers[channel][eventChan] = struct{}{}
	return eventChan, len(h.subscribers[channel])
}

// remove drops one subscriber and reports whether the channel has none left
func (h *hub) remove(channel string, eventChan chan *entities.MarketplaceEvent) (empty bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subscribers, exists := h.subscribers[channel]
	if !exists {
		return false
	}
	if _, ok := subscribers[eventChan]; !ok {
		return false
	}

	delete(subscribers, eventChan)
	close(eventChan)

	if len(subscribers) == 0 {
		delete(h.subscribers, channel)
		return true
	}
	return false
}

// closeChannel closes every subscriber of channel
func (h *hub) closeChannel(channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for subscriber := range h.subscribers[channel] {
		close(subscriber)
	}
	delete(h.subscribers, channel)
}

func (h *hub) channels() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	channels := make([]string, 0, len(h.subscribers))
	for channel := range h.subscribers {
		channels = append(channels, channel)
	}
	return channels
}

// broadcast hands the event to every subscriber. Full subscribers share one
// deliveryTimeout budget per broadcast; whoever is still full when it runs
// out misses the event and the drop is counted.
func (h *hub) broadcast(channel string, event *entities.MarketplaceEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var deadline <-chan time.Time
	expired := false
	for subscriber := range h.subscribers[channel] {
		select {
		case subscriber <- event:
			continue
		default:
		}

		if !expired {
			if deadline == nil {
				timer := time.NewTimer(h.timeout)
				defer timer.Stop()
				deadline = timer.C
			}
			select {
			case subscriber <- event:
				continue
			case <-deadline:
				expired = true
			}
		}

		h.dropped.Add(1)
		observability.RecordEventDropped(context.Background(), channel)
		observability.GetLogger().Warn().
			Str("channel", channel).
			Str("event_id", event.ID).
			Msg("subscriber channel full, dropping event")
	}
}

// droppedEvents reports how many deliveries were abandoned
func (h *hub) droppedEvents() int64 {
	return h.dropped.Load()
}
