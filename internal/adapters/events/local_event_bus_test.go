package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/domain/providers"
)

var eventTime = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func TestLocalEventBus_PublishSubscribe(t *testing.T) {
	bus := NewLocalEventBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := bus.Subscribe(ctx, providers.EventChannelMarketplace)
	require.NoError(t, err)
	other, err := bus.Subscribe(ctx, providers.GetPropertyChannel("prop-2"))
	require.NoError(t, err)

	event := entities.NewMarketplaceEvent("evt-1", entities.EventOfferChanged, "prop-1", "offer-1", eventTime)
	require.NoError(t, bus.Publish(ctx, providers.EventChannelMarketplace, event))

	select {
	case got := <-events:
		assert.Equal(t, event, got)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	select {
	case <-other:
		t.Fatal("event delivered to the wrong channel")
	default:
	}
}

func TestLocalEventBus_SubscriberRemovedWithContext(t *testing.T) {
	bus := NewLocalEventBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	events, err := bus.Subscribe(ctx, providers.EventChannelMarketplace)
	require.NoError(t, err)

	cancel()
	assert.Eventually(t, func() bool {
		_, open := <-events
		return !open
	}, time.Second, 10*time.Millisecond)
}

func TestLocalEventBus_FullSubscriberDropIsBounded(t *testing.T) {
	bus := NewLocalEventBus()
	defer bus.Close()
	bus.hub.timeout = 20 * time.Millisecond

	ctx := context.Background()
	_, err := bus.Subscribe(ctx, providers.EventChannelMarketplace)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer+5; i++ {
			_ = bus.Publish(ctx, providers.EventChannelMarketplace,
				entities.NewMarketplaceEvent("evt", entities.EventFavoritesChanged, "prop-1", "", eventTime))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	assert.EqualValues(t, 5, bus.hub.droppedEvents())
}

func TestLocalEventBus_SlowSubscriberCatchesUpWithinTimeout(t *testing.T) {
	bus := NewLocalEventBus()
	defer bus.Close()
	bus.hub.timeout = time.Second

	ctx := context.Background()
	events, err := bus.Subscribe(ctx, providers.EventChannelMarketplace)
	require.NoError(t, err)

	for i := 0; i < subscriberBuffer; i++ {
		require.NoError(t, bus.Publish(ctx, providers.EventChannelMarketplace,
			entities.NewMarketplaceEvent("evt", entities.EventFavoritesChanged, "prop-1", "", eventTime)))
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		<-events
	}()

	last := entities.NewMarketplaceEvent("evt-last", entities.EventRatingChanged, "prop-1", "", eventTime)
	require.NoError(t, bus.Publish(ctx, providers.EventChannelMarketplace, last))
	assert.Zero(t, bus.hub.droppedEvents())

	var got *entities.MarketplaceEvent
	for i := 0; i < subscriberBuffer; i++ {
		got = <-events
	}
	assert.Equal(t, "evt-last", got.ID)
}

func TestLocalEventBus_CloseEndsSubscriptions(t *testing.T) {
	bus := NewLocalEventBus()
	events, err := bus.Subscribe(context.Background(), providers.EventChannelMarketplace)
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	_, open := <-events
	assert.False(t, open)

	assert.NoError(t, bus.Publish(context.Background(), providers.EventChannelMarketplace,
		entities.NewMarketplaceEvent("evt", entities.EventRatingChanged, "prop-1", "", eventTime)))
}

func TestDecodeEvent(t *testing.T) {
	event := entities.NewMarketplaceEvent("evt-1", entities.EventBoostRecomputed, "prop-1", "", eventTime)
	event.Data["boost_score"] = 4.5
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	got, err := decodeEvent(string(payload))
	require.NoError(t, err)
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, event.Type, got.Type)
	assert.True(t, event.Timestamp.Equal(got.Timestamp))
	assert.Equal(t, 4.5, got.Data["boost_score"])

	_, err = decodeEvent("{not json")
	assert.Error(t, err)
}
