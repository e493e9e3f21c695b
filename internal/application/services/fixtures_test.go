package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/estatehub/marketplace/backend/internal/adapters/memory"
	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/domain/providers"
)

var (
	seller = entities.Actor{UserID: "seller-1", Role: entities.RoleSeller}
	agent  = entities.Actor{UserID: "agent-1", Role: entities.RoleAgent}
	buyer  = entities.Actor{UserID: "buyer-1", Role: entities.RoleBuyer}
	buyer2 = entities.Actor{UserID: "buyer-2", Role: entities.RoleBuyer}
	admin  = entities.Actor{UserID: "admin-1", Role: entities.RoleAdmin}
)

var baseTime = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

// testClock is a settable time source shared by the services under test
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: baseTime}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// seedProperty stores an active listing owned by seller and represented by agent
func seedProperty(t *testing.T, store *memory.Store, id string) *entities.Property {
	t.Helper()
	agentID := agent.UserID
	p := &entities.Property{
		ID:        id,
		OwnerID:   seller.UserID,
		AgentID:   &agentID,
		Title:     "Flat " + id,
		Price:     250000,
		Latitude:  52.52,
		Longitude: 13.405,
		Status:    entities.PropertyStatusActive,
	}
	p.Stamp(baseTime)
	require.NoError(t, store.Properties().Create(context.Background(), p))
	return p
}

func seedAgent(t *testing.T, store *memory.Store) {
	t.Helper()
	u := &entities.User{ID: agent.UserID, Name: "Agent", Email: "agent@example.com", Role: entities.RoleAgent}
	u.Stamp(baseTime)
	require.NoError(t, store.Users().Create(context.Background(), u))
}

// MockEventBus records published events and fans them out to subscribers
type MockEventBus struct {
	mu          sync.Mutex
	subscribers map[string][]chan *entities.MarketplaceEvent
	published   []*entities.MarketplaceEvent
	failWith    error
}

func NewMockEventBus() *MockEventBus {
	return &MockEventBus{subscribers: make(map[string][]chan *entities.MarketplaceEvent)}
}

func (m *MockEventBus) Publish(ctx context.Context, channel string, event *entities.MarketplaceEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	if channel == providers.EventChannelMarketplace {
		m.published = append(m.published, event)
	}
	for _, ch := range m.subscribers[channel] {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (m *MockEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.MarketplaceEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan *entities.MarketplaceEvent, 16)
	m.subscribers[channel] = append(m.subscribers[channel], ch)
	return ch, nil
}

func (m *MockEventBus) Unsubscribe(ctx context.Context, channel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subscribers[channel] {
		close(ch)
	}
	delete(m.subscribers, channel)
	return nil
}

func (m *MockEventBus) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for channel, chans := range m.subscribers {
		for _, ch := range chans {
			close(ch)
		}
		delete(m.subscribers, channel)
	}
	return nil
}

func (m *MockEventBus) Published() []*entities.MarketplaceEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*entities.MarketplaceEvent, len(m.published))
	copy(out, m.published)
	return out
}

func (m *MockEventBus) SubscriberCount(channel string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscribers[channel])
}

// MockCacheProvider is an in-memory cache that remembers deletions
type MockCacheProvider struct {
	mu      sync.RWMutex
	data    map[string][]byte
	deleted []string
}

func NewMockCacheProvider() *MockCacheProvider {
	return &MockCacheProvider{data: make(map[string][]byte)}
}

func (m *MockCacheProvider) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, providers.ErrCacheMiss
}

func (m *MockCacheProvider) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MockCacheProvider) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
		m.deleted = append(m.deleted, k)
	}
	return nil
}

func (m *MockCacheProvider) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[key]
	return ok, nil
}

func (m *MockCacheProvider) Deleted() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.deleted))
	copy(out, m.deleted)
	return out
}

// MockPropertyIndex is a testify mock of the search index
type MockPropertyIndex struct {
	mock.Mock
}

func (m *MockPropertyIndex) Index(ctx context.Context, property *entities.Property) error {
	args := m.Called(ctx, property)
	return args.Error(0)
}

func (m *MockPropertyIndex) Remove(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPropertyIndex) SearchNearby(ctx context.Context, query providers.NearbyQuery) ([]providers.PropertyHit, error) {
	args := m.Called(ctx, query)
	if hits := args.Get(0); hits != nil {
		return hits.([]providers.PropertyHit), args.Error(1)
	}
	return nil, args.Error(1)
}
