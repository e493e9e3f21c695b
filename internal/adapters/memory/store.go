// Package memory is a single-process entity store used by tests and local
// development. It enforces the same uniqueness, exclusion and soft-delete rules
// as the PostgreSQL schema so engine behavior is identical on both.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/domain/repositories"
)

type state struct {
	properties    map[string]entities.Property
	users         map[string]entities.User
	offers        map[string]entities.Offer
	bookings      map[string]entities.Booking
	reviews       map[string]entities.Review
	favorites     map[string]entities.Favorite
	notifications map[string]entities.Notification
	views         []entities.ViewEvent
}

func newState() *state {
	return &state{
		properties:    make(map[string]entities.Property),
		users:         make(map[string]entities.User),
		offers:        make(map[string]entities.Offer),
		bookings:      make(map[string]entities.Booking),
		reviews:       make(map[string]entities.Review),
		favorites:     make(map[string]entities.Favorite),
		notifications: make(map[string]entities.Notification),
	}
}

func cloneMap[V any](in map[string]V) map[string]V {
	out := make(map[string]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (s *state) clone() *state {
	views := make([]entities.ViewEvent, len(s.views))
	copy(views, s.views)
	return &state{
		properties:    cloneMap(s.properties),
		users:         cloneMap(s.users),
		offers:        cloneMap(s.offers),
		bookings:      cloneMap(s.bookings),
		reviews:       cloneMap(s.reviews),
		favorites:     cloneMap(s.favorites),
		notifications: cloneMap(s.notifications),
		views:         views,
	}
}

// Store implements repositories.Store in memory. Transactions are fully
// serialized: WithinTx holds the store lock for the duration of fn and works
// on a copy that replaces the live state only on success.
//
// Inside fn only the tx repositories may be used; calling the Store's own
// repositories there would block on the held lock.
type Store struct {
	mu   sync.Mutex
	st   *state
	root *session
}

var _ repositories.Store = (*Store)(nil)

// NewStore creates an empty store
func NewStore() *Store {
	s := &Store{st: newState()}
	s.root = &session{store: s}
	return s
}

// WithinTx runs fn in a serialized transaction
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repositories.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &session{store: s, tx: s.st.clone()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.st = tx.tx
	return nil
}

func (s *Store) Properties() repositories.PropertyRepository { return s.root.Properties() }
func (s *Store) Users() repositories.UserRepository { return s.root.Users() }
func (s *Store) Offers() repositories.OfferRepository { return s.root.Offers() }
func (s *Store) Bookings() repositories.BookingRepository { return s.root.Bookings() }
func (s *Store) Reviews() repositories.ReviewRepository { return s.root.Reviews() }
func (s *Store) Favorites() repositories.FavoriteRepository { return s.root.Favorites() }
func (s *Store) Notifications() repositories.NotificationRepository { return s.root.Notifications() }
func (s *Store) Views() repositories.ViewEventRepository { return s.root.Views() }
func (s *Store) Audit() repositories.AuditRepository { return s.root.Audit() }

// session binds repositories either to the live state (tx == nil) or to a
// transaction copy
type session struct {
	store *Store
	tx    *state
}

func (s *session) with(fn func(st *state) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	return fn(s.store.st)
}

func (s *session) Properties() repositories.PropertyRepository { return &propertyRepo{s} }
func (s *session) Users() repositories.UserRepository { return &userRepo{s} }
func (s *session) Offers() repositories.OfferRepository { return &offerRepo{s} }
func (s *session) Bookings() repositories.BookingRepository { return &bookingRepo{s} }
func (s *session) Reviews() repositories.ReviewRepository { return &reviewRepo{s} }
func (s *session) Favorites() repositories.FavoriteRepository { return &favoriteRepo{s} }
func (s *session) Notifications() repositories.NotificationRepository { return &notificationRepo{s} }
func (s *session) Views() repositories.ViewEventRepository { return &viewRepo{s} }
func (s *session) Audit() repositories.AuditRepository { return &auditRepo{s} }

// page sorts newest first and applies the filter window
func page[T any](items []T, createdAt func(T) time.Time, id func(T) string, filter repositories.ListFilter) []T {
	filter = filter.Normalize()
	sort.Slice(items, func(i, j int) bool {
		ci, cj := createdAt(items[i]), createdAt(items[j])
		if ci.Equal(cj) {
			return id(items[i]) < id(items[j])
		}
		return ci.After(cj)
	})
	if filter.Offset >= len(items) {
		return []T{}
	}
	end := filter.Offset + filter.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[filter.Offset:end]
}

func markDeleted(sd *entities.SoftDelete, ts *entities.Timestamps, now time.Time) bool {
	if !sd.MarkDeleted(now) {
		return false
	}
	ts.Touch(now)
	return true
}
