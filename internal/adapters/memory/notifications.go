package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/domain/repositories"
	apperrors "github.com/estatehub/marketplace/backend/pkg/errors"
)

type notificationRepo struct{ s *session }

func (r *notificationRepo) Create(ctx context.Context, n *entities.Notification) error {
	return r.s.with(func(st *state) error {
		st.notifications[n.ID] = *n
		return nil
	})
}

func (r *notificationRepo) ListByUser(ctx context.Context, userID string, unreadOnly bool, filter repositories.ListFilter) ([]*entities.Notification, error) {
	var items []entities.Notification
	err := r.s.with(func(st *state) error {
		for _, n := range st.notifications {
			if n.Live() && n.UserID == userID && (!unreadOnly || !n.IsRead) {
				items = append(items, n)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	items = page(items, func(n entities.Notification) time.Time { return n.CreatedAt }, func(n entities.Notification) string { return n.ID }, filter)
	out := make([]*entities.Notification, len(items))
	for i := range items {
		out[i] = &items[i]
	}
	return out, nil
}

func (r *notificationRepo) MarkRead(ctx context.Context, id, userID string, now time.Time) error {
	return r.s.with(func(st *state) error {
		n, ok := st.notifications[id]
		if !ok || n.IsDeleted || n.UserID != userID {
			return apperrors.NewNotFoundError(fmt.Sprintf("notification with id %s not found", id))
		}
		if n.IsRead {
			return nil
		}
		readAt := now
		n.IsRead = true
		n.ReadAt = &readAt
		n.Touch(now)
		st.notifications[id] = n
		return nil
	})
}

type viewRepo struct{ s *session }

func (r *viewRepo) Create(ctx context.Context, event *entities.ViewEvent) error {
	return r.s.with(func(st *state) error {
		st.views = append(st.views, *event)
		return nil
	})
}

// ViewCount returns the number of recorded view events for a property
func (s *Store) ViewCount(propertyID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.st.views {
		if v.PropertyID == propertyID {
			n++
		}
	}
	return n
}

type auditRepo struct{ s *session }

func (r *auditRepo) ListDeleted(ctx context.Context, kind entities.EntityKind, since time.Time, limit int) ([]entities.DeletedRecord, error) {
	var out []entities.DeletedRecord
	err := r.s.with(func(st *state) error {
		add := func(id string, sd entities.SoftDelete) {
			if sd.IsDeleted && sd.DeletedAt != nil && !sd.DeletedAt.Before(since) {
				out = append(out, entities.DeletedRecord{Kind: kind, ID: id, DeletedAt: *sd.DeletedAt})
			}
		}
		switch kind {
		case entities.EntityProperty:
			for id, v := range st.properties {
				add(id, v.SoftDelete)
			}
		case entities.EntityOffer:
			for id, v := range st.offers {
				add(id, v.SoftDelete)
			}
		case entities.EntityBooking:
			for id, v := range st.bookings {
				add(id, v.SoftDelete)
			}
		case entities.EntityReview:
			for id, v := range st.reviews {
				add(id, v.SoftDelete)
			}
		case entities.EntityFavorite:
			for id, v := range st.favorites {
				add(id, v.SoftDelete)
			}
		case entities.EntityNotification:
			for id, v := range st.notifications {
				add(id, v.SoftDelete)
			}
		default:
			return apperrors.NewValidationError(fmt.Sprintf("unknown entity kind %q", kind))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].DeletedAt.Equal(out[j].DeletedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].DeletedAt.After(out[j].DeletedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
