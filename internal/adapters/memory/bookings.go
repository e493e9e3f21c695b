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

type bookingRepo struct{ s *session }

func bookingNotFound(id string) error {
	return apperrors.NewNotFoundError(fmt.Sprintf("booking with id %s not found", id))
}

// approvedOverlap mirrors the exclusion constraint on approved bookings
func approvedOverlap(st *state, propertyID string, start, end time.Time, exceptID string) *entities.Booking {
	for _, b := range st.bookings {
		if b.ID == exceptID || !b.Live() || b.PropertyID != propertyID || b.Status != entities.BookingStatusApproved {
			continue
		}
		if entities.IntervalsOverlap(start, end, b.ScheduledDate, b.EndsAt) {
			return &b
		}
	}
	return nil
}

func (r *bookingRepo) Create(ctx context.Context, booking *entities.Booking) error {
	return r.s.with(func(st *state) error {
		if booking.Status == entities.BookingStatusApproved {
			if other := approvedOverlap(st, booking.PropertyID, booking.ScheduledDate, booking.EndsAt, booking.ID); other != nil {
				return apperrors.NewSlotConflictError(other.ID)
			}
		}
		st.bookings[booking.ID] = *booking
		return nil
	})
}

func (r *bookingRepo) GetByID(ctx context.Context, id string) (*entities.Booking, error) {
	var out *entities.Booking
	err := r.s.with(func(st *state) error {
		b, ok := st.bookings[id]
		if !ok || b.IsDeleted {
			return bookingNotFound(id)
		}
		out = &b
		return nil
	})
	return out, err
}

func (r *bookingRepo) FindApprovedOverlap(ctx context.Context, propertyID string, start, end time.Time, excludeID string) (*entities.Booking, error) {
	var out *entities.Booking
	err := r.s.with(func(st *state) error {
		out = approvedOverlap(st, propertyID, start, end, excludeID)
		return nil
	})
	return out, err
}

func (r *bookingRepo) Transition(ctx context.Context, booking *entities.Booking, from []entities.BookingStatus) error {
	return r.s.with(func(st *state) error {
		stored, ok := st.bookings[booking.ID]
		if !ok || stored.IsDeleted {
			return bookingNotFound(booking.ID)
		}
		if !statusIn(stored.Status, from) {
			return apperrors.NewInvalidTransitionError("booking", string(stored.Status), string(booking.Status))
		}
		if booking.Status == entities.BookingStatusApproved {
			if other := approvedOverlap(st, stored.PropertyID, stored.ScheduledDate, stored.EndsAt, stored.ID); other != nil {
				return apperrors.NewSlotConflictError(other.ID)
			}
		}
		stored.Status = booking.Status
		stored.UpdatedAt = booking.UpdatedAt
		st.bookings[booking.ID] = stored
		return nil
	})
}

func (r *bookingRepo) ListByProperty(ctx context.Context, propertyID string, filter repositories.BookingFilter) ([]*entities.Booking, error) {
	var items []entities.Booking
	err := r.s.with(func(st *state) error {
		for _, b := range st.bookings {
			if !b.Live() || b.PropertyID != propertyID {
				continue
			}
			if filter.Status != "" && b.Status != filter.Status {
				continue
			}
			if filter.From != nil && b.EndsAt.Before(*filter.From) {
				continue
			}
			if filter.To != nil && !b.ScheduledDate.Before(*filter.To) {
				continue
			}
			items = append(items, b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].ScheduledDate.Equal(items[j].ScheduledDate) {
			return items[i].ID < items[j].ID
		}
		return items[i].ScheduledDate.Before(items[j].ScheduledDate)
	})

	lf := filter.ListFilter.Normalize()
	if lf.Offset >= len(items) {
		return []*entities.Booking{}, nil
	}
	end := lf.Offset + lf.Limit
	if end > len(items) {
		end = len(items)
	}
	out := make([]*entities.Booking, 0, end-lf.Offset)
	for i := lf.Offset; i < end; i++ {
		out = append(out, &items[i])
	}
	return out, nil
}

func (r *bookingRepo) SoftDelete(ctx context.Context, id string, now time.Time) (bool, error) {
	changed := false
	err := r.s.with(func(st *state) error {
		b, ok := st.bookings[id]
		if !ok {
			return bookingNotFound(id)
		}
		changed = markDeleted(&b.SoftDelete, &b.Timestamps, now)
		st.bookings[id] = b
		return nil
	})
	return changed, err
}
