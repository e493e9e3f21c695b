package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	apperrors "github.com/estatehub/marketplace/backend/pkg/errors"
)

type propertyRepo struct{ s *session }

func propertyNotFound(id string) error {
	return apperrors.NewNotFoundError(fmt.Sprintf("property with id %s not found", id))
}

func (r *propertyRepo) Create(ctx context.Context, property *entities.Property) error {
	return r.s.with(func(st *state) error {
		if _, exists := st.properties[property.ID]; exists {
			return apperrors.NewConflictError(fmt.Sprintf("property with id %s already exists", property.ID))
		}
		st.properties[property.ID] = *property
		return nil
	})
}

func (r *propertyRepo) GetByID(ctx context.Context, id string) (*entities.Property, error) {
	var out *entities.Property
	err := r.s.with(func(st *state) error {
		p, ok := st.properties[id]
		if !ok || p.IsDeleted {
			return propertyNotFound(id)
		}
		out = &p
		return nil
	})
	return out, err
}

// GetForUpdate needs no row lock here; transactions are already serialized
func (r *propertyRepo) GetForUpdate(ctx context.Context, id string) (*entities.Property, error) {
	return r.GetByID(ctx, id)
}

func (r *propertyRepo) update(id string, fn func(p *entities.Property)) error {
	return r.s.with(func(st *state) error {
		p, ok := st.properties[id]
		if !ok || p.IsDeleted {
			return propertyNotFound(id)
		}
		fn(&p)
		st.properties[id] = p
		return nil
	})
}

func (r *propertyRepo) ApplyRatingDelta(ctx context.Context, id string, countDelta, sumDelta int, now time.Time) error {
	return r.update(id, func(p *entities.Property) {
		p.ApplyRating(countDelta, sumDelta)
		p.Touch(now)
	})
}

func (r *propertyRepo) SetRatingAggregate(ctx context.Context, id string, count, sum int, now time.Time) error {
	return r.update(id, func(p *entities.Property) {
		p.RatingsCount = count
		p.RatingsSum = sum
		p.AverageRating = entities.AverageOf(sum, count)
		p.Touch(now)
	})
}

func (r *propertyRepo) AdjustFavorites(ctx context.Context, id string, delta int64, now time.Time) (int64, error) {
	var count int64
	err := r.update(id, func(p *entities.Property) {
		p.FavoritesCount += delta
		p.Touch(now)
		count = p.FavoritesCount
	})
	return count, err
}

func (r *propertyRepo) IncrementViews(ctx context.Context, id string, now time.Time) error {
	return r.update(id, func(p *entities.Property) {
		p.ViewsCount++
		p.Touch(now)
	})
}

func (r *propertyRepo) ListActivity(ctx context.Context, since time.Time) ([]entities.PropertyActivity, error) {
	var out []entities.PropertyActivity
	err := r.s.with(func(st *state) error {
		recentOffers := make(map[string]int64)
		for _, o := range st.offers {
			if o.Live() && !o.CreatedAt.Before(since) {
				recentOffers[o.PropertyID]++
			}
		}
		recentBookings := make(map[string]int64)
		for _, b := range st.bookings {
			if b.Live() && !b.CreatedAt.Before(since) {
				recentBookings[b.PropertyID]++
			}
		}
		for _, p := range st.properties {
			if p.IsDeleted {
				continue
			}
			out = append(out, entities.PropertyActivity{
				PropertyID:     p.ID,
				ViewsCount:     p.ViewsCount,
				FavoritesCount: p.FavoritesCount,
				RecentOffers:   recentOffers[p.ID],
				RecentBookings: recentBookings[p.ID],
			})
		}
		return nil
	})
	return out, err
}

func (r *propertyRepo) UpdateBoostScore(ctx context.Context, id string, score float64, computedAt time.Time) error {
	return r.update(id, func(p *entities.Property) {
		at := computedAt
		p.BoostScore = score
		p.BoostComputedAt = &at
		p.Touch(computedAt)
	})
}

func (r *propertyRepo) SoftDelete(ctx context.Context, id string, now time.Time) (bool, error) {
	changed := false
	err := r.s.with(func(st *state) error {
		p, ok := st.properties[id]
		if !ok {
			return propertyNotFound(id)
		}
		changed = markDeleted(&p.SoftDelete, &p.Timestamps, now)
		st.properties[id] = p
		return nil
	})
	return changed, err
}

type userRepo struct{ s *session }

func (r *userRepo) Create(ctx context.Context, user *entities.User) error {
	return r.s.with(func(st *state) error {
		if _, exists := st.users[user.ID]; exists {
			return apperrors.NewConflictError(fmt.Sprintf("user with id %s already exists", user.ID))
		}
		st.users[user.ID] = *user
		return nil
	})
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*entities.User, error) {
	var out *entities.User
	err := r.s.with(func(st *state) error {
		u, ok := st.users[id]
		if !ok || u.IsDeleted {
			return apperrors.NewNotFoundError(fmt.Sprintf("user with id %s not found", id))
		}
		out = &u
		return nil
	})
	return out, err
}

func (r *userRepo) ApplyRatingDelta(ctx context.Context, id string, countDelta, sumDelta int, now time.Time) error {
	return r.s.with(func(st *state) error {
		u, ok := st.users[id]
		if !ok || u.IsDeleted {
			return apperrors.NewNotFoundError(fmt.Sprintf("user with id %s not found", id))
		}
		u.ApplyRating(countDelta, sumDelta)
		u.Touch(now)
		st.users[id] = u
		return nil
	})
}
