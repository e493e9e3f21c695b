package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/domain/repositories"
	apperrors "github.com/estatehub/marketplace/backend/pkg/errors"
)

type reviewRepo struct{ s *session }

func activeReview(st *state, userID, propertyID string) *entities.Review {
	for _, rv := range st.reviews {
		if rv.Live() && rv.UserID == userID && rv.PropertyID == propertyID {
			return &rv
		}
	}
	return nil
}

func (r *reviewRepo) Create(ctx context.Context, review *entities.Review) error {
	return r.s.with(func(st *state) error {
		if existing := activeReview(st, review.UserID, review.PropertyID); existing != nil {
			return apperrors.NewConflictError("user already reviewed this property").
				WithDetail(apperrors.DetailConflictingID, existing.ID)
		}
		st.reviews[review.ID] = *review
		return nil
	})
}

func (r *reviewRepo) FindActive(ctx context.Context, userID, propertyID string) (*entities.Review, error) {
	var out *entities.Review
	err := r.s.with(func(st *state) error {
		out = activeReview(st, userID, propertyID)
		return nil
	})
	return out, err
}

func (r *reviewRepo) Update(ctx context.Context, review *entities.Review) error {
	return r.s.with(func(st *state) error {
		stored, ok := st.reviews[review.ID]
		if !ok || stored.IsDeleted {
			return apperrors.NewNotFoundError(fmt.Sprintf("review with id %s not found", review.ID))
		}
		stored.Rating = review.Rating
		stored.Comment = review.Comment
		stored.UpdatedAt = review.UpdatedAt
		st.reviews[review.ID] = stored
		return nil
	})
}

func (r *reviewRepo) SoftDelete(ctx context.Context, id string, now time.Time) (bool, error) {
	changed := false
	err := r.s.with(func(st *state) error {
		rv, ok := st.reviews[id]
		if !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("review with id %s not found", id))
		}
		changed = markDeleted(&rv.SoftDelete, &rv.Timestamps, now)
		st.reviews[id] = rv
		return nil
	})
	return changed, err
}

func (r *reviewRepo) ListByProperty(ctx context.Context, propertyID string, filter repositories.ListFilter) ([]*entities.Review, error) {
	var items []entities.Review
	err := r.s.with(func(st *state) error {
		for _, rv := range st.reviews {
			if rv.Live() && rv.PropertyID == propertyID {
				items = append(items, rv)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	items = page(items, func(rv entities.Review) time.Time { return rv.CreatedAt }, func(rv entities.Review) string { return rv.ID }, filter)
	out := make([]*entities.Review, len(items))
	for i := range items {
		out[i] = &items[i]
	}
	return out, nil
}

func (r *reviewRepo) Aggregate(ctx context.Context, propertyID string) (int, int, error) {
	count, sum := 0, 0
	err := r.s.with(func(st *state) error {
		for _, rv := range st.reviews {
			if rv.Live() && rv.PropertyID == propertyID {
				count++
				sum += rv.Rating
			}
		}
		return nil
	})
	return count, sum, err
}

type favoriteRepo struct{ s *session }

func activeFavorite(st *state, userID, propertyID string) *entities.Favorite {
	for _, f := range st.favorites {
		if f.Live() && f.UserID == userID && f.PropertyID == propertyID {
			return &f
		}
	}
	return nil
}

func (r *favoriteRepo) Create(ctx context.Context, favorite *entities.Favorite) error {
	return r.s.with(func(st *state) error {
		if existing := activeFavorite(st, favorite.UserID, favorite.PropertyID); existing != nil {
			return apperrors.NewAlreadyFavoritedError(existing.ID)
		}
		st.favorites[favorite.ID] = *favorite
		return nil
	})
}

func (r *favoriteRepo) FindActive(ctx context.Context, userID, propertyID string) (*entities.Favorite, error) {
	var out *entities.Favorite
	err := r.s.with(func(st *state) error {
		out = activeFavorite(st, userID, propertyID)
		return nil
	})
	return out, err
}

func (r *favoriteRepo) SoftDelete(ctx context.Context, id string, now time.Time) (bool, error) {
	changed := false
	err := r.s.with(func(st *state) error {
		f, ok := st.favorites[id]
		if !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("favorite with id %s not found", id))
		}
		changed = markDeleted(&f.SoftDelete, &f.Timestamps, now)
		st.favorites[id] = f
		return nil
	})
	return changed, err
}

func (r *favoriteRepo) ListByUser(ctx context.Context, userID string, filter repositories.ListFilter) ([]*entities.Favorite, error) {
	var items []entities.Favorite
	err := r.s.with(func(st *state) error {
		for _, f := range st.favorites {
			if f.Live() && f.UserID == userID {
				items = append(items, f)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	items = page(items, func(f entities.Favorite) time.Time { return f.CreatedAt }, func(f entities.Favorite) string { return f.ID }, filter)
	out := make([]*entities.Favorite, len(items))
	for i := range items {
		out[i] = &items[i]
	}
	return out, nil
}
