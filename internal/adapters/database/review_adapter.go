package database

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/domain/repositories"
)

var reviewColumns = []interface{}{
	"id", "property_id", "user_id", "agent_id", "rating", "comment",
	"created_at", "updated_at", "is_deleted", "deleted_at",
}

// ReviewAdapter implements the ReviewRepository interface
type ReviewAdapter struct {
	s *session
}

var _ repositories.ReviewRepository = (*ReviewAdapter)(nil)

// Create stores a review
func (a *ReviewAdapter) Create(ctx context.Context, review *entities.Review) error {
	record := goqu.Record{
		"id":          review.ID,
		"property_id": review.PropertyID,
		"user_id":     review.UserID,
		"agent_id":    review.AgentID,
		"rating":      review.Rating,
		"comment":     review.Comment,
		"created_at":  review.CreatedAt,
		"updated_at":  review.UpdatedAt,
	}

	if _, err := a.s.exec(ctx, insertInto("reviews").Rows(record)); err != nil {
		return translate(err, "failed to create review")
	}
	return nil
}

// FindActive returns the live review of a user on a property, or nil
func (a *ReviewAdapter) FindActive(ctx context.Context, userID, propertyID string) (*entities.Review, error) {
	review := &entities.Review{}
	err := a.s.get(ctx, review, from("reviews").Select(reviewColumns...).
		Where(goqu.Ex{"user_id": userID, "property_id": propertyID}, live()).
		Limit(1))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err, "failed to get review")
	}
	return review, nil
}

// Update rewrites rating and comment of a live review
func (a *ReviewAdapter) Update(ctx context.Context, review *entities.Review) error {
	rows, err := a.s.exec(ctx, update("reviews").
		Set(goqu.Record{
			"rating":     review.Rating,
			"comment":    review.Comment,
			"updated_at": review.UpdatedAt,
		}).
		Where(goqu.Ex{"id": review.ID}, live()))
	if err != nil {
		return translate(err, "failed to update review")
	}
	if rows == 0 {
		return notFound("review", review.ID)
	}
	return nil
}

// SoftDelete marks the review deleted
func (a *ReviewAdapter) SoftDelete(ctx context.Context, id string, now time.Time) (bool, error) {
	return a.s.softDelete(ctx, "reviews", "review", id, now)
}

// ListByProperty lists live reviews of a property, newest first
func (a *ReviewAdapter) ListByProperty(ctx context.Context, propertyID string, filter repositories.ListFilter) ([]*entities.Review, error) {
	page := filter.Normalize()

	var reviews []*entities.Review
	err := a.s.selectAll(ctx, &reviews, from("reviews").Select(reviewColumns...).
		Where(goqu.Ex{"property_id": propertyID}, live()).
		Order(goqu.I("created_at").Desc(), goqu.I("id").Asc()).
		Limit(uint(page.Limit)).
		Offset(uint(page.Offset)))
	if err != nil {
		return nil, translate(err, "failed to list reviews")
	}
	return reviews, nil
}

// Aggregate returns count and sum of the live reviews of a property
func (a *ReviewAdapter) Aggregate(ctx context.Context, propertyID string) (int, int, error) {
	var agg struct {
		Count int `db:"count"`
		Sum   int `db:"sum"`
	}
	err := a.s.get(ctx, &agg, from("reviews").
		Select(
			goqu.COUNT("*").As("count"),
			goqu.COALESCE(goqu.SUM("rating"), goqu.L("0")).As("sum"),
		).
		Where(goqu.Ex{"property_id": propertyID}, live()))
	if err != nil {
		return 0, 0, translate(err, "failed to aggregate reviews")
	}
	return agg.Count, agg.Sum, nil
}

var favoriteColumns = []interface{}{
	"id", "user_id", "property_id", "created_at", "updated_at", "is_deleted", "deleted_at",
}

// FavoriteAdapter implements the FavoriteRepository interface
type FavoriteAdapter struct {
	s *session
}

var _ repositories.FavoriteRepository = (*FavoriteAdapter)(nil)

// Create stores a favorite
func (a *FavoriteAdapter) Create(ctx context.Context, favorite *entities.Favorite) error {
	record := goqu.Record{
		"id":          favorite.ID,
		"user_id":     favorite.UserID,
		"property_id": favorite.PropertyID,
		"created_at":  favorite.CreatedAt,
		"updated_at":  favorite.UpdatedAt,
	}

	if _, err := a.s.exec(ctx, insertInto("favorites").Rows(record)); err != nil {
		return translate(err, "failed to create favorite")
	}
	return nil
}

// FindActive returns the live favorite of a user on a property, or nil
func (a *FavoriteAdapter) FindActive(ctx context.Context, userID, propertyID string) (*entities.Favorite, error) {
	favorite := &entities.Favorite{}
	err := a.s.get(ctx, favorite, from("favorites").Select(favoriteColumns...).
		Where(goqu.Ex{"user_id": userID, "property_id": propertyID}, live()).
		Limit(1))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err, "failed to get favorite")
	}
	return favorite, nil
}

// SoftDelete marks the favorite deleted
func (a *FavoriteAdapter) SoftDelete(ctx context.Context, id string, now time.Time) (bool, error) {
	return a.s.softDelete(ctx, "favorites", "favorite", id, now)
}

// ListByUser lists the live favorites of a user, newest first
func (a *FavoriteAdapter) ListByUser(ctx context.Context, userID string, filter repositories.ListFilter) ([]*entities.Favorite, error) {
	page := filter.Normalize()

	var favorites []*entities.Favorite
	err := a.s.selectAll(ctx, &favorites, from("favorites").Select(favoriteColumns...).
		Where(goqu.Ex{"user_id": userID}, live()).
		Order(goqu.I("created_at").Desc(), goqu.I("id").Asc()).
		Limit(uint(page.Limit)).
		Offset(uint(page.Offset)))
	if err != nil {
		return nil, translate(err, "failed to list favorites")
	}
	return favorites, nil
}
