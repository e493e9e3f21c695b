package database

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/domain/repositories"
)

var propertyColumns = []interface{}{
	"id", "owner_id", "agent_id", "title", "price", "longitude", "latitude", "status",
	"average_rating", "ratings_count", "ratings_sum", "favorites_count", "views_count",
	"boost_score", "boost_computed_at", "created_at", "updated_at", "is_deleted", "deleted_at",
}

// PropertyAdapter implements the PropertyRepository interface
type PropertyAdapter struct {
	s *session
}

var _ repositories.PropertyRepository = (*PropertyAdapter)(nil)

// Create creates a new property
func (a *PropertyAdapter) Create(ctx context.Context, property *entities.Property) error {
	record := goqu.Record{
		"id":                property.ID,
		"owner_id":          property.OwnerID,
		"agent_id":          property.AgentID,
		"title":             property.Title,
		"price":             property.Price,
		"longitude":         property.Longitude,
		"latitude":          property.Latitude,
		"status":            property.Status,
		"average_rating":    property.AverageRating,
		"ratings_count":     property.RatingsCount,
		"ratings_sum":       property.RatingsSum,
		"favorites_count":   property.FavoritesCount,
		"views_count":       property.ViewsCount,
		"boost_score":       property.BoostScore,
		"boost_computed_at": property.BoostComputedAt,
		"created_at":        property.CreatedAt,
		"updated_at":        property.UpdatedAt,
	}

	if _, err := a.s.exec(ctx, insertInto("properties").Rows(record)); err != nil {
		return translate(err, "failed to create property")
	}
	return nil
}

// GetByID retrieves a live property by ID
func (a *PropertyAdapter) GetByID(ctx context.Context, id string) (*entities.Property, error) {
	return a.get(ctx, from("properties").Select(propertyColumns...).Where(goqu.Ex{"id": id}, live()), id)
}

// GetForUpdate retrieves a live property and holds its row lock until the
// transaction ends
func (a *PropertyAdapter) GetForUpdate(ctx context.Context, id string) (*entities.Property, error) {
	return a.get(ctx, from("properties").Select(propertyColumns...).
		Where(goqu.Ex{"id": id}, live()).
		ForUpdate(exp.Wait), id)
}

func (a *PropertyAdapter) get(ctx context.Context, ds *goqu.SelectDataset, id string) (*entities.Property, error) {
	property := &entities.Property{}
	err := a.s.get(ctx, property, ds)
	if isNoRows(err) {
		return nil, notFound("property", id)
	}
	if err != nil {
		return nil, translate(err, "failed to get property")
	}
	return property, nil
}

// updateLive writes record to a live property, failing with NOT_FOUND otherwise
func (a *PropertyAdapter) updateLive(ctx context.Context, id string, record goqu.Record, what string) error {
	rows, err := a.s.exec(ctx, update("properties").Set(record).Where(goqu.Ex{"id": id}, live()))
	if err != nil {
		return translate(err, "failed to update property "+what)
	}
	if rows == 0 {
		return notFound("property", id)
	}
	return nil
}

// ratingDelta moves count and sum and recomputes the average in the same statement
func ratingDelta(countDelta, sumDelta int, now time.Time) goqu.Record {
	return goqu.Record{
		"ratings_count": goqu.L("ratings_count + ?", countDelta),
		"ratings_sum":   goqu.L("ratings_sum + ?", sumDelta),
		"average_rating": goqu.L(
			"CASE WHEN ratings_count + ? > 0 THEN (ratings_sum + ?)::float8 / (ratings_count + ?) ELSE 0 END",
			countDelta, sumDelta, countDelta,
		),
		"updated_at": touch(now),
	}
}

// ApplyRatingDelta moves the rating aggregate in one write
func (a *PropertyAdapter) ApplyRatingDelta(ctx context.Context, id string, countDelta, sumDelta int, now time.Time) error {
	return a.updateLive(ctx, id, ratingDelta(countDelta, sumDelta, now), "rating")
}

// SetRatingAggregate overwrites the rating aggregate
func (a *PropertyAdapter) SetRatingAggregate(ctx context.Context, id string, count, sum int, now time.Time) error {
	return a.updateLive(ctx, id, goqu.Record{
		"ratings_count":  count,
		"ratings_sum":    sum,
		"average_rating": entities.AverageOf(sum, count),
		"updated_at":     touch(now),
	}, "rating")
}

// AdjustFavorites moves favorites_count by delta and returns the new value
func (a *PropertyAdapter) AdjustFavorites(ctx context.Context, id string, delta int64, now time.Time) (int64, error) {
	var count int64
	err := a.s.get(ctx, &count, update("properties").
		Set(goqu.Record{
			"favorites_count": goqu.L("favorites_count + ?", delta),
			"updated_at":      touch(now),
		}).
		Where(goqu.Ex{"id": id}, live()).
		Returning("favorites_count"))
	if isNoRows(err) {
		return 0, notFound("property", id)
	}
	if err != nil {
		return 0, translate(err, "failed to update favorites count")
	}
	return count, nil
}

// IncrementViews adds one view
func (a *PropertyAdapter) IncrementViews(ctx context.Context, id string, now time.Time) error {
	return a.updateLive(ctx, id, goqu.Record{
		"views_count": goqu.L("views_count + 1"),
		"updated_at":  touch(now),
	}, "views")
}

func recentCount(table, alias string, since time.Time) *goqu.SelectDataset {
	return dialect.From(goqu.T(table).As(alias)).
		Select(goqu.COUNT("*")).
		Where(
			goqu.I(alias+".property_id").Eq(goqu.I("p.id")),
			goqu.I(alias+".is_deleted").IsFalse(),
			goqu.I(alias+".created_at").Gte(since),
		)
}

// ListActivity returns boost inputs for every live property
func (a *PropertyAdapter) ListActivity(ctx context.Context, since time.Time) ([]entities.PropertyActivity, error) {
	ds := dialect.From(goqu.T("properties").As("p")).Prepared(true).
		Select(
			goqu.I("p.id").As("property_id"),
			goqu.I("p.views_count").As("views_count"),
			goqu.I("p.favorites_count").As("favorites_count"),
			recentCount("offers", "o", since).As("recent_offers"),
			recentCount("bookings", "b", since).As("recent_bookings"),
		).
		Where(goqu.I("p.is_deleted").IsFalse()).
		Order(goqu.I("p.id").Asc())

	var activity []entities.PropertyActivity
	if err := a.s.selectAll(ctx, &activity, ds); err != nil {
		return nil, translate(err, "failed to list property activity")
	}
	return activity, nil
}

// UpdateBoostScore stores a recomputed boost score
func (a *PropertyAdapter) UpdateBoostScore(ctx context.Context, id string, score float64, computedAt time.Time) error {
	return a.updateLive(ctx, id, goqu.Record{
		"boost_score":       score,
		"boost_computed_at": computedAt,
		"updated_at":        touch(computedAt),
	}, "boost score")
}

// SoftDelete marks the property deleted
func (a *PropertyAdapter) SoftDelete(ctx context.Context, id string, now time.Time) (bool, error) {
	return a.s.softDelete(ctx, "properties", "property", id, now)
}

var userColumns = []interface{}{
	"id", "name", "email", "role", "average_rating", "ratings_count", "ratings_sum",
	"created_at", "updated_at", "is_deleted", "deleted_at",
}

// UserAdapter implements the UserRepository interface
type UserAdapter struct {
	s *session
}

var _ repositories.UserRepository = (*UserAdapter)(nil)

// Create creates a new user
func (a *UserAdapter) Create(ctx context.Context, user *entities.User) error {
	record := goqu.Record{
		"id":             user.ID,
		"name":           user.Name,
		"email":          user.Email,
		"role":           user.Role,
		"average_rating": user.AverageRating,
		"ratings_count":  user.RatingsCount,
		"ratings_sum":    user.RatingsSum,
		"created_at":     user.CreatedAt,
		"updated_at":     user.UpdatedAt,
	}
	if _, err := a.s.exec(ctx, insertInto("users").Rows(record)); err != nil {
		return translate(err, "failed to create user")
	}
	return nil
}

// GetByID retrieves a live user by ID
func (a *UserAdapter) GetByID(ctx context.Context, id string) (*entities.User, error) {
	user := &entities.User{}
	err := a.s.get(ctx, user, from("users").Select(userColumns...).Where(goqu.Ex{"id": id}, live()))
	if isNoRows(err) {
		return nil, notFound("user", id)
	}
	if err != nil {
		return nil, translate(err, "failed to get user")
	}
	return user, nil
}

// ApplyRatingDelta moves the agent rating aggregate
func (a *UserAdapter) ApplyRatingDelta(ctx context.Context, id string, countDelta, sumDelta int, now time.Time) error {
	rows, err := a.s.exec(ctx, update("users").
		Set(ratingDelta(countDelta, sumDelta, now)).
		Where(goqu.Ex{"id": id}, live()))
	if err != nil {
		return translate(err, "failed to update user rating")
	}
	if rows == 0 {
		return notFound("user", id)
	}
	return nil
}
