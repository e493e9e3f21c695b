package database

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/domain/repositories"
	apperrors "github.com/estatehub/marketplace/backend/pkg/errors"
)

var offerColumns = []interface{}{
	"id", "property_id", "buyer_id", "amount", "message", "status", "expires_at",
	"created_at", "updated_at", "is_deleted", "deleted_at",
}

// OfferAdapter implements the OfferRepository interface
type OfferAdapter struct {
	s *session
}

var _ repositories.OfferRepository = (*OfferAdapter)(nil)

func activeOfferStatuses() exp.Expression {
	return goqu.C("status").In(entities.OfferStatusPending, entities.OfferStatusCountered)
}

// Create stores a new offer
func (a *OfferAdapter) Create(ctx context.Context, offer *entities.Offer) error {
	record := goqu.Record{
		"id":          offer.ID,
		"property_id": offer.PropertyID,
		"buyer_id":    offer.BuyerID,
		"amount":      offer.Amount,
		"message":     offer.Message,
		"status":      offer.Status,
		"expires_at":  offer.ExpiresAt,
		"created_at":  offer.CreatedAt,
		"updated_at":  offer.UpdatedAt,
	}

	if _, err := a.s.exec(ctx, insertInto("offers").Rows(record)); err != nil {
		return translate(err, "failed to create offer")
	}
	return nil
}

// GetByID retrieves a live offer by ID
func (a *OfferAdapter) GetByID(ctx context.Context, id string) (*entities.Offer, error) {
	offer, err := a.findOne(ctx, goqu.Ex{"id": id})
	if err != nil {
		return nil, err
	}
	if offer == nil {
		return nil, notFound("offer", id)
	}
	return offer, nil
}

// FindActive returns the live pending or countered offer of a buyer on a property
func (a *OfferAdapter) FindActive(ctx context.Context, buyerID, propertyID string) (*entities.Offer, error) {
	return a.findOne(ctx, goqu.Ex{"buyer_id": buyerID, "property_id": propertyID}, activeOfferStatuses())
}

// FindAccepted returns the live accepted offer of a property
func (a *OfferAdapter) FindAccepted(ctx context.Context, propertyID string) (*entities.Offer, error) {
	return a.findOne(ctx, goqu.Ex{"property_id": propertyID, "status": entities.OfferStatusAccepted})
}

// findOne returns nil when no live row matches
func (a *OfferAdapter) findOne(ctx context.Context, where ...exp.Expression) (*entities.Offer, error) {
	offer := &entities.Offer{}
	err := a.s.get(ctx, offer, from("offers").Select(offerColumns...).
		Where(append(where, live())...).
		Limit(1))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err, "failed to get offer")
	}
	return offer, nil
}

// Transition writes status, amount and expiry when the stored status is still one of from
func (a *OfferAdapter) Transition(ctx context.Context, offer *entities.Offer, allowed []entities.OfferStatus) error {
	if offer.Status == entities.OfferStatusAccepted {
		winner, err := a.FindAccepted(ctx, offer.PropertyID)
		if err != nil {
			return err
		}
		if winner != nil && winner.ID != offer.ID {
			stored, err := a.GetByID(ctx, offer.ID)
			if err != nil {
				return err
			}
			return apperrors.NewInvalidTransitionError("offer", string(stored.Status), string(offer.Status)).
				WithDetail(apperrors.DetailConflictingID, winner.ID)
		}
	}

	rows, err := a.s.exec(ctx, update("offers").
		Set(goqu.Record{
			"status":     offer.Status,
			"amount":     offer.Amount,
			"expires_at": offer.ExpiresAt,
			"updated_at": offer.UpdatedAt,
		}).
		Where(goqu.Ex{"id": offer.ID, "status": allowed}, live()))
	if err != nil {
		return translate(err, "failed to update offer")
	}
	if rows > 0 {
		return nil
	}

	stored, err := a.GetByID(ctx, offer.ID)
	if err != nil {
		return err
	}
	return apperrors.NewInvalidTransitionError("offer", string(stored.Status), string(offer.Status))
}

func (a *OfferAdapter) reject(ctx context.Context, now time.Time, where ...exp.Expression) ([]*entities.Offer, error) {
	var rejected []*entities.Offer
	err := a.s.selectAll(ctx, &rejected, update("offers").
		Set(goqu.Record{
			"status":     entities.OfferStatusRejected,
			"updated_at": touch(now),
		}).
		Where(append(where, activeOfferStatuses(), live())...).
		Returning(offerColumns...))
	if err != nil {
		return nil, translate(err, "failed to reject offers")
	}
	return rejected, nil
}

// RejectActiveExcept rejects every other active offer on the property
func (a *OfferAdapter) RejectActiveExcept(ctx context.Context, propertyID, exceptID string, now time.Time) ([]*entities.Offer, error) {
	return a.reject(ctx, now,
		goqu.C("property_id").Eq(propertyID),
		goqu.C("id").Neq(exceptID),
	)
}

// ExpireDue rejects active offers whose expiry is at or before now. Rows
// locked by a concurrent engine transaction are left for the next sweep.
func (a *OfferAdapter) ExpireDue(ctx context.Context, now time.Time, limit int) ([]*entities.Offer, error) {
	due := dialect.From("offers").
		Select("id").
		Where(activeOfferStatuses(), live(), goqu.C("expires_at").Lte(now)).
		Order(goqu.I("expires_at").Asc()).
		ForUpdate(exp.SkipLocked)
	if limit > 0 {
		due = due.Limit(uint(limit))
	}
	return a.reject(ctx, now, goqu.C("id").In(due))
}

func (a *OfferAdapter) list(ctx context.Context, where exp.Ex, filter repositories.OfferFilter) ([]*entities.Offer, error) {
	page := filter.ListFilter.Normalize()
	if filter.Status != "" {
		where["status"] = filter.Status
	}

	var offers []*entities.Offer
	err := a.s.selectAll(ctx, &offers, from("offers").Select(offerColumns...).
		Where(where, live()).
		Order(goqu.I("created_at").Desc(), goqu.I("id").Asc()).
		Limit(uint(page.Limit)).
		Offset(uint(page.Offset)))
	if err != nil {
		return nil, translate(err, "failed to list offers")
	}
	return offers, nil
}

// ListByProperty lists live offers of a property, newest first
func (a *OfferAdapter) ListByProperty(ctx context.Context, propertyID string, filter repositories.OfferFilter) ([]*entities.Offer, error) {
	return a.list(ctx, goqu.Ex{"property_id": propertyID}, filter)
}

// ListByBuyer lists live offers made by a buyer, newest first
func (a *OfferAdapter) ListByBuyer(ctx context.Context, buyerID string, filter repositories.OfferFilter) ([]*entities.Offer, error) {
	return a.list(ctx, goqu.Ex{"buyer_id": buyerID}, filter)
}

// SoftDelete marks the offer deleted
func (a *OfferAdapter) SoftDelete(ctx context.Context, id string, now time.Time) (bool, error) {
	return a.s.softDelete(ctx, "offers", "offer", id, now)
}
