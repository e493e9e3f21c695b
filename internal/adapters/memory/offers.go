package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/domain/repositories"
	apperrors "github.com/estatehub/marketplace/backend/pkg/errors"
)

type offerRepo struct{ s *session }

func offerNotFound(id string) error {
	return apperrors.NewNotFoundError(fmt.Sprintf("offer with id %s not found", id))
}

func statusIn[S comparable](s S, set []S) bool {
	for _, candidate := range set {
		if candidate == s {
			return true
		}
	}
	return false
}

// activeOffer mirrors the partial unique index on (buyer_id, property_id)
func activeOffer(st *state, buyerID, propertyID, exceptID string) *entities.Offer {
	for _, o := range st.offers {
		if o.ID != exceptID && o.Live() && o.BuyerID == buyerID && o.PropertyID == propertyID && o.Status.IsActive() {
			return &o
		}
	}
	return nil
}

// acceptedOffer mirrors the partial unique index on accepted offers per property
func acceptedOffer(st *state, propertyID, exceptID string) *entities.Offer {
	for _, o := range st.offers {
		if o.ID != exceptID && o.Live() && o.PropertyID == propertyID && o.Status == entities.OfferStatusAccepted {
			return &o
		}
	}
	return nil
}

func (r *offerRepo) Create(ctx context.Context, offer *entities.Offer) error {
	return r.s.with(func(st *state) error {
		if offer.Status.IsActive() {
			if existing := activeOffer(st, offer.BuyerID, offer.PropertyID, offer.ID); existing != nil {
				return apperrors.NewDuplicateActiveOfferError(existing.ID)
			}
		}
		st.offers[offer.ID] = *offer
		return nil
	})
}

func (r *offerRepo) GetByID(ctx context.Context, id string) (*entities.Offer, error) {
	var out *entities.Offer
	err := r.s.with(func(st *state) error {
		o, ok := st.offers[id]
		if !ok || o.IsDeleted {
			return offerNotFound(id)
		}
		out = &o
		return nil
	})
	return out, err
}

func (r *offerRepo) FindActive(ctx context.Context, buyerID, propertyID string) (*entities.Offer, error) {
	var out *entities.Offer
	err := r.s.with(func(st *state) error {
		out = activeOffer(st, buyerID, propertyID, "")
		return nil
	})
	return out, err
}

func (r *offerRepo) FindAccepted(ctx context.Context, propertyID string) (*entities.Offer, error) {
	var out *entities.Offer
	err := r.s.with(func(st *state) error {
		out = acceptedOffer(st, propertyID, "")
		return nil
	})
	return out, err
}

func (r *offerRepo) Transition(ctx context.Context, offer *entities.Offer, from []entities.OfferStatus) error {
	return r.s.with(func(st *state) error {
		stored, ok := st.offers[offer.ID]
		if !ok || stored.IsDeleted {
			return offerNotFound(offer.ID)
		}
		if !statusIn(stored.Status, from) {
			return apperrors.NewInvalidTransitionError("offer", string(stored.Status), string(offer.Status))
		}
		if offer.Status == entities.OfferStatusAccepted {
			if winner := acceptedOffer(st, offer.PropertyID, offer.ID); winner != nil {
				return apperrors.NewInvalidTransitionError("offer", string(stored.Status), string(offer.Status)).
					WithDetail(apperrors.DetailConflictingID, winner.ID)
			}
		}
		stored.Status = offer.Status
		stored.Amount = offer.Amount
		stored.ExpiresAt = offer.ExpiresAt
		stored.UpdatedAt = offer.UpdatedAt
		st.offers[offer.ID] = stored
		return nil
	})
}

func (r *offerRepo) rejectWhere(st *state, now time.Time, match func(o entities.Offer) bool) []*entities.Offer {
	var rejected []*entities.Offer
	for id, o := range st.offers {
		if !o.Live() || !o.Status.IsActive() || !match(o) {
			continue
		}
		o.Status = entities.OfferStatusRejected
		o.Touch(now)
		st.offers[id] = o
		copied := o
		rejected = append(rejected, &copied)
	}
	return rejected
}

func (r *offerRepo) RejectActiveExcept(ctx context.Context, propertyID, exceptID string, now time.Time) ([]*entities.Offer, error) {
	var out []*entities.Offer
	err := r.s.with(func(st *state) error {
		out = r.rejectWhere(st, now, func(o entities.Offer) bool {
			return o.PropertyID == propertyID && o.ID != exceptID
		})
		return nil
	})
	return out, err
}

func (r *offerRepo) ExpireDue(ctx context.Context, now time.Time, limit int) ([]*entities.Offer, error) {
	var out []*entities.Offer
	err := r.s.with(func(st *state) error {
		taken := 0
		out = r.rejectWhere(st, now, func(o entities.Offer) bool {
			if limit > 0 && taken >= limit {
				return false
			}
			if o.IsExpired(now) {
				taken++
				return true
			}
			return false
		})
		return nil
	})
	return out, err
}

func (r *offerRepo) list(match func(o entities.Offer) bool, filter repositories.OfferFilter) ([]*entities.Offer, error) {
	var items []entities.Offer
	err := r.s.with(func(st *state) error {
		for _, o := range st.offers {
			if o.Live() && match(o) && (filter.Status == "" || o.Status == filter.Status) {
				items = append(items, o)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	items = page(items, func(o entities.Offer) time.Time { return o.CreatedAt }, func(o entities.Offer) string { return o.ID }, filter.ListFilter)
	out := make([]*entities.Offer, len(items))
	for i := range items {
		out[i] = &items[i]
	}
	return out, nil
}

func (r *offerRepo) ListByProperty(ctx context.Context, propertyID string, filter repositories.OfferFilter) ([]*entities.Offer, error) {
	return r.list(func(o entities.Offer) bool { return o.PropertyID == propertyID }, filter)
}

func (r *offerRepo) ListByBuyer(ctx context.Context, buyerID string, filter repositories.OfferFilter) ([]*entities.Offer, error) {
	return r.list(func(o entities.Offer) bool { return o.BuyerID == buyerID }, filter)
}

func (r *offerRepo) SoftDelete(ctx context.Context, id string, now time.Time) (bool, error) {
	changed := false
	err := r.s.with(func(st *state) error {
		o, ok := st.offers[id]
		if !ok {
			return offerNotFound(id)
		}
		changed = markDeleted(&o.SoftDelete, &o.Timestamps, now)
		st.offers[id] = o
		return nil
	})
	return changed, err
}
