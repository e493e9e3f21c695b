package handlers

import (
	"context"
	"net/http"

	"github.com/estatehub/marketplace/backend/internal/application/services"
	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/domain/repositories"
)

// OfferService defines the negotiation operations used by the handler
type OfferService interface {
	Create(ctx context.Context, actor entities.Actor, input services.CreateOfferInput) (*entities.Offer, error)
	Counter(ctx context.Context, actor entities.Actor, offerID string, newAmount float64) (*entities.Offer, error)
	Accept(ctx context.Context, actor entities.Actor, offerID string) (*entities.Offer, error)
	Reject(ctx context.Context, actor entities.Actor, offerID string) (*entities.Offer, error)
	Withdraw(ctx context.Context, actor entities.Actor, offerID string) (*entities.Offer, error)
	Get(ctx context.Context, actor entities.Actor, offerID string) (*entities.Offer, error)
	ListForProperty(ctx context.Context, actor entities.Actor, propertyID string, filter repositories.OfferFilter) ([]*entities.Offer, error)
	ListForBuyer(ctx context.Context, actor entities.Actor, filter repositories.OfferFilter) ([]*entities.Offer, error)
}

// OfferDeleter soft-deletes offers
type OfferDeleter interface {
	DeleteOffer(ctx context.Context, actor entities.Actor, offerID string) error
}

// OfferHandler handles offer negotiation requests
type OfferHandler struct {
	service OfferService
	deletes OfferDeleter
}

// NewOfferHandler creates a new offer handler
func NewOfferHandler(service OfferService, deletes OfferDeleter) *OfferHandler {
	return &OfferHandler{service: service, deletes: deletes}
}

type counterOfferRequest struct {
	Amount float64 `json:"amount"`
}

// CreateOffer handles POST /api/properties/{id}/offers
func (h *OfferHandler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	var req services.CreateOfferInput
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, "offer.create", err)
		return
	}
	req.PropertyID = r.PathValue("id")

	offer, err := h.service.Create(r.Context(), actorOf(r), req)
	if err != nil {
		respondWithError(w, r, "offer.create", err)
		return
	}
	respondWithData(w, http.StatusCreated, "offer created", offer)
}

// ListPropertyOffers handles GET /api/properties/{id}/offers
func (h *OfferHandler) ListPropertyOffers(w http.ResponseWriter, r *http.Request) {
	filter, err := offerFilter(r)
	if err != nil {
		respondWithError(w, r, "offer.list", err)
		return
	}

	offers, err := h.service.ListForProperty(r.Context(), actorOf(r), r.PathValue("id"), filter)
	if err != nil {
		respondWithError(w, r, "offer.list", err)
		return
	}
	respondWithData(w, http.StatusOK, "", offers)
}

// ListMyOffers handles GET /api/me/offers
func (h *OfferHandler) ListMyOffers(w http.ResponseWriter, r *http.Request) {
	filter, err := offerFilter(r)
	if err != nil {
		respondWithError(w, r, "offer.list_mine", err)
		return
	}

	offers, err := h.service.ListForBuyer(r.Context(), actorOf(r), filter)
	if err != nil {
		respondWithError(w, r, "offer.list_mine", err)
		return
	}
	respondWithData(w, http.StatusOK, "", offers)
}

func offerFilter(r *http.Request) (repositories.OfferFilter, error) {
	page, err := listFilter(r)
	if err != nil {
		return repositories.OfferFilter{}, err
	}
	return repositories.OfferFilter{
		Status:     entities.OfferStatus(r.URL.Query().Get("status")),
		ListFilter: page,
	}, nil
}

// GetOffer handles GET /api/offers/{id}
func (h *OfferHandler) GetOffer(w http.ResponseWriter, r *http.Request) {
	offer, err := h.service.Get(r.Context(), actorOf(r), r.PathValue("id"))
	if err != nil {
		respondWithError(w, r, "offer.get", err)
		return
	}
	respondWithData(w, http.StatusOK, "", offer)
}

// CounterOffer handles POST /api/offers/{id}/counter
func (h *OfferHandler) CounterOffer(w http.ResponseWriter, r *http.Request) {
	var req counterOfferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, "offer.counter", err)
		return
	}

	offer, err := h.service.Counter(r.Context(), actorOf(r), r.PathValue("id"), req.Amount)
	if err != nil {
		respondWithError(w, r, "offer.counter", err)
		return
	}
	respondWithData(w, http.StatusOK, "offer countered", offer)
}

// AcceptOffer handles POST /api/offers/{id}/accept
func (h *OfferHandler) AcceptOffer(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "offer.accept", "offer accepted", h.service.Accept)
}

// RejectOffer handles POST /api/offers/{id}/reject
func (h *OfferHandler) RejectOffer(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "offer.reject", "offer rejected", h.service.Reject)
}

// WithdrawOffer handles POST /api/offers/{id}/withdraw
func (h *OfferHandler) WithdrawOffer(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "offer.withdraw", "offer withdrawn", h.service.Withdraw)
}

func (h *OfferHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	operation, message string,
	fn func(context.Context, entities.Actor, string) (*entities.Offer, error),
) {
	offer, err := fn(r.Context(), actorOf(r), r.PathValue("id"))
	if err != nil {
		respondWithError(w, r, operation, err)
		return
	}
	respondWithData(w, http.StatusOK, message, offer)
}

// DeleteOffer handles DELETE /api/offers/{id}
func (h *OfferHandler) DeleteOffer(w http.ResponseWriter, r *http.Request) {
	if err := h.deletes.DeleteOffer(r.Context(), actorOf(r), r.PathValue("id")); err != nil {
		respondWithError(w, r, "offer.delete", err)
		return
	}
	respondWithData(w, http.StatusOK, "offer deleted", nil)
}
