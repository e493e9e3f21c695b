package handlers

import (
	"context"
	"net/http"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/domain/repositories"
)

// RatingService defines the review operations used by the handler
type RatingService interface {
	UpsertReview(ctx context.Context, actor entities.Actor, propertyID string, rating int, comment string) (*entities.Review, *entities.RatingSummary, error)
	RemoveReview(ctx context.Context, actor entities.Actor, userID, propertyID string) (*entities.RatingSummary, error)
	ListForProperty(ctx context.Context, propertyID string, filter repositories.ListFilter) ([]*entities.Review, error)
}

// ReviewHandler handles property review requests
type ReviewHandler struct {
	service RatingService
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(service RatingService) *ReviewHandler {
	return &ReviewHandler{service: service}
}

type reviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

type reviewResponse struct {
	Review  *entities.Review        `json:"review"`
	Summary *entities.RatingSummary `json:"summary"`
}

// UpsertReview handles PUT /api/properties/{id}/review
func (h *ReviewHandler) UpsertReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, "review.upsert", err)
		return
	}

	review, summary, err := h.service.UpsertReview(r.Context(), actorOf(r), r.PathValue("id"), req.Rating, req.Comment)
	if err != nil {
		respondWithError(w, r, "review.upsert", err)
		return
	}
	respondWithData(w, http.StatusOK, "review saved", reviewResponse{Review: review, Summary: summary})
}

// RemoveReview handles DELETE /api/properties/{id}/review. Admins may remove
// another user's review with ?user_id=.
func (h *ReviewHandler) RemoveReview(w http.ResponseWriter, r *http.Request) {
	actor := actorOf(r)
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = actor.UserID
	}

	summary, err := h.service.RemoveReview(r.Context(), actor, userID, r.PathValue("id"))
	if err != nil {
		respondWithError(w, r, "review.remove", err)
		return
	}
	respondWithData(w, http.StatusOK, "review removed", summary)
}

// ListReviews handles GET /api/properties/{id}/reviews
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	filter, err := listFilter(r)
	if err != nil {
		respondWithError(w, r, "review.list", err)
		return
	}

	reviews, err := h.service.ListForProperty(r.Context(), r.PathValue("id"), filter)
	if err != nil {
		respondWithError(w, r, "review.list", err)
		return
	}
	respondWithData(w, http.StatusOK, "", reviews)
}
