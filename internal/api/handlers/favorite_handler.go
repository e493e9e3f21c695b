package handlers

import (
	"context"
	"net/http"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/domain/repositories"
)

// FavoriteService defines the favorite counter operations used by the handler
type FavoriteService interface {
	AddFavorite(ctx context.Context, actor entities.Actor, propertyID string) (*entities.FavoriteResult, error)
	RemoveFavorite(ctx context.Context, actor entities.Actor, propertyID string) (*entities.FavoriteResult, error)
	ListFavorites(ctx context.Context, actor entities.Actor, filter repositories.ListFilter) ([]*entities.Favorite, error)
}

// FavoriteHandler handles favorite requests
type FavoriteHandler struct {
	service FavoriteService
}

// NewFavoriteHandler creates a new favorite handler
func NewFavoriteHandler(service FavoriteService) *FavoriteHandler {
	return &FavoriteHandler{service: service}
}

// AddFavorite handles POST /api/properties/{id}/favorite
func (h *FavoriteHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.AddFavorite(r.Context(), actorOf(r), r.PathValue("id"))
	if err != nil {
		respondWithError(w, r, "favorite.add", err)
		return
	}
	respondWithData(w, http.StatusCreated, "property favorited", result)
}

// RemoveFavorite handles DELETE /api/properties/{id}/favorite
func (h *FavoriteHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.RemoveFavorite(r.Context(), actorOf(r), r.PathValue("id"))
	if err != nil {
		respondWithError(w, r, "favorite.remove", err)
		return
	}
	respondWithData(w, http.StatusOK, "favorite removed", result)
}

// ListMyFavorites handles GET /api/me/favorites
func (h *FavoriteHandler) ListMyFavorites(w http.ResponseWriter, r *http.Request) {
	filter, err := listFilter(r)
	if err != nil {
		respondWithError(w, r, "favorite.list", err)
		return
	}

	favorites, err := h.service.ListFavorites(r.Context(), actorOf(r), filter)
	if err != nil {
		respondWithError(w, r, "favorite.list", err)
		return
	}
	respondWithData(w, http.StatusOK, "", favorites)
}
