package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/estatehub/marketplace/backend/internal/application/services"
	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/domain/providers"
)

// PropertyService defines the property registry operations used by the handler
type PropertyService interface {
	Create(ctx context.Context, actor entities.Actor, input services.CreatePropertyInput) (*entities.Property, error)
	Get(ctx context.Context, id string) (*entities.Property, error)
	SearchNearby(ctx context.Context, query providers.NearbyQuery) ([]providers.PropertyHit, error)
}

// ViewRecorder records property views off the request path
type ViewRecorder interface {
	RecordView(ctx context.Context, propertyID, viewerID, source string)
}

// PropertyDeleter soft-deletes listings
type PropertyDeleter interface {
	DeleteProperty(ctx context.Context, actor entities.Actor, propertyID string) error
}

// PropertyHandler handles property-related HTTP requests
type PropertyHandler struct {
	service PropertyService
	views   ViewRecorder
	deletes PropertyDeleter
}

// NewPropertyHandler creates a new property handler
func NewPropertyHandler(service PropertyService, views ViewRecorder, deletes PropertyDeleter) *PropertyHandler {
	return &PropertyHandler{service: service, views: views, deletes: deletes}
}

// CreateProperty handles POST /api/properties
func (h *PropertyHandler) CreateProperty(w http.ResponseWriter, r *http.Request) {
	var input services.CreatePropertyInput
	if err := decodeJSON(w, r, &input); err != nil {
		respondWithError(w, r, "property.create", err)
		return
	}

	property, err := h.service.Create(r.Context(), actorOf(r), input)
	if err != nil {
		respondWithError(w, r, "property.create", err)
		return
	}
	respondWithData(w, http.StatusCreated, "property created", property)
}

// GetProperty handles GET /api/properties/{id}
func (h *PropertyHandler) GetProperty(w http.ResponseWriter, r *http.Request) {
	property, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithError(w, r, "property.get", err)
		return
	}
	respondWithData(w, http.StatusOK, "", property)
}

// DeleteProperty handles DELETE /api/properties/{id}
func (h *PropertyHandler) DeleteProperty(w http.ResponseWriter, r *http.Request) {
	if err := h.deletes.DeleteProperty(r.Context(), actorOf(r), r.PathValue("id")); err != nil {
		respondWithError(w, r, "property.delete", err)
		return
	}
	respondWithData(w, http.StatusOK, "property deleted", nil)
}

// SearchNearby handles GET /api/properties/nearby
func (h *PropertyHandler) SearchNearby(w http.ResponseWriter, r *http.Request) {
	query, err := nearbyQuery(r)
	if err != nil {
		respondWithError(w, r, "property.nearby", err)
		return
	}

	hits, err := h.service.SearchNearby(r.Context(), query)
	if err != nil {
		respondWithError(w, r, "property.nearby", err)
		return
	}
	respondWithData(w, http.StatusOK, "", hits)
}

func nearbyQuery(r *http.Request) (providers.NearbyQuery, error) {
	var q providers.NearbyQuery
	var err error
	if q.Latitude, err = queryFloat(r, "lat", true); err != nil {
		return q, err
	}
	if q.Longitude, err = queryFloat(r, "lon", true); err != nil {
		return q, err
	}
	if q.RadiusKm, err = queryFloat(r, "radius_km", false); err != nil {
		return q, err
	}
	if q.MaxPrice, err = queryFloat(r, "max_price", false); err != nil {
		return q, err
	}
	filter, err := listFilter(r)
	if err != nil {
		return q, err
	}
	q.Limit, q.Offset = filter.Limit, filter.Offset
	return q, nil
}

// RecordView handles POST /api/properties/{id}/views. The view is written
// asynchronously, so the response never waits on it.
func (h *PropertyHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	source := strings.TrimSpace(r.URL.Query().Get("source"))
	if source == "" {
		source = "web"
	}
	h.views.RecordView(r.Context(), r.PathValue("id"), actorOf(r).UserID, source)
	respondWithData(w, http.StatusAccepted, "view recorded", nil)
}
