package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
)

// AuditService lists soft-deleted records
type AuditService interface {
	ListDeleted(ctx context.Context, actor entities.Actor, kind entities.EntityKind, since time.Time, limit int) ([]entities.DeletedRecord, error)
}

// AdminHandler handles admin audit requests
type AdminHandler struct {
	audit AuditService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(audit AuditService) *AdminHandler {
	return &AdminHandler{audit: audit}
}

// ListDeleted handles GET /api/admin/deleted/{kind}?since=&limit=
func (h *AdminHandler) ListDeleted(w http.ResponseWriter, r *http.Request) {
	since, err := queryTime(r, "since")
	if err != nil {
		respondWithError(w, r, "admin.list_deleted", err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		respondWithError(w, r, "admin.list_deleted", err)
		return
	}

	var from time.Time
	if since != nil {
		from = *since
	}

	records, err := h.audit.ListDeleted(r.Context(), actorOf(r), entities.EntityKind(r.PathValue("kind")), from, limit)
	if err != nil {
		respondWithError(w, r, "admin.list_deleted", err)
		return
	}
	respondWithData(w, http.StatusOK, "", records)
}
