package handlers

import (
	"context"
	"net/http"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/domain/repositories"
)

// NotificationService defines the inbox operations used by the handler
type NotificationService interface {
	ListForUser(ctx context.Context, actor entities.Actor, unreadOnly bool, filter repositories.ListFilter) ([]*entities.Notification, error)
	MarkRead(ctx context.Context, actor entities.Actor, notificationID string) error
}

// NotificationHandler handles notification inbox requests
type NotificationHandler struct {
	service NotificationService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(service NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// ListNotifications handles GET /api/notifications?unread=true
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	filter, err := listFilter(r)
	if err != nil {
		respondWithError(w, r, "notification.list", err)
		return
	}
	unreadOnly := r.URL.Query().Get("unread") == "true"

	notifications, err := h.service.ListForUser(r.Context(), actorOf(r), unreadOnly, filter)
	if err != nil {
		respondWithError(w, r, "notification.list", err)
		return
	}
	respondWithData(w, http.StatusOK, "", notifications)
}

// MarkRead handles POST /api/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if err := h.service.MarkRead(r.Context(), actorOf(r), r.PathValue("id")); err != nil {
		respondWithError(w, r, "notification.mark_read", err)
		return
	}
	respondWithData(w, http.StatusOK, "notification marked read", nil)
}
