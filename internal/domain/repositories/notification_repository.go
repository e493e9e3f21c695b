package repositories

import (
	"context"
	"time"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
)

// NotificationRepository defines the interface for notification data operations
type NotificationRepository interface {
	// Create stores a notification
	Create(ctx context.Context, notification *entities.Notification) error

	// ListByUser lists live notifications of a user, newest first
	ListByUser(ctx context.Context, userID string, unreadOnly bool, filter ListFilter) ([]*entities.Notification, error)

	// MarkRead marks a notification of the user as read
	MarkRead(ctx context.Context, id, userID string, now time.Time) error
}

// ViewEventRepository stores property view analytics
type ViewEventRepository interface {
	// Create records a view event
	Create(ctx context.Context, event *entities.ViewEvent) error
}
