package database

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/domain/repositories"
	apperrors "github.com/estatehub/marketplace/backend/pkg/errors"
)

var notificationColumns = []interface{}{
	"id", "user_id", "type", "title", "message", "entity_type", "entity_id", "is_read", "read_at",
	"created_at", "updated_at", "is_deleted", "deleted_at",
}

// NotificationAdapter implements the NotificationRepository interface
type NotificationAdapter struct {
	s *session
}

var _ repositories.NotificationRepository = (*NotificationAdapter)(nil)

// Create stores a notification
func (a *NotificationAdapter) Create(ctx context.Context, notification *entities.Notification) error {
	record := goqu.Record{
		"id":          notification.ID,
		"user_id":     notification.UserID,
		"type":        notification.Type,
		"title":       notification.Title,
		"message":     notification.Message,
		"entity_type": notification.EntityType,
		"entity_id":   notification.EntityID,
		"is_read":     notification.IsRead,
		"read_at":     notification.ReadAt,
		"created_at":  notification.CreatedAt,
		"updated_at":  notification.UpdatedAt,
	}

	if _, err := a.s.exec(ctx, insertInto("notifications").Rows(record)); err != nil {
		return translate(err, "failed to create notification")
	}
	return nil
}

// ListByUser lists live notifications of a user, newest first
func (a *NotificationAdapter) ListByUser(ctx context.Context, userID string, unreadOnly bool, filter repositories.ListFilter) ([]*entities.Notification, error) {
	page := filter.Normalize()
	ds := from("notifications").Select(notificationColumns...).
		Where(goqu.Ex{"user_id": userID}, live())

	if unreadOnly {
		ds = ds.Where(goqu.C("is_read").IsFalse())
	}

	ds = ds.Order(goqu.I("created_at").Desc(), goqu.I("id").Asc()).
		Limit(uint(page.Limit)).
		Offset(uint(page.Offset))

	var notifications []*entities.Notification
	if err := a.s.selectAll(ctx, &notifications, ds); err != nil {
		return nil, translate(err, "failed to list notifications")
	}
	return notifications, nil
}

// MarkRead marks a notification of the user as read. Marking twice keeps the first read time.
func (a *NotificationAdapter) MarkRead(ctx context.Context, id, userID string, now time.Time) error {
	rows, err := a.s.exec(ctx, update("notifications").
		Set(goqu.Record{
			"is_read":    true,
			"read_at":    goqu.COALESCE(goqu.C("read_at"), now),
			"updated_at": touch(now),
		}).
		Where(goqu.Ex{"id": id, "user_id": userID}, live()))
	if err != nil {
		return translate(err, "failed to mark notification read")
	}
	if rows == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("notification with id %s not found", id))
	}
	return nil
}

// ViewEventAdapter implements the ViewEventRepository interface
type ViewEventAdapter struct {
	s *session
}

var _ repositories.ViewEventRepository = (*ViewEventAdapter)(nil)

// Create records a view event
func (a *ViewEventAdapter) Create(ctx context.Context, event *entities.ViewEvent) error {
	record := goqu.Record{
		"id":          event.ID,
		"property_id": event.PropertyID,
		"viewer_id":   event.ViewerID,
		"source":      event.Source,
		"created_at":  event.CreatedAt,
	}

	if _, err := a.s.exec(ctx, insertInto("view_events").Rows(record)); err != nil {
		return translate(err, "failed to record view")
	}
	return nil
}

// auditTables maps each soft-deletable kind to its table
var auditTables = map[entities.EntityKind]string{
	entities.EntityProperty:     "properties",
	entities.EntityOffer:        "offers",
	entities.EntityBooking:      "bookings",
	entities.EntityReview:       "reviews",
	entities.EntityFavorite:     "favorites",
	entities.EntityNotification: "notifications",
}

// AuditAdapter implements the AuditRepository interface
type AuditAdapter struct {
	s *session
}

var _ repositories.AuditRepository = (*AuditAdapter)(nil)

// ListDeleted returns deleted records of one kind, newest first
func (a *AuditAdapter) ListDeleted(ctx context.Context, kind entities.EntityKind, since time.Time, limit int) ([]entities.DeletedRecord, error) {
	table, ok := auditTables[kind]
	if !ok {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown entity kind %q", kind))
	}

	ds := from(table).Select("id", "deleted_at").
		Where(goqu.C("is_deleted").IsTrue(), goqu.C("deleted_at").Gte(since)).
		Order(goqu.I("deleted_at").Desc(), goqu.I("id").Asc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}

	var records []entities.DeletedRecord
	if err := a.s.selectAll(ctx, &records, ds); err != nil {
		return nil, translate(err, "failed to list deleted "+table)
	}
	for i := range records {
		records[i].Kind = kind
	}
	return records, nil
}
