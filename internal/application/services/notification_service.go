package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/domain/repositories"
	apperrors "github.com/estatehub/marketplace/backend/pkg/errors"
)

// notice is a notification to be written inside an engine transaction
type notice struct {
	userID   string
	kind     entities.NotificationType
	title    string
	message  string
	entity   entities.EntityKind
	entityID string
}

// recordNotices writes notices through the transaction's repository so they
// commit or roll back with the transition that produced them
func recordNotices(ctx context.Context, repo repositories.NotificationRepository, now time.Time, notices ...notice) error {
	seen := make(map[string]bool, len(notices))
	for _, n := range notices {
		if n.userID == "" {
			continue
		}
		key := n.userID + "|" + string(n.kind) + "|" + n.entityID
		if seen[key] {
			continue
		}
		seen[key] = true

		record := &entities.Notification{
			ID:         uuid.New().String(),
			UserID:     n.userID,
			Type:       n.kind,
			Title:      n.title,
			Message:    n.message,
			EntityType: n.entity,
			EntityID:   n.entityID,
		}
		record.Stamp(now)
		if err := repo.Create(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

// sellerSide returns the users that act for a property
func sellerSide(p *entities.Property) []string {
	ids := []string{p.OwnerID}
	if p.AgentID != nil && *p.AgentID != "" && *p.AgentID != p.OwnerID {
		ids = append(ids, *p.AgentID)
	}
	return ids
}

// NotificationService exposes the in-app notifications of a user
type NotificationService struct {
	store repositories.Store
	now   func() time.Time
}

// NewNotificationService creates a new notification service
func NewNotificationService(store repositories.Store) *NotificationService {
	return &NotificationService{store: store, now: utcNow}
}

// ListForUser lists the actor's notifications
func (s *NotificationService) ListForUser(ctx context.Context, actor entities.Actor, unreadOnly bool, filter repositories.ListFilter) ([]*entities.Notification, error) {
	if !actor.Valid() {
		return nil, apperrors.NewNotAuthorizedError("an authenticated actor is required")
	}
	return s.store.Notifications().ListByUser(ctx, actor.UserID, unreadOnly, filter)
}

// MarkRead marks one of the actor's notifications as read
func (s *NotificationService) MarkRead(ctx context.Context, actor entities.Actor, notificationID string) error {
	if !actor.Valid() {
		return apperrors.NewNotAuthorizedError("an authenticated actor is required")
	}
	return s.store.Notifications().MarkRead(ctx, notificationID, actor.UserID, s.now())
}
