package entities

import "time"

// NotificationType represents the notification purpose
type NotificationType string

const (
	NotificationOfferReceived   NotificationType = "offer_received"
	NotificationOfferCountered  NotificationType = "offer_countered"
	NotificationOfferAccepted   NotificationType = "offer_accepted"
	NotificationOfferRejected   NotificationType = "offer_rejected"
	NotificationOfferWithdrawn  NotificationType = "offer_withdrawn"
	NotificationBookingRequest  NotificationType = "booking_requested"
	NotificationBookingApproved NotificationType = "booking_approved"
	NotificationBookingRejected NotificationType = "booking_rejected"
	NotificationBookingCanceled NotificationType = "booking_cancelled"
)

// Notification is an in-app notice recorded alongside the transition that caused it.
// Delivery over email or push is handled elsewhere.
type Notification struct {
	ID         string           `json:"id" db:"id"`
	UserID     string           `json:"user_id" db:"user_id"`
	Type       NotificationType `json:"type" db:"type"`
	Title      string           `json:"title" db:"title"`
	Message    string           `json:"message" db:"message"`
	EntityType EntityKind       `json:"entity_type" db:"entity_type"`
	EntityID   string           `json:"entity_id" db:"entity_id"`
	IsRead     bool             `json:"is_read" db:"is_read"`
	ReadAt     *time.Time       `json:"read_at,omitempty" db:"read_at"`
	Timestamps
	SoftDelete
}
