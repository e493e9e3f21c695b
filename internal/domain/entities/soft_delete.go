package entities

import "time"

// Timestamps are carried by every persisted entity
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Stamp sets both timestamps for a new record
func (t *Timestamps) Stamp(now time.Time) {
	t.CreatedAt = now
	t.UpdatedAt = now
}

// Touch records a mutating write. UpdatedAt never moves backwards.
func (t *Timestamps) Touch(now time.Time) {
	if now.After(t.UpdatedAt) {
		t.UpdatedAt = now
	}
}

// SoftDelete is the removal marker shared by all entities
type SoftDelete struct {
	IsDeleted bool       `json:"is_deleted" db:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// MarkDeleted flips the marker once. It reports false when the record was
// already deleted, in which case nothing changes.
func (s *SoftDelete) MarkDeleted(now time.Time) bool {
	if s.IsDeleted {
		return false
	}
	deletedAt := now
	s.IsDeleted = true
	s.DeletedAt = &deletedAt
	return true
}

// Live reports whether the record is visible to normal reads
func (s SoftDelete) Live() bool {
	return !s.IsDeleted
}

// EntityKind names a soft-deletable table for the audit path
type EntityKind string

const (
	EntityProperty     EntityKind = "property"
	EntityOffer        EntityKind = "offer"
	EntityBooking      EntityKind = "booking"
	EntityReview       EntityKind = "review"
	EntityFavorite     EntityKind = "favorite"
	EntityNotification EntityKind = "notification"
)

// ParseEntityKind validates a kind coming from the outside
func ParseEntityKind(s string) (EntityKind, bool) {
	switch k := EntityKind(s); k {
	case EntityProperty, EntityOffer, EntityBooking, EntityReview, EntityFavorite, EntityNotification:
		return k, true
	}
	return "", false
}

// DeletedRecord is one row returned by the audit listing
type DeletedRecord struct {
	Kind      EntityKind `json:"kind" db:"kind"`
	ID        string     `json:"id" db:"id"`
	DeletedAt time.Time  `json:"deleted_at" db:"deleted_at"`
}
