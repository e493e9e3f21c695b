package entities

import "time"

// BookingStatus represents the state of a tour request
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusApproved  BookingStatus = "approved"
	BookingStatusRejected  BookingStatus = "rejected"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:  {BookingStatusApproved, BookingStatusRejected, BookingStatusCancelled},
	BookingStatusApproved: {BookingStatusCompleted, BookingStatusCancelled},
}

// CanTransitionTo reports whether the state machine allows s -> next
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s
func (s BookingStatus) IsTerminal() bool {
	return len(bookingTransitions[s]) == 0
}

// Booking represents a property tour request
type Booking struct {
	ID              string        `json:"id" db:"id"`
	PropertyID      string        `json:"property_id" db:"property_id"`
	BuyerID         string        `json:"buyer_id" db:"buyer_id"`
	ScheduledDate   time.Time     `json:"scheduled_date" db:"scheduled_date"`
	DurationMinutes int           `json:"duration_minutes" db:"duration_minutes"`
	EndsAt          time.Time     `json:"ends_at" db:"ends_at"`
	Note            string        `json:"note,omitempty" db:"note"`
	Status          BookingStatus `json:"status" db:"status"`
	Timestamps
	SoftDelete
}

// SetSlot sets the start and derives the end of the tour window
func (b *Booking) SetSlot(start time.Time, durationMinutes int) {
	b.ScheduledDate = start
	b.DurationMinutes = durationMinutes
	b.EndsAt = start.Add(time.Duration(durationMinutes) * time.Minute)
}

// Interval returns the half-open window [ScheduledDate, EndsAt)
func (b *Booking) Interval() (time.Time, time.Time) {
	return b.ScheduledDate, b.EndsAt
}

// Overlaps reports whether b and other share any instant
func (b *Booking) Overlaps(other *Booking) bool {
	return IntervalsOverlap(b.ScheduledDate, b.EndsAt, other.ScheduledDate, other.EndsAt)
}

// IntervalsOverlap reports whether [s1,e1) and [s2,e2) overlap.
// Touching boundaries do not overlap.
func IntervalsOverlap(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}
