package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIntervalsOverlap(t *testing.T) {
	base := time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)
	at := func(minutes int) time.Time { return base.Add(time.Duration(minutes) * time.Minute) }

	tests := []struct {
		name           string
		s1, e1, s2, e2 time.Time
		want           bool
	}{
		{"partial overlap", at(0), at(60), at(30), at(90), true},
		{"contained", at(0), at(120), at(30), at(60), true},
		{"identical", at(0), at(60), at(0), at(60), true},
		{"back to back", at(0), at(60), at(60), at(120), false},
		{"back to back reversed", at(60), at(120), at(0), at(60), false},
		{"disjoint", at(0), at(30), at(90), at(120), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IntervalsOverlap(tt.s1, tt.e1, tt.s2, tt.e2))
			assert.Equal(t, tt.want, IntervalsOverlap(tt.s2, tt.e2, tt.s1, tt.e1))
		})
	}
}

func TestBooking_SetSlot(t *testing.T) {
	start := time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)
	b := &Booking{}
	b.SetSlot(start, 45)

	s, e := b.Interval()
	assert.Equal(t, start, s)
	assert.Equal(t, start.Add(45*time.Minute), e)

	other := &Booking{}
	other.SetSlot(start.Add(45*time.Minute), 60)
	assert.False(t, b.Overlaps(other))
}

func TestBookingStatus_Transitions(t *testing.T) {
	assert.True(t, BookingStatusPending.CanTransitionTo(BookingStatusApproved))
	assert.True(t, BookingStatusPending.CanTransitionTo(BookingStatusCancelled))
	assert.False(t, BookingStatusPending.CanTransitionTo(BookingStatusCompleted))
	assert.True(t, BookingStatusApproved.CanTransitionTo(BookingStatusCompleted))
	assert.False(t, BookingStatusApproved.CanTransitionTo(BookingStatusRejected))
	assert.True(t, BookingStatusCompleted.IsTerminal())
	assert.True(t, BookingStatusCancelled.IsTerminal())
	assert.True(t, BookingStatusRejected.IsTerminal())
}
