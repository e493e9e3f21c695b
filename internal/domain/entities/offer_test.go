package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOfferStatus_Transitions(t *testing.T) {
	tests := []struct {
		from OfferStatus
		to   OfferStatus
		want bool
	}{
		{OfferStatusPending, OfferStatusCountered, true},
		{OfferStatusPending, OfferStatusAccepted, true},
		{OfferStatusPending, OfferStatusRejected, true},
		{OfferStatusPending, OfferStatusWithdrawn, true},
		{OfferStatusPending, OfferStatusPending, false},
		{OfferStatusCountered, OfferStatusCountered, true},
		{OfferStatusCountered, OfferStatusAccepted, true},
		{OfferStatusCountered, OfferStatusWithdrawn, true},
		{OfferStatusAccepted, OfferStatusRejected, false},
		{OfferStatusRejected, OfferStatusCountered, false},
		{OfferStatusWithdrawn, OfferStatusAccepted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestOfferStatus_Terminal(t *testing.T) {
	assert.False(t, OfferStatusPending.IsTerminal())
	assert.False(t, OfferStatusCountered.IsTerminal())
	assert.True(t, OfferStatusAccepted.IsTerminal())
	assert.True(t, OfferStatusRejected.IsTerminal())
	assert.True(t, OfferStatusWithdrawn.IsTerminal())
}

func TestOffer_IsExpired(t *testing.T) {
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	offer := &Offer{Status: OfferStatusPending, ExpiresAt: now}

	assert.True(t, offer.IsExpired(now))
	assert.False(t, offer.IsExpired(now.Add(-time.Second)))

	offer.Status = OfferStatusAccepted
	assert.False(t, offer.IsExpired(now.Add(time.Hour)))
}
