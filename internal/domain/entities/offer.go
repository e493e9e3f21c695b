package entities

import "time"

// OfferStatus represents the negotiation state of an offer
type OfferStatus string

const (
	OfferStatusPending   OfferStatus = "pending"
	OfferStatusCountered OfferStatus = "countered"
	OfferStatusAccepted  OfferStatus = "accepted"
	OfferStatusRejected  OfferStatus = "rejected"
	OfferStatusWithdrawn OfferStatus = "withdrawn"
)

var offerTransitions = map[OfferStatus][]OfferStatus{
	OfferStatusPending:   {OfferStatusCountered, OfferStatusAccepted, OfferStatusRejected, OfferStatusWithdrawn},
	OfferStatusCountered: {OfferStatusCountered, OfferStatusAccepted, OfferStatusRejected, OfferStatusWithdrawn},
}

// ActiveOfferStatuses are the non-terminal statuses
var ActiveOfferStatuses = []OfferStatus{OfferStatusPending, OfferStatusCountered}

// CanTransitionTo reports whether the state machine allows s -> next
func (s OfferStatus) CanTransitionTo(next OfferStatus) bool {
	for _, allowed := range offerTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s
func (s OfferStatus) IsTerminal() bool {
	return len(offerTransitions[s]) == 0
}

// IsActive reports whether s is pending or countered
func (s OfferStatus) IsActive() bool {
	return !s.IsTerminal()
}

// Offer represents a buyer's bid on a property
type Offer struct {
	ID         string      `json:"id" db:"id"`
	PropertyID string      `json:"property_id" db:"property_id"`
	BuyerID    string      `json:"buyer_id" db:"buyer_id"`
	Amount     float64     `json:"amount" db:"amount"`
	Message    string      `json:"message,omitempty" db:"message"`
	Status     OfferStatus `json:"status" db:"status"`
	ExpiresAt  time.Time   `json:"expires_at" db:"expires_at"`
	Timestamps
	SoftDelete
}

// IsExpired reports whether an active offer has outlived its expiry.
// Terminal offers never expire.
func (o *Offer) IsExpired(now time.Time) bool {
	return o.Status.IsActive() && !now.Before(o.ExpiresAt)
}
