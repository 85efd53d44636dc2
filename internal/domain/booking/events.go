package booking

import (
	"time"

	"innkeep/internal/domain/reservation"
)

type RangeCommitted struct {
	CommitmentID CommitmentID            `json:"commitment_id"`
	Property     reservation.PropertyRef `json:"property"`
	GuestID      string                  `json:"guest_id,omitempty"`
	Start        time.Time               `json:"start"`
	End          time.Time               `json:"end"`
	TotalMinor   int64                   `json:"total_minor"`
	Currency     string                  `json:"currency"`
	DiscountType string                  `json:"discount_type"`
	At           time.Time               `json:"at"`
}

func (e RangeCommitted) EventName() string     { return "booking.range_committed" }
func (e RangeCommitted) AggregateID() string   { return string(e.CommitmentID) }
func (e RangeCommitted) OccurredAt() time.Time { return e.At }
