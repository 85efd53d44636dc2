package occupancy

import (
	"errors"
	"time"

	"innkeep/internal/domain/shared/daterange"
)

const DefaultSlotStep = 30 * time.Minute

var ErrInvalidHours = errors.New("occupancy: opening hours must be a non-empty range")

// Hours describes when a venue can start bookings on a given day.
// Close is the last start slot, inclusive.
type Hours struct {
	Open  time.Duration
	Close time.Duration
	Step  time.Duration
}

// DefaultHours is 07:00 to 22:00 in 30 minute steps.
func DefaultHours() Hours {
	return Hours{Open: 7 * time.Hour, Close: 22 * time.Hour, Step: DefaultSlotStep}
}

func (h Hours) Validate() error {
	if h.Step <= 0 || h.Close < h.Open || h.Close >= 24*time.Hour || h.Open < 0 {
		return ErrInvalidHours
	}
	return nil
}

// Slots lists every start slot of day.
func Slots(day time.Time, h Hours) []time.Time {
	if h.Validate() != nil {
		return nil
	}
	base := daterange.Day(day)
	slots := make([]time.Time, 0, int((h.Close-h.Open)/h.Step)+1)
	for off := h.Open; off <= h.Close; off += h.Step {
		slots = append(slots, base.Add(off))
	}
	return slots
}

// Slot is a start time together with its availability for a given duration.
type Slot struct {
	Start     time.Time
	End       time.Time
	Available bool
}

// AvailableSlots evaluates every start slot of day for a booking of duration.
// A slot is unavailable when it is in the past or [start, start+duration)
// overlaps a blocking reservation.
func (t Timeline) AvailableSlots(day time.Time, h Hours, duration time.Duration, now time.Time) []Slot {
	if duration <= 0 {
		duration = time.Hour
	}
	starts := Slots(day, h)
	out := make([]Slot, 0, len(starts))
	for _, s := range starts {
		r := daterange.DateRange{CheckIn: s, CheckOut: s.Add(duration)}
		available := !s.Before(truncate(now, t.step())) && t.CanReserve(r)
		out = append(out, Slot{Start: s, End: r.CheckOut, Available: available})
	}
	return out
}
