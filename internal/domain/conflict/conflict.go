package conflict

import (
	"time"

	"innkeep/internal/domain/reservation"
	"innkeep/internal/domain/shared/daterange"
)

const (
	DefaultMaxNights    = 30
	DefaultMinIncrement = 30 * time.Minute

	ConflictMessage = "Selected dates overlap with an existing booking. Please choose different dates."
)

// Policy configures the checks for one property mode.
type Policy struct {
	Mode         reservation.Mode
	MaxNights    int
	MinIncrement time.Duration
	// MaxGuests is the property capacity; zero disables the guest check.
	MaxGuests int
}

func DefaultPolicy(mode reservation.Mode) Policy {
	return Policy{Mode: mode, MaxNights: DefaultMaxNights, MinIncrement: DefaultMinIncrement}
}

// Request is the candidate booking being assessed.
type Request struct {
	Start  time.Time
	End    time.Time
	Guests int
	Guest  reservation.GuestProfile
}

// Assessment carries independent flags; any raised flag blocks proceeding
// except Turnover, which only notes a same-day changeover with a neighbour.
type Assessment struct {
	SameDay         bool     `json:"same_day"`
	Conflict        bool     `json:"conflict"`
	ConflictMessage string   `json:"conflict_message,omitempty"`
	ConflictingIDs  []string `json:"conflicting_ids,omitempty"`
	MaxDaysExceeded bool     `json:"max_days_exceeded"`
	BookingLocked   bool     `json:"booking_locked"`
	GuestsExceeded  bool     `json:"guests_exceeded"`
	Turnover        bool     `json:"turnover"`
	Nights          int      `json:"nights"`
}

func (a Assessment) CanProceed() bool {
	return !a.SameDay && !a.Conflict && !a.MaxDaysExceeded && !a.BookingLocked && !a.GuestsExceeded
}

// Detect evaluates req against the full reservation list of the property.
// Reversed bounds are swapped first.
func Detect(p Policy, req Request, reservations []reservation.Reservation, now time.Time) Assessment {
	p = p.withDefaults()
	start, end := req.Start, req.End
	if end.Before(start) {
		start, end = end, start
	}
	candidate := daterange.DateRange{CheckIn: start, CheckOut: end}
	if p.Mode == reservation.ModeRoom {
		candidate = candidate.Days()
	}

	var a Assessment
	switch p.Mode {
	case reservation.ModeVenue:
		a.SameDay = end.Sub(start) < p.MinIncrement
	default:
		a.Nights = candidate.Nights()
		a.SameDay = daterange.SameDay(start, end)
		a.MaxDaysExceeded = a.Nights > p.MaxNights
		a.BookingLocked = Locked(req.Guest, now)
	}

	for _, r := range reservations {
		if !r.Blocking() {
			continue
		}
		existing := daterange.DateRange{CheckIn: r.CheckIn, CheckOut: r.CheckOut}
		if p.Mode == reservation.ModeRoom {
			existing = existing.Days()
		}
		switch {
		case candidate.Overlaps(existing):
			a.Conflict = true
			a.ConflictingIDs = append(a.ConflictingIDs, r.ID)
		case candidate.Adjacent(existing):
			a.Turnover = true
		}
	}
	if a.Conflict {
		a.ConflictMessage = ConflictMessage
	}

	if p.MaxGuests > 0 && req.Guests > p.MaxGuests {
		a.GuestsExceeded = true
	}
	return a
}

// Locked reports the daily booking cap for unverified guests.
func Locked(guest reservation.GuestProfile, now time.Time) bool {
	if guest.Verified || guest.LastBookingDate.IsZero() {
		return false
	}
	return daterange.SameDay(guest.LastBookingDate.In(now.Location()), now)
}

func (p Policy) withDefaults() Policy {
	if p.Mode == "" {
		p.Mode = reservation.ModeRoom
	}
	if p.MaxNights <= 0 {
		p.MaxNights = DefaultMaxNights
	}
	if p.MinIncrement <= 0 {
		p.MinIncrement = DefaultMinIncrement
	}
	return p
}
