package support

import (
	"time"

	"innkeep/internal/domain/conflict"
	"innkeep/internal/domain/occupancy"
	"innkeep/internal/domain/pricing"
	"innkeep/internal/domain/reservation"
	"innkeep/internal/domain/shared/daterange"
)

// Settings are the booking rules shared by calendar, quote and commit handlers.
type Settings struct {
	MaxNights  int
	Hours      occupancy.Hours
	Calculator pricing.Calculator
	Location   *time.Location
}

func (s Settings) Policy(detail reservation.PropertyDetail) conflict.Policy {
	p := conflict.DefaultPolicy(detail.Ref.Mode)
	if s.MaxNights > 0 {
		p.MaxNights = s.MaxNights
	}
	if step := s.hours().Step; step > 0 {
		p.MinIncrement = step
	}
	p.MaxGuests = detail.MaxGuests
	return p
}

func (s Settings) hours() occupancy.Hours {
	if s.Hours.Validate() != nil {
		return occupancy.DefaultHours()
	}
	return s.Hours
}

func (s Settings) OpeningHours() occupancy.Hours {
	return s.hours()
}

func (s Settings) Loc() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// Normalizer snaps instants to the cell grid of mode.
func (s Settings) Normalizer(mode reservation.Mode) func(time.Time) time.Time {
	loc := s.Loc()
	if mode == reservation.ModeVenue {
		step := s.hours().Step
		return func(t time.Time) time.Time { return occupancy.Truncate(t.In(loc), step) }
	}
	return func(t time.Time) time.Time { return daterange.Day(t.In(loc)) }
}

// Quote prices [start, end) for detail.
func (s Settings) Quote(detail reservation.PropertyDetail, start, end time.Time, guest reservation.GuestProfile, promoPercent int) (pricing.Result, error) {
	units := pricing.Units(detail.Ref.Mode, daterange.DateRange{CheckIn: start, CheckOut: end})
	return s.Calculator.QuoteDisplay(detail.BasePrice, units, pricing.EligibilityFor(guest, promoPercent))
}
