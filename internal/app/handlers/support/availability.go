package support

import (
	"time"

	"innkeep/internal/domain/occupancy"
	"innkeep/internal/domain/reservation"
	"innkeep/internal/domain/selection"
)

// Availability builds the predicate the selection machine uses for mode.
func (s Settings) Availability(mode reservation.Mode, list []reservation.Reservation, now time.Time) selection.Availability {
	now = now.In(s.Loc())
	if mode == reservation.ModeVenue {
		return occupancy.NewTimeline(list, s.hours().Step).Predicate(now)
	}
	return occupancy.Build(list).Predicate(now)
}

// VenueDayFull reports whether no start slot of day is bookable for one step.
func (s Settings) VenueDayFull(tl occupancy.Timeline, day, now time.Time) bool {
	h := s.hours()
	for _, slot := range tl.AvailableSlots(day, h, h.Step, now) {
		if slot.Available {
			return false
		}
	}
	return true
}
