package occupancy

import (
	"time"

	"innkeep/internal/domain/reservation"
	"innkeep/internal/domain/shared/daterange"
)

// Entry is the occupancy of a single calendar day.
type Entry struct {
	Status        reservation.Status
	ReservationID string
}

func (e Entry) Blocking() bool {
	return e.Status.Blocking()
}

// Index is a per-day lookup of reservation status for the loaded window.
// It is derived data: rebuild it whenever the reservation list changes.
type Index struct {
	days         map[string]Entry
	reservations map[string]reservation.Reservation
}

// Build marks every day in [CheckIn, CheckOut] of every reservation, in slice
// order. Overlapping reservations are tolerated; the later one wins the day.
// Non-blocking reservations are indexed too so checkout logic can see them.
func Build(list []reservation.Reservation) Index {
	idx := Index{
		days:         make(map[string]Entry),
		reservations: make(map[string]reservation.Reservation, len(list)),
	}
	for _, r := range list {
		if r.CheckIn.IsZero() || r.CheckOut.IsZero() || r.CheckIn.After(r.CheckOut) {
			continue
		}
		idx.reservations[r.ID] = r
		entry := Entry{Status: r.Status, ReservationID: r.ID}
		daterange.EachDay(r.CheckIn, r.CheckOut, func(day time.Time) bool {
			idx.days[daterange.Key(day)] = entry
			return true
		})
	}
	return idx
}

// Lookup returns the entry indexed for day, if any.
func (idx Index) Lookup(day time.Time) (Entry, bool) {
	e, ok := idx.days[daterange.Key(day)]
	return e, ok
}

// Reservation resolves an indexed reservation by id.
func (idx Index) Reservation(id string) (reservation.Reservation, bool) {
	r, ok := idx.reservations[id]
	return r, ok
}

func (idx Index) Len() int {
	return len(idx.days)
}

// Equal reports whether both indexes hold the same per-day mapping.
func (idx Index) Equal(other Index) bool {
	if len(idx.days) != len(other.days) {
		return false
	}
	for k, v := range idx.days {
		if o, ok := other.days[k]; !ok || o != v {
			return false
		}
	}
	return true
}

// IsUnavailable decides whether day can be used as a stay boundary.
//
// Days before today are never available. As a check-in day, a day is unavailable
// when a blocking reservation holds it. As a checkout day, the check-in day of
// the holding reservation is allowed (the room turns over the same day) while its
// interior and last day are not. A blocking entry whose reservation cannot be
// resolved is treated as unavailable.
func (idx Index) IsUnavailable(day time.Time, asCheckout bool, today time.Time) bool {
	if daterange.Day(day).Before(daterange.Day(today)) {
		return true
	}
	entry, ok := idx.Lookup(day)
	if !ok || !entry.Blocking() {
		return false
	}
	if !asCheckout {
		return true
	}
	r, ok := idx.reservations[entry.ReservationID]
	if !ok {
		return true
	}
	return !daterange.SameDay(day, r.CheckIn)
}

// Predicate binds today so the index can drive a selection machine.
func (idx Index) Predicate(today time.Time) DayPredicate {
	return DayPredicate{Index: idx, Today: today}
}

// DayPredicate is an Index evaluated against a fixed "today".
type DayPredicate struct {
	Index Index
	Today time.Time
}

func (p DayPredicate) IsUnavailable(day time.Time, asCheckout bool) bool {
	return p.Index.IsUnavailable(day, asCheckout, p.Today)
}
