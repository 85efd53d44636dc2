package window

import (
	"fmt"
	"time"

	"innkeep/internal/domain/reservation"
	"innkeep/internal/domain/shared/daterange"
)

// Key identifies one reservation fetch: a property and the two-month window shown.
type Key struct {
	Property reservation.PropertyRef
	Start    time.Time
	End      time.Time
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s", k.Property, daterange.Key(k.Start), daterange.Key(k.End))
}

// For returns the window displayed for month: its first day through the last
// day of the following month.
func For(month time.Time) (time.Time, time.Time) {
	start := daterange.StartOfMonth(month)
	return start, daterange.EndOfMonth(start.AddDate(0, 1, 0))
}

func KeyFor(ref reservation.PropertyRef, month time.Time) Key {
	start, end := For(month)
	return Key{Property: ref, Start: start, End: end}
}

// Next is the window one month ahead, the one worth prefetching.
func (k Key) Next() Key {
	return KeyFor(k.Property, k.Start.AddDate(0, 1, 0))
}

// Contains reports whether the whole [from, to] span falls inside the window.
func (k Key) Contains(from, to time.Time) bool {
	return !daterange.Day(from).Before(k.Start) && !daterange.Day(to).After(k.End)
}
