package daterange

import (
	"errors"
	"time"
)

// DayLayout is the ISO calendar-day format used for index keys and query parameters.
const DayLayout = "2006-01-02"

var (
	ErrInvalidRange = errors.New("daterange: checkout must not precede checkin")
	ErrInvalidDay   = errors.New("daterange: invalid calendar day")
)

// DateRange represents a half-open interval [checkIn, checkOut)
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// New builds a range, swapping the bounds when they arrive reversed.
func New(checkIn, checkOut time.Time) (DateRange, error) {
	if checkIn.IsZero() || checkOut.IsZero() {
		return DateRange{}, ErrInvalidRange
	}
	if checkOut.Before(checkIn) {
		checkIn, checkOut = checkOut, checkIn
	}
	return DateRange{CheckIn: checkIn, CheckOut: checkOut}, nil
}

func (dr DateRange) Validate() error {
	if dr.CheckOut.IsZero() || dr.CheckIn.IsZero() {
		return ErrInvalidRange
	}
	if dr.CheckOut.Before(dr.CheckIn) {
		return ErrInvalidRange
	}
	return nil
}

// Nights counts whole calendar days between the check-in and check-out days.
func (dr DateRange) Nights() int {
	return DaysBetween(dr.CheckIn, dr.CheckOut)
}

func (dr DateRange) Duration() time.Duration {
	return dr.CheckOut.Sub(dr.CheckIn)
}

func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(dr.CheckOut)
}

// Adjacent reports a shared boundary: one range ends where the other begins.
func (dr DateRange) Adjacent(other DateRange) bool {
	return dr.CheckOut.Equal(other.CheckIn) || dr.CheckIn.Equal(other.CheckOut)
}

// Days converts both bounds to calendar days in their own location.
func (dr DateRange) Days() DateRange {
	return DateRange{CheckIn: Day(dr.CheckIn), CheckOut: Day(dr.CheckOut)}
}

// Day truncates t to midnight of its calendar day, keeping the location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DaysBetween returns the signed number of calendar days from a to b, ignoring DST shifts.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	from := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	to := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from) / (24 * time.Hour))
}

// Key formats the calendar day of t as YYYY-MM-DD.
func Key(t time.Time) string {
	return t.Format(DayLayout)
}

// ParseDay parses a YYYY-MM-DD value in loc.
func ParseDay(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DayLayout, value, loc)
	if err != nil {
		return time.Time{}, ErrInvalidDay
	}
	return t, nil
}

// EachDay calls fn for every calendar day in [from, to] inclusive. It stops early when fn returns false.
func EachDay(from, to time.Time, fn func(day time.Time) bool) {
	from, to = Day(from), Day(to)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if !fn(d) {
			return
		}
	}
}

// StartOfMonth returns the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// EndOfMonth returns the last day of t's month.
func EndOfMonth(t time.Time) time.Time {
	return StartOfMonth(t).AddDate(0, 1, -1)
}
