package calendar

import (
	"errors"
	"strings"
	"time"

	"innkeep/internal/domain/reservation"
	"innkeep/internal/domain/shared/daterange"
)

var ErrMalformedInstant = errors.New("calendar: malformed date")

var venueLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04"}

// ParseInstant reads a day (rooms) or a day with time (venues) in loc.
func ParseInstant(raw string, mode reservation.Mode, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if loc == nil {
		loc = time.UTC
	}
	if mode == reservation.ModeVenue {
		for _, layout := range venueLayouts {
			if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
				return t.In(loc), nil
			}
		}
	}
	if t, err := daterange.ParseDay(raw, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return daterange.Day(t.In(loc)), nil
	}
	return time.Time{}, ErrMalformedInstant
}
