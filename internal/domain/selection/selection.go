package selection

import (
	"errors"
	"time"

	"innkeep/internal/domain/shared/daterange"
)

var ErrEndWithoutStart = errors.New("selection: end requires a start")

// Phase is derived from which bounds of the state are set.
type Phase int

const (
	Empty Phase = iota
	StartSelected
	RangeComplete
)

func (p Phase) String() string {
	switch p {
	case StartSelected:
		return "start_selected"
	case RangeComplete:
		return "range_complete"
	default:
		return "empty"
	}
}

// State is the selection as seen by the calendar. Hover is presentational only.
type State struct {
	Start *time.Time
	End   *time.Time
	Hover *time.Time
}

func (s State) Phase() Phase {
	switch {
	case s.Start == nil:
		return Empty
	case s.End == nil:
		return StartSelected
	default:
		return RangeComplete
	}
}

// Range returns the committed bounds when the selection is complete.
func (s State) Range() (daterange.DateRange, bool) {
	if s.Phase() != RangeComplete {
		return daterange.DateRange{}, false
	}
	return daterange.DateRange{CheckIn: *s.Start, CheckOut: *s.End}, true
}

// Availability is the predicate the machine consults before accepting a click.
type Availability interface {
	IsUnavailable(at time.Time, asCheckout bool) bool
}

// Normalizer maps a raw instant onto the cell grid, e.g. a calendar day.
type Normalizer func(time.Time) time.Time

// Restore validates a state supplied by a client. Hover survives only while a
// start is selected without an end.
func Restore(s State) (State, error) {
	if s.Start == nil && s.End != nil {
		return State{}, ErrEndWithoutStart
	}
	out := State{Start: s.Start, End: s.End}
	if s.Start != nil && s.End == nil {
		out.Hover = s.Hover
	}
	if out.Start != nil && out.End != nil && out.End.Before(*out.Start) {
		out.Start, out.End = out.End, out.Start
	}
	return out, nil
}
