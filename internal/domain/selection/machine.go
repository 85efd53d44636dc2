package selection

import (
	"time"

	"innkeep/internal/domain/shared/daterange"
)

// Machine drives the click/hover selection of a stay or venue booking.
// Invalid events leave the state untouched.
type Machine struct {
	avail     Availability
	normalize Normalizer
	state     State
}

// New creates a machine in the Empty phase. A nil normalizer truncates to the
// calendar day.
func New(avail Availability, normalize Normalizer) *Machine {
	if normalize == nil {
		normalize = daterange.Day
	}
	return &Machine{avail: avail, normalize: normalize}
}

// Resume creates a machine continuing from a previously restored state.
func Resume(avail Availability, normalize Normalizer, s State) (*Machine, error) {
	restored, err := Restore(s)
	if err != nil {
		return nil, err
	}
	m := New(avail, normalize)
	m.state = restored
	return m, nil
}

func (m *Machine) State() State {
	return m.state
}

// Click applies a cell click.
func (m *Machine) Click(at time.Time) State {
	at = m.normalize(at)
	switch m.state.Phase() {
	case StartSelected:
		if m.avail.IsUnavailable(at, true) {
			return m.state
		}
		start := *m.state.Start
		if at.Before(start) {
			m.state = State{Start: ptr(at), End: ptr(start)}
		} else {
			m.state = State{Start: ptr(start), End: ptr(at)}
		}
	default:
		if m.avail.IsUnavailable(at, false) {
			return m.state
		}
		m.state = State{Start: ptr(at)}
	}
	return m.state
}

// Hover records the pointer position while the end is still open. A cell
// that cannot be a checkout clears the hover.
func (m *Machine) Hover(at time.Time) State {
	if m.state.Phase() != StartSelected {
		return m.state
	}
	at = m.normalize(at)
	if m.avail.IsUnavailable(at, true) {
		m.state.Hover = nil
		return m.state
	}
	m.state.Hover = ptr(at)
	return m.state
}

// Leave clears the hover.
func (m *Machine) Leave() State {
	m.state.Hover = nil
	return m.state
}

// Preview returns the range to highlight: the committed range when complete,
// otherwise the start and hovered cell in order.
func (m *Machine) Preview() (daterange.DateRange, bool) {
	if r, ok := m.state.Range(); ok {
		return r, true
	}
	if m.state.Phase() != StartSelected || m.state.Hover == nil {
		return daterange.DateRange{}, false
	}
	start, hover := *m.state.Start, *m.state.Hover
	if hover.Before(start) {
		start, hover = hover, start
	}
	return daterange.DateRange{CheckIn: start, CheckOut: hover}, true
}

func ptr(t time.Time) *time.Time {
	return &t
}
