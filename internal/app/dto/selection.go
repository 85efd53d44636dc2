package dto

import (
	"time"

	"innkeep/internal/domain/selection"
	"innkeep/internal/domain/shared/daterange"
)

type Selection struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
	Hover *time.Time `json:"hover,omitempty"`
	Phase string     `json:"phase"`
}

type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func MapSelection(s selection.State) Selection {
	return Selection{Start: s.Start, End: s.End, Hover: s.Hover, Phase: s.Phase().String()}
}

// State converts a client payload back into a selection state.
func (s Selection) State() selection.State {
	return selection.State{Start: s.Start, End: s.End, Hover: s.Hover}
}

func MapRange(r daterange.DateRange, ok bool) *Range {
	if !ok {
		return nil
	}
	return &Range{Start: r.CheckIn, End: r.CheckOut}
}
