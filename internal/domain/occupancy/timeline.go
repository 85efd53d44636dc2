package occupancy

import (
	"sort"
	"time"

	"innkeep/internal/domain/reservation"
	"innkeep/internal/domain/shared/daterange"
)

// Block is a blocking reservation interval on a venue timeline.
type Block struct {
	Range     daterange.DateRange
	Reference string
}

// Timeline answers availability questions at slot granularity for venues.
type Timeline struct {
	Blocks []Block
	Step   time.Duration
}

// NewTimeline keeps only the blocking reservations, ordered by start.
func NewTimeline(list []reservation.Reservation, step time.Duration) Timeline {
	if step <= 0 {
		step = DefaultSlotStep
	}
	blocks := make([]Block, 0, len(list))
	for _, r := range list {
		if !r.Blocking() || r.CheckIn.After(r.CheckOut) {
			continue
		}
		blocks = append(blocks, Block{
			Range:     daterange.DateRange{CheckIn: r.CheckIn, CheckOut: r.CheckOut},
			Reference: r.ID,
		})
	}
	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].Range.CheckIn.Before(blocks[j].Range.CheckIn)
	})
	return Timeline{Blocks: blocks, Step: step}
}

// CanReserve reports whether r overlaps no block.
func (t Timeline) CanReserve(r daterange.DateRange) bool {
	for _, block := range t.Blocks {
		if block.Range.Overlaps(r) {
			return false
		}
	}
	return true
}

// IsUnavailable decides whether at can start (asEnd false) or end (asEnd true)
// a venue booking. Instants before now, truncated to the slot step, are never
// available. A start is blocked inside [in, out) of a block; an end is blocked
// inside (in, out], so ending exactly when the next booking starts is allowed.
func (t Timeline) IsUnavailable(at time.Time, asEnd bool, now time.Time) bool {
	if at.Before(truncate(now, t.step())) {
		return true
	}
	for _, block := range t.Blocks {
		in, out := block.Range.CheckIn, block.Range.CheckOut
		if asEnd {
			if at.After(in) && !at.After(out) {
				return true
			}
			continue
		}
		if !at.Before(in) && at.Before(out) {
			return true
		}
	}
	return false
}

// Predicate binds now so the timeline can drive a selection machine.
func (t Timeline) Predicate(now time.Time) SlotPredicate {
	return SlotPredicate{Timeline: t, Now: now}
}

func (t Timeline) step() time.Duration {
	if t.Step <= 0 {
		return DefaultSlotStep
	}
	return t.Step
}

// SlotPredicate is a Timeline evaluated against a fixed "now".
type SlotPredicate struct {
	Timeline Timeline
	Now      time.Time
}

func (p SlotPredicate) IsUnavailable(at time.Time, asEnd bool) bool {
	return p.Timeline.IsUnavailable(at, asEnd, p.Now)
}

// truncate rounds t down to a multiple of step within its own day and location.
func truncate(t time.Time, step time.Duration) time.Time {
	day := daterange.Day(t)
	offset := t.Sub(day)
	return day.Add(offset - offset%step)
}

// Truncate rounds t down to the slot grid of step.
func Truncate(t time.Time, step time.Duration) time.Time {
	if step <= 0 {
		step = DefaultSlotStep
	}
	return truncate(t, step)
}
