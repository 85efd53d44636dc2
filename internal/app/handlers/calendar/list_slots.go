package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"innkeep/internal/app/dto"
	"innkeep/internal/app/handlers/support"
	"innkeep/internal/app/policies"
	"innkeep/internal/app/queries"
	"innkeep/internal/app/window"
	"innkeep/internal/domain/occupancy"
	"innkeep/internal/domain/reservation"
	"innkeep/internal/domain/shared/daterange"
)

const listVenueSlotsKey = "calendar.venue.slots"

var ErrNotVenue = errors.New("calendar: time slots exist for venues only")

type ListVenueSlotsQuery struct {
	Mode       reservation.Mode `json:"mode" validate:"property_mode"`
	PropertyID string           `json:"property_id" validate:"required"`
	Day        time.Time        `json:"day" validate:"required"`
	Duration   time.Duration    `json:"duration" validate:"gte=0"`
}

func (q ListVenueSlotsQuery) Key() string { return listVenueSlotsKey }

type ListVenueSlotsHandler struct {
	Loader   support.Loader
	Settings support.Settings
	Clock    policies.Clock
}

func (h *ListVenueSlotsHandler) Handle(ctx context.Context, q ListVenueSlotsQuery) (dto.SlotList, error) {
	if q.Mode != reservation.ModeVenue {
		return dto.SlotList{}, ErrNotVenue
	}
	ref := reservation.PropertyRef{Mode: q.Mode, ID: strings.TrimSpace(q.PropertyID)}
	if err := ref.Validate(); err != nil {
		return dto.SlotList{}, err
	}
	loc := h.Settings.Loc()
	day := daterange.Day(q.Day.In(loc))
	duration := q.Duration
	if duration <= 0 {
		duration = time.Hour
	}

	list, err := h.Loader.Window(ctx, window.KeyFor(ref, day))
	if err != nil {
		return dto.SlotList{}, fmt.Errorf("%w: %w", ErrWindowUnavailable, err)
	}
	hours := h.Settings.OpeningHours()
	tl := occupancy.NewTimeline(list, hours.Step)
	now := time.Now()
	if h.Clock != nil {
		now = h.Clock.Now()
	}

	slots := tl.AvailableSlots(day, hours, duration, now.In(loc))
	out := dto.SlotList{
		PropertyID: ref.ID,
		Day:        daterange.Key(day),
		Duration:   duration.String(),
		Slots:      make([]dto.Slot, 0, len(slots)),
	}
	for _, s := range slots {
		out.Slots = append(out.Slots, dto.Slot{
			Start:     s.Start,
			End:       s.End,
			Label:     s.Start.Format("3:04 PM"),
			Available: s.Available,
		})
	}
	return out, nil
}

var _ queries.Handler[ListVenueSlotsQuery, dto.SlotList] = (*ListVenueSlotsHandler)(nil)
