package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"innkeep/internal/app/dto"
	"innkeep/internal/app/handlers/support"
	"innkeep/internal/app/policies"
	"innkeep/internal/app/queries"
	"innkeep/internal/app/window"
	"innkeep/internal/domain/occupancy"
	"innkeep/internal/domain/reservation"
	"innkeep/internal/domain/selection"
	"innkeep/internal/domain/shared/daterange"
)

const (
	getCalendarKey = "calendar.get"

	StatusSuccess = "success"
	StatusError   = "error"
)

var ErrWindowUnavailable = errors.New("calendar: reservations unavailable")

type GetCalendarQuery struct {
	Mode       reservation.Mode `json:"mode" validate:"property_mode"`
	PropertyID string           `json:"property_id" validate:"required"`
	Month      time.Time        `json:"month"`
	Arrival    string           `json:"arrival"`
	Departure  string           `json:"departure"`
	Hover      string           `json:"hover"`
	GuestID    string           `json:"guest_id"`
}

func (q GetCalendarQuery) Key() string { return getCalendarKey }

func (q GetCalendarQuery) Ref() reservation.PropertyRef {
	return reservation.PropertyRef{Mode: q.Mode, ID: strings.TrimSpace(q.PropertyID)}
}

type GetCalendarHandler struct {
	Loader      support.Loader
	Preferences policies.PreferenceStore
	Settings    support.Settings
	Clock       policies.Clock
	Logger      *slog.Logger
}

func (h *GetCalendarHandler) Handle(ctx context.Context, q GetCalendarQuery) (dto.Calendar, error) {
	ref := q.Ref()
	if err := ref.Validate(); err != nil {
		return dto.Calendar{}, err
	}
	loc := h.Settings.Loc()
	now := h.now().In(loc)

	detail, err := h.Loader.Property(ctx, ref)
	if err != nil {
		return dto.Calendar{Status: StatusError}, fmt.Errorf("%w: %w", ErrWindowUnavailable, err)
	}

	month := q.Month
	if month.IsZero() {
		month = now
	}
	key := window.KeyFor(ref, month.In(loc))
	list, err := h.Loader.Window(ctx, key)
	if err != nil {
		return dto.Calendar{Status: StatusError}, fmt.Errorf("%w: %w", ErrWindowUnavailable, err)
	}
	if h.Loader.Cache != nil {
		h.Loader.Cache.Prefetch(key.Next())
	}

	avail := h.Settings.Availability(ref.Mode, list, now)
	machine := selection.New(avail, h.Settings.Normalizer(ref.Mode))
	h.preselect(ctx, machine, q, ref)

	state := machine.State()
	preview, hasPreview := machine.Preview()
	out := dto.Calendar{
		Status:      StatusSuccess,
		Property:    mapProperty(detail),
		WindowStart: daterange.Key(key.Start),
		WindowEnd:   daterange.Key(key.End),
		Today:       daterange.Key(now),
		Selection:   dto.MapSelection(state),
		Preview:     dto.MapRange(preview, hasPreview),
	}
	out.Days = h.days(ref.Mode, key, list, state, preview, hasPreview, now)

	if r, ok := state.Range(); ok {
		eval, err := support.Evaluate(ctx, h.Loader, h.Settings, detail, r, support.EvalRequest{GuestID: q.GuestID}, now)
		if err != nil {
			return dto.Calendar{Status: StatusError}, fmt.Errorf("%w: %w", ErrWindowUnavailable, err)
		}
		assessment, price := dto.MapAssessment(eval.Assessment), dto.MapPrice(eval.Price)
		out.Assessment = &assessment
		out.Price = &price
	}
	return out, nil
}

func (h *GetCalendarHandler) days(mode reservation.Mode, key window.Key, list []reservation.Reservation, state selection.State, preview daterange.DateRange, hasPreview bool, now time.Time) []dto.CalendarDay {
	idx := occupancy.Build(list)
	tl := occupancy.NewTimeline(list, h.Settings.OpeningHours().Step)
	committed, complete := state.Range()

	var days []dto.CalendarDay
	daterange.EachDay(key.Start, key.End, func(day time.Time) bool {
		cell := dto.CalendarDay{Date: daterange.Key(day), State: dto.DayAvailable}
		if e, ok := idx.Lookup(day); ok {
			cell.Status = string(e.Status)
		}
		switch mode {
		case reservation.ModeVenue:
			full := h.Settings.VenueDayFull(tl, day, now)
			cell.UnavailableStart, cell.UnavailableEnd = full, full
		default:
			cell.UnavailableStart = idx.IsUnavailable(day, false, now)
			cell.UnavailableEnd = idx.IsUnavailable(day, true, now)
		}
		switch {
		case daterange.Day(day).Before(daterange.Day(now)):
			cell.State = dto.DayPast
		case cell.UnavailableStart:
			cell.State = dto.DayBooked
		}
		if state.Start != nil && daterange.SameDay(*state.Start, day) || state.End != nil && daterange.SameDay(*state.End, day) {
			cell.Selected = true
		}
		cell.InRange = complete && withinDays(committed, day)
		cell.InPreview = hasPreview && !complete && withinDays(preview, day)
		days = append(days, cell)
		return true
	})
	return days
}

func withinDays(r daterange.DateRange, day time.Time) bool {
	d := daterange.Day(day)
	return !d.Before(daterange.Day(r.CheckIn)) && !d.After(daterange.Day(r.CheckOut))
}

// preselect applies arrival/departure/hover from the request, falling back to
// the stored preference. Malformed values are logged and ignored.
func (h *GetCalendarHandler) preselect(ctx context.Context, m *selection.Machine, q GetCalendarQuery, ref reservation.PropertyRef) {
	loc := h.Settings.Loc()
	arrival, okA := h.parseParam("arrival", q.Arrival, ref.Mode, loc)
	departure, okD := h.parseParam("departure", q.Departure, ref.Mode, loc)

	if !okA && q.GuestID != "" && h.Preferences != nil {
		pref, found, err := h.Preferences.Load(ctx, q.GuestID, ref)
		switch {
		case err != nil:
			h.logger().WarnContext(ctx, "preference load failed", "property", ref.String(), "error", err)
		case found:
			arrival, okA = pref.Arrival, !pref.Arrival.IsZero()
			departure, okD = pref.Departure, !pref.Departure.IsZero()
		}
	}
	if !okA {
		return
	}
	m.Click(arrival)
	if okD {
		m.Click(departure)
	}
	if hover, ok := h.parseParam("hover", q.Hover, ref.Mode, loc); ok {
		m.Hover(hover)
	}
}

func (h *GetCalendarHandler) parseParam(name, raw string, mode reservation.Mode, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	t, err := ParseInstant(raw, mode, loc)
	if err != nil {
		h.logger().Warn("ignoring malformed date parameter", "param", name, "value", raw, "error", err)
		return time.Time{}, false
	}
	return t, true
}

func (h *GetCalendarHandler) now() time.Time {
	if h.Clock == nil {
		return time.Now()
	}
	return h.Clock.Now()
}

func (h *GetCalendarHandler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

func mapProperty(d reservation.PropertyDetail) dto.Property {
	return dto.Property{
		ID:        d.Ref.ID,
		Mode:      string(d.Ref.Mode),
		Name:      d.Name,
		BasePrice: d.BasePrice,
		MaxGuests: d.MaxGuests,
		Amenities: d.Amenities,
		Images:    d.Images,
	}
}

var _ queries.Handler[GetCalendarQuery, dto.Calendar] = (*GetCalendarHandler)(nil)
