package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"innkeep/internal/app/commands"
	"innkeep/internal/app/dto"
	"innkeep/internal/app/handlers/support"
	"innkeep/internal/app/policies"
	"innkeep/internal/domain/reservation"
	"innkeep/internal/domain/selection"
)

const applySelectionKey = "calendar.selection.apply"

const (
	EventClick = "click"
	EventHover = "hover"
	EventLeave = "leave"
)

var ErrUnknownEvent = errors.New("calendar: unknown selection event")

type SelectionEvent struct {
	Kind string    `json:"kind" validate:"required,oneof=click hover leave"`
	At   time.Time `json:"at" validate:"required_unless=Kind leave"`
}

type ApplySelectionCommand struct {
	Mode       reservation.Mode `json:"mode" validate:"property_mode"`
	PropertyID string           `json:"property_id" validate:"required"`
	GuestID    string           `json:"guest_id"`
	State      dto.Selection    `json:"state"`
	Event      SelectionEvent   `json:"event"`
}

func (c ApplySelectionCommand) Key() string { return applySelectionKey }

func (c ApplySelectionCommand) Ref() reservation.PropertyRef {
	return reservation.PropertyRef{Mode: c.Mode, ID: strings.TrimSpace(c.PropertyID)}
}

// ApplySelectionHandler advances a client-held selection by one UI event and
// remembers the result as the guest's preference.
type ApplySelectionHandler struct {
	Loader      support.Loader
	Preferences policies.PreferenceStore
	Settings    support.Settings
	Clock       policies.Clock
	Logger      *slog.Logger
}

func (h *ApplySelectionHandler) Handle(ctx context.Context, cmd ApplySelectionCommand) (*dto.SelectionResult, error) {
	ref := cmd.Ref()
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	state, err := selection.Restore(cmd.State.State())
	if err != nil {
		return nil, err
	}
	now := h.now().In(h.Settings.Loc())

	var avail selection.Availability = noAvailability{}
	if cmd.Event.Kind != EventLeave {
		from, to := span(state, cmd.Event.At)
		list, err := h.Loader.Covering(ctx, ref, from, to)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrWindowUnavailable, err)
		}
		avail = h.Settings.Availability(ref.Mode, list, now)
	}
	m, err := selection.Resume(avail, h.Settings.Normalizer(ref.Mode), state)
	if err != nil {
		return nil, err
	}
	switch cmd.Event.Kind {
	case EventClick:
		state = m.Click(cmd.Event.At)
		h.remember(ctx, cmd.GuestID, ref, state)
	case EventHover:
		state = m.Hover(cmd.Event.At)
	case EventLeave:
		state = m.Leave()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, cmd.Event.Kind)
	}

	preview, ok := m.Preview()
	out := &dto.SelectionResult{Selection: dto.MapSelection(state), Preview: dto.MapRange(preview, ok)}
	if r, complete := state.Range(); complete && cmd.Event.Kind == EventClick {
		detail, err := h.Loader.Property(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrWindowUnavailable, err)
		}
		eval, err := support.Evaluate(ctx, h.Loader, h.Settings, detail, r, support.EvalRequest{GuestID: cmd.GuestID}, now)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrWindowUnavailable, err)
		}
		assessment, price := dto.MapAssessment(eval.Assessment), dto.MapPrice(eval.Price)
		out.Assessment = &assessment
		out.Price = &price
	}
	return out, nil
}

func (h *ApplySelectionHandler) remember(ctx context.Context, guestID string, ref reservation.PropertyRef, s selection.State) {
	if h.Preferences == nil || strings.TrimSpace(guestID) == "" || s.Start == nil {
		return
	}
	pref := policies.Preference{Arrival: *s.Start}
	if s.End != nil {
		pref.Departure = *s.End
	}
	if err := h.Preferences.Save(ctx, guestID, ref, pref); err != nil {
		h.logger().WarnContext(ctx, "preference save failed", "property", ref.String(), "error", err)
	}
}

func (h *ApplySelectionHandler) now() time.Time {
	if h.Clock == nil {
		return time.Now()
	}
	return h.Clock.Now()
}

func (h *ApplySelectionHandler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

// span covers the selected start and the event position.
func span(s selection.State, at time.Time) (time.Time, time.Time) {
	from, to := at, at
	if s.Start != nil {
		if s.Start.Before(from) {
			from = *s.Start
		}
		if s.Start.After(to) {
			to = *s.Start
		}
	}
	return from, to
}

// noAvailability is used for leave events, which never consult availability.
type noAvailability struct{}

func (noAvailability) IsUnavailable(time.Time, bool) bool { return true }

var _ commands.Handler[ApplySelectionCommand, *dto.SelectionResult] = (*ApplySelectionHandler)(nil)
