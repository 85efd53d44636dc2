package calendar

import (
	"context"
	"log/slog"
	"strings"

	"innkeep/internal/app/commands"
	"innkeep/internal/app/policies"
	"innkeep/internal/app/window"
	"innkeep/internal/domain/reservation"
)

const invalidateWindowsKey = "calendar.windows.invalidate"

// InvalidateWindowsCommand drops cached reservation windows after the booking
// service reports a change for the property.
type InvalidateWindowsCommand struct {
	EventID    string           `json:"event_id" validate:"required"`
	Mode       reservation.Mode `json:"mode" validate:"property_mode"`
	PropertyID string           `json:"property_id" validate:"required"`
}

func (c InvalidateWindowsCommand) Key() string { return invalidateWindowsKey }

type InvalidateResult struct {
	Duplicate bool `json:"duplicate"`
}

type InvalidateWindowsHandler struct {
	Cache *window.Cache
	// Inbox is optional; without it every delivery invalidates.
	Inbox  policies.Inbox
	Logger *slog.Logger
}

func (h *InvalidateWindowsHandler) Handle(ctx context.Context, cmd InvalidateWindowsCommand) (InvalidateResult, error) {
	ref := reservation.PropertyRef{Mode: cmd.Mode, ID: strings.TrimSpace(cmd.PropertyID)}
	if err := ref.Validate(); err != nil {
		return InvalidateResult{}, err
	}
	if h.Inbox != nil {
		seen, err := h.Inbox.Seen(ctx, cmd.EventID)
		if err != nil {
			return InvalidateResult{}, err
		}
		if seen {
			return InvalidateResult{Duplicate: true}, nil
		}
	}
	if h.Cache != nil {
		h.Cache.Invalidate(ref)
	}
	if h.Logger != nil {
		h.Logger.DebugContext(ctx, "reservation windows invalidated", "property", ref.String(), "event_id", cmd.EventID)
	}
	return InvalidateResult{}, nil
}

var _ commands.Handler[InvalidateWindowsCommand, InvalidateResult] = (*InvalidateWindowsHandler)(nil)
