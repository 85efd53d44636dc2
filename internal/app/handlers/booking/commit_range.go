package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"innkeep/internal/app/commands"
	"innkeep/internal/app/dto"
	"innkeep/internal/app/handlers/support"
	"innkeep/internal/app/middleware"
	"innkeep/internal/app/outbox"
	"innkeep/internal/app/policies"
	domainbooking "innkeep/internal/domain/booking"
	"innkeep/internal/domain/conflict"
	"innkeep/internal/domain/reservation"
	"innkeep/internal/domain/shared/daterange"
)

const (
	commitRangeKey         = "booking.range.commit"
	rangeCommittedTemplate = "booking_range_committed"
)

type CommitRangeCommand struct {
	CommandID       string           `json:"command_id"`
	Mode            reservation.Mode `json:"mode" validate:"property_mode"`
	PropertyID      string           `json:"property_id" validate:"required"`
	GuestID         string           `json:"guest_id"`
	Start           time.Time        `json:"start" validate:"required"`
	End             time.Time        `json:"end" validate:"required"`
	Guests          int              `json:"guests" validate:"gte=0"`
	PromoPercent    int              `json:"promo_percent" validate:"gte=0,lte=100"`
	ArrivalTime     string           `json:"arrival_time" validate:"hhmm"`
	SpecialRequest  string           `json:"special_request" validate:"max=500"`
	IdempotencyKeyV string           `json:"-"`
}

func (c CommitRangeCommand) Key() string { return commitRangeKey }

func (c CommitRangeCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CommitRangeCommand) ResultPrototype() any { return &dto.CommitResult{} }

func (c CommitRangeCommand) GuestIdentity() string { return c.GuestID }

// BlockedError carries the assessment of a range that cannot proceed.
type BlockedError struct {
	Assessment conflict.Assessment
}

func (e *BlockedError) Error() string {
	return "booking: range blocked"
}

func (e *BlockedError) Unwrap() error {
	return domainbooking.ErrBlocked
}

type CommitRangeHandler struct {
	Loader   support.Loader
	Settings support.Settings
	Outbox   outbox.Outbox
	Encoder  outbox.EventEncoder
	// Notifier is optional.
	Notifier    policies.Notifier
	Preferences policies.PreferenceStore
	Clock       policies.Clock
	Logger      *slog.Logger
}

func (h *CommitRangeHandler) Handle(ctx context.Context, cmd CommitRangeCommand) (*dto.CommitResult, error) {
	ref := reservation.PropertyRef{Mode: cmd.Mode, ID: strings.TrimSpace(cmd.PropertyID)}
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	arrival, err := domainbooking.ParseArrivalTime(cmd.ArrivalTime)
	if err != nil {
		return nil, err
	}
	detail, err := h.Loader.Property(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("load property %s: %w", ref, err)
	}
	normalize := h.Settings.Normalizer(ref.Mode)
	r, err := daterange.New(normalize(cmd.Start), normalize(cmd.End))
	if err != nil {
		return nil, err
	}
	now := h.now()

	eval, err := support.Evaluate(ctx, h.Loader, h.Settings, detail, r, support.EvalRequest{
		GuestID:      cmd.GuestID,
		Guests:       cmd.Guests,
		PromoPercent: cmd.PromoPercent,
		Fresh:        true,
	}, now)
	if err != nil {
		return nil, err
	}
	if !eval.Assessment.CanProceed() {
		return nil, &BlockedError{Assessment: eval.Assessment}
	}

	id := strings.TrimSpace(cmd.CommandID)
	if id == "" {
		id = uuid.NewString()
	}
	commitment, err := domainbooking.Commit(domainbooking.CommitParams{
		ID:             domainbooking.CommitmentID(id),
		Property:       ref,
		GuestID:        cmd.GuestID,
		Range:          r,
		Guests:         cmd.Guests,
		ArrivalTime:    arrival,
		SpecialRequest: cmd.SpecialRequest,
		Price:          eval.Price,
		Assessment:     eval.Assessment,
		Now:            now,
	})
	if err != nil {
		return nil, err
	}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), commitment.Drain()); err != nil {
		return nil, err
	}

	result := &dto.CommitResult{
		CommitmentID:    string(commitment.ID),
		Start:           r.CheckIn,
		End:             r.CheckOut,
		TotalPrice:      eval.Price.FinalTotal.Major(),
		TotalCents:      eval.Price.FinalTotal.Amount,
		Currency:        eval.Price.FinalTotal.Currency,
		ConfirmationURL: commitment.ConfirmationURL(),
		Assessment:      dto.MapAssessment(eval.Assessment),
	}
	h.afterCommit(ctx, cmd.GuestID, ref, result)
	return result, nil
}

// afterCommit runs the best-effort side effects; failures are only logged.
func (h *CommitRangeHandler) afterCommit(ctx context.Context, guestID string, ref reservation.PropertyRef, result *dto.CommitResult) {
	if h.Loader.Cache != nil {
		h.Loader.Cache.Invalidate(ref)
	}
	if h.Preferences != nil && guestID != "" {
		if err := h.Preferences.Clear(ctx, guestID, ref); err != nil {
			h.logger().WarnContext(ctx, "preference clear failed", "property", ref.String(), "error", err)
		}
	}
	if h.Notifier != nil && guestID != "" {
		if err := h.Notifier.Notify(ctx, policies.Notification{GuestID: guestID, Template: rangeCommittedTemplate, Data: result}); err != nil && !errors.Is(err, context.Canceled) {
			h.logger().WarnContext(ctx, "commit notification failed", "commitment_id", result.CommitmentID, "error", err)
		}
	}
	h.logger().InfoContext(ctx, "range committed",
		"commitment_id", result.CommitmentID,
		"property", ref.String(),
		"start", result.Start,
		"end", result.End,
		"total", result.TotalPrice,
	)
}

func (h *CommitRangeHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

func (h *CommitRangeHandler) now() time.Time {
	if h.Clock == nil {
		return time.Now()
	}
	return h.Clock.Now()
}

func (h *CommitRangeHandler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

var _ commands.Handler[CommitRangeCommand, *dto.CommitResult] = (*CommitRangeHandler)(nil)
var _ middleware.IdempotentCommand = (*CommitRangeCommand)(nil)
var _ middleware.GuestScoped = CommitRangeCommand{}
