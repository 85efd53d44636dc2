package quote

import (
	"context"
	"fmt"
	"strings"
	"time"

	"innkeep/internal/app/dto"
	"innkeep/internal/app/handlers/support"
	"innkeep/internal/app/policies"
	"innkeep/internal/app/queries"
	"innkeep/internal/domain/reservation"
	"innkeep/internal/domain/shared/daterange"
)

const getQuoteKey = "quote.get"

type GetQuoteQuery struct {
	Mode         reservation.Mode `json:"mode" validate:"property_mode"`
	PropertyID   string           `json:"property_id" validate:"required"`
	Start        time.Time        `json:"start" validate:"required"`
	End          time.Time        `json:"end" validate:"required"`
	Guests       int              `json:"guests" validate:"gte=0"`
	PromoPercent int              `json:"promo_percent" validate:"gte=0,lte=100"`
	GuestID      string           `json:"guest_id"`
}

func (q GetQuoteQuery) Key() string { return getQuoteKey }

// GetQuoteHandler prices a range and reports the flags that would block it.
// Blocked ranges are still quoted; the caller decides what to show.
type GetQuoteHandler struct {
	Loader   support.Loader
	Settings support.Settings
	Clock    policies.Clock
}

func (h *GetQuoteHandler) Handle(ctx context.Context, q GetQuoteQuery) (dto.Quote, error) {
	ref := reservation.PropertyRef{Mode: q.Mode, ID: strings.TrimSpace(q.PropertyID)}
	if err := ref.Validate(); err != nil {
		return dto.Quote{}, err
	}
	detail, err := h.Loader.Property(ctx, ref)
	if err != nil {
		return dto.Quote{}, fmt.Errorf("load property %s: %w", ref, err)
	}
	normalize := h.Settings.Normalizer(ref.Mode)
	r, err := daterange.New(normalize(q.Start), normalize(q.End))
	if err != nil {
		return dto.Quote{}, err
	}
	now := time.Now()
	if h.Clock != nil {
		now = h.Clock.Now()
	}
	eval, err := support.Evaluate(ctx, h.Loader, h.Settings, detail, r, support.EvalRequest{
		GuestID:      q.GuestID,
		Guests:       q.Guests,
		PromoPercent: q.PromoPercent,
	}, now)
	if err != nil {
		return dto.Quote{}, err
	}
	return dto.Quote{
		PropertyID: ref.ID,
		Mode:       string(ref.Mode),
		Range:      dto.Range{Start: r.CheckIn, End: r.CheckOut},
		Price:      dto.MapPrice(eval.Price),
		Assessment: dto.MapAssessment(eval.Assessment),
	}, nil
}

var _ queries.Handler[GetQuoteQuery, dto.Quote] = (*GetQuoteHandler)(nil)
