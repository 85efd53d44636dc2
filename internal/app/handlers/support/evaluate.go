package support

import (
	"context"
	"time"

	"innkeep/internal/domain/conflict"
	"innkeep/internal/domain/pricing"
	"innkeep/internal/domain/reservation"
	"innkeep/internal/domain/shared/daterange"
)

type EvalRequest struct {
	GuestID      string
	Guests       int
	PromoPercent int
	// Fresh bypasses the window cache, for decisions that must not act on stale data.
	Fresh bool
}

type Evaluation struct {
	Assessment conflict.Assessment
	Price      pricing.Result
	Guest      reservation.GuestProfile
}

// Evaluate runs the conflict checks and the price quote for r.
func Evaluate(ctx context.Context, l Loader, s Settings, detail reservation.PropertyDetail, r daterange.DateRange, req EvalRequest, now time.Time) (Evaluation, error) {
	guest, err := l.Guest(ctx, req.GuestID)
	if err != nil {
		return Evaluation{}, err
	}
	var list []reservation.Reservation
	if req.Fresh {
		list, err = l.Fresh(ctx, detail.Ref, r.CheckIn, r.CheckOut)
	} else {
		list, err = l.Covering(ctx, detail.Ref, r.CheckIn, r.CheckOut)
	}
	if err != nil {
		return Evaluation{}, err
	}
	if r.CheckOut.Before(r.CheckIn) {
		r.CheckIn, r.CheckOut = r.CheckOut, r.CheckIn
	}
	assessment := conflict.Detect(s.Policy(detail), conflict.Request{
		Start:  r.CheckIn,
		End:    r.CheckOut,
		Guests: req.Guests,
		Guest:  guest,
	}, list, now.In(s.Loc()))
	price, err := s.Quote(detail, r.CheckIn, r.CheckOut, guest, req.PromoPercent)
	if err != nil {
		return Evaluation{}, err
	}
	return Evaluation{Assessment: assessment, Price: price, Guest: guest}, nil
}
