package booking

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"innkeep/internal/domain/conflict"
	"innkeep/internal/domain/pricing"
	"innkeep/internal/domain/reservation"
	"innkeep/internal/domain/shared/daterange"
	"innkeep/internal/domain/shared/events"
)

const (
	ConfirmationPath       = "/confirm-booking"
	MaxSpecialRequestLen   = 500
	EarliestArrival        = 14 * time.Hour
	LatestArrival          = 22 * time.Hour
	confirmationDayLayout  = daterange.DayLayout
	confirmationTimeLayout = "2006-01-02T15:04"
)

var (
	ErrBlocked            = errors.New("booking: selection cannot proceed")
	ErrArrivalTime        = errors.New("booking: arrival time must be between 14:00 and 22:00")
	ErrSpecialRequestSize = errors.New("booking: special request exceeds 500 characters")
)

type CommitmentID string

// Commitment is a selected range the guest decided to proceed with.
type Commitment struct {
	ID             CommitmentID
	Property       reservation.PropertyRef
	GuestID        string
	Range          daterange.DateRange
	Guests         int
	ArrivalTime    *time.Duration
	SpecialRequest string
	Price          pricing.Result
	CommittedAt    time.Time
	events.Recorder
}

type CommitParams struct {
	ID             CommitmentID
	Property       reservation.PropertyRef
	GuestID        string
	Range          daterange.DateRange
	Guests         int
	ArrivalTime    *time.Duration
	SpecialRequest string
	Price          pricing.Result
	Assessment     conflict.Assessment
	Now            time.Time
}

// Commit validates the range assessment and the booking details, then records
// RangeCommitted. A nil ArrivalTime means the guest did not state one.
func Commit(p CommitParams) (*Commitment, error) {
	if err := p.Property.Validate(); err != nil {
		return nil, err
	}
	if err := p.Range.Validate(); err != nil {
		return nil, err
	}
	if !p.Assessment.CanProceed() {
		return nil, ErrBlocked
	}
	if p.Property.Mode == reservation.ModeRoom && p.ArrivalTime != nil &&
		(*p.ArrivalTime < EarliestArrival || *p.ArrivalTime > LatestArrival) {
		return nil, ErrArrivalTime
	}
	if len([]rune(p.SpecialRequest)) > MaxSpecialRequestLen {
		return nil, ErrSpecialRequestSize
	}
	now := p.Now.UTC()
	c := &Commitment{
		ID:             p.ID,
		Property:       p.Property,
		GuestID:        p.GuestID,
		Range:          p.Range,
		Guests:         p.Guests,
		ArrivalTime:    p.ArrivalTime,
		SpecialRequest: strings.TrimSpace(p.SpecialRequest),
		Price:          p.Price,
		CommittedAt:    now,
	}
	c.Record(RangeCommitted{
		CommitmentID: c.ID,
		Property:     c.Property,
		GuestID:      c.GuestID,
		Start:        c.Range.CheckIn,
		End:          c.Range.CheckOut,
		TotalMinor:   c.Price.FinalTotal.Amount,
		Currency:     c.Price.FinalTotal.Currency,
		DiscountType: string(c.Price.DiscountType),
		At:           now,
	})
	return c, nil
}

// ConfirmationURL is the path the UI navigates to after a successful commit.
func (c *Commitment) ConfirmationURL() string {
	key, layout := "roomId", confirmationDayLayout
	if c.Property.Mode == reservation.ModeVenue {
		key, layout = "areaId", confirmationTimeLayout
	}
	q := url.Values{}
	q.Set(key, c.Property.ID)
	q.Set("arrival", c.Range.CheckIn.Format(layout))
	q.Set("departure", c.Range.CheckOut.Format(layout))
	q.Set("totalPrice", c.Price.FinalTotal.Major())
	return fmt.Sprintf("%s?%s", ConfirmationPath, q.Encode())
}

// ParseArrivalTime reads an HH:MM arrival time as an offset from midnight.
// A blank value yields nil.
func ParseArrivalTime(raw string) (*time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("15:04", raw)
	if err != nil {
		return nil, ErrArrivalTime
	}
	d := time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute
	return &d, nil
}
