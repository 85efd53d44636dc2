package pricing

import (
	"errors"
	"math"
	"math/bits"
	"time"

	"innkeep/internal/domain/reservation"
	"innkeep/internal/domain/shared/daterange"
	"innkeep/internal/domain/shared/money"
)

var (
	ErrNegativeUnits = errors.New("pricing: units cannot be negative")
	ErrCurrencyUnset = errors.New("pricing: currency must be defined")
	ErrTotalOverflow = errors.New("pricing: total overflows")
)

const DefaultSeniorPWDPercent = 20

type DiscountType string

const (
	DiscountNone      DiscountType = "none"
	DiscountSeniorPWD DiscountType = "senior_pwd"
	DiscountPromo     DiscountType = "promo"
)

// Eligibility lists the discounts a guest could claim. Only one is applied.
type Eligibility struct {
	SeniorOrPWD  bool
	PromoPercent int
}

func EligibilityFor(guest reservation.GuestProfile, promoPercent int) Eligibility {
	return Eligibility{SeniorOrPWD: guest.SeniorOrPWD, PromoPercent: promoPercent}
}

type Result struct {
	UnitPrice       money.Money
	Units           int
	DiscountType    DiscountType
	DiscountPercent int
	OriginalTotal   money.Money
	DiscountAmount  money.Money
	FinalTotal      money.Money
}

// Calculator prices a stay or venue booking.
type Calculator struct {
	SeniorPWDPercent int
	Currency         string
}

func NewCalculator(seniorPWDPercent int, currency string) Calculator {
	return Calculator{SeniorPWDPercent: clampPercent(seniorPWDPercent), Currency: currency}
}

// QuoteDisplay parses a display price such as "₱1,000.00" and quotes it.
func (c Calculator) QuoteDisplay(basePrice string, units int, e Eligibility) (Result, error) {
	if c.Currency == "" {
		return Result{}, ErrCurrencyUnset
	}
	return c.Quote(money.ParseDisplay(basePrice, c.Currency), units, e)
}

// Quote applies the single best-precedence discount: senior/PWD, then promo.
func (c Calculator) Quote(unit money.Money, units int, e Eligibility) (Result, error) {
	if units < 0 {
		return Result{}, ErrNegativeUnits
	}
	if unit.Currency == "" {
		return Result{}, ErrCurrencyUnset
	}
	if !fits(unit, units) {
		return Result{}, ErrTotalOverflow
	}
	kind, pct := c.discount(e)
	original := unit.Multiply(int64(units))
	final := FinalTotal(unit, units, pct)
	discount, err := original.Sub(final)
	if err != nil {
		return Result{}, err
	}
	return Result{
		UnitPrice:       unit,
		Units:           units,
		DiscountType:    kind,
		DiscountPercent: pct,
		OriginalTotal:   original,
		DiscountAmount:  discount,
		FinalTotal:      final,
	}, nil
}

func (c Calculator) discount(e Eligibility) (DiscountType, int) {
	if e.SeniorOrPWD {
		pct := c.SeniorPWDPercent
		if pct == 0 {
			pct = DefaultSeniorPWDPercent
		}
		return DiscountSeniorPWD, clampPercent(pct)
	}
	if pct := clampPercent(e.PromoPercent); pct > 0 {
		return DiscountPromo, pct
	}
	return DiscountNone, 0
}

// FinalTotal is unit*units*(100-pct)/100 rounded half up to the minor unit.
// Callers outside Quote must keep unit*units*100 within int64.
func FinalTotal(unit money.Money, units, pct int) money.Money {
	pct = clampPercent(pct)
	return unit.Multiply(int64(units)).Scale(int64(100-pct), 100)
}

// Units returns nights for rooms and started hours for venues.
func Units(mode reservation.Mode, r daterange.DateRange) int {
	if mode == reservation.ModeVenue {
		d := r.Duration()
		if d <= 0 {
			return 0
		}
		return int((d + time.Hour - 1) / time.Hour)
	}
	if n := r.Nights(); n > 0 {
		return n
	}
	return 0
}

// fits reports whether unit*units*100 stays within int64.
func fits(unit money.Money, units int) bool {
	amount := unit.Amount
	if amount < 0 {
		amount = -amount
	}
	hi, lo := bits.Mul64(uint64(amount), uint64(units))
	if hi != 0 {
		return false
	}
	hi, lo = bits.Mul64(lo, 100)
	return hi == 0 && lo <= math.MaxInt64
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
