package money

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidCurrency  = errors.New("money: invalid currency code")
	ErrCurrencyMismatch = errors.New("money: currency mismatch")
)

// MinorUnits is centavos per peso.
const MinorUnits = 100

// Money is an amount in minor units. Display strings like "₱1,000.00" are
// parsed once at the edge by ParseDisplay; totals never pass through floats.
type Money struct {
	Amount   int64
	Currency string
}

func New(amount int64, currency string) (Money, error) {
	if len(currency) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	currency = strings.ToUpper(currency)
	return Money{Amount: amount, Currency: currency}, nil
}

// Must is New for constants and fixtures; it panics on a bad currency.
func Must(amount int64, currency string) Money {
	m, err := New(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Add(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}, nil
}

func (m Money) Sub(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}, nil
}

// Multiply prices n units, e.g. nights or started hours.
func (m Money) Multiply(times int64) Money {
	return Money{Amount: m.Amount * times, Currency: m.Currency}
}

// Scale multiplies the amount by num/den rounding half away from zero.
func (m Money) Scale(num, den int64) Money {
	if den == 0 {
		return Money{Currency: m.Currency}
	}
	return Money{Amount: divRound(m.Amount*num, den), Currency: m.Currency}
}

func (m Money) IsZero() bool {
	return m.Amount == 0
}

// Major renders the amount as a decimal string in major units, e.g. "1000.50".
func (m Money) Major() string {
	sign := ""
	amount := m.Amount
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/MinorUnits, amount%MinorUnits)
}

func (m Money) String() string {
	return m.Major() + " " + m.Currency
}

func (m Money) ensureSameCurrency(other Money) error {
	if m.Currency == "" || other.Currency == "" {
		return ErrInvalidCurrency
	}
	if m.Currency != other.Currency {
		return ErrCurrencyMismatch
	}
	return nil
}

func divRound(n, d int64) int64 {
	if d < 0 {
		n, d = -n, -d
	}
	if n >= 0 {
		return (n + d/2) / d
	}
	return -((-n + d/2) / d)
}
