package money

import "strings"

// ParseDisplay reads a currency-formatted display string such as "₱1,000.50".
// Everything except digits and the decimal point is dropped, the longest numeric
// prefix is used, and anything unparseable yields zero. Digits past the second
// decimal place are rounded half-up.
func ParseDisplay(raw, currency string) Money {
	var cleaned strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' {
			cleaned.WriteRune(r)
		}
	}
	s := cleaned.String()
	if i := strings.IndexByte(s, '.'); i >= 0 {
		if j := strings.IndexByte(s[i+1:], '.'); j >= 0 {
			s = s[:i+1+j]
		}
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return zero(currency)
	}

	var amount int64
	for _, r := range whole {
		amount = amount*10 + int64(r-'0')
		if amount > maxMajor {
			return zero(currency)
		}
	}
	amount *= MinorUnits

	var cents int64
	for i := 0; i < 2; i++ {
		cents *= 10
		if i < len(frac) {
			cents += int64(frac[i] - '0')
		}
	}
	if len(frac) > 2 && frac[2] >= '5' {
		cents++
	}
	return Money{Amount: amount + cents, Currency: strings.ToUpper(currency)}
}

const maxMajor = 1 << 50

func zero(currency string) Money {
	return Money{Currency: strings.ToUpper(currency)}
}
