package shop

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Money is an amount in cents.
// The store keeps prices as DECIMAL with two fractional digits, so cents are exact.
type Money int64

// Cents builds Money from a cent amount.
func Cents(cents int64) Money {
	return Money(cents)
}

// ParseMoney parses the decimal text form produced by Postgres, e.g. "12.34", "5", "7.5".
// More than two fractional digits are rejected rather than rounded.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidMoney)
	}

	negative := false
	if s[0] == '-' {
		negative = true
		s = s[1:]
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}

	if hasFrac {
		frac = strings.TrimRight(frac, "0")
	}

	if len(frac) > 2 {
		return 0, fmt.Errorf("%w: %q has more than two fractional digits", ErrInvalidMoney, s)
	}

	frac += strings.Repeat("0", 2-len(frac))

	units, unitsErr := strconv.ParseInt(whole, 10, 64)
	if unitsErr != nil {
		return 0, errors.Join(ErrInvalidMoney, unitsErr)
	}

	cents, centsErr := strconv.ParseInt(frac, 10, 64)
	if centsErr != nil || strings.ContainsAny(frac, "+-") {
		return 0, errors.Join(ErrInvalidMoney, centsErr)
	}

	amount := units*100 + cents
	if negative {
		amount = -amount
	}

	return Money(amount), nil
}

// Cents returns the amount in cents.
func (m Money) Cents() int64 {
	return int64(m)
}

// Times multiplies the amount by a quantity without any rounding.
func (m Money) Times(quantity int) Money {
	return m * Money(quantity)
}

// String formats the amount with exactly two fractional digits, e.g. "12.30".
func (m Money) String() string {
	sign := ""
	cents := int64(m)
	if cents < 0 {
		sign = "-"
		cents = -cents
	}

	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// MarshalJSON renders the amount as a JSON number, e.g. 12.30.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}
