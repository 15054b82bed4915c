// Package core holds the domain model of the ledger: wallets, categories,
// transactions, lend/borrow records, budgets, and bill reminders.
//
// All amounts are stored as int64 cents; floating point appears only at
// display boundaries.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// Money is an amount in cents of the owning wallet's currency.
type Money struct {
	Cents int64
}

// Units returns the decimal value for display. Calculations stay in cents.
func (m Money) Units() float64 {
	return float64(m.Cents) / 100.0
}

// ParseDecimalToCents converts a positive decimal string to cents. Dot and
// comma both work as the decimal separator; a third decimal digit rounds
// half-up. Signs, zero, and malformed input return ErrInvalidAmount.
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" || s[0] == '+' || s[0] == '-' {
		return 0, ErrInvalidAmount
	}

	whole, frac, _ := strings.Cut(s, ".")
	if strings.Contains(frac, ".") {
		return 0, ErrInvalidAmount
	}
	if whole == "" {
		whole = "0"
	}
	for _, r := range whole + frac {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units > (1<<63-1)/100 {
		return 0, ErrInvalidAmount
	}

	var cents int64
	switch {
	case len(frac) >= 2:
		cents = int64(frac[0]-'0')*10 + int64(frac[1]-'0')
		if len(frac) > 2 && frac[2] >= '5' {
			cents++
		}
	case len(frac) == 1:
		cents = int64(frac[0]-'0') * 10
	}

	cents += units * 100
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}
