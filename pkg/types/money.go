package types

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor currency units. It is carried as an integer
// everywhere and only rendered as a decimal at the API edge.
type Money int64

// Decimal converts cents to a major-unit decimal (1250 -> 12.50).
func (m Money) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(m)).Shift(-2)
}

// Display renders the amount with a currency code, e.g. "12.50 USD".
func (m Money) Display(currency string) string {
	out := m.Decimal().StringFixed(2)
	if c := strings.ToUpper(strings.TrimSpace(currency)); c != "" {
		out += " " + c
	}
	return out
}
