package invoice

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// FormatAmount renders a money amount with exactly two fractional digits,
// rounding half away from zero. Derived amounts are only rounded here.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatRate renders a rate in [0, 1) as a percentage with one fractional
// digit, e.g. 0.08 -> "8.0%".
func FormatRate(d decimal.Decimal) string {
	return d.Mul(hundred).StringFixed(1) + "%"
}
