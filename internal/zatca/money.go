package zatca

import "github.com/shopspring/decimal"

// FormatAmount renders a monetary value with exactly two fractional digits,
// no grouping separators and no currency symbol. Halves round away from zero,
// so 1.005 becomes "1.01" and -1.005 becomes "-1.01".
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// FormatPercent renders a tax percentage such as 15 as "15.00".
func FormatPercent(percent decimal.Decimal) string {
	return percent.StringFixed(2)
}

// FormatQuantity renders a quantity as a plain decimal without trailing zeros.
func FormatQuantity(quantity decimal.Decimal) string {
	return quantity.String()
}

// rateToPercent converts a fractional VAT rate (0.15) to a percentage (15).
func rateToPercent(rate decimal.Decimal) decimal.Decimal {
	return rate.Mul(decimal.NewFromInt(100))
}
