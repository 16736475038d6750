package aggregation

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Percent returns part/total*100 rounded half away from zero to two decimals.
// Returns 0 when total is 0.
func Percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return decimal.NewFromInt(int64(part)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(total))).
		Round(2).
		InexactFloat64()
}

// Average returns sum/count rounded to two decimals, or 0 when count is 0.
func Average(sum decimal.Decimal, count int) float64 {
	if count == 0 {
		return 0
	}
	return sum.Div(decimal.NewFromInt(int64(count))).Round(2).InexactFloat64()
}
