package domain

import (
	"math"

	"github.com/shopspring/decimal"
)

// NullableDecimal converts a float to a decimal, mapping NaN and ±Inf to
// the null decimal instead of a sentinel value.
func NullableDecimal(f float64) decimal.NullDecimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(f))
}
