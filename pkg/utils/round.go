package utils

import (
	"math"

	"github.com/shopspring/decimal"
)

// Round rounds x to the given number of decimal places, half away from zero.
// It goes through a decimal so 1.005 rounds to 1.01 instead of 1.00.
// NaN and ±Inf are returned unchanged.
func Round(x float64, places int32) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return decimal.NewFromFloat(x).Round(places).InexactFloat64()
}
