package shared

import (
	"math"

	"github.com/shopspring/decimal"
)

// Tolerance is the absolute difference under which two amounts are equal.
const Tolerance = 0.01

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// ToNumeric renders an amount as a fixed two-decimal string for NUMERIC parameters.
func ToNumeric(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// Sum adds amounts using decimal arithmetic so long columns do not drift.
func Sum(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.Round(2).InexactFloat64()
}

// NearlyEqual reports whether a and b differ by less than Tolerance.
func NearlyEqual(a, b float64) bool {
	return math.Abs(a-b) < Tolerance
}
