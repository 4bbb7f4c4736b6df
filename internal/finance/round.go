package finance

import (
	"math"

	"github.com/shopspring/decimal"
)

// Num coerces NaN and infinities to zero. Every monetary read goes through it.
func Num(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return value
}

// RoundFinance rounds to 2 decimal places, half away from zero.
//
// The float is first converted to its shortest decimal representation, so
// 10.005 rounds to 10.01 even though its binary value sits slightly below.
func RoundFinance(value float64) float64 {
	return Decimal(value).Round(2).InexactFloat64()
}

// Decimal converts a sanitised float to a decimal.Decimal.
func Decimal(value float64) decimal.Decimal {
	return decimal.NewFromFloat(Num(value))
}

// RoundHalfUp rounds to the nearest integer with halves going up (towards +Inf).
func RoundHalfUp(value float64) int64 {
	return int64(math.Floor(Num(value) + 0.5))
}

// Clamp bounds value to [lo, hi].
func Clamp(value, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, Num(value)))
}
