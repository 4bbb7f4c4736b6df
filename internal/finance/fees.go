package finance

import (
	"math"
	"strings"
)

type FeeType string

const (
	FeePercent FeeType = "PERCENT"
	FeeBRL     FeeType = "BRL"
	FeeFixed   FeeType = "FIXED"
)

// PointsPerCurrencyUnit is the loyalty conversion rate: 100 points buy 1.00.
const PointsPerCurrencyUnit = 100

// ParseFeeType normalises a fee type label. Anything that is not PERCENT is a
// fixed amount.
func ParseFeeType(value string) FeeType {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "PERCENT", "PERCENTAGE", "%":
		return FeePercent
	case "FIXED", "FIXED_AMOUNT":
		return FeeFixed
	default:
		return FeeBRL
	}
}

// CalculateFee returns base*amount/100 for percentage fees and amount for fixed
// fees, rounded and never negative.
func CalculateFee(base, amount float64, feeType FeeType) float64 {
	var fee float64
	if feeType == FeePercent {
		fee = Decimal(base).Mul(Decimal(amount)).Div(hundred).Round(2).InexactFloat64()
	} else {
		fee = RoundFinance(amount)
	}
	return math.Max(0, fee)
}

// CalculateFinalTotal returns subtotal + serviceFee + coverCharge - discount,
// rounded and floored at zero.
func CalculateFinalTotal(subtotal, serviceFee, coverCharge, discount float64) float64 {
	total := Decimal(subtotal).
		Add(Decimal(serviceFee)).
		Add(Decimal(coverCharge)).
		Sub(Decimal(discount)).
		Round(2).
		InexactFloat64()
	return math.Max(0, total)
}

// CalculatePointsDiscount converts loyalty points to a currency discount.
func CalculatePointsDiscount(points float64) float64 {
	points = Num(points)
	if points <= 0 {
		return 0
	}
	return RoundFinance(Decimal(points).Div(decimalPointsRate).InexactFloat64())
}
