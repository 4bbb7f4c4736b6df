package finance

import (
	"math"

	"github.com/shopspring/decimal"
)

var (
	hundred           = decimal.NewFromInt(100)
	decimalPointsRate = decimal.NewFromInt(PointsPerCurrencyUnit)
)

type QuoteInput struct {
	Subtotal        float64
	ServiceFee      float64
	ServiceFeeType  FeeType
	CoverCharge     float64
	CoverChargeType FeeType
	Discount        float64
	DiscountType    FeeType
	LoyaltyPoints   float64
}

type Quote struct {
	Subtotal       float64 `json:"subtotal"`
	ServiceFee     float64 `json:"serviceFee"`
	CoverCharge    float64 `json:"coverCharge"`
	Discount       float64 `json:"discount"`
	PointsDiscount float64 `json:"pointsDiscount"`
	Total          float64 `json:"total"`
}

// BuildQuote applies fees, manual discount and loyalty points to a subtotal.
// Discounts are capped at the amount they can actually remove.
func BuildQuote(in QuoteInput) Quote {
	subtotal := math.Max(0, RoundFinance(in.Subtotal))
	serviceFee := CalculateFee(subtotal, in.ServiceFee, in.ServiceFeeType)
	coverCharge := CalculateFee(subtotal, in.CoverCharge, in.CoverChargeType)

	gross := RoundFinance(subtotal + serviceFee + coverCharge)
	discount := math.Min(CalculateFee(subtotal, in.Discount, in.DiscountType), gross)
	pointsDiscount := math.Min(CalculatePointsDiscount(in.LoyaltyPoints), RoundFinance(gross-discount))

	return Quote{
		Subtotal:       subtotal,
		ServiceFee:     serviceFee,
		CoverCharge:    coverCharge,
		Discount:       discount,
		PointsDiscount: pointsDiscount,
		Total:          CalculateFinalTotal(subtotal, serviceFee, coverCharge, discount+pointsDiscount),
	}
}
