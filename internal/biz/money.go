package biz

import (
	"github.com/shopspring/decimal"

	"lottery-service/internal/constants"
)

var centsScale = decimal.NewFromInt(constants.DirectAmountScale)

// DollarsToCents converts a dollar amount to budget cents, rounding half away from zero.
func DollarsToCents(dollars float64) int64 {
	return decimal.NewFromFloat(dollars).Mul(centsScale).Round(0).IntPart()
}

// CentsToDollars is the inverse of DollarsToCents.
func CentsToDollars(cents int64) float64 {
	return decimal.New(cents, -2).InexactFloat64()
}

// QuotaForDollars converts dollars to external quota units, truncating fractions.
func QuotaForDollars(dollars float64, perDollar int64) int64 {
	return decimal.NewFromFloat(dollars).Mul(decimal.NewFromInt(perDollar)).Floor().IntPart()
}

// SumDollars adds dollar values without float drift.
func SumDollars(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.InexactFloat64()
}
