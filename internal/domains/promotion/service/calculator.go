package service

import (
	"github.com/shopspring/decimal"

	"cleaning-backend/internal/domains/promotion/model"
)

// DiscountCalculator computes the discount a promotion grants on an amount.
type DiscountCalculator struct{}

func NewDiscountCalculator() *DiscountCalculator {
	return &DiscountCalculator{}
}

// Calculate returns the discount rounded to cents.
//
//   - percentage: amount × value / 100, capped by MaxDiscountAmount when set
//   - fixed: value, never more than the amount itself
func (c *DiscountCalculator) Calculate(promo *model.Promotion, amount decimal.Decimal) (decimal.Decimal, bool) {
	var discount decimal.Decimal

	switch promo.DiscountType {
	case model.DiscountTypePercentage:
		discount = amount.Mul(promo.DiscountValue).Div(decimal.NewFromInt(100))
		if promo.MaxDiscountAmount != nil && discount.GreaterThan(*promo.MaxDiscountAmount) {
			discount = *promo.MaxDiscountAmount
		}

	case model.DiscountTypeFixed:
		discount = promo.DiscountValue
		if discount.GreaterThan(amount) {
			discount = amount
		}

	default:
		return decimal.Zero, false
	}

	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return discount.Round(2), true
}
