package pricing

import "github.com/shopspring/decimal"

// =====================================================
// SETTLEMENT: discounts -> tax -> tips -> gift card
// =====================================================

type SettlementInput struct {
	Subtotal              decimal.Decimal
	PromoDiscount         decimal.Decimal
	SubscriptionDiscount  decimal.Decimal
	Tips                  decimal.Decimal
	CompanyDevelopmentTip decimal.Decimal
	GiftCard              *GiftCardQuote
}

type Settlement struct {
	DiscountedSubtotal  decimal.Decimal
	Tax                 decimal.Decimal
	TotalBeforeGiftCard decimal.Decimal
	GiftCardAmountUsed  decimal.Decimal
	Total               decimal.Decimal
}

// Settle composes the final charge. The order of the steps is part of the
// contract: tax is levied on the discounted amount, and the gift card is
// netted last.
func Settle(in SettlementInput, rules Rules) Settlement {
	s := Settlement{}

	s.DiscountedSubtotal = Round2(in.Subtotal.Sub(in.PromoDiscount).Sub(in.SubscriptionDiscount))
	s.Tax = Round2(s.DiscountedSubtotal.Mul(rules.TaxRate))
	s.TotalBeforeGiftCard = s.DiscountedSubtotal.Add(s.Tax).Add(in.Tips).Add(in.CompanyDevelopmentTip)
	s.GiftCardAmountUsed = GiftCardUsable(in.GiftCard, s.TotalBeforeGiftCard)
	s.Total = Round2(s.TotalBeforeGiftCard.Sub(s.GiftCardAmountUsed))

	return s
}

// GiftCardUsable returns min(requested, available, due), never below zero.
func GiftCardUsable(card *GiftCardQuote, due decimal.Decimal) decimal.Decimal {
	if card == nil || !due.IsPositive() || !card.Available.IsPositive() {
		return decimal.Zero
	}
	used := decimal.Min(card.Available, due)
	if card.Requested.IsPositive() {
		used = decimal.Min(used, card.Requested)
	}
	// never round up past the balance or the requested amount
	return used.Truncate(2)
}

// ApplyGiftCardDebit updates a priced order with the amount actually debited.
func (p *PricedOrder) ApplyGiftCardDebit(actual decimal.Decimal) {
	p.GiftCardAmountUsed = actual
	p.Total = Round2(p.TotalBeforeGiftCard.Sub(actual))
}
