package pricing

import (
	"github.com/shopspring/decimal"
)

// ComputePricing turns the resolved catalog facts and the client selections
// into a priced order. It performs no I/O beyond calling in.Discounts.
func ComputePricing(in Input, rules Rules) (*PricedOrder, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	agg := AggregateLines(in, rules)

	discounts := Discounts{Promo: decimal.Zero, Subscription: decimal.Zero}
	if in.Discounts != nil {
		d, err := in.Discounts(agg.Subtotal)
		if err != nil {
			return nil, err
		}
		discounts = d
	}
	if discounts.Promo.IsNegative() || discounts.Subscription.IsNegative() {
		return nil, ErrNegativeDiscount
	}

	settlement := Settle(SettlementInput{
		Subtotal:              agg.Subtotal,
		PromoDiscount:         discounts.Promo,
		SubscriptionDiscount:  discounts.Subscription,
		Tips:                  in.Tips,
		CompanyDevelopmentTip: in.CompanyDevelopmentTip,
		GiftCard:              in.GiftCard,
	}, rules)

	return &PricedOrder{
		Subtotal:                   agg.Subtotal,
		DiscountAmount:             discounts.Promo,
		SubscriptionDiscountAmount: discounts.Subscription,
		DiscountedSubtotal:         settlement.DiscountedSubtotal,
		Tax:                        settlement.Tax,
		Tips:                       in.Tips,
		CompanyDevelopmentTip:      in.CompanyDevelopmentTip,
		TotalBeforeGiftCard:        settlement.TotalBeforeGiftCard,
		GiftCardAmountUsed:         settlement.GiftCardAmountUsed,
		Total:                      settlement.Total,
		TotalDurationMinutes:       agg.TotalDurationMinutes,
		MaidsCount:                 agg.MaidsCount,
		ActiveMultiplier:           agg.ActiveMultiplier,
		IsCustomPricing:            in.Custom != nil,
		LineItems:                  agg.LineItems,
		ComputedDurationMinutes:    agg.ComputedDuration,
		ClientDurationApplied:      agg.ClientDurationApplied,
	}, nil
}

func validateInput(in Input) error {
	for _, lines := range [][]SelectionLine{in.Services, in.Extras} {
		for _, l := range lines {
			if l.Quantity < 0 {
				return ErrNegativeQuantity
			}
			if l.Hours.IsNegative() {
				return ErrNegativeHours
			}
		}
	}
	if in.Tips.IsNegative() || in.CompanyDevelopmentTip.IsNegative() {
		return ErrNegativeTip
	}
	if c := in.Custom; c != nil {
		if (c.Amount != nil && c.Amount.IsNegative()) ||
			(c.DurationMinutes != nil && *c.DurationMinutes < 0) ||
			(c.MaidsCount != nil && *c.MaidsCount < 0) {
			return ErrInvalidCustomRate
		}
	}
	return nil
}

// =====================================================
// ORDER AGGREGATOR
// =====================================================

// AggregateLines walks every selected line and returns the undiscounted
// subtotal, the reconciled duration and the crew size.
func AggregateLines(in Input, rules Rules) Aggregate {
	if in.Custom != nil {
		return aggregateCustom(in, rules)
	}

	pc := newPricingContext(in, rules)

	// Step 1: detect the active multiplier and its flat fee (last match wins)
	for _, e := range pc.extras {
		if e.facts.IsDeepCleaning {
			pc.anyDeep = true
		}
		if e.facts.IsSuperDeepCleaning {
			pc.anySuperDeep = true
		}
		if e.facts.isDeep() {
			pc.activeMultiplier = e.facts.PriceMultiplier
			if pc.activeMultiplier.LessThanOrEqual(decimal.Zero) {
				pc.activeMultiplier = decimal.NewFromInt(1)
			}
			pc.deepCleaningFee = e.facts.UnitPrice
			pc.hasDeepFee = true
		}
	}

	// Step 2: seed with the service type base
	pc.subtotal = in.ServiceType.BasePrice.Mul(pc.activeMultiplier)
	pc.duration = decimal.NewFromInt(int64(in.ServiceType.BaseDurationMinutes))
	pc.lineItems = append(pc.lineItems, LineItem{
		Kind:            LineKindBase,
		Name:            in.ServiceType.Name,
		Quantity:        1,
		Hours:           decimal.Zero,
		Cost:            pc.subtotal,
		DurationMinutes: pc.duration,
	})

	// Step 3: service lines
	for _, s := range pc.services {
		res := pc.priceServiceLine(s)
		if !res.include {
			continue
		}
		pc.add(LineKindService, s.sel, s.facts.Name, res)
	}

	// Step 4: extra lines, deep cleaning fee once after the loop
	for _, e := range pc.extras {
		res := pc.priceExtraLine(e)
		pc.add(LineKindExtra, e.sel, e.facts.Name, res)
	}
	if pc.hasDeepFee {
		pc.subtotal = pc.subtotal.Add(pc.deepCleaningFee)
		pc.lineItems = append(pc.lineItems, LineItem{
			Kind:            LineKindDeepCleaningFee,
			Name:            "Deep cleaning fee",
			Quantity:        1,
			Hours:           decimal.Zero,
			Cost:            pc.deepCleaningFee,
			DurationMinutes: decimal.Zero,
		})
	}

	// Step 5: reconcile with the client duration, then floor
	total, clientApplied := ReconcileDuration(pc.duration, in.ClientDurationMinutes, rules)

	return Aggregate{
		Subtotal:              Round2(pc.subtotal),
		ComputedDuration:      pc.duration,
		TotalDurationMinutes:  total,
		MaidsCount:            pc.maidsCount(in.ClientMaidsCount, total),
		ActiveMultiplier:      pc.activeMultiplier,
		DeepCleaningFee:       pc.deepCleaningFee,
		ClientDurationApplied: clientApplied,
		LineItems:             pc.lineItems,
	}
}

func newPricingContext(in Input, rules Rules) *pricingContext {
	pc := &pricingContext{
		rules:            rules,
		subtotal:         decimal.Zero,
		duration:         decimal.Zero,
		activeMultiplier: decimal.NewFromInt(1),
		deepCleaningFee:  decimal.Zero,
	}
	// catalog misses and lines of another service type are skipped
	for _, sel := range in.Services {
		if facts, ok := in.ServiceLines[sel.LineID]; ok && facts.ServiceTypeID == in.ServiceType.ID {
			pc.services = append(pc.services, resolvedService{sel: sel, facts: facts})
		}
	}
	for _, sel := range in.Extras {
		if facts, ok := in.ExtraLines[sel.LineID]; ok {
			pc.extras = append(pc.extras, resolvedExtra{sel: sel, facts: facts})
		}
	}
	return pc
}

func (pc *pricingContext) add(kind LineKind, sel SelectionLine, name string, res lineResult) {
	pc.subtotal = pc.subtotal.Add(res.cost)
	pc.duration = pc.duration.Add(res.duration)

	id := sel.LineID
	pc.lineItems = append(pc.lineItems, LineItem{
		Kind:            kind,
		LineID:          &id,
		Name:            name,
		Quantity:        sel.Quantity,
		Hours:           sel.Hours,
		Cost:            res.cost,
		DurationMinutes: res.duration,
	})
}

// maidsCount prefers the client value, then the cleaner-count quantity, then
// ceil(hours / HoursPerMaid) with a minimum of one.
func (pc *pricingContext) maidsCount(client *int, duration decimal.Decimal) int {
	if client != nil && *client > 0 {
		return *client
	}
	for _, s := range pc.services {
		if s.facts.RelationType == RelationCleanerCount && s.sel.Quantity > 0 {
			return s.sel.Quantity
		}
	}
	return deriveMaids(duration, pc.rules)
}

func deriveMaids(duration decimal.Decimal, rules Rules) int {
	if rules.HoursPerMaid.LessThanOrEqual(decimal.Zero) {
		return 1
	}
	maids := duration.Div(sixty).Div(rules.HoursPerMaid).Ceil().IntPart()
	if maids < 1 {
		return 1
	}
	return int(maids)
}

// ReconcileDuration keeps the computed duration unless the client value
// differs by more than the tolerance, then applies the minimum floor.
// The second return value reports whether the client value was taken.
func ReconcileDuration(computed decimal.Decimal, client *decimal.Decimal, rules Rules) (decimal.Decimal, bool) {
	result := computed
	clientApplied := false
	if client != nil && computed.Sub(*client).Abs().GreaterThan(rules.DurationToleranceMinutes) {
		result = *client
		clientApplied = true
	}
	if result.LessThan(rules.MinDurationMinutes) {
		result = rules.MinDurationMinutes
	}
	return result, clientApplied
}

func aggregateCustom(in Input, rules Rules) Aggregate {
	c := in.Custom

	subtotal := in.ServiceType.BasePrice
	if c.Amount != nil {
		subtotal = *c.Amount
	}
	duration := decimal.NewFromInt(int64(in.ServiceType.BaseDurationMinutes))
	if c.DurationMinutes != nil {
		duration = decimal.NewFromInt(int64(*c.DurationMinutes))
	}
	if duration.LessThan(rules.MinDurationMinutes) {
		duration = rules.MinDurationMinutes
	}

	maids := 0
	switch {
	case c.MaidsCount != nil && *c.MaidsCount > 0:
		maids = *c.MaidsCount
	case in.ClientMaidsCount != nil && *in.ClientMaidsCount > 0:
		maids = *in.ClientMaidsCount
	default:
		maids = deriveMaids(duration, rules)
	}

	return Aggregate{
		Subtotal:             Round2(subtotal),
		ComputedDuration:     duration,
		TotalDurationMinutes: duration,
		MaidsCount:           maids,
		ActiveMultiplier:     decimal.NewFromInt(1),
		DeepCleaningFee:      decimal.Zero,
		LineItems: []LineItem{{
			Kind:            LineKindCustom,
			Name:            "Custom pricing",
			Quantity:        1,
			Hours:           decimal.Zero,
			Cost:            subtotal,
			DurationMinutes: duration,
		}},
	}
}
