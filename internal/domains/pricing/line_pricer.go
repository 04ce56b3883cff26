package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// lineResult is the contribution of one selection line.
type lineResult struct {
	cost     decimal.Decimal
	duration decimal.Decimal
	include  bool
}

var sixty = decimal.NewFromInt(60)

// pricingContext is the accumulator of a single computation. It is never
// shared between calls of ComputePricing.
type pricingContext struct {
	rules Rules

	subtotal         decimal.Decimal
	duration         decimal.Decimal
	activeMultiplier decimal.Decimal
	deepCleaningFee  decimal.Decimal
	hasDeepFee       bool

	anyDeep      bool
	anySuperDeep bool

	// resolved selections, catalog misses already dropped
	services []resolvedService
	extras   []resolvedExtra

	lineItems []LineItem
}

type resolvedService struct {
	sel   SelectionLine
	facts ServiceLineFacts
}

type resolvedExtra struct {
	sel   SelectionLine
	facts ExtraServiceLineFacts
}

// =====================================================
// SERVICE LINES
// =====================================================

func (pc *pricingContext) priceServiceLine(line resolvedService) lineResult {
	facts := line.facts
	qty := decimal.NewFromInt(int64(line.sel.Quantity))
	mult := pc.activeMultiplier

	// Rule 1: cleaner count priced together with its hours sibling
	if facts.RelationType == RelationCleanerCount {
		if hours, ok := pc.siblingHours(facts.ServiceTypeID); ok {
			return lineResult{
				cost:     facts.UnitCost.Mul(mult).Mul(qty).Mul(hours),
				duration: hours.Mul(sixty),
				include:  true,
			}
		}
		return pc.defaultServiceLine(facts, qty)
	}

	// Rule 2: zero bedrooms is a billable studio
	if facts.ServiceKey == pc.rules.StudioServiceKey && line.sel.Quantity == 0 {
		return lineResult{
			cost:     pc.rules.StudioPrice.Mul(mult),
			duration: pc.rules.StudioDurationMinutes,
			include:  true,
		}
	}

	// Rule 3: hours lines are folded into their cleaner line
	if facts.RelationType == RelationHoursCount {
		return lineResult{cost: decimal.Zero, duration: decimal.Zero, include: false}
	}

	return pc.defaultServiceLine(facts, qty)
}

func (pc *pricingContext) defaultServiceLine(facts ServiceLineFacts, qty decimal.Decimal) lineResult {
	return lineResult{
		cost:     facts.UnitCost.Mul(pc.activeMultiplier).Mul(qty),
		duration: decimal.NewFromInt(int64(facts.UnitDurationMinutes)).Mul(qty),
		include:  true,
	}
}

// siblingHours finds the hours-count line selected for the same service type.
// The sibling's quantity carries the hours; its Hours field is used when the
// quantity is zero.
func (pc *pricingContext) siblingHours(serviceTypeID uuid.UUID) (decimal.Decimal, bool) {
	for _, s := range pc.services {
		if s.facts.RelationType != RelationHoursCount || s.facts.ServiceTypeID != serviceTypeID {
			continue
		}
		if s.sel.Quantity > 0 {
			return decimal.NewFromInt(int64(s.sel.Quantity)), true
		}
		return s.sel.Hours, true
	}
	return decimal.Zero, false
}

// =====================================================
// EXTRA SERVICE LINES
// =====================================================

func (pc *pricingContext) priceExtraLine(line resolvedExtra) lineResult {
	facts := line.facts

	// the flat fee is accounted once by the aggregator
	if facts.isDeep() {
		return lineResult{cost: decimal.Zero, duration: extraDuration(facts, line.sel), include: true}
	}

	mult := pc.activeMultiplier
	if facts.IsSameDayService {
		mult = decimal.NewFromInt(1)
	}

	switch {
	case facts.HasHours:
		return lineResult{
			cost:     facts.UnitPrice.Mul(line.sel.Hours).Mul(mult),
			duration: extraDuration(facts, line.sel),
			include:  true,
		}
	case facts.HasQuantity:
		qty := decimal.NewFromInt(int64(line.sel.Quantity))
		if facts.Name == pc.rules.ExtraCleanersName {
			return lineResult{
				cost:     pc.extraCleanerPerHead().Mul(qty),
				duration: decimal.Zero,
				include:  true,
			}
		}
		return lineResult{
			cost:     facts.UnitPrice.Mul(qty).Mul(mult),
			duration: extraDuration(facts, line.sel),
			include:  true,
		}
	default:
		return lineResult{
			cost:     facts.UnitPrice.Mul(mult),
			duration: extraDuration(facts, line.sel),
			include:  true,
		}
	}
}

// extraDuration is shared by every extra line, deep cleaning included.
func extraDuration(facts ExtraServiceLineFacts, sel SelectionLine) decimal.Decimal {
	unit := decimal.NewFromInt(int64(facts.UnitDurationMinutes))
	switch {
	case facts.HasHours:
		return unit.Mul(sel.Hours)
	case facts.HasQuantity:
		return unit.Mul(decimal.NewFromInt(int64(sel.Quantity)))
	default:
		return unit
	}
}

func (pc *pricingContext) extraCleanerPerHead() decimal.Decimal {
	switch {
	case pc.anySuperDeep:
		return pc.rules.ExtraCleanerSuperDeepHead
	case pc.anyDeep:
		return pc.rules.ExtraCleanerDeepPerHead
	default:
		return pc.rules.ExtraCleanerBasePerHead
	}
}
