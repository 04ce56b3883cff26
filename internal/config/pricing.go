package config

import (
	"github.com/shopspring/decimal"

	"cleaning-backend/internal/domains/pricing"
)

// PricingRules overlays the configured policy on the built-in defaults.
// Studio and extra-cleaner catalogue names are not configurable.
func (c *Config) PricingRules() pricing.Rules {
	p := c.Pricing
	rules := pricing.DefaultRules()
	rules.TaxRate = p.TaxRate
	rules.DurationToleranceMinutes = decimal.NewFromInt(int64(p.DurationToleranceMinutes))
	rules.MinDurationMinutes = decimal.NewFromInt(int64(p.MinDurationMinutes))
	rules.HoursPerMaid = decimal.NewFromInt(int64(p.HoursPerMaid))
	rules.ExtraCleanerBasePerHead = p.ExtraCleanerBase
	rules.ExtraCleanerDeepPerHead = p.ExtraCleanerDeep
	rules.ExtraCleanerSuperDeepHead = p.ExtraCleanerSuperDeep
	return rules
}
