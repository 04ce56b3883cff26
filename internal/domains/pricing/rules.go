package pricing

import "github.com/shopspring/decimal"

// Rules is the numeric policy applied by ComputePricing.
type Rules struct {
	TaxRate                   decimal.Decimal
	DurationToleranceMinutes  decimal.Decimal
	MinDurationMinutes        decimal.Decimal
	HoursPerMaid              decimal.Decimal
	StudioServiceKey          string
	StudioPrice               decimal.Decimal
	StudioDurationMinutes     decimal.Decimal
	ExtraCleanersName         string
	ExtraCleanerBasePerHead   decimal.Decimal
	ExtraCleanerDeepPerHead   decimal.Decimal
	ExtraCleanerSuperDeepHead decimal.Decimal
}

func DefaultRules() Rules {
	return Rules{
		TaxRate:                   decimal.RequireFromString("0.08875"),
		DurationToleranceMinutes:  decimal.NewFromInt(5),
		MinDurationMinutes:        decimal.NewFromInt(60),
		HoursPerMaid:              decimal.NewFromInt(6),
		StudioServiceKey:          "bedrooms",
		StudioPrice:               decimal.NewFromInt(10),
		StudioDurationMinutes:     decimal.NewFromInt(20),
		ExtraCleanersName:         "Extra Cleaners",
		ExtraCleanerBasePerHead:   decimal.NewFromInt(40),
		ExtraCleanerDeepPerHead:   decimal.NewFromInt(60),
		ExtraCleanerSuperDeepHead: decimal.NewFromInt(80),
	}
}

// Round2 rounds a money amount to cents, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// PercentOf returns round2(amount * percent / 100).
func PercentOf(amount, percent decimal.Decimal) decimal.Decimal {
	if percent.IsZero() || amount.IsZero() {
		return decimal.Zero
	}
	return Round2(amount.Mul(percent).Div(decimal.NewFromInt(100)))
}
