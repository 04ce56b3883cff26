package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =====================================================
// CATALOG FACTS
// =====================================================

// RelationType links a cleaner-count line to its paired hours line.
type RelationType string

const (
	RelationNone         RelationType = "none"
	RelationCleanerCount RelationType = "cleaner_count"
	RelationHoursCount   RelationType = "hours_count"
)

type ServiceTypeFacts struct {
	ID                  uuid.UUID       `json:"id"`
	Name                string          `json:"name"`
	BasePrice           decimal.Decimal `json:"base_price"`
	BaseDurationMinutes int             `json:"base_duration_minutes"`
}

type ServiceLineFacts struct {
	ID                  uuid.UUID       `json:"id"`
	Name                string          `json:"name"`
	UnitCost            decimal.Decimal `json:"unit_cost"`
	UnitDurationMinutes int             `json:"unit_duration_minutes"`
	ServiceTypeID       uuid.UUID       `json:"service_type_id"`
	RelationType        RelationType    `json:"relation_type"`
	ServiceKey          string          `json:"service_key"`
}

type ExtraServiceLineFacts struct {
	ID                  uuid.UUID       `json:"id"`
	Name                string          `json:"name"`
	UnitPrice           decimal.Decimal `json:"unit_price"`
	UnitDurationMinutes int             `json:"unit_duration_minutes"`
	HasQuantity         bool            `json:"has_quantity"`
	HasHours            bool            `json:"has_hours"`
	IsDeepCleaning      bool            `json:"is_deep_cleaning"`
	IsSuperDeepCleaning bool            `json:"is_super_deep_cleaning"`
	IsSameDayService    bool            `json:"is_same_day_service"`
	PriceMultiplier     decimal.Decimal `json:"price_multiplier"`
}

func (f ExtraServiceLineFacts) isDeep() bool {
	return f.IsDeepCleaning || f.IsSuperDeepCleaning
}

// =====================================================
// INPUT
// =====================================================

// SelectionLine is one selected service or extra service as submitted by the client.
type SelectionLine struct {
	LineID   uuid.UUID       `json:"line_id"`
	Quantity int             `json:"quantity"`
	Hours    decimal.Decimal `json:"hours"`
}

// CustomPricing overrides rule composition for manually negotiated jobs.
// Nil fields fall back to the service type defaults.
type CustomPricing struct {
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	DurationMinutes *int             `json:"duration_minutes,omitempty"`
	MaidsCount      *int             `json:"maids_count,omitempty"`
}

// Discounts are the amounts produced by the promotion and subscription
// collaborators for a given subtotal.
type Discounts struct {
	Promo        decimal.Decimal
	Subscription decimal.Decimal
}

// DiscountFunc resolves discounts once the undiscounted subtotal is known.
type DiscountFunc func(subtotal decimal.Decimal) (Discounts, error)

// GiftCardQuote describes a gift card as seen before it is debited.
// A Requested amount <= 0 means "as much as the balance allows".
type GiftCardQuote struct {
	Requested decimal.Decimal
	Available decimal.Decimal
}

type Input struct {
	ServiceType  ServiceTypeFacts
	ServiceLines map[uuid.UUID]ServiceLineFacts
	ExtraLines   map[uuid.UUID]ExtraServiceLineFacts

	Services []SelectionLine
	Extras   []SelectionLine

	Custom *CustomPricing

	ClientDurationMinutes *decimal.Decimal
	ClientMaidsCount      *int

	Discounts             DiscountFunc
	Tips                  decimal.Decimal
	CompanyDevelopmentTip decimal.Decimal
	GiftCard              *GiftCardQuote
}

// =====================================================
// OUTPUT
// =====================================================

type LineKind string

const (
	LineKindBase            LineKind = "base"
	LineKindService         LineKind = "service"
	LineKindExtra           LineKind = "extra"
	LineKindDeepCleaningFee LineKind = "deep_cleaning_fee"
	LineKindCustom          LineKind = "custom"
)

type LineItem struct {
	Kind            LineKind        `json:"kind"`
	LineID          *uuid.UUID      `json:"line_id,omitempty"`
	Name            string          `json:"name"`
	Quantity        int             `json:"quantity"`
	Hours           decimal.Decimal `json:"hours"`
	Cost            decimal.Decimal `json:"cost"`
	DurationMinutes decimal.Decimal `json:"duration_minutes"`
}

// Aggregate is the result of walking every selected line.
type Aggregate struct {
	Subtotal              decimal.Decimal
	ComputedDuration      decimal.Decimal
	TotalDurationMinutes  decimal.Decimal
	MaidsCount            int
	ActiveMultiplier      decimal.Decimal
	DeepCleaningFee       decimal.Decimal
	ClientDurationApplied bool
	LineItems             []LineItem
}

type PricedOrder struct {
	Subtotal                   decimal.Decimal `json:"subtotal"`
	DiscountAmount             decimal.Decimal `json:"discount_amount"`
	SubscriptionDiscountAmount decimal.Decimal `json:"subscription_discount_amount"`
	DiscountedSubtotal         decimal.Decimal `json:"discounted_subtotal"`
	Tax                        decimal.Decimal `json:"tax"`
	Tips                       decimal.Decimal `json:"tips"`
	CompanyDevelopmentTip      decimal.Decimal `json:"company_development_tip"`
	TotalBeforeGiftCard        decimal.Decimal `json:"total_before_gift_card"`
	GiftCardAmountUsed         decimal.Decimal `json:"gift_card_amount_used"`
	Total                      decimal.Decimal `json:"total"`
	TotalDurationMinutes       decimal.Decimal `json:"total_duration_minutes"`
	MaidsCount                 int             `json:"maids_count"`
	ActiveMultiplier           decimal.Decimal `json:"active_multiplier"`
	IsCustomPricing            bool            `json:"is_custom_pricing"`
	LineItems                  []LineItem      `json:"line_items"`

	// ComputedDurationMinutes is the server duration before reconciliation.
	ComputedDurationMinutes decimal.Decimal `json:"-"`
	ClientDurationApplied   bool            `json:"-"`
}

// IsNegative reports whether discounts pushed the charge below zero.
func (p *PricedOrder) IsNegative() bool {
	return p.Total.IsNegative()
}
