package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountType represents valid discount types
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

// Promotion is a promo code campaign.
type Promotion struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`

	// Discount configuration
	DiscountType      DiscountType     `json:"discount_type"`
	DiscountValue     decimal.Decimal  `json:"discount_value"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount,omitempty"`

	// Conditions
	MinOrderAmount decimal.Decimal `json:"min_order_amount"`

	// Usage limits
	MaxUses        *int `json:"max_uses,omitempty"`
	MaxUsesPerUser int  `json:"max_uses_per_user"`
	CurrentUses    int  `json:"current_uses"`

	// Validity
	StartsAt  time.Time `json:"starts_at"`
	ExpiresAt time.Time `json:"expires_at"`

	IsActive  bool      `json:"is_active"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PromotionUsage tracks which user used which promotion on which order.
type PromotionUsage struct {
	ID             uuid.UUID       `json:"id"`
	PromotionID    uuid.UUID       `json:"promotion_id"`
	UserID         uuid.UUID       `json:"user_id"`
	OrderID        uuid.UUID       `json:"order_id"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	UsedAt         time.Time       `json:"used_at"`
}

// ValidationResult is the answer to "can this code be used on this amount".
type ValidationResult struct {
	IsValid        bool            `json:"is_valid"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Message        string          `json:"message"`
	Promotion      *Promotion      `json:"-"`
}

func Invalid(message string) *ValidationResult {
	return &ValidationResult{IsValid: false, DiscountAmount: decimal.Zero, Message: message}
}
