package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrGiftCardNotFound = errors.New("gift card not found")
	ErrGiftCardInactive = errors.New("gift card is not active")
	ErrGiftCardExpired  = errors.New("gift card has expired")
	ErrGiftCardEmpty    = errors.New("gift card has no remaining balance")
	ErrInvalidAmount    = errors.New("gift card amount must be positive")
	ErrAlreadyApplied   = errors.New("gift card already applied to this order")
)

type GiftCard struct {
	ID            uuid.UUID       `json:"id"`
	Code          string          `json:"code"`
	InitialAmount decimal.Decimal `json:"initial_amount"`
	Balance       decimal.Decimal `json:"balance"`
	IsActive      bool            `json:"is_active"`
	ExpiresAt     *time.Time      `json:"expires_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Usable reports why the card cannot be spent at now, or nil.
func (g *GiftCard) Usable(now time.Time) error {
	switch {
	case !g.IsActive:
		return ErrGiftCardInactive
	case g.ExpiresAt != nil && now.After(*g.ExpiresAt):
		return ErrGiftCardExpired
	case !g.Balance.IsPositive():
		return ErrGiftCardEmpty
	}
	return nil
}

// Usage is one debit of a gift card for an order.
type Usage struct {
	ID         uuid.UUID       `json:"id"`
	GiftCardID uuid.UUID       `json:"gift_card_id"`
	OrderID    uuid.UUID       `json:"order_id"`
	UserID     uuid.UUID       `json:"user_id"`
	Amount     decimal.Decimal `json:"amount"`
	CreatedAt  time.Time       `json:"created_at"`
}

type ValidationResult struct {
	IsValid          bool            `json:"is_valid"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	Message          string          `json:"message"`
}
