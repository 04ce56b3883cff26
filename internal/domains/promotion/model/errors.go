package model

import "errors"

var (
	ErrPromotionNotFound  = errors.New("promotion not found")
	ErrPromotionExhausted = errors.New("promotion usage limit reached")
)

// Messages returned in ValidationResult.Message.
const (
	MsgNotFound         = "Promo code does not exist"
	MsgInactive         = "Promo code is not active"
	MsgNotStarted       = "Promo code is not active yet"
	MsgExpired          = "Promo code has expired"
	MsgUsageLimit       = "Promo code usage limit reached"
	MsgUserLimit        = "You have already used this promo code"
	MsgMinOrderNotMet   = "Order amount is below the promo code minimum"
	MsgApplied          = "Promo code applied"
	MsgInvalidDiscounts = "Promo code has an invalid discount type"
)
