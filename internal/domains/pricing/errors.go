package pricing

import "errors"

var (
	ErrNegativeQuantity  = errors.New("quantity must not be negative")
	ErrNegativeHours     = errors.New("hours must not be negative")
	ErrNegativeTip       = errors.New("tips must not be negative")
	ErrNegativeDiscount  = errors.New("discount must not be negative")
	ErrInvalidCustomRate = errors.New("custom pricing values must not be negative")
)
