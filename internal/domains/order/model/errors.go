package model

import (
	"errors"

	"github.com/google/uuid"
)

// =====================================================
// CUSTOM ERROR CODES
// =====================================================
const (
	ErrCodeInvalidInput        = "ORD_INVALID_INPUT"
	ErrCodeDiscountConflict    = "ORD_DISCOUNT_CONFLICT"
	ErrCodeTxFailed            = "ORD_TX_FAILED"
	ErrCodePaymentSetupFailed  = "ORD_PAYMENT_SETUP_FAILED"
	ErrCodePaymentGateway      = "ORD_PAYMENT_GATEWAY_FAILED"
	ErrCodeNegativeTotal       = "ORD_NEGATIVE_TOTAL"
	ErrCodeOrderNotFound       = "ORD_NOT_FOUND"
	ErrCodePaymentNotCompleted = "ORD_PAYMENT_NOT_COMPLETED"
	ErrCodeCannotCancel        = "ORD_CANNOT_CANCEL"
	ErrCodeCannotUpdate        = "ORD_CANNOT_UPDATE"
	ErrCodeVersionMismatch     = "ORD_VERSION_MISMATCH"
	ErrCodeUnauthorized        = "ORD_UNAUTHORIZED"
)

// =====================================================
// ERROR DEFINITIONS
// =====================================================
var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderCannotCancel   = errors.New("order cannot be cancelled")
	ErrOrderCannotUpdate   = errors.New("order cannot be updated")
	ErrVersionMismatch     = errors.New("version mismatch - concurrent modification detected")
	ErrNegativeTotal       = errors.New("discounts exceed the order amount")
	ErrPaymentNotCompleted = errors.New("payment has not been completed")
	ErrNoPaymentIntent     = errors.New("order has no payment intent")
	ErrAlreadyPaid         = errors.New("order is already paid")
	ErrDuplicatePayment    = errors.New("payment captured on an order that cannot take it")
)

// =====================================================
// CUSTOM ERROR TYPE
// =====================================================
type OrderError struct {
	Code    string
	Message string
	Err     error

	// OrderID is set when the order was persisted before the failure,
	// so the caller can retry against it.
	OrderID *uuid.UUID
}

func (e *OrderError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *OrderError) Unwrap() error {
	return e.Err
}

// NewOrderError creates a new OrderError
func NewOrderError(code, message string, err error) *OrderError {
	return &OrderError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithOrder attaches the id of the persisted order.
func (e *OrderError) WithOrder(id uuid.UUID) *OrderError {
	e.OrderID = &id
	return e
}
