package gateway

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =====================================================
// GATEWAY INTERFACE
// =====================================================

// PaymentGateway is the opaque card processor used by checkout.
type PaymentGateway interface {
	// CreateIntent requests a payment intent for amount (in major units).
	CreateIntent(ctx context.Context, req CreateIntentRequest) (*Intent, error)

	// GetIntent fetches the current state of an intent.
	GetIntent(ctx context.Context, intentID string) (*Intent, error)

	// CancelIntent voids an intent that was never paid.
	CancelIntent(ctx context.Context, intentID string) error

	// ParseWebhook verifies the signature and decodes a gateway event.
	ParseWebhook(payload []byte, signature string) (*Event, error)
}

type IntentStatus string

const (
	IntentStatusPending   IntentStatus = "pending"
	IntentStatusSucceeded IntentStatus = "succeeded"
	IntentStatusCanceled  IntentStatus = "canceled"
)

type CreateIntentRequest struct {
	OrderID        uuid.UUID
	Amount         decimal.Decimal
	Currency       string
	Description    string
	CustomerEmail  string
	Metadata       map[string]string
	IdempotencyKey string
}

type Intent struct {
	ID           string
	ClientSecret string
	Status       IntentStatus
	Amount       decimal.Decimal
	Currency     string
	Metadata     map[string]string
}

type EventType string

const (
	EventIntentSucceeded EventType = "payment_intent.succeeded"
	EventIntentFailed    EventType = "payment_intent.payment_failed"
	EventIntentCanceled  EventType = "payment_intent.canceled"
)

type Event struct {
	ID       string
	Type     EventType
	IntentID string
	OrderID  string
}

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrIntentNotFound   = errors.New("payment intent not found")
	ErrInvalidAmount    = errors.New("payment amount must be positive")
)

// MetadataOrderID is the metadata key carrying the order id on every intent.
const MetadataOrderID = "order_id"

// ToMinorUnits converts a major-unit amount into cents.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// FromMinorUnits converts cents into a major-unit amount.
func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
