package model

import (
	"time"

	"github.com/google/uuid"
)

// =====================================================
// PAYMENT WEBHOOK EVENT
// =====================================================

// WebhookEvent is the audit record of one verified gateway event.
// GatewayEventID is unique, so redeliveries land on the same row.
type WebhookEvent struct {
	ID             uuid.UUID  `json:"id"`
	GatewayEventID string     `json:"gateway_event_id"`
	EventType      string     `json:"event_type"`
	IntentID       string     `json:"intent_id,omitempty"`
	OrderID        *uuid.UUID `json:"order_id,omitempty"`

	IsProcessed     bool    `json:"is_processed"`
	ProcessingError *string `json:"processing_error,omitempty"`
	DeliveryCount   int     `json:"delivery_count"`

	ReceivedAt  time.Time  `json:"received_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// MarkProcessed records the handling outcome; a nil err means success.
func (w *WebhookEvent) MarkProcessed(at time.Time, err error) {
	if err != nil {
		msg := err.Error()
		w.ProcessingError = &msg
		w.IsProcessed = false
		return
	}
	w.IsProcessed = true
	w.ProcessingError = nil
	w.ProcessedAt = &at
}
