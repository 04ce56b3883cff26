package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"cleaning-backend/internal/domains/payment/model"
)

// WebhookRepository keeps the audit trail of gateway events and lets the
// webhook handler skip redeliveries it already processed.
type WebhookRepository interface {
	// Record inserts the event or bumps the delivery count of an existing row.
	// It reports whether the event was already processed successfully.
	Record(ctx context.Context, e *model.WebhookEvent) (alreadyProcessed bool, err error)

	// Finish stores the outcome of processing.
	Finish(ctx context.Context, e *model.WebhookEvent) error
}

// =====================================================
// WEBHOOK EVENT REPOSITORY IMPLEMENTATION
// =====================================================
type webhookRepository struct {
	pool *pgxpool.Pool
}

func NewWebhookRepository(pool *pgxpool.Pool) WebhookRepository {
	return &webhookRepository{pool: pool}
}

func (r *webhookRepository) Record(ctx context.Context, e *model.WebhookEvent) (bool, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.ReceivedAt.IsZero() {
		e.ReceivedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO payment_webhook_events (
			id, gateway_event_id, event_type, intent_id, order_id, received_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (gateway_event_id) DO UPDATE SET
			delivery_count = payment_webhook_events.delivery_count + 1
		RETURNING id, is_processed, delivery_count
	`

	err := r.pool.QueryRow(ctx, query,
		e.ID, e.GatewayEventID, e.EventType, e.IntentID, e.OrderID, e.ReceivedAt,
	).Scan(&e.ID, &e.IsProcessed, &e.DeliveryCount)
	if err != nil {
		return false, fmt.Errorf("failed to record webhook event: %w", err)
	}

	return e.IsProcessed, nil
}

func (r *webhookRepository) Finish(ctx context.Context, e *model.WebhookEvent) error {
	query := `
		UPDATE payment_webhook_events
		SET is_processed = $1, processing_error = $2, processed_at = $3, order_id = COALESCE($4, order_id)
		WHERE id = $5
	`

	if _, err := r.pool.Exec(ctx, query, e.IsProcessed, e.ProcessingError, e.ProcessedAt, e.OrderID, e.ID); err != nil {
		return fmt.Errorf("failed to finish webhook event: %w", err)
	}
	return nil
}
