package job

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"cleaning-backend/internal/domains/order/model"
)

// Reconciler is the slice of the order service the sweep needs.
type Reconciler interface {
	ReconcilePendingPayments(ctx context.Context, minAge time.Duration, limit int) (*model.ReconcileResult, error)
}

// ReconcilePendingPaymentsHandler confirms orders whose payment succeeded
// at the gateway but whose webhook never reached us.
type ReconcilePendingPaymentsHandler struct {
	orders Reconciler
	minAge time.Duration
	limit  int
}

func NewReconcilePendingPaymentsHandler(orders Reconciler, minAge time.Duration, limit int) *ReconcilePendingPaymentsHandler {
	return &ReconcilePendingPaymentsHandler{orders: orders, minAge: minAge, limit: limit}
}

func (h *ReconcilePendingPaymentsHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	start := time.Now()

	result, err := h.orders.ReconcilePendingPayments(ctx, h.minAge, h.limit)
	if err != nil {
		log.Error().Err(err).Str("task", task.Type()).Msg("Reconcile sweep failed")
		return fmt.Errorf("reconcile pending payments: %w", err)
	}

	log.Info().
		Int("checked", result.Checked).
		Int("confirmed", result.Confirmed).
		Int("failed", result.Failed).
		Dur("took", time.Since(start)).
		Msg("Reconcile sweep finished")

	// per-order failures are retried by the next tick, not by asynq
	return nil
}
