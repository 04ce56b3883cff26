package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"

	"cleaning-backend/internal/domains/order/model"
	"cleaning-backend/internal/shared"
)

type fakeReconciler struct {
	minAge time.Duration
	limit  int
	result *model.ReconcileResult
	err    error
}

func (f *fakeReconciler) ReconcilePendingPayments(_ context.Context, minAge time.Duration, limit int) (*model.ReconcileResult, error) {
	f.minAge, f.limit = minAge, limit
	return f.result, f.err
}

func TestReconcileHandler_PassesLimits(t *testing.T) {
	r := &fakeReconciler{result: &model.ReconcileResult{Checked: 3, Confirmed: 1, Failed: 1}}
	h := NewReconcilePendingPaymentsHandler(r, 5*time.Minute, 50)

	err := h.ProcessTask(context.Background(), asynq.NewTask(shared.TypeReconcilePendingPayments, nil))

	assert.NoError(t, err)
	assert.Equal(t, 5*time.Minute, r.minAge)
	assert.Equal(t, 50, r.limit)
}

func TestReconcileHandler_SweepErrorIsReturned(t *testing.T) {
	r := &fakeReconciler{err: errors.New("db down")}
	h := NewReconcilePendingPaymentsHandler(r, time.Minute, 10)

	err := h.ProcessTask(context.Background(), asynq.NewTask(shared.TypeReconcilePendingPayments, nil))

	assert.ErrorContains(t, err, "db down")
}
