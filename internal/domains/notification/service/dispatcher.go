package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"cleaning-backend/internal/shared"
	"cleaning-backend/pkg/logger"
)

// Dispatcher queues booking notifications. Both methods are fire-and-forget:
// failures are logged and never returned.
type Dispatcher interface {
	NotifyCustomerBookingConfirmed(ctx context.Context, p shared.BookingNotificationPayload)
	NotifyCompanyNewBooking(ctx context.Context, p shared.BookingNotificationPayload)
}

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type asynqDispatcher struct {
	client   Enqueuer
	maxRetry int
}

func NewDispatcher(client Enqueuer, maxRetry int) Dispatcher {
	return &asynqDispatcher{client: client, maxRetry: maxRetry}
}

func (d *asynqDispatcher) NotifyCustomerBookingConfirmed(ctx context.Context, p shared.BookingNotificationPayload) {
	d.enqueue(ctx, shared.TypeNotifyCustomerBookingConfirmed, p)
}

func (d *asynqDispatcher) NotifyCompanyNewBooking(ctx context.Context, p shared.BookingNotificationPayload) {
	d.enqueue(ctx, shared.TypeNotifyCompanyNewBooking, p)
}

func (d *asynqDispatcher) enqueue(ctx context.Context, taskType string, p shared.BookingNotificationPayload) {
	data, err := json.Marshal(p)
	if err != nil {
		logger.Error("Failed to marshal notification payload", err)
		return
	}

	task := asynq.NewTask(taskType, data)
	_, err = d.client.EnqueueContext(ctx, task,
		asynq.Queue(shared.QueueNotification),
		asynq.MaxRetry(d.maxRetry),
		// one task per order and type
		asynq.TaskID(fmt.Sprintf("%s:%s", taskType, p.OrderID)),
	)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return
		}
		logger.ErrorWithFields("Failed to enqueue notification", err, map[string]interface{}{
			"task_type": taskType,
			"order_id":  p.OrderID,
		})
	}
}
