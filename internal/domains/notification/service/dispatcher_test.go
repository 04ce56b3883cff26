package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cleaning-backend/internal/shared"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{Type: task.Type()}, nil
}

func TestDispatcher_Enqueues(t *testing.T) {
	q := &fakeEnqueuer{}
	d := NewDispatcher(q, 3)
	p := shared.BookingNotificationPayload{OrderID: "o-1", CustomerEmail: "a@b.c", Total: "113.20"}

	d.NotifyCustomerBookingConfirmed(context.Background(), p)
	d.NotifyCompanyNewBooking(context.Background(), p)

	require.Len(t, q.tasks, 2)
	assert.Equal(t, shared.TypeNotifyCustomerBookingConfirmed, q.tasks[0].Type())
	assert.Equal(t, shared.TypeNotifyCompanyNewBooking, q.tasks[1].Type())

	var got shared.BookingNotificationPayload
	require.NoError(t, json.Unmarshal(q.tasks[0].Payload(), &got))
	assert.Equal(t, p, got)
}

func TestDispatcher_SwallowsFailures(t *testing.T) {
	q := &fakeEnqueuer{err: errors.New("redis down")}
	d := NewDispatcher(q, 3)

	assert.NotPanics(t, func() {
		d.NotifyCustomerBookingConfirmed(context.Background(), shared.BookingNotificationPayload{OrderID: "o-2"})
	})
}
