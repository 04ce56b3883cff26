package queue

import (
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cleaning-backend/internal/config"
	"cleaning-backend/internal/shared"
)

type recordingRegistrar struct {
	specs []string
	tasks []*asynq.Task
	err   error
}

func (r *recordingRegistrar) Register(cronspec string, task *asynq.Task, _ ...asynq.Option) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.specs = append(r.specs, cronspec)
	r.tasks = append(r.tasks, task)
	return "entry-1", nil
}

func TestRegisterJobs(t *testing.T) {
	reg := &recordingRegistrar{}
	s := &Scheduler{registrar: reg, jobConfig: config.JobConfig{ReconcileCron: "*/5 * * * *"}}

	require.NoError(t, s.RegisterJobs())

	require.Len(t, reg.tasks, 1)
	assert.Equal(t, "*/5 * * * *", reg.specs[0])
	assert.Equal(t, shared.TypeReconcilePendingPayments, reg.tasks[0].Type())
	assert.JSONEq(t, `{}`, string(reg.tasks[0].Payload()))
}

func TestRegisterJobs_PropagatesError(t *testing.T) {
	reg := &recordingRegistrar{err: errors.New("bad cron")}
	s := &Scheduler{registrar: reg, jobConfig: config.JobConfig{ReconcileCron: "nope"}}

	assert.EqualError(t, s.RegisterJobs(), "bad cron")
}
