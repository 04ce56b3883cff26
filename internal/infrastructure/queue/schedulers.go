package queue

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"cleaning-backend/internal/config"
	"cleaning-backend/internal/shared"
	"cleaning-backend/pkg/logger"
)

// Registrar is the part of asynq.Scheduler the periodic jobs need.
type Registrar interface {
	Register(cronspec string, task *asynq.Task, opts ...asynq.Option) (string, error)
}

type Scheduler struct {
	scheduler *asynq.Scheduler
	registrar Registrar
	jobConfig config.JobConfig
}

func NewScheduler(redisOpt asynq.RedisClientOpt, jobConfig config.JobConfig) *Scheduler {
	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)

	return &Scheduler{
		scheduler: scheduler,
		registrar: scheduler,
		jobConfig: jobConfig,
	}
}

// RegisterJobs registers every periodic job.
func (s *Scheduler) RegisterJobs() error {
	if err := s.registerReconcilePendingPaymentsJob(); err != nil {
		return err
	}

	return nil
}

// ================================================
// Reconcile pending payments
// ================================================
// Picks up orders whose gateway webhook never arrived.
func (s *Scheduler) registerReconcilePendingPaymentsJob() error {
	payload, err := json.Marshal(shared.ReconcilePendingPaymentsPayload{})
	if err != nil {
		return err
	}

	task := asynq.NewTask(shared.TypeReconcilePendingPayments, payload)

	entryID, err := s.registrar.Register(
		s.jobConfig.ReconcileCron,
		task,
		asynq.Queue(shared.QueueCritical),
		asynq.MaxRetry(1),
		asynq.Timeout(5*time.Minute),
		// a slow sweep must not overlap the next tick
		asynq.Unique(10*time.Minute),
	)
	if err != nil {
		logger.Error("Failed to register ReconcilePendingPayments job", err)
		return err
	}

	logger.Info("✓ Registered ReconcilePendingPayments", map[string]interface{}{
		"cron":     s.jobConfig.ReconcileCron,
		"entry_id": entryID,
	})
	return nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Run()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
