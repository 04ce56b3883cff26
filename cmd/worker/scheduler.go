package main

import (
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"cleaning-backend/internal/config"
	"cleaning-backend/internal/infrastructure/queue"
	"cleaning-backend/pkg/logger"
)

// asynqScheduler wraps queue.Scheduler with additional functionality
type asynqScheduler struct {
	*queue.Scheduler
}

// setupScheduler creates and configures the scheduler
func setupScheduler(cfg *config.Config) *asynqScheduler {
	scheduler := queue.NewScheduler(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Host,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cfg.Jobs)

	if err := scheduler.RegisterJobs(); err != nil {
		log.Fatal().Err(err).Msg("[Scheduler] Failed to register")
	}

	go func() {
		logger.Info("[Scheduler] Starting...", nil)
		if err := scheduler.Start(); err != nil {
			log.Fatal().Err(err).Msg("[Scheduler] Failed")
		}
	}()

	return &asynqScheduler{Scheduler: scheduler}
}

// Shutdown gracefully shuts down the scheduler
func (s *asynqScheduler) Shutdown() {
	logger.Info("[Scheduler] Shutting down...", nil)
	s.Scheduler.Shutdown()
}
