package jobs

import (
	"fmt"
	"time"

	"tripmeet-backend/internal/config"
	"tripmeet-backend/internal/logger"
	"tripmeet-backend/internal/repository"
	"tripmeet-backend/internal/service"
)

// Job names accepted by Run.
const (
	JobDrainOutbox        = "drain-outbox"
	JobPurgeNotifications = "purge-notifications"
	JobPurgeOutbox        = "purge-outbox"
	JobAll                = "all"
)

// maxDrainRounds bounds a single DrainOutbox run so a steady stream of new
// tasks cannot keep one job alive forever.
const maxDrainRounds = 20

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	services *Services
	notes    repository.NotificationRepository
	outbox   repository.OutboxRepository
	config   *config.Config
	now      func() time.Time
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Fanout service.FanoutService
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(services *Services, notes repository.NotificationRepository, outbox repository.OutboxRepository, cfg *config.Config) *JobRunner {
	return &JobRunner{
		services: services,
		notes:    notes,
		outbox:   outbox,
		config:   cfg,
		now:      time.Now,
	}
}

// Config returns the configuration the runner was built with
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// SetClock overrides the time source used for retention cut-offs.
func (jr *JobRunner) SetClock(now func() time.Time) {
	jr.now = now
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}

// Run executes a job by name (for manual execution)
func (jr *JobRunner) Run(name string) error {
	switch name {
	case JobDrainOutbox:
		jr.DrainOutbox()
	case JobPurgeNotifications:
		jr.PurgeNotifications()
	case JobPurgeOutbox:
		jr.PurgeOutbox()
	case JobAll:
		jr.RunAll()
	default:
		return fmt.Errorf("unknown job %q", name)
	}
	return nil
}

// RunAll runs every job once
func (jr *JobRunner) RunAll() {
	jr.DrainOutbox()
	jr.PurgeNotifications()
	jr.PurgeOutbox()
}
