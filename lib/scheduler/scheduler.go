// Package scheduler runs the periodic jobs of the services (continuous miner, background wallet sync) on a cron
// scheduler. Jobs run on fixed "@every" intervals, panics are recovered and logged, and overlapping runs are left to
// the job itself: a job that must not overlap guards its own resource.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/tarancss/zecdev/lib/logging"
)

// Scheduler manages the periodic jobs.
type Scheduler struct {
	cron *cron.Cron
	log  *zap.Logger
}

// New creates a new Scheduler.
func New(log *zap.Logger) *Scheduler {
	cl := logging.CronLogger(log)

	return &Scheduler{
		cron: cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
		log:  log.Named("scheduler"),
	}
}

// Every registers job to run every interval. The first run happens one interval after Start.
func (s *Scheduler) Every(name string, interval time.Duration, job cron.Job) error {
	if interval <= 0 {
		return fmt.Errorf("register %s: interval must be positive, got %s", name, interval)
	}

	if _, err := s.cron.AddJob(fmt.Sprintf("@every %s", interval), job); err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}

	s.log.Info("job registered", zap.String("job", name), zap.Duration("interval", interval))

	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops the scheduler and waits for running jobs to complete, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("scheduler stop: jobs still running", zap.Error(ctx.Err()))
	}

	s.log.Info("scheduler stopped")
}

// Run starts the scheduler, blocks until ctx is done and then stops it.
func (s *Scheduler) Run(ctx context.Context) {
	s.Start()
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second) //nolint:gomnd // grace period
	defer cancel()

	s.Stop(stopCtx)
}
