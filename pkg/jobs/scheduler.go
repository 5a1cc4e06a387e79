package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/filtros/pkg/async"
	"github.com/platinummonkey/filtros/pkg/observability"
)

// Job is a named unit of periodic work.
type Job struct {
	Name     string
	Schedule string
	Timeout  time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler runs jobs on cron schedules. Each run gets its own timeout and
// panic recovery; a failing run is logged and retried on the next tick.
type Scheduler struct {
	cron   *cron.Cron
	logger *observability.Logger

	mu   sync.Mutex
	ctx  context.Context
	jobs []Job
}

// NewScheduler creates a scheduler. Schedules use the standard five field
// syntax plus descriptors such as "@every 1m".
func NewScheduler(logger *observability.Logger) *Scheduler {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger: logger.WithField("component", "jobs"),
		ctx:    context.Background(),
	}
}

// Add registers a job. It fails when the schedule does not parse.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("job needs a name and a function")
	}
	if job.Timeout <= 0 {
		job.Timeout = time.Minute
	}
	if _, err := s.cron.AddFunc(job.Schedule, func() { s.execute(s.context(), job) }); err != nil {
		return fmt.Errorf("schedule %s (%q): %w", job.Name, job.Schedule, err)
	}

	s.mu.Lock()
	s.jobs = append(s.jobs, job)
	s.mu.Unlock()
	return nil
}

// Jobs returns the registered jobs.
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Job(nil), s.jobs...)
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

func (s *Scheduler) execute(ctx context.Context, job Job) error {
	start := time.Now()
	log := s.logger.WithField("job", job.Name)
	log.Debug("Job started")

	err := async.Run(ctx, s.logger, job.Timeout, job.Name, job.Run)
	log = log.WithField("duration_ms", time.Since(start).Milliseconds())
	if err != nil {
		log.WithError(err).Error("Job failed")
		return err
	}
	log.Debug("Job completed")
	return nil
}

// RunOnce runs every registered job once, concurrently, and returns the failures.
func (s *Scheduler) RunOnce(ctx context.Context) []error {
	return async.Batch(ctx, s.logger, s.Jobs(), 4, "jobs", time.Hour, func(ctx context.Context, job Job) error {
		return s.execute(ctx, job)
	})
}

// Start begins running jobs on their schedules until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	n := len(s.jobs)
	s.mu.Unlock()

	s.cron.Start()
	s.logger.WithField("jobs", n).Info("Scheduler started")
}

// Stop stops scheduling and waits for running jobs, or until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
