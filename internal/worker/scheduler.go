// Package worker drives the daily background jobs. All jobs share one
// once-per-day-with-catch-up trigger instead of carrying their own polling
// loops.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-tracker/internal/clock"
	"github.com/spec-kit/sla-tracker/internal/observability"
)

// JobFunc runs one daily pass for the given calendar date.
type JobFunc func(ctx context.Context, today time.Time) error

// DailyJob is a named unit of once-per-day work. lastRunDate is
// process-local; after a restart the job looks never-run, which is what
// enables catch-up.
type DailyJob struct {
	Name string
	Run  JobFunc

	lastRunDate time.Time
}

// Scheduler polls the clock and fires every registered job exactly once
// per calendar day at (or, catching up, after) the target time-of-day.
type Scheduler struct {
	clock     clock.Clock
	target    time.Duration
	tolerance time.Duration
	poll      time.Duration
	jobs      []*DailyJob
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewScheduler builds a scheduler. target is the time-of-day offset from
// midnight in the operating timezone.
func NewScheduler(clk clock.Clock, target, tolerance, poll time.Duration, metrics *observability.Metrics, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		clock:     clk,
		target:    target,
		tolerance: tolerance,
		poll:      poll,
		metrics:   metrics,
		logger:    logger,
	}
}

// Register adds a named daily job. Not safe to call after Start.
func (s *Scheduler) Register(name string, run JobFunc) {
	s.jobs = append(s.jobs, &DailyJob{Name: name, Run: run})
}

// Start runs the polling loop until ctx is cancelled. Sleeps between
// ticks; an in-flight pass finishes at the job boundary.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	s.logger.Info("scheduler started",
		zap.Duration("target", s.target),
		zap.Duration("tolerance", s.tolerance),
		zap.Int("jobs", len(s.jobs)),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick fires every due job once. A job error leaves its checkpoint
// untouched so the next tick retries the whole pass.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.clock.Now()
	today := s.clock.Today()

	for _, job := range s.jobs {
		if !s.due(job, now, today) {
			continue
		}
		s.logger.Info("daily job firing", zap.String("job", job.Name), zap.String("date", today.Format("2006-01-02")))
		if err := job.Run(ctx, today); err != nil {
			s.metrics.RecordSchedulerPass(job.Name, false)
			s.logger.Error("daily job failed; will retry next tick",
				zap.String("job", job.Name),
				zap.Error(err),
			)
			continue
		}
		job.lastRunDate = today
		s.metrics.RecordSchedulerPass(job.Name, true)
	}
}

// due evaluates the two trigger conditions: the normal window around the
// target time, and catch-up once the window has already passed today
// without a run.
func (s *Scheduler) due(job *DailyJob, now, today time.Time) bool {
	if job.lastRunDate.Equal(today) {
		return false
	}
	timeOfDay := time.Duration(now.Hour())*time.Hour +
		time.Duration(now.Minute())*time.Minute +
		time.Duration(now.Second())*time.Second

	diff := timeOfDay - s.target
	inWindow := diff >= -s.tolerance && diff <= s.tolerance
	missedWindow := diff > s.tolerance
	return inWindow || missedWindow
}
