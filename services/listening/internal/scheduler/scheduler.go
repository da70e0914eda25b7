// Package scheduler runs the daily playlist refresh.
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultHour and DefaultMinute place the refresh in the nightly
	// low-traffic window.
	DefaultHour   = 1
	DefaultMinute = 31
)

// Job is the work a tick triggers.
type Job func(ctx context.Context) error

// Scheduler fires a job once per day at a fixed local wall-clock time.
// Overlapping ticks are skipped, not queued; a failed run waits for the
// next day's tick.
type Scheduler struct {
	Job Job
	Log *zap.Logger

	Hour   int
	Minute int

	// Interval overrides the daily cadence when set. Tests use short
	// intervals instead of waiting for wall-clock time.
	Interval time.Duration

	running atomic.Bool
}

func New(job Job, log *zap.Logger) *Scheduler {
	return &Scheduler{Job: job, Log: log, Hour: DefaultHour, Minute: DefaultMinute}
}

// Run blocks until ctx is canceled, firing the job on schedule.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		timer := time.NewTimer(s.untilNext(time.Now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		s.tick(ctx)
	}
}

// tick runs the job unless a previous run is still going.
func (s *Scheduler) tick(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.Log.Warn("refresh still running, skipping tick")
		return
	}
	defer s.running.Store(false)

	start := time.Now()
	if err := s.Job(ctx); err != nil {
		s.Log.Error("scheduled refresh failed", zap.Error(err))
		return
	}
	s.Log.Info("scheduled refresh complete", zap.Duration("took", time.Since(start)))
}

func (s *Scheduler) untilNext(now time.Time) time.Duration {
	if s.Interval > 0 {
		return s.Interval
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), s.Hour, s.Minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
