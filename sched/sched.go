// Package sched repeats the update cycle at a fixed delay for a bounded
// or unbounded number of runs.
package sched

import (
	"context"
	"fmt"

	"cfupdater/common"
	"cfupdater/log"

	"go.uber.org/zap"
)

// Job is one update cycle. A failed job is logged and charged against the
// run budget exactly like a successful one.
type Job func(ctx context.Context) error

// Scheduler runs a job once, then re-runs it on a fixed delay measured
// from the end of one run to the start of the next. Slow runs drift the
// grid; that is accepted, not compensated.
type Scheduler struct {
	mode  common.Mode
	runs  int
	clock common.Clock
}

// New validates the schedule shape up front: a repeat mode must map to a
// positive interval (a zero interval would busy-loop) and the run count
// must not be negative. runs == 0 means unbounded.
func New(mode common.Mode, runs int, clock common.Clock) (*Scheduler, error) {
	if runs < 0 {
		return nil, fmt.Errorf("invalid run count: %d", runs)
	}

	if mode != common.ModeNone && mode.Interval() <= 0 {
		return nil, fmt.Errorf("invalid schedule mode: %s", mode)
	}

	if clock == nil {
		clock = common.RealClock()
	}

	return &Scheduler{mode: mode, runs: runs, clock: clock}, nil
}

// Run blocks until the run budget is spent or ctx is canceled. The first
// run always happens synchronously, before any schedule is consulted.
func (s *Scheduler) Run(ctx context.Context, job Job) error {
	ctx = log.SWith(ctx, log.Stage("schedule"), "mode", s.mode.String(), "total_runs", s.runs)

	s.runOne(ctx, job, 1)

	if s.mode == common.ModeNone {
		return nil
	}

	interval := s.mode.Interval()
	runsLeft := s.runs - 1

	for n := 2; s.runs == 0 || runsLeft > 0; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		select {
		case <-s.clock.After(interval):
		case <-ctx.Done():
			return ctx.Err()
		}

		s.runOne(ctx, job, n)
		runsLeft--
	}

	log.S(ctx).Infow("run budget spent, stopping")

	return nil
}

func (s *Scheduler) runOne(ctx context.Context, job Job, n int) {
	ctx = log.SWith(ctx, "run", n)

	log.S(ctx).Infow("running scheduled update")

	if err := job(ctx); err != nil {
		log.S(ctx).Errorw("cycle failed", zap.Error(err))
	}
}
