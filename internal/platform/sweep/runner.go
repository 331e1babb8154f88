// Package sweep owns the daily trigger for the reminder sweep. The
// scheduler itself is stateless; this runner decides when it fires and
// what happens on failure (log and retry at the next firing).
package sweep

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinictrack/clinictrack/internal/adherence"
)

// SweepFunc runs one sweep for the given calendar day and reports how
// many reminders it created.
type SweepFunc func(ctx context.Context, today time.Time) (int, error)

// Observer receives the outcome of each run. Satisfied by
// telemetry.Metrics.
type Observer interface {
	ObserveSweep(created int, err error)
}

type Runner struct {
	sweep    SweepFunc
	hour     int
	logger   zerolog.Logger
	observer Observer

	now func() time.Time
}

// NewRunner fires sweep once per day at the given local hour (0-23).
func NewRunner(sweep SweepFunc, hour int, logger zerolog.Logger, observer Observer) *Runner {
	return &Runner{
		sweep:    sweep,
		hour:     hour,
		logger:   logger,
		observer: observer,
		now:      time.Now,
	}
}

// nextFiring returns the next occurrence of the configured hour after now.
func (r *Runner) nextFiring(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), r.hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Start blocks until ctx is cancelled, firing the sweep at each
// scheduled time. Run it in its own goroutine.
func (r *Runner) Start(ctx context.Context) {
	for {
		now := r.now()
		next := r.nextFiring(now)
		timer := time.NewTimer(next.Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce triggers a single sweep for today. Used by the timer loop,
// the admin endpoint and the CLI command.
func (r *Runner) RunOnce(ctx context.Context) (int, error) {
	now := r.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	created, err := r.sweep(ctx, today)
	if r.observer != nil {
		r.observer.ObserveSweep(created, err)
	}
	switch {
	case errors.Is(err, adherence.ErrSweepInProgress):
		r.logger.Warn().Time("day", today).Msg("sweep skipped, previous run still in flight")
	case err != nil:
		r.logger.Error().Err(err).Time("day", today).Msg("daily sweep failed, will retry at next firing")
	default:
		r.logger.Info().Time("day", today).Int("reminders_created", created).Msg("daily sweep finished")
	}
	return created, err
}
