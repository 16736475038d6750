package aggregation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	v1 "github.com/smart-student/stats-engine/internal/api/v1"
)

// Rebuilder runs an unconditional rebuild.
type Rebuilder interface {
	Rebuild(ctx context.Context, year int, sel v1.Selection, surface v1.Surface) *v1.RebuildResult
}

// PendingSweeper re-triggers years whose write-triggered rebuilds were debounced.
type PendingSweeper interface {
	SweepPending(ctx context.Context) (int, error)
}

// ScheduleParameter configures the scheduler.
type ScheduleParameter struct {
	// Spec is the cron expression of the daily rebuild, e.g. "0 2 * * *".
	Spec string
	// SweepSpec is the cron expression of the pending sweep, e.g. "@every 1m".
	// Empty disables the sweep.
	SweepSpec string
	// Location is the time zone Spec is evaluated in and that decides the
	// current academic year.
	Location *time.Location
}

// Scheduler runs the daily rebuild of the current and previous academic year
// and the periodic sweep of debounced triggers.
type Scheduler struct {
	cron      *cron.Cron
	rebuilder Rebuilder
	sweeper   PendingSweeper
	opts      ScheduleParameter
	now       func() time.Time
}

// NewScheduler registers the jobs. Invalid cron expressions are rejected here
// rather than at Start.
func NewScheduler(rebuilder Rebuilder, sweeper PendingSweeper, opts ScheduleParameter) (*Scheduler, error) {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	logger := cronLogger{}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(opts.Location),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		rebuilder: rebuilder,
		sweeper:   sweeper,
		opts:      opts,
		now:       time.Now,
	}

	if _, err := s.cron.AddFunc(opts.Spec, func() { s.RunDaily(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", opts.Spec, err)
	}
	if opts.SweepSpec != "" && sweeper != nil {
		if _, err := s.cron.AddFunc(opts.SweepSpec, func() { s.RunSweep(context.Background()) }); err != nil {
			return nil, fmt.Errorf("invalid sweep schedule %q: %w", opts.SweepSpec, err)
		}
	}
	return s, nil
}

// Start runs the cron loop until ctx is cancelled, then waits for running
// jobs to finish (bounded by 30s).
func (s *Scheduler) Start(ctx context.Context) error {
	slog.Info("[Scheduler] Starting",
		"schedule", s.opts.Spec,
		"sweep", s.opts.SweepSpec,
		"timezone", s.opts.Location.String(),
	)
	s.cron.Start()

	<-ctx.Done()
	slog.Info("[Scheduler] Stopping (context cancelled)")

	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
		slog.Info("[Scheduler] Running jobs finished")
	case <-time.After(30 * time.Second):
		slog.Warn("[Scheduler] Timed out waiting for running jobs")
	}
	return nil
}

// RunDaily rebuilds the current and the previous academic year, one after the
// other. A failure of one year does not skip the other.
func (s *Scheduler) RunDaily(ctx context.Context) {
	current := s.now().In(s.opts.Location).Year()
	for _, year := range []int{current, current - 1} {
		res := s.rebuilder.Rebuild(ctx, year, v1.SelectAll(), v1.SurfaceScheduled)
		if !res.Success {
			slog.Error("[Scheduler] Scheduled rebuild failed",
				"year", year,
				"auth_error", res.AuthError,
				"error", res.Error,
				"duration_ms", res.DurationMs,
			)
			continue
		}
		slog.Info("[Scheduler] Scheduled rebuild complete",
			"year", year,
			"duration_ms", res.DurationMs,
		)
	}
}

// RunSweep re-triggers debounced years whose window has passed.
func (s *Scheduler) RunSweep(ctx context.Context) {
	n, err := s.sweeper.SweepPending(ctx)
	if err != nil {
		slog.Error("[Scheduler] Pending sweep failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("[Scheduler] Pending sweep rebuilt years", "count", n)
	}
}

// cronLogger routes cron's own logging to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("[Scheduler] "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("[Scheduler] "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
