// Package controller decides when rebuilds run. Unconditional callers get
// per-year coalescing; write-triggered callers are debounced through the
// control record of the year.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/smart-student/stats-engine/internal/aggregation"
	v1 "github.com/smart-student/stats-engine/internal/api/v1"
	"github.com/smart-student/stats-engine/internal/metrics"
	"golang.org/x/sync/singleflight"
)

const (
	defaultMaxDuration = 9 * time.Minute
	defaultDebounce    = 5 * time.Minute
	defaultStaleAfter  = 15 * time.Minute
	finishTimeout      = 10 * time.Second
)

// ControlStore persists the per-year rebuild control records.
type ControlStore interface {
	TryBegin(ctx context.Context, year int, now time.Time, debounce, staleAfter time.Duration) (bool, error)
	IncrementPending(ctx context.Context, year int, now time.Time) (int, error)
	Finish(ctx context.Context, year int, status v1.RebuildState, completedAt *time.Time, lastError string, now time.Time) error
	Get(ctx context.Context, year int) (*v1.RebuildControl, error)
	ListPending(ctx context.Context, now time.Time, debounce, staleAfter time.Duration) ([]int, error)
}

// Options tunes the controller.
type Options struct {
	// MaxDuration bounds one rebuild run regardless of the caller's deadline.
	MaxDuration time.Duration
	// Debounce is the minimum interval between write-triggered rebuilds of a year.
	Debounce time.Duration
	// StaleAfter is how long a rebuild may stay "rebuilding" before another
	// trigger may take it over.
	StaleAfter time.Duration
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		MaxDuration: defaultMaxDuration,
		Debounce:    defaultDebounce,
		StaleAfter:  defaultStaleAfter,
	}
}

func (o Options) normalized() Options {
	n := o
	if n.MaxDuration <= 0 {
		n.MaxDuration = defaultMaxDuration
	}
	if n.Debounce <= 0 {
		n.Debounce = defaultDebounce
	}
	if n.StaleAfter <= 0 {
		n.StaleAfter = defaultStaleAfter
	}
	return n
}

// Decision is the outcome of a write trigger.
type Decision string

const (
	DecisionStarted   Decision = "started"
	DecisionDebounced Decision = "debounced"
)

// TriggerOutcome reports what a write trigger did. Result is set only when a
// rebuild ran.
type TriggerOutcome struct {
	Year         int               `json:"year"`
	Decision     Decision          `json:"decision"`
	PendingCount int               `json:"pendingCount"`
	Result       *v1.RebuildResult `json:"result,omitempty"`
}

// Controller is the single entry point every surface goes through.
type Controller struct {
	job     *aggregation.Job
	control ControlStore
	opts    Options
	group   singleflight.Group
	now     func() time.Time
}

// New creates a Controller.
func New(job *aggregation.Job, control ControlStore, opts Options) *Controller {
	if job == nil {
		panic("controller: job must not be nil")
	}
	if control == nil {
		panic("controller: control store must not be nil")
	}
	return &Controller{
		job:     job,
		control: control,
		opts:    opts.normalized(),
		now:     time.Now,
	}
}

// Rebuild runs an unconditional rebuild of year. Concurrent calls for the same
// year and selection share one run. The run is detached from ctx: when ctx
// expires first the caller gets a failed result while the run keeps going.
func (c *Controller) Rebuild(ctx context.Context, year int, sel v1.Selection, surface v1.Surface) *v1.RebuildResult {
	return c.await(ctx, fmt.Sprintf("%d/%s", year, sel.Key()), year, sel, surface)
}

// await runs or joins the in-flight run registered under key.
func (c *Controller) await(ctx context.Context, key string, year int, sel v1.Selection, surface v1.Surface) *v1.RebuildResult {
	start := c.now()
	ch := c.group.DoChan(key, func() (interface{}, error) {
		return c.run(ctx, year, sel), nil
	})

	select {
	case r := <-ch:
		if r.Shared {
			metrics.CoalescedTotal.Inc()
		}
		// Shared callers must not see each other's edits.
		res := *r.Val.(*v1.RebuildResult)
		c.observe(surface, &res)
		return &res
	case <-ctx.Done():
		elapsed := c.now().Sub(start)
		err := fmt.Errorf("rebuild of %d did not finish in time: %w", year, ctx.Err())
		res := (&v1.RebuildResult{Year: year}).Failed(err, false, elapsed)
		res.Message = "the rebuild continues in the background"

		slog.Warn("[Controller] Caller deadline reached before rebuild finished",
			"year", year,
			"surface", surface,
			"duration_ms", res.DurationMs,
		)
		metrics.RebuildsTotal.WithLabelValues(string(surface), metrics.OutcomeTimeout).Inc()
		return res
	}
}

// run executes the job under its own deadline. A panic becomes a failed result.
func (c *Controller) run(ctx context.Context, year int, sel v1.Selection) (res *v1.RebuildResult) {
	start := c.now()
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.MaxDuration)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			slog.Error("[Controller] Rebuild panicked", "year", year, "panic", p)
			res = (&v1.RebuildResult{Year: year}).Failed(fmt.Errorf("rebuild panicked: %v", p), false, c.now().Sub(start))
		}
	}()

	res, _ = c.job.Run(runCtx, year, sel)
	return res
}

func (c *Controller) observe(surface v1.Surface, res *v1.RebuildResult) {
	outcome := metrics.OutcomeSuccess
	switch {
	case res.AuthError:
		outcome = metrics.OutcomeConfigError
	case !res.Success:
		outcome = metrics.OutcomeFailure
	}
	metrics.RebuildsTotal.WithLabelValues(string(surface), outcome).Inc()
	metrics.RebuildDuration.WithLabelValues(string(surface)).Observe(float64(res.DurationMs) / 1000)
}

// Trigger handles a record write for year. It begins a rebuild only when the
// debounce window of the year allows it; otherwise it records the suppressed
// trigger so the pending sweep picks it up later.
func (c *Controller) Trigger(ctx context.Context, year int) (*TriggerOutcome, error) {
	now := c.now()
	began, err := c.control.TryBegin(ctx, year, now, c.opts.Debounce, c.opts.StaleAfter)
	if err != nil {
		return nil, fmt.Errorf("begin rebuild of %d: %w", year, err)
	}

	if !began {
		pending, err := c.control.IncrementPending(ctx, year, now)
		if err != nil {
			return nil, fmt.Errorf("record pending trigger of %d: %w", year, err)
		}
		metrics.TriggersTotal.WithLabelValues(string(DecisionDebounced)).Inc()
		slog.Info("[Controller] Trigger debounced", "year", year, "pending", pending)
		return &TriggerOutcome{Year: year, Decision: DecisionDebounced, PendingCount: pending}, nil
	}

	metrics.TriggersTotal.WithLabelValues(string(DecisionStarted)).Inc()
	slog.Info("[Controller] Trigger started rebuild", "year", year)

	res := c.runControlled(ctx, year)
	return &TriggerOutcome{Year: year, Decision: DecisionStarted, Result: res}, nil
}

// runControlled runs a rebuild begun by TryBegin and always records its end on
// the control record. The caller waits for the run itself; its cancellation
// does not leave the record in "rebuilding".
func (c *Controller) runControlled(ctx context.Context, year int) (res *v1.RebuildResult) {
	detached := context.WithoutCancel(ctx)

	defer func() {
		var (
			status      = v1.StateIdle
			completedAt *time.Time
			lastError   string
		)
		if p := recover(); p != nil {
			lastError = fmt.Sprintf("panic: %v", p)
			res = (&v1.RebuildResult{Year: year}).Failed(errors.New(lastError), false, 0)
		} else if res.Success {
			status = v1.StateCompleted
			t := c.now()
			completedAt = &t
		} else {
			lastError = res.Error
		}

		finishCtx, cancel := context.WithTimeout(detached, finishTimeout)
		defer cancel()
		if err := c.control.Finish(finishCtx, year, status, completedAt, lastError, c.now()); err != nil {
			slog.Error("[Controller] Failed to record rebuild end",
				"year", year,
				"status", status,
				"error", err,
			)
		}
	}()

	// A triggered run never joins an unconditional one: that run may have read
	// the partition before the triggering record was written.
	return c.await(detached, fmt.Sprintf("trigger/%d", year), year, v1.SelectAll(), v1.SurfaceTriggered)
}

// SweepPending re-triggers every year whose suppressed triggers are past the
// debounce window. Returns how many rebuilds it started.
func (c *Controller) SweepPending(ctx context.Context) (int, error) {
	years, err := c.control.ListPending(ctx, c.now(), c.opts.Debounce, c.opts.StaleAfter)
	if err != nil {
		return 0, fmt.Errorf("list pending years: %w", err)
	}

	started := 0
	for _, year := range years {
		out, err := c.Trigger(ctx, year)
		if err != nil {
			slog.Error("[Controller] Pending trigger failed", "year", year, "error", err)
			continue
		}
		if out.Decision == DecisionStarted {
			started++
		}
	}
	return started, nil
}

// Control returns the control record of year, or storage.ErrNotFound when the
// year was never triggered.
func (c *Controller) Control(ctx context.Context, year int) (*v1.RebuildControl, error) {
	return c.control.Get(ctx, year)
}

// Cache returns the cache store rebuilds write to.
func (c *Controller) Cache() aggregation.StatsCacheStore {
	return c.job.Cache()
}
