package aggregation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	v1 "github.com/smart-student/stats-engine/internal/api/v1"
	"github.com/smart-student/stats-engine/internal/core/storage"
	"github.com/smart-student/stats-engine/internal/metrics"
)

// Job is one full rebuild: scan the records store, then write the snapshot.
// Every invocation surface runs this same job.
type Job struct {
	aggregator *Aggregator
	cache      StatsCacheStore
}

// NewJob creates a rebuild job.
func NewJob(aggregator *Aggregator, cache StatsCacheStore) *Job {
	return &Job{aggregator: aggregator, cache: cache}
}

// Run rebuilds year and persists the result. The result is returned on every
// path; err is non-nil exactly when result.Success is false.
func (j *Job) Run(ctx context.Context, year int, sel v1.Selection) (*v1.RebuildResult, error) {
	start := time.Now()

	result, err := j.aggregator.Rebuild(ctx, year, sel)
	if err != nil {
		return result, err
	}

	lastUpdated, err := j.cache.Write(ctx, year, result)
	if err != nil {
		metrics.CacheWriteErrors.Inc()
		err = fmt.Errorf("write stats cache: %w", err)
		slog.Error("[RebuildJob] Cache write failed",
			"year", year,
			"run_id", result.RunID,
			"error", err,
		)
		return result.Failed(err, storage.IsConfigError(err), time.Since(start)), err
	}

	result.LastUpdated = &lastUpdated
	result.DurationMs = time.Since(start).Milliseconds()

	slog.Info("[RebuildJob] Rebuild complete",
		"year", year,
		"run_id", result.RunID,
		"selection", sel.Key(),
		"months", len(result.Monthly),
		"courses", len(result.Courses),
		"duration_ms", result.DurationMs,
	)
	return result, nil
}

// Cache returns the store the job writes to.
func (j *Job) Cache() StatsCacheStore {
	return j.cache
}
