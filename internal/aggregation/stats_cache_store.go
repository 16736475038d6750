package aggregation

import (
	"context"
	"time"

	v1 "github.com/smart-student/stats-engine/internal/api/v1"
)

// StatsCacheStore persists one snapshot per academic year.
//
// Contract: Write replaces the root entry and both breakdown collections as
// one unit. Readers observe either the previous snapshot or the new one,
// never a mix. Summaries absent from the result (attendance or grades not
// selected) keep their previously cached values. lastUpdated strictly
// increases across writes of the same year.
type StatsCacheStore interface {
	// Write stores the snapshot of a successful rebuild and returns the
	// lastUpdated it was stored with.
	Write(ctx context.Context, year int, result *v1.RebuildResult) (time.Time, error)

	// Read returns the root entry of year, or storage.ErrNotFound.
	Read(ctx context.Context, year int) (*v1.StatsCache, error)

	// ReadMonthly returns the monthly breakdowns of year ordered by month.
	ReadMonthly(ctx context.Context, year int) ([]v1.MonthlyBreakdown, error)

	// ReadCourses returns the course breakdowns of year ordered by course id.
	ReadCourses(ctx context.Context, year int) ([]v1.CourseBreakdown, error)

	// ReadSnapshot reads the root entry and the requested breakdowns of year
	// as of a single write. It returns storage.ErrNotFound when the year has
	// no root entry.
	ReadSnapshot(ctx context.Context, year int, includeMonthly, includeCourses bool) (*v1.CacheSnapshot, error)
}
