package memory

import (
	"context"
	"sync"
	"time"

	v1 "github.com/smart-student/stats-engine/internal/api/v1"
	"github.com/smart-student/stats-engine/internal/core/storage"
)

type snapshot struct {
	root    v1.StatsCache
	monthly []v1.MonthlyBreakdown
	courses []v1.CourseBreakdown
}

// CacheStore keeps one snapshot per year. Each write swaps the whole snapshot
// under the lock.
type CacheStore struct {
	mu    sync.RWMutex
	years map[int]*snapshot
	now   func() time.Time
}

// NewCacheStore creates an empty cache store.
func NewCacheStore() *CacheStore {
	return &CacheStore{years: make(map[int]*snapshot), now: time.Now}
}

// Write stores the rebuild result of year. Summaries the result does not carry
// keep their cached value.
func (c *CacheStore) Write(ctx context.Context, year int, result *v1.RebuildResult) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	next := &snapshot{root: v1.StatsCache{Year: year}}
	prev, exists := c.years[year]
	if exists {
		next.root = prev.root
	}

	now := c.now().UTC()
	if exists && !now.After(prev.root.LastUpdated) {
		now = prev.root.LastUpdated.Add(time.Microsecond)
	}
	next.root.LastUpdated = now

	if result.Attendance != nil {
		a := *result.Attendance
		next.root.Attendance = &a
	}
	if result.Grades != nil {
		g := *result.Grades
		next.root.Grades = &g
	}
	next.root.General = v1.GeneralSummary{}
	if result.General != nil {
		next.root.General = *result.General
	}
	next.monthly = append([]v1.MonthlyBreakdown(nil), result.Monthly...)
	next.courses = append([]v1.CourseBreakdown(nil), result.Courses...)

	c.years[year] = next
	return now, nil
}

func (c *CacheStore) Read(_ context.Context, year int) (*v1.StatsCache, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap, ok := c.years[year]
	if !ok {
		return nil, storage.ErrNotFound
	}
	root := snap.root
	return &root, nil
}

func (c *CacheStore) ReadMonthly(_ context.Context, year int) ([]v1.MonthlyBreakdown, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := []v1.MonthlyBreakdown{}
	if snap, ok := c.years[year]; ok {
		out = append(out, snap.monthly...)
	}
	return out, nil
}

func (c *CacheStore) ReadCourses(_ context.Context, year int) ([]v1.CourseBreakdown, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := []v1.CourseBreakdown{}
	if snap, ok := c.years[year]; ok {
		out = append(out, snap.courses...)
	}
	return out, nil
}

// ReadSnapshot copies the root entry and the requested breakdowns under one
// read lock.
func (c *CacheStore) ReadSnapshot(_ context.Context, year int, includeMonthly, includeCourses bool) (*v1.CacheSnapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap, ok := c.years[year]
	if !ok {
		return nil, storage.ErrNotFound
	}
	root := snap.root
	out := &v1.CacheSnapshot{Cache: &root}
	if includeMonthly {
		out.Monthly = append([]v1.MonthlyBreakdown{}, snap.monthly...)
	}
	if includeCourses {
		out.Courses = append([]v1.CourseBreakdown{}, snap.courses...)
	}
	return out, nil
}
