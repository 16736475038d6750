package app

import (
	"context"
	"fmt"
	"time"

	v1 "github.com/smart-student/stats-engine/internal/api/v1"
	"github.com/smart-student/stats-engine/internal/core/storage"
)

// unavailable stands in for a store that could not be opened for lack of
// valid credentials. Every call fails with an error that storage.IsConfigError
// recognizes, so surfaces answer with a soft configuration error.
type unavailable struct {
	err error
}

func (u unavailable) fail() error {
	if u.err == nil {
		return storage.ErrNotConfigured
	}
	return fmt.Errorf("store unavailable: %w", u.err)
}

func (u unavailable) ListCourses(context.Context) ([]v1.Course, error) { return nil, u.fail() }

func (u unavailable) FindAttendance(context.Context, string, storage.YearKey) ([]v1.AttendanceRecord, error) {
	return nil, u.fail()
}

func (u unavailable) FindGrades(context.Context, string, storage.YearKey) ([]v1.GradeRecord, error) {
	return nil, u.fail()
}

func (u unavailable) CountSections(context.Context, string) (int, error) { return 0, u.fail() }

func (u unavailable) CountUsersByRole(context.Context) (map[v1.Role]int, error) {
	return nil, u.fail()
}

func (u unavailable) Ping(context.Context) error { return u.fail() }

func (u unavailable) Write(context.Context, int, *v1.RebuildResult) (time.Time, error) {
	return time.Time{}, u.fail()
}

func (u unavailable) Read(context.Context, int) (*v1.StatsCache, error) { return nil, u.fail() }

func (u unavailable) ReadMonthly(context.Context, int) ([]v1.MonthlyBreakdown, error) {
	return nil, u.fail()
}

func (u unavailable) ReadCourses(context.Context, int) ([]v1.CourseBreakdown, error) {
	return nil, u.fail()
}

func (u unavailable) ReadSnapshot(context.Context, int, bool, bool) (*v1.CacheSnapshot, error) {
	return nil, u.fail()
}

func (u unavailable) TryBegin(context.Context, int, time.Time, time.Duration, time.Duration) (bool, error) {
	return false, u.fail()
}

func (u unavailable) IncrementPending(context.Context, int, time.Time) (int, error) {
	return 0, u.fail()
}

func (u unavailable) Finish(context.Context, int, v1.RebuildState, *time.Time, string, time.Time) error {
	return u.fail()
}

func (u unavailable) Get(context.Context, int) (*v1.RebuildControl, error) { return nil, u.fail() }

func (u unavailable) ListPending(context.Context, time.Time, time.Duration, time.Duration) ([]int, error) {
	return nil, u.fail()
}
