package projection

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	v1 "github.com/smart-student/stats-engine/internal/api/v1"
	"github.com/smart-student/stats-engine/internal/core/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededCache(t *testing.T) *memory.CacheStore {
	t.Helper()
	cache := memory.NewCacheStore()
	_, err := cache.Write(context.Background(), 2025, &v1.RebuildResult{
		Year:       2025,
		Success:    true,
		Attendance: &v1.AttendanceSummary{TotalRecords: 4, PresentCount: 3, AbsentCount: 1, AttendanceRate: 75},
		General:    &v1.GeneralSummary{TotalStudents: 30, TotalCourses: 2, TotalSections: 4, TotalTeachers: 3},
		Monthly:    []v1.MonthlyBreakdown{{Month: 3, MonthName: "Marzo", TotalRecords: 4, PresentCount: 3, AbsentCount: 1, AttendanceRate: 75}},
		Courses:    []v1.CourseBreakdown{{CourseID: "c1", CourseName: "1A", TotalRecords: 4, PresentCount: 3, AbsentCount: 1, AttendanceRate: 75}},
	})
	require.NoError(t, err)
	return cache
}

func TestService_Summary(t *testing.T) {
	svc := NewService(seededCache(t), time.UTC)

	resp, err := svc.Summary(context.Background(), SummaryRequest{Year: 2025})
	require.NoError(t, err)
	require.True(t, resp.Cached)
	require.False(t, resp.NeedsRebuild)
	require.NotNil(t, resp.LastUpdated)
	require.NotNil(t, resp.KPIs)

	require.NotNil(t, resp.KPIs.AttendanceRate)
	assert.Equal(t, 75.0, *resp.KPIs.AttendanceRate)
	assert.Equal(t, 4, resp.KPIs.TotalAttendanceRecords)
	assert.Nil(t, resp.KPIs.AverageGrade, "grades were never computed")
	assert.Nil(t, resp.KPIs.ApprovalRate)
	assert.Equal(t, 30, resp.KPIs.StudentsCount)
	assert.Equal(t, 4, resp.KPIs.SectionsCount)

	assert.Nil(t, resp.Monthly)
	assert.Nil(t, resp.Courses)
}

func TestService_SummaryWithBreakdowns(t *testing.T) {
	svc := NewService(seededCache(t), time.UTC)

	resp, err := svc.Summary(context.Background(), SummaryRequest{Year: 2025, IncludeMonthly: true, IncludeCourses: true})
	require.NoError(t, err)
	require.NotNil(t, resp.Monthly)
	require.Len(t, *resp.Monthly, 1)
	assert.Equal(t, "Marzo", (*resp.Monthly)[0].MonthName)
	require.NotNil(t, resp.Courses)
	require.Len(t, *resp.Courses, 1)
	assert.Equal(t, "c1", (*resp.Courses)[0].CourseID)
}

func TestService_SummaryNeedsRebuild(t *testing.T) {
	svc := NewService(seededCache(t), time.UTC)

	resp, err := svc.Summary(context.Background(), SummaryRequest{Year: 2019})
	require.NoError(t, err)
	assert.False(t, resp.Cached)
	assert.True(t, resp.NeedsRebuild)
	assert.Nil(t, resp.KPIs)
	assert.NotEmpty(t, resp.Message)
}

func TestService_SummaryDefaultsToCurrentYear(t *testing.T) {
	loc, err := time.LoadLocation("America/Santiago")
	require.NoError(t, err)
	svc := NewService(seededCache(t), loc)
	svc.nowFn = func() time.Time { return time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC) }

	resp, err := svc.Summary(context.Background(), SummaryRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2025, resp.Year)
	assert.True(t, resp.Cached)
}

func TestService_SummaryInvalidYear(t *testing.T) {
	svc := NewService(seededCache(t), time.UTC)

	_, err := svc.Summary(context.Background(), SummaryRequest{Year: 12})
	require.ErrorIs(t, err, ErrInvalidQuery)
}
