package aggregation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	v1 "github.com/smart-student/stats-engine/internal/api/v1"
	"github.com/smart-student/stats-engine/internal/core/records"
	"github.com/smart-student/stats-engine/internal/core/storage"
	"github.com/smart-student/stats-engine/internal/core/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedYear builds a store with one course holding 70 present, 20 absent,
// 5 late and 5 excused attendance records for 2025, split between both year
// encodings, plus ten grades.
func seedYear(t *testing.T) *memory.RecordStore {
	t.Helper()
	s := memory.NewRecordStore()
	s.PutCourse("c1", records.Document{"name": "1A"})
	s.PutCourse("c2", records.Document{"name": "2B"})
	s.AddSection("c1", records.Document{"id": "s1"})
	s.AddSection("c2", records.Document{"id": "s2"})
	s.AddSection("c2", records.Document{"id": "s3"})
	s.AddUser(records.Document{"role": "student"})
	s.AddUser(records.Document{"role": "estudiante"})
	s.AddUser(records.Document{"role": "teacher"})

	add := func(status string, n int) {
		for i := 0; i < n; i++ {
			var year interface{} = 2025
			if i%2 == 1 {
				year = "2025"
			}
			s.AddAttendance("c1", records.Document{
				"year":   year,
				"status": status,
				"date":   fmt.Sprintf("2025-%02d-10", 3+i%2),
			})
		}
	}
	add("present", 70)
	add("absent", 20)
	add("late", 5)
	add("excused", 5)

	// Another year never leaks into 2025.
	s.AddAttendance("c2", records.Document{"year": 2024, "status": "absent", "date": "2024-05-01"})

	for i, score := range []float64{50, 55, 60, 65, 70, 4.0, 5.5, 6.9, 3.9, 7.0} {
		var year interface{} = 2025
		if i%3 == 0 {
			year = "2025"
		}
		s.AddGrade("c2", records.Document{"year": year, "score": score})
	}
	return s
}

func TestAggregator_Rebuild(t *testing.T) {
	agg := NewAggregator(seedYear(t), DefaultRebuildOptions())

	res, err := agg.Rebuild(context.Background(), 2025, v1.SelectAll())
	require.NoError(t, err)
	require.True(t, res.Success)
	require.NotEmpty(t, res.RunID)

	require.NotNil(t, res.Attendance)
	assert.Equal(t, v1.AttendanceSummary{
		TotalRecords:   100,
		PresentCount:   70,
		AbsentCount:    20,
		LateCount:      5,
		ExcusedCount:   5,
		AttendanceRate: 75,
	}, *res.Attendance)

	require.NotNil(t, res.Grades)
	assert.Equal(t, 10, res.Grades.TotalRecords)
	assert.Equal(t, 7, res.Grades.ApprovedCount)
	assert.Equal(t, 3, res.Grades.FailedCount)
	assert.Equal(t, 70.0, res.Grades.ApprovalRate)
	assert.Equal(t, 32.73, res.Grades.AverageScore)

	require.NotNil(t, res.General)
	assert.Equal(t, v1.GeneralSummary{
		TotalStudents: 2,
		TotalCourses:  2,
		TotalSections: 3,
		TotalTeachers: 1,
	}, *res.General)

	require.Len(t, res.Monthly, 2)
	assert.Equal(t, 3, res.Monthly[0].Month)
	assert.Equal(t, "Marzo", res.Monthly[0].MonthName)
	assert.Equal(t, 100, res.Monthly[0].TotalRecords+res.Monthly[1].TotalRecords)

	require.Len(t, res.Courses, 1, "courses without records of the year are omitted")
	assert.Equal(t, v1.CourseBreakdown{
		CourseID:       "c1",
		CourseName:     "1A",
		AttendanceRate: 75,
		TotalRecords:   100,
		PresentCount:   75,
		AbsentCount:    25,
	}, res.Courses[0])
}

func TestAggregator_RebuildIsDeterministic(t *testing.T) {
	agg := NewAggregator(seedYear(t), RebuildParameter{WorkerCount: 1})

	first, err := agg.Rebuild(context.Background(), 2025, v1.SelectAll())
	require.NoError(t, err)
	second, err := agg.Rebuild(context.Background(), 2025, v1.SelectAll())
	require.NoError(t, err)

	first.RunID, second.RunID = "", ""
	first.DurationMs, second.DurationMs = 0, 0
	require.Equal(t, first, second)
}

func TestAggregator_RebuildSelection(t *testing.T) {
	agg := NewAggregator(seedYear(t), DefaultRebuildOptions())

	res, err := agg.Rebuild(context.Background(), 2025, v1.Selection{Attendance: true})
	require.NoError(t, err)
	require.NotNil(t, res.Attendance)
	require.Nil(t, res.Grades)
	require.NotNil(t, res.General)
	require.NotEmpty(t, res.Monthly)

	res, err = agg.Rebuild(context.Background(), 2025, v1.Selection{Grades: true})
	require.NoError(t, err)
	require.Nil(t, res.Attendance)
	require.NotNil(t, res.Grades)
}

func TestAggregator_EmptyYear(t *testing.T) {
	agg := NewAggregator(seedYear(t), DefaultRebuildOptions())

	res, err := agg.Rebuild(context.Background(), 1999, v1.SelectAll())
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, v1.AttendanceSummary{}, *res.Attendance)
	assert.Equal(t, v1.GradeSummary{}, *res.Grades)
	assert.Empty(t, res.Monthly)
	assert.Empty(t, res.Courses)
	assert.Equal(t, 2, res.General.TotalCourses)
}

// overlapStore returns every record under both year encodings.
type overlapStore struct {
	*memory.RecordStore
}

func (s overlapStore) FindAttendance(ctx context.Context, courseID string, key storage.YearKey) ([]v1.AttendanceRecord, error) {
	return s.RecordStore.FindAttendance(ctx, courseID, storage.YearKey{Year: key.Year})
}

func (s overlapStore) FindGrades(ctx context.Context, courseID string, key storage.YearKey) ([]v1.GradeRecord, error) {
	return s.RecordStore.FindGrades(ctx, courseID, storage.YearKey{Year: key.Year})
}

func TestAggregator_RecordMatchedTwiceCountsOnce(t *testing.T) {
	s := memory.NewRecordStore()
	s.PutCourse("c1", records.Document{"name": "1A"})
	s.AddAttendance("c1", records.Document{"id": "x", "year": 2025, "status": "present"})
	s.AddGrade("c1", records.Document{"id": "y", "year": 2025, "score": 6.0})

	agg := NewAggregator(overlapStore{s}, DefaultRebuildOptions())
	res, err := agg.Rebuild(context.Background(), 2025, v1.SelectAll())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Attendance.TotalRecords)
	assert.Equal(t, 1, res.Grades.TotalRecords)
}

// failingStore fails every partition read with err.
type failingStore struct {
	*memory.RecordStore
	err error
}

func (s failingStore) FindAttendance(context.Context, string, storage.YearKey) ([]v1.AttendanceRecord, error) {
	return nil, s.err
}

func TestAggregator_FailureReportsNoPartials(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantAuth bool
	}{
		{name: "read error", err: errors.New("connection reset"), wantAuth: false},
		{name: "missing credentials", err: fmt.Errorf("dial: %w", storage.ErrNotConfigured), wantAuth: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			agg := NewAggregator(failingStore{RecordStore: seedYear(t), err: tc.err}, DefaultRebuildOptions())

			res, err := agg.Rebuild(context.Background(), 2025, v1.SelectAll())
			require.Error(t, err)
			require.ErrorIs(t, err, tc.err)
			require.False(t, res.Success)
			require.Equal(t, tc.wantAuth, res.AuthError)
			require.Contains(t, res.Error, tc.err.Error())
			require.Nil(t, res.Attendance)
			require.Nil(t, res.General)
			require.Nil(t, res.Monthly)
		})
	}
}

func TestAggregator_CancelledContext(t *testing.T) {
	agg := NewAggregator(seedYear(t), DefaultRebuildOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := agg.Rebuild(ctx, 2025, v1.SelectAll())
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, res.Success)
}
