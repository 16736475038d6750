package records

import (
	"testing"
	"time"

	v1 "github.com/smart-student/stats-engine/internal/api/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDateTime time.Time

func (d fakeDateTime) Time() time.Time { return time.Time(d) }

func TestParseYear(t *testing.T) {
	tests := []struct {
		name   string
		in     interface{}
		want   int
		wantOK bool
	}{
		{name: "json number", in: float64(2025), want: 2025, wantOK: true},
		{name: "int32 from bson", in: int32(2024), want: 2024, wantOK: true},
		{name: "numeric string", in: "2025", want: 2025, wantOK: true},
		{name: "padded string", in: " 2023 ", want: 2023, wantOK: true},
		{name: "fractional number", in: 2025.5, wantOK: false},
		{name: "garbage string", in: "next year", wantOK: false},
		{name: "nil", in: nil, wantOK: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseYear(tc.in)
			require.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				require.Equal(t, tc.want, got)
			}
		})
	}
}

func TestNormalizeStatus(t *testing.T) {
	assert.Equal(t, v1.StatusPresent, NormalizeStatus("present"))
	assert.Equal(t, v1.StatusAbsent, NormalizeStatus("ABSENT"))
	assert.Equal(t, v1.StatusLate, NormalizeStatus(" Late"))
	assert.Equal(t, v1.StatusExcused, NormalizeStatus("excused"))
	assert.Equal(t, v1.StatusPresent, NormalizeStatus("unknown"))
	assert.Equal(t, v1.StatusPresent, NormalizeStatus(nil))
	assert.Equal(t, v1.StatusPresent, NormalizeStatus(42))
}

func TestExtractMonth(t *testing.T) {
	march := time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		doc  Document
		want int
	}{
		{name: "iso date", doc: Document{"date": "2025-03-14"}, want: 3},
		{name: "iso datetime", doc: Document{"date": "2025-11-02T10:00:00Z"}, want: 11},
		{name: "slash date", doc: Document{"date": "14/07/2025"}, want: 7},
		{name: "falls back to dateString", doc: Document{"dateString": "2025-09-01"}, want: 9},
		{name: "empty date falls back", doc: Document{"date": "", "dateString": "2025-10-01"}, want: 10},
		{name: "time value", doc: Document{"date": march}, want: 3},
		{name: "driver datetime", doc: Document{"date": fakeDateTime(march)}, want: 3},
		{name: "serialized timestamp", doc: Document{"date": map[string]interface{}{"_seconds": float64(march.Unix())}}, want: 3},
		{name: "missing date", doc: Document{}, want: DefaultMonth},
		{name: "unparseable string", doc: Document{"date": "yesterday"}, want: DefaultMonth},
		{name: "out of range month", doc: Document{"date": "2025-13-01"}, want: DefaultMonth},
		{name: "zero month", doc: Document{"date": "2025-00-01"}, want: DefaultMonth},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ExtractMonth(tc.doc))
		})
	}
}

func TestExtractScore(t *testing.T) {
	tests := []struct {
		name   string
		doc    Document
		want   float64
		wantOK bool
	}{
		{name: "score preferred", doc: Document{"score": 80.0, "grade": 5.0}, want: 80, wantOK: true},
		{name: "grade fallback", doc: Document{"grade": 6.5}, want: 6.5, wantOK: true},
		{name: "non numeric score falls back", doc: Document{"score": "n/a", "grade": 4.0}, want: 4, wantOK: true},
		{name: "numeric string", doc: Document{"score": "72.5"}, want: 72.5, wantOK: true},
		{name: "int64 from bson", doc: Document{"score": int64(90)}, want: 90, wantOK: true},
		{name: "neither field", doc: Document{"comment": "absent from exam"}, wantOK: false},
		{name: "nan string", doc: Document{"score": "NaN"}, wantOK: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractScore(tc.doc)
			require.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				require.InDelta(t, tc.want, got, 1e-9)
			}
		})
	}
}

func TestNormalizeRole(t *testing.T) {
	assert.Equal(t, v1.RoleStudent, NormalizeRole("student"))
	assert.Equal(t, v1.RoleStudent, NormalizeRole("Estudiante"))
	assert.Equal(t, v1.RoleTeacher, NormalizeRole("teacher"))
	assert.Equal(t, v1.RoleTeacher, NormalizeRole("PROFESOR"))
	assert.Equal(t, v1.RoleOther, NormalizeRole("admin"))
	assert.Equal(t, v1.RoleOther, NormalizeRole(nil))
}

func TestCourseName(t *testing.T) {
	assert.Equal(t, "Matemáticas", CourseName("c1", Document{"name": "Matemáticas", "gradeName": "1A"}))
	assert.Equal(t, "1A", CourseName("c1", Document{"name": "  ", "gradeName": "1A"}))
	assert.Equal(t, "c1", CourseName("c1", Document{}))
}

func TestGrade(t *testing.T) {
	rec, ok := Grade("g1", "c1", 2025, Document{"grade": 5.5, "scale": "numeric"})
	require.True(t, ok)
	require.Equal(t, v1.GradeRecord{ID: "g1", CourseID: "c1", Year: 2025, Score: 5.5, Scale: v1.ScaleNumeric}, rec)

	_, ok = Grade("g2", "c1", 2025, Document{"grade": nil})
	require.False(t, ok)
}

func TestAttendance(t *testing.T) {
	rec := Attendance("a1", "c1", 2025, Document{"status": "LATE", "date": "2025-04-02"})
	require.Equal(t, v1.AttendanceRecord{ID: "a1", CourseID: "c1", Year: 2025, Status: v1.StatusLate, Month: 4}, rec)
}
