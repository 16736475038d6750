package memory

import (
	"context"
	"testing"

	v1 "github.com/smart-student/stats-engine/internal/api/v1"
	"github.com/smart-student/stats-engine/internal/core/records"
	"github.com/smart-student/stats-engine/internal/core/storage"
	"github.com/stretchr/testify/require"
)

const fixtureYAML = `
courses:
  c2: {gradeName: "2B"}
  c1: {name: "1A"}
sections:
  c1: [{id: s1}, {id: s2}]
  c2: [{id: s3}]
users:
  - {id: u1, role: estudiante}
  - {id: u2, role: Student}
  - {id: u3, role: profesor}
  - {id: u4, role: admin}
attendance:
  c1:
    - {id: a1, year: 2025, status: present, date: "2025-03-04"}
    - {id: a2, year: "2025", status: ABSENT, dateString: "05/04/2025"}
    - {id: a3, year: 2024, status: late, date: "2024-03-04"}
    - {year: 2025, status: late}
grades:
  c1:
    - {id: g1, year: "2025", score: 70}
    - {id: g2, year: 2025, grade: 5.5}
    - {id: g3, year: 2025, note: "no score"}
`

func TestParseFixture(t *testing.T) {
	s, err := ParseFixture([]byte(fixtureYAML))
	require.NoError(t, err)
	ctx := context.Background()

	courses, err := s.ListCourses(ctx)
	require.NoError(t, err)
	require.Equal(t, []v1.Course{{ID: "c1", Name: "1A"}, {ID: "c2", Name: "2B"}}, courses)

	n, err := s.CountSections(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	roles, err := s.CountUsersByRole(ctx)
	require.NoError(t, err)
	require.Equal(t, map[v1.Role]int{v1.RoleStudent: 2, v1.RoleTeacher: 1, v1.RoleOther: 1}, roles)
}

func TestRecordStore_YearEncodingsAreDisjoint(t *testing.T) {
	s, err := ParseFixture([]byte(fixtureYAML))
	require.NoError(t, err)
	ctx := context.Background()

	numeric, err := s.FindAttendance(ctx, "c1", storage.YearKey{Year: 2025})
	require.NoError(t, err)
	require.Len(t, numeric, 2)
	require.Equal(t, "a1", numeric[0].ID)
	require.Equal(t, 3, numeric[0].Month)
	require.Equal(t, "_a4", numeric[1].ID, "documents without id get a generated one")
	require.Equal(t, 1, numeric[1].Month)

	str, err := s.FindAttendance(ctx, "c1", storage.YearKey{Year: 2025, AsString: true})
	require.NoError(t, err)
	require.Equal(t, []v1.AttendanceRecord{
		{ID: "a2", CourseID: "c1", Year: 2025, Status: v1.StatusAbsent, Month: 4},
	}, str)

	grades, err := s.FindGrades(ctx, "c1", storage.YearKey{Year: 2025})
	require.NoError(t, err)
	require.Equal(t, []v1.GradeRecord{{ID: "g2", CourseID: "c1", Year: 2025, Score: 5.5}}, grades)

	grades, err = s.FindGrades(ctx, "c1", storage.YearKey{Year: 2025, AsString: true})
	require.NoError(t, err)
	require.Equal(t, []v1.GradeRecord{{ID: "g1", CourseID: "c1", Year: 2025, Score: 70}}, grades)
}

func TestRecordStore_GeneratedIDsDoNotCollide(t *testing.T) {
	s := NewRecordStore()
	ctx := context.Background()

	s.AddAttendance("c1", records.Document{"year": 2025, "status": "present"})
	s.AddAttendance("c1", records.Document{"id": "a1", "year": 2025, "status": "absent"})
	s.AddAttendance("c1", records.Document{"id": "_a4", "year": 2025, "status": "late"})
	s.AddAttendance("c1", records.Document{"year": 2025, "status": "present"})
	s.AddAttendance("c1", records.Document{"year": 2025, "status": "absent"})

	recs, err := s.FindAttendance(ctx, "c1", storage.YearKey{Year: 2025})
	require.NoError(t, err)
	require.Len(t, recs, 5)

	ids := make(map[string]struct{}, len(recs))
	for _, r := range recs {
		ids[r.ID] = struct{}{}
	}
	require.Len(t, ids, 5, "every record keeps a distinct id")
	for _, id := range []string{"_a1", "a1", "_a4", "_a5", "_a6"} {
		require.Contains(t, ids, id)
	}
}

func TestRecordStore_CancelledContext(t *testing.T) {
	s := NewRecordStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.FindAttendance(ctx, "c1", storage.YearKey{Year: 2025})
	require.ErrorIs(t, err, context.Canceled)
}
