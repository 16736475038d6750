package v1

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseSelection(t *testing.T) {
	tests := []struct {
		name    string
		what    []string
		want    Selection
		wantKey string
		wantErr bool
	}{
		{name: "empty means all", what: nil, want: SelectAll(), wantKey: "all"},
		{name: "explicit all", what: []string{"all"}, want: SelectAll(), wantKey: "all"},
		{name: "all wins over others", what: []string{"grades", "all"}, want: SelectAll(), wantKey: "all"},
		{name: "attendance only", what: []string{"attendance"}, want: Selection{Attendance: true}, wantKey: "attendance"},
		{name: "grades only, case insensitive", what: []string{" Grades "}, want: Selection{Grades: true}, wantKey: "grades"},
		{name: "both sections", what: []string{"attendance", "grades"}, want: SelectAll(), wantKey: "all"},
		{name: "unknown section", what: []string{"payments"}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseSelection(tc.what)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
			require.Equal(t, tc.wantKey, got.Key())
		})
	}
}

func TestRebuildResult_Failed(t *testing.T) {
	res := &RebuildResult{
		Year:       2025,
		Success:    true,
		Attendance: &AttendanceSummary{TotalRecords: 3},
		Monthly:    []MonthlyBreakdown{{Month: 1}},
	}
	res.Failed(errors.New("boom"), true, 1500*time.Millisecond)

	require.False(t, res.Success)
	require.Nil(t, res.Attendance)
	require.Nil(t, res.Monthly)
	require.True(t, res.AuthError)
	require.Equal(t, "boom", res.Error)
	require.Equal(t, int64(1500), res.DurationMs)
}

func TestControlID(t *testing.T) {
	require.Equal(t, "rebuild_2025", ControlID(2025))
}

func TestValidateYear(t *testing.T) {
	require.NoError(t, ValidateYear(2025))
	require.NoError(t, ValidateYear(MinYear))
	require.Error(t, ValidateYear(0))
	require.Error(t, ValidateYear(20250))
}
