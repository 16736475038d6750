package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	v1 "github.com/smart-student/stats-engine/internal/api/v1"
	"github.com/smart-student/stats-engine/internal/core/storage"
	"github.com/stretchr/testify/require"
)

func TestControlAdapter_TryBegin(t *testing.T) {
	now := time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		rows *sqlmock.Rows
		want bool
	}{
		{name: "acquired", rows: sqlmock.NewRows([]string{"id"}).AddRow("rebuild_2025"), want: true},
		{name: "debounced", rows: sqlmock.NewRows([]string{"id"}), want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectQuery(regexp.QuoteMeta(queryTryBeginRebuild)).
				WithArgs("rebuild_2025", 2025, now, now.Add(-5*time.Minute), now.Add(-15*time.Minute)).
				WillReturnRows(tc.rows)

			got, err := NewControlAdapter(db).TryBegin(context.Background(), 2025, now, 5*time.Minute, 15*time.Minute)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestControlAdapter_IncrementPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2025, 5, 10, 12, 1, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(queryIncrementPending)).
		WithArgs("rebuild_2025", now).
		WillReturnRows(sqlmock.NewRows([]string{"pending_count"}).AddRow(3))

	n, err := NewControlAdapter(db).IncrementPending(context.Background(), 2025, now)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestControlAdapter_Finish(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2025, 5, 10, 12, 2, 0, 0, time.UTC)
	adapter := NewControlAdapter(db)

	mock.ExpectExec(regexp.QuoteMeta(queryFinishRebuild)).
		WithArgs("rebuild_2025", "completed", now, "", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, adapter.Finish(context.Background(), 2025, v1.StateCompleted, &now, "", now))

	mock.ExpectExec(regexp.QuoteMeta(queryFinishRebuild)).
		WithArgs("rebuild_2024", "idle", nullArg{}, "boom", now).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err = adapter.Finish(context.Background(), 2024, v1.StateIdle, nil, "boom", now)
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestControlAdapter_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	last := time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)
	done := last.Add(40 * time.Second)
	adapter := NewControlAdapter(db)

	mock.ExpectQuery(regexp.QuoteMeta(queryGetControl)).
		WithArgs("rebuild_2025").
		WillReturnRows(sqlmock.NewRows([]string{"year", "last_rebuild", "pending_count", "status", "completed_at", "last_error"}).
			AddRow(2025, last, 2, "completed", done, ""))

	ctl, err := adapter.Get(context.Background(), 2025)
	require.NoError(t, err)
	require.Equal(t, &v1.RebuildControl{
		Year:         2025,
		LastRebuild:  last,
		PendingCount: 2,
		Status:       v1.StateCompleted,
		CompletedAt:  &done,
	}, ctl)

	mock.ExpectQuery(regexp.QuoteMeta(queryGetControl)).
		WithArgs("rebuild_1990").
		WillReturnRows(sqlmock.NewRows([]string{"year", "last_rebuild", "pending_count", "status", "completed_at", "last_error"}))
	_, err = adapter.Get(context.Background(), 1990)
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestControlAdapter_ListPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2025, 5, 10, 12, 10, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(queryListPending)).
		WithArgs(now.Add(-5*time.Minute), now.Add(-15*time.Minute)).
		WillReturnRows(sqlmock.NewRows([]string{"year"}).AddRow(2024).AddRow(2025))

	years, err := NewControlAdapter(db).ListPending(context.Background(), now, 5*time.Minute, 15*time.Minute)
	require.NoError(t, err)
	require.Equal(t, []int{2024, 2025}, years)
	require.NoError(t, mock.ExpectationsWereMet())
}
