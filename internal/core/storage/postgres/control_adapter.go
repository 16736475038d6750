package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	v1 "github.com/smart-student/stats-engine/internal/api/v1"
	"github.com/smart-student/stats-engine/internal/core/storage"
)

const (
	// queryTryBeginRebuild is the debounce compare-and-swap. The first trigger
	// of a year inserts the row; later triggers take it over only when the
	// debounce window has passed and no fresh rebuild is running. A rebuild
	// older than the stale cutoff is assumed dead and may be overridden.
	// No row is returned when the swap is refused.
	queryTryBeginRebuild = `
		INSERT INTO stats_control (id, year, last_rebuild, pending_count, status, updated_at)
		VALUES ($1, $2, $3, 0, 'rebuilding', $3)
		ON CONFLICT (id) DO UPDATE SET
			last_rebuild  = EXCLUDED.last_rebuild,
			pending_count = 0,
			status        = 'rebuilding',
			last_error    = NULL,
			updated_at    = EXCLUDED.updated_at
		WHERE stats_control.last_rebuild <= $4
		  AND (stats_control.status <> 'rebuilding' OR stats_control.last_rebuild <= $5)
		RETURNING id
	`

	queryIncrementPending = `
		UPDATE stats_control
		SET pending_count = pending_count + 1, updated_at = $2
		WHERE id = $1
		RETURNING pending_count
	`

	queryFinishRebuild = `
		UPDATE stats_control
		SET status       = $2,
		    completed_at = COALESCE($3, completed_at),
		    last_error   = NULLIF($4, ''),
		    updated_at   = $5
		WHERE id = $1
	`

	queryGetControl = `
		SELECT year, last_rebuild, pending_count, status, completed_at, COALESCE(last_error, '')
		FROM stats_control
		WHERE id = $1
	`

	queryListPending = `
		SELECT year
		FROM stats_control
		WHERE pending_count > 0
		  AND last_rebuild <= $1
		  AND (status <> 'rebuilding' OR last_rebuild <= $2)
		ORDER BY year ASC
	`
)

// ControlAdapter persists the per-year rebuild control records. Every state
// change is a single conditional statement, so concurrent triggers on several
// instances cannot both begin a rebuild.
type ControlAdapter struct {
	db *sql.DB
}

// NewControlAdapter creates a ControlAdapter sharing the given connection.
func NewControlAdapter(db *sql.DB) *ControlAdapter {
	return &ControlAdapter{db: db}
}

// TryBegin marks year as rebuilding if the debounce window allows it.
// Returns false when another rebuild is recent or still running.
func (a *ControlAdapter) TryBegin(ctx context.Context, year int, now time.Time, debounce, staleAfter time.Duration) (bool, error) {
	var id string
	err := a.db.QueryRowContext(ctx, queryTryBeginRebuild,
		v1.ControlID(year),
		year,
		now.UTC(),
		now.Add(-debounce).UTC(),
		now.Add(-staleAfter).UTC(),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stats_control begin %d: %w", year, classify(err))
	}
	return true, nil
}

// IncrementPending records one suppressed trigger and returns the new count.
func (a *ControlAdapter) IncrementPending(ctx context.Context, year int, now time.Time) (int, error) {
	var pending int
	err := a.db.QueryRowContext(ctx, queryIncrementPending, v1.ControlID(year), now.UTC()).Scan(&pending)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, storage.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("stats_control increment %d: %w", year, classify(err))
	}
	return pending, nil
}

// Finish records the outcome of a rebuild begun with TryBegin.
func (a *ControlAdapter) Finish(ctx context.Context, year int, status v1.RebuildState, completedAt *time.Time, lastError string, now time.Time) error {
	var completed interface{}
	if completedAt != nil {
		completed = completedAt.UTC()
	}

	res, err := a.db.ExecContext(ctx, queryFinishRebuild,
		v1.ControlID(year),
		string(status),
		completed,
		lastError,
		now.UTC(),
	)
	if err != nil {
		return fmt.Errorf("stats_control finish %d: %w", year, classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("stats_control finish %d: check update: %w", year, err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}

	slog.Debug("[ControlAdapter] Rebuild finished", "year", year, "status", status)
	return nil
}

// Get returns the control record of year, or storage.ErrNotFound.
func (a *ControlAdapter) Get(ctx context.Context, year int) (*v1.RebuildControl, error) {
	var (
		ctl         v1.RebuildControl
		status      string
		completedAt sql.NullTime
	)
	err := a.db.QueryRowContext(ctx, queryGetControl, v1.ControlID(year)).Scan(
		&ctl.Year,
		&ctl.LastRebuild,
		&ctl.PendingCount,
		&status,
		&completedAt,
		&ctl.LastError,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("stats_control get %d: %w", year, classify(err))
	}

	ctl.Status = v1.RebuildState(status)
	if completedAt.Valid {
		t := completedAt.Time
		ctl.CompletedAt = &t
	}
	return &ctl, nil
}

// ListPending returns the years with suppressed triggers whose debounce window
// has passed, ordered by year.
func (a *ControlAdapter) ListPending(ctx context.Context, now time.Time, debounce, staleAfter time.Duration) ([]int, error) {
	rows, err := a.db.QueryContext(ctx, queryListPending,
		now.Add(-debounce).UTC(),
		now.Add(-staleAfter).UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("stats_control list pending: %w", classify(err))
	}
	defer rows.Close()

	var years []int
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, fmt.Errorf("stats_control list pending: scan: %w", err)
		}
		years = append(years, y)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stats_control list pending: iterate: %w", err)
	}
	return years, nil
}
