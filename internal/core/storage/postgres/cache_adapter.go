package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	v1 "github.com/smart-student/stats-engine/internal/api/v1"
	"github.com/smart-student/stats-engine/internal/core/storage"
)

const (
	// queryUpsertStatsCache keeps summaries the rebuild did not compute and
	// forces last_updated to move forward even when clocks disagree.
	queryUpsertStatsCache = `
		INSERT INTO stats_cache (year, last_updated, attendance, grades, general)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (year) DO UPDATE SET
			last_updated = GREATEST(EXCLUDED.last_updated, stats_cache.last_updated + interval '1 microsecond'),
			attendance   = COALESCE(EXCLUDED.attendance, stats_cache.attendance),
			grades       = COALESCE(EXCLUDED.grades, stats_cache.grades),
			general      = EXCLUDED.general
		RETURNING last_updated
	`

	queryDeleteMonthly = `DELETE FROM stats_cache_monthly WHERE year = $1`

	queryInsertMonthly = `
		INSERT INTO stats_cache_monthly (year, month_key, data)
		VALUES ($1, $2, $3)
	`

	queryDeleteCourses = `DELETE FROM stats_cache_courses WHERE year = $1`

	queryInsertCourse = `
		INSERT INTO stats_cache_courses (year, course_id, data)
		VALUES ($1, $2, $3)
	`

	queryReadStatsCache = `
		SELECT year, last_updated, attendance, grades, general
		FROM stats_cache
		WHERE year = $1
	`

	queryReadMonthly = `
		SELECT data
		FROM stats_cache_monthly
		WHERE year = $1
		ORDER BY month_key ASC
	`

	queryReadCourses = `
		SELECT data
		FROM stats_cache_courses
		WHERE year = $1
		ORDER BY course_id ASC
	`
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CacheAdapter implements the stats cache store using PostgreSQL.
// The root row and both breakdown tables are written in a single transaction,
// so readers see either the previous snapshot or the new one.
type CacheAdapter struct {
	db  *sql.DB
	now func() time.Time
}

// NewCacheAdapter creates a CacheAdapter sharing the given connection.
func NewCacheAdapter(db *sql.DB) *CacheAdapter {
	return &CacheAdapter{db: db, now: time.Now}
}

// Write persists the snapshot of one rebuild and returns the stored lastUpdated.
func (a *CacheAdapter) Write(ctx context.Context, year int, result *v1.RebuildResult) (time.Time, error) {
	attendanceJSON, err := marshalNullable(result.Attendance)
	if err != nil {
		return time.Time{}, fmt.Errorf("stats_cache write: %w", err)
	}
	gradesJSON, err := marshalNullable(result.Grades)
	if err != nil {
		return time.Time{}, fmt.Errorf("stats_cache write: %w", err)
	}
	general := result.General
	if general == nil {
		general = &v1.GeneralSummary{}
	}
	generalJSON, err := json.Marshal(general)
	if err != nil {
		return time.Time{}, fmt.Errorf("stats_cache write: marshal general: %w", err)
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("stats_cache write: begin tx: %w", classify(err))
	}
	defer tx.Rollback() //nolint:errcheck

	var lastUpdated time.Time
	err = tx.QueryRowContext(ctx, queryUpsertStatsCache,
		year,
		a.now().UTC(),
		attendanceJSON,
		gradesJSON,
		generalJSON,
	).Scan(&lastUpdated)
	if err != nil {
		return time.Time{}, fmt.Errorf("stats_cache write: upsert root: %w", classify(err))
	}

	if _, err := tx.ExecContext(ctx, queryDeleteMonthly, year); err != nil {
		return time.Time{}, fmt.Errorf("stats_cache write: clear monthly: %w", err)
	}
	if len(result.Monthly) > 0 {
		stmt, err := tx.PrepareContext(ctx, queryInsertMonthly)
		if err != nil {
			return time.Time{}, fmt.Errorf("stats_cache write: prepare monthly: %w", err)
		}
		defer stmt.Close()

		for _, m := range result.Monthly {
			data, err := json.Marshal(m)
			if err != nil {
				return time.Time{}, fmt.Errorf("stats_cache write: marshal month %d: %w", m.Month, err)
			}
			if _, err := stmt.ExecContext(ctx, year, fmt.Sprintf("%02d", m.Month), data); err != nil {
				return time.Time{}, fmt.Errorf("stats_cache write: insert month %d: %w", m.Month, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, queryDeleteCourses, year); err != nil {
		return time.Time{}, fmt.Errorf("stats_cache write: clear courses: %w", err)
	}
	if len(result.Courses) > 0 {
		stmt, err := tx.PrepareContext(ctx, queryInsertCourse)
		if err != nil {
			return time.Time{}, fmt.Errorf("stats_cache write: prepare courses: %w", err)
		}
		defer stmt.Close()

		for _, c := range result.Courses {
			data, err := json.Marshal(c)
			if err != nil {
				return time.Time{}, fmt.Errorf("stats_cache write: marshal course %s: %w", c.CourseID, err)
			}
			if _, err := stmt.ExecContext(ctx, year, c.CourseID, data); err != nil {
				return time.Time{}, fmt.Errorf("stats_cache write: insert course %s: %w", c.CourseID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return time.Time{}, fmt.Errorf("stats_cache write: commit: %w", err)
	}

	slog.Info("[CacheAdapter] Snapshot written",
		"year", year,
		"months", len(result.Monthly),
		"courses", len(result.Courses),
		"last_updated", lastUpdated)
	return lastUpdated, nil
}

// Read returns the root cache entry of year, or storage.ErrNotFound.
func (a *CacheAdapter) Read(ctx context.Context, year int) (*v1.StatsCache, error) {
	return readRoot(ctx, a.db, year)
}

func readRoot(ctx context.Context, q querier, year int) (*v1.StatsCache, error) {
	var (
		cache                              v1.StatsCache
		attendanceJSON, gradesJSON, genRaw []byte
	)
	err := q.QueryRowContext(ctx, queryReadStatsCache, year).Scan(
		&cache.Year,
		&cache.LastUpdated,
		&attendanceJSON,
		&gradesJSON,
		&genRaw,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read stats_cache %d: %w", year, classify(err))
	}

	if cache.Attendance, err = unmarshalNullable[v1.AttendanceSummary](attendanceJSON); err != nil {
		return nil, fmt.Errorf("read stats_cache %d: %w", year, err)
	}
	if cache.Grades, err = unmarshalNullable[v1.GradeSummary](gradesJSON); err != nil {
		return nil, fmt.Errorf("read stats_cache %d: %w", year, err)
	}
	if len(genRaw) > 0 {
		if err := json.Unmarshal(genRaw, &cache.General); err != nil {
			return nil, fmt.Errorf("read stats_cache %d: unmarshal general: %w", year, err)
		}
	}
	return &cache, nil
}

// ReadMonthly returns the monthly breakdowns of year ordered by month.
func (a *CacheAdapter) ReadMonthly(ctx context.Context, year int) ([]v1.MonthlyBreakdown, error) {
	return readBreakdowns[v1.MonthlyBreakdown](ctx, a.db, queryReadMonthly, year)
}

// ReadCourses returns the course breakdowns of year ordered by course id.
func (a *CacheAdapter) ReadCourses(ctx context.Context, year int) ([]v1.CourseBreakdown, error) {
	return readBreakdowns[v1.CourseBreakdown](ctx, a.db, queryReadCourses, year)
}

// ReadSnapshot reads the root row and the requested breakdowns inside one
// read-only repeatable-read transaction, so a concurrent Write is either fully
// visible or not at all.
func (a *CacheAdapter) ReadSnapshot(ctx context.Context, year int, includeMonthly, includeCourses bool) (*v1.CacheSnapshot, error) {
	tx, err := a.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("read snapshot %d: begin tx: %w", year, classify(err))
	}
	defer tx.Rollback() //nolint:errcheck

	root, err := readRoot(ctx, tx, year)
	if err != nil {
		return nil, err
	}
	snap := &v1.CacheSnapshot{Cache: root}
	if includeMonthly {
		if snap.Monthly, err = readBreakdowns[v1.MonthlyBreakdown](ctx, tx, queryReadMonthly, year); err != nil {
			return nil, err
		}
	}
	if includeCourses {
		if snap.Courses, err = readBreakdowns[v1.CourseBreakdown](ctx, tx, queryReadCourses, year); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("read snapshot %d: commit: %w", year, classify(err))
	}
	return snap, nil
}

func readBreakdowns[T any](ctx context.Context, q querier, query string, year int) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, year)
	if err != nil {
		return nil, fmt.Errorf("query breakdowns of %d: %w", year, classify(err))
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan breakdown row: %w", err)
		}
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("unmarshal breakdown: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate breakdown rows: %w", err)
	}
	return out, nil
}
