package aggregation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	v1 "github.com/smart-student/stats-engine/internal/api/v1"
	"github.com/smart-student/stats-engine/internal/core/storage"
	"github.com/smart-student/stats-engine/internal/metrics"
	"golang.org/x/sync/errgroup"
)

const defaultWorkerCount = 8

// RebuildParameter controls throughput and grading behavior for a rebuild.
type RebuildParameter struct {
	// WorkerCount bounds how many course partitions are scanned concurrently.
	WorkerCount int
	Grading     GradingPolicy
}

// DefaultRebuildOptions returns safe defaults.
func DefaultRebuildOptions() RebuildParameter {
	return RebuildParameter{
		WorkerCount: defaultWorkerCount,
		Grading:     DefaultGradingPolicy(),
	}
}

func (o RebuildParameter) normalized() RebuildParameter {
	n := o
	if n.WorkerCount <= 0 {
		n.WorkerCount = defaultWorkerCount
	}
	if n.Grading.Mode == "" {
		n.Grading = DefaultGradingPolicy()
	}
	return n
}

// Aggregator scans the records store and computes every summary of a year.
// It never writes to the records store, and identical records always yield
// identical summaries.
type Aggregator struct {
	records storage.RecordStore
	opts    RebuildParameter
}

// NewAggregator creates an Aggregator reading from records.
func NewAggregator(records storage.RecordStore, opts RebuildParameter) *Aggregator {
	return &Aggregator{records: records, opts: opts.normalized()}
}

// courseScan holds the de-duplicated records of one course partition.
type courseScan struct {
	course     v1.Course
	attendance []v1.AttendanceRecord
	grades     []v1.GradeRecord
	sections   int
}

// Rebuild computes the summaries of year. The returned result is never nil:
// on failure it carries success=false, the error text and the elapsed time,
// and no partial totals.
func (a *Aggregator) Rebuild(ctx context.Context, year int, sel v1.Selection) (*v1.RebuildResult, error) {
	start := time.Now()
	result := &v1.RebuildResult{Year: year, RunID: uuid.NewString()}

	slog.Info("[Aggregator] Starting rebuild",
		"year", year,
		"run_id", result.RunID,
		"selection", sel.Key(),
		"workers", a.opts.WorkerCount,
	)

	courses, err := a.records.ListCourses(ctx)
	if err != nil {
		err = fmt.Errorf("list courses: %w", err)
		return result.Failed(err, storage.IsConfigError(err), time.Since(start)), err
	}

	scans := make([]courseScan, len(courses))
	var roles map[v1.Role]int

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.WorkerCount)

	g.Go(func() error {
		r, err := a.records.CountUsersByRole(gctx)
		if err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		roles = r
		return nil
	})
	for i, course := range courses {
		g.Go(func() error {
			scan, err := a.scanCourse(gctx, course, year, sel)
			if err != nil {
				return fmt.Errorf("scan course %s: %w", course.ID, err)
			}
			scans[i] = scan
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.Error("[Aggregator] Rebuild failed",
			"year", year,
			"run_id", result.RunID,
			"error", err,
		)
		return result.Failed(err, storage.IsConfigError(err), time.Since(start)), err
	}

	// Merge in course order so the output does not depend on scheduling.
	acc := NewAccumulator(a.opts.Grading)
	general := v1.GeneralSummary{
		TotalStudents: roles[v1.RoleStudent],
		TotalTeachers: roles[v1.RoleTeacher],
		TotalCourses:  len(courses),
	}
	var attendanceCount, gradeCount int
	for _, scan := range scans {
		general.TotalSections += scan.sections
		for _, rec := range scan.attendance {
			acc.AddAttendance(scan.course, rec)
		}
		for _, rec := range scan.grades {
			acc.AddGrade(rec)
		}
		attendanceCount += len(scan.attendance)
		gradeCount += len(scan.grades)
	}
	metrics.RecordsScanned.WithLabelValues("attendance").Add(float64(attendanceCount))
	metrics.RecordsScanned.WithLabelValues("grades").Add(float64(gradeCount))

	result.Success = true
	result.General = &general
	result.Monthly = acc.Monthly()
	result.Courses = acc.Courses()
	if sel.Attendance {
		s := acc.Attendance()
		result.Attendance = &s
	}
	if sel.Grades {
		s := acc.Grades()
		result.Grades = &s
	}
	result.DurationMs = time.Since(start).Milliseconds()

	slog.Info("[Aggregator] Rebuild computed",
		"year", year,
		"run_id", result.RunID,
		"courses", len(courses),
		"attendance_records", attendanceCount,
		"grade_records", gradeCount,
		"duration_ms", result.DurationMs,
	)
	return result, nil
}

// scanCourse reads one partition under both year encodings. A record matched
// by both queries is counted once.
func (a *Aggregator) scanCourse(ctx context.Context, course v1.Course, year int, sel v1.Selection) (courseScan, error) {
	scan := courseScan{course: course}

	seen := make(map[string]struct{})
	for _, key := range storage.YearKeys(year) {
		recs, err := a.records.FindAttendance(ctx, course.ID, key)
		if err != nil {
			return scan, fmt.Errorf("attendance (year %s): %w", key, err)
		}
		for _, rec := range recs {
			if _, dup := seen[rec.ID]; dup {
				continue
			}
			seen[rec.ID] = struct{}{}
			scan.attendance = append(scan.attendance, rec)
		}
	}

	if sel.Grades {
		seen = make(map[string]struct{})
		for _, key := range storage.YearKeys(year) {
			recs, err := a.records.FindGrades(ctx, course.ID, key)
			if err != nil {
				return scan, fmt.Errorf("grades (year %s): %w", key, err)
			}
			for _, rec := range recs {
				if _, dup := seen[rec.ID]; dup {
					continue
				}
				seen[rec.ID] = struct{}{}
				scan.grades = append(scan.grades, rec)
			}
		}
	}

	n, err := a.records.CountSections(ctx, course.ID)
	if err != nil {
		return scan, fmt.Errorf("sections: %w", err)
	}
	scan.sections = n
	return scan, nil
}
