package aggregation

import (
	"sort"

	"github.com/shopspring/decimal"
	v1 "github.com/smart-student/stats-engine/internal/api/v1"
)

// Accumulator folds normalized records into the year summaries and the
// monthly and per-course breakdowns. It is not safe for concurrent use; the
// scan merges per-course results into it in course order.
type Accumulator struct {
	policy GradingPolicy

	attendance Tally
	months     [12]Tally
	courses    map[string]*courseTally

	grades   int
	gradeSum decimal.Decimal
	approved int
	failed   int
}

type courseTally struct {
	name  string
	tally Tally
}

// NewAccumulator creates an empty accumulator that classifies grades with policy.
func NewAccumulator(policy GradingPolicy) *Accumulator {
	return &Accumulator{
		policy:   policy,
		courses:  make(map[string]*courseTally),
		gradeSum: decimal.Zero,
	}
}

// AddAttendance counts one attendance record in the year, its month and its course.
func (a *Accumulator) AddAttendance(course v1.Course, rec v1.AttendanceRecord) {
	a.attendance.Add(rec.Status)

	month := rec.Month
	if month < 1 || month > 12 {
		month = 1
	}
	a.months[month-1].Add(rec.Status)

	ct, ok := a.courses[course.ID]
	if !ok {
		ct = &courseTally{name: course.Name}
		a.courses[course.ID] = ct
	}
	ct.tally.Add(rec.Status)
}

// AddGrade counts one grade record.
func (a *Accumulator) AddGrade(rec v1.GradeRecord) {
	a.grades++
	a.gradeSum = a.gradeSum.Add(decimal.NewFromFloat(rec.Score))
	if a.policy.Approved(rec.Score, rec.Scale) {
		a.approved++
	} else {
		a.failed++
	}
}

// Attendance returns the year attendance summary.
func (a *Accumulator) Attendance() v1.AttendanceSummary {
	return a.attendance.Summary()
}

// Grades returns the year grade summary.
func (a *Accumulator) Grades() v1.GradeSummary {
	return v1.GradeSummary{
		TotalRecords:  a.grades,
		AverageScore:  Average(a.gradeSum, a.grades),
		ApprovedCount: a.approved,
		FailedCount:   a.failed,
		ApprovalRate:  Percent(a.approved, a.grades),
	}
}

// Monthly returns one breakdown per month with at least one record, ordered by month.
func (a *Accumulator) Monthly() []v1.MonthlyBreakdown {
	out := make([]v1.MonthlyBreakdown, 0, 12)
	for i, t := range a.months {
		if t.Total == 0 {
			continue
		}
		out = append(out, v1.MonthlyBreakdown{
			Month:          i + 1,
			MonthName:      MonthName(i + 1),
			AttendanceRate: t.Rate(),
			TotalRecords:   t.Total,
			PresentCount:   t.Present,
			AbsentCount:    t.Absent,
			LateCount:      t.Late,
			ExcusedCount:   t.Excused,
		})
	}
	return out
}

// Courses returns one breakdown per course with at least one record, ordered
// by course id.
func (a *Accumulator) Courses() []v1.CourseBreakdown {
	out := make([]v1.CourseBreakdown, 0, len(a.courses))
	for id, ct := range a.courses {
		if ct.tally.Total == 0 {
			continue
		}
		out = append(out, v1.CourseBreakdown{
			CourseID:       id,
			CourseName:     ct.name,
			AttendanceRate: ct.tally.Rate(),
			TotalRecords:   ct.tally.Total,
			PresentCount:   ct.tally.Attended(),
			AbsentCount:    ct.tally.Total - ct.tally.Attended(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseID < out[j].CourseID })
	return out
}
