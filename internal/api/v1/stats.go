package v1

import "time"

// AttendanceSummary aggregates every attendance record of a year.
type AttendanceSummary struct {
	TotalRecords   int     `json:"totalRecords"`
	PresentCount   int     `json:"presentCount"`
	AbsentCount    int     `json:"absentCount"`
	LateCount      int     `json:"lateCount"`
	ExcusedCount   int     `json:"excusedCount"`
	AttendanceRate float64 `json:"attendanceRate"` // round2((present+late)/total*100)
}

// GradeSummary aggregates every grade record of a year.
type GradeSummary struct {
	TotalRecords  int     `json:"totalRecords"`
	AverageScore  float64 `json:"averageScore"`
	ApprovedCount int     `json:"approvedCount"`
	FailedCount   int     `json:"failedCount"`
	ApprovalRate  float64 `json:"approvalRate"`
}

// GeneralSummary holds structural counts. It is not filtered by year.
type GeneralSummary struct {
	TotalStudents int `json:"totalStudents"`
	TotalCourses  int `json:"totalCourses"`
	TotalSections int `json:"totalSections"`
	TotalTeachers int `json:"totalTeachers"`
}

// MonthlyBreakdown is the attendance summary of one calendar month, stored
// under stats_cache/{year}/monthly/{MM}.
type MonthlyBreakdown struct {
	Month          int     `json:"month"`
	MonthName      string  `json:"monthName"`
	AttendanceRate float64 `json:"attendanceRate"`
	TotalRecords   int     `json:"totalRecords"`
	PresentCount   int     `json:"presentCount"`
	AbsentCount    int     `json:"absentCount"`
	LateCount      int     `json:"lateCount"`
	ExcusedCount   int     `json:"excusedCount"`
}

// CourseBreakdown is the attendance summary of one course, stored under
// stats_cache/{year}/courses/{courseId}. PresentCount counts attended records
// (present and late); AbsentCount counts the rest.
type CourseBreakdown struct {
	CourseID       string  `json:"courseId"`
	CourseName     string  `json:"courseName"`
	AttendanceRate float64 `json:"attendanceRate"`
	TotalRecords   int     `json:"totalRecords"`
	PresentCount   int     `json:"presentCount"`
	AbsentCount    int     `json:"absentCount"`
}

// StatsCache is the root cache entity of one year.
type StatsCache struct {
	Year        int                `json:"year"`
	LastUpdated time.Time          `json:"lastUpdated"`
	Attendance  *AttendanceSummary `json:"attendance"`
	Grades      *GradeSummary      `json:"grades"`
	General     GeneralSummary     `json:"general"`
}

// CacheSnapshot is one consistent read of a year's cache. Monthly and Courses
// are nil unless they were requested.
type CacheSnapshot struct {
	Cache   *StatsCache
	Monthly []MonthlyBreakdown
	Courses []CourseBreakdown
}

// RebuildResult is returned by every invocation surface, on success and on failure.
type RebuildResult struct {
	Year        int                `json:"year"`
	RunID       string             `json:"runId,omitempty"`
	Success     bool               `json:"success"`
	Attendance  *AttendanceSummary `json:"attendance,omitempty"`
	Grades      *GradeSummary      `json:"grades,omitempty"`
	General     *GeneralSummary    `json:"general,omitempty"`
	Monthly     []MonthlyBreakdown `json:"monthly,omitempty"`
	Courses     []CourseBreakdown  `json:"courses,omitempty"`
	LastUpdated *time.Time         `json:"lastUpdated,omitempty"`
	DurationMs  int64              `json:"durationMs"`
	Error       string             `json:"error,omitempty"`

	// AuthError marks a configuration failure: the backing store could not be
	// reached because credentials are missing or invalid.
	AuthError bool   `json:"authError,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Failed turns r into a failure result. Computed summaries are dropped: a
// failed rebuild never reports partial totals.
func (r *RebuildResult) Failed(err error, authError bool, elapsed time.Duration) *RebuildResult {
	r.Success = false
	r.Attendance, r.Grades, r.General = nil, nil, nil
	r.Monthly, r.Courses = nil, nil
	r.LastUpdated = nil
	r.AuthError = authError
	if err != nil {
		r.Error = err.Error()
	}
	r.DurationMs = elapsed.Milliseconds()
	return r
}
