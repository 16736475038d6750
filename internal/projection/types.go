package projection

import (
	"time"

	v1 "github.com/smart-student/stats-engine/internal/api/v1"
)

// SummaryRequest represents the query parameters of a dashboard summary read.
type SummaryRequest struct {
	Year           int  `form:"year"` // default: current academic year
	IncludeMonthly bool `form:"includeMonthly"`
	IncludeCourses bool `form:"includeCourses"`
}

// KPIs flattens the cached summaries for dashboards. Rates are nil when the
// summary has never been computed.
type KPIs struct {
	AttendanceRate         *float64 `json:"attendanceRate"`
	TotalAttendanceRecords int      `json:"totalAttendanceRecords"`
	PresentCount           int      `json:"presentCount"`
	AbsentCount            int      `json:"absentCount"`
	LateCount              int      `json:"lateCount"`
	ExcusedCount           int      `json:"excusedCount"`

	AverageGrade      *float64 `json:"averageGrade"`
	TotalGradeRecords int      `json:"totalGradeRecords"`
	ApprovalRate      *float64 `json:"approvalRate"`
	ApprovedCount     int      `json:"approvedCount"`
	FailedCount       int      `json:"failedCount"`

	StudentsCount int `json:"studentsCount"`
	CoursesCount  int `json:"coursesCount"`
	SectionsCount int `json:"sectionsCount"`
	TeachersCount int `json:"teachersCount"`
}

// SummaryResponse is the body of GET /api/stats/summary.
type SummaryResponse struct {
	Cached         bool                   `json:"cached"`
	Year           int                    `json:"year"`
	LastUpdated    *time.Time             `json:"lastUpdated,omitempty"`
	KPIs           *KPIs                  `json:"kpis,omitempty"`
	Monthly        *[]v1.MonthlyBreakdown `json:"monthly,omitempty"` // set only when requested
	Courses        *[]v1.CourseBreakdown  `json:"courses,omitempty"`
	NeedsRebuild   bool                   `json:"needsRebuild"`
	AuthError      bool                   `json:"authError,omitempty"`
	Message        string                 `json:"message,omitempty"`
	ResponseTimeMs int64                  `json:"responseTime"`
}
