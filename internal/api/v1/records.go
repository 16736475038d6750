package v1

// AttendanceStatus is the canonical status of one attendance record.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
	StatusAbsent  AttendanceStatus = "absent"
	StatusLate    AttendanceStatus = "late"
	StatusExcused AttendanceStatus = "excused"
)

// GradingScale identifies which scale a score was recorded on.
type GradingScale string

const (
	// ScaleUnknown means the record does not declare its scale; the grading
	// policy infers it.
	ScaleUnknown GradingScale = ""
	ScalePercent GradingScale = "percent"
	ScaleNumeric GradingScale = "numeric"
)

// Role is the normalized role of a user.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleOther   Role = "other"
)

// AttendanceRecord is one attendance document from a course partition after
// normalization. Records are produced by the attendance-taking UI and are
// read-only to the stats engine.
type AttendanceRecord struct {
	// ID is the document identifier inside its course partition.
	ID string `json:"id"`

	// CourseID is the partition the record was read from.
	CourseID string `json:"courseId"`

	// Year is the academic year, regardless of whether it was stored as a
	// number or a numeric string.
	Year int `json:"year"`

	Status AttendanceStatus `json:"status"`

	// Month is 1..12. Records whose date could not be interpreted land in month 1.
	Month int `json:"month"`
}

// GradeRecord is one grade document from a course partition after normalization.
type GradeRecord struct {
	ID       string `json:"id"`
	CourseID string `json:"courseId"`
	Year     int    `json:"year"`

	// Score is read from `score`, falling back to `grade`.
	Score float64 `json:"score"`

	// Scale is set only when the document declares it explicitly.
	Scale GradingScale `json:"scale,omitempty"`
}

// Course is reference data: the engine only needs its identity and display name.
type Course struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
