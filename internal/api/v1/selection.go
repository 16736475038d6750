package v1

import (
	"fmt"
	"strings"
)

// Section names accepted by the `what` selector of a rebuild request.
const (
	SectionAll        = "all"
	SectionAttendance = "attendance"
	SectionGrades     = "grades"
)

// Selection chooses which year summaries a rebuild recomputes. The general
// summary and both breakdowns are recomputed regardless.
type Selection struct {
	Attendance bool
	Grades     bool
}

// SelectAll recomputes every section.
func SelectAll() Selection {
	return Selection{Attendance: true, Grades: true}
}

// ParseSelection interprets the `what` selector. An empty selector means all.
func ParseSelection(what []string) (Selection, error) {
	if len(what) == 0 {
		return SelectAll(), nil
	}
	var sel Selection
	for _, w := range what {
		switch strings.ToLower(strings.TrimSpace(w)) {
		case SectionAll:
			return SelectAll(), nil
		case SectionAttendance:
			sel.Attendance = true
		case SectionGrades:
			sel.Grades = true
		default:
			return Selection{}, fmt.Errorf("unknown section %q (want attendance, grades or all)", w)
		}
	}
	return sel, nil
}

// Key is a stable identifier used to coalesce identical rebuild requests.
func (s Selection) Key() string {
	switch {
	case s.Attendance && s.Grades:
		return SectionAll
	case s.Attendance:
		return SectionAttendance
	case s.Grades:
		return SectionGrades
	default:
		return "general"
	}
}

// Accepted academic years.
const (
	MinYear = 1900
	MaxYear = 2200
)

// ValidateYear rejects years outside MinYear..MaxYear.
func ValidateYear(year int) error {
	if year < MinYear || year > MaxYear {
		return fmt.Errorf("year %d out of range (%d-%d)", year, MinYear, MaxYear)
	}
	return nil
}
