// Package records maps raw documents from the academic records store to the
// canonical record types. Documents written by different generations of the
// product disagree on field names and encodings; every adapter funnels them
// through here so the aggregation core only sees one shape.
package records

import (
	"math"
	"strconv"
	"strings"
	"time"

	v1 "github.com/smart-student/stats-engine/internal/api/v1"
)

// DefaultMonth is used when a record's date cannot be interpreted.
const DefaultMonth = 1

// Document is a raw record as decoded from JSON or BSON.
type Document = map[string]interface{}

// timeLike covers driver datetime types that expose their instant, such as
// BSON datetimes.
type timeLike interface {
	Time() time.Time
}

// ParseYear reads a year stored either as a number or as a numeric string.
func ParseYear(v interface{}) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int32:
		return int(val), true
	case int64:
		return int(val), true
	case float64:
		if val != math.Trunc(val) {
			return 0, false
		}
		return int(val), true
	case float32:
		return ParseYear(float64(val))
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// NormalizeStatus lowercases the raw status. Missing or unrecognized values
// count as present.
func NormalizeStatus(v interface{}) v1.AttendanceStatus {
	s, _ := v.(string)
	switch v1.AttendanceStatus(strings.ToLower(strings.TrimSpace(s))) {
	case v1.StatusAbsent:
		return v1.StatusAbsent
	case v1.StatusLate:
		return v1.StatusLate
	case v1.StatusExcused:
		return v1.StatusExcused
	default:
		return v1.StatusPresent
	}
}

// ExtractMonth returns the 1..12 month of an attendance document. The date is
// read from `date`, falling back to `dateString`.
func ExtractMonth(doc Document) int {
	raw, ok := doc["date"]
	if !ok || raw == nil || raw == "" {
		raw = doc["dateString"]
	}
	if m := monthOf(raw); m >= 1 && m <= 12 {
		return m
	}
	return DefaultMonth
}

func monthOf(raw interface{}) int {
	switch val := raw.(type) {
	case string:
		// yyyy-mm-dd and dd/mm/yyyy both carry the month in the second field.
		for _, sep := range []string{"-", "/"} {
			if strings.Contains(val, sep) {
				parts := strings.Split(val, sep)
				if len(parts) < 2 {
					return 0
				}
				return leadingInt(parts[1])
			}
		}
	case time.Time:
		return int(val.Month())
	case timeLike:
		return int(val.Time().Month())
	case map[string]interface{}:
		// Serialized timestamps: {"_seconds": ..., "_nanoseconds": ...}.
		for _, key := range []string{"_seconds", "seconds"} {
			if secs, ok := toFloat(val[key]); ok {
				return int(time.Unix(int64(secs), 0).UTC().Month())
			}
		}
	}
	return 0
}

// leadingInt parses the digits at the start of s, ignoring anything after.
func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// ExtractScore returns the numeric score of a grade document, preferring
// `score` over `grade`. ok is false when neither holds a number.
func ExtractScore(doc Document) (float64, bool) {
	for _, field := range []string{"score", "grade"} {
		if f, ok := toFloat(doc[field]); ok {
			return f, true
		}
	}
	return 0, false
}

// ParseScale reads an explicit grading scale. Anything unrecognized leaves
// the scale to the grading policy.
func ParseScale(v interface{}) v1.GradingScale {
	s, _ := v.(string)
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "percent", "percentage", "porcentaje":
		return v1.ScalePercent
	case "numeric", "numerica", "numérica":
		return v1.ScaleNumeric
	}
	return v1.ScaleUnknown
}

// NormalizeRole maps role spellings, including the Spanish aliases, to a Role.
func NormalizeRole(v interface{}) v1.Role {
	s, _ := v.(string)
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "student", "estudiante":
		return v1.RoleStudent
	case "teacher", "profesor":
		return v1.RoleTeacher
	}
	return v1.RoleOther
}

// CourseName picks the display name of a course: name, then gradeName, then id.
func CourseName(id string, doc Document) string {
	for _, field := range []string{"name", "gradeName"} {
		if s, ok := doc[field].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return id
}

// Attendance builds the canonical attendance record. year is the year the
// document was matched under.
func Attendance(id, courseID string, year int, doc Document) v1.AttendanceRecord {
	return v1.AttendanceRecord{
		ID:       id,
		CourseID: courseID,
		Year:     year,
		Status:   NormalizeStatus(doc["status"]),
		Month:    ExtractMonth(doc),
	}
}

// Grade builds the canonical grade record. ok is false for documents without a
// numeric score; those are not counted.
func Grade(id, courseID string, year int, doc Document) (v1.GradeRecord, bool) {
	score, ok := ExtractScore(doc)
	if !ok {
		return v1.GradeRecord{}, false
	}
	return v1.GradeRecord{
		ID:       id,
		CourseID: courseID,
		Year:     year,
		Score:    score,
		Scale:    ParseScale(doc["scale"]),
	}, true
}

// Course builds the course reference from its document.
func Course(id string, doc Document) v1.Course {
	return v1.Course{ID: id, Name: CourseName(id, doc)}
}

func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, !math.IsNaN(val) && !math.IsInf(val, 0)
	case float32:
		return toFloat(float64(val))
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		return toFloat(f)
	}
	return 0, false
}
