package storage

import (
	"context"
	"errors"
	"strconv"
	"strings"

	v1 "github.com/smart-student/stats-engine/internal/api/v1"
)

// ErrNotFound is returned when a cache or control entry does not exist yet.
var ErrNotFound = errors.New("not found")

// ErrNotConfigured is returned when a store has no connection settings or its
// credentials are rejected. Surfaces report it as a soft configuration error.
var ErrNotConfigured = errors.New("records store not configured")

// configErrorSignatures are message fragments emitted by drivers and cloud SDKs
// when credentials are missing or invalid.
var configErrorSignatures = []string{
	"unable to detect a project id",
	"unauthenticated",
	"authentication",
	"password authentication failed",
	"could not find default credentials",
}

// IsConfigError reports whether err means the store is unreachable for lack of
// valid configuration rather than a transient failure.
func IsConfigError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotConfigured) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range configErrorSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// YearKey selects one encoding of the year field. Records written by older
// clients store the year as a string, so every year is queried in both forms.
type YearKey struct {
	Year     int
	AsString bool
}

// YearKeys returns both encodings of year, number first.
func YearKeys(year int) []YearKey {
	return []YearKey{{Year: year}, {Year: year, AsString: true}}
}

func (k YearKey) String() string {
	if k.AsString {
		return strconv.Quote(strconv.Itoa(k.Year))
	}
	return strconv.Itoa(k.Year)
}

// RecordStore reads the academic records store. Every method is read-only.
type RecordStore interface {
	// ListCourses returns every course ordered by id.
	ListCourses(ctx context.Context) ([]v1.Course, error)

	// FindAttendance returns the attendance records of one course partition
	// whose year is stored in the encoding selected by key.
	FindAttendance(ctx context.Context, courseID string, key YearKey) ([]v1.AttendanceRecord, error)

	// FindGrades returns the grade records of one course partition whose year
	// is stored in the encoding selected by key. Records without a numeric
	// score are skipped.
	FindGrades(ctx context.Context, courseID string, key YearKey) ([]v1.GradeRecord, error)

	CountSections(ctx context.Context, courseID string) (int, error)
	CountUsersByRole(ctx context.Context) (map[v1.Role]int, error)

	Ping(ctx context.Context) error
}
