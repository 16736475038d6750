package aggregation

import (
	v1 "github.com/smart-student/stats-engine/internal/api/v1"
)

// monthNames are the display names stored with monthly breakdowns.
var monthNames = [12]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// MonthName returns the display name of month m (1..12), or "" when out of range.
func MonthName(m int) string {
	if m < 1 || m > 12 {
		return ""
	}
	return monthNames[m-1]
}

// Tally counts attendance statuses for one bucket: the year, a month or a course.
type Tally struct {
	Total   int
	Present int
	Absent  int
	Late    int
	Excused int
}

// Add counts one record. Statuses are already normalized; anything else counts
// as present.
func (t *Tally) Add(status v1.AttendanceStatus) {
	t.Total++
	switch status {
	case v1.StatusAbsent:
		t.Absent++
	case v1.StatusLate:
		t.Late++
	case v1.StatusExcused:
		t.Excused++
	default:
		t.Present++
	}
}

// Attended counts records where the student was in class: present or late.
func (t Tally) Attended() int {
	return t.Present + t.Late
}

// Rate is the attendance rate in percent, rounded to two decimals.
func (t Tally) Rate() float64 {
	return Percent(t.Attended(), t.Total)
}

// Summary converts the tally to the year-level summary.
func (t Tally) Summary() v1.AttendanceSummary {
	return v1.AttendanceSummary{
		TotalRecords:   t.Total,
		PresentCount:   t.Present,
		AbsentCount:    t.Absent,
		LateCount:      t.Late,
		ExcusedCount:   t.Excused,
		AttendanceRate: t.Rate(),
	}
}
