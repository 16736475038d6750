package projection

import v1 "github.com/smart-student/stats-engine/internal/api/v1"

// rollupKPIs flattens one cached snapshot into dashboard KPIs.
func rollupKPIs(cache *v1.StatsCache) *KPIs {
	k := &KPIs{
		StudentsCount: cache.General.TotalStudents,
		CoursesCount:  cache.General.TotalCourses,
		SectionsCount: cache.General.TotalSections,
		TeachersCount: cache.General.TotalTeachers,
	}

	if a := cache.Attendance; a != nil {
		k.AttendanceRate = floatPtr(a.AttendanceRate)
		k.TotalAttendanceRecords = a.TotalRecords
		k.PresentCount = a.PresentCount
		k.AbsentCount = a.AbsentCount
		k.LateCount = a.LateCount
		k.ExcusedCount = a.ExcusedCount
	}

	if g := cache.Grades; g != nil {
		k.AverageGrade = floatPtr(g.AverageScore)
		k.ApprovalRate = floatPtr(g.ApprovalRate)
		k.TotalGradeRecords = g.TotalRecords
		k.ApprovedCount = g.ApprovedCount
		k.FailedCount = g.FailedCount
	}
	return k
}

func floatPtr(f float64) *float64 {
	return &f
}
