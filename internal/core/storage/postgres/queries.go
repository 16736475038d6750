package postgres

// SQL queries for the academic records store. Records are JSONB documents
// partitioned by course_id; the year field is matched per encoding so that a
// record stored with a numeric year and one stored with a string year are
// each returned by exactly one of the two queries.

const (
	queryListCourses = `
		SELECT id, data
		FROM courses
		ORDER BY id ASC
	`

	// CASE guards the cast: Postgres does not promise left-to-right AND evaluation.
	queryFindAttendanceNumeric = `
		SELECT id, data
		FROM course_attendance
		WHERE course_id = $1
		  AND CASE WHEN jsonb_typeof(data->'year') = 'number'
		           THEN (data->>'year')::numeric = $2
		           ELSE FALSE
		      END
		ORDER BY id ASC
	`

	queryFindAttendanceString = `
		SELECT id, data
		FROM course_attendance
		WHERE course_id = $1
		  AND jsonb_typeof(data->'year') = 'string'
		  AND data->>'year' = $2
		ORDER BY id ASC
	`

	queryFindGradesNumeric = `
		SELECT id, data
		FROM course_grades
		WHERE course_id = $1
		  AND CASE WHEN jsonb_typeof(data->'year') = 'number'
		           THEN (data->>'year')::numeric = $2
		           ELSE FALSE
		      END
		ORDER BY id ASC
	`

	queryFindGradesString = `
		SELECT id, data
		FROM course_grades
		WHERE course_id = $1
		  AND jsonb_typeof(data->'year') = 'string'
		  AND data->>'year' = $2
		ORDER BY id ASC
	`

	queryCountSections = `SELECT COUNT(*) FROM course_sections WHERE course_id = $1`

	// Roles are normalized in Go so that aliases and casing collapse together.
	queryCountUsersByRole = `
		SELECT COALESCE(data->>'role', ''), COUNT(*)
		FROM users
		GROUP BY 1
	`
)
