// Package memory provides in-process implementations of the records, cache and
// control stores. They back local development, the operator CLI against YAML
// fixtures, and tests.
package memory

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"

	v1 "github.com/smart-student/stats-engine/internal/api/v1"
	"github.com/smart-student/stats-engine/internal/core/records"
	"github.com/smart-student/stats-engine/internal/core/storage"
	"gopkg.in/yaml.v3"
)

// Fixture is the on-disk YAML shape of a records store. Partitioned
// collections are keyed by course id.
//
//	courses:
//	  c1: {name: "1° Básico A"}
//	sections:
//	  c1: [{id: s1}]
//	users:
//	  - {id: u1, role: estudiante}
//	attendance:
//	  c1:
//	    - {id: a1, year: 2025, status: present, date: "2025-03-04"}
//	grades:
//	  c1:
//	    - {id: g1, year: "2025", score: 70}
type Fixture struct {
	Courses    map[string]records.Document   `yaml:"courses"`
	Sections   map[string][]records.Document `yaml:"sections"`
	Users      []records.Document            `yaml:"users"`
	Attendance map[string][]records.Document `yaml:"attendance"`
	Grades     map[string][]records.Document `yaml:"grades"`
}

// RecordStore implements storage.RecordStore over raw documents held in memory.
type RecordStore struct {
	mu      sync.RWMutex
	fixture Fixture
}

// NewRecordStore creates an empty records store.
func NewRecordStore() *RecordStore {
	return &RecordStore{fixture: Fixture{
		Courses:    make(map[string]records.Document),
		Sections:   make(map[string][]records.Document),
		Attendance: make(map[string][]records.Document),
		Grades:     make(map[string][]records.Document),
	}}
}

// LoadFixture reads a YAML fixture file into a new records store.
func LoadFixture(path string) (*RecordStore, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	return ParseFixture(content)
}

// ParseFixture decodes YAML fixture content into a new records store.
func ParseFixture(content []byte) (*RecordStore, error) {
	s := NewRecordStore()
	var f Fixture
	if err := yaml.Unmarshal(content, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	for id, doc := range f.Courses {
		s.PutCourse(id, doc)
	}
	for courseID, docs := range f.Sections {
		s.fixture.Sections[courseID] = append(s.fixture.Sections[courseID], docs...)
	}
	s.fixture.Users = append(s.fixture.Users, f.Users...)
	for courseID, docs := range f.Attendance {
		for _, doc := range docs {
			s.AddAttendance(courseID, doc)
		}
	}
	for courseID, docs := range f.Grades {
		for _, doc := range docs {
			s.AddGrade(courseID, doc)
		}
	}
	return s, nil
}

// PutCourse adds or replaces a course document.
func (s *RecordStore) PutCourse(id string, doc records.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc == nil {
		doc = records.Document{}
	}
	s.fixture.Courses[id] = doc
}

// AddSection appends a section document to a course.
func (s *RecordStore) AddSection(courseID string, doc records.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixture.Sections[courseID] = append(s.fixture.Sections[courseID], doc)
}

// AddUser appends a user document.
func (s *RecordStore) AddUser(doc records.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixture.Users = append(s.fixture.Users, doc)
}

// AddAttendance appends an attendance document to a course partition.
func (s *RecordStore) AddAttendance(courseID string, doc records.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixture.Attendance[courseID] = append(s.fixture.Attendance[courseID], withID(doc, "a", s.fixture.Attendance[courseID]))
}

// AddGrade appends a grade document to a course partition.
func (s *RecordStore) AddGrade(courseID string, doc records.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixture.Grades[courseID] = append(s.fixture.Grades[courseID], withID(doc, "g", s.fixture.Grades[courseID]))
}

// withID copies doc and assigns an id when it has none. Generated ids start
// with an underscore so they stay apart from explicit ids added later, and
// skip any id already taken in the partition.
func withID(doc records.Document, prefix string, partition []records.Document) records.Document {
	out := make(records.Document, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	if id, ok := out["id"].(string); ok && id != "" {
		return out
	}

	taken := make(map[string]struct{}, len(partition))
	for _, d := range partition {
		if id, ok := d["id"].(string); ok {
			taken[id] = struct{}{}
		}
	}
	for n := len(partition) + 1; ; n++ {
		id := "_" + prefix + strconv.Itoa(n)
		if _, dup := taken[id]; !dup {
			out["id"] = id
			return out
		}
	}
}

func (s *RecordStore) ListCourses(_ context.Context) ([]v1.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	courses := make([]v1.Course, 0, len(s.fixture.Courses))
	for id, doc := range s.fixture.Courses {
		courses = append(courses, records.Course(id, doc))
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].ID < courses[j].ID })
	return courses, nil
}

func (s *RecordStore) FindAttendance(ctx context.Context, courseID string, key storage.YearKey) ([]v1.AttendanceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []v1.AttendanceRecord
	for _, doc := range s.fixture.Attendance[courseID] {
		if !yearMatches(doc["year"], key) {
			continue
		}
		out = append(out, records.Attendance(doc["id"].(string), courseID, key.Year, doc))
	}
	return out, nil
}

func (s *RecordStore) FindGrades(ctx context.Context, courseID string, key storage.YearKey) ([]v1.GradeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []v1.GradeRecord
	for _, doc := range s.fixture.Grades[courseID] {
		if !yearMatches(doc["year"], key) {
			continue
		}
		if rec, ok := records.Grade(doc["id"].(string), courseID, key.Year, doc); ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *RecordStore) CountSections(_ context.Context, courseID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.fixture.Sections[courseID]), nil
}

func (s *RecordStore) CountUsersByRole(_ context.Context) (map[v1.Role]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[v1.Role]int)
	for _, u := range s.fixture.Users {
		counts[records.NormalizeRole(u["role"])]++
	}
	return counts, nil
}

func (s *RecordStore) Ping(_ context.Context) error { return nil }

// yearMatches applies the same typed equality a document database applies: a
// string key only matches string years and a numeric key only numeric ones.
func yearMatches(v interface{}, key storage.YearKey) bool {
	if _, isString := v.(string); isString != key.AsString {
		return false
	}
	if key.AsString {
		return v.(string) == strconv.Itoa(key.Year)
	}
	y, ok := records.ParseYear(v)
	return ok && y == key.Year
}
