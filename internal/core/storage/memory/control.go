package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	v1 "github.com/smart-student/stats-engine/internal/api/v1"
	"github.com/smart-student/stats-engine/internal/core/storage"
)

// ControlStore keeps rebuild control records. Every method runs under one
// lock, which gives TryBegin the same compare-and-swap guarantee as the
// conditional upsert of the PostgreSQL adapter.
type ControlStore struct {
	mu      sync.Mutex
	records map[int]*v1.RebuildControl
}

// NewControlStore creates an empty control store.
func NewControlStore() *ControlStore {
	return &ControlStore{records: make(map[int]*v1.RebuildControl)}
}

func (s *ControlStore) TryBegin(_ context.Context, year int, now time.Time, debounce, staleAfter time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctl, ok := s.records[year]
	if ok && !eligible(ctl, now, debounce, staleAfter) {
		return false, nil
	}
	if !ok {
		ctl = &v1.RebuildControl{Year: year}
		s.records[year] = ctl
	}
	ctl.LastRebuild = now
	ctl.PendingCount = 0
	ctl.Status = v1.StateRebuilding
	ctl.LastError = ""
	return true, nil
}

func (s *ControlStore) IncrementPending(_ context.Context, year int, _ time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctl, ok := s.records[year]
	if !ok {
		return 0, storage.ErrNotFound
	}
	ctl.PendingCount++
	return ctl.PendingCount, nil
}

func (s *ControlStore) Finish(_ context.Context, year int, status v1.RebuildState, completedAt *time.Time, lastError string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctl, ok := s.records[year]
	if !ok {
		return storage.ErrNotFound
	}
	ctl.Status = status
	if completedAt != nil {
		t := *completedAt
		ctl.CompletedAt = &t
	}
	ctl.LastError = lastError
	return nil
}

func (s *ControlStore) Get(_ context.Context, year int) (*v1.RebuildControl, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctl, ok := s.records[year]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := *ctl
	if ctl.CompletedAt != nil {
		t := *ctl.CompletedAt
		out.CompletedAt = &t
	}
	return &out, nil
}

func (s *ControlStore) ListPending(_ context.Context, now time.Time, debounce, staleAfter time.Duration) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var years []int
	for year, ctl := range s.records {
		if ctl.PendingCount > 0 && eligible(ctl, now, debounce, staleAfter) {
			years = append(years, year)
		}
	}
	sort.Ints(years)
	return years, nil
}

// eligible reports whether a new rebuild may begin: the debounce window has
// passed and no rebuild is running, unless the running one is stale.
func eligible(ctl *v1.RebuildControl, now time.Time, debounce, staleAfter time.Duration) bool {
	if ctl.LastRebuild.After(now.Add(-debounce)) {
		return false
	}
	if ctl.Status == v1.StateRebuilding && ctl.LastRebuild.After(now.Add(-staleAfter)) {
		return false
	}
	return true
}
