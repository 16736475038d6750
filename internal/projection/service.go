package projection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/smart-student/stats-engine/internal/aggregation"
	v1 "github.com/smart-student/stats-engine/internal/api/v1"
	"github.com/smart-student/stats-engine/internal/core/storage"
)

// ErrInvalidQuery marks request validation errors that should return HTTP 400.
var ErrInvalidQuery = errors.New("invalid summary query")

// Service implements the read path of the stats cache. It never touches raw
// records: a year without a snapshot is reported as needing a rebuild.
type Service struct {
	cache aggregation.StatsCacheStore
	loc   *time.Location
	nowFn func() time.Time
}

// NewService creates a new projection service. loc decides the current
// academic year when a request omits it.
func NewService(cache aggregation.StatsCacheStore, loc *time.Location) *Service {
	if cache == nil {
		panic("projection: cache store must not be nil")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		cache: cache,
		loc:   loc,
		nowFn: time.Now,
	}
}

// CurrentYear returns the academic year in progress.
func (s *Service) CurrentYear() int {
	return s.nowFn().In(s.loc).Year()
}

// Summary reads the cached snapshot of req.Year. Configuration failures of the
// cache store are reported in the response, not as an error.
func (s *Service) Summary(ctx context.Context, req SummaryRequest) (*SummaryResponse, error) {
	start := s.nowFn()
	if req.Year == 0 {
		req.Year = s.CurrentYear()
	}
	if err := v1.ValidateYear(req.Year); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidQuery, err)
	}

	resp := &SummaryResponse{Year: req.Year}
	defer func() { resp.ResponseTimeMs = s.nowFn().Sub(start).Milliseconds() }()

	snap, err := s.cache.ReadSnapshot(ctx, req.Year, req.IncludeMonthly, req.IncludeCourses)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		resp.NeedsRebuild = true
		resp.Message = fmt.Sprintf("no cached statistics for %d; run a rebuild", req.Year)
		return resp, nil
	case err != nil && storage.IsConfigError(err):
		slog.Warn("[Projection] Cache store not configured", "year", req.Year, "error", err)
		resp.AuthError = true
		resp.Message = "statistics store is not configured"
		return resp, nil
	case err != nil:
		return nil, fmt.Errorf("read stats cache: %w", err)
	}

	resp.Cached = true
	lastUpdated := snap.Cache.LastUpdated
	resp.LastUpdated = &lastUpdated
	resp.KPIs = rollupKPIs(snap.Cache)

	if req.IncludeMonthly {
		monthly := nonNil(snap.Monthly)
		resp.Monthly = &monthly
	}
	if req.IncludeCourses {
		courses := nonNil(snap.Courses)
		resp.Courses = &courses
	}
	return resp, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
