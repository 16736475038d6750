package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	v1 "github.com/smart-student/stats-engine/internal/api/v1"
	"github.com/smart-student/stats-engine/internal/core/config"
	"github.com/smart-student/stats-engine/internal/core/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const recordsFixture = `
courses:
  c1: {name: "1° Básico A"}
sections:
  c1: [{id: s1}, {id: s2}]
users:
  - {id: u1, role: estudiante}
  - {id: u2, role: profesor}
attendance:
  c1:
    - {id: a1, year: 2025, status: present, date: "2025-03-04"}
    - {id: a2, year: "2025", status: absent, date: "2025-03-05"}
grades:
  c1:
    - {id: g1, year: 2025, score: 70}
`

func loadConfig(t *testing.T, body string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	fixture := filepath.Join(dir, "records.yaml")
	require.NoError(t, os.WriteFile(fixture, []byte(recordsFixture), 0o644))

	path := filepath.Join(dir, "stats.yaml")
	body = strings.ReplaceAll(body, "FIXTURE", fixture)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

const memoryConfig = `
records:
  backend: "memory"
  fixture: "FIXTURE"
cache:
  backend: "memory"
schedule:
  enabled: false
`

func TestNew_MemoryBackendsServeRebuildAndSummary(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a, err := New(context.Background(), loadConfig(t, memoryConfig))
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Scheduler)
	assert.Nil(t, a.Listener)
	assert.Contains(t, a.HealthChecks(), "records")

	r := gin.New()
	a.RegisterRoutes(r)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/stats/rebuild", strings.NewReader(`{"year":2025}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res v1.RebuildResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.True(t, res.Success)
	require.NotNil(t, res.Attendance)
	assert.Equal(t, 2, res.Attendance.TotalRecords)
	assert.Equal(t, 50.0, res.Attendance.AttendanceRate)
	require.NotNil(t, res.General)
	assert.Equal(t, 2, res.General.TotalSections)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats/summary?year=2025", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var summary struct {
		Cached bool `json:"cached"`
		Year   int  `json:"year"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.True(t, summary.Cached)
	assert.Equal(t, 2025, summary.Year)
}

func TestNew_EmptyDSNIsSoftConfigError(t *testing.T) {
	a, err := New(context.Background(), loadConfig(t, `
schedule:
  enabled: false
trigger:
  listen_enabled: true
`))
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Listener)

	res := a.Controller.Rebuild(context.Background(), 2025, v1.SelectAll(), v1.SurfaceCLI)
	require.False(t, res.Success)
	assert.True(t, res.AuthError)

	_, err = a.Controller.Trigger(context.Background(), 2025)
	require.Error(t, err)
	assert.True(t, storage.IsConfigError(err))

	checks := a.HealthChecks()
	require.Contains(t, checks, "cache")
	assert.True(t, storage.IsConfigError(checks["records"].Ping(context.Background())))
}

func TestNew_SchedulerRunsUntilCancelled(t *testing.T) {
	a, err := New(context.Background(), loadConfig(t, `
records:
  backend: "memory"
  fixture: "FIXTURE"
cache:
  backend: "memory"
schedule:
  enabled: true
  cron: "0 2 * * *"
  sweep_cron: "@every 1m"
  timezone: "America/Santiago"
`))
	require.NoError(t, err)
	defer a.Close()
	require.NotNil(t, a.Scheduler)
	assert.Equal(t, "America/Santiago", a.Location.String())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.RunBackground(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("background components did not stop")
	}
}

func TestUnavailable_EveryCallIsConfigError(t *testing.T) {
	u := unavailable{}
	ctx := context.Background()

	_, err := u.ListCourses(ctx)
	assert.ErrorIs(t, err, storage.ErrNotConfigured)
	_, err = u.Read(ctx, 2025)
	assert.ErrorIs(t, err, storage.ErrNotConfigured)
	_, err = u.ReadSnapshot(ctx, 2025, true, true)
	assert.ErrorIs(t, err, storage.ErrNotConfigured)
	_, err = u.TryBegin(ctx, 2025, time.Now(), time.Minute, time.Minute)
	assert.ErrorIs(t, err, storage.ErrNotConfigured)

	wrapped := unavailable{err: storage.ErrNotConfigured}
	assert.True(t, storage.IsConfigError(wrapped.Ping(ctx)))
}
