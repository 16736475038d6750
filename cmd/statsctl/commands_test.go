package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	v1 "github.com/smart-student/stats-engine/internal/api/v1"
	"github.com/smart-student/stats-engine/internal/core/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMemoryConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	fixture := filepath.Join(dir, "records.yaml")
	require.NoError(t, os.WriteFile(fixture, []byte(`
courses:
  c1: {name: "2° Medio B"}
attendance:
  c1:
    - {id: a1, year: 2024, status: present, date: "2024-05-02"}
    - {id: a2, year: 2024, status: late, date: "2024-05-03"}
grades:
  c1:
    - {id: g1, year: 2024, score: 5.5}
`), 0o644))

	path := filepath.Join(dir, "stats.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
records:
  backend: "memory"
  fixture: "`+fixture+`"
cache:
  backend: "memory"
schedule:
  enabled: false
`), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRebuildCommand(t *testing.T) {
	cfg := writeMemoryConfig(t)

	out, err := run(t, "rebuild", "--config", cfg, "--year", "2024")
	require.NoError(t, err)

	var res v1.RebuildResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.True(t, res.Success)
	assert.Equal(t, 2024, res.Year)
	require.NotNil(t, res.Attendance)
	assert.Equal(t, 100.0, res.Attendance.AttendanceRate)
	require.NotNil(t, res.Grades)
	assert.Equal(t, 1, res.Grades.ApprovedCount)
}

func TestRebuildCommand_AttendanceOnly(t *testing.T) {
	out, err := run(t, "rebuild", "-c", writeMemoryConfig(t), "-y", "2024", "--what", "attendance")
	require.NoError(t, err)

	var res v1.RebuildResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.NotNil(t, res.Attendance)
	assert.Nil(t, res.Grades)
}

func TestRebuildCommand_InvalidArguments(t *testing.T) {
	cfg := writeMemoryConfig(t)

	_, err := run(t, "rebuild", "--config", cfg, "--what", "payments")
	require.Error(t, err)

	_, err = run(t, "rebuild", "--config", cfg, "--year", "99999")
	require.Error(t, err)
}

func TestStatusCommand_EmptyCache(t *testing.T) {
	out, err := run(t, "status", "--config", writeMemoryConfig(t), "--year", "2024")
	require.NoError(t, err)

	var status statusOutput
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, 2024, status.Year)
	assert.Nil(t, status.Cache)
	assert.Nil(t, status.Control)
	assert.Equal(t, "no cached statistics", status.Message)
}

func TestSummaryCommand_NeedsRebuild(t *testing.T) {
	out, err := run(t, "summary", "--config", writeMemoryConfig(t), "--year", "2024")
	require.NoError(t, err)

	var resp struct {
		Cached       bool `json:"cached"`
		NeedsRebuild bool `json:"needsRebuild"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.False(t, resp.Cached)
	assert.True(t, resp.NeedsRebuild)
}

func TestSweepCommand_NothingPending(t *testing.T) {
	out, err := run(t, "sweep", "--config", writeMemoryConfig(t))
	require.NoError(t, err)
	assert.JSONEq(t, `{"started":0}`, out)
}

func TestMigrateCommand_RequiresDSN(t *testing.T) {
	t.Setenv("STATS_DATABASE__DSN", "")
	_, err := run(t, "migrate", "--config", writeMemoryConfig(t))
	require.Error(t, err)
	assert.True(t, storage.IsConfigError(err))
}
