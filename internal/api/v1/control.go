package v1

import (
	"fmt"
	"time"
)

// RebuildState is the lifecycle state of a year's rebuild control record.
type RebuildState string

const (
	StateIdle       RebuildState = "idle"
	StateRebuilding RebuildState = "rebuilding"
	StateCompleted  RebuildState = "completed"
)

// RebuildControl is the per-year record consulted by write-triggered rebuilds,
// persisted as stats_control/rebuild_{year}.
type RebuildControl struct {
	Year         int          `json:"year"`
	LastRebuild  time.Time    `json:"lastRebuild"`
	PendingCount int          `json:"pendingCount"`
	Status       RebuildState `json:"status"`
	CompletedAt  *time.Time   `json:"completedAt,omitempty"`
	LastError    string       `json:"lastError,omitempty"`
}

// ControlID returns the document id of a year's control record.
func ControlID(year int) string {
	return fmt.Sprintf("rebuild_%d", year)
}

// Surface names the entry point that requested a rebuild.
type Surface string

const (
	SurfaceScheduled Surface = "scheduled"
	SurfaceTriggered Surface = "triggered"
	SurfaceOnDemand  Surface = "on_demand"
	SurfaceCallable  Surface = "callable"
	SurfaceCLI       Surface = "cli"
)
