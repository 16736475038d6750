package trigger

import (
	"encoding/json"
	"fmt"
	"time"

	v1 "github.com/smart-student/stats-engine/internal/api/v1"
)

// Selector is the `what` field of a rebuild request. It accepts a single
// section name or a list of them.
type Selector []string

func (s *Selector) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*s = Selector{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("what must be a string or a list of strings")
	}
	*s = many
	return nil
}

// RebuildRequest is the body of an on-demand or callable rebuild.
type RebuildRequest struct {
	Year *int     `json:"year,omitempty"`
	What Selector `json:"what,omitempty"`
}

// CallableRequest is the callable protocol envelope.
type CallableRequest struct {
	Data RebuildRequest `json:"data"`
}

// CallableResponse wraps a callable result.
type CallableResponse struct {
	Result *v1.RebuildResult `json:"result"`
}

// CallableError is the callable protocol error body.
type CallableError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// StatusResponse is the body of GET /api/stats/rebuild.
type StatusResponse struct {
	Cached        bool               `json:"cached"`
	Year          int                `json:"year"`
	LastUpdated   *time.Time         `json:"lastUpdated,omitempty"`
	HasAttendance bool               `json:"hasAttendance"`
	HasGrades     bool               `json:"hasGrades"`
	HasGeneral    bool               `json:"hasGeneral"`
	Control       *v1.RebuildControl `json:"control,omitempty"`
	AuthError     bool               `json:"authError,omitempty"`
	Message       string             `json:"message,omitempty"`
}

// HookResponse is the body returned by the attendance write hook.
type HookResponse struct {
	Year         int               `json:"year"`
	Decision     string            `json:"decision,omitempty"`
	PendingCount int               `json:"pendingCount"`
	Result       *v1.RebuildResult `json:"result,omitempty"`
	AuthError    bool              `json:"authError,omitempty"`
	Message      string            `json:"message,omitempty"`
}
