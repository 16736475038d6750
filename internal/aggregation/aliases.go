package aggregation

import core "github.com/smart-student/stats-engine/internal/core/aggregation"

// Re-export core aggregation types for package-level compatibility.
type GradingPolicy = core.GradingPolicy
type Accumulator = core.Accumulator

var (
	DefaultGradingPolicy = core.DefaultGradingPolicy
	NewAccumulator       = core.NewAccumulator
)
