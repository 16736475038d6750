package aggregation

import (
	"fmt"

	v1 "github.com/smart-student/stats-engine/internal/api/v1"
)

// Grading modes.
const (
	// ModeLegacy accepts both scales at once: a score passes when it is at
	// least 60 on the percent scale or within 4.0..7.0 on the numeric scale.
	ModeLegacy  = "legacy"
	ModePercent = "percent"
	ModeNumeric = "numeric"
)

// GradingPolicy decides whether a score is approved.
type GradingPolicy struct {
	Mode        string  `koanf:"mode"`
	PassPercent float64 `koanf:"pass_percent"`
	NumericMin  float64 `koanf:"numeric_min"`
	NumericMax  float64 `koanf:"numeric_max"`
	NumericPass float64 `koanf:"numeric_pass"`
}

// DefaultGradingPolicy is the policy used when none is configured.
func DefaultGradingPolicy() GradingPolicy {
	return GradingPolicy{
		Mode:        ModeLegacy,
		PassPercent: 60,
		NumericMin:  1.0,
		NumericMax:  7.0,
		NumericPass: 4.0,
	}
}

// Grader classifies one score under a policy.
type Grader interface {
	Approved(p GradingPolicy, score float64) bool
}

// Graders is the registry of grading modes.
var Graders = map[string]Grader{
	ModeLegacy:  legacyGrader{},
	ModePercent: percentGrader{},
	ModeNumeric: numericGrader{},
}

// Validate reports configuration mistakes.
func (p GradingPolicy) Validate() error {
	if _, ok := Graders[p.Mode]; !ok {
		return fmt.Errorf("unknown grading mode %q (want legacy, percent or numeric)", p.Mode)
	}
	if p.PassPercent < 0 || p.PassPercent > 100 {
		return fmt.Errorf("pass_percent must be within 0..100, got %v", p.PassPercent)
	}
	if p.NumericMin >= p.NumericMax {
		return fmt.Errorf("numeric_min (%v) must be below numeric_max (%v)", p.NumericMin, p.NumericMax)
	}
	if p.NumericPass < p.NumericMin || p.NumericPass > p.NumericMax {
		return fmt.Errorf("numeric_pass (%v) must be within numeric_min..numeric_max", p.NumericPass)
	}
	return nil
}

// Approved classifies score. A scale declared on the record wins over the
// configured mode.
func (p GradingPolicy) Approved(score float64, scale v1.GradingScale) bool {
	mode := p.Mode
	switch scale {
	case v1.ScalePercent:
		mode = ModePercent
	case v1.ScaleNumeric:
		mode = ModeNumeric
	}
	g, ok := Graders[mode]
	if !ok {
		g = legacyGrader{}
	}
	return g.Approved(p, score)
}

type legacyGrader struct{}

func (legacyGrader) Approved(_ GradingPolicy, score float64) bool {
	return score >= 60 || (score >= 4.0 && score <= 7.0)
}

type percentGrader struct{}

func (percentGrader) Approved(p GradingPolicy, score float64) bool {
	return score >= p.PassPercent
}

type numericGrader struct{}

func (numericGrader) Approved(p GradingPolicy, score float64) bool {
	return score >= p.NumericPass && score <= p.NumericMax
}
