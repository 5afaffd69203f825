package plan

import (
	"fmt"
	"time"

	"loanplan/internal/model"
)

// EngagementMode selects how the recency score rewards partner activity.
type EngagementMode string

const (
	EngagementDormant  EngagementMode = "dormant"  // reward long absence
	EngagementNeutral  EngagementMode = "neutral"  // recency contributes 0
	EngagementMomentum EngagementMode = "momentum" // reward recent activity
)

// FairnessMode is the anti-concentration penalty shape.
type FairnessMode interface{ fairnessMode() }

// FairnessLinear charges lambdaFair per assignment beyond Target.
type FairnessLinear struct {
	Target int
}

// FairnessStepped adds a second, steeper charge beyond two assignments on top
// of the linear term.
type FairnessStepped struct {
	Target int
	StepUp float64
}

func (FairnessLinear) fairnessMode()  {}
func (FairnessStepped) fairnessMode() {}

// Config is the full planner configuration. Everything the engine can vary is
// here; no package-level defaults are consulted at run time, so multiple
// configurations can coexist in one process.
type Config struct {
	MinAvailableDays     int
	AllowedStartWeekdays []time.Weekday

	// CooldownFilter
	DefaultCooldownDays int

	// TierCapEngine
	RollingWindowMonths int
	RankCaps            map[model.Rank]int // -1 means unlimited
	LambdaCap           float64
	EnforceCapHard      bool

	// ObjectiveShaper
	RankWeights    map[model.Rank]float64
	WRank          float64
	WGeo           float64
	WPub           float64
	WRecency       float64
	WPref          float64
	EngagementMode EngagementMode
	GeoDecayKm     float64 // distance at which the continuous geo score halves

	// FairnessEngine
	LambdaFair float64
	Fairness   FairnessMode

	// BudgetEngine
	EnforceBudgetHard    bool
	EnforceMissingBudget bool
	PointsPerDollar      float64
	CostPerAssignment    map[string]float64 // by make
	DefaultCost          float64

	// Solver
	SolverTimeLimit  time.Duration
	SolverIterations int
	Seed             int64
	Workers          int // 1 pins bit-for-bit determinism

	// EligibilityFallbackAll treats every partner as eligible for every make.
	// Test fixture mode only; production callers must supply approvals.
	EligibilityFallbackAll bool
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MinAvailableDays: 7,
		AllowedStartWeekdays: []time.Weekday{
			time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
		},
		DefaultCooldownDays: 30,
		RollingWindowMonths: 12,
		RankCaps: map[model.Rank]int{
			model.RankAPlus: -1,
			model.RankA:     100,
			model.RankB:     50,
			model.RankC:     10,
		},
		LambdaCap:      250,
		EnforceCapHard: true,
		RankWeights: map[model.Rank]float64{
			model.RankAPlus: 1000,
			model.RankA:     500,
			model.RankB:     250,
			model.RankC:     100,
		},
		WRank:            1,
		WGeo:             50,
		WPub:             50,
		WRecency:         30,
		WPref:            20,
		EngagementMode:   EngagementNeutral,
		GeoDecayKm:       50,
		LambdaFair:       150,
		Fairness:         FairnessLinear{Target: 1},
		PointsPerDollar:  1,
		DefaultCost:      750,
		SolverTimeLimit:  10 * time.Second,
		SolverIterations: 20000,
		Seed:             1,
		Workers:          1,
	}
}

// Validate rejects configurations before model construction. A non-nil error
// corresponds to the MODEL_INVALID terminal state.
func (c Config) Validate() error {
	if c.MinAvailableDays <= 0 {
		return fmt.Errorf("minAvailableDays must be > 0, got %d", c.MinAvailableDays)
	}
	if len(c.AllowedStartWeekdays) == 0 {
		return fmt.Errorf("allowedStartWeekdays must not be empty")
	}
	switch c.EngagementMode {
	case EngagementDormant, EngagementNeutral, EngagementMomentum:
	default:
		return fmt.Errorf("unrecognized engagementMode: %q", c.EngagementMode)
	}
	if c.RollingWindowMonths <= 0 {
		return fmt.Errorf("rollingWindowMonths must be > 0, got %d", c.RollingWindowMonths)
	}
	if c.DefaultCooldownDays < 0 {
		return fmt.Errorf("defaultCooldownDays must be >= 0, got %d", c.DefaultCooldownDays)
	}
	if c.LambdaCap < 0 || c.LambdaFair < 0 || c.PointsPerDollar < 0 {
		return fmt.Errorf("penalty rates must be >= 0")
	}
	switch m := c.Fairness.(type) {
	case nil:
		return fmt.Errorf("fairness mode must be set")
	case FairnessLinear:
		if m.Target < 0 {
			return fmt.Errorf("fairness target must be >= 0, got %d", m.Target)
		}
	case FairnessStepped:
		if m.Target < 0 || m.StepUp < 0 {
			return fmt.Errorf("stepped fairness parameters must be >= 0")
		}
	default:
		return fmt.Errorf("unknown fairness mode %T", m)
	}
	if c.SolverTimeLimit <= 0 {
		return fmt.Errorf("solverTimeLimit must be > 0")
	}
	if c.SolverIterations <= 0 {
		return fmt.Errorf("solverIterations must be > 0")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0")
	}
	return nil
}

// rankWeight resolves the configured weight for a rank, defaulting unknown
// ranks to the RankC weight.
func (c Config) rankWeight(r model.Rank) float64 {
	if w, ok := c.RankWeights[r]; ok {
		return w
	}
	return c.RankWeights[model.RankC]
}

// costFor resolves the modeled dollar cost of one assignment of a make.
func (c Config) costFor(make string) float64 {
	if v, ok := c.CostPerAssignment[make]; ok {
		return v
	}
	return c.DefaultCost
}
