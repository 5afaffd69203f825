package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"loanplan/internal/plan"
)

// File is the optional YAML configuration file. Missing fields keep their
// defaults; a missing file is not an error.
type File struct {
	Server  Server  `yaml:"server"`
	Planner Planner `yaml:"planner"`
}

type Server struct {
	Addr           string  `yaml:"addr"`
	RateLimitRPS   float64 `yaml:"rateLimitRps"`
	RateLimitBurst int     `yaml:"rateLimitBurst"`
}

// Planner mirrors the plan.Config surface in YAML-friendly form. Zero values
// mean "keep the default".
type Planner struct {
	MinAvailableDays     int      `yaml:"minAvailableDays"`
	AllowedStartWeekdays []string `yaml:"allowedStartWeekdays"`
	DefaultCooldownDays  *int     `yaml:"defaultCooldownDays"`
	RollingWindowMonths  int      `yaml:"rollingWindowMonths"`

	WRank    *float64 `yaml:"wRank"`
	WGeo     *float64 `yaml:"wGeo"`
	WPub     *float64 `yaml:"wPub"`
	WRecency *float64 `yaml:"wRecency"`
	WPref    *float64 `yaml:"wPref"`

	EngagementMode string   `yaml:"engagementMode"`
	GeoDecayKm     *float64 `yaml:"geoDecayKm"`

	LambdaCap      *float64 `yaml:"lambdaCap"`
	EnforceCapHard *bool    `yaml:"enforceCapHard"`

	LambdaFair *float64 `yaml:"lambdaFair"`
	FairTarget *int     `yaml:"fairTarget"`
	FairStepUp *float64 `yaml:"fairStepUp"` // > 0 switches to stepped mode

	EnforceBudgetHard    *bool              `yaml:"enforceBudgetHard"`
	EnforceMissingBudget *bool              `yaml:"enforceMissingBudget"`
	PointsPerDollar      *float64           `yaml:"pointsPerDollar"`
	CostPerAssignment    map[string]float64 `yaml:"costPerAssignment"`
	DefaultCost          *float64           `yaml:"defaultCost"`

	SolverTimeLimitSeconds int    `yaml:"solverTimeLimitSeconds"`
	SolverIterations       int    `yaml:"solverIterations"`
	RandomSeed             *int64 `yaml:"randomSeed"`
	Workers                int    `yaml:"workers"`
}

// Load reads path when it exists. An empty path or missing file yields the
// zero File (all defaults).
func Load(path string) (File, error) {
	var f File
	if path == "" {
		return f, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return f, nil
	}
	if err != nil {
		return f, err
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("parse %s: %w", path, err)
	}
	return f, nil
}

// PlanConfig overlays the file's planner section onto the production
// defaults.
func (p Planner) PlanConfig() (plan.Config, error) {
	cfg := plan.DefaultConfig()
	if p.MinAvailableDays > 0 {
		cfg.MinAvailableDays = p.MinAvailableDays
	}
	if len(p.AllowedStartWeekdays) > 0 {
		days := make([]time.Weekday, 0, len(p.AllowedStartWeekdays))
		for _, s := range p.AllowedStartWeekdays {
			wd, err := parseWeekday(s)
			if err != nil {
				return cfg, err
			}
			days = append(days, wd)
		}
		cfg.AllowedStartWeekdays = days
	}
	if p.DefaultCooldownDays != nil {
		cfg.DefaultCooldownDays = *p.DefaultCooldownDays
	}
	if p.RollingWindowMonths > 0 {
		cfg.RollingWindowMonths = p.RollingWindowMonths
	}
	setF(&cfg.WRank, p.WRank)
	setF(&cfg.WGeo, p.WGeo)
	setF(&cfg.WPub, p.WPub)
	setF(&cfg.WRecency, p.WRecency)
	setF(&cfg.WPref, p.WPref)
	if p.EngagementMode != "" {
		cfg.EngagementMode = plan.EngagementMode(p.EngagementMode)
	}
	setF(&cfg.GeoDecayKm, p.GeoDecayKm)
	setF(&cfg.LambdaCap, p.LambdaCap)
	if p.EnforceCapHard != nil {
		cfg.EnforceCapHard = *p.EnforceCapHard
	}
	setF(&cfg.LambdaFair, p.LambdaFair)
	target := 1
	if lin, ok := cfg.Fairness.(plan.FairnessLinear); ok {
		target = lin.Target
	}
	if p.FairTarget != nil {
		target = *p.FairTarget
	}
	if p.FairStepUp != nil && *p.FairStepUp > 0 {
		cfg.Fairness = plan.FairnessStepped{Target: target, StepUp: *p.FairStepUp}
	} else {
		cfg.Fairness = plan.FairnessLinear{Target: target}
	}
	if p.EnforceBudgetHard != nil {
		cfg.EnforceBudgetHard = *p.EnforceBudgetHard
	}
	if p.EnforceMissingBudget != nil {
		cfg.EnforceMissingBudget = *p.EnforceMissingBudget
	}
	setF(&cfg.PointsPerDollar, p.PointsPerDollar)
	if len(p.CostPerAssignment) > 0 {
		cfg.CostPerAssignment = p.CostPerAssignment
	}
	setF(&cfg.DefaultCost, p.DefaultCost)
	if p.SolverTimeLimitSeconds > 0 {
		cfg.SolverTimeLimit = time.Duration(p.SolverTimeLimitSeconds) * time.Second
	}
	if p.SolverIterations > 0 {
		cfg.SolverIterations = p.SolverIterations
	}
	if p.RandomSeed != nil {
		cfg.Seed = *p.RandomSeed
	}
	if p.Workers > 0 {
		cfg.Workers = p.Workers
	}
	return cfg, cfg.Validate()
}

func setF(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func parseWeekday(s string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sun", "sunday":
		return time.Sunday, nil
	case "mon", "monday":
		return time.Monday, nil
	case "tue", "tuesday":
		return time.Tuesday, nil
	case "wed", "wednesday":
		return time.Wednesday, nil
	case "thu", "thursday":
		return time.Thursday, nil
	case "fri", "friday":
		return time.Friday, nil
	case "sat", "saturday":
		return time.Saturday, nil
	}
	return 0, fmt.Errorf("unrecognized weekday: %q", s)
}
