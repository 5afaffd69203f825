package model

import (
	"strings"
	"time"
)

// Rank is a partner's approval tier for a make.
type Rank string

const (
	RankAPlus Rank = "A+"
	RankA     Rank = "A"
	RankB     Rank = "B"
	RankC     Rank = "C"
)

// ParseRank maps raw rank text to a Rank. Unknown or empty values resolve to
// RankC, the most restrictive tier.
func ParseRank(s string) Rank {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A+":
		return RankAPlus
	case "A":
		return RankA
	case "B":
		return RankB
	case "C":
		return RankC
	default:
		return RankC
	}
}

// Vehicle is an immutable reference record for one loaner unit.
type Vehicle struct {
	VIN        string `json:"vin"`
	Make       string `json:"make"`
	Model      string `json:"model"`
	Office     string `json:"office"`
	Class      string `json:"class,omitempty"`      // optional taxonomy class
	Powertrain string `json:"powertrain,omitempty"` // optional powertrain tag
}

// Partner is a media partner eligible to receive loans.
type Partner struct {
	PersonID         string        `json:"personId"`
	Office           string        `json:"office"`
	Lat              *float64      `json:"lat,omitempty"`
	Lon              *float64      `json:"lon,omitempty"`
	PreferredWeekday *time.Weekday `json:"preferredWeekday,omitempty"`
	PublicationRate  *float64      `json:"publicationRate,omitempty"` // 0..1, or percent if > 1
}

// Approval grants a partner eligibility for a make at a rank.
type Approval struct {
	PersonID string `json:"personId"`
	Make     string `json:"make"`
	Rank     Rank   `json:"rank"`
}

// AvailabilityRecord marks one vin x date availability cell.
type AvailabilityRecord struct {
	VIN       string    `json:"vin"`
	Date      time.Time `json:"date"`
	Available bool      `json:"available"`
}

// LoanHistoryRecord is a prior loan. EndDate is nil for records whose end was
// never captured; consumers fall back to StartDate.
type LoanHistoryRecord struct {
	PersonID   string     `json:"personId"`
	Make       string     `json:"make"`
	Model      string     `json:"model,omitempty"`
	Class      string     `json:"class,omitempty"`
	Powertrain string     `json:"powertrain,omitempty"`
	StartDate  time.Time  `json:"startDate"`
	EndDate    *time.Time `json:"endDate,omitempty"`
}

// EffectiveEnd returns EndDate, or StartDate when the end was not recorded.
func (r LoanHistoryRecord) EffectiveEnd() time.Time {
	if r.EndDate != nil {
		return *r.EndDate
	}
	return r.StartDate
}

// Rule overrides rank-default caps and cooldowns for a (make, rank). A rule
// present with a nil or zero AnnualCap is an explicit restriction, not an
// omission. CooldownDays == 0 disables cooldown for the make.
type Rule struct {
	Make         string `json:"make"`
	Rank         Rank   `json:"rank,omitempty"` // empty matches any rank
	AnnualCap    *int   `json:"annualCap,omitempty"`
	CooldownDays *int   `json:"cooldownDays,omitempty"`
}

// Budget is one (office, fleet, year, quarter) spend bucket. AmountUsed nil
// is treated as 0.
type Budget struct {
	Office       string   `json:"office"`
	Fleet        string   `json:"fleet"`
	Year         int      `json:"year"`
	Quarter      int      `json:"quarter"`
	BudgetAmount float64  `json:"budgetAmount"`
	AmountUsed   *float64 `json:"amountUsed,omitempty"`
}

// Remaining returns the unspent budget, floored at zero.
func (b Budget) Remaining() float64 {
	used := 0.0
	if b.AmountUsed != nil {
		used = *b.AmountUsed
	}
	if rem := b.BudgetAmount - used; rem > 0 {
		return rem
	}
	return 0
}

// CapacityDay is one calendar date's start-slot capacity. Slots == 0 marks a
// blackout date.
type CapacityDay struct {
	Office string    `json:"office"`
	Date   time.Time `json:"date"`
	Slots  int       `json:"slots"`
	Notes  string    `json:"notes,omitempty"`
}

// Snapshot bundles the read-only inputs for one (office, week) planning run.
// Collections are already scoped by the caller/ETL layer; the engine
// re-filters by office defensively but never mutates them.
type Snapshot struct {
	Office    string    `json:"office"`
	WeekStart time.Time `json:"weekStart"` // ISO week start (Monday, UTC midnight)
	AsOf      time.Time `json:"asOf"`      // reference instant for rolling windows

	// Optional office coordinates for the continuous geo score.
	OfficeLat *float64 `json:"officeLat,omitempty"`
	OfficeLon *float64 `json:"officeLon,omitempty"`

	Vehicles     []Vehicle            `json:"vehicles"`
	Partners     []Partner            `json:"partners"`
	Approvals    []Approval           `json:"approvals"`
	Availability []AvailabilityRecord `json:"availability"`
	LoanHistory  []LoanHistoryRecord  `json:"loanHistory"`
	Rules        []Rule               `json:"rules"`
	Budgets      []Budget             `json:"budgets"`
	CapacityDays []CapacityDay        `json:"capacityDays"`
}

// Assignment is one selected (vehicle, partner, start day) loan.
type Assignment struct {
	VIN      string    `json:"vin"`
	PersonID string    `json:"personId"`
	StartDay time.Time `json:"startDay"`
	Make     string    `json:"make"`
	Model    string    `json:"model,omitempty"`
	Rank     Rank      `json:"rank"`
	Score    float64   `json:"score"`
}

// SolveStatus is the terminal state of a planning run.
type SolveStatus string

const (
	StatusOptimal      SolveStatus = "OPTIMAL"
	StatusFeasible     SolveStatus = "FEASIBLE" // time-limited best found
	StatusInfeasible   SolveStatus = "INFEASIBLE"
	StatusModelInvalid SolveStatus = "MODEL_INVALID"
)

// CapUsage is one (partner, make) row of the tier-cap audit ledger.
type CapUsage struct {
	PersonID   string  `json:"personId"`
	Make       string  `json:"make"`
	Rank       Rank    `json:"rank"`
	Cap        int     `json:"cap"` // -1 means unlimited
	UsedBefore int     `json:"usedBefore"`
	Assigned   int     `json:"assigned"`
	UsedAfter  int     `json:"usedAfter"`
	Penalty    float64 `json:"penalty,omitempty"`
}

// FairnessReport aggregates the per-partner distribution of one run. The
// inequality metrics count only partners who received at least one
// assignment.
type FairnessReport struct {
	Counts    map[string]int `json:"counts"` // personID -> assignments
	MaxCount  int            `json:"maxCount"`
	Gini      float64        `json:"gini"`
	HHI       float64        `json:"hhi"`
	TopK      int            `json:"topK"`
	TopKShare float64        `json:"topKShare"`
	Penalty   float64        `json:"penalty,omitempty"`
}

// BudgetUsage is one (office, fleet, quarter) row of the budget ledger.
type BudgetUsage struct {
	Office       string  `json:"office"`
	Fleet        string  `json:"fleet"`
	Year         int     `json:"year"`
	Quarter      int     `json:"quarter"`
	Remaining    float64 `json:"remaining"`
	Planned      float64 `json:"planned"`
	OverBudget   float64 `json:"overBudget"`
	Penalty      float64 `json:"penalty,omitempty"`
	HasBudgetRow bool    `json:"hasBudgetRow"`
}

// DayUsage is one calendar date's start-slot utilization, with capacity
// calendar annotations echoed back for operator visibility.
type DayUsage struct {
	Date     time.Time `json:"date"`
	Capacity int       `json:"capacity"` // -1 means no calendar row (unconstrained)
	Used     int       `json:"used"`
	Notes    string    `json:"notes,omitempty"`
}

// RunResult is the complete, auditable output of one planning run.
type RunResult struct {
	RunID     string      `json:"runId"`
	Office    string      `json:"office"`
	WeekStart time.Time   `json:"weekStart"`
	Algorithm string      `json:"algorithm"`
	Status    SolveStatus `json:"status"`
	Seed      int64       `json:"seed"`

	Objective   float64      `json:"objective"`
	Assignments []Assignment `json:"assignments"`

	CapLedger    []CapUsage     `json:"capLedger"`
	Fairness     FairnessReport `json:"fairness"`
	BudgetLedger []BudgetUsage  `json:"budgetLedger"`
	DailyUsage   []DayUsage     `json:"dailyUsage"`

	Candidates int       `json:"candidates"` // surviving candidates fed to the solver
	Iterations int       `json:"iterations"`
	SolveMs    int64     `json:"solveMs"`
	CreatedAt  time.Time `json:"createdAt"`
}

// PlanRequest triggers one batch planning run via the API. Optional fields
// override the server's planner defaults for this run only.
type PlanRequest struct {
	Office            string   `json:"office"`
	WeekStart         string   `json:"weekStart"` // ISO date, the week's Monday
	Seed              *int64   `json:"seed,omitempty"`
	TimeLimitSeconds  *int     `json:"timeLimitSeconds,omitempty"`
	Workers           *int     `json:"workers,omitempty"`
	EngagementMode    string   `json:"engagementMode,omitempty"`
	LambdaFair        *float64 `json:"lambdaFair,omitempty"`
	EnforceCapHard    *bool    `json:"enforceCapHard,omitempty"`
	EnforceBudgetHard *bool    `json:"enforceBudgetHard,omitempty"`
}

// RunSummary is the list-view projection of a stored run.
type RunSummary struct {
	RunID       string      `json:"runId"`
	Office      string      `json:"office"`
	WeekStart   time.Time   `json:"weekStart"`
	Status      SolveStatus `json:"status"`
	Assignments int         `json:"assignments"`
	Objective   float64     `json:"objective"`
	CreatedAt   time.Time   `json:"createdAt"`
}
