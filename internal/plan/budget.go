package plan

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"loanplan/internal/model"
)

// fleetAliases folds common abbreviations and variants into the canonical
// budget bucket keys.
var fleetAliases = map[string]string{
	"CHEVY":     "CHEVROLET",
	"VW":        "VOLKSWAGEN",
	"MB":        "MERCEDES-BENZ",
	"MERCEDES":  "MERCEDES-BENZ",
	"BENZ":      "MERCEDES-BENZ",
	"LANDROVER": "LAND ROVER",
	"LAND":      "LAND ROVER",
	"ROLLS":     "ROLLS-ROYCE",
	"ALFA":      "ALFA ROMEO",
	"ALFAROMEO": "ALFA ROMEO",
}

// keepHyphen lists brand families whose canonical name carries a hyphen;
// everywhere else hyphens are stripped during normalization.
var keepHyphen = map[string]bool{
	"MERCEDES-BENZ": true,
	"ROLLS-ROYCE":   true,
}

// NormalizeFleet canonicalizes a fleet or make name for budget bucket
// matching: trimmed, uppercased, aliased, hyphens preserved only for the
// brand families that carry them.
func NormalizeFleet(raw string) string {
	f := strings.ToUpper(strings.TrimSpace(raw))
	if v, ok := fleetAliases[f]; ok {
		return v
	}
	if keepHyphen[f] {
		return f
	}
	f = strings.ReplaceAll(f, "-", "")
	if v, ok := fleetAliases[f]; ok {
		return v
	}
	return f
}

// FiscalQuarter maps a date to its fiscal (calendar) year and quarter.
func FiscalQuarter(t time.Time) (year, quarter int) {
	return t.Year(), (int(t.Month())-1)/3 + 1
}

// BudgetBucket is one (office, fleet, year, quarter) spend group with the
// candidate indices and per-candidate dollar costs attributed to it. Spend is
// attributed to the quarter containing each candidate's start day, so a week
// straddling a quarter boundary splits across two buckets.
type BudgetBucket struct {
	Office  string
	Fleet   string
	Year    int
	Quarter int

	Remaining float64
	HasRow    bool

	Members []int
	Costs   []float64
}

// BudgetBuckets groups candidates into spend buckets and resolves each
// bucket's remaining budget from the Budget table.
func BudgetBuckets(cands []Candidate, budgets []model.Budget, office string, cfg Config) []BudgetBucket {
	rows := make(map[string]model.Budget, len(budgets))
	for _, b := range budgets {
		k := bucketKey(b.Office, NormalizeFleet(b.Fleet), b.Year, b.Quarter)
		rows[k] = b
	}

	byKey := make(map[string]*BudgetBucket)
	var keys []string
	for i, c := range cands {
		fleet := NormalizeFleet(c.Make)
		year, quarter := FiscalQuarter(c.StartDay)
		k := bucketKey(office, fleet, year, quarter)
		b, ok := byKey[k]
		if !ok {
			b = &BudgetBucket{Office: office, Fleet: fleet, Year: year, Quarter: quarter}
			if row, found := rows[k]; found {
				b.HasRow = true
				b.Remaining = row.Remaining()
			}
			byKey[k] = b
			keys = append(keys, k)
		}
		b.Members = append(b.Members, i)
		b.Costs = append(b.Costs, cfg.costFor(c.Make))
	}

	sort.Strings(keys)
	out := make([]BudgetBucket, 0, len(keys))
	for _, k := range keys {
		out = append(out, *byKey[k])
	}
	return out
}

func bucketKey(office, fleet string, year, quarter int) string {
	return fmt.Sprintf("%s|%s|%d|%d", office, fleet, year, quarter)
}

func (b BudgetBucket) name() string {
	return fmt.Sprintf("budget:%s:%s:%d-Q%d", b.Office, b.Fleet, b.Year, b.Quarter)
}

// SpendLimit returns the hard constraint capping the bucket's planned spend
// at its remaining budget. A bucket with no Budget row has no constraint
// unless enforceMissing is set, in which case it is treated as remaining 0.
func (b BudgetBucket) SpendLimit(enforceMissing bool) (LinearLimit, bool) {
	if !b.HasRow && !enforceMissing {
		return LinearLimit{}, false
	}
	return LinearLimit{
		Name:    b.name(),
		Members: b.Members,
		Weights: b.Costs,
		Max:     b.Remaining,
	}, true
}

// OverspendPenalty returns the soft term charging pointsPerDollar for every
// planned dollar beyond the remaining budget.
func (b BudgetBucket) OverspendPenalty(pointsPerDollar float64, enforceMissing bool) (PenaltyTerm, bool) {
	if (!b.HasRow && !enforceMissing) || pointsPerDollar <= 0 {
		return PenaltyTerm{}, false
	}
	remaining := b.Remaining
	return PenaltyTerm{
		Name:    b.name(),
		Members: b.Members,
		Weights: b.Costs,
		Cost: func(total float64) float64 {
			if total <= remaining {
				return 0
			}
			return pointsPerDollar * (total - remaining)
		},
	}, true
}
