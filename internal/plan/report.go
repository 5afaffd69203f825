package plan

import (
	"sort"
	"time"

	"loanplan/internal/model"
)

// TopK is the k used for the fairness top-k share metric.
const TopK = 3

// Assignments extracts the selected candidates as output assignments, in
// canonical candidate order.
func Assignments(m *Model, sol Solution) []model.Assignment {
	var out []model.Assignment
	for i, on := range sol.Selected {
		if !on {
			continue
		}
		c := m.Candidates[i]
		out = append(out, model.Assignment{
			VIN:      c.VIN,
			PersonID: c.PersonID,
			StartDay: c.StartDay,
			Make:     c.Make,
			Model:    c.Model,
			Rank:     c.Rank,
			Score:    c.Score,
		})
	}
	return out
}

// CapLedger builds the per-(partner, make) cap usage audit. Pairs with
// neither prior usage nor new assignments are omitted.
func CapLedger(m *Model, sol Solution, cfg Config) []model.CapUsage {
	var out []model.CapUsage
	for _, p := range m.CapPairs {
		assigned := 0
		for _, i := range p.Members {
			if sol.Selected[i] {
				assigned++
			}
		}
		if assigned == 0 && p.Used == 0 {
			continue
		}
		u := model.CapUsage{
			PersonID:   p.PersonID,
			Make:       p.Make,
			Rank:       p.Rank,
			Cap:        p.Cap,
			UsedBefore: p.Used,
			Assigned:   assigned,
			UsedAfter:  p.Used + assigned,
		}
		if !cfg.EnforceCapHard && p.Cap != Unlimited {
			u.Penalty = cfg.LambdaCap * float64(overage(p.Used+assigned, p.Cap)-overage(p.Used, p.Cap))
		}
		out = append(out, u)
	}
	return out
}

// FairnessLedger builds the per-partner distribution and the aggregate
// Gini/HHI/top-k metrics, computed only over partners who received at least
// one assignment.
func FairnessLedger(assignments []model.Assignment, cfg Config) model.FairnessReport {
	counts := make(map[string]int)
	for _, a := range assignments {
		counts[a.PersonID]++
	}
	rep := model.FairnessReport{Counts: counts, TopK: TopK}
	vals := make([]int, 0, len(counts))
	cost := fairnessCost(cfg.LambdaFair, cfg.Fairness)
	for _, n := range counts {
		vals = append(vals, n)
		if n > rep.MaxCount {
			rep.MaxCount = n
		}
		if cfg.LambdaFair > 0 {
			rep.Penalty += cost(float64(n))
		}
	}
	rep.Gini = Gini(vals)
	rep.HHI = HHI(vals)
	rep.TopKShare = TopKShare(vals, TopK)
	return rep
}

// BudgetLedger builds the per-bucket spend audit. Buckets with neither a
// budget row nor planned spend are omitted.
func BudgetLedger(m *Model, sol Solution, cfg Config) []model.BudgetUsage {
	var out []model.BudgetUsage
	for _, b := range m.Buckets {
		planned := 0.0
		for k, i := range b.Members {
			if sol.Selected[i] {
				planned += b.Costs[k]
			}
		}
		if planned == 0 && !b.HasRow {
			continue
		}
		u := model.BudgetUsage{
			Office:       b.Office,
			Fleet:        b.Fleet,
			Year:         b.Year,
			Quarter:      b.Quarter,
			Remaining:    b.Remaining,
			Planned:      planned,
			HasBudgetRow: b.HasRow,
		}
		constrained := b.HasRow || cfg.EnforceMissingBudget
		if constrained && planned > b.Remaining {
			u.OverBudget = planned - b.Remaining
			if !cfg.EnforceBudgetHard {
				u.Penalty = cfg.PointsPerDollar * u.OverBudget
			}
		}
		out = append(out, u)
	}
	return out
}

// DailyUsage reports start-slot utilization for each day of the target week,
// echoing capacity calendar annotations (blackouts, reduced capacity, travel
// days) for operator visibility. Capacity -1 means no calendar row.
func DailyUsage(assignments []model.Assignment, snap model.Snapshot) []model.DayUsage {
	type calEntry struct {
		slots int
		notes string
	}
	cal := make(map[time.Time]calEntry)
	for _, cd := range snap.CapacityDays {
		if cd.Office == snap.Office {
			cal[day(cd.Date)] = calEntry{cd.Slots, cd.Notes}
		}
	}
	used := make(map[time.Time]int)
	for _, a := range assignments {
		used[day(a.StartDay)]++
	}

	weekStart := day(snap.WeekStart)
	out := make([]model.DayUsage, 0, 7)
	for off := 0; off < 7; off++ {
		d := weekStart.AddDate(0, 0, off)
		u := model.DayUsage{Date: d, Capacity: -1, Used: used[d]}
		if e, ok := cal[d]; ok {
			u.Capacity = e.slots
			u.Notes = e.notes
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
