package plan

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"loanplan/internal/model"
)

// LinearLimit is a hard constraint: the weighted sum of selected members must
// not exceed Max. Nil Weights means unit weights.
type LinearLimit struct {
	Name    string
	Members []int
	Weights []float64
	Max     float64
}

// PenaltyTerm is a soft, price-like term: Cost of the weighted sum of
// selected members is subtracted from the objective. Cost must be
// monotonically non-decreasing, with Cost(0) == 0.
type PenaltyTerm struct {
	Name    string
	Members []int
	Weights []float64
	Cost    func(total float64) float64
}

// Model is one run's complete optimization problem: a boolean decision
// variable per candidate, hard limits, and the penalty terms contributed by
// the independent soft engines. CapPairs and Buckets are retained for the
// audit reporter.
type Model struct {
	Candidates []Candidate
	Limits     []LinearLimit
	Penalties  []PenaltyTerm

	CapPairs []CapPair
	Buckets  []BudgetBucket
}

// BuildModel layers the hard constraints (vehicle uniqueness, per-day start
// capacity) with the contributions of the tier-cap, fairness, and budget
// engines. Candidates must already be in canonical order.
func BuildModel(cands []Candidate, snap model.Snapshot, cfg Config) *Model {
	m := &Model{Candidates: cands}

	// One assignment per vehicle.
	byVIN := make(map[string][]int)
	var vins []string
	for i, c := range cands {
		if _, ok := byVIN[c.VIN]; !ok {
			vins = append(vins, c.VIN)
		}
		byVIN[c.VIN] = append(byVIN[c.VIN], i)
	}
	sort.Strings(vins)
	for _, vin := range vins {
		m.Limits = append(m.Limits, LinearLimit{Name: "vin:" + vin, Members: byVIN[vin], Max: 1})
	}

	// Per-date start capacity from the dynamic calendar. Dates without a
	// calendar row are unconstrained; blackout days never produced
	// candidates in the first place.
	slots := make(map[time.Time]int)
	for _, cd := range snap.CapacityDays {
		if cd.Office == snap.Office {
			slots[day(cd.Date)] = cd.Slots
		}
	}
	byDay := make(map[time.Time][]int)
	var dates []time.Time
	for i, c := range cands {
		d := day(c.StartDay)
		if _, ok := slots[d]; !ok {
			continue
		}
		if _, ok := byDay[d]; !ok {
			dates = append(dates, d)
		}
		byDay[d] = append(byDay[d], i)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	for _, d := range dates {
		m.Limits = append(m.Limits, LinearLimit{
			Name:    "day:" + d.Format("2006-01-02"),
			Members: byDay[d],
			Max:     float64(slots[d]),
		})
	}

	// Tier caps: hard headroom limits or soft incremental-overage penalties.
	rules := indexRules(snap.Rules)
	m.CapPairs = TierCapPairs(cands, snap.LoanHistory, rules, cfg, snap.AsOf)
	for _, p := range m.CapPairs {
		if cfg.EnforceCapHard {
			if lim, ok := p.HeadroomLimit(); ok {
				m.Limits = append(m.Limits, lim)
			}
		} else if term, ok := p.OveragePenalty(cfg.LambdaCap); ok {
			m.Penalties = append(m.Penalties, term)
		}
	}

	m.Penalties = append(m.Penalties, FairnessTerms(cands, cfg)...)

	m.Buckets = BudgetBuckets(cands, snap.Budgets, snap.Office, cfg)
	for _, b := range m.Buckets {
		if cfg.EnforceBudgetHard {
			if lim, ok := b.SpendLimit(cfg.EnforceMissingBudget); ok {
				m.Limits = append(m.Limits, lim)
			}
		} else if term, ok := b.OverspendPenalty(cfg.PointsPerDollar, cfg.EnforceMissingBudget); ok {
			m.Penalties = append(m.Penalties, term)
		}
	}

	return m
}

// Solution is one selection of candidates with its objective value.
type Solution struct {
	Selected  []bool
	Objective float64
}

// SolveMetrics reports how the search terminated.
type SolveMetrics struct {
	Status        model.SolveStatus
	Iterations    int
	Improvements  int
	AcceptedWorse int
	Elapsed       time.Duration
}

const deadlineCheckEvery = 128

// Solve maximizes sum(score * x) - sum(penalties) under the hard limits with
// a seeded greedy-plus-annealing search. With cfg.Workers <= 1 the search is
// single-threaded and iteration-governed, so identical inputs and seed
// reproduce the identical selection bit for bit; the wall-clock limit is a
// safety net that downgrades the status to FEASIBLE when it fires first.
// Workers > 1 runs independent seeded searches in parallel and keeps the best
// (ties broken by worker index), trading reproducibility guarantees across
// machines for throughput.
func (m *Model) Solve(cfg Config) (Solution, SolveMetrics) {
	start := time.Now()
	if len(m.Candidates) == 0 {
		return Solution{}, SolveMetrics{Status: model.StatusInfeasible, Elapsed: time.Since(start)}
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	deadline := start.Add(cfg.SolverTimeLimit)

	type result struct {
		sol      Solution
		met      SolveMetrics
		timedOut bool
	}
	results := make([]result, workers)
	if workers == 1 {
		sol, met, timedOut := m.search(cfg.Seed, cfg.SolverIterations, deadline)
		results[0] = result{sol, met, timedOut}
	} else {
		done := make(chan struct{})
		for w := 0; w < workers; w++ {
			go func(w int) {
				sol, met, timedOut := m.search(cfg.Seed+int64(w), cfg.SolverIterations, deadline)
				results[w] = result{sol, met, timedOut}
				done <- struct{}{}
			}(w)
		}
		for w := 0; w < workers; w++ {
			<-done
		}
	}

	best := results[0]
	for _, r := range results[1:] {
		if r.sol.Objective > best.sol.Objective {
			best = r
		}
	}
	met := best.met
	met.Elapsed = time.Since(start)
	met.Status = model.StatusOptimal
	for _, r := range results {
		if r.timedOut {
			met.Status = model.StatusFeasible
		}
	}
	return best.sol, met
}

// search runs one seeded greedy-seed + simulated-annealing pass.
func (m *Model) search(seed int64, iterations int, deadline time.Time) (Solution, SolveMetrics, bool) {
	rng := rand.New(rand.NewSource(seed))
	st := newState(m)
	n := len(m.Candidates)

	// Greedy seed: descending score, penalty-aware, hard-feasible only.
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return m.Candidates[order[a]].Score > m.Candidates[order[b]].Score
	})
	for _, i := range order {
		if st.canAdd(i) && st.flipDelta(i) > 0 {
			st.flip(i)
		}
	}

	best := append([]bool(nil), st.selected...)
	bestObj := st.objective()

	var met SolveMetrics
	timedOut := false
	temp := 50.0
	const cooling = 0.999
	for it := 0; it < iterations; it++ {
		if it%deadlineCheckEvery == 0 && time.Now().After(deadline) {
			timedOut = true
			break
		}
		met.Iterations++

		i := rng.Intn(n)
		var delta float64
		var undo []int
		if st.selected[i] {
			delta = st.flip(i)
			undo = []int{i}
		} else if st.canAdd(i) {
			delta = st.flip(i)
			undo = []int{i}
		} else {
			j := st.blockingSelected(i, rng)
			if j < 0 {
				continue
			}
			delta = st.flip(j)
			undo = []int{j}
			if st.canAdd(i) {
				delta += st.flip(i)
				undo = append(undo, i)
			}
		}

		if delta > 0 || rng.Float64() < math.Exp(delta/(temp+1e-9)) {
			if obj := st.objective(); obj > bestObj {
				bestObj = obj
				copy(best, st.selected)
				met.Improvements++
			} else if delta <= 0 {
				met.AcceptedWorse++
			}
		} else {
			for k := len(undo) - 1; k >= 0; k-- {
				st.flip(undo[k])
			}
		}
		temp *= cooling
	}

	return Solution{Selected: best, Objective: bestObj}, met, timedOut
}

// Evaluate computes the objective of an arbitrary selection. Exposed for
// tests and for scoring the greedy baseline against the solver.
func (m *Model) Evaluate(selected []bool) float64 {
	st := newState(m)
	for i, on := range selected {
		if on {
			st.flip(i)
		}
	}
	return st.objective()
}

// Feasible reports whether a selection satisfies every hard limit.
func (m *Model) Feasible(selected []bool) bool {
	totals := make([]float64, len(m.Limits))
	for li, lim := range m.Limits {
		for k, i := range lim.Members {
			if selected[i] {
				totals[li] += lim.weight(k)
			}
		}
		if totals[li] > lim.Max+1e-9 {
			return false
		}
	}
	return true
}

func (l LinearLimit) weight(k int) float64 {
	if l.Weights == nil {
		return 1
	}
	return l.Weights[k]
}

func (t PenaltyTerm) weight(k int) float64 {
	if t.Weights == nil {
		return 1
	}
	return t.Weights[k]
}

// ref ties a candidate to one constraint or term with its weight there.
type ref struct {
	idx int
	w   float64
}

// state tracks a selection with incremental limit and penalty totals.
type state struct {
	m           *Model
	selected    []bool
	limitTotals []float64
	termTotals  []float64
	scoreSum    float64
	limRefs     [][]ref
	termRefs    [][]ref
}

func newState(m *Model) *state {
	n := len(m.Candidates)
	st := &state{
		m:           m,
		selected:    make([]bool, n),
		limitTotals: make([]float64, len(m.Limits)),
		termTotals:  make([]float64, len(m.Penalties)),
		limRefs:     make([][]ref, n),
		termRefs:    make([][]ref, n),
	}
	for li, lim := range m.Limits {
		for k, i := range lim.Members {
			st.limRefs[i] = append(st.limRefs[i], ref{li, lim.weight(k)})
		}
	}
	for ti, term := range m.Penalties {
		for k, i := range term.Members {
			st.termRefs[i] = append(st.termRefs[i], ref{ti, term.weight(k)})
		}
	}
	return st
}

func (st *state) canAdd(i int) bool {
	for _, r := range st.limRefs[i] {
		if st.limitTotals[r.idx]+r.w > st.m.Limits[r.idx].Max+1e-9 {
			return false
		}
	}
	return true
}

// flipDelta previews the objective change of toggling candidate i without
// applying it.
func (st *state) flipDelta(i int) float64 {
	sign := 1.0
	if st.selected[i] {
		sign = -1
	}
	delta := sign * st.m.Candidates[i].Score
	for _, r := range st.termRefs[i] {
		cost := st.m.Penalties[r.idx].Cost
		delta -= cost(st.termTotals[r.idx]+sign*r.w) - cost(st.termTotals[r.idx])
	}
	return delta
}

// flip toggles candidate i and returns the objective change.
func (st *state) flip(i int) float64 {
	delta := st.flipDelta(i)
	sign := 1.0
	if st.selected[i] {
		sign = -1
	}
	for _, r := range st.limRefs[i] {
		st.limitTotals[r.idx] += sign * r.w
	}
	for _, r := range st.termRefs[i] {
		st.termTotals[r.idx] += sign * r.w
	}
	st.scoreSum += sign * st.m.Candidates[i].Score
	st.selected[i] = !st.selected[i]
	return delta
}

func (st *state) objective() float64 {
	obj := st.scoreSum
	for ti, term := range st.m.Penalties {
		obj -= term.Cost(st.termTotals[ti])
	}
	return obj
}

// blockingSelected picks one currently selected candidate from a violated
// limit of i, so the search can propose a swap.
func (st *state) blockingSelected(i int, rng *rand.Rand) int {
	for _, r := range st.limRefs[i] {
		lim := st.m.Limits[r.idx]
		if st.limitTotals[r.idx]+r.w <= lim.Max+1e-9 {
			continue
		}
		var sel []int
		for _, j := range lim.Members {
			if st.selected[j] && j != i {
				sel = append(sel, j)
			}
		}
		if len(sel) > 0 {
			return sel[rng.Intn(len(sel))]
		}
	}
	return -1
}
