package plan

import (
	"testing"
	"time"

	"loanplan/internal/model"
)

func solve(t *testing.T, snap model.Snapshot, cfg Config) (*Model, Solution, SolveMetrics) {
	t.Helper()
	cands := GenerateCandidates(snap, cfg)
	cands = FilterCooldown(cands, snap.LoanHistory, indexRules(snap.Rules), cfg)
	ScoreCandidates(cands, snap, cfg)
	m := BuildModel(cands, snap, cfg)
	sol, met := m.Solve(cfg)
	return m, sol, met
}

func countByPerson(m *Model, sol Solution) map[string]int {
	counts := make(map[string]int)
	for i, on := range sol.Selected {
		if on {
			counts[m.Candidates[i].PersonID]++
		}
	}
	return counts
}

func TestSolveVehicleUniqueness(t *testing.T) {
	snap := testSnapshot(
		[]model.Vehicle{vehicle("V1", "HONDA", "CIVIC"), vehicle("V2", "HONDA", "ACCORD")},
		[]model.Partner{partner("p1"), partner("p2"), partner("p3")},
	)
	m, sol, met := solve(t, snap, testConfig())
	if met.Status != model.StatusOptimal {
		t.Fatalf("status = %s, want OPTIMAL", met.Status)
	}
	if !m.Feasible(sol.Selected) {
		t.Fatal("solution violates a hard limit")
	}
	perVIN := make(map[string]int)
	for i, on := range sol.Selected {
		if on {
			perVIN[m.Candidates[i].VIN]++
		}
	}
	for vin, n := range perVIN {
		if n > 1 {
			t.Fatalf("vehicle %s assigned %d times", vin, n)
		}
	}
	if len(perVIN) != 2 {
		t.Fatalf("expected both vehicles assigned, got %d", len(perVIN))
	}
}

func TestSolveDailyCapacity(t *testing.T) {
	snap := testSnapshot(
		[]model.Vehicle{vehicle("V1", "HONDA", "CIVIC"), vehicle("V2", "HONDA", "ACCORD"), vehicle("V3", "HONDA", "CRV")},
		[]model.Partner{partner("p1"), partner("p2"), partner("p3")},
	)
	snap.CapacityDays = []model.CapacityDay{{Office: "LAX", Date: monday, Slots: 2, Notes: "short staffed"}}
	cfg := testConfig()
	cfg.AllowedStartWeekdays = []time.Weekday{time.Monday}

	m, sol, _ := solve(t, snap, cfg)
	starts := 0
	for i, on := range sol.Selected {
		if on && m.Candidates[i].StartDay.Equal(monday) {
			starts++
		}
	}
	if starts != 2 {
		t.Fatalf("Monday starts = %d, want exactly the 2 slots", starts)
	}
}

func TestSolveHardTierCap(t *testing.T) {
	snap := testSnapshot(
		[]model.Vehicle{vehicle("V1", "HONDA", "CIVIC"), vehicle("V2", "HONDA", "ACCORD"), vehicle("V3", "HONDA", "CRV")},
		[]model.Partner{partner("p1")},
	)
	snap.Rules = []model.Rule{{Make: "HONDA", Rank: model.RankAPlus, AnnualCap: iptr(2)}}
	cfg := testConfig()
	cfg.LambdaFair = 0 // isolate the cap

	m, sol, _ := solve(t, snap, cfg)
	if got := countByPerson(m, sol)["p1"]; got != 2 {
		t.Fatalf("assignments under cap 2 = %d, want 2", got)
	}

	// A rule row with no cap value restricts to zero.
	snap.Rules = []model.Rule{{Make: "HONDA", Rank: model.RankAPlus}}
	m, sol, _ = solve(t, snap, cfg)
	if got := countByPerson(m, sol)["p1"]; got != 0 {
		t.Fatalf("assignments under explicit zero cap = %d, want 0", got)
	}
}

func TestSolveSoftTierCapChargesIncrementalOverage(t *testing.T) {
	snap := testSnapshot(
		[]model.Vehicle{vehicle("V1", "HONDA", "CIVIC"), vehicle("V2", "HONDA", "ACCORD")},
		[]model.Partner{partner("p1")},
	)
	snap.Approvals = []model.Approval{{PersonID: "p1", Make: "HONDA", Rank: model.RankC}}
	// Partner already far over the C cap of 10.
	for i := 0; i < 12; i++ {
		end := monday.AddDate(0, 0, -40-7*i)
		snap.LoanHistory = append(snap.LoanHistory, model.LoanHistoryRecord{
			PersonID: "p1", Make: "HONDA", Model: "PILOT",
			StartDate: end.AddDate(0, 0, -7), EndDate: tptr(end),
		})
	}
	cfg := testConfig()
	cfg.EnforceCapHard = false
	cfg.LambdaFair = 0
	cfg.LambdaCap = 10000 // dwarfs any C-rank score

	m, sol, _ := solve(t, snap, cfg)
	if got := countByPerson(m, sol)["p1"]; got != 0 {
		t.Fatalf("soft cap with prohibitive lambda = %d assignments, want 0", got)
	}

	// The same overage priced below the score keeps the assignments and
	// reports the penalty instead.
	cfg.LambdaCap = 10
	m, sol, _ = solve(t, snap, cfg)
	if got := countByPerson(m, sol)["p1"]; got != 2 {
		t.Fatalf("soft cap with cheap lambda = %d assignments, want 2", got)
	}
	ledger := CapLedger(m, sol, cfg)
	if len(ledger) != 1 {
		t.Fatalf("expected 1 cap ledger row, got %d", len(ledger))
	}
	if ledger[0].Penalty != 20 {
		t.Fatalf("ledger penalty = %v, want 20 (2 new overages at lambda 10)", ledger[0].Penalty)
	}
}

func TestSolveFairnessSteppedPrefersEvenSplit(t *testing.T) {
	snap := testSnapshot(
		[]model.Vehicle{
			vehicle("V1", "HONDA", "CIVIC"), vehicle("V2", "HONDA", "ACCORD"),
			vehicle("V3", "HONDA", "CRV"), vehicle("V4", "HONDA", "PILOT"),
		},
		[]model.Partner{partner("p1"), partner("p2")},
	)
	cfg := testConfig()
	cfg.Fairness = FairnessStepped{Target: 1, StepUp: 5000}

	m, sol, _ := solve(t, snap, cfg)
	counts := countByPerson(m, sol)
	if counts["p1"] != 2 || counts["p2"] != 2 {
		t.Fatalf("stepped fairness split = %v, want 2-2", counts)
	}
}

func TestSolveFairnessLinearBoundsConcentration(t *testing.T) {
	snap := testSnapshot(
		[]model.Vehicle{
			vehicle("V1", "HONDA", "CIVIC"), vehicle("V2", "HONDA", "ACCORD"),
			vehicle("V3", "HONDA", "CRV"), vehicle("V4", "HONDA", "PILOT"),
		},
		[]model.Partner{partner("p1"), partner("p2")},
	)
	m, sol, _ := solve(t, snap, testConfig())
	counts := countByPerson(m, sol)
	total := counts["p1"] + counts["p2"]
	if total != 4 {
		t.Fatalf("total assignments = %d, want 4 (penalty never outweighs an A+ score)", total)
	}
	for p, n := range counts {
		if n == 4 {
			t.Fatalf("partner %s received everything under linear fairness", p)
		}
	}
}

func TestSolveFairnessYieldsToScore(t *testing.T) {
	// One A+ partner, three vehicles: every marginal assignment outscores the
	// linear penalty, so fairness shapes but does not starve.
	snap := testSnapshot(
		[]model.Vehicle{vehicle("V1", "HONDA", "CIVIC"), vehicle("V2", "HONDA", "ACCORD"), vehicle("V3", "HONDA", "CRV")},
		[]model.Partner{partner("p1")},
	)
	m, sol, _ := solve(t, snap, testConfig())
	if got := countByPerson(m, sol)["p1"]; got != 3 {
		t.Fatalf("assignments = %d, want all 3", got)
	}
}

func TestSolveFairnessProhibitiveLambda(t *testing.T) {
	snap := testSnapshot(
		[]model.Vehicle{
			vehicle("V1", "HONDA", "CIVIC"), vehicle("V2", "HONDA", "ACCORD"),
			vehicle("V3", "HONDA", "CRV"), vehicle("V4", "HONDA", "PILOT"),
		},
		[]model.Partner{partner("p1")},
	)
	cfg := testConfig()
	cfg.LambdaFair = 100000

	m, sol, _ := solve(t, snap, cfg)
	if got := countByPerson(m, sol)["p1"]; got != 1 {
		t.Fatalf("assignments under prohibitive lambda = %d, want 1", got)
	}

	cfg.LambdaFair = 0
	m, sol, _ = solve(t, snap, cfg)
	if got := countByPerson(m, sol)["p1"]; got != 4 {
		t.Fatalf("assignments with fairness off = %d, want 4", got)
	}
}

func TestSolveFairnessLambdaMonotone(t *testing.T) {
	snap := testSnapshot(
		[]model.Vehicle{
			vehicle("V1", "HONDA", "CIVIC"), vehicle("V2", "HONDA", "ACCORD"),
			vehicle("V3", "HONDA", "CRV"), vehicle("V4", "HONDA", "PILOT"),
		},
		[]model.Partner{partner("p1")},
	)
	prevMax := -1
	for _, lambda := range []float64{0, 150, 900, 1200, 100000} {
		cfg := testConfig()
		cfg.LambdaFair = lambda
		m, sol, _ := solve(t, snap, cfg)
		maxCount := countByPerson(m, sol)["p1"]
		if prevMax >= 0 && maxCount > prevMax {
			t.Fatalf("lambda %v raised max per-partner count %d -> %d", lambda, prevMax, maxCount)
		}
		prevMax = maxCount
	}
}

func TestSolveBudgetHardVsSoft(t *testing.T) {
	snap := testSnapshot(
		[]model.Vehicle{vehicle("V1", "HONDA", "CIVIC"), vehicle("V2", "HONDA", "ACCORD")},
		[]model.Partner{partner("p1"), partner("p2")},
	)
	snap.Budgets = []model.Budget{
		{Office: "LAX", Fleet: "HONDA", Year: 2025, Quarter: 3, BudgetAmount: 500},
	}
	cfg := testConfig() // default cost 750 per assignment

	// Hard: no single assignment fits in the remaining $500.
	cfg.EnforceBudgetHard = true
	m, sol, _ := solve(t, snap, cfg)
	if got := len(Assignments(m, sol)); got != 0 {
		t.Fatalf("hard budget allowed %d assignments against $500", got)
	}

	// Soft: the overspend is priced, not forbidden, and lands in the ledger.
	cfg.EnforceBudgetHard = false
	m, sol, _ = solve(t, snap, cfg)
	if got := len(Assignments(m, sol)); got != 2 {
		t.Fatalf("soft budget assignments = %d, want 2", got)
	}
	ledger := BudgetLedger(m, sol, cfg)
	if len(ledger) != 1 {
		t.Fatalf("expected 1 budget ledger row, got %d", len(ledger))
	}
	if ledger[0].OverBudget != 1000 || ledger[0].Penalty != 1000 {
		t.Fatalf("ledger over/penalty = %v/%v, want 1000/1000", ledger[0].OverBudget, ledger[0].Penalty)
	}
}

func TestSolveEmptyModelIsInfeasible(t *testing.T) {
	m := &Model{}
	_, met := m.Solve(testConfig())
	if met.Status != model.StatusInfeasible {
		t.Fatalf("status = %s, want INFEASIBLE", met.Status)
	}
}

func TestSolveTimeLimitDowngradesStatus(t *testing.T) {
	snap := testSnapshot(
		[]model.Vehicle{vehicle("V1", "HONDA", "CIVIC")},
		[]model.Partner{partner("p1")},
	)
	cfg := testConfig()
	cfg.SolverTimeLimit = time.Nanosecond
	_, _, met := solve(t, snap, cfg)
	if met.Status != model.StatusFeasible {
		t.Fatalf("status = %s, want FEASIBLE after deadline", met.Status)
	}
}

func TestSolveDeterministicSingleWorker(t *testing.T) {
	var vehicles []model.Vehicle
	var partners []model.Partner
	models := []string{"CIVIC", "ACCORD", "CRV", "PILOT", "FIT", "HRV"}
	for i := 0; i < 6; i++ {
		vehicles = append(vehicles, vehicle(vinN(i), "HONDA", models[i]))
	}
	for i := 0; i < 4; i++ {
		partners = append(partners, partner(personN(i)))
	}
	snap := testSnapshot(vehicles, partners)
	snap.LoanHistory = []model.LoanHistoryRecord{
		{PersonID: personN(0), Make: "HONDA", Model: "CIVIC",
			StartDate: monday.AddDate(0, 0, -50), EndDate: tptr(monday.AddDate(0, 0, -43))},
	}
	cfg := testConfig()

	m1, sol1, _ := solve(t, snap, cfg)
	m2, sol2, _ := solve(t, snap, cfg)

	a1, a2 := Assignments(m1, sol1), Assignments(m2, sol2)
	if sol1.Objective != sol2.Objective {
		t.Fatalf("objective differs across runs: %v vs %v", sol1.Objective, sol2.Objective)
	}
	if len(a1) != len(a2) {
		t.Fatalf("assignment count differs: %d vs %d", len(a1), len(a2))
	}
	for i := range a1 {
		if a1[i] != a2[i] {
			t.Fatalf("assignment %d differs: %+v vs %+v", i, a1[i], a2[i])
		}
	}

	// A different seed is allowed to differ, but must stay feasible.
	cfg.Seed = 7
	m3, sol3, _ := solve(t, snap, cfg)
	if !m3.Feasible(sol3.Selected) {
		t.Fatal("reseeded solution violates a hard limit")
	}
}

func TestSolveBeatsGreedyWithoutPenalties(t *testing.T) {
	snap := testSnapshot(
		[]model.Vehicle{vehicle("V1", "HONDA", "CIVIC"), vehicle("V2", "HONDA", "ACCORD"), vehicle("V3", "HONDA", "CRV")},
		[]model.Partner{partner("p1"), partner("p2")},
	)
	cfg := testConfig()
	cfg.LambdaFair = 0 // greedy ignores penalties, so compare on a penalty-free model

	cands := GenerateCandidates(snap, cfg)
	ScoreCandidates(cands, snap, cfg)
	m := BuildModel(cands, snap, cfg)

	greedy := Greedy(m)
	if !m.Feasible(greedy.Selected) {
		t.Fatal("greedy baseline violates a hard limit")
	}
	sol, _ := m.Solve(cfg)
	if sol.Objective < greedy.Objective {
		t.Fatalf("solver objective %v below greedy baseline %v", sol.Objective, greedy.Objective)
	}
}

func TestEvaluateMatchesIncrementalObjective(t *testing.T) {
	snap := testSnapshot(
		[]model.Vehicle{vehicle("V1", "HONDA", "CIVIC"), vehicle("V2", "HONDA", "ACCORD")},
		[]model.Partner{partner("p1"), partner("p2")},
	)
	cfg := testConfig()
	m, sol, _ := solve(t, snap, cfg)
	if got := m.Evaluate(sol.Selected); got != sol.Objective {
		t.Fatalf("Evaluate = %v, solver reported %v", got, sol.Objective)
	}
}
