package plan

import (
	"context"
	"testing"
	"time"

	"loanplan/internal/model"
)

func TestPlanEndToEnd(t *testing.T) {
	snap := testSnapshot(
		[]model.Vehicle{vehicle("V1", "HONDA", "CIVIC"), vehicle("V2", "HONDA", "ACCORD")},
		[]model.Partner{partner("p1"), partner("p2")},
	)
	snap.CapacityDays = []model.CapacityDay{
		{Office: "LAX", Date: monday.AddDate(0, 0, 2), Slots: 0, Notes: "office closed"},
	}

	res, err := Plan(context.Background(), snap, testConfig())
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if res.Status != model.StatusOptimal {
		t.Fatalf("status = %s, want OPTIMAL", res.Status)
	}
	if res.Office != "LAX" || !res.WeekStart.Equal(monday) {
		t.Fatalf("run header mismatch: %s %s", res.Office, res.WeekStart)
	}
	if res.Algorithm != AlgorithmAnneal || res.Seed != 42 {
		t.Fatalf("algorithm/seed = %s/%d", res.Algorithm, res.Seed)
	}
	if len(res.Assignments) != 2 {
		t.Fatalf("assignments = %d, want 2", len(res.Assignments))
	}
	for _, a := range res.Assignments {
		if a.StartDay.Weekday() == time.Saturday || a.StartDay.Weekday() == time.Sunday {
			t.Fatalf("weekend start in output: %s", a.StartDay)
		}
	}
	if res.Candidates == 0 || res.Objective <= 0 {
		t.Fatalf("candidates=%d objective=%v", res.Candidates, res.Objective)
	}

	if len(res.DailyUsage) != 7 {
		t.Fatalf("daily usage rows = %d, want 7", len(res.DailyUsage))
	}
	wed := res.DailyUsage[2]
	if wed.Capacity != 0 || wed.Notes != "office closed" || wed.Used != 0 {
		t.Fatalf("blackout row = %+v", wed)
	}
	mon := res.DailyUsage[0]
	if mon.Capacity != -1 {
		t.Fatalf("day without a calendar row must report capacity -1, got %d", mon.Capacity)
	}

	total := 0
	for _, n := range res.Fairness.Counts {
		total += n
	}
	if total != len(res.Assignments) {
		t.Fatalf("fairness counts sum %d != %d assignments", total, len(res.Assignments))
	}
}

func TestPlanInvalidConfig(t *testing.T) {
	snap := testSnapshot([]model.Vehicle{vehicle("V1", "HONDA", "CIVIC")}, []model.Partner{partner("p1")})
	cfg := testConfig()
	cfg.EngagementMode = "frantic"

	res, err := Plan(context.Background(), snap, cfg)
	if err == nil {
		t.Fatal("expected a validation error")
	}
	if res.Status != model.StatusModelInvalid {
		t.Fatalf("status = %s, want MODEL_INVALID", res.Status)
	}
	if len(res.Assignments) != 0 {
		t.Fatal("invalid config must not produce assignments")
	}
}

func TestPlanInfeasibleWeek(t *testing.T) {
	snap := model.Snapshot{Office: "LAX", WeekStart: monday, AsOf: monday}
	res, err := Plan(context.Background(), snap, testConfig())
	if err != nil {
		t.Fatalf("empty snapshot is not an error: %v", err)
	}
	if res.Status != model.StatusInfeasible {
		t.Fatalf("status = %s, want INFEASIBLE", res.Status)
	}
	if len(res.Assignments) != 0 {
		t.Fatal("infeasible run must carry no assignments")
	}
	if len(res.DailyUsage) != 7 {
		t.Fatalf("daily usage still reports the week, got %d rows", len(res.DailyUsage))
	}
}

func TestPlanContextDeadlineTightensTimeLimit(t *testing.T) {
	snap := testSnapshot([]model.Vehicle{vehicle("V1", "HONDA", "CIVIC")}, []model.Partner{partner("p1")})
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(time.Nanosecond))
	defer cancel()

	res, err := Plan(ctx, snap, testConfig())
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if res.Status != model.StatusFeasible {
		t.Fatalf("status = %s, want FEASIBLE under an expired caller deadline", res.Status)
	}
}

func TestPlanReproducible(t *testing.T) {
	models := []string{"CIVIC", "ACCORD", "CRV", "PILOT"}
	var vehicles []model.Vehicle
	for i, mdl := range models {
		vehicles = append(vehicles, vehicle(vinN(i), "HONDA", mdl))
	}
	snap := testSnapshot(vehicles, []model.Partner{partner("p1"), partner("p2"), partner("p3")})
	cfg := testConfig()

	r1, err := Plan(context.Background(), snap, cfg)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	r2, err := Plan(context.Background(), snap, cfg)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if r1.Objective != r2.Objective || len(r1.Assignments) != len(r2.Assignments) {
		t.Fatalf("runs diverged: obj %v/%v, n %d/%d", r1.Objective, r2.Objective, len(r1.Assignments), len(r2.Assignments))
	}
	for i := range r1.Assignments {
		if r1.Assignments[i] != r2.Assignments[i] {
			t.Fatalf("assignment %d differs: %+v vs %+v", i, r1.Assignments[i], r2.Assignments[i])
		}
	}
}

func TestCapLedgerOmitsUntouchedPairs(t *testing.T) {
	snap := testSnapshot(
		[]model.Vehicle{vehicle("V1", "HONDA", "CIVIC")},
		[]model.Partner{partner("p1"), partner("p2")},
	)
	cfg := testConfig()
	res, err := Plan(context.Background(), snap, cfg)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(res.Assignments) != 1 {
		t.Fatalf("assignments = %d, want 1", len(res.Assignments))
	}
	if len(res.CapLedger) != 1 {
		t.Fatalf("cap ledger rows = %d, want only the assigned pair", len(res.CapLedger))
	}
	row := res.CapLedger[0]
	if row.Assigned != 1 || row.UsedAfter != 1 {
		t.Fatalf("ledger row = %+v", row)
	}
}
