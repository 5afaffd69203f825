package plan

import (
	"testing"
	"time"

	"loanplan/internal/model"
)

func TestNormalizeFleet(t *testing.T) {
	cases := []struct{ in, want string }{
		{"chevy", "CHEVROLET"},
		{" Chevrolet ", "CHEVROLET"},
		{"VW", "VOLKSWAGEN"},
		{"mercedes", "MERCEDES-BENZ"},
		{"Mercedes-Benz", "MERCEDES-BENZ"},
		{"MB", "MERCEDES-BENZ"},
		{"Land-Rover", "LAND ROVER"},
		{"LandRover", "LAND ROVER"},
		{"LAND ROVER", "LAND ROVER"},
		{"rolls-royce", "ROLLS-ROYCE"},
		{"Alfa-Romeo", "ALFA ROMEO"},
		{"AlfaRomeo", "ALFA ROMEO"},
		{"Co-Op Motors", "COOP MOTORS"},
		{"BMW", "BMW"},
	}
	for _, tc := range cases {
		if got := NormalizeFleet(tc.in); got != tc.want {
			t.Fatalf("NormalizeFleet(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFiscalQuarter(t *testing.T) {
	cases := []struct {
		date    time.Time
		year, q int
	}{
		{time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 2025, 1},
		{time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), 2025, 1},
		{time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC), 2025, 3},
		{time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), 2025, 4},
		{time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), 2025, 4},
	}
	for _, tc := range cases {
		y, q := FiscalQuarter(tc.date)
		if y != tc.year || q != tc.q {
			t.Fatalf("FiscalQuarter(%s) = %d-Q%d, want %d-Q%d", tc.date, y, q, tc.year, tc.q)
		}
	}
}

func TestBudgetBucketsSplitAcrossQuarterBoundary(t *testing.T) {
	// Week of 2025-09-29: Mon/Tue land in Q3, Wed-Fri in Q4.
	weekStart := time.Date(2025, 9, 29, 0, 0, 0, 0, time.UTC)
	snap := testSnapshot([]model.Vehicle{vehicle("V1", "HONDA", "CIVIC")}, []model.Partner{partner("p1")})
	snap.WeekStart = weekStart
	snap.AsOf = weekStart
	snap.Availability = availableAll([]string{"V1"}, weekStart, 14)

	cfg := testConfig()
	cands := GenerateCandidates(snap, cfg)
	if len(cands) != 5 {
		t.Fatalf("expected 5 candidates, got %d", len(cands))
	}
	buckets := BudgetBuckets(cands, nil, "LAX", cfg)
	if len(buckets) != 2 {
		t.Fatalf("expected Q3 and Q4 buckets, got %d", len(buckets))
	}
	byQuarter := map[int]int{}
	for _, b := range buckets {
		byQuarter[b.Quarter] = len(b.Members)
		if b.Fleet != "HONDA" || b.Year != 2025 {
			t.Fatalf("unexpected bucket %s %d-Q%d", b.Fleet, b.Year, b.Quarter)
		}
	}
	if byQuarter[3] != 2 || byQuarter[4] != 3 {
		t.Fatalf("member split = %v, want Q3:2 Q4:3", byQuarter)
	}
}

func TestBudgetRemaining(t *testing.T) {
	b := model.Budget{Office: "LAX", Fleet: "HONDA", Year: 2025, Quarter: 3, BudgetAmount: 5000, AmountUsed: fptr(4500)}
	if got := b.Remaining(); got != 500 {
		t.Fatalf("remaining = %v, want 500", got)
	}
	// Missing amount_used means nothing spent yet.
	b.AmountUsed = nil
	if got := b.Remaining(); got != 5000 {
		t.Fatalf("remaining with nil used = %v, want 5000", got)
	}
	// Overspent budgets floor at zero.
	b.AmountUsed = fptr(6000)
	if got := b.Remaining(); got != 0 {
		t.Fatalf("overspent remaining = %v, want 0", got)
	}
}

func TestBudgetBucketRowResolution(t *testing.T) {
	snap := testSnapshot([]model.Vehicle{vehicle("V1", "HONDA", "CIVIC")}, []model.Partner{partner("p1")})
	cfg := testConfig()
	cands := GenerateCandidates(snap, cfg)

	budgets := []model.Budget{
		// Stored under an alias; must still match the normalized bucket.
		{Office: "LAX", Fleet: "honda", Year: 2025, Quarter: 3, BudgetAmount: 2000, AmountUsed: fptr(500)},
	}
	buckets := BudgetBuckets(cands, budgets, "LAX", cfg)
	if len(buckets) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(buckets))
	}
	b := buckets[0]
	if !b.HasRow || b.Remaining != 1500 {
		t.Fatalf("bucket = hasRow %v remaining %v, want true 1500", b.HasRow, b.Remaining)
	}
	for _, c := range b.Costs {
		if c != cfg.DefaultCost {
			t.Fatalf("cost = %v, want default %v", c, cfg.DefaultCost)
		}
	}
}

func TestBudgetMissingRowPolicy(t *testing.T) {
	b := BudgetBucket{Office: "LAX", Fleet: "HONDA", Year: 2025, Quarter: 3, Members: []int{0}, Costs: []float64{750}}

	if _, ok := b.SpendLimit(false); ok {
		t.Fatal("missing row without enforcement must be unconstrained")
	}
	lim, ok := b.SpendLimit(true)
	if !ok || lim.Max != 0 {
		t.Fatalf("enforced missing row must cap spend at 0, got ok=%v max=%v", ok, lim.Max)
	}

	if _, ok := b.OverspendPenalty(1, false); ok {
		t.Fatal("missing row without enforcement must not be penalized")
	}
	term, ok := b.OverspendPenalty(1, true)
	if !ok {
		t.Fatal("enforced missing row must produce a penalty term")
	}
	if got := term.Cost(750); got != 750 {
		t.Fatalf("penalty = %v, want 750", got)
	}
}

func TestOverspendPenaltyPerDollar(t *testing.T) {
	b := BudgetBucket{
		Office: "LAX", Fleet: "HONDA", Year: 2025, Quarter: 3,
		HasRow: true, Remaining: 1000,
		Members: []int{0, 1}, Costs: []float64{750, 750},
	}
	term, ok := b.OverspendPenalty(1, false)
	if !ok {
		t.Fatal("expected a penalty term")
	}
	if got := term.Cost(750); got != 0 {
		t.Fatalf("within budget = %v, want 0", got)
	}
	if got := term.Cost(1500); got != 500 {
		t.Fatalf("overspend 500 = %v, want 500", got)
	}
}
