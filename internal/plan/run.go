package plan

import (
	"context"
	"time"

	"loanplan/internal/model"
)

// AlgorithmAnneal names the production solver.
const AlgorithmAnneal = "anneal"

// Plan executes one full batch run for the snapshot's office and week:
// candidate generation, cooldown filtering, scoring, model construction,
// solving, and audit reporting. It is a pure function of the snapshot,
// configuration, and seed; no state survives between runs.
//
// Configuration errors are rejected before model construction and returned
// with status MODEL_INVALID. An empty feasible set is not an error: the
// result carries status INFEASIBLE and no assignments.
func Plan(ctx context.Context, snap model.Snapshot, cfg Config) (model.RunResult, error) {
	res := model.RunResult{
		Office:    snap.Office,
		WeekStart: snap.WeekStart,
		Algorithm: AlgorithmAnneal,
		Seed:      cfg.Seed,
		CreatedAt: time.Now().UTC(),
	}
	if err := cfg.Validate(); err != nil {
		res.Status = model.StatusModelInvalid
		return res, err
	}
	// A caller deadline tighter than the configured solver limit wins.
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem < cfg.SolverTimeLimit {
			cfg.SolverTimeLimit = rem
		}
	}

	cands := GenerateCandidates(snap, cfg)
	cands = FilterCooldown(cands, snap.LoanHistory, indexRules(snap.Rules), cfg)
	ScoreCandidates(cands, snap, cfg)

	m := BuildModel(cands, snap, cfg)
	sol, met := m.Solve(cfg)

	res.Status = met.Status
	res.Candidates = len(cands)
	res.Iterations = met.Iterations
	res.SolveMs = met.Elapsed.Milliseconds()
	res.Objective = sol.Objective
	res.Assignments = Assignments(m, sol)
	res.CapLedger = CapLedger(m, sol, cfg)
	res.Fairness = FairnessLedger(res.Assignments, cfg)
	res.BudgetLedger = BudgetLedger(m, sol, cfg)
	res.DailyUsage = DailyUsage(res.Assignments, snap)
	return res, nil
}
