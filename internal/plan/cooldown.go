package plan

import (
	"time"

	"loanplan/internal/model"
)

// Cooldown match bases, in precedence order.
const (
	BasisModel           = "model"
	BasisClassPowertrain = "class+powertrain"
	BasisMake            = "make"
)

// FilterCooldown removes candidates whose partner received a loan of the
// "same" vehicle too recently. Match granularity per history record:
//
//  1. exact make+model, when the record carries a model;
//  2. taxonomy class+powertrain, when the record has no model but both the
//     record and the candidate carry class and powertrain;
//  3. make-level, when the record carries no finer detail.
//
// A candidate starting on day D is blocked if D is strictly before
// lastEnd + cooldownDays; equality is allowed. Survivors that had a matching
// prior loan are annotated with the basis and computed expiry date for audit.
func FilterCooldown(cands []Candidate, history []model.LoanHistoryRecord, rules ruleIndex, cfg Config) []Candidate {
	byPerson := make(map[string][]model.LoanHistoryRecord)
	for _, h := range history {
		byPerson[h.PersonID] = append(byPerson[h.PersonID], h)
	}

	out := cands[:0]
	for _, c := range cands {
		days := rules.cooldownDays(c.Make, c.Rank, cfg.DefaultCooldownDays)
		if days <= 0 {
			out = append(out, c)
			continue
		}
		basis, lastEnd := latestMatch(byPerson[c.PersonID], c)
		if basis == "" {
			out = append(out, c)
			continue
		}
		expiry := day(lastEnd).AddDate(0, 0, days)
		if c.StartDay.Before(expiry) {
			continue // still cooling down
		}
		c.CooldownBasis = basis
		c.CooldownExpiry = &expiry
		out = append(out, c)
	}
	return out
}

// latestMatch finds the most recent prior loan matching the candidate and the
// basis it matched on. Returns an empty basis when no record matches.
func latestMatch(records []model.LoanHistoryRecord, c Candidate) (string, time.Time) {
	var basis string
	var last time.Time
	for _, r := range records {
		b, ok := matchBasis(r, c)
		if !ok {
			continue
		}
		end := r.EffectiveEnd()
		if basis == "" || end.After(last) {
			basis, last = b, end
		}
	}
	return basis, last
}

// matchBasis decides whether a history record refers to the "same" vehicle as
// the candidate, at the finest granularity the record supports. Model wins
// over taxonomy; a record at either finer granularity never degrades to a
// make-level comparison on mismatch.
func matchBasis(r model.LoanHistoryRecord, c Candidate) (string, bool) {
	if r.Model != "" {
		return BasisModel, r.Make == c.Make && r.Model == c.Model
	}
	if r.Class != "" && r.Powertrain != "" && c.Class != "" && c.Powertrain != "" {
		return BasisClassPowertrain, r.Class == c.Class && r.Powertrain == c.Powertrain
	}
	return BasisMake, r.Make == c.Make
}
