package plan

import "loanplan/internal/model"

// ruleIndex resolves Rule rows by (make, rank) with a make-wide wildcard
// fallback for rows whose rank is empty.
type ruleIndex struct {
	exact    map[[2]string]model.Rule
	wildcard map[string]model.Rule
}

func indexRules(rules []model.Rule) ruleIndex {
	idx := ruleIndex{
		exact:    make(map[[2]string]model.Rule),
		wildcard: make(map[string]model.Rule),
	}
	for _, r := range rules {
		if r.Rank == "" {
			idx.wildcard[r.Make] = r
		} else {
			idx.exact[[2]string{r.Make, string(r.Rank)}] = r
		}
	}
	return idx
}

func (idx ruleIndex) find(make string, rank model.Rank) (model.Rule, bool) {
	if r, ok := idx.exact[[2]string{make, string(rank)}]; ok {
		return r, true
	}
	r, ok := idx.wildcard[make]
	return r, ok
}

// cooldownDays resolves the cooldown window for a candidate's make and rank.
// A rule with CooldownDays set wins; 0 disables cooldown for the make. Absent
// a rule (or a rule silent on cooldown), the configured default applies —
// never "unlimited by omission".
func (idx ruleIndex) cooldownDays(make string, rank model.Rank, defaultDays int) int {
	if r, ok := idx.find(make, rank); ok && r.CooldownDays != nil {
		return *r.CooldownDays
	}
	return defaultDays
}

// annualCap resolves the rolling-window loan cap for (make, rank).
// Returns -1 for unlimited. A rule row present with a nil or zero cap is an
// explicit restriction and yields 0.
func (idx ruleIndex) annualCap(make string, rank model.Rank, defaults map[model.Rank]int) int {
	if r, ok := idx.find(make, rank); ok {
		if r.AnnualCap != nil && *r.AnnualCap > 0 {
			return *r.AnnualCap
		}
		return 0
	}
	if cap, ok := defaults[rank]; ok {
		return cap
	}
	// Unknown rank falls back to the most restrictive default.
	if cap, ok := defaults[model.RankC]; ok {
		return cap
	}
	return 0
}
