package plan

import (
	"sort"
	"time"

	"loanplan/internal/model"
)

// Unlimited marks a (make, rank) pair with no rolling-window cap.
const Unlimited = -1

// CapPair is one (partner, make) pair's rolling-window cap state, with the
// candidate indices it governs.
type CapPair struct {
	PersonID string
	Make     string
	Rank     model.Rank
	Cap      int // Unlimited when no cap applies
	Used     int // loans inside the rolling window, before this run
	Members  []int
}

// TierCapPairs computes the cap state for every (partner, make) pair that has
// surviving candidates. used counts history records whose effective end falls
// within [asOf - window, asOf).
func TierCapPairs(cands []Candidate, history []model.LoanHistoryRecord, rules ruleIndex, cfg Config, asOf time.Time) []CapPair {
	type pairKey struct{ person, mk string }
	byPair := make(map[pairKey]*CapPair)
	var order []pairKey
	for i, c := range cands {
		k := pairKey{c.PersonID, c.Make}
		p, ok := byPair[k]
		if !ok {
			p = &CapPair{
				PersonID: c.PersonID,
				Make:     c.Make,
				Rank:     c.Rank,
				Cap:      rules.annualCap(c.Make, c.Rank, cfg.RankCaps),
			}
			byPair[k] = p
			order = append(order, k)
		}
		p.Members = append(p.Members, i)
	}

	windowEnd := day(asOf)
	windowStart := windowEnd.AddDate(0, -cfg.RollingWindowMonths, 0)
	for _, h := range history {
		k := pairKey{h.PersonID, h.Make}
		p, ok := byPair[k]
		if !ok {
			continue
		}
		end := day(h.EffectiveEnd())
		if !end.Before(windowStart) && end.Before(windowEnd) {
			p.Used++
		}
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].person != order[j].person {
			return order[i].person < order[j].person
		}
		return order[i].mk < order[j].mk
	})
	out := make([]CapPair, 0, len(order))
	for _, k := range order {
		out = append(out, *byPair[k])
	}
	return out
}

// HeadroomLimit returns the hard constraint for the pair: at most
// max(0, cap - used) new assignments. ok is false for unlimited pairs.
// A pair already at or over its cap, or capped at zero, forces zero new
// assignments.
func (p CapPair) HeadroomLimit() (LinearLimit, bool) {
	if p.Cap == Unlimited {
		return LinearLimit{}, false
	}
	headroom := p.Cap - p.Used
	if headroom < 0 {
		headroom = 0
	}
	return LinearLimit{
		Name:    "cap:" + p.PersonID + ":" + p.Make,
		Members: p.Members,
		Max:     float64(headroom),
	}, true
}

// OveragePenalty returns the soft term pricing only the incremental overage
// this run causes: lambda * (max(0, used+n-cap) - max(0, used-cap)).
// Pre-existing overage is never charged. ok is false for unlimited pairs or a
// zero lambda.
func (p CapPair) OveragePenalty(lambda float64) (PenaltyTerm, bool) {
	if p.Cap == Unlimited || lambda <= 0 {
		return PenaltyTerm{}, false
	}
	used, cap := p.Used, p.Cap
	current := overage(used, cap)
	return PenaltyTerm{
		Name:    "cap:" + p.PersonID + ":" + p.Make,
		Members: p.Members,
		Cost: func(total float64) float64 {
			return lambda * float64(overage(used+int(total+0.5), cap)-current)
		},
	}, true
}

func overage(used, cap int) int {
	if used > cap {
		return used - cap
	}
	return 0
}
