package plan

import "sort"

// FairnessTerms builds one penalty term per partner discouraging
// concentration of this run's assignments. lambdaFair == 0 disables fairness
// entirely (pure scheduling by score).
func FairnessTerms(cands []Candidate, cfg Config) []PenaltyTerm {
	if cfg.LambdaFair <= 0 {
		return nil
	}
	members := make(map[string][]int)
	var people []string
	for i, c := range cands {
		if _, ok := members[c.PersonID]; !ok {
			people = append(people, c.PersonID)
		}
		members[c.PersonID] = append(members[c.PersonID], i)
	}
	sort.Strings(people)

	var terms []PenaltyTerm
	for _, person := range people {
		cost := fairnessCost(cfg.LambdaFair, cfg.Fairness)
		terms = append(terms, PenaltyTerm{
			Name:    "fair:" + person,
			Members: members[person],
			Cost:    cost,
		})
	}
	return terms
}

func fairnessCost(lambda float64, mode FairnessMode) func(total float64) float64 {
	switch m := mode.(type) {
	case FairnessStepped:
		target, stepUp := m.Target, m.StepUp
		return func(total float64) float64 {
			n := int(total + 0.5)
			p := lambda * float64(excess(n, target))
			p += stepUp * float64(excess(n, 2))
			return p
		}
	default:
		target := 1
		if lin, ok := mode.(FairnessLinear); ok {
			target = lin.Target
		}
		return func(total float64) float64 {
			return lambda * float64(excess(int(total+0.5), target))
		}
	}
}

func excess(n, limit int) int {
	if n > limit {
		return n - limit
	}
	return 0
}

// Gini computes the Gini coefficient over assignment counts. Zero-assignment
// partners are excluded by the caller; an empty or single-element input is
// perfectly equal.
func Gini(counts []int) float64 {
	n := len(counts)
	if n <= 1 {
		return 0
	}
	sorted := append([]int(nil), counts...)
	sort.Ints(sorted)
	var cum, total float64
	for i, c := range sorted {
		cum += float64(i+1) * float64(c)
		total += float64(c)
	}
	if total == 0 {
		return 0
	}
	return (2*cum)/(float64(n)*total) - float64(n+1)/float64(n)
}

// HHI computes the Herfindahl-Hirschman index of the distribution, in [1/n, 1].
func HHI(counts []int) float64 {
	var total float64
	for _, c := range counts {
		total += float64(c)
	}
	if total == 0 {
		return 0
	}
	var h float64
	for _, c := range counts {
		s := float64(c) / total
		h += s * s
	}
	return h
}

// TopKShare computes the share of assignments held by the k most-assigned
// partners.
func TopKShare(counts []int, k int) float64 {
	if k <= 0 || len(counts) == 0 {
		return 0
	}
	sorted := append([]int(nil), counts...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	if k > len(sorted) {
		k = len(sorted)
	}
	var top, total float64
	for i, c := range sorted {
		if i < k {
			top += float64(c)
		}
		total += float64(c)
	}
	if total == 0 {
		return 0
	}
	return top / total
}
