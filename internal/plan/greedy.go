package plan

import "sort"

// Greedy is the score-ordered first-fit baseline: it walks candidates by
// descending score and selects each one that keeps every hard limit
// satisfied, ignoring penalty terms. It is kept as a comparison oracle for
// solver tests and is not part of the production planning path.
func Greedy(m *Model) Solution {
	st := newState(m)
	order := make([]int, len(m.Candidates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return m.Candidates[order[a]].Score > m.Candidates[order[b]].Score
	})
	for _, i := range order {
		if st.canAdd(i) {
			st.flip(i)
		}
	}
	return Solution{Selected: st.selected, Objective: st.objective()}
}
