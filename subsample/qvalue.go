package subsample

import (
	"math"
	"sort"
)

// EstimatePi0 estimates the null proportion from a p-value distribution with
// Storey's method at lambda = 0.5, clamped to (0, 1].  NaN p-values are
// ignored.
func EstimatePi0(pvals []float64) float64 {
	const lambda = 0.5
	var m, above int
	for _, p := range pvals {
		if math.IsNaN(p) {
			continue
		}
		m++
		if p > lambda {
			above++
		}
	}
	if m == 0 {
		return 1
	}
	pi0 := float64(above) / (float64(m) * (1 - lambda))
	if pi0 > 1 {
		return 1
	}
	if pi0 <= 0 {
		return 1 / float64(m)
	}
	return pi0
}

// QValues computes Storey q-values for one group's p-values.  The input order
// is preserved; NaN p-values yield NaN q-values and do not participate in the
// estimate.  Callers must never pool p-values across
// (method, proportion, replication) groups.
func QValues(pvals []float64) []float64 {
	idx := make([]int, 0, len(pvals))
	for i, p := range pvals {
		if !math.IsNaN(p) {
			idx = append(idx, i)
		}
	}
	qvals := make([]float64, len(pvals))
	for i := range qvals {
		qvals[i] = math.NaN()
	}
	m := len(idx)
	if m == 0 {
		return qvals
	}
	pi0 := EstimatePi0(pvals)
	// Descending by p; q is the running minimum of pi0 * m * p / rank.
	sort.Slice(idx, func(a, b int) bool { return pvals[idx[a]] > pvals[idx[b]] })
	prev := math.Inf(1)
	for k, i := range idx {
		rank := m - k
		q := pi0 * float64(m) * pvals[i] / float64(rank)
		if q < prev {
			prev = q
		}
		if prev > 1 {
			qvals[i] = 1
		} else {
			qvals[i] = prev
		}
	}
	return qvals
}
