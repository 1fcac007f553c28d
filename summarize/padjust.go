package summarize

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"github.com/seqbench/subseq/subsample"
)

// Supported p-value adjustment methods.  PAdjustQValue reuses the q-values
// already computed at store-construction time; every other method recomputes
// within each (method, proportion, replication) group.
const (
	PAdjustQValue     = "qvalue"
	PAdjustBH         = "BH"
	PAdjustBY         = "BY"
	PAdjustBonferroni = "bonferroni"
)

func checkPAdjustMethod(method string) error {
	switch method {
	case PAdjustQValue, PAdjustBH, PAdjustBY, PAdjustBonferroni:
		return nil
	}
	return errors.Errorf("unknown p-value adjustment method %q", method)
}

// adjusted returns the adjusted p-values of one group of rows.
func adjusted(method string, rows []subsample.Row) []float64 {
	if method == PAdjustQValue {
		out := make([]float64, len(rows))
		for i, r := range rows {
			out[i] = r.QValue
		}
		return out
	}
	pvals := make([]float64, len(rows))
	for i, r := range rows {
		pvals[i] = r.PValue
	}
	switch method {
	case PAdjustBH:
		return stepUp(pvals, 1)
	case PAdjustBY:
		var c float64
		for i := 1; i <= countValid(pvals); i++ {
			c += 1 / float64(i)
		}
		return stepUp(pvals, c)
	default: // bonferroni
		m := float64(countValid(pvals))
		out := make([]float64, len(pvals))
		for i, p := range pvals {
			out[i] = math.Min(1, p*m)
		}
		return out
	}
}

func countValid(pvals []float64) int {
	n := 0
	for _, p := range pvals {
		if !math.IsNaN(p) {
			n++
		}
	}
	return n
}

// stepUp is the Benjamini-Hochberg step-up procedure scaled by factor
// (factor 1 is BH, the harmonic sum gives BY).  NaN p-values are skipped and
// stay NaN.
func stepUp(pvals []float64, factor float64) []float64 {
	out := make([]float64, len(pvals))
	var idx []int
	for i, p := range pvals {
		if math.IsNaN(p) {
			out[i] = math.NaN()
		} else {
			idx = append(idx, i)
		}
	}
	m := len(idx)
	sort.Slice(idx, func(a, b int) bool { return pvals[idx[a]] > pvals[idx[b]] })
	prev := math.Inf(1)
	for k, i := range idx {
		rank := m - k
		adj := factor * float64(m) * pvals[i] / float64(rank)
		if adj < prev {
			prev = adj
		}
		out[i] = math.Min(1, prev)
	}
	return out
}
