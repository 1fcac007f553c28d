package summarize

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// validPairs keeps the positions where both coefficients are present.
// Correlation and error metrics are defined over these pairs only.
func validPairs(x, y []float64) ([]float64, []float64) {
	var vx, vy []float64
	for i := range x {
		if !math.IsNaN(x[i]) && !math.IsNaN(y[i]) {
			vx = append(vx, x[i])
			vy = append(vy, y[i])
		}
	}
	return vx, vy
}

// pearson returns the Pearson correlation over valid pairs, NaN when fewer
// than 2 pairs remain or either side has zero variance.
func pearson(x, y []float64) float64 {
	vx, vy := validPairs(x, y)
	if len(vx) < 2 {
		return math.NaN()
	}
	if stat.Variance(vx, nil) == 0 || stat.Variance(vy, nil) == 0 {
		return math.NaN()
	}
	return stat.Correlation(vx, vy, nil)
}

// spearman returns the rank correlation over valid pairs, with average ranks
// for ties.
func spearman(x, y []float64) float64 {
	vx, vy := validPairs(x, y)
	if len(vx) < 2 {
		return math.NaN()
	}
	return pearson(ranks(vx), ranks(vy))
}

// concordance returns Lin's concordance correlation coefficient,
// 2*cov(x,y) / (var(x) + var(y) + (mean(x)-mean(y))^2), over valid pairs.
func concordance(x, y []float64) float64 {
	vx, vy := validPairs(x, y)
	if len(vx) < 2 {
		return math.NaN()
	}
	cov := stat.Covariance(vx, vy, nil)
	denom := stat.Variance(vx, nil) + stat.Variance(vy, nil) +
		math.Pow(stat.Mean(vx, nil)-stat.Mean(vy, nil), 2)
	if denom == 0 {
		return math.NaN()
	}
	return 2 * cov / denom
}

// meanSquaredError returns the mean squared coefficient difference over
// valid pairs.
func meanSquaredError(x, y []float64) float64 {
	vx, vy := validPairs(x, y)
	if len(vx) < 2 {
		return math.NaN()
	}
	var sum float64
	for i := range vx {
		d := vx[i] - vy[i]
		sum += d * d
	}
	return sum / float64(len(vx))
}

// ranks assigns 1-based ranks with average ranks for ties.
func ranks(x []float64) []float64 {
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return x[idx[a]] < x[idx[b]] })
	r := make([]float64, len(x))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && x[idx[j+1]] == x[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			r[idx[k]] = avg
		}
		i = j + 1
	}
	return r
}

// nanMean averages the non-NaN entries, NaN if none remain.
func nanMean(x []float64) float64 {
	var sum float64
	var n int
	for _, v := range x {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
