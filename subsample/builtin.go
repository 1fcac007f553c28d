package subsample

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Built-in method names.  Both are linear-model procedures on log2 counts per
// million; negative-binomial and limma-class models plug in externally
// through Register.
const (
	MethodLogCPMLM = "lmcpm"
	MethodWelchT   = "ttest"
)

func init() {
	Register(MethodLogCPMLM, HandlerFunc(logCPMLM))
	Register(MethodWelchT, HandlerFunc(welchT))
}

// logCPM returns log2((count + 0.5) / (libSize + 1) * 1e6) per entry, plus
// the per-gene total counts.
func logCPM(m *Matrix) ([][]float64, []float64) {
	libSize := make([]float64, m.NumSamples())
	for i := 0; i < m.NumGenes(); i++ {
		for j, c := range m.Row(i) {
			libSize[j] += float64(c)
		}
	}
	cpm := make([][]float64, m.NumGenes())
	counts := make([]float64, m.NumGenes())
	for i := range cpm {
		row := make([]float64, m.NumSamples())
		for j, c := range m.Row(i) {
			row[j] = math.Log2((float64(c) + 0.5) / (libSize[j] + 1) * 1e6)
			counts[i] += float64(c)
		}
		cpm[i] = row
	}
	return cpm, counts
}

// logCPMLM regresses each gene's log2-CPM on the treatment covariate and
// reports the slope with its two-sided t-test p-value.
func logCPMLM(m *Matrix, treatment []float64) (*ResultTable, error) {
	n := len(treatment)
	if n != m.NumSamples() {
		return nil, errors.Errorf("lmcpm: treatment has %d entries, matrix has %d samples", n, m.NumSamples())
	}
	if n < 3 {
		return nil, errors.New("lmcpm: need at least 3 samples")
	}
	cpm, counts := logCPM(m)
	coef := make([]float64, m.NumGenes())
	pval := make([]float64, m.NumGenes())
	tdist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}
	sxx := float64(n-1) * stat.Variance(treatment, nil)
	for i, y := range cpm {
		if sxx == 0 {
			coef[i] = math.NaN()
			pval[i] = math.NaN()
			continue
		}
		alpha, beta := stat.LinearRegression(treatment, y, nil, false)
		var rss float64
		for j, x := range treatment {
			r := y[j] - alpha - beta*x
			rss += r * r
		}
		se := math.Sqrt(rss / float64(n-2) / sxx)
		coef[i] = beta
		if se == 0 {
			// A perfect fit: no residual evidence for a test.
			pval[i] = math.NaN()
			continue
		}
		t := beta / se
		pval[i] = 2 * tdist.Survival(math.Abs(t))
	}
	return &ResultTable{Coefficient: coef, PValue: pval, Count: counts}, nil
}

// welchT performs a per-gene Welch two-sample t-test of log2-CPM between the
// two treatment groups.  The treatment vector must take exactly two distinct
// values; the coefficient is the mean difference (second group minus first,
// by ascending treatment value).
func welchT(m *Matrix, treatment []float64) (*ResultTable, error) {
	if len(treatment) != m.NumSamples() {
		return nil, errors.Errorf("ttest: treatment has %d entries, matrix has %d samples", len(treatment), m.NumSamples())
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, t := range treatment {
		lo = math.Min(lo, t)
		hi = math.Max(hi, t)
	}
	if lo == hi {
		return nil, errors.New("ttest: treatment has a single level")
	}
	var g1, g2 []int
	for j, t := range treatment {
		switch t {
		case lo:
			g1 = append(g1, j)
		case hi:
			g2 = append(g2, j)
		default:
			return nil, errors.Errorf("ttest: treatment has more than two levels (%v)", t)
		}
	}
	if len(g1) < 2 || len(g2) < 2 {
		return nil, errors.New("ttest: each treatment group needs at least 2 samples")
	}
	cpm, counts := logCPM(m)
	coef := make([]float64, m.NumGenes())
	pval := make([]float64, m.NumGenes())
	for i, y := range cpm {
		y1 := make([]float64, len(g1))
		for k, j := range g1 {
			y1[k] = y[j]
		}
		y2 := make([]float64, len(g2))
		for k, j := range g2 {
			y2[k] = y[j]
		}
		m1, v1 := stat.MeanVariance(y1, nil)
		m2, v2 := stat.MeanVariance(y2, nil)
		coef[i] = m2 - m1
		s1 := v1 / float64(len(y1))
		s2 := v2 / float64(len(y2))
		if s1+s2 == 0 {
			pval[i] = math.NaN()
			continue
		}
		t := (m2 - m1) / math.Sqrt(s1+s2)
		nu := (s1 + s2) * (s1 + s2) /
			(s1*s1/float64(len(y1)-1) + s2*s2/float64(len(y2)-1))
		tdist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: nu}
		pval[i] = 2 * tdist.Survival(math.Abs(t))
	}
	return &ResultTable{Coefficient: coef, PValue: pval, Count: counts}, nil
}
