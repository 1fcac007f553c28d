package summarize

import (
	"math"
	"sort"

	mstats "github.com/montanaflynn/stats"
	"github.com/seqbench/subseq/subsample"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// localFDR estimates the per-gene local false discovery rate from a p-value
// distribution, following the probit-transform density approach: p-values
// map to z = Phi^-1(p), the density f(z) is estimated with a Gaussian kernel,
// and lfdr(p) = pi0 * phi(z) / f(z), capped at 1 and made monotone
// non-decreasing in p.
//
// P-values exactly equal to 1 break the density estimate (the probit
// transform sends them to +Inf), so they are excluded and then assigned the
// maximum lfdr observed among the remaining p-values: no evidence, the most
// conservative finite assignment.  NaN p-values propagate to NaN.
func localFDR(pvals []float64) []float64 {
	out := make([]float64, len(pvals))
	var work []int
	for i, p := range pvals {
		switch {
		case math.IsNaN(p):
			out[i] = math.NaN()
		case p >= 1:
			out[i] = 1 // placeholder, overwritten below
		default:
			work = append(work, i)
		}
	}
	if len(work) == 0 {
		return out
	}

	pi0 := subsample.EstimatePi0(pvals)
	norm := distuv.Normal{Mu: 0, Sigma: 1}
	z := make([]float64, len(work))
	for k, i := range work {
		p := pvals[i]
		if p < 1e-15 {
			p = 1e-15
		}
		z[k] = norm.Quantile(p)
	}

	bw := silvermanBandwidth(z)
	if bw <= 0 || math.IsNaN(bw) {
		// Degenerate spread: no density shape to exploit.
		for _, i := range work {
			out[i] = math.Min(pi0, 1)
		}
		assignPValueOne(pvals, out, work)
		return out
	}
	n := float64(len(z))
	for k, i := range work {
		var f float64
		for _, zj := range z {
			f += norm.Prob((z[k] - zj) / bw)
		}
		f /= n * bw
		lfdr := pi0 * norm.Prob(z[k]) / f
		if lfdr > 1 {
			lfdr = 1
		}
		out[i] = lfdr
	}

	// Monotone in p: a larger p-value never gets a smaller lfdr.
	byP := append([]int(nil), work...)
	sort.Slice(byP, func(a, b int) bool { return pvals[byP[a]] < pvals[byP[b]] })
	running := 0.0
	for _, i := range byP {
		if out[i] > running {
			running = out[i]
		}
		out[i] = running
	}
	assignPValueOne(pvals, out, work)
	return out
}

// assignPValueOne gives every p == 1 entry the maximum lfdr among the
// estimated ones.
func assignPValueOne(pvals, out []float64, work []int) {
	maxLFDR := 0.0
	for _, i := range work {
		if out[i] > maxLFDR {
			maxLFDR = out[i]
		}
	}
	for i, p := range pvals {
		if !math.IsNaN(p) && p >= 1 {
			out[i] = maxLFDR
		}
	}
}

// silvermanBandwidth is Silverman's rule of thumb,
// 0.9 * min(sd, IQR/1.34) * n^(-1/5).
func silvermanBandwidth(z []float64) float64 {
	if len(z) < 2 {
		return 0
	}
	sd := stat.StdDev(z, nil)
	q75, err := mstats.Percentile(z, 75)
	if err != nil {
		return 0
	}
	q25, err := mstats.Percentile(z, 25)
	if err != nil {
		return 0
	}
	spread := sd
	if iqr := (q75 - q25) / 1.34; iqr > 0 && iqr < spread {
		spread = iqr
	}
	return 0.9 * spread * math.Pow(float64(len(z)), -0.2)
}
