package subsample

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/distuv"
)

// checkProportion validates a sampling proportion.
func checkProportion(p float64) error {
	if !(p > 0 && p <= 1) {
		return errors.Wrapf(ErrInvalidProportion, "got %v", p)
	}
	return nil
}

// GenerateSubsampledMatrix thins each entry of m to Binomial(count, proportion)
// using the random stream keyed to (seed, proportion, replication).  The call
// is deterministic: identical arguments always produce an identical matrix, so
// any matrix drawn during a run can be re-derived later for inspection.
// A proportion of exactly 1 short-circuits to a copy of the input, bypassing
// the sampler entirely.
func GenerateSubsampledMatrix(m *Matrix, proportion float64, seed int64, replication int) (*Matrix, error) {
	if err := checkProportion(proportion); err != nil {
		return nil, err
	}
	if proportion == 1 {
		return m.clone(), nil
	}
	src := streamSource(seed, proportion, replication)
	counts := make([][]int64, m.NumGenes())
	for i := range counts {
		row := m.Row(i)
		out := make([]int64, len(row))
		for j, c := range row {
			if c == 0 {
				continue
			}
			b := distuv.Binomial{N: float64(c), P: proportion, Src: src}
			out[j] = int64(b.Rand())
		}
		counts[i] = out
	}
	return &Matrix{ids: m.ids, counts: counts}, nil
}
