package subsample

import (
	"errors"
	"math"
	"os"
	"testing"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testMatrix builds a deterministic matrix with the given shape and a spread
// of count magnitudes.
func testMatrix(t *testing.T, genes, samples int) *Matrix {
	t.Helper()
	ids := make([]string, genes)
	counts := make([][]int64, genes)
	for i := range counts {
		ids[i] = geneID(i)
		row := make([]int64, samples)
		for j := range row {
			row[j] = int64((i*31+j*17)%97) * 10
		}
		counts[i] = row
	}
	m, err := NewMatrix(ids, counts)
	require.NoError(t, err)
	return m
}

func geneID(i int) string {
	return "gene" + string(rune('A'+i/26)) + string(rune('A'+i%26))
}

func matricesEqual(a, b *Matrix) bool {
	if a.NumGenes() != b.NumGenes() || a.NumSamples() != b.NumSamples() {
		return false
	}
	for i := 0; i < a.NumGenes(); i++ {
		for j := 0; j < a.NumSamples(); j++ {
			if a.Counts(i, j) != b.Counts(i, j) {
				return false
			}
		}
	}
	return true
}

func TestNewMatrixValidation(t *testing.T) {
	tests := []struct {
		name   string
		ids    []string
		counts [][]int64
	}{
		{"id/row mismatch", []string{"a", "b"}, [][]int64{{1, 2}}},
		{"no genes", []string{}, [][]int64{}},
		{"ragged rows", []string{"a", "b"}, [][]int64{{1, 2}, {1}}},
		{"negative count", []string{"a"}, [][]int64{{-1}}},
		{"duplicate ID", []string{"a", "a"}, [][]int64{{1}, {2}}},
	}
	for _, test := range tests {
		_, err := NewMatrix(test.ids, test.counts)
		assert.Error(t, err, test.name)
	}
}

func TestSubsampleDeterminism(t *testing.T) {
	m := testMatrix(t, 50, 4)
	for _, p := range []float64{0.01, 0.3, 0.99} {
		a, err := GenerateSubsampledMatrix(m, p, 42, 0)
		require.NoError(t, err)
		b, err := GenerateSubsampledMatrix(m, p, 42, 0)
		require.NoError(t, err)
		expect.True(t, matricesEqual(a, b), "proportion %v", p)
	}
}

func TestSubsampleStreamsDiffer(t *testing.T) {
	m := testMatrix(t, 50, 4)
	base, err := GenerateSubsampledMatrix(m, 0.5, 42, 0)
	require.NoError(t, err)

	otherRep, err := GenerateSubsampledMatrix(m, 0.5, 42, 1)
	require.NoError(t, err)
	assert.False(t, matricesEqual(base, otherRep), "replications must draw from distinct streams")

	otherSeed, err := GenerateSubsampledMatrix(m, 0.5, 43, 0)
	require.NoError(t, err)
	assert.False(t, matricesEqual(base, otherSeed), "seeds must produce distinct draws")
}

func TestFullProportionIsExactCopy(t *testing.T) {
	m := testMatrix(t, 30, 3)
	for _, seed := range []int64{1, 42, -7, math.MaxInt64} {
		sub, err := GenerateSubsampledMatrix(m, 1, seed, 0)
		require.NoError(t, err)
		expect.True(t, matricesEqual(m, sub), "seed %d", seed)
	}
}

func TestSubsampleConservesDepthInExpectation(t *testing.T) {
	m := testMatrix(t, 400, 6)
	total := float64(m.Depth())
	for _, p := range []float64{0.1, 0.5, 0.9} {
		sub, err := GenerateSubsampledMatrix(m, p, 99, 0)
		require.NoError(t, err)
		ratio := float64(sub.Depth()) / total
		assert.InDelta(t, p, ratio, 0.01, "proportion %v realized %v", p, ratio)
	}
}

func TestSubsampleNeverExceedsInput(t *testing.T) {
	m := testMatrix(t, 50, 4)
	sub, err := GenerateSubsampledMatrix(m, 0.7, 5, 0)
	require.NoError(t, err)
	for i := 0; i < m.NumGenes(); i++ {
		for j := 0; j < m.NumSamples(); j++ {
			assert.True(t, sub.Counts(i, j) >= 0)
			assert.True(t, sub.Counts(i, j) <= m.Counts(i, j))
		}
	}
}

func TestInvalidProportion(t *testing.T) {
	m := testMatrix(t, 5, 2)
	for _, p := range []float64{0, -0.5, 1.0001, 2, math.NaN()} {
		_, err := GenerateSubsampledMatrix(m, p, 1, 0)
		assert.True(t, errors.Is(err, ErrInvalidProportion), "proportion %v gave %v", p, err)
	}
}

func TestQValues(t *testing.T) {
	// With no p-values above lambda, pi0*m collapses to 1 and every q-value
	// becomes the running minimum of p/rank.
	qvals := QValues([]float64{0.01, 0.02, 0.03, 0.04})
	for i, q := range qvals {
		assert.InDelta(t, 0.01, q, 1e-12, "q[%d]", i)
	}

	// Monotone in p, bounded by 1, NaN passthrough.
	pvals := []float64{0.9, 0.001, math.NaN(), 0.5, 0.2, 1}
	qvals = QValues(pvals)
	assert.True(t, math.IsNaN(qvals[2]))
	for i, q := range qvals {
		if math.IsNaN(q) {
			continue
		}
		assert.True(t, q >= 0 && q <= 1, "q[%d] = %v", i, q)
		for j, other := range qvals {
			if math.IsNaN(other) {
				continue
			}
			if pvals[i] < pvals[j] {
				assert.True(t, q <= other, "q must be monotone in p (%d vs %d)", i, j)
			}
		}
	}
}

func TestMain(m *testing.M) {
	shutdown := grail.Init()
	defer shutdown()
	os.Exit(m.Run())
}
