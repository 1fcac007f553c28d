package summarize

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mixturePValues draws a fixture of mostly-null p-values with a cluster of
// small ones, using a fixed generator.
func mixturePValues(n, nSmall int) []float64 {
	rng := rand.New(rand.NewPCG(3, 17))
	pvals := make([]float64, n)
	for i := range pvals {
		if i < nSmall {
			pvals[i] = rng.Float64() * 1e-4
		} else {
			pvals[i] = rng.Float64()
		}
	}
	return pvals
}

func TestLocalFDRRange(t *testing.T) {
	pvals := mixturePValues(300, 30)
	lfdr := localFDR(pvals)
	require.Equal(t, len(pvals), len(lfdr))
	for i, v := range lfdr {
		assert.True(t, v >= 0 && v <= 1, "lfdr[%d] = %v (p = %v)", i, v, pvals[i])
	}
}

func TestLocalFDRMonotoneInP(t *testing.T) {
	pvals := mixturePValues(200, 20)
	lfdr := localFDR(pvals)
	for i := range pvals {
		for j := range pvals {
			if pvals[i] < pvals[j] {
				assert.True(t, lfdr[i] <= lfdr[j],
					"lfdr must not decrease as p grows: p %v -> %v but lfdr %v -> %v",
					pvals[i], pvals[j], lfdr[i], lfdr[j])
			}
		}
	}
}

func TestLocalFDRSmallPGetsSmallLFDR(t *testing.T) {
	pvals := mixturePValues(300, 60)
	lfdr := localFDR(pvals)
	maxSmall, minLarge := 0.0, 1.0
	for i, p := range pvals {
		if p < 1e-4 {
			maxSmall = math.Max(maxSmall, lfdr[i])
		} else if p > 0.5 {
			minLarge = math.Min(minLarge, lfdr[i])
		}
	}
	assert.True(t, maxSmall < minLarge,
		"strong signals must get lower lfdr (max small-p %v, min large-p %v)", maxSmall, minLarge)
}

func TestLocalFDRPValueOne(t *testing.T) {
	pvals := append(mixturePValues(100, 10), 1, 1)
	lfdr := localFDR(pvals)

	maxEst := 0.0
	for i, p := range pvals {
		if p < 1 {
			maxEst = math.Max(maxEst, lfdr[i])
		}
	}
	// p == 1 entries are excluded from the density fit and then assigned the
	// maximum estimated lfdr, never NaN or a density artifact.
	assert.Equal(t, maxEst, lfdr[100])
	assert.Equal(t, maxEst, lfdr[101])
}

func TestLocalFDRAllOnes(t *testing.T) {
	lfdr := localFDR([]float64{1, 1, 1})
	assert.Equal(t, []float64{1, 1, 1}, lfdr)
}

func TestLocalFDRNaNPropagates(t *testing.T) {
	lfdr := localFDR([]float64{0.01, math.NaN(), 0.5})
	assert.True(t, math.IsNaN(lfdr[1]))
	assert.False(t, math.IsNaN(lfdr[0]))
	assert.False(t, math.IsNaN(lfdr[2]))
}
