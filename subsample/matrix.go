package subsample

import (
	"github.com/pkg/errors"
)

// Matrix is a dense genes x samples read count matrix.  It is treated as
// immutable once constructed; the thinning code always allocates a fresh
// Matrix for its output.
type Matrix struct {
	ids    []string
	counts [][]int64
}

// NewMatrix creates a Matrix from per-gene IDs and counts, one row per gene.
// All rows must have the same number of samples and all counts must be
// non-negative.
func NewMatrix(ids []string, counts [][]int64) (*Matrix, error) {
	if len(ids) != len(counts) {
		return nil, errors.Errorf("matrix: %d gene IDs but %d count rows", len(ids), len(counts))
	}
	if len(counts) == 0 {
		return nil, errors.New("matrix: no genes")
	}
	nSample := len(counts[0])
	if nSample == 0 {
		return nil, errors.New("matrix: no samples")
	}
	seen := make(map[string]bool, len(ids))
	for i, id := range ids {
		if seen[id] {
			return nil, errors.Errorf("matrix: duplicate gene ID %s", id)
		}
		seen[id] = true
		if len(counts[i]) != nSample {
			return nil, errors.Errorf("matrix: row %s has %d samples, want %d", id, len(counts[i]), nSample)
		}
		for _, c := range counts[i] {
			if c < 0 {
				return nil, errors.Errorf("matrix: negative count %d for gene %s", c, id)
			}
		}
	}
	return &Matrix{ids: ids, counts: counts}, nil
}

// NumGenes returns the number of rows.
func (m *Matrix) NumGenes() int { return len(m.counts) }

// NumSamples returns the number of columns.
func (m *Matrix) NumSamples() int { return len(m.counts[0]) }

// IDs returns the gene IDs in row order.  The caller must not modify the
// returned slice.
func (m *Matrix) IDs() []string { return m.ids }

// Counts returns the count of gene row i in sample column j.
func (m *Matrix) Counts(i, j int) int64 { return m.counts[i][j] }

// Row returns the counts of gene row i across all samples.  The caller must
// not modify the returned slice.
func (m *Matrix) Row(i int) []int64 { return m.counts[i] }

// RowSum returns the total count of gene row i.
func (m *Matrix) RowSum(i int) int64 {
	var sum int64
	for _, c := range m.counts[i] {
		sum += c
	}
	return sum
}

// Depth returns the realized total read count of the matrix.
func (m *Matrix) Depth() int64 {
	var sum int64
	for i := range m.counts {
		sum += m.RowSum(i)
	}
	return sum
}

// clone returns a deep copy sharing the (immutable) ID slice.
func (m *Matrix) clone() *Matrix {
	counts := make([][]int64, len(m.counts))
	for i, row := range m.counts {
		counts[i] = append([]int64(nil), row...)
	}
	return &Matrix{ids: m.ids, counts: counts}
}
