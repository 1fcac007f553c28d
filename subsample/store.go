package subsample

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Row is one long-format result: a single gene (or named entity) analyzed by
// one method against one (proportion, replication) thinned matrix.  Depth is
// the realized total read count of that matrix, not the nominal proportion.
// Missing numeric values are NaN.
type Row struct {
	ID          string
	Count       float64
	Depth       int64
	Proportion  float64
	Replication int
	Method      string
	Coefficient float64
	PValue      float64
	QValue      float64
	// Extra carries optional method-specific columns.  When stores from
	// multiple methods are combined and only some provide a column, the
	// others report NaN for it.
	Extra map[string]float64
}

// Store is an ordered collection of result rows carrying the seed of the run
// that produced them.  A store is never mutated after Run returns; Combine
// produces a new store.
type Store struct {
	Rows []Row

	seed    int64
	seedSet bool
}

// Seed returns the reproducibility seed attached to the store.
func (s *Store) Seed() int64 { return s.seed }

// SetSeed attaches the run seed.  The seed is immutable: reassigning a
// different value returns ErrInvalidSeedReuse.
func (s *Store) SetSeed(seed int64) error {
	if s.seedSet && s.seed != seed {
		return ErrInvalidSeedReuse
	}
	s.seed = seed
	s.seedSet = true
	return nil
}

// ExtraColumns returns the sorted union of extra column names across all
// rows.
func (s *Store) ExtraColumns() []string {
	seen := map[string]bool{}
	for _, row := range s.Rows {
		for col := range row.Extra {
			seen[col] = true
		}
	}
	cols := make([]string, 0, len(seen))
	for col := range seen {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

// Combine concatenates the rows of all input stores into a new store,
// preserving schema and row order.  Overlapping (method, proportion,
// replication) keys are not deduplicated; avoiding semantically redundant
// merges is the caller's responsibility.  The combined store carries the
// first input's seed as its provenance seed.
func Combine(stores ...*Store) *Store {
	out := &Store{}
	for i, s := range stores {
		if i == 0 {
			out.seed = s.seed
			out.seedSet = s.seedSet
		}
		out.Rows = append(out.Rows, s.Rows...)
	}
	return out
}

// formatExtra encodes an extra-column map as semicolon-separated key=value
// pairs with a stable key order, for the TSV representation.
func formatExtra(extra map[string]float64) string {
	if len(extra) == 0 {
		return ""
	}
	cols := make([]string, 0, len(extra))
	for col := range extra {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	parts := make([]string, len(cols))
	for i, col := range cols {
		parts[i] = col + "=" + strconv.FormatFloat(extra[col], 'g', -1, 64)
	}
	return strings.Join(parts, ";")
}

// parseExtra is the inverse of formatExtra.
func parseExtra(s string) (map[string]float64, error) {
	if s == "" {
		return nil, nil
	}
	extra := map[string]float64{}
	for _, part := range strings.Split(s, ";") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("malformed extra column entry %q", part)
		}
		v, err := strconv.ParseFloat(kv[1], 64)
		if err != nil {
			return nil, err
		}
		extra[kv[0]] = v
	}
	return extra, nil
}
