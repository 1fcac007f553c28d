package summarize

import (
	"math"
	"sort"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
	"github.com/seqbench/subseq/subsample"
)

// ErrOracleJoin is returned when an explicitly supplied oracle shares no
// gene IDs with the rows it is compared against.
var ErrOracleJoin = errors.New("oracle shares no gene IDs with the result rows")

// Opts configures Summarize.
type Opts struct {
	// FDRLevel is the significance threshold applied to adjusted p-values.
	FDRLevel float64
	// Average collapses replications, producing one row per
	// (proportion, method) with every metric averaged.
	Average bool
	// PAdjustMethod selects how adjusted p-values are derived; see the
	// PAdjust constants.
	PAdjustMethod string
	// Oracle supplies an explicit reference result set used for every
	// method.  When nil the oracle is resolved per method from the store's
	// own rows at maximum realized depth.
	Oracle []subsample.Row
}

// DefaultOpts sets the default values of Opts.
var DefaultOpts = Opts{
	FDRLevel:      0.05,
	PAdjustMethod: PAdjustQValue,
}

// groupKey identifies one comparison group.
type groupKey struct {
	Method      string
	Proportion  float64
	Replication int
	Depth       int64
}

// oracleEntry is one reference gene after oracle preparation.
type oracleEntry struct {
	coefficient float64
	padj        float64
	lfdr        float64
}

// Summarize compares every (depth, proportion, method, replication) group of
// the store against its method's oracle and returns one summary row per
// group (or per (proportion, method) when averaging).  Only rows with
// nonzero observed count participate; rows whose count the handler never
// supplied are retained.
//
// When no oracle is given, each method's oracle is its own group at maximum
// realized depth; ties are broken deterministically by lowest replication
// index, then highest proportion.
func Summarize(s *subsample.Store, opts Opts) (*Store, error) {
	if opts.FDRLevel <= 0 || opts.FDRLevel >= 1 {
		return nil, errors.Errorf("FDR level must be in (0, 1), got %v", opts.FDRLevel)
	}
	if opts.PAdjustMethod == "" {
		opts.PAdjustMethod = PAdjustQValue
	}
	if err := checkPAdjustMethod(opts.PAdjustMethod); err != nil {
		return nil, err
	}

	groups := map[groupKey][]subsample.Row{}
	methods := map[string]bool{}
	for _, row := range s.Rows {
		if row.Count == 0 {
			continue
		}
		key := groupKey{
			Method:      row.Method,
			Proportion:  row.Proportion,
			Replication: row.Replication,
			Depth:       row.Depth,
		}
		groups[key] = append(groups[key], row)
		methods[row.Method] = true
	}
	if len(groups) == 0 {
		return nil, errors.New("store has no rows with nonzero count")
	}

	oracles := map[string]map[string]oracleEntry{}
	explicit := opts.Oracle != nil
	for method := range methods {
		rows := resolveOracle(s, opts.Oracle, method, groups)
		oracles[method] = prepareOracle(rows, opts.PAdjustMethod)
		log.Debug.Printf("summarize: method %s oracle has %d genes", method, len(oracles[method]))
	}

	keys := make([]groupKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(a, b int) bool {
		ka, kb := keys[a], keys[b]
		if ka.Method != kb.Method {
			return ka.Method < kb.Method
		}
		if ka.Proportion != kb.Proportion {
			return ka.Proportion < kb.Proportion
		}
		if ka.Replication != kb.Replication {
			return ka.Replication < kb.Replication
		}
		return ka.Depth < kb.Depth
	})

	out := &Store{Seed: s.Seed(), FDRLevel: opts.FDRLevel}
	for _, key := range keys {
		row, err := summarizeGroup(key, groups[key], oracles[key.Method], opts, explicit)
		if err != nil {
			return nil, err
		}
		out.Rows = append(out.Rows, row)
	}
	if opts.Average {
		out.Rows = average(out.Rows)
	}
	return out, nil
}

// resolveOracle picks the reference rows for one method.  An explicit oracle
// is regrouped per method: rows tagged with the method are preferred, and
// an untagged (or differently produced) oracle applies wholesale.
func resolveOracle(s *subsample.Store, explicit []subsample.Row, method string,
	groups map[groupKey][]subsample.Row) []subsample.Row {
	if explicit != nil {
		var matched []subsample.Row
		for _, row := range explicit {
			if row.Method == method {
				matched = append(matched, row)
			}
		}
		if len(matched) > 0 {
			return matched
		}
		return explicit
	}
	var best groupKey
	found := false
	for key := range groups {
		if key.Method != method {
			continue
		}
		if !found || oracleBefore(key, best) {
			best = key
			found = true
		}
	}
	return groups[best]
}

// oracleBefore orders candidate oracle groups: maximum realized depth first,
// ties broken by lowest replication index, then highest proportion.
func oracleBefore(a, b groupKey) bool {
	if a.Depth != b.Depth {
		return a.Depth > b.Depth
	}
	if a.Replication != b.Replication {
		return a.Replication < b.Replication
	}
	return a.Proportion > b.Proportion
}

// prepareOracle computes the oracle's adjusted p-values and local FDR and
// indexes it by gene ID.
func prepareOracle(rows []subsample.Row, padjMethod string) map[string]oracleEntry {
	var kept []subsample.Row
	for _, row := range rows {
		if row.Count != 0 {
			kept = append(kept, row)
		}
	}
	pvals := make([]float64, len(kept))
	for i, row := range kept {
		pvals[i] = row.PValue
	}
	padj := adjusted(padjMethod, kept)
	lfdr := localFDR(pvals)
	oracle := make(map[string]oracleEntry, len(kept))
	for i, row := range kept {
		oracle[row.ID] = oracleEntry{
			coefficient: row.Coefficient,
			padj:        padj[i],
			lfdr:        lfdr[i],
		}
	}
	return oracle
}

// summarizeGroup computes the metric set of one group against its oracle.
func summarizeGroup(key groupKey, rows []subsample.Row,
	oracle map[string]oracleEntry, opts Opts, explicitOracle bool) (Row, error) {
	padj := adjusted(opts.PAdjustMethod, rows)

	// Inner join by gene ID; genes absent from either side drop out.
	var (
		coef, oracleCoef []float64
		joinedPadj       []float64
		joined           []oracleEntry
	)
	for i, row := range rows {
		entry, ok := oracle[row.ID]
		if !ok {
			continue
		}
		coef = append(coef, row.Coefficient)
		oracleCoef = append(oracleCoef, entry.coefficient)
		joinedPadj = append(joinedPadj, padj[i])
		joined = append(joined, entry)
	}
	if len(joined) == 0 && explicitOracle {
		return Row{}, errors.Wrapf(ErrOracleJoin,
			"method %s, proportion %v, replication %d", key.Method, key.Proportion, key.Replication)
	}

	var (
		significant int
		lfdrSum     float64
		lfdrN       int
		falseCalls  int
		oracleSig   int
		bothSig     int
	)
	for i, entry := range joined {
		groupSig := joinedPadj[i] < opts.FDRLevel
		if groupSig {
			significant++
			// Genes whose oracle lfdr is unknown do not poison the average.
			if !math.IsNaN(entry.lfdr) {
				lfdrSum += entry.lfdr
				lfdrN++
			}
			if !(entry.padj < opts.FDRLevel) {
				falseCalls++
			}
		}
		if entry.padj < opts.FDRLevel {
			oracleSig++
			if groupSig {
				bothSig++
			}
		}
	}

	row := Row{
		Depth:       float64(key.Depth),
		Proportion:  key.Proportion,
		Method:      key.Method,
		Replication: key.Replication,
		Significant: float64(significant),
		Pearson:     pearson(coef, oracleCoef),
		Spearman:    spearman(coef, oracleCoef),
		Concordance: concordance(coef, oracleCoef),
		MSE:         meanSquaredError(coef, oracleCoef),
	}
	// estFDP and rFDP are exactly 0, never NaN, when nothing is significant.
	if significant > 0 {
		if lfdrN > 0 {
			row.EstFDP = lfdrSum / float64(lfdrN)
		} else {
			row.EstFDP = math.NaN()
		}
		row.RFDP = float64(falseCalls) / float64(significant)
	}
	if oracleSig > 0 {
		row.Percent = float64(bothSig) / float64(oracleSig)
	} else {
		row.Percent = math.NaN()
	}
	return row, nil
}

// average collapses replications into one row per (proportion, method),
// averaging every metric.  Realized depth averages too, and may be
// non-integer: independent replications realize slightly different read
// totals at the same nominal proportion.
func average(rows []Row) []Row {
	type aggKey struct {
		Proportion float64
		Method     string
	}
	order := []aggKey{}
	byKey := map[aggKey][]Row{}
	for _, row := range rows {
		key := aggKey{Proportion: row.Proportion, Method: row.Method}
		if _, ok := byKey[key]; !ok {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], row)
	}
	out := make([]Row, 0, len(order))
	for _, key := range order {
		group := byKey[key]
		pick := func(get func(Row) float64) float64 {
			vals := make([]float64, len(group))
			for i, r := range group {
				vals[i] = get(r)
			}
			return nanMean(vals)
		}
		out = append(out, Row{
			Depth:       pick(func(r Row) float64 { return r.Depth }),
			Proportion:  key.Proportion,
			Method:      key.Method,
			Replication: -1,
			Significant: pick(func(r Row) float64 { return r.Significant }),
			Pearson:     pick(func(r Row) float64 { return r.Pearson }),
			Spearman:    pick(func(r Row) float64 { return r.Spearman }),
			Concordance: pick(func(r Row) float64 { return r.Concordance }),
			MSE:         pick(func(r Row) float64 { return r.MSE }),
			EstFDP:      pick(func(r Row) float64 { return r.EstFDP }),
			RFDP:        pick(func(r Row) float64 { return r.RFDP }),
			Percent:     pick(func(r Row) float64 { return r.Percent }),
		})
	}
	return out
}
