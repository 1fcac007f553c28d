package subsample

import (
	"math"
	"sort"
	"sync"
)

// ResultTable is the normalized output of one analysis method applied to one
// (sub)matrix.  Coefficient and PValue are required and must have one entry
// per row.  IDs may be left nil for gene-level methods, in which case the
// table must have exactly one row per matrix gene, in matrix order; set-level
// methods must name their entities explicitly.  Count and Extra columns are
// optional.
type ResultTable struct {
	IDs         []string
	Coefficient []float64
	PValue      []float64
	Count       []float64
	Extra       map[string][]float64
}

// Handler is a pluggable analysis method: given a count matrix and a
// per-sample treatment vector, it produces one result row per gene (or per
// named entity).  Implementations must not retain or modify the matrix.
type Handler interface {
	Analyze(m *Matrix, treatment []float64) (*ResultTable, error)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(m *Matrix, treatment []float64) (*ResultTable, error)

// Analyze implements Handler.
func (f HandlerFunc) Analyze(m *Matrix, treatment []float64) (*ResultTable, error) {
	return f(m, treatment)
}

// OptionHandler is a Handler that additionally consumes per-run extra
// options.  When Opts.ExtraOptions is nonempty, every method in the run must
// implement OptionHandler; mixing option-taking and option-free methods in
// one Run is rejected with ErrIncompatibleHandlerArgs.
type OptionHandler interface {
	Handler
	AnalyzeOpts(m *Matrix, treatment []float64, options ...interface{}) (*ResultTable, error)
}

// Method pairs a handler with the name recorded in result rows.
type Method struct {
	Name    string
	Handler Handler
}

var (
	registryMu sync.Mutex
	registry   = map[string]Handler{}
)

// Register makes a handler available under a method name, replacing any
// previous registration.  Built-in methods are registered at init time;
// callers may register their own implementations of Handler the same way.
func Register(name string, h Handler) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = h
}

// RegisteredMethods returns the registered method names, sorted.
func RegisteredMethods() []string {
	registryMu.Lock()
	defer registryMu.Unlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Methods resolves registered method names into Method values for Run.
func Methods(names ...string) ([]Method, error) {
	registryMu.Lock()
	defer registryMu.Unlock()
	methods := make([]Method, 0, len(names))
	for _, name := range names {
		h, ok := registry[name]
		if !ok {
			return nil, &ContractError{Method: name, Detail: "no such registered method"}
		}
		methods = append(methods, Method{Name: name, Handler: h})
	}
	return methods, nil
}

// dispatch invokes one method against a thinned matrix and validates its
// output against the handler contract, converting it to long-format rows.
func dispatch(method Method, sub *Matrix, treatment []float64, options []interface{},
	proportion float64, replication int, depth int64) ([]Row, error) {
	var (
		table *ResultTable
		err   error
	)
	if len(options) > 0 {
		oh := method.Handler.(OptionHandler) // validated before the run began
		table, err = oh.AnalyzeOpts(sub, treatment, options...)
	} else {
		table, err = method.Handler.Analyze(sub, treatment)
	}
	if err != nil {
		return nil, err
	}
	return tableToRows(method.Name, table, sub, proportion, replication, depth)
}

// tableToRows normalizes a heterogeneous handler output into Row values.
// Missing IDs are filled from the matrix row order, missing counts with NaN.
func tableToRows(name string, t *ResultTable, sub *Matrix,
	proportion float64, replication int, depth int64) ([]Row, error) {
	if t == nil || t.Coefficient == nil {
		return nil, &ContractError{Method: name, Field: "coefficient"}
	}
	if t.PValue == nil {
		return nil, &ContractError{Method: name, Field: "pvalue"}
	}
	n := len(t.Coefficient)
	if len(t.PValue) != n {
		return nil, &ContractError{Method: name, Detail: "coefficient and pvalue column lengths differ"}
	}
	ids := t.IDs
	if ids == nil {
		if n != sub.NumGenes() {
			return nil, &ContractError{Method: name,
				Detail: "result has no ID column and its row count does not match the gene count"}
		}
		ids = sub.IDs()
	} else if len(ids) != n {
		return nil, &ContractError{Method: name, Detail: "ID column length does not match result rows"}
	}
	if t.Count != nil && len(t.Count) != n {
		return nil, &ContractError{Method: name, Detail: "count column length does not match result rows"}
	}
	for col, vals := range t.Extra {
		if len(vals) != n {
			return nil, &ContractError{Method: name, Detail: "extra column " + col + " length does not match result rows"}
		}
	}

	qvals := QValues(t.PValue)
	rows := make([]Row, n)
	for i := range rows {
		count := math.NaN()
		if t.Count != nil {
			count = t.Count[i]
		}
		rows[i] = Row{
			ID:          ids[i],
			Count:       count,
			Depth:       depth,
			Proportion:  proportion,
			Replication: replication,
			Method:      name,
			Coefficient: t.Coefficient[i],
			PValue:      t.PValue[i],
			QValue:      qvals[i],
		}
		if len(t.Extra) > 0 {
			extra := make(map[string]float64, len(t.Extra))
			for col, vals := range t.Extra {
				extra[col] = vals[i]
			}
			rows[i].Extra = extra
		}
	}
	return rows, nil
}
