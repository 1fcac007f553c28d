package subsample

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// coefHandler returns per-gene coefficients derived from row sums, with
// p-values spread over (0, 1).
func coefHandler(extra map[string]bool) HandlerFunc {
	return func(m *Matrix, treatment []float64) (*ResultTable, error) {
		n := m.NumGenes()
		t := &ResultTable{
			Coefficient: make([]float64, n),
			PValue:      make([]float64, n),
			Count:       make([]float64, n),
		}
		for i := 0; i < n; i++ {
			t.Coefficient[i] = float64(m.RowSum(i))
			t.PValue[i] = (float64(i) + 0.5) / float64(n)
			t.Count[i] = float64(m.RowSum(i))
		}
		for col := range extra {
			vals := make([]float64, n)
			for i := range vals {
				vals[i] = float64(i)
			}
			if t.Extra == nil {
				t.Extra = map[string][]float64{}
			}
			t.Extra[col] = vals
		}
		return t, nil
	}
}

func TestDispatchFillsIDsFromMatrix(t *testing.T) {
	m := testMatrix(t, 8, 3)
	store, err := Run(context.Background(), m, []float64{0, 0, 1},
		[]float64{1}, []Method{{Name: "stub", Handler: coefHandler(nil)}}, Opts{Seed: 7})
	require.NoError(t, err)
	require.Equal(t, 8, len(store.Rows))
	for i, row := range store.Rows {
		assert.Equal(t, m.IDs()[i], row.ID)
		assert.Equal(t, "stub", row.Method)
		assert.Equal(t, m.Depth(), row.Depth)
	}
}

func TestDispatchExplicitIDs(t *testing.T) {
	// A set-level method emits fewer rows than genes, with its own IDs.
	setLevel := HandlerFunc(func(m *Matrix, treatment []float64) (*ResultTable, error) {
		return &ResultTable{
			IDs:         []string{"setA", "setB"},
			Coefficient: []float64{1.5, -0.5},
			PValue:      []float64{0.01, 0.6},
		}, nil
	})
	m := testMatrix(t, 8, 3)
	store, err := Run(context.Background(), m, []float64{0, 0, 1},
		[]float64{1}, []Method{{Name: "sets", Handler: setLevel}}, Opts{Seed: 7})
	require.NoError(t, err)
	require.Equal(t, 2, len(store.Rows))
	assert.Equal(t, "setA", store.Rows[0].ID)
	assert.True(t, math.IsNaN(store.Rows[0].Count), "missing count fills with NaN")
}

func TestContractViolations(t *testing.T) {
	m := testMatrix(t, 4, 3)
	treatment := []float64{0, 0, 1}
	tests := []struct {
		name  string
		table *ResultTable
		field string
	}{
		{"missing pvalue", &ResultTable{Coefficient: []float64{1, 2, 3, 4}}, "pvalue"},
		{"missing coefficient", &ResultTable{PValue: []float64{0.1, 0.2, 0.3, 0.4}}, "coefficient"},
		{"nil table", nil, "coefficient"},
		{"row count mismatch", &ResultTable{Coefficient: []float64{1}, PValue: []float64{0.5}}, ""},
	}
	for _, test := range tests {
		bad := HandlerFunc(func(*Matrix, []float64) (*ResultTable, error) { return test.table, nil })
		_, err := Run(context.Background(), m, treatment, []float64{0.5},
			[]Method{{Name: "bad", Handler: bad}}, Opts{Seed: 3})
		var cerr *ContractError
		require.True(t, errors.As(err, &cerr), "%s: got %v", test.name, err)
		assert.Equal(t, "bad", cerr.Method, test.name)
		assert.Equal(t, test.field, cerr.Field, test.name)
	}
}

func TestContractViolationAbortsRemainingMethods(t *testing.T) {
	m := testMatrix(t, 4, 3)
	bad := HandlerFunc(func(*Matrix, []float64) (*ResultTable, error) {
		return &ResultTable{Coefficient: []float64{1, 2, 3, 4}}, nil
	})
	ran := false
	after := HandlerFunc(func(mat *Matrix, tr []float64) (*ResultTable, error) {
		ran = true
		return coefHandler(nil)(mat, tr)
	})
	store, err := Run(context.Background(), m, []float64{0, 0, 1}, []float64{1},
		[]Method{{Name: "bad", Handler: bad}, {Name: "after", Handler: after}}, Opts{Seed: 3})
	var cerr *ContractError
	require.True(t, errors.As(err, &cerr))
	assert.Nil(t, store, "a failing method must abort the whole run")
	assert.False(t, ran, "methods after the failing one must not run")
}

func TestExtraColumnsUnionFilledWithNaN(t *testing.T) {
	m := testMatrix(t, 6, 3)
	methods := []Method{
		{Name: "plain", Handler: coefHandler(nil)},
		{Name: "extra", Handler: coefHandler(map[string]bool{"dispersion": true})},
	}
	store, err := Run(context.Background(), m, []float64{0, 0, 1}, []float64{1}, methods, Opts{Seed: 11})
	require.NoError(t, err)
	require.Equal(t, 12, len(store.Rows))
	assert.Equal(t, []string{"dispersion"}, store.ExtraColumns())
	for _, row := range store.Rows {
		v, ok := row.Extra["dispersion"]
		require.True(t, ok, "every row carries the union of extra columns")
		if row.Method == "plain" {
			assert.True(t, math.IsNaN(v))
		} else {
			assert.False(t, math.IsNaN(v))
		}
	}
}

type optionEcho struct {
	got []interface{}
}

func (h *optionEcho) Analyze(m *Matrix, treatment []float64) (*ResultTable, error) {
	return h.AnalyzeOpts(m, treatment)
}

func (h *optionEcho) AnalyzeOpts(m *Matrix, treatment []float64, options ...interface{}) (*ResultTable, error) {
	h.got = options
	return coefHandler(nil)(m, treatment)
}

func TestIncompatibleHandlerArguments(t *testing.T) {
	m := testMatrix(t, 4, 3)
	sampled := false
	spy := HandlerFunc(func(mat *Matrix, tr []float64) (*ResultTable, error) {
		sampled = true
		return coefHandler(nil)(mat, tr)
	})
	methods := []Method{
		{Name: "opts", Handler: &optionEcho{}},
		{Name: "plain", Handler: spy},
	}
	_, err := Run(context.Background(), m, []float64{0, 0, 1}, []float64{1},
		methods, Opts{Seed: 1, ExtraOptions: []interface{}{"df=3"}})
	assert.True(t, errors.Is(err, ErrIncompatibleHandlerArgs), "got %v", err)
	assert.False(t, sampled, "validation must fail before any work begins")
}

func TestOptionHandlerReceivesOptions(t *testing.T) {
	m := testMatrix(t, 4, 3)
	echo := &optionEcho{}
	_, err := Run(context.Background(), m, []float64{0, 0, 1}, []float64{1},
		[]Method{{Name: "opts", Handler: echo}}, Opts{Seed: 1, ExtraOptions: []interface{}{"df=3", 7}})
	require.NoError(t, err)
	require.Equal(t, 2, len(echo.got))
	assert.Equal(t, "df=3", echo.got[0])
	assert.Equal(t, 7, echo.got[1])
}

func TestMethodsLookup(t *testing.T) {
	methods, err := Methods(MethodLogCPMLM, MethodWelchT)
	require.NoError(t, err)
	assert.Equal(t, 2, len(methods))
	assert.Equal(t, MethodLogCPMLM, methods[0].Name)

	_, err = Methods("nonesuch")
	var cerr *ContractError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "nonesuch", cerr.Method)
}
