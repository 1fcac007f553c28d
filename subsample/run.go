package subsample

import (
	"context"
	"math"
	"sync"
	"sync/atomic"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/pkg/errors"
)

// Opts configures a Run.
type Opts struct {
	// Replications is the number of independent thinning draws per
	// proportion.
	Replications int
	// Seed fixes the run's random streams.  Zero means generate a fresh
	// seed; the seed actually used is recorded on the returned store.
	Seed int64
	// ExtraOptions are passed through to methods implementing OptionHandler.
	// When nonempty, every method in the run must implement OptionHandler.
	ExtraOptions []interface{}
	// Progress, if set, is called after each completed (proportion,
	// replication) task with the number of finished tasks and the total.
	// It may be called concurrently.
	Progress func(done, total int)
}

// DefaultOpts sets the default values of Opts.
var DefaultOpts = Opts{
	Replications: 1,
}

// Stats counts work done by one run.
type Stats struct {
	// Tasks is the number of (proportion, replication) matrices drawn.
	Tasks int
	// Dispatches is the number of method invocations.
	Dispatches int
	// Rows is the number of result rows emitted.
	Rows int
}

// Merge adds the field values of the two Stats objects and creates new Stats.
func (s Stats) Merge(o Stats) Stats {
	s.Tasks += o.Tasks
	s.Dispatches += o.Dispatches
	s.Rows += o.Rows
	return s
}

// task is one independent unit of work.
type task struct {
	proportion  float64
	replication int
}

// Run thins the matrix once per requested (proportion, replication), applies
// every method to that same thinned matrix, and accumulates the results in a
// long-format store carrying the run seed.  Validation failures (invalid
// proportion, incompatible method argument sets) are reported before any
// sampling begins; a method failing mid-run aborts the whole call rather
// than returning a store with silently missing methods.
//
// Tasks execute in parallel.  Each derives its own random stream from
// (seed, proportion, replication), so the returned rows are independent of
// scheduling order.  Cancellation is cooperative: ctx is checked as each
// task starts, and on cancellation no partial store is returned.
func Run(ctx context.Context, m *Matrix, treatment []float64, proportions []float64,
	methods []Method, opts Opts) (*Store, error) {
	if m == nil || m.NumGenes() == 0 {
		return nil, errors.New("run: empty matrix")
	}
	if len(treatment) != m.NumSamples() {
		return nil, errors.Errorf("run: treatment has %d entries, matrix has %d samples",
			len(treatment), m.NumSamples())
	}
	if len(proportions) == 0 {
		return nil, errors.New("run: no proportions requested")
	}
	for _, p := range proportions {
		if err := checkProportion(p); err != nil {
			return nil, err
		}
	}
	if len(methods) == 0 {
		return nil, errors.New("run: no methods requested")
	}
	if len(opts.ExtraOptions) > 0 {
		for _, method := range methods {
			if _, ok := method.Handler.(OptionHandler); !ok {
				return nil, errors.Wrapf(ErrIncompatibleHandlerArgs,
					"method %s does not accept extra options", method.Name)
			}
		}
	}
	replications := opts.Replications
	if replications <= 0 {
		replications = 1
	}
	seed := opts.Seed
	if seed == 0 {
		seed = NewSeed()
	}

	tasks := make([]task, 0, len(proportions)*replications)
	for _, p := range proportions {
		for rep := 0; rep < replications; rep++ {
			tasks = append(tasks, task{proportion: p, replication: rep})
		}
	}
	log.Debug.Printf("subsample: seed %d, %d tasks (%d proportions x %d replications), %d methods",
		seed, len(tasks), len(proportions), replications, len(methods))

	var (
		done     int64
		statsMu  sync.Mutex
		total    Stats
		taskRows = make([][]Row, len(tasks))
	)
	err := traverse.Each(len(tasks), func(ti int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		t := tasks[ti]
		sub, err := GenerateSubsampledMatrix(m, t.proportion, seed, t.replication)
		if err != nil {
			return err
		}
		depth := sub.Depth()
		var (
			rows  []Row
			stats Stats
		)
		stats.Tasks = 1
		for _, method := range methods {
			methodRows, err := dispatch(method, sub, treatment, opts.ExtraOptions,
				t.proportion, t.replication, depth)
			if err != nil {
				return err
			}
			rows = append(rows, methodRows...)
			stats.Dispatches++
		}
		stats.Rows = len(rows)
		// Rows for a task become visible all at once, never piecemeal.
		taskRows[ti] = rows
		statsMu.Lock()
		total = total.Merge(stats)
		statsMu.Unlock()
		n := atomic.AddInt64(&done, 1)
		log.Debug.Printf("subsample: task %d/%d done (proportion %v, replication %d, depth %d)",
			n, len(tasks), t.proportion, t.replication, depth)
		if opts.Progress != nil {
			opts.Progress(int(n), len(tasks))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	store := &Store{}
	if err := store.SetSeed(seed); err != nil {
		return nil, err
	}
	for _, rows := range taskRows {
		store.Rows = append(store.Rows, rows...)
	}
	fillExtraColumns(store)
	log.Printf("subsample: seed %d: %d tasks, %d dispatches, %d rows",
		seed, total.Tasks, total.Dispatches, total.Rows)
	return store, nil
}

// fillExtraColumns gives every row a NaN entry for each extra column that
// some other method contributed, so combined results share one schema.
func fillExtraColumns(s *Store) {
	cols := s.ExtraColumns()
	if len(cols) == 0 {
		return
	}
	for i := range s.Rows {
		if s.Rows[i].Extra == nil {
			s.Rows[i].Extra = make(map[string]float64, len(cols))
		}
		for _, col := range cols {
			if _, ok := s.Rows[i].Extra[col]; !ok {
				s.Rows[i].Extra[col] = math.NaN()
			}
		}
	}
}
