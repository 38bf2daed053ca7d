package rsec

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sync"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/stat/combin"
)

// ManyConfig controls the combinatorial clustering grid.
type ManyConfig struct {
	// Reduce lists dimensionality-reduction method names. Default: {"none"}.
	Reduce []string

	// Dims lists reduced dimension counts, crossed with Reduce. 0 means no
	// reduction. Default: {0}.
	Dims []int

	// Functions lists cluster function names, resolved in Registry.
	// Default: {"kmeans"}.
	Functions []string

	// Ks is the cluster-count grid. Partition functions take each k directly;
	// distance functions use it for the per-subsample partition step.
	Ks []int

	// Alphas is the cutoff grid for distance functions, crossed with Ks.
	Alphas []float64

	// Sequential runs SequentialCluster per combination, with each k as K0.
	Sequential bool

	// Subsample runs subsampled co-clustering per combination instead of a
	// single direct clustering. Implied by Sequential. Distance functions are
	// only runnable in subsample or sequential mode; elsewhere their grid
	// slots are skipped as structurally incompatible.
	Subsample bool

	// SubsampleTemplate supplies B, Fraction and friends for subsample mode.
	// K, ClusterFunction, FinalFunction, Alpha and Seed are overridden per
	// combination.
	SubsampleTemplate SubsampleConfig

	// Seq supplies the sequential-mode knobs (Beta, RemainN, TopCan, ...).
	// K0 and the subsample template are overridden per combination.
	Seq SeqConfig

	// MinSize relabels clusters smaller than this as -1 in every column.
	// Default: 1.
	MinSize int

	// Seed is the single base seed; each combination derives its own from
	// (Seed, combination index), and subsampling derives per-iteration seeds
	// from that, so the whole grid is reproducible at any Workers setting.
	Seed int64

	// Workers is the number of combinations run concurrently.
	// 0 means runtime.NumCPU().
	Workers int

	// Registry resolves function and reducer names. Default: DefaultRegistry().
	Registry *Registry
}

// ColumnMeta records the parameter combination that generated one column of
// the clustering matrix, and its failure if the run did not complete.
type ColumnMeta struct {
	Index      int
	Reduce     string
	Dims       int
	Function   string
	K          int     // 0 when the combination has no k parameter
	Alpha      float64 // 0 when the combination has no alpha parameter
	Sequential bool
	Err        error // non-nil: the column is failed and all its labels are -1
}

// Label renders the combination compactly, e.g. "pca=10,kmeans,k=4".
func (c ColumnMeta) Label() string {
	s := fmt.Sprintf("%s=%d,%s", c.Reduce, c.Dims, c.Function)
	if c.K > 0 {
		s += fmt.Sprintf(",k=%d", c.K)
	}
	if c.Alpha > 0 {
		s += fmt.Sprintf(",alpha=%v", c.Alpha)
	}
	if c.Sequential {
		s += ",seq"
	}
	return s
}

// ClusterRuns is the N×R clustering matrix: one labeling per parameter
// combination, columns in deterministic grid-enumeration order.
type ClusterRuns struct {
	N       int
	Columns []ColumnMeta
	labels  [][]int // column-major: labels[r][i] is sample i in run r
}

// R returns the number of columns (runs).
func (cr *ClusterRuns) R() int { return len(cr.Columns) }

// Column returns run r's labels. Callers must not modify the returned slice.
func (cr *ClusterRuns) Column(r int) []int { return cr.labels[r] }

// At returns the label of sample i in run r.
func (cr *ClusterRuns) At(i, r int) int { return cr.labels[r][i] }

// Succeeded counts the columns that ran to completion.
func (cr *ClusterRuns) Succeeded() int {
	n := 0
	for _, c := range cr.Columns {
		if c.Err == nil {
			n++
		}
	}
	return n
}

func applyManyDefaults(cfg *ManyConfig) {
	if len(cfg.Reduce) == 0 {
		cfg.Reduce = []string{"none"}
	}
	if len(cfg.Dims) == 0 {
		cfg.Dims = []int{0}
	}
	if len(cfg.Functions) == 0 {
		cfg.Functions = []string{"kmeans"}
	}
	if cfg.MinSize == 0 {
		cfg.MinSize = 1
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Registry == nil {
		cfg.Registry = DefaultRegistry()
	}
	cfg.SubsampleTemplate.Registry = cfg.Registry
	cfg.Seq.Subsample.Registry = cfg.Registry
}

// comboSeed derives the base seed for one grid combination.
func comboSeed(base int64, index int) int64 {
	return base + int64(index+1)*0x517CC1B727220A95
}

// ClusterMany runs one clustering per combination of (reduce method × dims ×
// cluster function × parameter grid). Combinations run concurrently; column
// order always matches enumeration order regardless of completion order. A
// failed combination yields an all -1 column with its error in the metadata;
// the run as a whole only fails when the grid is empty or nothing succeeds.
func ClusterMany(ctx context.Context, m Matrix, cfg ManyConfig) (*ClusterRuns, error) {
	applyManyDefaults(&cfg)
	if cfg.MinSize < 1 {
		return nil, configErrorf("clustermany: MinSize must be >= 1, got %d", cfg.MinSize)
	}
	for _, k := range cfg.Ks {
		if k < 1 {
			return nil, configErrorf("clustermany: k grid values must be >= 1, got %d", k)
		}
	}
	for _, a := range cfg.Alphas {
		if a < 0 || a > 1 {
			return nil, configErrorf("clustermany: alpha grid values must be in [0,1], got %v", a)
		}
	}

	combos, err := enumerateGrid(cfg)
	if err != nil {
		return nil, err
	}
	if len(combos) == 0 {
		return nil, configErrorf("clustermany: grid produced no runnable combinations")
	}

	runs := &ClusterRuns{
		N:       m.N,
		Columns: make([]ColumnMeta, len(combos)),
		labels:  make([][]int, len(combos)),
	}
	for i, c := range combos {
		runs.Columns[i] = c
	}

	workers := cfg.Workers
	if workers > len(combos) {
		workers = len(combos)
	}
	tasks := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range tasks {
				labels, err := runCombination(ctx, m, cfg, runs.Columns[idx])
				if err != nil {
					logger.Warn().Err(err).
						Str("combination", runs.Columns[idx].Label()).
						Msg("clustermany: combination failed")
					runs.Columns[idx].Err = err
					labels = allNoise(m.N)
				}
				runs.labels[idx] = labels
			}
		}()
	}

feed:
	for idx := range combos {
		select {
		case <-ctx.Done():
			break feed
		case tasks <- idx:
		}
	}
	close(tasks)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if runs.Succeeded() == 0 {
		first := runs.Columns[0].Err
		return nil, errors.Wrapf(first, "rsec: clustermany: all %d combinations failed", len(combos))
	}
	return runs, nil
}

// enumerateGrid expands the Cartesian product into column metadata in a fixed
// order: reduce, then dims, then function, then (k, alpha). Structurally
// incompatible slots are dropped here, before any computation.
func enumerateGrid(cfg ManyConfig) ([]ColumnMeta, error) {
	var combos []ColumnMeta

	lens := []int{len(cfg.Reduce), len(cfg.Dims), len(cfg.Functions)}
	for _, idx := range combin.Cartesian(lens) {
		reduce := cfg.Reduce[idx[0]]
		dims := cfg.Dims[idx[1]]
		name := cfg.Functions[idx[2]]

		fn, err := cfg.Registry.Lookup(name)
		if err != nil {
			return nil, err
		}

		base := ColumnMeta{
			Reduce:     reduce,
			Dims:       dims,
			Function:   name,
			Sequential: cfg.Sequential,
		}

		switch fn.Kind {
		case KindPartition:
			for _, k := range cfg.Ks {
				c := base
				c.K = k
				c.Index = len(combos)
				combos = append(combos, c)
			}
		case KindDistance:
			// Distance functions cut a co-clustering dissimilarity, so they
			// need subsample (or sequential) mode and both grids.
			if !cfg.Subsample && !cfg.Sequential {
				continue
			}
			for _, k := range cfg.Ks {
				for _, alpha := range cfg.Alphas {
					c := base
					c.K = k
					c.Alpha = alpha
					c.Index = len(combos)
					combos = append(combos, c)
				}
			}
		}
	}

	return combos, nil
}

// runCombination executes one grid combination end to end.
func runCombination(ctx context.Context, m Matrix, cfg ManyConfig, col ColumnMeta) ([]int, error) {
	projected, err := cfg.Registry.Project(m, col.Reduce, col.Dims)
	if err != nil {
		return nil, err
	}

	seed := comboSeed(cfg.Seed, col.Index)

	var labels []int
	switch {
	case cfg.Sequential:
		scfg := cfg.Seq
		scfg.K0 = col.K
		scfg.Subsample = subsampleFor(cfg, col, seed)
		labels, err = SequentialCluster(ctx, projected, scfg)

	case cfg.Subsample:
		labels, _, err = SubsampleCluster(ctx, projected, subsampleFor(cfg, col, seed))

	default:
		fn, lookupErr := cfg.Registry.Lookup(col.Function)
		if lookupErr != nil {
			return nil, lookupErr
		}
		rng := rand.New(rand.NewSource(seed))
		labels, err = fn.Partition(projected, col.K, rng)
	}
	if err != nil {
		return nil, err
	}

	return renumberBySize(filterMinSize(labels, cfg.MinSize)), nil
}

// subsampleFor specializes the subsample template to one combination.
func subsampleFor(cfg ManyConfig, col ColumnMeta, seed int64) SubsampleConfig {
	scfg := cfg.SubsampleTemplate
	scfg.K = col.K
	scfg.Seed = seed
	fn, err := cfg.Registry.Lookup(col.Function)
	if err == nil && fn.Kind == KindDistance {
		scfg.FinalFunction = col.Function
		scfg.Alpha = col.Alpha
	} else {
		scfg.ClusterFunction = col.Function
	}
	return scfg
}

func allNoise(n int) []int {
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}
	return labels
}
