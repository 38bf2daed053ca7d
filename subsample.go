package rsec

import (
	"context"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync"
)

// SubsampleConfig controls co-clustering matrix construction.
// Start with [DefaultSubsampleConfig] and set K plus anything else you need.
type SubsampleConfig struct {
	// B is the number of subsample-and-cluster iterations. Must be >= 1;
	// B == 0 is rejected with ErrDegenerateCoClustering rather than silently
	// producing an empty matrix. Default: 100.
	B int

	// Fraction is the subsample proportion p in (0, 1]; each iteration draws
	// ceil(p*N) samples without replacement. Default: 0.7.
	Fraction float64

	// K is the cluster count requested from the per-subsample partition
	// function. Required, no default.
	K int

	// ClusterFunction names the PARTITION function run on each subsample.
	// Default: "kmeans".
	ClusterFunction string

	// FinalFunction names the DISTANCE function applied to 1 minus the
	// co-clustering matrix to produce the final labels. Default:
	// "hierarchical01".
	FinalFunction string

	// Alpha is the cutoff handed to FinalFunction: samples co-clustering in
	// at least a 1-Alpha proportion of runs stay together. Default: 0.1.
	Alpha float64

	// MinSize relabels final clusters smaller than this as -1. Default: 1
	// (no filtering).
	MinSize int

	// Seed drives all subsampling and per-subsample clustering randomness.
	// Each iteration derives its own generator from (Seed, iteration), so
	// results are identical under sequential and parallel execution.
	Seed int64

	// Workers is the number of goroutines for subsample iterations.
	// 0 means runtime.NumCPU().
	Workers int

	// ZeroDenominator decides how pairs never drawn together enter the final
	// dissimilarity. Default: ZeroDenomMaxDissimilarity.
	ZeroDenominator ZeroDenominatorPolicy

	// Registry resolves the cluster function names. Default: DefaultRegistry().
	Registry *Registry
}

// DefaultSubsampleConfig returns a SubsampleConfig with defaults applied.
// K is left zero and must be set by the caller.
func DefaultSubsampleConfig() SubsampleConfig {
	return SubsampleConfig{
		B:               100,
		Fraction:        0.7,
		ClusterFunction: "kmeans",
		FinalFunction:   "hierarchical01",
		Alpha:           0.1,
		MinSize:         1,
	}
}

func applySubsampleDefaults(cfg *SubsampleConfig) {
	if cfg.ClusterFunction == "" {
		cfg.ClusterFunction = "kmeans"
	}
	if cfg.FinalFunction == "" {
		cfg.FinalFunction = "hierarchical01"
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.MinSize == 0 {
		cfg.MinSize = 1
	}
	if cfg.Registry == nil {
		cfg.Registry = DefaultRegistry()
	}
}

func validateSubsampleConfig(cfg *SubsampleConfig, n int) error {
	if cfg.B <= 0 {
		return degenerateErrorf("subsample: B must be >= 1, got %d", cfg.B)
	}
	if cfg.Fraction <= 0 || cfg.Fraction > 1 {
		return configErrorf("subsample: fraction must be in (0,1], got %v", cfg.Fraction)
	}
	if cfg.K < 1 {
		return configErrorf("subsample: K must be >= 1, got %d", cfg.K)
	}
	if cfg.MinSize < 1 {
		return configErrorf("subsample: MinSize must be >= 1, got %d", cfg.MinSize)
	}
	if subsampleSize(n, cfg.Fraction) < cfg.K {
		return insufficientDataErrorf(
			"subsample: %d samples at fraction %v draw %d per iteration, fewer than K=%d",
			n, cfg.Fraction, subsampleSize(n, cfg.Fraction), cfg.K)
	}
	return nil
}

func subsampleSize(n int, fraction float64) int {
	return int(math.Ceil(fraction * float64(n)))
}

// subsampleSeed derives the generator seed for one iteration. The odd
// multiplier spreads consecutive iterations (and the per-column base seeds
// ClusterMany derives) across the seed space.
func subsampleSeed(base int64, iter int) int64 {
	return base + int64(uint64(iter+1)*0x9E3779B97F4A7C15)
}

// SubsampleCoClustering builds the co-clustering matrix: B times, draw
// ceil(Fraction*N) samples without replacement, partition them with the
// configured cluster function at K, and record for every co-drawn pair
// whether it shared a cluster. Iterations run across Workers goroutines with
// per-worker partial matrices merged at the end, so the result is identical
// for any worker count given the same Seed.
func SubsampleCoClustering(ctx context.Context, m Matrix, cfg SubsampleConfig) (*CoClustering, error) {
	applySubsampleDefaults(&cfg)
	if err := validateSubsampleConfig(&cfg, m.N); err != nil {
		return nil, err
	}

	fn, err := cfg.Registry.Lookup(cfg.ClusterFunction)
	if err != nil {
		return nil, err
	}
	if fn.Kind != KindPartition {
		return nil, configErrorf("subsample: cluster function %q is %s-based, need partition", fn.Name, fn.Kind)
	}

	subSize := subsampleSize(m.N, cfg.Fraction)
	workers := cfg.Workers
	if workers > cfg.B {
		workers = cfg.B
	}

	partials := make([]*CoClustering, 0, workers)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for _, r := range workerRanges(cfg.B, workers) {
		partial := newCoClustering(m.N)
		partials = append(partials, partial)

		wg.Add(1)
		go func(start, end int, acc *CoClustering) {
			defer wg.Done()
			for b := start; b < end; b++ {
				if ctx.Err() != nil {
					return
				}
				if err := subsampleOnce(m, cfg, fn, subSize, b, acc); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					return
				}
			}
		}(r[0], r[1], partial)
	}

	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if firstErr != nil {
		return nil, firstErr
	}

	co := partials[0]
	for _, p := range partials[1:] {
		co.merge(p)
	}
	return co, nil
}

// subsampleOnce runs iteration b: draw, cluster, accumulate into acc.
func subsampleOnce(m Matrix, cfg SubsampleConfig, fn ClusterFunction, subSize, b int, acc *CoClustering) error {
	rng := rand.New(rand.NewSource(subsampleSeed(cfg.Seed, b)))

	perm := rng.Perm(m.N)
	indices := perm[:subSize]
	sort.Ints(indices)

	labels, err := fn.Partition(m.Subset(indices), cfg.K, rng)
	if err != nil {
		return err
	}
	acc.observe(indices, labels)
	return nil
}

// SubsampleCluster runs SubsampleCoClustering and then the final
// distance-based clustering over 1 minus the co-clustering matrix, applying
// the MinSize filter. Returns the final labels together with the matrix, for
// co-clustering visualization.
func SubsampleCluster(ctx context.Context, m Matrix, cfg SubsampleConfig) ([]int, *CoClustering, error) {
	applySubsampleDefaults(&cfg)

	co, err := SubsampleCoClustering(ctx, m, cfg)
	if err != nil {
		return nil, nil, err
	}

	final, err := cfg.Registry.Lookup(cfg.FinalFunction)
	if err != nil {
		return nil, nil, err
	}
	if final.Kind != KindDistance {
		return nil, nil, configErrorf("subsample: final function %q is %s-based, need distance", final.Name, final.Kind)
	}

	dissim, err := co.Dissimilarity(cfg.ZeroDenominator)
	if err != nil {
		return nil, nil, err
	}

	labels, err := final.Distance(dissim, m.N, cfg.Alpha)
	if err != nil {
		return nil, nil, err
	}

	labels = renumberBySize(filterMinSize(labels, cfg.MinSize))
	return labels, co, nil
}
