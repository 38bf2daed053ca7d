package rsec

import "sort"

// CombineConfig controls consensus combination of a clustering matrix.
type CombineConfig struct {
	// Proportion is the minimum fraction of runs in which two samples must
	// share a (non -1) label to be linked. Must be in (0, 1]. Default: 0.5.
	Proportion float64

	// MinSize relabels consensus clusters smaller than this as -1.
	// Default: 5.
	MinSize int
}

// DefaultCombineConfig returns a CombineConfig with defaults applied.
func DefaultCombineConfig() CombineConfig {
	return CombineConfig{Proportion: 0.5, MinSize: 5}
}

func applyCombineDefaults(cfg *CombineConfig) {
	if cfg.Proportion == 0 {
		cfg.Proportion = 0.5
	}
	if cfg.MinSize == 0 {
		cfg.MinSize = 5
	}
}

// RunLabel identifies one original cluster inside the clustering matrix: the
// label a contributing run assigned.
type RunLabel struct {
	Run   int
	Label int
}

// ConsensusResult is a single labeling reconciled from many runs, plus the
// agreement matrix it was cut from and, per final cluster, the original
// clusters that fed it (for traceability and multi-run visualization).
type ConsensusResult struct {
	// Labels is the consensus labeling; ids are 0.. by descending cluster
	// size, -1 for unassigned.
	Labels []int

	// Proportion is the flat N×N pairwise agreement matrix: the fraction of
	// runs assigning both samples a non -1 label that assigned them the same
	// one. Diagonal is 1.
	Proportion []float64

	// Contributing maps each final cluster id to the (run, label) pairs its
	// members carried, ordered by run then label.
	Contributing map[int][]RunLabel
}

// CombineMany collapses a clustering matrix into one consensus labeling.
// Pairs agreeing in at least Proportion of their shared valid runs are
// linked; connected components of the linked graph become clusters, so full
// pairwise agreement inside a component is not required. Components smaller
// than MinSize are relabeled -1, as is any sample no run ever assigned.
// Failed columns are ignored.
func CombineMany(runs *ClusterRuns, cfg CombineConfig) (*ConsensusResult, error) {
	applyCombineDefaults(&cfg)
	if cfg.Proportion <= 0 || cfg.Proportion > 1 {
		return nil, configErrorf("combine: proportion must be in (0,1], got %v", cfg.Proportion)
	}
	if cfg.MinSize < 1 {
		return nil, configErrorf("combine: MinSize must be >= 1, got %d", cfg.MinSize)
	}
	if runs == nil || runs.R() == 0 {
		return nil, insufficientDataErrorf("combine: no clustering runs")
	}

	n := runs.N
	usable := make([]int, 0, runs.R())
	for r := 0; r < runs.R(); r++ {
		if runs.Columns[r].Err == nil {
			usable = append(usable, r)
		}
	}
	if len(usable) == 0 {
		return nil, insufficientDataErrorf("combine: every run failed")
	}

	// Pairwise agreement over runs where both samples were assigned.
	proportion := make([]float64, n*n)
	uf := NewUnionFind(n)
	assigned := make([]bool, n)
	for i := 0; i < n; i++ {
		proportion[i*n+i] = 1
		for _, r := range usable {
			if runs.At(i, r) >= 0 {
				assigned[i] = true
				break
			}
		}
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			var together, valid float64
			for _, r := range usable {
				li, lj := runs.At(i, r), runs.At(j, r)
				if li < 0 || lj < 0 {
					continue
				}
				valid++
				if li == lj {
					together++
				}
			}
			if valid == 0 {
				continue
			}
			p := together / valid
			proportion[i*n+j] = p
			proportion[j*n+i] = p
			if p >= cfg.Proportion {
				uf.Union(i, j)
			}
		}
	}

	// Components -> sized, filtered, deterministically numbered labels.
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}
	var components [][]int
	for _, comp := range uf.Components(n) {
		// A sample with no assignment in any run stays -1 even as a
		// singleton component.
		if len(comp) == 1 && !assigned[comp[0]] {
			continue
		}
		if len(comp) < cfg.MinSize {
			continue
		}
		components = append(components, comp)
	}
	sort.Slice(components, func(a, b int) bool {
		if len(components[a]) != len(components[b]) {
			return len(components[a]) > len(components[b])
		}
		return components[a][0] < components[b][0]
	})
	for id, comp := range components {
		for _, i := range comp {
			labels[i] = id
		}
	}

	return &ConsensusResult{
		Labels:       labels,
		Proportion:   proportion,
		Contributing: contributingLabels(runs, usable, labels),
	}, nil
}

// contributingLabels collects, per final cluster, the distinct original
// (run, label) pairs carried by its members.
func contributingLabels(runs *ClusterRuns, usable []int, labels []int) map[int][]RunLabel {
	seen := make(map[int]map[RunLabel]bool)
	for i, c := range labels {
		if c < 0 {
			continue
		}
		if seen[c] == nil {
			seen[c] = make(map[RunLabel]bool)
		}
		for _, r := range usable {
			if l := runs.At(i, r); l >= 0 {
				seen[c][RunLabel{Run: r, Label: l}] = true
			}
		}
	}

	out := make(map[int][]RunLabel, len(seen))
	for c, set := range seen {
		pairs := make([]RunLabel, 0, len(set))
		for rl := range set {
			pairs = append(pairs, rl)
		}
		sort.Slice(pairs, func(a, b int) bool {
			if pairs[a].Run != pairs[b].Run {
				return pairs[a].Run < pairs[b].Run
			}
			return pairs[a].Label < pairs[b].Label
		})
		out[c] = pairs
	}
	return out
}
