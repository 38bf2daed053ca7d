package rsec

import (
	"context"
	"math"
	"sort"
	"sync"
)

// seqState is the phase of the sequential extraction state machine.
type seqState int

const (
	seqScanning seqState = iota
	seqStableFound
	seqExhausted
)

// SeqConfig controls sequential stable-cluster extraction.
type SeqConfig struct {
	// K0 is the first cluster count tried in each scanning round. Default: 4.
	K0 int

	// KRange is how many successive k values are tried per round:
	// K0, K0+1, ..., K0+KRange-1. Default: 5.
	KRange int

	// Beta is the minimum fraction of tried k values in which a cluster of
	// near-identical composition must reappear to count as stable.
	// Default: 0.7.
	Beta float64

	// RemainN stops extraction once the residual set is smaller than this.
	// Default: 30.
	RemainN int

	// TopCan caps how many stable candidates are ranked per round; the
	// largest of them is extracted. Default: 5.
	TopCan int

	// Overlap is the Jaccard similarity above which two clusters from
	// different k runs count as the same composition. Default: 0.9.
	Overlap float64

	// Subsample is the per-k co-clustering template. K is overridden with
	// each candidate k and Seed is re-derived per (round, k), everything
	// else applies as-is.
	Subsample SubsampleConfig
}

// DefaultSeqConfig returns a SeqConfig with defaults applied, including a
// default subsample template.
func DefaultSeqConfig() SeqConfig {
	return SeqConfig{
		K0:        4,
		KRange:    5,
		Beta:      0.7,
		RemainN:   30,
		TopCan:    5,
		Overlap:   0.9,
		Subsample: DefaultSubsampleConfig(),
	}
}

func applySeqDefaults(cfg *SeqConfig) {
	if cfg.K0 == 0 {
		cfg.K0 = 4
	}
	if cfg.KRange == 0 {
		cfg.KRange = 5
	}
	if cfg.Beta == 0 {
		cfg.Beta = 0.7
	}
	if cfg.RemainN == 0 {
		cfg.RemainN = 30
	}
	if cfg.TopCan == 0 {
		cfg.TopCan = 5
	}
	if cfg.Overlap == 0 {
		cfg.Overlap = 0.9
	}
	applySubsampleDefaults(&cfg.Subsample)
}

func validateSeqConfig(cfg *SeqConfig) error {
	if cfg.K0 < 2 {
		return configErrorf("seq: K0 must be >= 2, got %d", cfg.K0)
	}
	if cfg.KRange < 1 {
		return configErrorf("seq: KRange must be >= 1, got %d", cfg.KRange)
	}
	if cfg.Beta <= 0 || cfg.Beta > 1 {
		return configErrorf("seq: Beta must be in (0,1], got %v", cfg.Beta)
	}
	if cfg.RemainN < 1 {
		return configErrorf("seq: RemainN must be >= 1, got %d", cfg.RemainN)
	}
	if cfg.TopCan < 1 {
		return configErrorf("seq: TopCan must be >= 1, got %d", cfg.TopCan)
	}
	if cfg.Overlap <= 0 || cfg.Overlap > 1 {
		return configErrorf("seq: Overlap must be in (0,1], got %v", cfg.Overlap)
	}
	return nil
}

// seqSeed derives the subsample base seed for one (round, k-slot) scan.
func seqSeed(base int64, round, kIndex int) int64 {
	return base + int64(round)*1000003 + int64(kIndex)*8191
}

// SequentialCluster extracts one stable cluster at a time. Each round scans
// the residual samples at k = K0..K0+KRange-1, each via subsampled
// co-clustering; cluster compositions that recur across at least Beta of the
// tried k values are stable candidates, and the largest is extracted before
// the next round runs on the shrunken residual. Extraction stops when the
// residual is smaller than RemainN or a round finds nothing stable; leftover
// samples keep label -1.
//
// The bias is deliberate: many small clusters that survive parameter
// variation, rather than few large clusters tuned to a single k.
func SequentialCluster(ctx context.Context, m Matrix, cfg SeqConfig) ([]int, error) {
	applySeqDefaults(&cfg)
	if err := validateSeqConfig(&cfg); err != nil {
		return nil, err
	}
	// Resolve the cluster functions up front so a bad name fails fast
	// instead of surfacing as an empty first round.
	if _, err := cfg.Subsample.Registry.Lookup(cfg.Subsample.ClusterFunction); err != nil {
		return nil, err
	}
	if _, err := cfg.Subsample.Registry.Lookup(cfg.Subsample.FinalFunction); err != nil {
		return nil, err
	}

	labels := make([]int, m.N)
	for i := range labels {
		labels[i] = -1
	}

	residual := make([]int, m.N)
	for i := range residual {
		residual[i] = i
	}

	nextID := 0
	state := seqScanning

	for round := 0; state == seqScanning; round++ {
		if len(residual) < cfg.RemainN {
			state = seqExhausted
			break
		}

		clustersPerK, err := scanRound(ctx, m, residual, cfg, round)
		if err != nil {
			return nil, err
		}

		candidates := stableCandidates(clustersPerK, cfg.Beta, cfg.Overlap)
		if len(candidates) == 0 {
			state = seqExhausted
			break
		}
		if len(candidates) > cfg.TopCan {
			candidates = candidates[:cfg.TopCan]
		}

		state = seqStableFound
		winner := candidates[0]
		for _, i := range winner {
			labels[i] = nextID
		}
		nextID++

		residual = removeIndices(residual, winner)
		state = seqScanning
	}

	return labels, nil
}

// scanRound clusters the residual set once per candidate k, in parallel, and
// returns each k's clusters mapped back to original sample indices. A k whose
// run fails (e.g. the residual got too small for it) contributes no clusters;
// the failure is logged, not fatal.
func scanRound(ctx context.Context, m Matrix, residual []int, cfg SeqConfig, round int) ([][][]int, error) {
	sub := m.Subset(residual)
	clustersPerK := make([][][]int, cfg.KRange)

	var wg sync.WaitGroup
	for ki := 0; ki < cfg.KRange; ki++ {
		wg.Add(1)
		go func(ki int) {
			defer wg.Done()
			k := cfg.K0 + ki
			scfg := cfg.Subsample
			scfg.K = k
			scfg.Seed = seqSeed(cfg.Subsample.Seed, round, ki)

			lab, _, err := SubsampleCluster(ctx, sub, scfg)
			if err != nil {
				logger.Warn().Err(err).
					Int("round", round).
					Int("k", k).
					Msg("sequential scan: k slot failed, skipping")
				return
			}

			var clusters [][]int
			for _, members := range sortedClusters(lab) {
				orig := make([]int, len(members))
				for p, i := range members {
					orig[p] = residual[i]
				}
				clusters = append(clusters, orig)
			}
			clustersPerK[ki] = clusters
		}(ki)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return clustersPerK, nil
}

// sortedClusters lists the clusters of a labeling, each as ascending sample
// indices, ordered by cluster id.
func sortedClusters(labels []int) [][]int {
	members := clusterMembers(labels)
	ids := make([]int, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([][]int, len(ids))
	for p, id := range ids {
		out[p] = members[id]
	}
	return out
}

// stableCandidates finds cluster compositions recurring across k runs. A
// candidate must match (Jaccard >= overlap) clusters from at least
// ceil(beta*KRange) distinct k slots; its membership is the majority vote of
// its matched versions. Candidates come back sorted by size descending, ties
// toward the lowest member index.
func stableCandidates(clustersPerK [][][]int, beta, overlap float64) [][]int {
	numK := len(clustersPerK)
	minRecur := int(math.Ceil(beta * float64(numK)))

	used := make([][]bool, numK)
	for ki := range clustersPerK {
		used[ki] = make([]bool, len(clustersPerK[ki]))
	}

	var candidates [][]int
	for ki := 0; ki < numK; ki++ {
		for ci, c := range clustersPerK[ki] {
			if used[ki][ci] {
				continue
			}
			used[ki][ci] = true
			versions := [][]int{c}

			for kj := ki + 1; kj < numK; kj++ {
				bestCJ, bestSim := -1, 0.0
				for cj, other := range clustersPerK[kj] {
					if used[kj][cj] {
						continue
					}
					if sim := jaccard(c, other); sim >= overlap && sim > bestSim {
						bestSim = sim
						bestCJ = cj
					}
				}
				if bestCJ >= 0 {
					used[kj][bestCJ] = true
					versions = append(versions, clustersPerK[kj][bestCJ])
				}
			}

			if len(versions) >= minRecur {
				if members := majorityMembers(versions); len(members) > 0 {
					candidates = append(candidates, members)
				}
			}
		}
	}

	sort.Slice(candidates, func(a, b int) bool {
		if len(candidates[a]) != len(candidates[b]) {
			return len(candidates[a]) > len(candidates[b])
		}
		return candidates[a][0] < candidates[b][0]
	})
	return candidates
}

// jaccard computes |a∩b| / |a∪b| for two ascending index slices.
func jaccard(a, b []int) float64 {
	var inter, union int
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			inter++
			union++
			i++
			j++
		case a[i] < b[j]:
			union++
			i++
		default:
			union++
			j++
		}
	}
	union += len(a) - i + len(b) - j
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// majorityMembers keeps the samples present in more than half of the matched
// cluster versions.
func majorityMembers(versions [][]int) []int {
	counts := make(map[int]int)
	for _, v := range versions {
		for _, i := range v {
			counts[i]++
		}
	}
	need := len(versions)/2 + 1
	var members []int
	for i, c := range counts {
		if c >= need {
			members = append(members, i)
		}
	}
	sort.Ints(members)
	return members
}

// removeIndices returns residual minus the extracted members (both ascending).
func removeIndices(residual, extracted []int) []int {
	out := make([]int, 0, len(residual)-len(extracted))
	j := 0
	for _, i := range residual {
		for j < len(extracted) && extracted[j] < i {
			j++
		}
		if j < len(extracted) && extracted[j] == i {
			continue
		}
		out = append(out, i)
	}
	return out
}
