package rsec

import "math"

// Linkage performs average-linkage agglomerative clustering over a flat n×n
// dissimilarity matrix. Returns n-1 merge rows in scipy linkage format:
// [left, right, height, mergedSize], with new cluster IDs starting at n in
// merge order. Heights are nondecreasing (average linkage is monotone).
// Ties break toward the lowest pair of positions, keeping output
// deterministic for symmetric inputs.
func Linkage(dissim []float64, n int) [][4]float64 {
	if n < 2 {
		return nil
	}

	// work holds current cluster-to-cluster distances, indexed by the
	// original position of each cluster's first member. Merged clusters stay
	// in the lower position; Lance-Williams updates keep the averages exact.
	work := make([]float64, len(dissim))
	copy(work, dissim)

	active := make([]bool, n)
	id := make([]int, n)   // scipy cluster ID currently held at each position
	size := make([]int, n) // members of the cluster at each position
	for i := 0; i < n; i++ {
		active[i] = true
		id[i] = i
		size[i] = 1
	}

	rows := make([][4]float64, 0, n-1)
	nextID := n

	for step := 0; step < n-1; step++ {
		// Find the closest active pair.
		bestA, bestB := -1, -1
		bestD := math.Inf(1)
		for a := 0; a < n; a++ {
			if !active[a] {
				continue
			}
			for b := a + 1; b < n; b++ {
				if !active[b] {
					continue
				}
				if d := work[a*n+b]; d < bestD {
					bestD = d
					bestA, bestB = a, b
				}
			}
		}

		rows = append(rows, [4]float64{
			float64(id[bestA]), float64(id[bestB]), bestD, float64(size[bestA] + size[bestB]),
		})

		// Average-linkage update: weighted mean of the two merged clusters'
		// distances to every other active cluster.
		sa, sb := float64(size[bestA]), float64(size[bestB])
		for c := 0; c < n; c++ {
			if !active[c] || c == bestA || c == bestB {
				continue
			}
			d := (sa*work[bestA*n+c] + sb*work[bestB*n+c]) / (sa + sb)
			work[bestA*n+c] = d
			work[c*n+bestA] = d
		}

		id[bestA] = nextID
		nextID++
		size[bestA] += size[bestB]
		active[bestB] = false
	}

	return rows
}

// CutLinkage cuts a Linkage result at the given height: merges at height <=
// cutoff are applied, merges above it are not. Returns one label per original
// item, numbered 0.. by each cluster's smallest member index.
func CutLinkage(merges [][4]float64, n int, cutoff float64) []int {
	uf := NewUnionFind(n)

	// rep maps a scipy cluster ID to one member item, so rows that reference
	// merged IDs can still be unioned at the item level.
	rep := make([]int, 2*n-1)
	for i := 0; i < n; i++ {
		rep[i] = i
	}
	for step, row := range merges {
		l, r := int(row[0]), int(row[1])
		if row[2] <= cutoff {
			uf.Union(rep[l], rep[r])
		}
		rep[n+step] = rep[l]
	}

	labels := make([]int, n)
	for c, members := range uf.Components(n) {
		for _, i := range members {
			labels[i] = c
		}
	}
	return labels
}

// Hierarchical01 is the built-in DISTANCE cluster function for dissimilarities
// in [0,1], such as 1 minus a co-clustering proportion. It agglomerates with
// average linkage and cuts the tree at dissimilarity alpha, so samples that
// co-cluster in at least a 1-alpha proportion of runs end up together.
// Singleton clusters are legitimate output; minimum-size filtering is the
// caller's concern.
func Hierarchical01(dissim []float64, n int, alpha float64) ([]int, error) {
	if alpha < 0 || alpha > 1 {
		return nil, configErrorf("hierarchical01: alpha must be in [0,1], got %v", alpha)
	}
	if len(dissim) != n*n {
		return nil, configErrorf("hierarchical01: dissimilarity length %d does not match n*n = %d", len(dissim), n*n)
	}
	if n == 0 {
		return []int{}, nil
	}
	if n == 1 {
		return []int{0}, nil
	}
	return CutLinkage(Linkage(dissim, n), n, alpha), nil
}
