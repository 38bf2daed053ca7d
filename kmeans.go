package rsec

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

const kmeansMaxIterations = 100

// KMeans is the built-in PARTITION cluster function: Lloyd's algorithm with
// k-means++ seeding. All randomness comes from rng, so a fixed seed gives a
// fixed partition. Returns one label in [0, k) per row of m; empty clusters
// are reseeded to the point farthest from its centroid, so all k labels are
// populated whenever m has at least k distinct rows.
func KMeans(m Matrix, k int, rng *rand.Rand) ([]int, error) {
	if k < 1 {
		return nil, configErrorf("kmeans: k must be >= 1, got %d", k)
	}
	if k > m.N {
		return nil, insufficientDataErrorf("kmeans: k=%d exceeds sample count %d", k, m.N)
	}

	centroids := seedPlusPlus(m, k, rng)
	labels := make([]int, m.N)
	metric := EuclideanMetric{}

	for iter := 0; iter < kmeansMaxIterations; iter++ {
		changed := false
		for i := 0; i < m.N; i++ {
			best := nearestCentroid(m.Row(i), centroids, metric)
			if labels[i] != best || iter == 0 {
				labels[i] = best
				changed = true
			}
		}

		counts := make([]int, k)
		for j := range centroids {
			for d := range centroids[j] {
				centroids[j][d] = 0
			}
		}
		for i := 0; i < m.N; i++ {
			floats.Add(centroids[labels[i]], m.Row(i))
			counts[labels[i]]++
		}
		for j := range centroids {
			if counts[j] == 0 {
				// Reseed an empty cluster at the point farthest from its
				// current centroid so k clusters survive.
				copy(centroids[j], m.Row(farthestPoint(m, centroids, labels, metric)))
				continue
			}
			floats.Scale(1/float64(counts[j]), centroids[j])
		}

		if !changed {
			break
		}
	}

	return labels, nil
}

// seedPlusPlus picks k initial centroids with D² weighting: the first uniformly
// at random, each next one with probability proportional to its squared
// distance to the nearest centroid chosen so far.
func seedPlusPlus(m Matrix, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)

	first := make([]float64, m.Dims)
	copy(first, m.Row(rng.Intn(m.N)))
	centroids = append(centroids, first)

	dist2 := make([]float64, m.N)
	for len(centroids) < k {
		var total float64
		latest := centroids[len(centroids)-1]
		for i := 0; i < m.N; i++ {
			d := squaredDistance(m.Row(i), latest)
			if len(centroids) == 1 || d < dist2[i] {
				dist2[i] = d
			}
			total += dist2[i]
		}

		next := 0
		if total > 0 {
			target := rng.Float64() * total
			var cum float64
			for i := 0; i < m.N; i++ {
				cum += dist2[i]
				if cum >= target {
					next = i
					break
				}
			}
		} else {
			// All remaining points coincide with a centroid.
			next = rng.Intn(m.N)
		}

		c := make([]float64, m.Dims)
		copy(c, m.Row(next))
		centroids = append(centroids, c)
	}

	return centroids
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func nearestCentroid(point []float64, centroids [][]float64, metric DistanceMetric) int {
	best := 0
	bestDist := math.Inf(1)
	for j, c := range centroids {
		if d := metric.Distance(point, c); d < bestDist {
			bestDist = d
			best = j
		}
	}
	return best
}

func farthestPoint(m Matrix, centroids [][]float64, labels []int, metric DistanceMetric) int {
	worst := 0
	worstDist := -1.0
	for i := 0; i < m.N; i++ {
		if d := metric.Distance(m.Row(i), centroids[labels[i]]); d > worstDist {
			worstDist = d
			worst = i
		}
	}
	return worst
}
