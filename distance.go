package rsec

import "math"

// DistanceMetric measures dissimilarity between two feature vectors. Used for
// k-means assignment, medoid computation, and medoid-to-medoid distances when
// building the cluster dendrogram.
type DistanceMetric interface {
	Distance(a, b []float64) float64
}

// DistanceFunc adapts a plain function into a DistanceMetric.
type DistanceFunc func(a, b []float64) float64

func (f DistanceFunc) Distance(a, b []float64) float64 { return f(a, b) }

// EuclideanMetric computes the Euclidean (L2) distance.
type EuclideanMetric struct{}

func (EuclideanMetric) Distance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// ManhattanMetric computes the Manhattan (L1 / city-block) distance.
type ManhattanMetric struct{}

func (ManhattanMetric) Distance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += math.Abs(a[i] - b[i])
	}
	return sum
}

// ComputePairwiseDistances computes the full n×n distance matrix over the rows
// of m. Returns a flat []float64 of length n×n in row-major order.
func ComputePairwiseDistances(m Matrix, metric DistanceMetric) []float64 {
	n := m.N
	result := make([]float64, n*n)

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := metric.Distance(m.Row(i), m.Row(j))
			result[i*n+j] = d
			result[j*n+i] = d
		}
	}

	return result
}
