package rsec

import "sync"

// ComputePairwiseDistancesParallel computes the full n×n distance matrix over
// the rows of m using multiple goroutines. numWorkers controls the degree of
// parallelism; if <= 1, it falls back to single-threaded
// ComputePairwiseDistances.
//
// The result is bitwise identical to ComputePairwiseDistances: a flat
// []float64 of length n×n in row-major order.
func ComputePairwiseDistancesParallel(m Matrix, metric DistanceMetric, numWorkers int) []float64 {
	n := m.N
	if numWorkers <= 1 || n <= 1 {
		return ComputePairwiseDistances(m, metric)
	}

	result := make([]float64, n*n)

	// Split rows across workers. Each worker handles a contiguous range of
	// "source" rows and computes dist(i,j) for all j > i in that range.
	// Since row ranges don't overlap, no synchronization is needed for writes.
	var wg sync.WaitGroup

	rowsPerWorker := (n + numWorkers - 1) / numWorkers

	for w := 0; w < numWorkers; w++ {
		startRow := w * rowsPerWorker
		endRow := startRow + rowsPerWorker
		if endRow > n {
			endRow = n
		}
		if startRow >= n {
			break
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				for j := i + 1; j < n; j++ {
					d := metric.Distance(m.Row(i), m.Row(j))
					result[i*n+j] = d
					result[j*n+i] = d
				}
			}
		}(startRow, endRow)
	}

	wg.Wait()
	return result
}

// workerRanges splits the half-open interval [0, n) into at most numWorkers
// contiguous [start, end) chunks. Used wherever independent units of work are
// fanned out across goroutines (subsample iterations, grid combinations).
func workerRanges(n, numWorkers int) [][2]int {
	if numWorkers < 1 {
		numWorkers = 1
	}
	perWorker := (n + numWorkers - 1) / numWorkers
	var ranges [][2]int
	for start := 0; start < n; start += perWorker {
		end := start + perWorker
		if end > n {
			end = n
		}
		ranges = append(ranges, [2]int{start, end})
	}
	return ranges
}
