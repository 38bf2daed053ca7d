package rsec

import (
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ReduceNone is the identity reducer: the matrix is returned unchanged and
// dims is ignored.
func ReduceNone(m Matrix, dims int) (Matrix, error) {
	return m, nil
}

// ReduceVar keeps the dims highest-variance features. Features are ranked by
// sample variance in descending order, ties broken by feature index. dims ==
// 0 keeps everything.
func ReduceVar(m Matrix, dims int) (Matrix, error) {
	if dims == 0 || dims >= m.Dims {
		return m, nil
	}
	if dims < 0 {
		return Matrix{}, configErrorf("var reduce: dims must be >= 0, got %d", dims)
	}

	column := make([]float64, m.N)
	variances := make([]float64, m.Dims)
	for j := 0; j < m.Dims; j++ {
		for i := 0; i < m.N; i++ {
			column[i] = m.Data[i*m.Dims+j]
		}
		variances[j] = stat.Variance(column, nil)
	}

	order := make([]int, m.Dims)
	for j := range order {
		order[j] = j
	}
	sort.SliceStable(order, func(a, b int) bool {
		return variances[order[a]] > variances[order[b]]
	})
	keep := order[:dims]

	flat := make([]float64, m.N*dims)
	for i := 0; i < m.N; i++ {
		row := m.Row(i)
		for out, j := range keep {
			flat[i*dims+out] = row[j]
		}
	}
	return Matrix{Data: flat, N: m.N, Dims: dims}, nil
}

// ReducePCA projects samples onto their top dims principal components.
// dims == 0 keeps the matrix unchanged. dims must not exceed min(N, Dims).
func ReducePCA(m Matrix, dims int) (Matrix, error) {
	if dims == 0 {
		return m, nil
	}
	maxDims := m.Dims
	if m.N < maxDims {
		maxDims = m.N
	}
	if dims < 0 || dims > maxDims {
		return Matrix{}, insufficientDataErrorf(
			"pca reduce: dims=%d outside [1, min(n=%d, features=%d)]", dims, m.N, m.Dims)
	}

	dense := mat.NewDense(m.N, m.Dims, m.Data)

	var pc stat.PC
	if ok := pc.PrincipalComponents(dense, nil); !ok {
		return Matrix{}, insufficientDataErrorf("pca reduce: decomposition failed")
	}
	var vectors mat.Dense
	pc.VectorsTo(&vectors)

	// Center, then project onto the leading components.
	means := make([]float64, m.Dims)
	for j := 0; j < m.Dims; j++ {
		col := make([]float64, m.N)
		mat.Col(col, j, dense)
		means[j] = stat.Mean(col, nil)
	}
	centered := mat.NewDense(m.N, m.Dims, nil)
	for i := 0; i < m.N; i++ {
		for j := 0; j < m.Dims; j++ {
			centered.Set(i, j, dense.At(i, j)-means[j])
		}
	}

	var projected mat.Dense
	projected.Mul(centered, vectors.Slice(0, m.Dims, 0, dims))

	flat := make([]float64, m.N*dims)
	for i := 0; i < m.N; i++ {
		for j := 0; j < dims; j++ {
			flat[i*dims+j] = projected.At(i, j)
		}
	}
	return Matrix{Data: flat, N: m.N, Dims: dims}, nil
}
