package rsec

// Matrix is a sample-by-feature matrix in flat row-major form: the feature
// vector of sample i is Data[i*Dims : (i+1)*Dims]. Matrices are treated as
// immutable once built; pipeline stages derive new matrices rather than
// mutating their input.
type Matrix struct {
	Data []float64
	N    int
	Dims int
}

// NewMatrix builds a Matrix from per-sample rows. All rows must have the same
// length. The data is copied.
func NewMatrix(rows [][]float64) (Matrix, error) {
	n := len(rows)
	if n == 0 {
		return Matrix{}, insufficientDataErrorf("empty sample matrix")
	}
	dims := len(rows[0])
	if dims == 0 {
		return Matrix{}, configErrorf("samples must have at least one feature")
	}
	flat := make([]float64, n*dims)
	for i, row := range rows {
		if len(row) != dims {
			return Matrix{}, configErrorf("row %d has %d features, want %d", i, len(row), dims)
		}
		copy(flat[i*dims:], row)
	}
	return Matrix{Data: flat, N: n, Dims: dims}, nil
}

// Row returns the feature vector of sample i as a view into the matrix.
// Callers must not modify it.
func (m Matrix) Row(i int) []float64 {
	return m.Data[i*m.Dims : (i+1)*m.Dims]
}

// Subset copies the given sample rows, in order, into a new Matrix.
func (m Matrix) Subset(idx []int) Matrix {
	flat := make([]float64, len(idx)*m.Dims)
	for out, i := range idx {
		copy(flat[out*m.Dims:(out+1)*m.Dims], m.Row(i))
	}
	return Matrix{Data: flat, N: len(idx), Dims: m.Dims}
}

// CoClustering accumulates pairwise co-occurrence evidence over repeated
// subsampled clustering runs. For each unordered pair (i,j): den counts the
// runs where both samples were drawn, num counts the runs where they also
// shared a cluster. The observed proportion num/den is computed at read time.
//
// A pair never drawn together has den == 0 and carries no evidence at all:
// absence, not dissimilarity. How such pairs enter the final dissimilarity is
// a ZeroDenominatorPolicy decision.
type CoClustering struct {
	num []float64
	den []float64
	n   int
}

func newCoClustering(n int) *CoClustering {
	return &CoClustering{
		num: make([]float64, n*n),
		den: make([]float64, n*n),
		n:   n,
	}
}

// N returns the number of samples the matrix covers.
func (c *CoClustering) N() int { return c.n }

// observe records one subsample run: indices holds the drawn sample indices
// and labels their per-subsample cluster labels, aligned by position.
func (c *CoClustering) observe(indices []int, labels []int) {
	for a := 0; a < len(indices); a++ {
		for b := a + 1; b < len(indices); b++ {
			i, j := indices[a], indices[b]
			c.den[i*c.n+j]++
			c.den[j*c.n+i]++
			if labels[a] == labels[b] && labels[a] >= 0 {
				c.num[i*c.n+j]++
				c.num[j*c.n+i]++
			}
		}
	}
}

// merge sums another partial accumulation into c. Used to combine per-worker
// partial matrices after parallel subsampling.
func (c *CoClustering) merge(other *CoClustering) {
	for i := range c.num {
		c.num[i] += other.num[i]
		c.den[i] += other.den[i]
	}
}

// At returns the co-clustering proportion for samples i and j and whether the
// pair was ever drawn together. The diagonal reports (1, true).
func (c *CoClustering) At(i, j int) (float64, bool) {
	if i == j {
		return 1, true
	}
	d := c.den[i*c.n+j]
	if d == 0 {
		return 0, false
	}
	return c.num[i*c.n+j] / d, true
}

// ZeroDenominatorPolicy decides how pairs that were never co-subsampled enter
// the final dissimilarity matrix.
type ZeroDenominatorPolicy int

const (
	// ZeroDenomMaxDissimilarity treats never-co-drawn pairs as maximally
	// dissimilar (dissimilarity 1).
	ZeroDenomMaxDissimilarity ZeroDenominatorPolicy = iota

	// ZeroDenomError refuses to fabricate a value and fails with
	// ErrDegenerateCoClustering if any pair has no evidence.
	ZeroDenomError
)

// Dissimilarity converts the accumulated proportions into a flat n×n
// dissimilarity matrix (1 - proportion) with zeros on the diagonal.
// Pairs with no evidence are resolved per policy.
func (c *CoClustering) Dissimilarity(policy ZeroDenominatorPolicy) ([]float64, error) {
	out := make([]float64, c.n*c.n)
	uncovered := 0
	for i := 0; i < c.n; i++ {
		for j := i + 1; j < c.n; j++ {
			p, ok := c.At(i, j)
			var d float64
			switch {
			case ok:
				d = 1 - p
			case policy == ZeroDenomMaxDissimilarity:
				d = 1
				uncovered++
			default:
				return nil, degenerateErrorf(
					"insufficient subsample coverage: samples %d and %d never drawn together", i, j)
			}
			out[i*c.n+j] = d
			out[j*c.n+i] = d
		}
	}
	if uncovered > 0 {
		logger.Warn().
			Int("pairs", uncovered).
			Msg("co-clustering pairs never drawn together, treated as maximally dissimilar")
	}
	return out, nil
}
