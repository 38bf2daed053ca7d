package rsec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduceNone(t *testing.T) {
	m := blobMatrix([][]float64{{0, 0, 0}}, 4, 0.1)
	out, err := ReduceNone(m, 2)
	require.NoError(t, err)
	assert.Equal(t, m, out)
}

func TestReduceVarKeepsHighVarianceFeatures(t *testing.T) {
	// Feature 0 constant, feature 1 high variance, feature 2 mild variance.
	m, err := NewMatrix([][]float64{
		{5, 0, 1},
		{5, 10, 1.2},
		{5, -10, 0.8},
		{5, 20, 1.1},
	})
	require.NoError(t, err)

	out, err := ReduceVar(m, 2)
	require.NoError(t, err)
	require.Equal(t, 2, out.Dims)

	// Highest-variance feature first: column 0 of the output is old feature 1.
	assert.Equal(t, []float64{0, 1}, out.Row(0))
	assert.Equal(t, []float64{10, 1.2}, out.Row(1))
}

func TestReduceVarPassthroughAndErrors(t *testing.T) {
	m := blobMatrix([][]float64{{0, 0}}, 3, 0.5)

	out, err := ReduceVar(m, 0)
	require.NoError(t, err)
	assert.Equal(t, m, out)

	out, err = ReduceVar(m, 5)
	require.NoError(t, err)
	assert.Equal(t, m, out, "dims beyond feature count keeps everything")

	_, err = ReduceVar(m, -1)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestReducePCAShapeAndSeparation(t *testing.T) {
	// Two groups separated along a diagonal direction; one principal
	// component captures the split.
	m := blobMatrix([][]float64{{0, 0, 0}, {50, 50, 50}}, 5, 0.3)

	out, err := ReducePCA(m, 1)
	require.NoError(t, err)
	require.Equal(t, 1, out.Dims)
	require.Equal(t, m.N, out.N)

	// Group means on the first component must be well separated relative to
	// within-group spread.
	var meanA, meanB float64
	for i := 0; i < 5; i++ {
		meanA += out.Row(i)[0] / 5
		meanB += out.Row(i + 5)[0] / 5
	}
	assert.Greater(t, math.Abs(meanA-meanB), 10.0)
}

func TestReducePCADimsValidation(t *testing.T) {
	m := blobMatrix([][]float64{{0, 0}}, 4, 0.2)

	out, err := ReducePCA(m, 0)
	require.NoError(t, err)
	assert.Equal(t, m, out)

	_, err = ReducePCA(m, 3)
	assert.ErrorIs(t, err, ErrInsufficientData)
}
