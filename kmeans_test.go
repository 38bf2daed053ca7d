package rsec

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKMeansRecoverySeparatedGroups(t *testing.T) {
	m := blobMatrix([][]float64{{0, 0}, {100, 100}}, 5, 0.1)

	labels, err := KMeans(m, 2, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Len(t, labels, 10)

	assert.True(t, sameGroup(labels, indexRange(0, 5)), "first blob split: %v", labels)
	assert.True(t, sameGroup(labels, indexRange(5, 10)), "second blob split: %v", labels)
	assert.NotEqual(t, labels[0], labels[5], "blobs merged: %v", labels)
}

func TestKMeansDeterministicUnderSeed(t *testing.T) {
	m := blobMatrix([][]float64{{0, 0}, {10, 0}, {0, 10}}, 6, 0.2)

	a, err := KMeans(m, 3, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	b, err := KMeans(m, 3, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestKMeansParameterErrors(t *testing.T) {
	m := blobMatrix([][]float64{{0, 0}}, 3, 0.1)

	_, err := KMeans(m, 0, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = KMeans(m, 4, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestKMeansKEqualsN(t *testing.T) {
	m := blobMatrix([][]float64{{0, 0}, {50, 0}, {0, 50}}, 1, 0)

	labels, err := KMeans(m, 3, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	seen := map[int]bool{}
	for _, l := range labels {
		assert.GreaterOrEqual(t, l, 0)
		assert.Less(t, l, 3)
		seen[l] = true
	}
	assert.Len(t, seen, 3, "each point should get its own cluster")
}

func TestKMeansLabelsWithinRange(t *testing.T) {
	m := blobMatrix([][]float64{{0, 0}, {20, 20}}, 8, 0.4)
	labels, err := KMeans(m, 4, rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	for i, l := range labels {
		assert.GreaterOrEqual(t, l, 0, "sample %d", i)
		assert.Less(t, l, 4, "sample %d", i)
	}
}
