package rsec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubsampleCoClusteringTwoGroups(t *testing.T) {
	// Two well-separated groups of 5: within-group co-clustering should be
	// near 1 and cross-group near 0, and the final cut should recover the
	// groups exactly.
	m := blobMatrix([][]float64{{0, 0}, {100, 100}}, 5, 0.1)

	cfg := DefaultSubsampleConfig()
	cfg.B = 50
	cfg.Fraction = 0.7
	cfg.K = 2
	cfg.Alpha = 0.3
	cfg.Seed = 11

	labels, co, err := SubsampleCluster(context.Background(), m, cfg)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		for j := i + 1; j < 10; j++ {
			p, ok := co.At(i, j)
			if !ok {
				continue
			}
			if (i < 5) == (j < 5) {
				assert.Greater(t, p, 0.9, "within-group pair (%d,%d)", i, j)
			} else {
				assert.Less(t, p, 0.1, "cross-group pair (%d,%d)", i, j)
			}
		}
	}

	assert.True(t, sameGroup(labels, indexRange(0, 5)), "labels: %v", labels)
	assert.True(t, sameGroup(labels, indexRange(5, 10)), "labels: %v", labels)
	assert.NotEqual(t, labels[0], labels[5])
}

func TestSubsampleCoClusteringSymmetricUnitInterval(t *testing.T) {
	m := blobMatrix([][]float64{{0, 0}, {8, 0}, {0, 8}}, 4, 0.3)

	cfg := DefaultSubsampleConfig()
	cfg.B = 30
	cfg.K = 3
	cfg.Seed = 5

	co, err := SubsampleCoClustering(context.Background(), m, cfg)
	require.NoError(t, err)

	for i := 0; i < m.N; i++ {
		for j := 0; j < m.N; j++ {
			p, ok := co.At(i, j)
			q, ok2 := co.At(j, i)
			assert.Equal(t, ok, ok2)
			assert.Equal(t, p, q, "asymmetry at (%d,%d)", i, j)
			if ok {
				assert.GreaterOrEqual(t, p, 0.0)
				assert.LessOrEqual(t, p, 1.0)
			}
		}
	}
}

func TestSubsampleDeterministicAcrossWorkerCounts(t *testing.T) {
	m := blobMatrix([][]float64{{0, 0}, {30, 30}}, 6, 0.2)

	run := func(workers int) []int {
		cfg := DefaultSubsampleConfig()
		cfg.B = 25
		cfg.K = 2
		cfg.Seed = 99
		cfg.Workers = workers
		labels, _, err := SubsampleCluster(context.Background(), m, cfg)
		require.NoError(t, err)
		return labels
	}

	sequential := run(1)
	assert.Equal(t, sequential, run(4))
	assert.Equal(t, sequential, run(13))
}

func TestSubsampleZeroIterations(t *testing.T) {
	m := blobMatrix([][]float64{{0, 0}}, 4, 0.1)
	cfg := DefaultSubsampleConfig()
	cfg.B = 0
	cfg.K = 2

	_, err := SubsampleCoClustering(context.Background(), m, cfg)
	assert.ErrorIs(t, err, ErrDegenerateCoClustering, "B=0 must fail loudly, not return an empty matrix")
}

func TestSubsampleConfigValidation(t *testing.T) {
	m := blobMatrix([][]float64{{0, 0}}, 10, 0.1)

	tests := []struct {
		name   string
		mutate func(*SubsampleConfig)
		want   error
	}{
		{"fraction zero", func(c *SubsampleConfig) { c.Fraction = 0 }, ErrConfiguration},
		{"fraction above one", func(c *SubsampleConfig) { c.Fraction = 1.5 }, ErrConfiguration},
		{"k zero", func(c *SubsampleConfig) { c.K = 0 }, ErrConfiguration},
		{"negative min size", func(c *SubsampleConfig) { c.MinSize = -1 }, ErrConfiguration},
		{"subsample smaller than k", func(c *SubsampleConfig) { c.K = 9; c.Fraction = 0.5 }, ErrInsufficientData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultSubsampleConfig()
			cfg.K = 2
			tt.mutate(&cfg)
			_, err := SubsampleCoClustering(context.Background(), m, cfg)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSubsampleUnknownFunctions(t *testing.T) {
	m := blobMatrix([][]float64{{0, 0}}, 6, 0.1)

	cfg := DefaultSubsampleConfig()
	cfg.K = 2
	cfg.ClusterFunction = "mystery"
	_, err := SubsampleCoClustering(context.Background(), m, cfg)
	assert.ErrorIs(t, err, ErrUnknownClusterFunction)

	cfg = DefaultSubsampleConfig()
	cfg.K = 2
	cfg.FinalFunction = "mystery"
	_, _, err = SubsampleCluster(context.Background(), m, cfg)
	assert.ErrorIs(t, err, ErrUnknownClusterFunction)
}

func TestSubsampleKindMismatch(t *testing.T) {
	m := blobMatrix([][]float64{{0, 0}}, 6, 0.1)

	cfg := DefaultSubsampleConfig()
	cfg.K = 2
	cfg.ClusterFunction = "hierarchical01"
	_, err := SubsampleCoClustering(context.Background(), m, cfg)
	assert.ErrorIs(t, err, ErrConfiguration)

	cfg = DefaultSubsampleConfig()
	cfg.K = 2
	cfg.FinalFunction = "kmeans"
	_, _, err = SubsampleCluster(context.Background(), m, cfg)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestSubsampleMinSizeFilter(t *testing.T) {
	// 2 groups of 6 plus one far outlier: at k=3 the outlier isolates, and
	// MinSize=2 relabels it to -1.
	rows := blobRows([][]float64{{0, 0}, {40, 40}}, 6, 0.2)
	rows = append(rows, []float64{500, -500})
	m, err := NewMatrix(rows)
	require.NoError(t, err)

	cfg := DefaultSubsampleConfig()
	cfg.B = 40
	cfg.K = 3
	cfg.Alpha = 0.3
	cfg.MinSize = 2
	cfg.Seed = 21

	labels, _, err := SubsampleCluster(context.Background(), m, cfg)
	require.NoError(t, err)
	assert.Equal(t, -1, labels[12], "outlier singleton must be filtered to -1: %v", labels)
	assert.True(t, sameGroup(labels, indexRange(0, 6)), "labels: %v", labels)
	assert.True(t, sameGroup(labels, indexRange(6, 12)), "labels: %v", labels)
}

func TestSubsampleCancellation(t *testing.T) {
	m := blobMatrix([][]float64{{0, 0}, {10, 10}}, 10, 0.1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := DefaultSubsampleConfig()
	cfg.K = 2
	_, err := SubsampleCoClustering(ctx, m, cfg)
	assert.ErrorIs(t, err, context.Canceled)
}
