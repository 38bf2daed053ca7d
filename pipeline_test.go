package rsec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipelineRows builds three well-separated blobs of 6 samples each.
func pipelineRows() [][]float64 {
	return blobRows([][]float64{{0, 0}, {40, 0}, {0, 40}}, 6, 0.3)
}

func TestExperimentFullPipeline(t *testing.T) {
	exp, err := NewExperiment(pipelineRows())
	require.NoError(t, err)
	assert.Nil(t, exp.Primary())

	ctx := context.Background()

	template := DefaultSubsampleConfig()
	template.B = 30

	exp, err = exp.ClusterMany(ctx, ManyConfig{
		Functions:         []string{"kmeans"},
		Ks:                []int{2, 3, 4},
		Subsample:         true,
		SubsampleTemplate: template,
		Seed:              42,
	})
	require.NoError(t, err)
	require.NotNil(t, exp.Runs())
	assert.Equal(t, 3, exp.Runs().R())

	exp, err = exp.Combine(CombineConfig{Proportion: 0.5, MinSize: 3})
	require.NoError(t, err)
	require.NotNil(t, exp.Consensus())

	// Consensus across k=2..4 recovers the three blobs.
	labels := exp.Primary()
	require.Len(t, labels, 18)
	for g := 0; g < 3; g++ {
		assert.True(t, sameGroup(labels, indexRange(g*6, g*6+6)), "blob %d: %v", g, labels)
	}
	assert.NotEqual(t, labels[0], labels[6])
	assert.NotEqual(t, labels[6], labels[12])

	exp, err = exp.MakeDendrogram(DendrogramConfig{})
	require.NoError(t, err)
	require.NotNil(t, exp.Dendrogram())
	assert.Equal(t, 3, exp.Dendrogram().NumLeaves())

	exp, err = exp.MergeClusters(MergeConfig{})
	require.NoError(t, err)
	require.NotNil(t, exp.MergeInfo())

	// The blobs are genuinely different, so merging keeps all three.
	merged := exp.Primary()
	assert.NotEqual(t, merged[0], merged[6])
	assert.NotEqual(t, merged[6], merged[12])

	history := exp.History()
	require.Len(t, history, 3)
	assert.Equal(t, "clusterMany", history[0].Name)
	assert.Equal(t, "combineMany", history[1].Name)
	assert.Equal(t, "mergeClusters", history[2].Name)
	for v, entry := range history {
		assert.Equal(t, v, entry.Version)
	}
}

func TestExperimentStagesDoNotMutateReceiver(t *testing.T) {
	exp, err := NewExperiment(pipelineRows())
	require.NoError(t, err)

	cfg := DefaultSubsampleConfig()
	cfg.B = 30
	cfg.K = 3
	cfg.Seed = 7

	after, err := exp.Subsample(context.Background(), cfg)
	require.NoError(t, err)

	assert.Nil(t, exp.Primary(), "earlier state stays valid")
	assert.Nil(t, exp.CoClusteringMatrix())
	assert.Empty(t, exp.History())

	require.NotNil(t, after.CoClusteringMatrix())
	require.Len(t, after.History(), 1)
	assert.Equal(t, "subsample", after.History()[0].Name)
	assert.Equal(t, after.History()[0].Labels, after.Primary())
}

func TestExperimentPreviewMergeMatchesMergeClusters(t *testing.T) {
	exp, err := NewExperiment(pipelineRows())
	require.NoError(t, err)

	ctx := context.Background()
	exp, err = exp.ClusterMany(ctx, ManyConfig{Functions: []string{"kmeans"}, Ks: []int{3}, Seed: 5})
	require.NoError(t, err)
	exp, err = exp.Combine(CombineConfig{Proportion: 0.5, MinSize: 3})
	require.NoError(t, err)
	exp, err = exp.MakeDendrogram(DendrogramConfig{})
	require.NoError(t, err)

	cfg := MergeConfig{Method: MergeMethodMinP, Cutoff: 0.1}

	preview, err := exp.PreviewMerge(cfg)
	require.NoError(t, err)
	assert.Nil(t, exp.MergeInfo(), "preview layers nothing")
	assert.Len(t, exp.History(), 2)

	layered, err := exp.MergeClusters(cfg)
	require.NoError(t, err)

	assert.Equal(t, preview.Labels, layered.MergeInfo().Labels)
	assert.Equal(t, preview.ClusterMap, layered.MergeInfo().ClusterMap)
	assert.Equal(t, preview.Labels, layered.Primary())
}

func TestExperimentStageOrdering(t *testing.T) {
	exp, err := NewExperiment(pipelineRows())
	require.NoError(t, err)

	_, err = exp.Combine(DefaultCombineConfig())
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = exp.MakeDendrogram(DendrogramConfig{})
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = exp.MergeClusters(MergeConfig{})
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = exp.PreviewMerge(MergeConfig{})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestExperimentWithRegistry(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(ClusterFunction{Name: "kmeans", Kind: KindPartition, Partition: KMeans}))

	exp, err := NewExperiment(pipelineRows())
	require.NoError(t, err)
	exp = exp.WithRegistry(reg)

	// The custom registry has no "pca" reducer, so a grid needing it fails.
	_, err = exp.ClusterMany(context.Background(), ManyConfig{
		Reduce:    []string{"pca"},
		Dims:      []int{1},
		Functions: []string{"kmeans"},
		Ks:        []int{2},
	})
	assert.Error(t, err)
}

func TestNewExperimentRejectsBadRows(t *testing.T) {
	_, err := NewExperiment(nil)
	assert.Error(t, err)

	_, err = NewExperiment([][]float64{{1, 2}, {1}})
	assert.Error(t, err)
}
