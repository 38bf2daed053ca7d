package rsec

import "context"

// LabelingVersion is one entry of an Experiment's labeling history.
type LabelingVersion struct {
	Version int
	Name    string // producing stage: "subsample", "clusterMany", "combineMany", "mergeClusters"
	Labels  []int
}

// Experiment threads a sample matrix through the pipeline stages while
// keeping an explicit, versioned history of every labeling produced. Stage
// methods never mutate the receiver: each returns a new Experiment layered
// on top of the previous one, so intermediate states stay valid and
// comparable. The most recent labeling is the primary one.
type Experiment struct {
	data     Matrix
	registry *Registry

	runs         *ClusterRuns
	coClustering *CoClustering
	consensus    *ConsensusResult
	dendrogram   *Dendrogram
	dendroLabels []int // labeling the dendrogram was built from
	mergeInfo    *MergeResult

	history []LabelingVersion
}

// NewExperiment starts an Experiment over per-sample feature rows, with the
// default capability registry.
func NewExperiment(rows [][]float64) (*Experiment, error) {
	m, err := NewMatrix(rows)
	if err != nil {
		return nil, err
	}
	return &Experiment{data: m, registry: DefaultRegistry()}, nil
}

// WithRegistry returns a copy of the Experiment dispatching through r.
func (e *Experiment) WithRegistry(r *Registry) *Experiment {
	c := e.clone()
	c.registry = r
	return c
}

// Data returns the sample matrix.
func (e *Experiment) Data() Matrix { return e.data }

// Runs returns the clustering matrix from the latest ClusterMany, or nil.
func (e *Experiment) Runs() *ClusterRuns { return e.runs }

// CoClusteringMatrix returns the co-clustering matrix from the latest
// Subsample call, or nil.
func (e *Experiment) CoClusteringMatrix() *CoClustering { return e.coClustering }

// Consensus returns the latest consensus result, or nil.
func (e *Experiment) Consensus() *ConsensusResult { return e.consensus }

// Dendrogram returns the latest cluster hierarchy, or nil.
func (e *Experiment) Dendrogram() *Dendrogram { return e.dendrogram }

// MergeInfo returns the latest merge decisions, or nil.
func (e *Experiment) MergeInfo() *MergeResult { return e.mergeInfo }

// History returns every labeling produced so far, oldest first.
func (e *Experiment) History() []LabelingVersion { return e.history }

// Primary returns the most recently produced labeling, the authoritative one
// for downstream consumers, or nil before any stage has run.
func (e *Experiment) Primary() []int {
	if len(e.history) == 0 {
		return nil
	}
	return e.history[len(e.history)-1].Labels
}

func (e *Experiment) clone() *Experiment {
	c := *e
	c.history = make([]LabelingVersion, len(e.history))
	copy(c.history, e.history)
	return &c
}

func (e *Experiment) record(name string, labels []int) {
	e.history = append(e.history, LabelingVersion{
		Version: len(e.history),
		Name:    name,
		Labels:  labels,
	})
}

// Subsample runs one subsampled co-clustering over the data and layers the
// resulting labeling and co-clustering matrix.
func (e *Experiment) Subsample(ctx context.Context, cfg SubsampleConfig) (*Experiment, error) {
	if cfg.Registry == nil {
		cfg.Registry = e.registry
	}
	labels, co, err := SubsampleCluster(ctx, e.data, cfg)
	if err != nil {
		return nil, err
	}
	c := e.clone()
	c.coClustering = co
	c.record("subsample", labels)
	return c, nil
}

// ClusterMany runs the parameter grid and layers the clustering matrix. The
// first successful column becomes the primary labeling until a consensus is
// combined.
func (e *Experiment) ClusterMany(ctx context.Context, cfg ManyConfig) (*Experiment, error) {
	if cfg.Registry == nil {
		cfg.Registry = e.registry
	}
	runs, err := ClusterMany(ctx, e.data, cfg)
	if err != nil {
		return nil, err
	}
	c := e.clone()
	c.runs = runs
	for r := 0; r < runs.R(); r++ {
		if runs.Columns[r].Err == nil {
			c.record("clusterMany", runs.Column(r))
			break
		}
	}
	return c, nil
}

// Combine collapses the clustering matrix into a consensus labeling and
// layers it as primary.
func (e *Experiment) Combine(cfg CombineConfig) (*Experiment, error) {
	if e.runs == nil {
		return nil, configErrorf("experiment: Combine requires ClusterMany first")
	}
	consensus, err := CombineMany(e.runs, cfg)
	if err != nil {
		return nil, err
	}
	c := e.clone()
	c.consensus = consensus
	c.record("combineMany", consensus.Labels)
	return c, nil
}

// MakeDendrogram hierarchizes the primary labeling's clusters.
func (e *Experiment) MakeDendrogram(cfg DendrogramConfig) (*Experiment, error) {
	primary := e.Primary()
	if primary == nil {
		return nil, configErrorf("experiment: MakeDendrogram requires a clustering first")
	}
	if cfg.Registry == nil {
		cfg.Registry = e.registry
	}
	dend, err := MakeDendrogram(e.data, primary, cfg)
	if err != nil {
		return nil, err
	}
	c := e.clone()
	c.dendrogram = dend
	c.dendroLabels = primary
	return c, nil
}

// MergeClusters coalesces statistically indistinguishable clusters along the
// dendrogram and layers the merged labeling as primary.
func (e *Experiment) MergeClusters(cfg MergeConfig) (*Experiment, error) {
	result, err := e.PreviewMerge(cfg)
	if err != nil {
		return nil, err
	}
	c := e.clone()
	c.mergeInfo = result
	c.record("mergeClusters", result.Labels)
	return c, nil
}

// PreviewMerge runs the full merge decision process without layering
// anything: the returned result is bit-identical to what MergeClusters would
// record, which makes it the interactive cutoff-tuning surface.
func (e *Experiment) PreviewMerge(cfg MergeConfig) (*MergeResult, error) {
	if e.dendrogram == nil {
		return nil, configErrorf("experiment: merging requires MakeDendrogram first")
	}
	if cfg.Registry == nil {
		cfg.Registry = e.registry
	}
	return MergeClusters(e.dendrogram, e.data, e.dendroLabels, cfg)
}
