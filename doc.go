// Package rsec implements resampling-based sequential ensemble clustering:
// robust cluster discovery built from many clustering runs instead of one.
//
// The pipeline has four stages, each usable on its own or threaded through an
// [Experiment]:
//
//	e, _ := rsec.NewExperiment(rows)
//	e, _ = e.ClusterMany(ctx, manyCfg)        // one labeling per parameter combination
//	e, _ = e.Combine(combineCfg)              // consensus labeling across runs
//	e, _ = e.MakeDendrogram(dendCfg)          // hierarchy over consensus clusters
//	e, _ = e.MergeClusters(mergeCfg)          // collapse statistically similar clusters
//	labels := e.Primary()                     // final labels, -1 = unassigned
//
// The robustness comes from subsampled co-clustering: each candidate
// clustering is repeated on random subsamples, and the fraction of runs in
// which two samples land together becomes the dissimilarity the final
// clustering cuts. Sequential mode ([SequentialCluster]) extracts one cluster
// at a time, keeping only clusters whose composition recurs across a range of
// k values.
//
// Clustering algorithms, dimensionality reductions, and statistical tests are
// capabilities dispatched through a [Registry]; built-ins cover k-means,
// average-linkage cutting, PCA/variance reduction, and per-feature Welch
// tests, and callers can register their own.
package rsec
