package rsec

import (
	"math"
	"runtime"
	"sort"
)

// DendroNode is one node of the cluster hierarchy. Leaves carry the cluster
// id they represent; internal nodes carry the merge height of their two
// subtrees.
type DendroNode struct {
	Left, Right *DendroNode
	ClusterID   int // cluster id at leaves, -1 at internal nodes
	Height      float64
}

// IsLeaf reports whether the node is a leaf.
func (n *DendroNode) IsLeaf() bool { return n.Left == nil && n.Right == nil }

// LeafIDs returns the cluster ids under this node in ascending order.
func (n *DendroNode) LeafIDs() []int {
	var ids []int
	n.walkPost(func(x *DendroNode) {
		if x.IsLeaf() {
			ids = append(ids, x.ClusterID)
		}
	})
	sort.Ints(ids)
	return ids
}

func (n *DendroNode) walkPost(visit func(*DendroNode)) {
	if n.Left != nil {
		n.Left.walkPost(visit)
	}
	if n.Right != nil {
		n.Right.walkPost(visit)
	}
	visit(n)
}

// Dendrogram is a binary hierarchy over cluster ids, built from medoid
// distances in a reduced space. Internal node heights are nondecreasing from
// the leaves up.
type Dendrogram struct {
	Root *DendroNode
}

// NumLeaves returns the number of leaf clusters.
func (d *Dendrogram) NumLeaves() int { return len(d.Root.LeafIDs()) }

// Walk visits every node in post-order (children before parents).
func (d *Dendrogram) Walk(visit func(*DendroNode)) { d.Root.walkPost(visit) }

// DendrogramConfig controls hierarchy construction over consensus clusters.
type DendrogramConfig struct {
	// Reduce and Dims choose the space in which medoid distances are
	// computed. Defaults: "none", 0.
	Reduce string
	Dims   int

	// Metric measures distances between samples and medoids.
	// Default: EuclideanMetric.
	Metric DistanceMetric

	// Workers parallelizes the pairwise distance computations.
	// 0 means runtime.NumCPU().
	Workers int

	// Registry resolves the reducer name. Default: DefaultRegistry().
	Registry *Registry
}

func applyDendrogramDefaults(cfg *DendrogramConfig) {
	if cfg.Reduce == "" {
		cfg.Reduce = "none"
	}
	if cfg.Metric == nil {
		cfg.Metric = EuclideanMetric{}
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Registry == nil {
		cfg.Registry = DefaultRegistry()
	}
}

// MakeDendrogram hierarchizes the distinct non -1 clusters of a labeling: it
// projects the samples, takes each cluster's medoid in the reduced space, and
// agglomerates the medoids with average linkage. The leaf set is exactly the
// distinct non -1 labels.
func MakeDendrogram(m Matrix, labels []int, cfg DendrogramConfig) (*Dendrogram, error) {
	applyDendrogramDefaults(&cfg)
	if len(labels) != m.N {
		return nil, configErrorf("dendrogram: labeling length %d does not match %d samples", len(labels), m.N)
	}

	ids := distinctLabels(labels)
	if len(ids) == 0 {
		return nil, insufficientDataErrorf("dendrogram: labeling has no clusters")
	}

	projected, err := cfg.Registry.Project(m, cfg.Reduce, cfg.Dims)
	if err != nil {
		return nil, err
	}

	members := clusterMembers(labels)
	medoids := make([]int, len(ids))
	for p, id := range ids {
		medoids[p] = medoidIndex(projected, members[id], cfg.Metric)
	}

	if len(ids) == 1 {
		return &Dendrogram{Root: &DendroNode{ClusterID: ids[0]}}, nil
	}

	medoidMat := projected.Subset(medoids)
	dist := ComputePairwiseDistancesParallel(medoidMat, cfg.Metric, cfg.Workers)
	merges := Linkage(dist, len(ids))

	// Convert scipy rows into a node tree; row step creates node len(ids)+step.
	nodes := make([]*DendroNode, 2*len(ids)-1)
	for p, id := range ids {
		nodes[p] = &DendroNode{ClusterID: id}
	}
	for step, row := range merges {
		nodes[len(ids)+step] = &DendroNode{
			Left:      nodes[int(row[0])],
			Right:     nodes[int(row[1])],
			ClusterID: -1,
			Height:    row[2],
		}
	}

	return &Dendrogram{Root: nodes[len(nodes)-1]}, nil
}

// medoidIndex returns the member minimizing its summed distance to the other
// members, ties toward the lowest sample index.
func medoidIndex(m Matrix, members []int, metric DistanceMetric) int {
	best := members[0]
	bestSum := math.Inf(1)
	for _, i := range members {
		var sum float64
		for _, j := range members {
			if i != j {
				sum += metric.Distance(m.Row(i), m.Row(j))
			}
		}
		if sum < bestSum {
			bestSum = sum
			best = i
		}
	}
	return best
}
