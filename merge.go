package rsec

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
)

// MergeMethod selects how a StatTestResult is held against the cutoff.
type MergeMethod string

const (
	// MergeMethodAdjP merges two groups when the estimated proportion of
	// significant features is at most the cutoff (e.g. 0.05: fewer than 5%
	// of features separate the groups).
	MergeMethodAdjP MergeMethod = "adjP"

	// MergeMethodMinP merges two groups when the smallest adjusted p-value
	// exceeds the cutoff: not even the strongest feature shows evidence of a
	// difference.
	MergeMethodMinP MergeMethod = "minP"
)

// MergeConfig controls hierarchy-driven cluster merging.
type MergeConfig struct {
	// Method interprets the test result. Default: MergeMethodAdjP.
	Method MergeMethod

	// Cutoff is the merge threshold: a proportion of significant features
	// for adjP, a significance level for minP. Must be in (0,1).
	// Default: 0.05.
	Cutoff float64

	// TestName is the statistical comparison capability, resolved in
	// Registry. Default: "welch".
	TestName string

	// Registry resolves TestName. Default: DefaultRegistry().
	Registry *Registry
}

func applyMergeDefaults(cfg *MergeConfig) {
	if cfg.Method == "" {
		cfg.Method = MergeMethodAdjP
	}
	if cfg.Cutoff == 0 {
		cfg.Cutoff = 0.05
	}
	if cfg.TestName == "" {
		cfg.TestName = "welch"
	}
	if cfg.Registry == nil {
		cfg.Registry = DefaultRegistry()
	}
}

// NodeDecision is the outcome at one internal dendrogram node. Tested is
// false when a descendant's NO_MERGE already separated the node's sides, so
// no comparison across that split is allowed.
type NodeDecision struct {
	Node   *DendroNode
	Tested bool
	Merge  bool
	Result StatTestResult
	Err    error // per-node test failure (matches ErrMergeTest); forces NO_MERGE
}

// MergeResult is the outcome of a full merge pass.
type MergeResult struct {
	// Labels is the final labeling: every consensus cluster id mapped to its
	// (possibly coalesced) final id, -1 passed through.
	Labels []int

	// Decisions lists every internal node in post-order.
	Decisions []NodeDecision

	// ClusterMap maps each original cluster id to its final id.
	ClusterMap map[int]int
}

// MergeClusters walks the dendrogram bottom-up and coalesces statistically
// indistinguishable sibling groups. At each internal node whose children are
// themselves fully merged, the samples under the left subtree are compared
// against those under the right with the configured test; insufficient
// evidence of difference merges the node. A test failure is recorded on the
// node, logged, and treated as NO_MERGE.
//
// The function is side-effect free: it never mutates the dendrogram, the
// labeling, or any registry state, so it serves directly as a preview for
// cutoff tuning. m must be the full-dimension matrix, not the reduced space
// the dendrogram was built in.
func MergeClusters(dend *Dendrogram, m Matrix, labels []int, cfg MergeConfig) (*MergeResult, error) {
	applyMergeDefaults(&cfg)
	if cfg.Cutoff <= 0 || cfg.Cutoff >= 1 {
		return nil, configErrorf("merge: cutoff must be in (0,1), got %v", cfg.Cutoff)
	}
	if cfg.Method != MergeMethodAdjP && cfg.Method != MergeMethodMinP {
		return nil, configErrorf("merge: unknown method %q", cfg.Method)
	}
	if dend == nil || dend.Root == nil {
		return nil, configErrorf("merge: nil dendrogram")
	}
	if len(labels) != m.N {
		return nil, configErrorf("merge: labeling length %d does not match %d samples", len(labels), m.N)
	}
	test, err := cfg.Registry.StatTest(cfg.TestName)
	if err != nil {
		return nil, err
	}

	// The leaf set must partition exactly the non -1 labels being merged.
	members := clusterMembers(labels)
	leaves := dend.Root.LeafIDs()
	if len(leaves) != len(members) {
		return nil, configErrorf("merge: dendrogram has %d leaves, labeling has %d clusters", len(leaves), len(members))
	}
	for _, id := range leaves {
		if len(members[id]) == 0 {
			return nil, configErrorf("merge: dendrogram leaf %d has no samples in the labeling", id)
		}
	}

	e := &mergeEval{
		cfg:       cfg,
		m:         m,
		members:   members,
		test:      test,
		decisions: make(map[*DendroNode]*NodeDecision),
		merged:    make(map[*DendroNode]bool),
	}
	e.eval(dend.Root)

	// Final groups: maximal fully-merged subtrees, left to right.
	var groups [][]int
	var collect func(n *DendroNode)
	collect = func(n *DendroNode) {
		if e.merged[n] {
			groups = append(groups, n.LeafIDs())
			return
		}
		collect(n.Left)
		collect(n.Right)
	}
	collect(dend.Root)

	clusterMap := make(map[int]int)
	for finalID, ids := range groups {
		for _, id := range ids {
			clusterMap[id] = finalID
		}
	}

	final := make([]int, len(labels))
	for i, l := range labels {
		if l < 0 {
			final[i] = -1
		} else {
			final[i] = clusterMap[l]
		}
	}

	var decisions []NodeDecision
	dend.Walk(func(n *DendroNode) {
		if d, ok := e.decisions[n]; ok {
			decisions = append(decisions, *d)
		}
	})

	return &MergeResult{Labels: final, Decisions: decisions, ClusterMap: clusterMap}, nil
}

// mergeEval carries state for one bottom-up pass. Sibling subtrees are
// evaluated concurrently; a parent blocks on both children before deciding.
type mergeEval struct {
	cfg     MergeConfig
	m       Matrix
	members map[int][]int
	test    StatTestFunc

	mu        sync.Mutex
	decisions map[*DendroNode]*NodeDecision
	merged    map[*DendroNode]bool
}

// eval decides the subtree rooted at n and reports whether it coalesced into
// a single group.
func (e *mergeEval) eval(n *DendroNode) bool {
	if n.IsLeaf() {
		e.mu.Lock()
		e.merged[n] = true
		e.mu.Unlock()
		return true
	}

	var leftMerged, rightMerged bool
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		leftMerged = e.eval(n.Left)
	}()
	go func() {
		defer wg.Done()
		rightMerged = e.eval(n.Right)
	}()
	wg.Wait()

	dec := &NodeDecision{Node: n}
	if leftMerged && rightMerged {
		dec.Tested = true
		res, err := e.test(e.samplesUnder(n.Left), e.samplesUnder(n.Right), e.m)
		if err != nil {
			dec.Err = errors.Mark(err, ErrMergeTest)
			logger.Warn().Err(err).
				Ints("left", n.Left.LeafIDs()).
				Ints("right", n.Right.LeafIDs()).
				Msg("merge: statistical test failed, keeping groups separate")
		} else {
			dec.Result = res
			switch e.cfg.Method {
			case MergeMethodAdjP:
				dec.Merge = res.PropSignificant <= e.cfg.Cutoff
			case MergeMethodMinP:
				dec.Merge = res.PValue > e.cfg.Cutoff
			}
		}
	}

	e.mu.Lock()
	e.decisions[n] = dec
	e.merged[n] = dec.Merge
	e.mu.Unlock()
	return dec.Merge
}

// samplesUnder returns the ascending sample indices belonging to the leaf
// clusters under n.
func (e *mergeEval) samplesUnder(n *DendroNode) []int {
	var samples []int
	for _, id := range n.LeafIDs() {
		samples = append(samples, e.members[id]...)
	}
	sort.Ints(samples)
	return samples
}
