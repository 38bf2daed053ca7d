package rsec

import (
	"math/rand"
	"sync"
)

// FunctionKind distinguishes the two cluster function contracts.
type FunctionKind int

const (
	// KindPartition functions take a point matrix and a fixed cluster count k.
	KindPartition FunctionKind = iota
	// KindDistance functions take a dissimilarity matrix and a cutoff; the
	// number of clusters is implied by the cutoff rather than fixed.
	KindDistance
)

func (k FunctionKind) String() string {
	switch k {
	case KindPartition:
		return "partition"
	case KindDistance:
		return "distance"
	default:
		return "unknown"
	}
}

// PartitionClusterFunc partitions the rows of m into at most k clusters,
// returning one label per row. Labels are >= 0; the function may return fewer
// than k distinct labels if it naturally merges. rng is the only source of
// randomness so runs stay reproducible under a threaded seed.
type PartitionClusterFunc func(m Matrix, k int, rng *rand.Rand) ([]int, error)

// DistanceClusterFunc clusters n items given their flat n×n dissimilarity
// matrix, joining items whose dissimilarity is within cutoff. Returns one
// label >= 0 per item; singletons are legitimate clusters at this level.
type DistanceClusterFunc func(dissim []float64, n int, cutoff float64) ([]int, error)

// ClusterFunction is a named clustering capability. Exactly one of Partition
// or Distance is set, matching Kind.
type ClusterFunction struct {
	Name      string
	Kind      FunctionKind
	Partition PartitionClusterFunc
	Distance  DistanceClusterFunc
}

// ProjectFunc reduces m to the requested number of dimensions. dims == 0
// means "no reduction requested", and implementations return m unchanged.
type ProjectFunc func(m Matrix, dims int) (Matrix, error)

// Registry maps names to clustering, dimensionality-reduction, and
// statistical-test capabilities. Every other component dispatches through a
// Registry so that it never depends on a concrete algorithm. Safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	cluster map[string]ClusterFunction
	reduce  map[string]ProjectFunc
	test    map[string]StatTestFunc
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		cluster: make(map[string]ClusterFunction),
		reduce:  make(map[string]ProjectFunc),
		test:    make(map[string]StatTestFunc),
	}
}

// DefaultRegistry returns a Registry pre-loaded with the built-in
// capabilities: cluster functions "kmeans" and "hierarchical01", reducers
// "none", "var" and "pca", and the "welch" statistical test.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	must(r.Register(ClusterFunction{Name: "kmeans", Kind: KindPartition, Partition: KMeans}))
	must(r.Register(ClusterFunction{Name: "hierarchical01", Kind: KindDistance, Distance: Hierarchical01}))
	must(r.RegisterReducer("none", ReduceNone))
	must(r.RegisterReducer("var", ReduceVar))
	must(r.RegisterReducer("pca", ReducePCA))
	must(r.RegisterStatTest("welch", WelchStatTest))
	return r
}

// Register adds a cluster function. The function set must match its Kind and
// the name must be unused.
func (r *Registry) Register(fn ClusterFunction) error {
	if fn.Name == "" {
		return configErrorf("cluster function needs a name")
	}
	switch fn.Kind {
	case KindPartition:
		if fn.Partition == nil || fn.Distance != nil {
			return configErrorf("cluster function %q: partition kind requires exactly the Partition field", fn.Name)
		}
	case KindDistance:
		if fn.Distance == nil || fn.Partition != nil {
			return configErrorf("cluster function %q: distance kind requires exactly the Distance field", fn.Name)
		}
	default:
		return configErrorf("cluster function %q: invalid kind %d", fn.Name, fn.Kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.cluster[fn.Name]; exists {
		return configErrorf("cluster function %q already registered", fn.Name)
	}
	r.cluster[fn.Name] = fn
	return nil
}

// Lookup returns the cluster function registered under name, or an error
// matching ErrUnknownClusterFunction.
func (r *Registry) Lookup(name string) (ClusterFunction, error) {
	r.mu.RLock()
	fn, ok := r.cluster[name]
	r.mu.RUnlock()
	if !ok {
		return ClusterFunction{}, unknownFunctionErrorf(name)
	}
	return fn, nil
}

// RegisterReducer adds a dimensionality-reduction capability under name.
func (r *Registry) RegisterReducer(name string, fn ProjectFunc) error {
	if name == "" || fn == nil {
		return configErrorf("reducer needs a name and a function")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.reduce[name]; exists {
		return configErrorf("reducer %q already registered", name)
	}
	r.reduce[name] = fn
	return nil
}

// Project reduces m to dims dimensions using the named reducer.
func (r *Registry) Project(m Matrix, method string, dims int) (Matrix, error) {
	r.mu.RLock()
	fn, ok := r.reduce[method]
	r.mu.RUnlock()
	if !ok {
		return Matrix{}, unknownReducerErrorf(method)
	}
	return fn(m, dims)
}

// RegisterStatTest adds a statistical comparison capability under name.
func (r *Registry) RegisterStatTest(name string, fn StatTestFunc) error {
	if name == "" || fn == nil {
		return configErrorf("stat test needs a name and a function")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.test[name]; exists {
		return configErrorf("stat test %q already registered", name)
	}
	r.test[name] = fn
	return nil
}

// StatTest returns the statistical test registered under name.
func (r *Registry) StatTest(name string) (StatTestFunc, error) {
	r.mu.RLock()
	fn, ok := r.test[name]
	r.mu.RUnlock()
	if !ok {
		return nil, configErrorf("unknown stat test %q", name)
	}
	return fn, nil
}
