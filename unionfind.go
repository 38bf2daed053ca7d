package rsec

import "sort"

// UnionFind implements a disjoint-set data structure with path compression
// and union by size.
type UnionFind struct {
	parent []int
	size   []int
}

// NewUnionFind creates a UnionFind over the elements 0..n-1.
func NewUnionFind(n int) *UnionFind {
	if n < 1 {
		n = 1
	}
	parent := make([]int, n)
	size := make([]int, n)
	for i := range parent {
		parent[i] = -1 // -1 means "is a root"
		size[i] = 1
	}
	return &UnionFind{parent: parent, size: size}
}

// Find returns the root of the set containing x, with path compression.
func (uf *UnionFind) Find(x int) int {
	// Walk to the root.
	root := x
	for uf.parent[root] != -1 {
		root = uf.parent[root]
	}
	// Path compression: point all nodes along the path directly to root.
	for uf.parent[x] != -1 {
		x, uf.parent[x] = uf.parent[x], root
	}
	return root
}

// Union merges the sets containing x and y by attaching the smaller tree
// under the larger. Returns the new root.
func (uf *UnionFind) Union(x, y int) int {
	rootX := uf.Find(x)
	rootY := uf.Find(y)
	if rootX == rootY {
		return rootX
	}

	// Attach smaller to larger.
	if uf.size[rootX] < uf.size[rootY] {
		rootX, rootY = rootY, rootX
	}
	uf.parent[rootY] = rootX
	uf.size[rootX] += uf.size[rootY]
	return rootX
}

// SetSize returns the size of the set containing x.
func (uf *UnionFind) SetSize(x int) int {
	return uf.size[uf.Find(x)]
}

// Components groups the elements 0..n-1 by their set membership. Each
// component lists its member indices in ascending order; components are
// ordered by their smallest member.
func (uf *UnionFind) Components(n int) [][]int {
	byRoot := make(map[int][]int)
	order := make([]int, 0)
	for i := 0; i < n; i++ {
		root := uf.Find(i)
		if _, seen := byRoot[root]; !seen {
			order = append(order, root)
		}
		byRoot[root] = append(byRoot[root], i)
	}
	sort.Slice(order, func(a, b int) bool {
		return byRoot[order[a]][0] < byRoot[order[b]][0]
	})
	components := make([][]int, len(order))
	for i, root := range order {
		components[i] = byRoot[root]
	}
	return components
}
