package rsec

import "sort"

// clusterMembers groups sample indices by label, skipping -1.
func clusterMembers(labels []int) map[int][]int {
	members := make(map[int][]int)
	for i, l := range labels {
		if l < 0 {
			continue
		}
		members[l] = append(members[l], i)
	}
	return members
}

// distinctLabels returns the sorted distinct non-negative labels.
func distinctLabels(labels []int) []int {
	seen := make(map[int]bool)
	var out []int
	for _, l := range labels {
		if l >= 0 && !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	sort.Ints(out)
	return out
}

// filterMinSize returns a copy of labels where every cluster with fewer than
// minSize members is relabeled -1.
func filterMinSize(labels []int, minSize int) []int {
	out := make([]int, len(labels))
	copy(out, labels)
	if minSize <= 1 {
		return out
	}
	counts := make(map[int]int)
	for _, l := range out {
		if l >= 0 {
			counts[l]++
		}
	}
	for i, l := range out {
		if l >= 0 && counts[l] < minSize {
			out[i] = -1
		}
	}
	return out
}

// renumberBySize returns a copy of labels with cluster ids reassigned 0.. in
// descending size order; equal sizes break toward the cluster containing the
// lowest sample index. -1 passes through.
func renumberBySize(labels []int) []int {
	members := clusterMembers(labels)
	ids := make([]int, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool {
		ma, mb := members[ids[a]], members[ids[b]]
		if len(ma) != len(mb) {
			return len(ma) > len(mb)
		}
		return ma[0] < mb[0]
	})

	remap := make(map[int]int, len(ids))
	for newID, oldID := range ids {
		remap[oldID] = newID
	}

	out := make([]int, len(labels))
	for i, l := range labels {
		if l < 0 {
			out[i] = -1
		} else {
			out[i] = remap[l]
		}
	}
	return out
}
