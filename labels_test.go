package rsec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterMinSize(t *testing.T) {
	labels := []int{0, 0, 0, 1, 1, 2, -1}

	assert.Equal(t, labels, filterMinSize(labels, 1), "minSize 1 filters nothing")
	assert.Equal(t, []int{0, 0, 0, 1, 1, -1, -1}, filterMinSize(labels, 2))
	assert.Equal(t, []int{0, 0, 0, -1, -1, -1, -1}, filterMinSize(labels, 3))

	// Input must stay untouched.
	_ = filterMinSize(labels, 3)
	assert.Equal(t, []int{0, 0, 0, 1, 1, 2, -1}, labels)
}

func TestRenumberBySize(t *testing.T) {
	tests := []struct {
		name   string
		labels []int
		want   []int
	}{
		{
			"largest first",
			[]int{7, 7, 3, 3, 3, -1},
			[]int{1, 1, 0, 0, 0, -1},
		},
		{
			"size tie breaks to lowest sample index",
			[]int{5, 5, 2, 2},
			[]int{0, 0, 1, 1},
		},
		{
			"all noise",
			[]int{-1, -1},
			[]int{-1, -1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, renumberBySize(tt.labels))
		})
	}
}

func TestDistinctLabels(t *testing.T) {
	assert.Equal(t, []int{0, 2, 9}, distinctLabels([]int{9, 2, 0, 2, -1, 9}))
	assert.Empty(t, distinctLabels([]int{-1, -1}))
}

func TestClusterMembers(t *testing.T) {
	members := clusterMembers([]int{1, 0, 1, -1, 0})
	assert.Equal(t, map[int][]int{0: {1, 4}, 1: {0, 2}}, members)
}
