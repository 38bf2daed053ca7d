package rsec

import "testing"

func TestComputePairwiseDistancesParallelMatchesSequential(t *testing.T) {
	m := blobMatrix([][]float64{{0, 0}, {10, 10}, {50, 0}}, 7, 0.3)

	want := ComputePairwiseDistances(m, EuclideanMetric{})
	for _, workers := range []int{1, 2, 4, 16} {
		got := ComputePairwiseDistancesParallel(m, EuclideanMetric{}, workers)
		if len(got) != len(want) {
			t.Fatalf("workers=%d: length %d, want %d", workers, len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("workers=%d: mismatch at %d: %f != %f", workers, i, got[i], want[i])
			}
		}
	}
}

func TestWorkerRanges(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		workers int
		want    [][2]int
	}{
		{"even split", 10, 2, [][2]int{{0, 5}, {5, 10}}},
		{"uneven split", 10, 3, [][2]int{{0, 4}, {4, 8}, {8, 10}}},
		{"more workers than items", 2, 8, [][2]int{{0, 1}, {1, 2}}},
		{"single worker", 5, 1, [][2]int{{0, 5}}},
		{"zero workers clamps to one", 3, 0, [][2]int{{0, 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := workerRanges(tt.n, tt.workers)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}
