package rsec

// blobRows builds deterministic well-separated point groups: per points
// around each center with a small linear spread, so clustering outcomes are
// reproducible without seeding noise.
func blobRows(centers [][]float64, per int, spread float64) [][]float64 {
	var rows [][]float64
	for _, c := range centers {
		for i := 0; i < per; i++ {
			row := make([]float64, len(c))
			for d := range c {
				off := spread * float64(i)
				if d%2 == 1 {
					off = -off
				}
				row[d] = c[d] + off
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// blobMatrix is blobRows packed into a Matrix.
func blobMatrix(centers [][]float64, per int, spread float64) Matrix {
	m, err := NewMatrix(blobRows(centers, per, spread))
	if err != nil {
		panic(err)
	}
	return m
}

// sameGroup reports whether labels assigns every index in members the same
// non -1 label.
func sameGroup(labels []int, members []int) bool {
	first := labels[members[0]]
	if first < 0 {
		return false
	}
	for _, i := range members[1:] {
		if labels[i] != first {
			return false
		}
	}
	return true
}

func indexRange(start, end int) []int {
	out := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, i)
	}
	return out
}
