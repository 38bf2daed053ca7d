package rsec

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// statTestSignificance is the per-feature significance level applied to
// BH-adjusted p-values when estimating the proportion of discriminating
// features.
const statTestSignificance = 0.05

// StatTestResult summarizes a statistical comparison of two sample groups
// over the full feature space.
type StatTestResult struct {
	// PValue is the smallest BH-adjusted per-feature p-value: the strongest
	// single piece of evidence that the groups differ.
	PValue float64

	// PropSignificant is the fraction of features whose BH-adjusted p-value
	// falls under the significance level: an estimate of the proportion of
	// features separating the groups.
	PropSignificant float64

	// NFeatures is the number of features tested.
	NFeatures int
}

// StatTestFunc compares the samples indexed by groupA against those indexed
// by groupB over the full-dimension matrix.
type StatTestFunc func(groupA, groupB []int, m Matrix) (StatTestResult, error)

// WelchStatTest is the built-in statistical comparison: a per-feature Welch
// two-sample t-test with Benjamini-Hochberg adjustment across features. Both
// groups need at least two samples.
func WelchStatTest(groupA, groupB []int, m Matrix) (StatTestResult, error) {
	if len(groupA) < 2 || len(groupB) < 2 {
		return StatTestResult{}, insufficientDataErrorf(
			"welch: need at least 2 samples per group, got %d and %d", len(groupA), len(groupB))
	}

	pvals := make([]float64, m.Dims)
	a := make([]float64, len(groupA))
	b := make([]float64, len(groupB))
	for f := 0; f < m.Dims; f++ {
		gatherFeature(m, groupA, f, a)
		gatherFeature(m, groupB, f, b)
		_, pvals[f] = welchTest(a, b)
	}

	adjusted := adjustBH(pvals)

	minP := 1.0
	significant := 0
	for _, p := range adjusted {
		if p < minP {
			minP = p
		}
		if p < statTestSignificance {
			significant++
		}
	}

	return StatTestResult{
		PValue:          minP,
		PropSignificant: float64(significant) / float64(m.Dims),
		NFeatures:       m.Dims,
	}, nil
}

func gatherFeature(m Matrix, members []int, feature int, dst []float64) {
	for p, i := range members {
		dst[p] = m.Data[i*m.Dims+feature]
	}
}

// welchTest runs Welch's two-sample t-test, returning the t statistic and
// two-sided p-value. Degenerate inputs (zero variance in both groups) give
// p=1 for equal means and p=0 otherwise.
func welchTest(a, b []float64) (t, p float64) {
	na, nb := float64(len(a)), float64(len(b))
	ma, va := stat.MeanVariance(a, nil)
	mb, vb := stat.MeanVariance(b, nil)

	se2 := va/na + vb/nb
	if se2 == 0 {
		if ma == mb {
			return 0, 1
		}
		return math.Inf(1), 0
	}

	t = (ma - mb) / math.Sqrt(se2)

	// Welch-Satterthwaite degrees of freedom.
	denom := (va/na)*(va/na)/(na-1) + (vb/nb)*(vb/nb)/(nb-1)
	df := se2 * se2 / denom
	if denom == 0 || math.IsNaN(df) {
		df = na + nb - 2
	}

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p = 2 * dist.CDF(-math.Abs(t))
	if p > 1 {
		p = 1
	}
	return t, p
}

// adjustBH applies the Benjamini-Hochberg step-up adjustment.
func adjustBH(pvals []float64) []float64 {
	n := len(pvals)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return pvals[order[a]] < pvals[order[b]] })

	adjusted := make([]float64, n)
	running := 1.0
	for rank := n - 1; rank >= 0; rank-- {
		i := order[rank]
		v := pvals[i] * float64(n) / float64(rank+1)
		if v < running {
			running = v
		}
		adjusted[i] = running
	}
	return adjusted
}

// ContrastType selects how RankFeatures compares clusters.
type ContrastType string

const (
	// ContrastOneAgainstAll compares each cluster against all other
	// clustered samples.
	ContrastOneAgainstAll ContrastType = "one-against-all"
	// ContrastPairs compares every pair of clusters.
	ContrastPairs ContrastType = "pairs"
)

// FeatureContrast is one ranked discriminative feature for one contrast.
type FeatureContrast struct {
	Feature  int
	Contrast string  // e.g. "3 vs rest" or "0 vs 2"
	Stat     float64 // Welch t statistic
	PValue   float64 // unadjusted two-sided p-value
}

// RankFeatures ranks the features that best discriminate the final clusters
// of a labeling, returning up to top features per contrast ordered by
// absolute t statistic. -1 samples are excluded from every contrast.
func RankFeatures(m Matrix, labels []int, contrast ContrastType, top int) ([]FeatureContrast, error) {
	if top <= 0 {
		top = 10
	}
	ids := distinctLabels(labels)
	if len(ids) < 2 {
		return nil, insufficientDataErrorf("rank features: need at least 2 clusters, got %d", len(ids))
	}
	members := clusterMembers(labels)

	var out []FeatureContrast
	switch contrast {
	case ContrastOneAgainstAll:
		for _, id := range ids {
			rest := make([]int, 0, m.N)
			for _, other := range ids {
				if other != id {
					rest = append(rest, members[other]...)
				}
			}
			sort.Ints(rest)
			out = append(out, contrastFeatures(m, members[id], rest, fmt.Sprintf("%d vs rest", id), top)...)
		}
	case ContrastPairs:
		for x := 0; x < len(ids); x++ {
			for y := x + 1; y < len(ids); y++ {
				name := fmt.Sprintf("%d vs %d", ids[x], ids[y])
				out = append(out, contrastFeatures(m, members[ids[x]], members[ids[y]], name, top)...)
			}
		}
	default:
		return nil, configErrorf("rank features: unknown contrast type %q", contrast)
	}
	return out, nil
}

// contrastFeatures tests every feature for one contrast and keeps the top by
// absolute t statistic, ties toward the lower feature index.
func contrastFeatures(m Matrix, groupA, groupB []int, name string, top int) []FeatureContrast {
	if len(groupA) < 2 || len(groupB) < 2 {
		return nil
	}
	a := make([]float64, len(groupA))
	b := make([]float64, len(groupB))
	ranked := make([]FeatureContrast, 0, m.Dims)
	for f := 0; f < m.Dims; f++ {
		gatherFeature(m, groupA, f, a)
		gatherFeature(m, groupB, f, b)
		t, p := welchTest(a, b)
		ranked = append(ranked, FeatureContrast{Feature: f, Contrast: name, Stat: t, PValue: p})
	}
	sort.SliceStable(ranked, func(x, y int) bool {
		return math.Abs(ranked[x].Stat) > math.Abs(ranked[y].Stat)
	})
	if len(ranked) > top {
		ranked = ranked[:top]
	}
	return ranked
}
