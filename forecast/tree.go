package forecast

import (
	"math"
	"math/rand"
	"sort"
)

// treeNode is one node of a regression tree. Leaves carry the mean target
// of their training samples; internal nodes split on Feature < Threshold.
type treeNode struct {
	Leaf      bool      `json:"leaf"`
	Feature   int       `json:"feature,omitempty"`
	Threshold float64   `json:"threshold,omitempty"`
	Value     float64   `json:"value,omitempty"`
	Left      *treeNode `json:"left,omitempty"`
	Right     *treeNode `json:"right,omitempty"`
}

// Forest is a bagged ensemble of regression trees. The whole structure is
// JSON-serializable so trained models can be persisted as plain artifacts.
type Forest struct {
	Trees       []*treeNode `json:"trees"`
	NumFeatures int         `json:"num_features"`
	Importances []float64   `json:"importances"`
}

const minLeafSamples = 2

// TrainForest fits nEstimators regression trees on bootstrap samples of the
// training set. Each split considers a random third of the features, which
// decorrelates the trees. All randomness comes from rng, so a fixed seed
// reproduces the exact same forest.
func TrainForest(x [][]float64, y []float64, nEstimators, maxDepth int, rng *rand.Rand) *Forest {
	if len(x) == 0 {
		return &Forest{}
	}
	p := len(x[0])
	mtry := p / 3
	if mtry < 1 {
		mtry = 1
	}

	f := &Forest{
		Trees:       make([]*treeNode, 0, nEstimators),
		NumFeatures: p,
		Importances: make([]float64, p),
	}
	for t := 0; t < nEstimators; t++ {
		idx := make([]int, len(x))
		for i := range idx {
			idx[i] = rng.Intn(len(x))
		}
		f.Trees = append(f.Trees, buildTree(x, y, idx, 0, maxDepth, mtry, rng, f.Importances))
	}

	// normalize accumulated variance reductions into relative importances
	total := 0.0
	for _, v := range f.Importances {
		total += v
	}
	if total > 0 {
		for i := range f.Importances {
			f.Importances[i] /= total
		}
	}
	return f
}

// Predict averages the per-tree predictions for one feature row.
func (f *Forest) Predict(row []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range f.Trees {
		sum += t.predict(row)
	}
	return sum / float64(len(f.Trees))
}

func (n *treeNode) predict(row []float64) float64 {
	for !n.Leaf {
		if row[n.Feature] < n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

func buildTree(x [][]float64, y []float64, idx []int, depth, maxDepth, mtry int, rng *rand.Rand, importances []float64) *treeNode {
	mean, sse := meanSSE(y, idx)
	if depth >= maxDepth || len(idx) < 2*minLeafSamples || sse == 0 {
		return &treeNode{Leaf: true, Value: mean}
	}

	feature, threshold, gain := bestSplit(x, y, idx, mtry, rng, sse)
	if gain <= 0 {
		return &treeNode{Leaf: true, Value: mean}
	}
	importances[feature] += gain

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if x[i][feature] < threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &treeNode{Leaf: true, Value: mean}
	}

	return &treeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      buildTree(x, y, left, depth+1, maxDepth, mtry, rng, importances),
		Right:     buildTree(x, y, right, depth+1, maxDepth, mtry, rng, importances),
	}
}

// bestSplit scans a random feature subset for the threshold with the
// largest variance reduction, using prefix sums over the sorted column.
func bestSplit(x [][]float64, y []float64, idx []int, mtry int, rng *rand.Rand, parentSSE float64) (int, float64, float64) {
	p := len(x[0])
	features := rng.Perm(p)[:mtry]

	bestFeature, bestThreshold, bestGain := -1, 0.0, 0.0
	order := make([]int, len(idx))
	for _, feature := range features {
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool { return x[order[a]][feature] < x[order[b]][feature] })

		var leftSum, leftSq float64
		rightSum, rightSq := 0.0, 0.0
		for _, i := range order {
			rightSum += y[i]
			rightSq += y[i] * y[i]
		}

		n := float64(len(order))
		for pos := 0; pos < len(order)-1; pos++ {
			v := y[order[pos]]
			leftSum += v
			leftSq += v * v
			rightSum -= v
			rightSq -= v * v

			cur, next := x[order[pos]][feature], x[order[pos+1]][feature]
			if cur == next {
				continue
			}
			nl := float64(pos + 1)
			nr := n - nl
			sseLeft := leftSq - leftSum*leftSum/nl
			sseRight := rightSq - rightSum*rightSum/nr
			gain := parentSSE - sseLeft - sseRight
			if gain > bestGain {
				bestFeature = feature
				bestThreshold = (cur + next) / 2
				bestGain = gain
			}
		}
	}
	if bestFeature < 0 {
		return 0, 0, 0
	}
	return bestFeature, bestThreshold, bestGain
}

func meanSSE(y []float64, idx []int) (float64, float64) {
	if len(idx) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, i := range idx {
		sum += y[i]
	}
	mean := sum / float64(len(idx))
	sse := 0.0
	for _, i := range idx {
		d := y[i] - mean
		sse += d * d
	}
	if sse < 0 || math.IsNaN(sse) {
		sse = 0
	}
	return mean, sse
}
