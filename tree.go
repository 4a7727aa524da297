package lgbm

import "math"

// tree is a regression tree stored as parallel arrays. Internal node i has
// children LeftChild[i] and RightChild[i]; a negative child c refers to leaf
// ^c. A tree with a single leaf has no internal nodes.
type tree struct {
	NumLeaves int

	SplitFeature  []int
	Threshold     []float64
	thresholdBin  []int
	SplitGain     []float64
	LeftChild     []int
	RightChild    []int
	InternalValue []float64
	InternalCount []int

	LeafValue  []float64
	LeafCount  []int
	LeafWeight []float64
	LeafParent []int
	LeafDepth  []int

	Shrinkage float64
}

func newTree(maxLeaves int) *tree {
	t := &tree{
		NumLeaves: 1,
		Shrinkage: 1,
	}
	t.LeafValue = make([]float64, 1, maxLeaves)
	t.LeafCount = make([]int, 1, maxLeaves)
	t.LeafWeight = make([]float64, 1, maxLeaves)
	t.LeafParent = append(make([]int, 0, maxLeaves), -1)
	t.LeafDepth = make([]int, 1, maxLeaves)
	return t
}

// newConstantTree returns a single-leaf tree predicting v.
func newConstantTree(v float64) *tree {
	t := newTree(1)
	t.LeafValue[0] = v
	return t
}

// split turns leaf into an internal node. The left child keeps the leaf's
// index and the right child becomes a new leaf, whose index is returned.
func (t *tree) split(leaf, feature, thresholdBin int, threshold, gain float64,
	leftValue, rightValue float64, leftCount, rightCount int, leftWeight, rightWeight float64,
) int {
	node := len(t.SplitFeature)
	if parent := t.LeafParent[leaf]; parent >= 0 {
		if t.LeftChild[parent] == ^leaf {
			t.LeftChild[parent] = node
		} else {
			t.RightChild[parent] = node
		}
	}

	newLeaf := t.NumLeaves
	t.SplitFeature = append(t.SplitFeature, feature)
	t.Threshold = append(t.Threshold, threshold)
	t.thresholdBin = append(t.thresholdBin, thresholdBin)
	t.SplitGain = append(t.SplitGain, gain)
	t.LeftChild = append(t.LeftChild, ^leaf)
	t.RightChild = append(t.RightChild, ^newLeaf)
	t.InternalValue = append(t.InternalValue, t.LeafValue[leaf])
	t.InternalCount = append(t.InternalCount, leftCount+rightCount)

	depth := t.LeafDepth[leaf] + 1
	t.LeafValue[leaf] = leftValue
	t.LeafCount[leaf] = leftCount
	t.LeafWeight[leaf] = leftWeight
	t.LeafParent[leaf] = node
	t.LeafDepth[leaf] = depth

	t.LeafValue = append(t.LeafValue, rightValue)
	t.LeafCount = append(t.LeafCount, rightCount)
	t.LeafWeight = append(t.LeafWeight, rightWeight)
	t.LeafParent = append(t.LeafParent, node)
	t.LeafDepth = append(t.LeafDepth, depth)
	t.NumLeaves++
	return newLeaf
}

// leafIndex routes a raw feature row to a leaf. NaN goes left.
func (t *tree) leafIndex(row []float64) int {
	if len(t.SplitFeature) == 0 {
		return 0
	}
	node := 0
	for node >= 0 {
		v := row[t.SplitFeature[node]]
		if math.IsNaN(v) || v <= t.Threshold[node] {
			node = t.LeftChild[node]
		} else {
			node = t.RightChild[node]
		}
	}
	return ^node
}

// leafIndexBinned routes row i of the dataset the tree was trained on.
func (t *tree) leafIndexBinned(ds *Dataset, i int) int {
	if len(t.SplitFeature) == 0 {
		return 0
	}
	node := 0
	for node >= 0 {
		f := t.SplitFeature[node]
		b := int(ds.bins[f][i])
		if b == ds.mappers[f].missingBin() || b <= t.thresholdBin[node] {
			node = t.LeftChild[node]
		} else {
			node = t.RightChild[node]
		}
	}
	return ^node
}

func (t *tree) predict(row []float64) float64 {
	return t.LeafValue[t.leafIndex(row)]
}

func (t *tree) maxDepth() int {
	d := 0
	for _, ld := range t.LeafDepth {
		if ld > d {
			d = ld
		}
	}
	return d
}

// shrink scales every output by rate.
func (t *tree) shrink(rate float64) {
	for i := range t.LeafValue {
		t.LeafValue[i] *= rate
	}
	for i := range t.InternalValue {
		t.InternalValue[i] *= rate
	}
	t.Shrinkage *= rate
}

// addBias folds a constant into every output.
func (t *tree) addBias(b float64) {
	for i := range t.LeafValue {
		t.LeafValue[i] += b
	}
	for i := range t.InternalValue {
		t.InternalValue[i] += b
	}
}

func (t *tree) clone() *tree {
	c := *t
	c.SplitFeature = append([]int(nil), t.SplitFeature...)
	c.Threshold = append([]float64(nil), t.Threshold...)
	c.thresholdBin = append([]int(nil), t.thresholdBin...)
	c.SplitGain = append([]float64(nil), t.SplitGain...)
	c.LeftChild = append([]int(nil), t.LeftChild...)
	c.RightChild = append([]int(nil), t.RightChild...)
	c.InternalValue = append([]float64(nil), t.InternalValue...)
	c.InternalCount = append([]int(nil), t.InternalCount...)
	c.LeafValue = append([]float64(nil), t.LeafValue...)
	c.LeafCount = append([]int(nil), t.LeafCount...)
	c.LeafWeight = append([]float64(nil), t.LeafWeight...)
	c.LeafParent = append([]int(nil), t.LeafParent...)
	c.LeafDepth = append([]int(nil), t.LeafDepth...)
	return &c
}
