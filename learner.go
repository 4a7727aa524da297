package lgbm

import (
	"github.com/YuminosukeSato/lgbm/core/parallel"
)

// leafState is the training-time view of one leaf of the tree being grown.
type leafState struct {
	indices []int
	sumGrad float64
	sumHess float64
	hist    *histogram
	best    splitInfo
}

// treeLearner grows one tree at a time, always splitting the leaf with the
// largest gain.
type treeLearner struct {
	cfg     *config
	ds      *Dataset
	workers int
	hists   *histogramPool
}

func newTreeLearner(ds *Dataset, cfg *config) *treeLearner {
	offsets := make([]int, ds.numFeature+1)
	for f, m := range ds.mappers {
		offsets[f+1] = offsets[f] + m.NumBins()
	}
	return &treeLearner{
		cfg:     cfg,
		ds:      ds,
		workers: parallel.Workers(cfg.NumThreads),
		hists:   newHistogramPool(offsets),
	}
}

// usefulFeatures lists features with at least two numeric bins.
func (l *treeLearner) usefulFeatures() []int {
	var out []int
	for f, m := range l.ds.mappers {
		if !m.trivial() {
			out = append(out, f)
		}
	}
	return out
}

// train grows a tree on the rows in indices using only the given features.
// It returns nil when the root cannot be split.
func (l *treeLearner) train(grad, hess []float64, indices, features []int) *tree {
	cfg := l.cfg
	root := &leafState{indices: indices}
	for _, i := range indices {
		root.sumGrad += grad[i]
		root.sumHess += hess[i]
	}
	root.hist = l.hists.get()
	root.hist.construct(l.ds, features, indices, grad, hess, l.workers)

	t := newTree(cfg.NumLeaves)
	t.LeafValue[0] = leafOutput(root.sumGrad, root.sumHess, cfg)
	t.LeafCount[0] = len(indices)
	t.LeafWeight[0] = root.sumHess

	leaves := []*leafState{root}
	l.findBestSplit(root, 0, features)

	for t.NumLeaves < cfg.NumLeaves {
		leaf := -1
		for i, s := range leaves {
			if s.best.valid() && (leaf < 0 || s.best.gain > leaves[leaf].best.gain) {
				leaf = i
			}
		}
		if leaf < 0 {
			break
		}

		parent := leaves[leaf]
		sp := parent.best
		left, right := l.partition(parent.indices, sp)
		m := l.ds.mappers[sp.feature]
		t.split(leaf, sp.feature, sp.thresholdBin, m.threshold(sp.thresholdBin), sp.gain,
			leafOutput(sp.leftGrad, sp.leftHess, cfg), leafOutput(sp.rightGrad, sp.rightHess, cfg),
			len(left), len(right), sp.leftHess, sp.rightHess)

		ls := &leafState{indices: left, sumGrad: sp.leftGrad, sumHess: sp.leftHess}
		rs := &leafState{indices: right, sumGrad: sp.rightGrad, sumHess: sp.rightHess}

		// build the smaller child, derive the larger one from the parent
		small, large := ls, rs
		if len(left) > len(right) {
			small, large = rs, ls
		}
		small.hist = l.hists.get()
		small.hist.construct(l.ds, features, small.indices, grad, hess, l.workers)
		parent.hist.subtract(small.hist)
		large.hist = parent.hist

		// split keeps the left child at index leaf and appends the right one
		leaves[leaf] = ls
		leaves = append(leaves, rs)
		depth := t.LeafDepth[leaf]
		l.findBestSplit(ls, depth, features)
		l.findBestSplit(rs, depth, features)
	}

	for _, s := range leaves {
		l.hists.put(s.hist)
	}
	if t.NumLeaves == 1 {
		return nil
	}
	return t
}

// findBestSplit stores the best split of s, or an invalid split when the
// leaf is too deep or too small.
func (l *treeLearner) findBestSplit(s *leafState, depth int, features []int) {
	cfg := l.cfg
	s.best = noSplit()
	if cfg.MaxDepth > 0 && depth >= cfg.MaxDepth {
		return
	}
	if len(s.indices) < 2*cfg.MinDataInLeaf || len(s.indices) < 2 {
		return
	}
	for _, f := range features {
		cand := bestThreshold(f, s.hist.feature(f), l.ds.mappers[f], s.sumGrad, s.sumHess, len(s.indices), cfg)
		if cand.valid() && cand.gain > s.best.gain {
			s.best = cand
		}
	}
}

// partition splits indices by the chosen threshold, preserving order.
func (l *treeLearner) partition(indices []int, sp splitInfo) (left, right []int) {
	bins := l.ds.bins[sp.feature]
	missing := l.ds.mappers[sp.feature].missingBin()
	left = make([]int, 0, sp.leftCount)
	right = make([]int, 0, sp.rightCount)
	for _, i := range indices {
		b := int(bins[i])
		if b == missing || b <= sp.thresholdBin {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}
