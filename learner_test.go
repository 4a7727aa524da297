package lgbm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smokeGradients(n int, score float64) (grad, hess []float64) {
	grad = make([]float64, n)
	hess = make([]float64, n)
	for i := range grad {
		grad[i] = score - float64(i%3)
		hess[i] = 1
	}
	return grad, hess
}

func TestHistogramConstructAndSubtract(t *testing.T) {
	ds := newSmokeDataset(t, quiet())
	grad, hess := smokeGradients(128, 0)
	offsets := []int{0, 3}

	parent := newHistogram(offsets)
	parent.construct(ds, []int{0}, identity(128), grad, hess, 4)
	e := parent.feature(0)
	assert.Equal(t, binEntry{grad: 0, hess: 43, count: 43}, e[0])
	assert.Equal(t, binEntry{grad: -43, hess: 43, count: 43}, e[1])
	assert.Equal(t, binEntry{grad: -84, hess: 42, count: 42}, e[2])

	// rows 0..63 as the smaller child
	child := newHistogram(offsets)
	child.construct(ds, []int{0}, identity(64), grad, hess, 1)
	sibling := newHistogram(offsets)
	rest := make([]int, 0, 64)
	for i := 64; i < 128; i++ {
		rest = append(rest, i)
	}
	sibling.construct(ds, []int{0}, rest, grad, hess, 1)

	parent.subtract(child)
	assert.Equal(t, sibling.entries, parent.entries)
}

func TestHistogramPoolZeroesBuffers(t *testing.T) {
	hp := newHistogramPool([]int{0, 2, 5})
	h := hp.get()
	require.Len(t, h.entries, 5)
	h.entries[3].grad = 7
	h.entries[3].count = 2
	hp.put(h)
	hp.put(nil)

	again := hp.get()
	for _, e := range again.entries {
		assert.Equal(t, binEntry{}, e)
	}
	assert.Equal(t, int64(1), hp.recycled.Load())
}

func TestBestThreshold(t *testing.T) {
	cfg := defaultConfig()
	cfg.MinDataInLeaf = 1
	m := &binMapper{UpperBounds: []float64{0.5, 1.5, math.Inf(1)}}
	entries := []binEntry{
		{grad: 2, hess: 2, count: 2},
		{grad: 0, hess: 2, count: 2},
		{grad: -2, hess: 2, count: 2},
	}

	sp := bestThreshold(0, entries, m, 0, 6, 6, &cfg)
	require.True(t, sp.valid())
	// {bin 0} vs {1, 2} and {0, 1} vs {2} tie; the first one wins
	assert.Equal(t, 0, sp.thresholdBin)
	assert.InDelta(t, 4.0/2+4.0/4, sp.gain, 1e-12)
	assert.Equal(t, 2, sp.leftCount)
	assert.Equal(t, 4, sp.rightCount)

	cfg.MinGainToSplit = 10
	assert.False(t, bestThreshold(0, entries, m, 0, 6, 6, &cfg).valid())

	cfg.MinGainToSplit = 0
	cfg.MinDataInLeaf = 3
	assert.False(t, bestThreshold(0, entries, m, 0, 6, 6, &cfg).valid())
}

func TestBestThresholdMissingGoesLeft(t *testing.T) {
	cfg := defaultConfig()
	cfg.MinDataInLeaf = 1
	m := &binMapper{UpperBounds: []float64{0.5, math.Inf(1)}, HasMissing: true}
	entries := []binEntry{
		{grad: 1, hess: 1, count: 1},
		{grad: -2, hess: 2, count: 2},
		{grad: 1, hess: 1, count: 1}, // missing
	}
	sp := bestThreshold(0, entries, m, 0, 4, 4, &cfg)
	require.True(t, sp.valid())
	assert.Equal(t, 2, sp.leftCount)
	assert.InDelta(t, 2.0, sp.leftGrad, 1e-12)
}

func TestTreeSplitAndRoute(t *testing.T) {
	tr := newTree(4)
	right := tr.split(0, 0, 0, 0.5, 3, -1, 1, 10, 20, 10, 20)
	assert.Equal(t, 1, right)
	right = tr.split(1, 1, 2, 7.5, 1, 0.5, 2, 5, 15, 5, 15)
	assert.Equal(t, 2, right)

	assert.Equal(t, 3, tr.NumLeaves)
	assert.Equal(t, 2, tr.maxDepth())
	assert.Equal(t, 0, tr.leafIndex([]float64{0, 100}))
	assert.Equal(t, 0, tr.leafIndex([]float64{math.NaN(), 100}))
	assert.Equal(t, 1, tr.leafIndex([]float64{1, 7}))
	assert.Equal(t, 2, tr.leafIndex([]float64{1, 8}))
	assert.Equal(t, 2.0, tr.predict([]float64{1, 8}))

	c := tr.clone()
	c.shrink(0.5)
	c.addBias(1)
	assert.Equal(t, 2.0, tr.predict([]float64{1, 8}))
	assert.Equal(t, 2.0, c.predict([]float64{1, 8}))
	assert.Equal(t, 0.5, c.Shrinkage)

	var decoded jsonTreeInfo
	decoded.NumLeaves = tr.NumLeaves
	decoded.TreeStructure = tr.toJSON(0)
	back, err := treeFromJSON(&decoded, 2)
	require.NoError(t, err)
	for _, row := range [][]float64{{0, 0}, {1, 7}, {1, 8}, {math.NaN(), 9}} {
		assert.Equal(t, tr.leafIndex(row), back.leafIndex(row))
	}
}

func TestTreeLearnerSmoke(t *testing.T) {
	ds := newSmokeDataset(t, quiet())
	cfg := defaultConfig()
	l := newTreeLearner(ds, &cfg)
	require.Equal(t, []int{0}, l.usefulFeatures())

	grad, hess := smokeGradients(128, 1)
	tr := l.train(grad, hess, identity(128), l.usefulFeatures())
	require.NotNil(t, tr)
	assert.Equal(t, 3, tr.NumLeaves)
	for x := 0; x < 3; x++ {
		// leaf output is the mean residual of the group
		assert.InDelta(t, float64(x)-1, tr.predict([]float64{float64(x)}), 1e-12)
		assert.Equal(t, tr.leafIndex([]float64{float64(x)}), tr.leafIndexBinned(ds, x))
	}

	for i := 0; i < 4; i++ {
		l.train(grad, hess, identity(128), l.usefulFeatures())
	}
	// each tree uses a root histogram and one per smaller child
	assert.Equal(t, int64(15), l.hists.recycled.Load())

	cfg.MaxDepth = 1
	tr = l.train(grad, hess, identity(128), l.usefulFeatures())
	require.NotNil(t, tr)
	assert.Equal(t, 2, tr.NumLeaves)

	assert.Nil(t, l.train(grad, hess, identity(128), nil))
}

func TestSampler(t *testing.T) {
	cfg := defaultConfig()
	s := newSampler(&cfg)
	assert.False(t, s.bagging())
	assert.Equal(t, identity(10), s.rows(10, 0))
	assert.Equal(t, []int{1, 4}, s.features([]int{1, 4}))

	cfg.BaggingFraction = 0.5
	cfg.BaggingFreq = 2
	cfg.FeatureFraction = 0.5
	cfg.Seed = 3
	s = newSampler(&cfg)
	require.True(t, s.bagging())

	bag := s.rows(100, 0)
	assert.Len(t, bag, 50)
	assert.IsIncreasing(t, bag)
	assert.Equal(t, bag, s.rows(100, 1), "bag is kept between redraws")

	feats := s.features([]int{2, 5, 7, 9})
	assert.Len(t, feats, 2)
	assert.Subset(t, []int{2, 5, 7, 9}, feats)

	other := newSampler(&cfg)
	assert.Equal(t, bag, other.rows(100, 0))
}
