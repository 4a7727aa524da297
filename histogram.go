package lgbm

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/YuminosukeSato/lgbm/core/parallel"
	"github.com/YuminosukeSato/lgbm/pkg/errors"
)

// minRowsForParallel is the row count below which histograms, gradients and
// score updates run on the calling goroutine.
const minRowsForParallel = 2048

// binEntry accumulates gradient statistics for one bin.
type binEntry struct {
	grad  float64
	hess  float64
	count int
}

// histogram holds the bins of every feature in one flat slice.
type histogram struct {
	offsets []int
	entries []binEntry
}

func newHistogram(offsets []int) *histogram {
	return &histogram{
		offsets: offsets,
		entries: make([]binEntry, offsets[len(offsets)-1]),
	}
}

// histogramPool recycles histogram buffers between leaves and trees.
type histogramPool struct {
	pool     sync.Pool
	created  atomic.Int64
	recycled atomic.Int64
}

func newHistogramPool(offsets []int) *histogramPool {
	hp := &histogramPool{}
	hp.pool.New = func() any {
		hp.created.Add(1)
		return newHistogram(offsets)
	}
	return hp
}

// get returns a zeroed histogram.
func (hp *histogramPool) get() *histogram {
	return hp.pool.Get().(*histogram)
}

func (hp *histogramPool) put(h *histogram) {
	if h == nil {
		return
	}
	clear(h.entries)
	hp.recycled.Add(1)
	hp.pool.Put(h)
}

func (h *histogram) feature(f int) []binEntry {
	return h.entries[h.offsets[f]:h.offsets[f+1]]
}

// construct accumulates rows in indices for each listed feature.
func (h *histogram) construct(ds *Dataset, features, indices []int, grad, hess []float64, workers int) {
	if len(indices) < minRowsForParallel {
		workers = 1
	}
	parallel.ParallelizeN(len(features), workers, func(start, end int) {
		for _, f := range features[start:end] {
			bins := ds.bins[f]
			entries := h.feature(f)
			for _, i := range indices {
				e := &entries[bins[i]]
				e.grad += grad[i]
				e.hess += hess[i]
				e.count++
			}
		}
	})
}

// subtract turns h (a parent histogram) into the histogram of the sibling of
// child, reusing h's storage.
func (h *histogram) subtract(child *histogram) {
	for i := range h.entries {
		h.entries[i].grad -= child.entries[i].grad
		h.entries[i].hess -= child.entries[i].hess
		h.entries[i].count -= child.entries[i].count
	}
}

// splitInfo describes the best split found for a leaf.
type splitInfo struct {
	feature      int
	thresholdBin int
	gain         float64

	leftGrad, leftHess   float64
	leftCount            int
	rightGrad, rightHess float64
	rightCount           int
}

func noSplit() splitInfo {
	return splitInfo{feature: -1, gain: math.Inf(-1)}
}

func (s splitInfo) valid() bool { return s.feature >= 0 }

// thresholdL1 soft-thresholds a gradient sum by the L1 penalty.
func thresholdL1(g, l1 float64) float64 {
	reg := math.Max(0, math.Abs(g)-l1)
	return math.Copysign(reg, g)
}

// leafGain and leafOutput are 0 for a leaf with no hessian mass.
func leafGain(g, h float64, cfg *config) float64 {
	sg := thresholdL1(g, cfg.LambdaL1)
	return errors.SafeDivide(sg*sg, h+cfg.LambdaL2)
}

func leafOutput(g, h float64, cfg *config) float64 {
	return errors.SafeDivide(-thresholdL1(g, cfg.LambdaL1), h+cfg.LambdaL2)
}

// bestThreshold scans the numeric bins of one feature left to right. Rows in
// the missing bin always go to the left child.
func bestThreshold(f int, entries []binEntry, m *binMapper, sumGrad, sumHess float64, count int, cfg *config) splitInfo {
	best := noSplit()
	numeric := len(m.UpperBounds)
	if numeric < 2 {
		return best
	}

	var lg, lh float64
	lc := 0
	if mb := m.missingBin(); mb >= 0 {
		lg, lh, lc = entries[mb].grad, entries[mb].hess, entries[mb].count
	}

	parentGain := leafGain(sumGrad, sumHess, cfg)
	for t := 0; t < numeric-1; t++ {
		lg += entries[t].grad
		lh += entries[t].hess
		lc += entries[t].count

		rc := count - lc
		if rc < cfg.MinDataInLeaf {
			break
		}
		if lc < cfg.MinDataInLeaf || lh < cfg.MinSumHessianInLeaf {
			continue
		}
		rg, rh := sumGrad-lg, sumHess-lh
		if rh < cfg.MinSumHessianInLeaf {
			break
		}

		gain := leafGain(lg, lh, cfg) + leafGain(rg, rh, cfg) - parentGain
		if gain <= cfg.MinGainToSplit+kEpsilon || gain <= best.gain {
			continue
		}
		best = splitInfo{
			feature:      f,
			thresholdBin: t,
			gain:         gain,
			leftGrad:     lg,
			leftHess:     lh,
			leftCount:    lc,
			rightGrad:    rg,
			rightHess:    rh,
			rightCount:   rc,
		}
	}
	return best
}

const kEpsilon = 1e-15
