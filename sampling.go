package lgbm

import (
	"math"
	"math/rand"
	"sort"
)

// sampler draws the rows (bagging) and features (feature_fraction) used by
// each tree. It is seeded from the seed parameter, so runs are reproducible.
type sampler struct {
	rng             *rand.Rand
	featureFraction float64
	baggingFraction float64
	baggingFreq     int
	bag             []int
}

func newSampler(cfg *config) *sampler {
	return &sampler{
		rng:             rand.New(rand.NewSource(cfg.Seed)),
		featureFraction: cfg.FeatureFraction,
		baggingFraction: cfg.BaggingFraction,
		baggingFreq:     cfg.BaggingFreq,
	}
}

func (s *sampler) bagging() bool {
	return s.baggingFreq > 0 && s.baggingFraction < 1
}

// rows returns the in-bag row indices for an iteration. A new bag is drawn
// every baggingFreq iterations and reused in between.
func (s *sampler) rows(numData, iteration int) []int {
	if !s.bagging() {
		if len(s.bag) != numData {
			s.bag = identity(numData)
		}
		return s.bag
	}
	if s.bag == nil || iteration%s.baggingFreq == 0 {
		n := int(float64(numData) * s.baggingFraction)
		if n < 1 {
			n = 1
		}
		s.bag = s.draw(numData, n)
	}
	return s.bag
}

// features samples from the candidate features for one tree.
func (s *sampler) features(candidates []int) []int {
	if s.featureFraction >= 1 || len(candidates) == 0 {
		return candidates
	}
	n := int(math.Round(float64(len(candidates)) * s.featureFraction))
	if n < 1 {
		n = 1
	}
	picked := s.draw(len(candidates), n)
	out := make([]int, n)
	for i, p := range picked {
		out[i] = candidates[p]
	}
	return out
}

// draw picks n of [0, total) without replacement (partial Fisher-Yates) and
// returns them sorted.
func (s *sampler) draw(total, n int) []int {
	perm := identity(total)
	for i := 0; i < n; i++ {
		j := i + s.rng.Intn(total-i)
		perm[i], perm[j] = perm[j], perm[i]
	}
	out := perm[:n]
	sort.Ints(out)
	return out
}

func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
