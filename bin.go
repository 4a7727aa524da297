package lgbm

import (
	"math"
	"sort"
)

// binMapper maps raw feature values to histogram bins.
// Bin i holds values v with upperBounds[i-1] < v <= upperBounds[i]; the last
// non-missing bin is unbounded. When the feature has NaN values an extra
// missing bin is appended after the numeric ones.
type binMapper struct {
	UpperBounds []float64 `json:"upper_bounds"`
	HasMissing  bool      `json:"has_missing"`
	MinValue    float64   `json:"min_value"`
	MaxValue    float64   `json:"max_value"`
}

// newBinMapper finds bin boundaries for one feature column.
func newBinMapper(values []float64, maxBin, minDataInBin int) *binMapper {
	m := &binMapper{}
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) {
			m.HasMissing = true
			continue
		}
		finite = append(finite, v)
	}
	numericBins := maxBin
	if m.HasMissing {
		numericBins--
	}
	if len(finite) == 0 {
		m.UpperBounds = []float64{math.Inf(1)}
		return m
	}
	sort.Float64s(finite)
	m.MinValue = finite[0]
	m.MaxValue = finite[len(finite)-1]

	distinct, counts := distinctValues(finite)
	if len(distinct) <= numericBins {
		m.UpperBounds = boundsFromDistinct(distinct, counts, minDataInBin)
	} else {
		m.UpperBounds = boundsByFrequency(distinct, counts, len(finite), numericBins, minDataInBin)
	}
	return m
}

func distinctValues(sorted []float64) ([]float64, []int) {
	distinct := []float64{sorted[0]}
	counts := []int{1}
	for _, v := range sorted[1:] {
		if v == distinct[len(distinct)-1] {
			counts[len(counts)-1]++
			continue
		}
		distinct = append(distinct, v)
		counts = append(counts, 1)
	}
	return distinct, counts
}

// boundsFromDistinct cuts between distinct values once a bin holds at least
// minDataInBin rows. Cut points are midpoints so that unseen values between
// two training values fall on the nearer side.
func boundsFromDistinct(distinct []float64, counts []int, minDataInBin int) []float64 {
	var bounds []float64
	inBin := 0
	for i := 0; i < len(distinct)-1; i++ {
		inBin += counts[i]
		if inBin >= minDataInBin {
			bounds = append(bounds, (distinct[i]+distinct[i+1])/2)
			inBin = 0
		}
	}
	return append(bounds, math.Inf(1))
}

// boundsByFrequency greedily packs distinct values into roughly equal
// frequency bins, never splitting a distinct value across two bins.
func boundsByFrequency(distinct []float64, counts []int, total, maxBins, minDataInBin int) []float64 {
	target := float64(total) / float64(maxBins)
	if target < float64(minDataInBin) {
		target = float64(minDataInBin)
	}
	var bounds []float64
	inBin := 0
	rest := total
	for i := 0; i < len(distinct)-1 && len(bounds) < maxBins-1; i++ {
		inBin += counts[i]
		rest -= counts[i]
		if float64(inBin) >= target {
			bounds = append(bounds, (distinct[i]+distinct[i+1])/2)
			inBin = 0
			remaining := maxBins - 1 - len(bounds)
			if remaining > 0 {
				target = math.Max(float64(rest)/float64(remaining+1), float64(minDataInBin))
			}
		}
	}
	return append(bounds, math.Inf(1))
}

// NumBins counts numeric bins plus the missing bin if present.
func (m *binMapper) NumBins() int {
	n := len(m.UpperBounds)
	if m.HasMissing {
		n++
	}
	return n
}

// missingBin returns the index of the NaN bin, or -1.
func (m *binMapper) missingBin() int {
	if !m.HasMissing {
		return -1
	}
	return len(m.UpperBounds)
}

// trivial reports whether the feature cannot be split on.
func (m *binMapper) trivial() bool {
	return len(m.UpperBounds) < 2
}

func (m *binMapper) valueToBin(v float64) uint16 {
	if math.IsNaN(v) {
		if m.HasMissing {
			return uint16(len(m.UpperBounds))
		}
		// unseen NaN behaves like the lowest bin, matching left routing
		return 0
	}
	return uint16(sort.SearchFloat64s(m.UpperBounds, v))
}

// threshold returns the raw value used by the tree for a split after bin b.
func (m *binMapper) threshold(b int) float64 {
	return m.UpperBounds[b]
}
