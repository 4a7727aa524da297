package lgbm

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/lgbm/pkg/errors"
)

// objective supplies per-row first and second order derivatives of a loss
// with respect to the raw score.
type objective interface {
	// Name returns the canonical objective name.
	Name() string

	// Gradient and Hessian are evaluated at raw score s for label y.
	Gradient(s, y float64) float64
	Hessian(s, y float64) float64

	// InitScore is the constant raw score that minimises the loss.
	InitScore(label []float64, weight []float64) float64

	// Transform converts a raw score into the prediction space.
	Transform(raw float64) float64

	// CheckLabels rejects labels outside the objective's domain.
	CheckLabels(label []float32) error
}

func newObjective(cfg config) (objective, error) {
	switch cfg.Objective {
	case objectiveRegression:
		return l2Objective{}, nil
	case objectiveRegressionL1:
		return l1Objective{}, nil
	case objectiveHuber:
		return huberObjective{delta: cfg.HuberDelta}, nil
	case objectiveBinary:
		return binaryObjective{sigmoid: cfg.Sigmoid}, nil
	case objectivePoisson:
		return poissonObjective{maxDeltaStep: 0.7}, nil
	}
	return nil, errors.NewValidationError("objective", "unsupported objective", cfg.Objective)
}

// weightsOrNil widens optional weights. nil stays nil, which gonum's stat
// treats as uniform weighting.
func weightsOrNil(weight []float32) []float64 {
	if weight == nil {
		return nil
	}
	out, _ := widen(weight)
	return out
}

type l2Objective struct{}

func (l2Objective) Name() string                    { return objectiveRegression }
func (l2Objective) Gradient(s, y float64) float64   { return s - y }
func (l2Objective) Hessian(_, _ float64) float64    { return 1 }
func (l2Objective) Transform(raw float64) float64   { return raw }
func (l2Objective) CheckLabels(label []float32) error { return nil }

func (l2Objective) InitScore(label, weight []float64) float64 {
	return stat.Mean(label, weight)
}

// l1Objective uses a unit hessian so leaf outputs become mean signed residuals.
type l1Objective struct{}

func (l1Objective) Name() string                    { return objectiveRegressionL1 }
func (l1Objective) Hessian(_, _ float64) float64    { return 1 }
func (l1Objective) Transform(raw float64) float64   { return raw }
func (l1Objective) CheckLabels(label []float32) error { return nil }

func (l1Objective) Gradient(s, y float64) float64 {
	diff := s - y
	switch {
	case diff > 0:
		return 1
	case diff < 0:
		return -1
	}
	return 0
}

func (l1Objective) InitScore(label, weight []float64) float64 {
	return weightedMedian(label, weight)
}

type huberObjective struct {
	delta float64
}

func (o huberObjective) Name() string                    { return objectiveHuber }
func (o huberObjective) Hessian(_, _ float64) float64    { return 1 }
func (o huberObjective) Transform(raw float64) float64   { return raw }
func (o huberObjective) CheckLabels(label []float32) error { return nil }

func (o huberObjective) Gradient(s, y float64) float64 {
	diff := s - y
	if math.Abs(diff) <= o.delta {
		return diff
	}
	return math.Copysign(o.delta, diff)
}

func (o huberObjective) InitScore(label, weight []float64) float64 {
	return stat.Mean(label, weight)
}

type binaryObjective struct {
	sigmoid float64
}

func (o binaryObjective) Name() string { return objectiveBinary }

func (o binaryObjective) prob(s float64) float64 {
	return 1 / (1 + math.Exp(-o.sigmoid*s))
}

func (o binaryObjective) Gradient(s, y float64) float64 {
	return o.sigmoid * (o.prob(s) - y)
}

func (o binaryObjective) Hessian(s, _ float64) float64 {
	p := o.prob(s)
	return math.Max(o.sigmoid*o.sigmoid*p*(1-p), 1e-16)
}

func (o binaryObjective) InitScore(label, weight []float64) float64 {
	p := errors.ClipValue(stat.Mean(label, weight), 1e-15, 1-1e-15)
	return math.Log(p/(1-p)) / o.sigmoid
}

func (o binaryObjective) Transform(raw float64) float64 { return o.prob(raw) }

func (o binaryObjective) CheckLabels(label []float32) error {
	for i, y := range label {
		if y != 0 && y != 1 {
			return errors.NewValidationError("label", fmt.Sprintf("binary objective requires labels in {0, 1}, row %d", i), y)
		}
	}
	return nil
}

// poissonObjective models log(mean); the hessian carries the max_delta_step
// safeguard used by LightGBM.
type poissonObjective struct {
	maxDeltaStep float64
}

func (o poissonObjective) Name() string { return objectivePoisson }

func (o poissonObjective) Gradient(s, y float64) float64 {
	return errors.StabilizeExp(s) - y
}

func (o poissonObjective) Hessian(s, _ float64) float64 {
	return errors.StabilizeExp(s + o.maxDeltaStep)
}

func (o poissonObjective) InitScore(label, weight []float64) float64 {
	return errors.StabilizeLog(stat.Mean(label, weight))
}

func (o poissonObjective) Transform(raw float64) float64 { return errors.StabilizeExp(raw) }

func (o poissonObjective) CheckLabels(label []float32) error {
	sum := 0.0
	for i, y := range label {
		if y < 0 {
			return errors.NewValidationError("label", fmt.Sprintf("poisson objective requires non-negative labels, row %d", i), y)
		}
		sum += float64(y)
	}
	if sum == 0 {
		return errors.NewValidationError("label", "poisson objective requires at least one positive label", sum)
	}
	return nil
}

func weightedMedian(values, weight []float64) float64 {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })

	total := 0.0
	for i := range values {
		total += weightAt(weight, i)
	}
	half := total / 2
	acc := 0.0
	for k, i := range idx {
		acc += weightAt(weight, i)
		if acc > half {
			return values[i]
		}
		if acc == half && k+1 < len(idx) {
			return (values[i] + values[idx[k+1]]) / 2
		}
	}
	return values[idx[len(idx)-1]]
}

func weightAt(weight []float64, i int) float64 {
	if weight == nil {
		return 1
	}
	return weight[i]
}
