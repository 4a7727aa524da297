package lgbm

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/lgbm/core/parallel"
	"github.com/YuminosukeSato/lgbm/metrics"
	"github.com/YuminosukeSato/lgbm/pkg/errors"
	"github.com/YuminosukeSato/lgbm/pkg/log"
)

// PredictType selects what PredictForMat returns.
type PredictType int

const (
	// PredictNormal applies the objective's output transform.
	PredictNormal PredictType = iota
	// PredictRawScore returns untransformed scores.
	PredictRawScore
	// PredictLeafIndex returns the leaf reached in every tree.
	PredictLeafIndex
	// PredictContrib would return SHAP values; it is not supported.
	PredictContrib
)

// ImportanceType selects how FeatureImportance aggregates splits.
type ImportanceType int

const (
	// ImportanceSplit counts how often a feature is used.
	ImportanceSplit ImportanceType = iota
	// ImportanceGain sums the gains of the splits using a feature.
	ImportanceGain
)

// Booster is a gradient boosted tree ensemble bound to a training Dataset.
// Predictions may run concurrently; updates are exclusive.
type Booster struct {
	mu sync.RWMutex

	id     string
	cfg    config
	obj    objective
	logger log.Logger

	train       *Dataset
	learner     *treeLearner
	sampler     *sampler
	trainScore  []float64
	valid       []*Dataset
	validScores [][]float64

	trees        []*tree
	numFeature   int
	featureNames []string
	bestIter     int
}

// NewBooster creates a booster on a training dataset. Parameters given here
// override those the dataset was built with.
// This is equivalent to LGBM_BoosterCreate in the C API.
func NewBooster(train *Dataset, p *Parameters) (*Booster, error) {
	const op = "NewBooster"
	if train == nil {
		return nil, errors.NewValueError(op, "training dataset is nil")
	}

	cfg, err := resolve(train.params.Merge(p))
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	obj, err := newObjective(cfg)
	if err != nil {
		return nil, err
	}

	train.mu.RLock()
	label := train.label
	train.mu.RUnlock()
	if label == nil {
		return nil, errors.NewValidationError("label", "training dataset has no label field", nil)
	}
	if err := obj.CheckLabels(label); err != nil {
		return nil, errors.Wrap(err, op)
	}

	train.share()

	id := uuid.NewString()
	b := &Booster{
		id:  id,
		cfg: cfg,
		obj: obj,
		logger: componentLogger("lgbm.booster", cfg.Verbosity).With(
			log.BoosterIDKey, id,
			log.ObjectiveKey, obj.Name(),
		),
		train:        train,
		numFeature:   train.numFeature,
		featureNames: train.FeatureNames(),
		bestIter:     -1,
	}
	b.learner = newTreeLearner(train, &b.cfg)
	b.sampler = newSampler(&b.cfg)
	b.trainScore = startScore(train)

	b.logger.Info("Booster created",
		log.OperationKey, log.OperationNewBooster,
		log.SamplesKey, train.numData,
		log.FeaturesKey, train.numFeature,
	)
	return b, nil
}

// startScore is the dataset's init_score or zeros.
func startScore(ds *Dataset) []float64 {
	score := make([]float64, ds.numData)
	if ds.initScore != nil {
		copy(score, ds.initScore[:ds.numData])
	}
	return score
}

// ID returns the booster's log correlation id.
func (b *Booster) ID() string { return b.id }

// NumFeature returns the number of features the model expects.
func (b *Booster) NumFeature() int { return b.numFeature }

// NumClasses returns the number of model outputs per row.
func (b *Booster) NumClasses() int { return 1 }

// FeatureNames returns a copy of the model's feature names.
func (b *Booster) FeatureNames() []string {
	return append([]string(nil), b.featureNames...)
}

// NumTrees returns the number of trees in the model.
func (b *Booster) NumTrees() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.trees)
}

// CurrentIteration returns the number of completed boosting rounds.
func (b *Booster) CurrentIteration() int {
	return b.NumTrees()
}

// BestIteration returns the 1-based iteration with the best validation score
// seen by Train with early stopping, or -1.
func (b *Booster) BestIteration() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bestIter
}

// AddValidData registers a validation dataset for Eval and early stopping.
// This is equivalent to LGBM_BoosterAddValidData in the C API.
func (b *Booster) AddValidData(ds *Dataset) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.train == nil {
		return errors.NewNotFittedError("Booster", "AddValidData")
	}
	if ds == nil {
		return errors.NewValueError("AddValidData", "validation dataset is nil")
	}
	if ds.numFeature != b.numFeature {
		return errors.NewDimensionError("AddValidData", b.numFeature, ds.numFeature, 1)
	}
	ds.mu.RLock()
	hasLabel := ds.label != nil
	ds.mu.RUnlock()
	if !hasLabel {
		return errors.NewValidationError("label", "validation dataset has no label field", nil)
	}
	ds.share()

	score := startScore(ds)
	for _, t := range b.trees {
		addTreeRaw(score, ds, t, b.cfg.NumThreads)
	}
	b.valid = append(b.valid, ds)
	b.validScores = append(b.validScores, score)
	return nil
}

// UpdateOneIter runs one boosting round. finished is true when no further
// split is possible; in that case no tree is added, except on the first
// round, where a constant tree carrying the init score is kept.
// This is equivalent to LGBM_BoosterUpdateOneIter in the C API.
func (b *Booster) UpdateOneIter() (finished bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	defer errors.Recover(&err, "Booster.UpdateOneIter")

	if b.train == nil {
		return false, errors.NewNotFittedError("Booster", "UpdateOneIter")
	}
	start := time.Now()
	iter := len(b.trees)
	ds := b.train

	var bias float64
	if iter == 0 && b.cfg.BoostFromAverage && ds.initScore == nil {
		label, _ := widen(ds.label)
		bias = b.obj.InitScore(label, weightsOrNil(ds.weight))
		if err := errors.CheckScalar("init_score", bias, iter); err != nil {
			return false, err
		}
	}

	grad, hess := b.gradients(bias)
	if err := errors.CheckNumericalStability("gradients", grad, iter); err != nil {
		return false, err
	}
	if err := errors.CheckNumericalStability("hessians", hess, iter); err != nil {
		return false, err
	}
	if bias != 0 {
		b.addConstant(bias)
		b.logger.Info("Start training from score", "init_score", bias)
	}

	rows := b.sampler.rows(ds.numData, iter)
	features := b.sampler.features(b.learner.usefulFeatures())
	t := b.learner.train(grad, hess, rows, features)
	if t == nil {
		if bias != 0 {
			b.trees = append(b.trees, newConstantTree(bias))
		}
		b.logger.Warn("Stopped training because there are no more leaves that meet the split requirements",
			log.IterationKey, iter+1)
		return true, nil
	}

	t.shrink(b.cfg.LearningRate)
	addTreeBinned(b.trainScore, ds, t, b.cfg.NumThreads)
	for i, vd := range b.valid {
		addTreeRaw(b.validScores[i], vd, t, b.cfg.NumThreads)
	}
	// scores already hold the bias; fold it into the stored tree afterwards
	if bias != 0 {
		t.addBias(bias)
	}
	b.trees = append(b.trees, t)

	b.logger.Debug("Tree trained",
		log.OperationKey, log.OperationUpdate,
		log.IterationKey, iter+1,
		log.LeavesKey, t.NumLeaves,
		log.DepthKey, t.maxDepth(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return false, nil
}

func (b *Booster) addConstant(v float64) {
	for i := range b.trainScore {
		b.trainScore[i] += v
	}
	for _, s := range b.validScores {
		for i := range s {
			s[i] += v
		}
	}
}

// gradients evaluates the objective at the current training scores shifted
// by bias. The scores themselves are left untouched.
func (b *Booster) gradients(bias float64) (grad, hess []float64) {
	ds := b.train
	n := ds.numData
	grad = make([]float64, n)
	hess = make([]float64, n)
	parallel.ParallelizeWithThreshold(n, minRowsForParallel, b.cfg.NumThreads, func(start, end int) {
		for i := start; i < end; i++ {
			y := float64(ds.label[i])
			s := b.trainScore[i] + bias
			grad[i] = b.obj.Gradient(s, y)
			hess[i] = b.obj.Hessian(s, y)
			if ds.weight != nil {
				w := float64(ds.weight[i])
				grad[i] *= w
				hess[i] *= w
			}
		}
	})
	return grad, hess
}

func addTreeBinned(score []float64, ds *Dataset, t *tree, threads int) {
	parallel.ParallelizeWithThreshold(len(score), minRowsForParallel, threads, func(start, end int) {
		for i := start; i < end; i++ {
			score[i] += t.LeafValue[t.leafIndexBinned(ds, i)]
		}
	})
}

func addTreeRaw(score []float64, ds *Dataset, t *tree, threads int) {
	parallel.ParallelizeWithThreshold(len(score), minRowsForParallel, threads, func(start, end int) {
		for i := start; i < end; i++ {
			score[i] += t.predict(ds.rawRow(i))
		}
	})
}

// Train runs up to numIterations boosting rounds (num_iterations when
// numIterations <= 0). With early_stopping_round set and a validation set
// registered, training stops once the first metric on the first validation
// set has not improved for that many rounds. It returns the number of rounds
// that added a tree.
func (b *Booster) Train(ctx context.Context, numIterations int) (int, error) {
	if numIterations <= 0 {
		numIterations = b.cfg.NumIterations
	}
	logger := b.logger.With(log.OperationKey, log.OperationTrain)
	before := b.NumTrees()

	// each call starts a fresh early-stopping window
	best := math.Inf(1)
	b.mu.Lock()
	b.bestIter = -1
	b.mu.Unlock()
	for i := 0; i < numIterations; i++ {
		select {
		case <-ctx.Done():
			return b.NumTrees() - before, errors.Wrap(ctx.Err(), "train")
		default:
		}

		finished, err := b.UpdateOneIter()
		if err != nil {
			logger.Error("UpdateOneIter failed", err, log.IterationKey, b.NumTrees()+1)
			return b.NumTrees() - before, err
		}
		if finished {
			break
		}
		iter := b.NumTrees()

		if b.cfg.EarlyStoppingRound == 0 || len(b.valid) == 0 || len(b.cfg.Metrics) == 0 {
			continue
		}
		res, err := b.Eval(1)
		if err != nil {
			return iter - before, err
		}
		name := b.cfg.Metrics[0]
		v := res[name]
		if v < best {
			best = v
			b.mu.Lock()
			b.bestIter = iter
			b.mu.Unlock()
		} else if iter-b.BestIteration() >= b.cfg.EarlyStoppingRound {
			logger.Info("Early stopping",
				log.IterationKey, iter,
				"best_iteration", b.BestIteration(),
				log.MetricKey, name,
				log.MetricValueKey, best,
			)
			break
		}
	}
	return b.NumTrees() - before, nil
}

// RollbackOneIter removes the last tree and its contribution to the scores.
// This is equivalent to LGBM_BoosterRollbackOneIter in the C API.
func (b *Booster) RollbackOneIter() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.train == nil {
		return errors.NewNotFittedError("Booster", "RollbackOneIter")
	}
	if len(b.trees) == 0 {
		return errors.NewValueError("RollbackOneIter", "model has no trees")
	}
	t := b.trees[len(b.trees)-1]
	neg := t.clone()
	neg.shrink(-1)
	addTreeBinned(b.trainScore, b.train, neg, b.cfg.NumThreads)
	for i, vd := range b.valid {
		addTreeRaw(b.validScores[i], vd, neg, b.cfg.NumThreads)
	}
	b.trees = b.trees[:len(b.trees)-1]
	if b.bestIter > len(b.trees) {
		b.bestIter = len(b.trees)
	}
	return nil
}

// Eval computes the configured metrics on the training data (dataIdx 0) or
// on the dataIdx-th validation set.
// This is equivalent to LGBM_BoosterGetEval in the C API.
func (b *Booster) Eval(dataIdx int) (map[string]float64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.train == nil {
		return nil, errors.NewNotFittedError("Booster", "Eval")
	}
	if dataIdx < 0 || dataIdx > len(b.valid) {
		return nil, errors.NewValidationError("data_idx", "no such dataset", dataIdx)
	}

	ds, score := b.train, b.trainScore
	if dataIdx > 0 {
		ds, score = b.valid[dataIdx-1], b.validScores[dataIdx-1]
	}

	n := ds.numData
	label, _ := widen(ds.label)
	pred := make([]float64, n)
	for i, s := range score {
		pred[i] = b.obj.Transform(s)
	}
	yTrue := mat.NewVecDense(n, label)
	yPred := mat.NewVecDense(n, pred)
	var w *mat.VecDense
	if ds.weight != nil {
		ws, _ := widen(ds.weight)
		w = mat.NewVecDense(n, ws)
	}

	out := make(map[string]float64, len(b.cfg.Metrics))
	for _, name := range b.cfg.Metrics {
		var v float64
		var err error
		switch name {
		case metricL2:
			v, err = metrics.MSE(yTrue, yPred, w)
		case metricRMSE:
			v, err = metrics.RMSE(yTrue, yPred, w)
		case metricL1:
			v, err = metrics.MAE(yTrue, yPred, w)
		case metricHuber:
			v, err = metrics.Huber(yTrue, yPred, w, b.cfg.HuberDelta)
		case metricBinaryLogloss:
			v, err = metrics.BinaryLogLoss(yTrue, yPred, w)
		case metricBinaryError:
			v, err = metrics.BinaryError(yTrue, yPred, w)
		case metricPoisson:
			v, err = metrics.PoissonNLL(yTrue, yPred, w)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "eval %s", name)
		}
		out[name] = v
		b.logger.Debug("Evaluated",
			log.OperationKey, log.OperationEval,
			log.DatasetIndexKey, dataIdx,
			log.MetricKey, name,
			log.MetricValueKey, v,
		)
	}
	return out, nil
}

// PredictForMat scores every row of m with trees
// [startIteration, startIteration+numIteration). numIteration <= 0 means all
// remaining trees. PredictLeafIndex returns a row-major rows x trees matrix.
// This is equivalent to LGBM_BoosterPredictForMat in the C API.
func (b *Booster) PredictForMat(m *MatBuf, kind PredictType, startIteration, numIteration int) (out []float64, err error) {
	const op = "PredictForMat"
	b.mu.RLock()
	defer b.mu.RUnlock()
	defer errors.Recover(&err, "Booster.PredictForMat")

	switch kind {
	case PredictNormal, PredictRawScore, PredictLeafIndex:
	case PredictContrib:
		return nil, errors.Wrap(errors.ErrNotImplemented, "feature contributions")
	default:
		return nil, errors.NewValidationError("predict_type", "unknown prediction type", int(kind))
	}
	if m == nil || m.Rows() == 0 {
		return []float64{}, nil
	}
	if m.Cols() != b.numFeature {
		return nil, errors.NewDimensionError(op, b.numFeature, m.Cols(), 1)
	}
	if startIteration < 0 {
		return nil, errors.NewValidationError("start_iteration", "must be >= 0", startIteration)
	}

	trees := b.trees[min(startIteration, len(b.trees)):]
	if numIteration > 0 && numIteration < len(trees) {
		trees = trees[:numIteration]
	}

	nrow := m.Rows()
	if kind == PredictLeafIndex {
		nt := len(trees)
		out = make([]float64, nrow*nt)
		parallel.ParallelizeWithThreshold(nrow, minRowsForParallel, b.cfg.NumThreads, func(start, end int) {
			for i := start; i < end; i++ {
				row := m.row(i)
				for k, t := range trees {
					out[i*nt+k] = float64(t.leafIndex(row))
				}
			}
		})
		return out, nil
	}

	out = make([]float64, nrow)
	parallel.ParallelizeWithThreshold(nrow, minRowsForParallel, b.cfg.NumThreads, func(start, end int) {
		for i := start; i < end; i++ {
			row := m.row(i)
			s := 0.0
			for _, t := range trees {
				s += t.predict(row)
			}
			if kind == PredictNormal {
				s = b.obj.Transform(s)
			}
			out[i] = s
		}
	})
	b.logger.Debug("Predicted",
		log.OperationKey, log.OperationPredict,
		log.SamplesKey, nrow,
		log.TreesKey, len(trees),
	)
	return out, nil
}

// FeatureImportance aggregates splits of the first numIteration trees
// (all trees when numIteration <= 0).
// This is equivalent to LGBM_BoosterFeatureImportance in the C API.
func (b *Booster) FeatureImportance(numIteration int, kind ImportanceType) []float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	trees := b.trees
	if numIteration > 0 && numIteration < len(trees) {
		trees = trees[:numIteration]
	}
	out := make([]float64, b.numFeature)
	for _, t := range trees {
		for n, f := range t.SplitFeature {
			if kind == ImportanceGain {
				out[f] += t.SplitGain[n]
			} else {
				out[f]++
			}
		}
	}
	return out
}
