package lgbm

import (
	"bytes"
	"context"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/lgbm/pkg/errors"
	"github.com/YuminosukeSato/lgbm/pkg/log"
)

func newSmokeBooster(t *testing.T, p *Parameters) *Booster {
	t.Helper()
	ds := newSmokeDataset(t, p)
	b, err := NewBooster(ds, p)
	require.NoError(t, err)
	return b
}

func smokeMat(t *testing.T, n int) *MatBuf {
	t.Helper()
	m, err := MatFromRows(smokeRows(n))
	require.NoError(t, err)
	return m
}

func TestBoosterTrainSmoke(t *testing.T) {
	b := newSmokeBooster(t, quiet())

	before, err := b.Eval(0)
	require.NoError(t, err)
	assert.InDelta(t, 211.0/128.0, before[metricL2], 1e-9)

	n, err := b.Train(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 50, n)
	assert.Equal(t, 50, b.CurrentIteration())

	after, err := b.Eval(0)
	require.NoError(t, err)
	assert.Less(t, after[metricL2], 1e-3)

	pred, err := b.PredictForMat(smokeMat(t, 6), PredictNormal, 0, -1)
	require.NoError(t, err)
	require.Len(t, pred, 6)
	for x, p := range pred {
		assert.InDelta(t, float64(x%3), p, 0.01, "row %d", x)
	}
}

func TestBoosterUpdateOneIter(t *testing.T) {
	b := newSmokeBooster(t, quiet())

	finished, err := b.UpdateOneIter()
	require.NoError(t, err)
	assert.False(t, finished)
	assert.Equal(t, 1, b.NumTrees())

	// three pure leaves, each moved 10% of the way from the mean
	pred, err := b.PredictForMat(smokeMat(t, 3), PredictRawScore, 0, -1)
	require.NoError(t, err)
	mean := 127.0 / 128.0
	for x, p := range pred {
		want := mean + 0.1*(float64(x)-mean)
		assert.InDelta(t, want, p, 1e-9, "row %d", x)
	}

	assert.Equal(t, []float64{2}, b.FeatureImportance(-1, ImportanceSplit))
	gain := b.FeatureImportance(-1, ImportanceGain)
	require.Len(t, gain, 1)
	assert.Greater(t, gain[0], 0.0)
}

func TestBoosterConstantFeature(t *testing.T) {
	m, err := MatFromRows([][]float64{{1}, {1}, {1}, {1}})
	require.NoError(t, err)

	t.Run("first round keeps the init score", func(t *testing.T) {
		ds, err := DatasetFromMat(m, nil, quiet())
		require.NoError(t, err)
		require.NoError(t, ds.SetField(FieldLabel, []float32{0, 1, 1, 2}))
		b, err := NewBooster(ds, quiet())
		require.NoError(t, err)

		finished, err := b.UpdateOneIter()
		require.NoError(t, err)
		assert.True(t, finished)
		require.Equal(t, 1, b.NumTrees())

		pred, err := b.PredictForMat(m, PredictNormal, 0, -1)
		require.NoError(t, err)
		for _, p := range pred {
			assert.InDelta(t, 1.0, p, 1e-12)
		}

		finished, err = b.UpdateOneIter()
		require.NoError(t, err)
		assert.True(t, finished)
		assert.Equal(t, 1, b.NumTrees())
	})

	t.Run("without boost_from_average", func(t *testing.T) {
		p := quiet().Set("boost_from_average", false)
		ds, err := DatasetFromMat(m, nil, p)
		require.NoError(t, err)
		require.NoError(t, ds.SetField(FieldLabel, []float32{0, 1, 1, 2}))
		b, err := NewBooster(ds, p)
		require.NoError(t, err)

		finished, err := b.UpdateOneIter()
		require.NoError(t, err)
		assert.True(t, finished)
		assert.Equal(t, 0, b.NumTrees())
	})
}

// twoFeatureData returns rows with two informative features.
func twoFeatureData(n int) ([][]float64, []float32) {
	rows := make([][]float64, n)
	labels := make([]float32, n)
	for x := range rows {
		a := float64(x % 7)
		c := float64((x * 31) % 11)
		rows[x] = []float64{a, c}
		labels[x] = float32(a + 0.5*c)
	}
	return rows, labels
}

func TestBoosterSamplingIsReproducible(t *testing.T) {
	rows, labels := twoFeatureData(300)
	m, err := MatFromRows(rows)
	require.NoError(t, err)

	p := quiet().
		Set("bagging_fraction", 0.5).
		Set("bagging_freq", 1).
		Set("feature_fraction", 0.5).
		Set("min_data_in_leaf", 5).
		Set("seed", 7)

	run := func() []float64 {
		ds, err := DatasetFromMat(m, nil, p)
		require.NoError(t, err)
		require.NoError(t, ds.SetField(FieldLabel, labels))
		b, err := NewBooster(ds, p)
		require.NoError(t, err)
		_, err = b.Train(context.Background(), 20)
		require.NoError(t, err)
		pred, err := b.PredictForMat(m, PredictRawScore, 0, -1)
		require.NoError(t, err)
		return pred
	}

	first := run()
	assert.Equal(t, first, run())

	before := make([]float64, len(labels))
	for i, y := range labels {
		before[i] = float64(y)
	}
	var sse float64
	for i := range first {
		d := first[i] - before[i]
		sse += d * d
	}
	assert.Less(t, sse/float64(len(first)), 1.0)
}

func TestBoosterValidation(t *testing.T) {
	b := newSmokeBooster(t, quiet())
	train := b.train

	vm := smokeMat(t, 30)
	valid, err := DatasetFromMat(vm, train, quiet())
	require.NoError(t, err)

	err = b.AddValidData(valid)
	var ve *errors.ValidationError
	require.True(t, errors.As(err, &ve), "validation data without labels must be rejected")

	require.NoError(t, valid.SetField(FieldLabel, smokeLabels(30)))
	require.NoError(t, b.AddValidData(valid))
	assert.True(t, errors.Is(valid.SetField(FieldLabel, smokeLabels(30)), ErrDatasetInUse))

	_, err = b.Train(context.Background(), 10)
	require.NoError(t, err)

	res, err := b.Eval(1)
	require.NoError(t, err)
	assert.Contains(t, res, metricL2)
	assert.Less(t, res[metricL2], 0.5)

	_, err = b.Eval(2)
	assert.Error(t, err)
	_, err = b.Eval(-1)
	assert.Error(t, err)

	assert.Error(t, b.AddValidData(nil))

	wide, err := MatFromRows([][]float64{{0, 1}})
	require.NoError(t, err)
	wideDS, err := DatasetFromMat(wide, nil, quiet())
	require.NoError(t, err)
	var de *errors.DimensionError
	assert.True(t, errors.As(b.AddValidData(wideDS), &de))
}

func TestBoosterValidationAddedLate(t *testing.T) {
	b := newSmokeBooster(t, quiet())
	_, err := b.Train(context.Background(), 5)
	require.NoError(t, err)

	valid := newSmokeDataset(t, quiet())
	require.NoError(t, b.AddValidData(valid))

	train, err := b.Eval(0)
	require.NoError(t, err)
	late, err := b.Eval(1)
	require.NoError(t, err)
	assert.InDelta(t, train[metricL2], late[metricL2], 1e-9)
}

func TestBoosterEarlyStopping(t *testing.T) {
	tl := captureLogs(t)
	p := NewParameters().Set("verbosity", 1).Set("early_stopping_round", 3)
	b := newSmokeBooster(t, p)

	valid, err := DatasetFromMat(smokeMat(t, 128), b.train, p)
	require.NoError(t, err)
	reversed := make([]float32, 128)
	for x := range reversed {
		reversed[x] = float32(2 - x%3)
	}
	require.NoError(t, valid.SetField(FieldLabel, reversed))
	require.NoError(t, b.AddValidData(valid))

	n, err := b.Train(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 1, b.BestIteration())
	assert.True(t, tl.ContainsMessage("Early stopping"))
}

func TestBoosterEarlyStoppingWindowPerTrain(t *testing.T) {
	p := quiet().Set("early_stopping_round", 3)
	b := newSmokeBooster(t, p)

	valid, err := DatasetFromMat(smokeMat(t, 128), b.train, p)
	require.NoError(t, err)
	reversed := make([]float32, 128)
	for x := range reversed {
		reversed[x] = float32(2 - x%3)
	}
	require.NoError(t, valid.SetField(FieldLabel, reversed))
	require.NoError(t, b.AddValidData(valid))

	n, err := b.Train(context.Background(), 50)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, 1, b.BestIteration())

	// patience restarts from the first round of the new call
	n, err = b.Train(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 5, b.BestIteration())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.Train(ctx, 50)
	require.Error(t, err)
	assert.Equal(t, -1, b.BestIteration())
}

func TestBoosterTrainCancelled(t *testing.T) {
	b := newSmokeBooster(t, quiet())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := b.Train(ctx, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, b.NumTrees())
}

func TestBoosterRollback(t *testing.T) {
	b := newSmokeBooster(t, quiet())

	err := b.RollbackOneIter()
	var vErr *errors.ValueError
	assert.True(t, errors.As(err, &vErr))

	_, err = b.Train(context.Background(), 4)
	require.NoError(t, err)
	at4, err := b.Eval(0)
	require.NoError(t, err)
	pred4, err := b.PredictForMat(smokeMat(t, 3), PredictRawScore, 0, -1)
	require.NoError(t, err)

	_, err = b.UpdateOneIter()
	require.NoError(t, err)
	require.NoError(t, b.RollbackOneIter())
	assert.Equal(t, 4, b.NumTrees())

	again, err := b.Eval(0)
	require.NoError(t, err)
	assert.InDelta(t, at4[metricL2], again[metricL2], 1e-9)
	predAgain, err := b.PredictForMat(smokeMat(t, 3), PredictRawScore, 0, -1)
	require.NoError(t, err)
	assert.InDeltaSlice(t, pred4, predAgain, 1e-12)
}

func TestBoosterPredictForMat(t *testing.T) {
	b := newSmokeBooster(t, quiet())
	_, err := b.Train(context.Background(), 5)
	require.NoError(t, err)
	m := smokeMat(t, 9)

	t.Run("leaf index", func(t *testing.T) {
		leaves, err := b.PredictForMat(m, PredictLeafIndex, 0, -1)
		require.NoError(t, err)
		require.Len(t, leaves, 9*5)
		for i := 0; i < 9; i++ {
			for k := 1; k < 5; k++ {
				assert.Equal(t, leaves[i*5], leaves[i*5+k], "row %d tree %d", i, k)
			}
		}
		assert.NotEqual(t, leaves[0], leaves[5])
	})

	t.Run("iteration ranges add up", func(t *testing.T) {
		all, err := b.PredictForMat(m, PredictRawScore, 0, -1)
		require.NoError(t, err)
		head, err := b.PredictForMat(m, PredictRawScore, 0, 2)
		require.NoError(t, err)
		tail, err := b.PredictForMat(m, PredictRawScore, 2, 0)
		require.NoError(t, err)
		for i := range all {
			assert.InDelta(t, all[i], head[i]+tail[i], 1e-12)
		}

		past, err := b.PredictForMat(m, PredictRawScore, 10, -1)
		require.NoError(t, err)
		for _, v := range past {
			assert.Equal(t, 0.0, v)
		}
	})

	t.Run("invalid input", func(t *testing.T) {
		wide, err := MatFromRows([][]float64{{0, 1}})
		require.NoError(t, err)
		_, err = b.PredictForMat(wide, PredictNormal, 0, -1)
		var de *errors.DimensionError
		assert.True(t, errors.As(err, &de))

		_, err = b.PredictForMat(m, PredictContrib, 0, -1)
		assert.True(t, errors.Is(err, errors.ErrNotImplemented))

		_, err = b.PredictForMat(m, PredictType(9), 0, -1)
		assert.Error(t, err)

		_, err = b.PredictForMat(m, PredictNormal, -1, -1)
		var ve *errors.ValidationError
		assert.True(t, errors.As(err, &ve))
	})

	t.Run("empty input", func(t *testing.T) {
		empty, err := MatFromRows(nil)
		require.NoError(t, err)
		out, err := b.PredictForMat(empty, PredictNormal, 0, -1)
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("concurrent", func(t *testing.T) {
		want, err := b.PredictForMat(m, PredictNormal, 0, -1)
		require.NoError(t, err)

		var wg sync.WaitGroup
		results := make([][]float64, 8)
		for g := range results {
			wg.Add(1)
			go func(g int) {
				defer wg.Done()
				results[g], _ = b.PredictForMat(m, PredictNormal, 0, -1)
			}(g)
		}
		wg.Wait()
		for _, got := range results {
			assert.Equal(t, want, got)
		}
	})
}

func TestBoosterDumpAndLoad(t *testing.T) {
	b := newSmokeBooster(t, quiet())
	_, err := b.Train(context.Background(), 10)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, b.DumpModel(&buf))
	assert.Contains(t, buf.String(), `"objective": "regression"`)
	assert.Contains(t, buf.String(), `"feature_names"`)

	loaded, err := LoadModel(&buf)
	require.NoError(t, err)
	assert.Equal(t, 10, loaded.NumTrees())
	assert.Equal(t, b.FeatureNames(), loaded.FeatureNames())
	assert.NotEqual(t, b.ID(), loaded.ID())

	m := smokeMat(t, 12)
	want, err := b.PredictForMat(m, PredictNormal, 0, -1)
	require.NoError(t, err)
	got, err := loaded.PredictForMat(m, PredictNormal, 0, -1)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = loaded.UpdateOneIter()
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
	_, err = loaded.Eval(0)
	assert.True(t, errors.As(err, &nf))
	assert.True(t, errors.As(loaded.RollbackOneIter(), &nf))
}

func TestBoosterDumpAndLoadBinary(t *testing.T) {
	p := quiet().Set("objective", "binary").Set("sigmoid", 2)
	m := smokeMat(t, 128)
	ds, err := DatasetFromMat(m, nil, p)
	require.NoError(t, err)
	labels := make([]float32, 128)
	for x := range labels {
		if x%3 == 2 {
			labels[x] = 1
		}
	}
	require.NoError(t, ds.SetField(FieldLabel, labels))
	b, err := NewBooster(ds, p)
	require.NoError(t, err)
	_, err = b.Train(context.Background(), 5)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, b.DumpModel(&buf))
	assert.Contains(t, buf.String(), "binary sigmoid:2")

	loaded, err := LoadModel(strings.NewReader(buf.String()))
	require.NoError(t, err)
	want, err := b.PredictForMat(m, PredictNormal, 0, -1)
	require.NoError(t, err)
	got, err := loaded.PredictForMat(m, PredictNormal, 0, -1)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, got, 1e-12)
}

func TestLoadModelInvalid(t *testing.T) {
	tests := map[string]string{
		"not json":          "{",
		"unknown objective": `{"objective":"lambdarank","max_feature_idx":0,"feature_names":["a"],"tree_info":[]}`,
		"no features":       `{"objective":"regression","max_feature_idx":-1,"tree_info":[]}`,
		"names mismatch":    `{"objective":"regression","max_feature_idx":1,"feature_names":["a"],"tree_info":[]}`,
		"multiclass":        `{"objective":"regression","num_class":3,"max_feature_idx":0,"feature_names":["a"]}`,
		"bad leaf": `{"objective":"regression","max_feature_idx":0,"feature_names":["a"],
			"tree_info":[{"num_leaves":2,"tree_structure":{"split_feature":0,"threshold":1,
			"left_child":{"leaf_index":0},"right_child":{"leaf_index":0}}}]}`,
		"bad feature": `{"objective":"regression","max_feature_idx":0,"feature_names":["a"],
			"tree_info":[{"num_leaves":2,"tree_structure":{"split_feature":3,"threshold":1,
			"left_child":{"leaf_index":0},"right_child":{"leaf_index":1}}}]}`,
		"repeated split": `{"objective":"regression","max_feature_idx":0,"feature_names":["a"],
			"tree_info":[{"num_leaves":3,"tree_structure":{"split_index":0,"split_feature":0,"threshold":1,
			"left_child":{"split_index":0,"split_feature":0,"threshold":0.5,
				"left_child":{"leaf_index":0},"right_child":{"leaf_index":2}},
			"right_child":{"leaf_index":1}}}]}`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadModel(strings.NewReader(doc))
			require.Error(t, err)
			var me *errors.ModelError
			assert.True(t, errors.As(err, &me))
		})
	}
}

func TestBoosterBinary(t *testing.T) {
	p := quiet().Set("objective", "binary").Set("metric", "binary_error,binary_logloss")
	m := smokeMat(t, 128)
	ds, err := DatasetFromMat(m, nil, p)
	require.NoError(t, err)
	labels := make([]float32, 128)
	for x := range labels {
		if x%3 != 0 {
			labels[x] = 1
		}
	}
	require.NoError(t, ds.SetField(FieldLabel, labels))
	b, err := NewBooster(ds, p)
	require.NoError(t, err)

	_, err = b.Train(context.Background(), 30)
	require.NoError(t, err)
	res, err := b.Eval(0)
	require.NoError(t, err)
	assert.Less(t, res[metricBinaryError], 0.1)
	assert.Less(t, res[metricBinaryLogloss], math.Log(2))

	pred, err := b.PredictForMat(smokeMat(t, 3), PredictNormal, 0, -1)
	require.NoError(t, err)
	for _, v := range pred {
		assert.True(t, v > 0 && v < 1)
	}
	assert.Less(t, pred[0], 0.5)
	assert.Greater(t, pred[1], 0.5)
}

func TestNewBoosterErrors(t *testing.T) {
	_, err := NewBooster(nil, quiet())
	var vErr *errors.ValueError
	assert.True(t, errors.As(err, &vErr))

	unlabeled, err := DatasetFromMat(smokeMat(t, 10), nil, quiet())
	require.NoError(t, err)
	_, err = NewBooster(unlabeled, quiet())
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))

	// labels 0..2 are not valid for a binary objective
	ds := newSmokeDataset(t, quiet())
	_, err = NewBooster(ds, quiet().Set("objective", "binary"))
	assert.True(t, errors.As(err, &ve))

	_, err = NewBooster(ds, quiet().Set("num_leaves", 1))
	assert.True(t, errors.As(err, &ve))
}

func TestBoosterPoisson(t *testing.T) {
	p := quiet().Set("objective", "poisson")
	b := newSmokeBooster(t, p)
	_, err := b.Train(context.Background(), 30)
	require.NoError(t, err)

	pred, err := b.PredictForMat(smokeMat(t, 3), PredictNormal, 0, -1)
	require.NoError(t, err)
	for _, v := range pred {
		assert.Greater(t, v, 0.0)
	}
	assert.Less(t, pred[0], pred[1])
	assert.Less(t, pred[1], pred[2])
}

func TestBoosterWeights(t *testing.T) {
	plain := newSmokeBooster(t, quiet())

	ds := newSmokeDataset(t, quiet())
	w := make([]float32, 128)
	for i := range w {
		w[i] = 2
	}
	require.NoError(t, ds.SetField(FieldWeight, w))
	weighted, err := NewBooster(ds, quiet())
	require.NoError(t, err)

	for _, b := range []*Booster{plain, weighted} {
		_, err := b.Train(context.Background(), 5)
		require.NoError(t, err)
	}
	a, err := plain.Eval(0)
	require.NoError(t, err)
	c, err := weighted.Eval(0)
	require.NoError(t, err)
	assert.InDelta(t, a[metricL2], c[metricL2], 1e-9)
}

func TestBoosterInitScore(t *testing.T) {
	ds := newSmokeDataset(t, quiet())
	init := make([]float64, 128)
	for i := range init {
		init[i] = 1
	}
	require.NoError(t, ds.SetField(FieldInitScore, init))
	b, err := NewBooster(ds, quiet())
	require.NoError(t, err)

	res, err := b.Eval(0)
	require.NoError(t, err)
	assert.InDelta(t, 85.0/128.0, res[metricL2], 1e-9)

	_, err = b.Train(context.Background(), 20)
	require.NoError(t, err)
	after, err := b.Eval(0)
	require.NoError(t, err)
	assert.Less(t, after[metricL2], res[metricL2])
}

func TestBoosterMissingValues(t *testing.T) {
	rows := smokeRows(128)
	for i := 0; i < 128; i += 9 {
		rows[i][0] = math.NaN()
	}
	m, err := MatFromRows(rows)
	require.NoError(t, err)
	ds, err := DatasetFromMat(m, nil, quiet())
	require.NoError(t, err)
	require.NoError(t, ds.SetField(FieldLabel, smokeLabels(128)))
	b, err := NewBooster(ds, quiet())
	require.NoError(t, err)

	_, err = b.Train(context.Background(), 10)
	require.NoError(t, err)
	pred, err := b.PredictForMat(m, PredictNormal, 0, -1)
	require.NoError(t, err)
	for _, v := range pred {
		assert.False(t, math.IsNaN(v))
	}
}

func TestBoosterLogging(t *testing.T) {
	tl := captureLogs(t)
	b := newSmokeBooster(t, NewParameters().Set("verbosity", 2))
	_, err := b.UpdateOneIter()
	require.NoError(t, err)

	entries, err := tl.GetLogEntries()
	require.NoError(t, err)
	var trained map[string]interface{}
	for _, e := range entries {
		if e["message"] == "Tree trained" {
			trained = e
		}
	}
	require.NotNil(t, trained)
	assert.Equal(t, b.ID(), trained[log.BoosterIDKey])
	assert.Equal(t, float64(3), trained[log.LeavesKey])
	assert.Equal(t, "lgbm.booster", trained[log.ComponentKey])

	tl.Clear()
	q := newSmokeBooster(t, quiet())
	_, err = q.UpdateOneIter()
	require.NoError(t, err)
	assert.False(t, tl.ContainsMessage("Tree trained"))
}

// nanGradientObjective is l2 whose gradients turn NaN while *fail is set.
type nanGradientObjective struct {
	l2Objective
	fail *bool
}

func (o nanGradientObjective) Gradient(s, y float64) float64 {
	if *o.fail {
		return math.NaN()
	}
	return o.l2Objective.Gradient(s, y)
}

func TestBoosterNumericalFailureLeavesScores(t *testing.T) {
	b := newSmokeBooster(t, quiet())
	fail := true
	b.obj = nanGradientObjective{fail: &fail}

	_, err := b.UpdateOneIter()
	require.Error(t, err)
	var ne *errors.NumericalInstabilityError
	require.True(t, errors.As(err, &ne))
	assert.Equal(t, 0, b.NumTrees())
	assert.Equal(t, make([]float64, 128), b.trainScore)

	fail = false
	_, err = b.UpdateOneIter()
	require.NoError(t, err)

	ref := newSmokeBooster(t, quiet())
	_, err = ref.UpdateOneIter()
	require.NoError(t, err)
	assert.InDeltaSlice(t, ref.trainScore, b.trainScore, 1e-12)

	m := smokeMat(t, 3)
	want, err := ref.PredictForMat(m, PredictNormal, 0, -1)
	require.NoError(t, err)
	got, err := b.PredictForMat(m, PredictNormal, 0, -1)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, got, 1e-12)
}

// panickingObjective panics on every row labelled 2.
type panickingObjective struct {
	l2Objective
}

func (panickingObjective) Gradient(s, y float64) float64 {
	if y == 2 {
		panic("gradient table overflow")
	}
	return s - y
}

func TestBoosterRecoversWorkerPanic(t *testing.T) {
	const n = 4 * minRowsForParallel
	p := quiet().Set("num_threads", 4)
	m, err := MatFromRows(smokeRows(n))
	require.NoError(t, err)
	ds, err := DatasetFromMat(m, nil, p)
	require.NoError(t, err)
	require.NoError(t, ds.SetField(FieldLabel, smokeLabels(n)))
	b, err := NewBooster(ds, p)
	require.NoError(t, err)

	b.obj = panickingObjective{}
	_, err = b.UpdateOneIter()
	require.Error(t, err)
	var pe *errors.PanicError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "gradient table overflow", pe.PanicValue)
	assert.Equal(t, 0, b.NumTrees())

	// the booster is still usable afterwards
	b.obj = l2Objective{}
	finished, err := b.UpdateOneIter()
	require.NoError(t, err)
	assert.False(t, finished)
	assert.Equal(t, 1, b.NumTrees())
}
