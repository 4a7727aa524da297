package lgbm

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/lgbm/core/parallel"
	"github.com/YuminosukeSato/lgbm/pkg/errors"
	"github.com/YuminosukeSato/lgbm/pkg/log"
)

// ErrDatasetInUse is returned when a Dataset shared with a Booster is modified.
var ErrDatasetInUse = errors.New("dataset is in use by a booster")

// Dataset is a binned training or validation matrix plus its per-row fields.
// Once a Booster is built on a Dataset the Dataset becomes read-only.
type Dataset struct {
	mu sync.RWMutex

	numData    int
	numFeature int
	raw        *mat.Dense
	bins       [][]uint16
	mappers    []*binMapper

	label     []float32
	weight    []float32
	initScore []float64
	group     []int32

	featureNames []string
	params       *Parameters
	cfg          config
	inUse        bool
	logger       log.Logger
}

// DatasetFromMat bins m into a new Dataset. When reference is non-nil its bin
// mappers are reused, which is how validation data is aligned with training
// data.
func DatasetFromMat(m *MatBuf, reference *Dataset, p *Parameters) (*Dataset, error) {
	const op = "DatasetFromMat"
	if m.empty() {
		return nil, errors.Wrap(errors.WithStack(errors.ErrEmptyData), op)
	}
	cfg, err := resolve(p)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}

	ds := &Dataset{
		numData:    m.Rows(),
		numFeature: m.Cols(),
		raw:        m.Dense(),
		params:     p.Clone(),
		cfg:        cfg,
		logger:     componentLogger("lgbm.dataset", cfg.Verbosity),
	}
	ds.featureNames = make([]string, ds.numFeature)
	for j := range ds.featureNames {
		ds.featureNames[j] = fmt.Sprintf("Column_%d", j)
	}

	if reference != nil {
		reference.mu.RLock()
		if reference.numFeature != ds.numFeature {
			reference.mu.RUnlock()
			return nil, errors.NewDimensionError(op, reference.numFeature, ds.numFeature, 1)
		}
		ds.mappers = reference.mappers
		copy(ds.featureNames, reference.featureNames)
		reference.mu.RUnlock()
	} else {
		ds.mappers = make([]*binMapper, ds.numFeature)
	}

	ds.bins = make([][]uint16, ds.numFeature)
	build := func(start, end int) {
		col := make([]float64, ds.numData)
		for j := start; j < end; j++ {
			mat.Col(col, j, ds.raw)
			if reference == nil {
				ds.mappers[j] = newBinMapper(col, cfg.MaxBin, cfg.MinDataInBin)
			}
			bins := make([]uint16, ds.numData)
			for i, v := range col {
				bins[i] = ds.mappers[j].valueToBin(v)
			}
			ds.bins[j] = bins
		}
	}
	parallel.ParallelizeN(ds.numFeature, parallel.Workers(cfg.NumThreads), build)

	totalBins := 0
	useful := 0
	for _, bm := range ds.mappers {
		totalBins += bm.NumBins()
		if !bm.trivial() {
			useful++
		}
	}
	if useful == 0 {
		ds.logger.Warn("There are no meaningful features which satisfy the provided configuration",
			log.OperationKey, log.OperationDatasetFromMat)
	}
	ds.logger.Info("Dataset constructed",
		log.OperationKey, log.OperationDatasetFromMat,
		log.SamplesKey, ds.numData,
		log.FeaturesKey, ds.numFeature,
		log.BinsKey, totalBins,
	)
	return ds, nil
}

// NumData returns the number of rows.
func (d *Dataset) NumData() int { return d.numData }

// NumFeature returns the number of feature columns.
func (d *Dataset) NumFeature() int { return d.numFeature }

// NumBins returns the number of bins used for a feature.
func (d *Dataset) NumBins(feature int) (int, error) {
	if feature < 0 || feature >= d.numFeature {
		return 0, errors.NewValidationError("feature", "index out of range", feature)
	}
	return d.mappers[feature].NumBins(), nil
}

// SetFeatureNames replaces the default "Column_i" names.
func (d *Dataset) SetFeatureNames(names []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inUse {
		return errors.WithStack(ErrDatasetInUse)
	}
	if len(names) != d.numFeature {
		return errors.NewDimensionError("SetFeatureNames", d.numFeature, len(names), 1)
	}
	d.featureNames = append([]string(nil), names...)
	return nil
}

// FeatureNames returns a copy of the feature names.
func (d *Dataset) FeatureNames() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.featureNames...)
}

// SetField attaches a per-row column. Accepted element types are
// []float32 or []float64 for label, weight and init_score, and []int32 or
// []int for group.
func (d *Dataset) SetField(f Field, values any) error {
	const op = "SetField"
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.inUse {
		return errors.Wrapf(errors.WithStack(ErrDatasetInUse), "set field %s", f)
	}
	if !f.valid() {
		return errors.NewValidationError("field", "unknown field", int(f))
	}

	var err error
	switch f {
	case FieldLabel:
		var label []float32
		if label, err = toFloat32(f, values); err != nil {
			return err
		}
		if len(label) != d.numData {
			return errors.NewDimensionError(op, d.numData, len(label), 0)
		}
		for i, v := range label {
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				return errors.NewValidationError("label", fmt.Sprintf("non-finite value at row %d", i), v)
			}
		}
		d.label = label
	case FieldWeight:
		var weight []float32
		if weight, err = toFloat32(f, values); err != nil {
			return err
		}
		if len(weight) != d.numData {
			return errors.NewDimensionError(op, d.numData, len(weight), 0)
		}
		for i, v := range weight {
			if v < 0 || math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				return errors.NewValidationError("weight", fmt.Sprintf("invalid weight at row %d", i), v)
			}
		}
		d.weight = weight
	case FieldInitScore:
		var score []float64
		if score, err = toFloat64(f, values); err != nil {
			return err
		}
		if len(score) == 0 || len(score)%d.numData != 0 {
			return errors.NewDimensionError(op, d.numData, len(score), 0)
		}
		d.initScore = score
	case FieldGroup:
		var group []int32
		if group, err = toInt32(f, values); err != nil {
			return err
		}
		sum := 0
		for _, g := range group {
			if g < 0 {
				return errors.NewValidationError("group", "negative query size", g)
			}
			sum += int(g)
		}
		if sum != d.numData {
			return errors.NewDimensionError(op, d.numData, sum, 0)
		}
		d.group = group
	}

	d.logger.Debug("Field set", log.OperationKey, log.OperationSetField, log.FieldKey, f.String())
	return nil
}

// GetField returns a copy of a field as float64 values.
func (d *Dataset) GetField(f Field) ([]float64, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	switch f {
	case FieldLabel:
		return widen(d.label)
	case FieldWeight:
		return widen(d.weight)
	case FieldInitScore:
		if d.initScore == nil {
			return nil, false
		}
		return append([]float64(nil), d.initScore...), true
	case FieldGroup:
		if d.group == nil {
			return nil, false
		}
		out := make([]float64, len(d.group))
		for i, g := range d.group {
			out[i] = float64(g)
		}
		return out, true
	}
	return nil, false
}

// HasField reports whether f has been set.
func (d *Dataset) HasField(f Field) bool {
	_, ok := d.GetField(f)
	return ok
}

// share marks the dataset as owned by a booster.
func (d *Dataset) share() {
	d.mu.Lock()
	d.inUse = true
	d.mu.Unlock()
}

func (d *Dataset) rawRow(i int) []float64 {
	return d.raw.RawRowView(i)
}

func widen(v []float32) ([]float64, bool) {
	if v == nil {
		return nil, false
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out, true
}

func toFloat32(f Field, values any) ([]float32, error) {
	switch v := values.(type) {
	case []float32:
		return append([]float32(nil), v...), nil
	case []float64:
		out := make([]float32, len(v))
		lossy := false
		for i, x := range v {
			out[i] = float32(x)
			if float64(out[i]) != x && !math.IsNaN(x) {
				lossy = true
			}
		}
		if lossy {
			errors.Warn(errors.NewDataConversionWarning("[]float64", "[]float32",
				fmt.Sprintf("%s is stored in single precision", f)))
		}
		return out, nil
	}
	return nil, unsupportedType(f, values)
}

func toFloat64(f Field, values any) ([]float64, error) {
	switch v := values.(type) {
	case []float64:
		return append([]float64(nil), v...), nil
	case []float32:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	}
	return nil, unsupportedType(f, values)
}

func toInt32(f Field, values any) ([]int32, error) {
	switch v := values.(type) {
	case []int32:
		return append([]int32(nil), v...), nil
	case []int:
		out := make([]int32, len(v))
		for i, x := range v {
			if x < 0 {
				return nil, errors.NewValidationError(f.String(), "negative query size", x)
			}
			if x > math.MaxInt32 {
				return nil, errors.NewValidationError(f.String(), "value overflows int32", x)
			}
			out[i] = int32(x)
		}
		return out, nil
	}
	return nil, unsupportedType(f, values)
}

func unsupportedType(f Field, values any) error {
	return errors.NewValidationError(f.String(), "unsupported element type", fmt.Sprintf("%T", values))
}
