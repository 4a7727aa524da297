// Package log defines standard attribute keys for dataset and booster logging.
//
// Keys follow a hierarchical naming convention ("data.samples",
// "training.iteration") so records from different components line up.

package log

// Component context.
const (
	// ComponentKey identifies which component emitted the record.
	// Examples: "lgbm.dataset", "lgbm.booster"
	ComponentKey = "ml.component"

	// OperationKey names the API call being performed.
	OperationKey = "ml.operation"

	// BoosterIDKey carries the per-booster UUID.
	BoosterIDKey = "booster.id"

	// ObjectiveKey records the resolved objective name.
	ObjectiveKey = "booster.objective"
)

// Data shape.
const (
	// SamplesKey is the number of rows in a dataset or prediction batch.
	SamplesKey = "data.samples"

	// FeaturesKey is the number of feature columns.
	FeaturesKey = "data.features"

	// FieldKey names an auxiliary dataset field such as "label".
	FieldKey = "data.field"

	// BinsKey is the total number of histogram bins across features.
	BinsKey = "data.bins"
)

// Training progress.
const (
	IterationKey = "training.iteration"
	TreesKey     = "training.trees"
	LeavesKey    = "training.leaves"
	DepthKey     = "training.depth"
	GainKey      = "training.gain"

	// MetricKey and MetricValueKey describe one evaluation result.
	MetricKey      = "metrics.name"
	MetricValueKey = "metrics.value"

	// DatasetIndexKey is 0 for training data, i for the i-th validation set.
	DatasetIndexKey = "metrics.dataset"

	DurationMsKey = "perf.duration_ms"
)

// Error context.
const (
	ErrorCodeKey = "error.code"
	ErrorTypeKey = "error.type"
)

// Standard operation names.
const (
	OperationDatasetFromMat = "dataset_from_mat"
	OperationSetField       = "set_field"
	OperationNewBooster     = "new_booster"
	OperationUpdate         = "update_one_iter"
	OperationTrain          = "train"
	OperationPredict        = "predict"
	OperationEval           = "eval"
)

// Standard error codes.
const (
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorEmptyData         = "EMPTY_DATA"
	ErrorInvalidInput      = "INVALID_INPUT"
	ErrorDatasetInUse      = "DATASET_IN_USE"
)
