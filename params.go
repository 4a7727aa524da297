package lgbm

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/lgbm/pkg/errors"
)

// Parameters is an ordered set of LightGBM-style key/value options.
// Keys are normalised through the alias table on insertion; values are kept
// as strings and only interpreted when a Dataset or Booster is built.
// A nil *Parameters behaves like an empty set.
type Parameters struct {
	keys   []string
	values map[string]string
}

// NewParameters returns an empty parameter set; every option takes its default.
func NewParameters() *Parameters {
	return &Parameters{values: make(map[string]string)}
}

// ParseParameters parses the LightGBM string form "k1=v1 k2=v2". Pairs are
// separated by whitespace; list values use commas ("metric=l2,l1").
func ParseParameters(s string) (*Parameters, error) {
	p := NewParameters()
	for _, tok := range strings.Fields(s) {
		kv := strings.SplitN(tok, "=", 2)
		if len(kv) != 2 || strings.TrimSpace(kv[0]) == "" {
			return nil, errors.NewValueError("ParseParameters", fmt.Sprintf("malformed token %q, expected key=value", tok))
		}
		p.Set(kv[0], kv[1])
	}
	return p, nil
}

// Set stores value under key. Slices are joined with commas, floats use the
// shortest representation that round-trips.
func (p *Parameters) Set(key string, value any) *Parameters {
	if p.values == nil {
		p.values = make(map[string]string)
	}
	key = canonicalKey(key)
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = formatValue(value)
	return p
}

// Get returns the raw value stored for key (aliases accepted).
func (p *Parameters) Get(key string) (string, bool) {
	if p == nil {
		return "", false
	}
	v, ok := p.values[canonicalKey(key)]
	return v, ok
}

// Keys returns the canonical keys in insertion order.
func (p *Parameters) Keys() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.keys...)
}

// Len reports the number of explicitly set keys.
func (p *Parameters) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// String renders the set in the "k=v k=v" form accepted by ParseParameters.
func (p *Parameters) String() string {
	if p == nil {
		return ""
	}
	parts := make([]string, 0, len(p.keys))
	for _, k := range p.keys {
		parts = append(parts, k+"="+p.values[k])
	}
	return strings.Join(parts, " ")
}

// Clone returns an independent copy.
func (p *Parameters) Clone() *Parameters {
	c := NewParameters()
	if p == nil {
		return c
	}
	for _, k := range p.keys {
		c.Set(k, p.values[k])
	}
	return c
}

// Merge returns a copy of p overridden by every key set in other.
func (p *Parameters) Merge(other *Parameters) *Parameters {
	c := p.Clone()
	if other == nil {
		return c
	}
	for _, k := range other.keys {
		c.Set(k, other.values[k])
	}
	return c
}

func formatValue(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case []int:
		parts := make([]string, len(v))
		for i, x := range v {
			parts[i] = strconv.Itoa(x)
		}
		return strings.Join(parts, ",")
	case []string:
		return strings.Join(v, ",")
	case []any:
		parts := make([]string, len(v))
		for i, x := range v {
			parts[i] = formatValue(x)
		}
		return strings.Join(parts, ",")
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

var parameterAliases = map[string]string{
	"application":              "objective",
	"app":                      "objective",
	"objective_type":           "objective",
	"loss":                     "objective",
	"num_iteration":            "num_iterations",
	"n_iter":                   "num_iterations",
	"num_tree":                 "num_iterations",
	"num_trees":                "num_iterations",
	"num_round":                "num_iterations",
	"num_rounds":               "num_iterations",
	"num_boost_round":          "num_iterations",
	"n_estimators":             "num_iterations",
	"shrinkage_rate":           "learning_rate",
	"eta":                      "learning_rate",
	"num_leaf":                 "num_leaves",
	"max_leaves":               "num_leaves",
	"max_leaf":                 "num_leaves",
	"min_data_per_leaf":        "min_data_in_leaf",
	"min_data":                 "min_data_in_leaf",
	"min_child_samples":        "min_data_in_leaf",
	"min_sum_hessian_per_leaf": "min_sum_hessian_in_leaf",
	"min_sum_hessian":          "min_sum_hessian_in_leaf",
	"min_hessian":              "min_sum_hessian_in_leaf",
	"min_child_weight":         "min_sum_hessian_in_leaf",
	"reg_alpha":                "lambda_l1",
	"l1_regularization":        "lambda_l1",
	"reg_lambda":               "lambda_l2",
	"lambda":                   "lambda_l2",
	"l2_regularization":        "lambda_l2",
	"min_split_gain":           "min_gain_to_split",
	"sub_feature":              "feature_fraction",
	"colsample_bytree":         "feature_fraction",
	"sub_row":                  "bagging_fraction",
	"subsample":                "bagging_fraction",
	"bagging":                  "bagging_fraction",
	"subsample_freq":           "bagging_freq",
	"random_seed":              "seed",
	"random_state":             "seed",
	"num_thread":               "num_threads",
	"nthread":                  "num_threads",
	"nthreads":                 "num_threads",
	"n_jobs":                   "num_threads",
	"verbose":                  "verbosity",
	"metrics":                  "metric",
	"metric_types":             "metric",
	"early_stopping_rounds":    "early_stopping_round",
	"early_stopping":           "early_stopping_round",
	"n_iter_no_change":         "early_stopping_round",
	"device":                   "device_type",
}

// canonicalKey lower-cases key and resolves aliases.
func canonicalKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	if c, ok := parameterAliases[k]; ok {
		return c
	}
	return k
}

const (
	objectiveRegression   = "regression"
	objectiveRegressionL1 = "regression_l1"
	objectiveHuber        = "huber"
	objectiveBinary       = "binary"
	objectivePoisson      = "poisson"
)

var objectiveAliases = map[string]string{
	"regression":          objectiveRegression,
	"regression_l2":       objectiveRegression,
	"l2":                  objectiveRegression,
	"mse":                 objectiveRegression,
	"mean_squared_error":  objectiveRegression,
	"l2_root":             objectiveRegression,
	"rmse":                objectiveRegression,
	"regression_l1":       objectiveRegressionL1,
	"l1":                  objectiveRegressionL1,
	"mae":                 objectiveRegressionL1,
	"mean_absolute_error": objectiveRegressionL1,
	"huber":               objectiveHuber,
	"binary":              objectiveBinary,
	"poisson":             objectivePoisson,
}

const (
	metricL2            = "l2"
	metricRMSE          = "rmse"
	metricL1            = "l1"
	metricHuber         = "huber"
	metricBinaryLogloss = "binary_logloss"
	metricBinaryError   = "binary_error"
	metricPoisson       = "poisson"
	metricNone          = "none"
)

var metricAliases = map[string]string{
	"l2":                      metricL2,
	"mse":                     metricL2,
	"mean_squared_error":      metricL2,
	"regression_l2":           metricL2,
	"regression":              metricL2,
	"rmse":                    metricRMSE,
	"l2_root":                 metricRMSE,
	"root_mean_squared_error": metricRMSE,
	"l1":                      metricL1,
	"mae":                     metricL1,
	"mean_absolute_error":     metricL1,
	"regression_l1":           metricL1,
	"huber":                   metricHuber,
	"binary_logloss":          metricBinaryLogloss,
	"binary":                  metricBinaryLogloss,
	"binary_error":            metricBinaryError,
	"poisson":                 metricPoisson,
	"none":                    metricNone,
	"null":                    metricNone,
	"na":                      metricNone,
	"custom":                  metricNone,
}

// keys accepted for compatibility that do not change behaviour.
var inertKeys = map[string]bool{
	"task":               true,
	"deterministic":      true,
	"force_row_wise":     true,
	"force_col_wise":     true,
	"feature_pre_filter": true,
	"boosting":           true,
}

// config is the resolved, validated view of a Parameters set.
type config struct {
	Objective           string
	NumIterations       int
	LearningRate        float64
	NumLeaves           int
	MaxDepth            int
	MinDataInLeaf       int
	MinSumHessianInLeaf float64
	LambdaL1            float64
	LambdaL2            float64
	MinGainToSplit      float64
	FeatureFraction     float64
	BaggingFraction     float64
	BaggingFreq         int
	MaxBin              int
	MinDataInBin        int
	HuberDelta          float64
	Sigmoid             float64
	BoostFromAverage    bool
	Seed                int64
	NumThreads          int
	Verbosity           int
	Metrics             []string
	EarlyStoppingRound  int
}

func defaultConfig() config {
	return config{
		Objective:           objectiveRegression,
		NumIterations:       100,
		LearningRate:        0.1,
		NumLeaves:           31,
		MaxDepth:            -1,
		MinDataInLeaf:       20,
		MinSumHessianInLeaf: 1e-3,
		FeatureFraction:     1.0,
		BaggingFraction:     1.0,
		MaxBin:              255,
		MinDataInBin:        3,
		HuberDelta:          1.0,
		Sigmoid:             1.0,
		BoostFromAverage:    true,
		Verbosity:           1,
	}
}

// resolve validates p and returns the typed configuration. Unknown keys are
// reported through errors.Warn and otherwise ignored.
func resolve(p *Parameters) (config, error) {
	cfg := defaultConfig()
	metricSet := false
	var err error

	for _, key := range p.Keys() {
		raw, _ := p.Get(key)
		switch key {
		case "objective":
			obj, ok := objectiveAliases[strings.ToLower(raw)]
			if !ok {
				return cfg, errors.NewValidationError(key, "unsupported objective", raw)
			}
			cfg.Objective = obj
		case "num_iterations":
			cfg.NumIterations, err = parseInt(key, raw)
		case "learning_rate":
			cfg.LearningRate, err = parseFloat(key, raw)
		case "num_leaves":
			cfg.NumLeaves, err = parseInt(key, raw)
		case "max_depth":
			cfg.MaxDepth, err = parseInt(key, raw)
		case "min_data_in_leaf":
			cfg.MinDataInLeaf, err = parseInt(key, raw)
		case "min_sum_hessian_in_leaf":
			cfg.MinSumHessianInLeaf, err = parseFloat(key, raw)
		case "lambda_l1":
			cfg.LambdaL1, err = parseFloat(key, raw)
		case "lambda_l2":
			cfg.LambdaL2, err = parseFloat(key, raw)
		case "min_gain_to_split":
			cfg.MinGainToSplit, err = parseFloat(key, raw)
		case "feature_fraction":
			cfg.FeatureFraction, err = parseFloat(key, raw)
		case "bagging_fraction":
			cfg.BaggingFraction, err = parseFloat(key, raw)
		case "bagging_freq":
			cfg.BaggingFreq, err = parseInt(key, raw)
		case "max_bin":
			cfg.MaxBin, err = parseInt(key, raw)
		case "min_data_in_bin":
			cfg.MinDataInBin, err = parseInt(key, raw)
		case "huber_delta", "alpha":
			cfg.HuberDelta, err = parseFloat(key, raw)
		case "sigmoid":
			cfg.Sigmoid, err = parseFloat(key, raw)
		case "boost_from_average":
			cfg.BoostFromAverage, err = parseBool(key, raw)
		case "seed":
			var s int
			s, err = parseInt(key, raw)
			cfg.Seed = int64(s)
		case "num_threads":
			cfg.NumThreads, err = parseInt(key, raw)
		case "verbosity":
			cfg.Verbosity, err = parseInt(key, raw)
		case "early_stopping_round":
			cfg.EarlyStoppingRound, err = parseInt(key, raw)
		case "metric":
			cfg.Metrics, err = parseMetrics(raw)
			metricSet = true
		case "device_type":
			if strings.ToLower(raw) != "cpu" {
				return cfg, errors.NewValidationError(key, "only cpu is supported", raw)
			}
		default:
			if !inertKeys[key] {
				errors.Warn(errors.NewUnknownParameterWarning(key, raw))
			}
		}
		if err != nil {
			return cfg, err
		}
	}

	if !metricSet {
		cfg.Metrics = []string{defaultMetric(cfg.Objective)}
	}
	return cfg, cfg.validate()
}

func (c config) validate() error {
	switch {
	case c.NumIterations < 0:
		return errors.NewValidationError("num_iterations", "must be >= 0", c.NumIterations)
	case c.LearningRate <= 0:
		return errors.NewValidationError("learning_rate", "must be > 0", c.LearningRate)
	case c.NumLeaves < 2:
		return errors.NewValidationError("num_leaves", "must be >= 2", c.NumLeaves)
	case c.MinDataInLeaf < 0:
		return errors.NewValidationError("min_data_in_leaf", "must be >= 0", c.MinDataInLeaf)
	case c.MinSumHessianInLeaf < 0:
		return errors.NewValidationError("min_sum_hessian_in_leaf", "must be >= 0", c.MinSumHessianInLeaf)
	case c.LambdaL1 < 0:
		return errors.NewValidationError("lambda_l1", "must be >= 0", c.LambdaL1)
	case c.LambdaL2 < 0:
		return errors.NewValidationError("lambda_l2", "must be >= 0", c.LambdaL2)
	case c.MinGainToSplit < 0:
		return errors.NewValidationError("min_gain_to_split", "must be >= 0", c.MinGainToSplit)
	case c.FeatureFraction <= 0 || c.FeatureFraction > 1:
		return errors.NewValidationError("feature_fraction", "must be in (0, 1]", c.FeatureFraction)
	case c.BaggingFraction <= 0 || c.BaggingFraction > 1:
		return errors.NewValidationError("bagging_fraction", "must be in (0, 1]", c.BaggingFraction)
	case c.BaggingFreq < 0:
		return errors.NewValidationError("bagging_freq", "must be >= 0", c.BaggingFreq)
	case c.MaxBin < 2 || c.MaxBin > math.MaxUint16:
		return errors.NewValidationError("max_bin", "must be in [2, 65535]", c.MaxBin)
	case c.MinDataInBin < 1:
		return errors.NewValidationError("min_data_in_bin", "must be >= 1", c.MinDataInBin)
	case c.HuberDelta <= 0:
		return errors.NewValidationError("huber_delta", "must be > 0", c.HuberDelta)
	case c.Sigmoid <= 0:
		return errors.NewValidationError("sigmoid", "must be > 0", c.Sigmoid)
	case c.EarlyStoppingRound < 0:
		return errors.NewValidationError("early_stopping_round", "must be >= 0", c.EarlyStoppingRound)
	}
	return nil
}

func defaultMetric(objective string) string {
	switch objective {
	case objectiveRegressionL1:
		return metricL1
	case objectiveHuber:
		return metricHuber
	case objectiveBinary:
		return metricBinaryLogloss
	case objectivePoisson:
		return metricPoisson
	default:
		return metricL2
	}
}

func parseMetrics(raw string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, name := range strings.Split(raw, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		m, ok := metricAliases[name]
		if !ok {
			return nil, errors.NewValidationError("metric", "unsupported metric", name)
		}
		if m == metricNone || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out, nil
}

func parseInt(key, raw string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil {
		// LightGBM accepts "10.0" for integer options.
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || f != math.Trunc(f) {
			return 0, errors.NewValidationError(key, "expected an integer", raw)
		}
		return int(f), nil
	}
	return v, nil
}

func parseFloat(key, raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) {
		return 0, errors.NewValidationError(key, "expected a number", raw)
	}
	return v, nil
}

func parseBool(key, raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "true", "1", "+", "yes":
		return true, nil
	case "false", "0", "-", "no":
		return false, nil
	}
	return false, errors.NewValidationError(key, "expected a boolean", raw)
}
