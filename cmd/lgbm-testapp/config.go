package main

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/lgbm"
	"github.com/YuminosukeSato/lgbm/pkg/errors"
)

// defaultParams mirrors the parameter string of the C API test program.
const defaultParams = "objective=regression metric=l2 num_leaves=10 learning_rate=0.05 " +
	"feature_fraction=1.0 bagging_fraction=1.0 min_data_in_leaf=1 min_sum_hessian_in_leaf=1.0 " +
	"num_threads=0 verbosity=1"

// appConfig is the resolved test program configuration.
type appConfig struct {
	Dataset    string
	Iterations int
	LogLevel   string
	LogFormat  string
	ModelOut   string
	Params     *lgbm.Parameters
}

// fileConfig is the on-disk layout shared by the TOML and YAML formats.
type fileConfig struct {
	Dataset    string         `toml:"dataset" yaml:"dataset"`
	Iterations int            `toml:"iterations" yaml:"iterations"`
	LogLevel   string         `toml:"log_level" yaml:"log_level"`
	LogFormat  string         `toml:"log_format" yaml:"log_format"`
	ModelOut   string         `toml:"model_out" yaml:"model_out"`
	Params     map[string]any `toml:"params" yaml:"params"`
}

func defaultAppConfig() appConfig {
	p, err := lgbm.ParseParameters(defaultParams)
	if err != nil {
		panic(err)
	}
	return appConfig{
		Dataset:    "example",
		Iterations: 10,
		LogLevel:   "info",
		LogFormat:  "console",
		Params:     p,
	}
}

// loadAppConfig overlays the keys defined in path onto the defaults. The
// format is chosen by extension: .yaml/.yml, anything else is TOML.
func loadAppConfig(path string) (appConfig, error) {
	cfg := defaultAppConfig()

	var raw fileConfig
	var isDefined func(key string) bool
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		b, err := os.ReadFile(path)
		if err != nil {
			return appConfig{}, errors.Wrap(err, "load testapp config")
		}
		if err := yaml.Unmarshal(b, &raw); err != nil {
			return appConfig{}, errors.Wrapf(err, "load testapp config %s", path)
		}
		var keys map[string]any
		if err := yaml.Unmarshal(b, &keys); err != nil {
			return appConfig{}, errors.Wrapf(err, "load testapp config %s", path)
		}
		isDefined = func(key string) bool {
			_, ok := keys[key]
			return ok
		}
	default:
		meta, err := toml.DecodeFile(path, &raw)
		if err != nil {
			return appConfig{}, errors.Wrap(err, "load testapp config")
		}
		isDefined = func(key string) bool { return meta.IsDefined(key) }
	}

	if isDefined("dataset") {
		cfg.Dataset = strings.ToLower(strings.TrimSpace(raw.Dataset))
	}
	if isDefined("iterations") {
		cfg.Iterations = raw.Iterations
	}
	if isDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if isDefined("log_format") {
		cfg.LogFormat = strings.ToLower(strings.TrimSpace(raw.LogFormat))
	}
	if isDefined("model_out") {
		cfg.ModelOut = strings.TrimSpace(raw.ModelOut)
	}

	// map order is random; apply params sorted so Parameters.String is stable
	keys := make([]string, 0, len(raw.Params))
	for k := range raw.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		cfg.Params.Set(k, raw.Params[k])
	}

	return cfg, cfg.validate()
}

func (c appConfig) validate() error {
	switch {
	case c.Dataset != "example" && c.Dataset != "smoke":
		return errors.NewValidationError("dataset", "must be example or smoke", c.Dataset)
	case c.Iterations < 1:
		return errors.NewValidationError("iterations", "must be >= 1", c.Iterations)
	case c.LogFormat != "console" && c.LogFormat != "json":
		return errors.NewValidationError("log_format", "must be console or json", c.LogFormat)
	}
	return nil
}
