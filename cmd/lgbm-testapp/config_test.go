package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/lgbm/pkg/log"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultAppConfig(t *testing.T) {
	cfg := defaultAppConfig()
	require.NoError(t, cfg.validate())
	assert.Equal(t, "example", cfg.Dataset)
	assert.Equal(t, 10, cfg.Iterations)

	v, ok := cfg.Params.Get("num_leaves")
	require.True(t, ok)
	assert.Equal(t, "10", v)
	v, _ = cfg.Params.Get("min_data_in_leaf")
	assert.Equal(t, "1", v)
}

func TestLoadAppConfigTOML(t *testing.T) {
	path := writeFile(t, "testapp.toml", `
dataset = "smoke"
log_level = "debug"

[params]
num_leaves = 4
learning_rate = 0.2
metric = ["l2", "l1"]
`)
	cfg, err := loadAppConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "smoke", cfg.Dataset)
	assert.Equal(t, "debug", cfg.LogLevel)
	// keys absent from the file keep their defaults
	assert.Equal(t, 10, cfg.Iterations)
	assert.Equal(t, "console", cfg.LogFormat)

	v, _ := cfg.Params.Get("num_leaves")
	assert.Equal(t, "4", v)
	v, _ = cfg.Params.Get("learning_rate")
	assert.Equal(t, "0.2", v)
	v, _ = cfg.Params.Get("metric")
	assert.Equal(t, "l2,l1", v)
	v, _ = cfg.Params.Get("objective")
	assert.Equal(t, "regression", v)
}

func TestLoadAppConfigYAML(t *testing.T) {
	path := writeFile(t, "testapp.yaml", `
iterations: 3
log_format: json
params:
  num_leaf: 5
  boost_from_average: false
`)
	cfg, err := loadAppConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "example", cfg.Dataset)
	assert.Equal(t, 3, cfg.Iterations)
	assert.Equal(t, "json", cfg.LogFormat)

	v, _ := cfg.Params.Get("num_leaves")
	assert.Equal(t, "5", v)
	v, _ = cfg.Params.Get("boost_from_average")
	assert.Equal(t, "false", v)
}

func TestLoadAppConfigErrors(t *testing.T) {
	_, err := loadAppConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = loadAppConfig(writeFile(t, "bad.toml", "dataset = "))
	assert.Error(t, err)

	_, err = loadAppConfig(writeFile(t, "bad.yml", "iterations: [1"))
	assert.Error(t, err)

	_, err = loadAppConfig(writeFile(t, "iris.toml", `dataset = "iris"`))
	assert.Error(t, err)

	_, err = loadAppConfig(writeFile(t, "zero.yaml", "iterations: 0"))
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	t.Cleanup(func() { log.SetProvider(log.NewZerologProvider(os.Stderr, log.LevelInfo)) })

	t.Run("smoke dataset", func(t *testing.T) {
		model := filepath.Join(t.TempDir(), "model.json")
		var stdout, stderr bytes.Buffer
		code := run([]string{"-smoke", "-iterations", "5", "-log-level", "warn", "-model-out", model}, &stdout, &stderr)
		require.Equal(t, 0, code, stderr.String())

		out := stdout.String()
		assert.Contains(t, out, "Build Information")
		assert.Contains(t, out, "Training completed successfully!")
		assert.Contains(t, out, "Sample 1: Actual = 0")
		assert.Contains(t, out, "Feature 0: 10")
		assert.FileExists(t, model)
	})

	t.Run("example dataset", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		code := run([]string{"-log-level", "error"}, &stdout, &stderr)
		require.Equal(t, 0, code, stderr.String())
		assert.Contains(t, stdout.String(), "Sample 5: Actual = 0.5")
	})

	t.Run("bad parameters", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		code := run([]string{"-params", "num_leaves"}, &stdout, &stderr)
		assert.Equal(t, 1, code)

		code = run([]string{"-params", "objective=lambdarank", "-log-level", "error"}, &stdout, &stderr)
		assert.Equal(t, 1, code)
	})

	t.Run("bad flag", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		assert.Equal(t, 2, run([]string{"-nope"}, &stdout, &stderr))
	})
}
