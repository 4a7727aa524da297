// Command lgbm-testapp prints build information, trains a small regression
// model and reports its predictions and feature importance.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/lgbm"
	"github.com/YuminosukeSato/lgbm/pkg/log"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("lgbm-testapp", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "TOML or YAML config file")
	smoke := fs.Bool("smoke", false, "use the 128-row x%3 dataset instead of the 5x3 example")
	iterations := fs.Int("iterations", 0, "boosting rounds (overrides config)")
	params := fs.String("params", "", `extra parameters, e.g. "num_leaves=4 verbosity=2"`)
	logLevel := fs.String("log-level", "", "debug, info, warn or error (overrides config)")
	logFormat := fs.String("log-format", "", "console or json (overrides config)")
	modelOut := fs.String("model-out", "", "write the trained model as JSON to this file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg := defaultAppConfig()
	if *configPath != "" {
		var err error
		if cfg, err = loadAppConfig(*configPath); err != nil {
			fmt.Fprintln(stderr, "lgbm-testapp:", err)
			return 1
		}
	}
	if *smoke {
		cfg.Dataset = "smoke"
	}
	if *iterations > 0 {
		cfg.Iterations = *iterations
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *logFormat != "" {
		cfg.LogFormat = *logFormat
	}
	if *modelOut != "" {
		cfg.ModelOut = *modelOut
	}
	if *params != "" {
		extra, err := lgbm.ParseParameters(*params)
		if err != nil {
			fmt.Fprintln(stderr, "lgbm-testapp:", err)
			return 1
		}
		cfg.Params = cfg.Params.Merge(extra)
	}
	if err := cfg.validate(); err != nil {
		fmt.Fprintln(stderr, "lgbm-testapp:", err)
		return 1
	}
	if err := setupLogging(cfg, stderr); err != nil {
		fmt.Fprintln(stderr, "lgbm-testapp:", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := train(ctx, cfg, stdout); err != nil {
		log.GetLoggerWithName("lgbm.testapp").Error("Test program failed", err)
		fmt.Fprintln(stderr, "lgbm-testapp:", err)
		return 1
	}
	return 0
}

func setupLogging(cfg appConfig, w io.Writer) error {
	if cfg.LogFormat == "json" {
		return log.SetupJSONLogger(w, cfg.LogLevel)
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log.SetProvider(log.NewZerologProvider(zerolog.ConsoleWriter{Out: w, NoColor: true}, level))
	return nil
}

// exampleData is the 5x3 row-major matrix used by the C API test program.
func exampleData() ([][]float64, []float32) {
	return [][]float64{
			{1.0, 0.5, 0.3},
			{2.0, 0.6, 0.4},
			{3.0, 0.7, 0.5},
			{4.0, 0.8, 0.6},
			{5.0, 0.9, 0.7},
		},
		[]float32{0.1, 0.2, 0.3, 0.4, 0.5}
}

func smokeData() ([][]float64, []float32) {
	rows := make([][]float64, 128)
	labels := make([]float32, 128)
	for x := range rows {
		rows[x] = []float64{float64(x % 3)}
		labels[x] = float32(x % 3)
	}
	return rows, labels
}

func train(ctx context.Context, cfg appConfig, out io.Writer) error {
	fmt.Fprintln(out, "lgbm Test Program")
	fmt.Fprintln(out, "=================")
	fmt.Fprintln(out)
	fmt.Fprintln(out, lgbm.ReadBuildInfo())
	fmt.Fprintln(out)

	rows, labels := exampleData()
	if cfg.Dataset == "smoke" {
		rows, labels = smokeData()
	}

	fmt.Fprintln(out, "Training Configuration:")
	fmt.Fprintf(out, "- dataset=%s (%d rows)\n", cfg.Dataset, len(rows))
	fmt.Fprintf(out, "- iterations=%d\n", cfg.Iterations)
	fmt.Fprintf(out, "- params: %s\n\n", cfg.Params)

	m, err := lgbm.MatFromRows(rows)
	if err != nil {
		return err
	}
	ds, err := lgbm.DatasetFromMat(m, nil, cfg.Params)
	if err != nil {
		return err
	}
	if err := ds.SetField(lgbm.FieldLabel, labels); err != nil {
		return err
	}
	booster, err := lgbm.NewBooster(ds, cfg.Params)
	if err != nil {
		return err
	}

	for i := 0; i < cfg.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		finished, err := booster.UpdateOneIter()
		if err != nil {
			return fmt.Errorf("training failed at iteration %d: %w", i, err)
		}
		if finished {
			fmt.Fprintf(out, "Early stopping at iteration %d\n", i)
			break
		}
	}
	fmt.Fprintln(out, "Training completed successfully!")

	pred, err := booster.PredictForMat(m, lgbm.PredictNormal, 0, -1)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "\nPredictions:")
	for i := range pred {
		if i == 10 {
			fmt.Fprintf(out, "  ... %d more\n", len(pred)-i)
			break
		}
		fmt.Fprintf(out, "  Sample %d: Actual = %g, Predicted = %g\n", i+1, labels[i], pred[i])
	}

	fmt.Fprintln(out, "\nFeature Importance (splits):")
	for f, v := range booster.FeatureImportance(-1, lgbm.ImportanceSplit) {
		fmt.Fprintf(out, "  Feature %d: %g\n", f, v)
	}

	if cfg.ModelOut != "" {
		f, err := os.Create(cfg.ModelOut)
		if err != nil {
			return err
		}
		if err := booster.DumpModel(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(out, "\nModel written to %s\n", cfg.ModelOut)
	}
	return nil
}
