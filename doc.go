// Package lgbm is a pure Go gradient boosting library with a LightGBM-style
// API: a Dataset built from a dense matrix, per-row fields such as labels,
// and a Booster that grows histogram-based, leaf-wise regression trees.
//
// # Quick Start
//
//	p := lgbm.NewParameters()
//	m, err := lgbm.MatFromRows(rows)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	train, err := lgbm.DatasetFromMat(m, nil, p)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := train.SetField(lgbm.FieldLabel, labels); err != nil {
//	    log.Fatal(err)
//	}
//	booster, err := lgbm.NewBooster(train, p)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if _, err := booster.Train(ctx, 100); err != nil {
//	    log.Fatal(err)
//	}
//	pred, err := booster.PredictForMat(m, lgbm.PredictNormal, 0, -1)
//
// # Parameters
//
// Parameters accept LightGBM keys and their common aliases ("eta",
// "num_leaf", "min_child_samples", ...). Unknown keys are reported as
// warnings and ignored. Supported objectives are regression, regression_l1,
// huber, binary and poisson.
//
// # Sharing
//
// A Dataset passed to NewBooster or AddValidData becomes read-only;
// SetField then fails with ErrDatasetInUse. A Booster may serve concurrent
// PredictForMat calls while no update is running.
//
// # Packages
//
//   - metrics: weighted evaluation metrics used by Booster.Eval
//   - core/parallel: range-splitting worker helpers
//   - pkg/errors: structured errors and warnings built on cockroachdb/errors
//   - pkg/log: logging interface with zerolog and slog backends
package lgbm
