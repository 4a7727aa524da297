// Package metrics はブースターの評価指標を提供する。
// すべての関数は任意のサンプル重みを受け取り、nil の場合は一様重みとして扱う。
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/lgbm/pkg/errors"
)

// weightedMean は Σw_i·loss_i / Σw_i を計算する
func weightedMean(op string, yTrue, yPred, weights *mat.VecDense, loss func(y, p float64) float64) (float64, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	if weights != nil && weights.Len() != n {
		return 0, errors.NewDimensionError(op, n, weights.Len(), 0)
	}

	var sum float64
	for i := 0; i < n; i++ {
		l := loss(yTrue.AtVec(i), yPred.AtVec(i))
		if weights != nil {
			l *= weights.AtVec(i)
		}
		sum += l
	}

	total := float64(n)
	if weights != nil {
		total = mat.Sum(weights)
	}
	if total <= 0 {
		return 0, errors.NewValueError(op, "sum of weights must be positive")
	}
	return sum / total, nil
}

// MSE は平均二乗誤差（LightGBM の l2 指標）を計算する
func MSE(yTrue, yPred, weights *mat.VecDense) (float64, error) {
	return weightedMean("MSE", yTrue, yPred, weights, func(y, p float64) float64 {
		d := y - p
		return d * d
	})
}

// RMSE は平方根平均二乗誤差を計算する
func RMSE(yTrue, yPred, weights *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred, weights)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（LightGBM の l1 指標）を計算する
func MAE(yTrue, yPred, weights *mat.VecDense) (float64, error) {
	return weightedMean("MAE", yTrue, yPred, weights, func(y, p float64) float64 {
		return math.Abs(y - p)
	})
}

// Huber は Huber 損失の平均を計算する
func Huber(yTrue, yPred, weights *mat.VecDense, delta float64) (float64, error) {
	if delta <= 0 {
		return 0, errors.NewValidationError("huber_delta", "must be positive", delta)
	}
	return weightedMean("Huber", yTrue, yPred, weights, func(y, p float64) float64 {
		d := math.Abs(y - p)
		if d <= delta {
			return 0.5 * d * d
		}
		return delta * (d - 0.5*delta)
	})
}

// PoissonNLL はポアソン負の対数尤度（定数項を除く）を計算する。yPred は平均値（exp 変換後）。
func PoissonNLL(yTrue, yPred, weights *mat.VecDense) (float64, error) {
	return weightedMean("PoissonNLL", yTrue, yPred, weights, func(y, p float64) float64 {
		const eps = 1e-10
		if p < eps {
			p = eps
		}
		return p - y*math.Log(p)
	})
}
