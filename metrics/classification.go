package metrics

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/lgbm/pkg/errors"
)

// BinaryLogLoss は二値分類の対数損失を計算する。yPred は陽性クラスの確率。
func BinaryLogLoss(yTrue, yProb, weights *mat.VecDense) (float64, error) {
	return weightedMean("BinaryLogLoss", yTrue, yProb, weights, func(y, p float64) float64 {
		if y > 0 {
			return -errors.StabilizeLog(p)
		}
		return -errors.StabilizeLog(1 - p)
	})
}

// BinaryError は閾値 0.5 での誤分類率を計算する
func BinaryError(yTrue, yProb, weights *mat.VecDense) (float64, error) {
	return weightedMean("BinaryError", yTrue, yProb, weights, func(y, p float64) float64 {
		if (p > 0.5) != (y > 0) {
			return 1
		}
		return 0
	})
}
