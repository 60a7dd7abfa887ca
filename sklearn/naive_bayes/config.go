// Package naive_bayes は離散（カテゴリカル）特徴量のためのナイーブベイズ分類器を提供します。
//
// Trainer がラベル付きデータから Laplace 平滑化済みの確率表を推定して不変の Model を生成し、
// Classifier がその Model を使って対数空間での MAP 推定により新しいレコードを分類します。
//
//	trainer := naive_bayes.NewTrainer()
//	model, err := trainer.TrainFrame(frame, "play")
//	clf, err := naive_bayes.NewClassifier(model)
//	label, err := clf.ClassifySingle(dataset.Record{"weather": "sunny"})
package naive_bayes

import (
	"math"

	"github.com/YuminosukeSato/catnb/pkg/errors"
)

const (
	// DefaultLaplaceAlpha は Laplace 平滑化の既定値です。
	DefaultLaplaceAlpha = 1.0
	// DefaultUnseenProbability は学習時に観測されなかった値に割り当てる確率です。
	DefaultUnseenProbability = 1e-10
	// DefaultParallelThreshold を超える行数のバッチ分類は並列化されます。
	DefaultParallelThreshold = 1000
)

// Config は学習と分類の両方で共有される定数をまとめたものです。
type Config struct {
	// LaplaceAlpha は加法平滑化の定数 α（> 0）
	LaplaceAlpha float64 `json:"laplace_alpha" yaml:"laplace_alpha"`
	// UnseenProbability は未知の値に対する固定確率（0 < p < 1）
	UnseenProbability float64 `json:"unseen_probability" yaml:"unseen_probability"`
}

// DefaultConfig は α = 1.0、未知値確率 = 1e-10 の設定を返します。
func DefaultConfig() Config {
	return Config{
		LaplaceAlpha:      DefaultLaplaceAlpha,
		UnseenProbability: DefaultUnseenProbability,
	}
}

// Validate は設定値が有効な範囲にあるかを検証します。
func (c Config) Validate() error {
	if math.IsNaN(c.LaplaceAlpha) || math.IsInf(c.LaplaceAlpha, 0) || c.LaplaceAlpha <= 0 {
		return errors.NewValidationError("laplace_alpha", "must be a finite positive number", c.LaplaceAlpha)
	}
	if math.IsNaN(c.UnseenProbability) || c.UnseenProbability <= 0 || c.UnseenProbability >= 1 {
		return errors.NewValidationError("unseen_probability", "must be in (0, 1)", c.UnseenProbability)
	}
	return nil
}
