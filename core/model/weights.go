package model

import (
	"encoding/json"
	"maps"
	"slices"

	"github.com/YuminosukeSato/catnb/pkg/errors"
)

// ModelWeights はモデルのパラメータを言語非依存の形で表す構造体（JSONエクスポート用）
type ModelWeights struct {
	// ModelType はモデルの種類（CategoricalNB 等）
	ModelType string `json:"model_type"`

	// Version は形式のバージョン（互換性チェック用）
	Version string `json:"version"`

	// Classes はクラスラベル（正準順序）
	Classes []any `json:"classes"`

	// Priors は Classes と同じ順序の事前確率
	Priors []float64 `json:"priors"`

	// Features は特徴量ごとの条件付き確率表
	Features []FeatureWeights `json:"features"`

	// Hyperparameters はモデルのハイパーパラメータ
	Hyperparameters map[string]interface{} `json:"hyperparameters"`

	// Metadata は追加のメタデータ（学習時の統計等）
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// IsFitted はモデルが学習済みかどうか
	IsFitted bool `json:"is_fitted"`
}

// FeatureWeights は 1 特徴量分の確率表。
// Probabilities[i][j] は P(Values[j] | Name, Classes[i])。
type FeatureWeights struct {
	Name          string      `json:"name"`
	Values        []any       `json:"values"`
	Probabilities [][]float64 `json:"probabilities"`
}

// ToJSON はModelWeightsをJSON形式にシリアライズ
func (mw *ModelWeights) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(mw, "", "  ")
	return data, errors.Wrap(err, "encode model weights")
}

// FromJSON はJSON形式からModelWeightsをデシリアライズ
func (mw *ModelWeights) FromJSON(data []byte) error {
	return errors.Wrap(json.Unmarshal(data, mw), "decode model weights")
}

// Validate はModelWeightsの形の妥当性を検証する。
// 確率値そのものの検証はモデル側で行う。
func (mw *ModelWeights) Validate() error {
	if mw.ModelType == "" {
		return errors.NewValidationError("model_type", "is required", mw.ModelType)
	}
	if mw.Version == "" {
		return errors.NewValidationError("version", "is required", mw.Version)
	}
	if !mw.IsFitted && (len(mw.Classes) > 0 || len(mw.Features) > 0) {
		return errors.NewValidationError("is_fitted", "unfitted model should not have parameters", mw.IsFitted)
	}
	if !mw.IsFitted {
		return nil
	}
	if len(mw.Classes) == 0 || len(mw.Features) == 0 {
		return errors.NewValidationError("classes", "fitted model must have classes and features", len(mw.Classes))
	}
	if len(mw.Priors) != len(mw.Classes) {
		return errors.NewValidationError("priors", "must have one entry per class", len(mw.Priors))
	}
	for _, f := range mw.Features {
		if len(f.Probabilities) != len(mw.Classes) {
			return errors.NewValidationError("features."+f.Name, "must have one row per class", len(f.Probabilities))
		}
		for _, row := range f.Probabilities {
			if len(row) != len(f.Values) {
				return errors.NewValidationError("features."+f.Name, "row length must match values", len(row))
			}
		}
	}
	return nil
}

// Clone はModelWeightsのディープコピーを作成
func (mw *ModelWeights) Clone() *ModelWeights {
	clone := &ModelWeights{
		ModelType:       mw.ModelType,
		Version:         mw.Version,
		IsFitted:        mw.IsFitted,
		Classes:         slices.Clone(mw.Classes),
		Priors:          slices.Clone(mw.Priors),
		Features:        make([]FeatureWeights, len(mw.Features)),
		Hyperparameters: make(map[string]interface{}, len(mw.Hyperparameters)),
		Metadata:        make(map[string]interface{}, len(mw.Metadata)),
	}
	for i, f := range mw.Features {
		rows := make([][]float64, len(f.Probabilities))
		for j, r := range f.Probabilities {
			rows[j] = slices.Clone(r)
		}
		clone.Features[i] = FeatureWeights{Name: f.Name, Values: slices.Clone(f.Values), Probabilities: rows}
	}
	maps.Copy(clone.Hyperparameters, mw.Hyperparameters)
	maps.Copy(clone.Metadata, mw.Metadata)
	return clone
}
