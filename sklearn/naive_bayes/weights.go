package naive_bayes

import (
	"github.com/YuminosukeSato/catnb/core/model"
	"github.com/YuminosukeSato/catnb/dataset"
	"github.com/YuminosukeSato/catnb/pkg/errors"
)

// WeightsVersion は ModelWeights 形式のバージョン
const WeightsVersion = "1"

// Weights はモデルのパラメータを JSON に書き出せる形で返します。
func (m *Model) Weights() *model.ModelWeights {
	if !m.IsTrained() {
		return &model.ModelWeights{ModelType: ModelName, Version: WeightsVersion}
	}
	w := &model.ModelWeights{
		ModelType: ModelName,
		Version:   WeightsVersion,
		Classes:   m.Classes(),
		Priors:    append([]float64(nil), m.priors...),
		Features:  make([]model.FeatureWeights, len(m.features)),
		Hyperparameters: map[string]interface{}{
			"laplace_alpha": m.alpha,
		},
		Metadata: map[string]interface{}{
			"n_samples": m.nSamples,
		},
		IsFitted: true,
	}
	for f, name := range m.features {
		t := m.tables[f]
		rows := make([][]float64, len(m.classes))
		for i := range rows {
			rows[i] = append([]float64(nil), t.probs.RawRowView(i)...)
		}
		w.Features[f] = model.FeatureWeights{
			Name:          name,
			Values:        append([]dataset.Value(nil), t.values...),
			Probabilities: rows,
		}
	}
	return w
}

// ModelFromWeights は Weights の出力からモデルを復元します。
// 確率表は gob スナップショットと同じ検証を受けます。
func ModelFromWeights(w *model.ModelWeights) (*Model, error) {
	if w == nil {
		return nil, errors.NewInvalidInputError("ModelFromWeights", "weights cannot be nil")
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if w.ModelType != ModelName {
		return nil, errors.NewInvalidInputErrorf("ModelFromWeights", "model type %q is not %s", w.ModelType, ModelName)
	}
	if !w.IsFitted {
		return nil, errors.NewModelNotTrainedError("ModelFromWeights")
	}

	classes, err := dataset.NormalizeAll(w.Classes)
	if err != nil {
		return nil, err
	}
	alpha, _ := w.Hyperparameters["laplace_alpha"].(float64)
	nSamples := 0
	if n, ok := w.Metadata["n_samples"].(float64); ok {
		nSamples = int(n)
	} else if n, ok := w.Metadata["n_samples"].(int); ok {
		nSamples = n
	}

	snap := modelSnapshot{
		Version:  snapshotVersion,
		Classes:  toSnapshotValues(classes),
		Priors:   w.Priors,
		Features: make([]string, len(w.Features)),
		Values:   make([][]snapshotValue, len(w.Features)),
		Tables:   make([][]float64, len(w.Features)),
		Alpha:    alpha,
		NSamples: nSamples,
	}
	for f, fw := range w.Features {
		values, err := dataset.NormalizeAll(fw.Values)
		if err != nil {
			return nil, errors.Wrapf(err, "feature %q", fw.Name)
		}
		snap.Features[f] = fw.Name
		snap.Values[f] = toSnapshotValues(values)
		flat := make([]float64, 0, len(classes)*len(values))
		for _, row := range fw.Probabilities {
			flat = append(flat, row...)
		}
		snap.Tables[f] = flat
	}
	return snap.model()
}
