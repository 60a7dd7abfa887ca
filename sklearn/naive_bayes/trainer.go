package naive_bayes

import (
	"time"

	"github.com/YuminosukeSato/catnb/dataset"
	"github.com/YuminosukeSato/catnb/pkg/errors"
	"github.com/YuminosukeSato/catnb/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// Trainer はラベル付きデータから Model を推定します。
// 状態を持たないため、同じ Trainer を何度でも（並行しても）使えます。
type Trainer struct {
	settings
}

// NewTrainer は新しい Trainer を作成します。
func NewTrainer(opts ...Option) *Trainer {
	t := &Trainer{settings: defaultSettings("naive_bayes.trainer")}
	for _, opt := range opts {
		opt(&t.settings)
	}
	return t
}

// Config は Trainer の設定を返します。
func (t *Trainer) Config() Config {
	return t.config
}

// TrainFrame は frame から target 列を切り離して学習します。
func (t *Trainer) TrainFrame(frame *dataset.Frame, target string) (*Model, error) {
	if frame == nil {
		return nil, errors.NewInvalidInputError("TrainFrame", "data cannot be nil")
	}
	features, labels, err := frame.SplitTarget(target)
	if err != nil {
		return nil, err
	}
	model, err := t.Train(features, labels)
	if err != nil {
		return nil, err
	}
	t.logger.Debug("Target column separated", log.TargetKey, target)
	return model, nil
}

// Train は特徴量テーブルとラベル列から Model を構築します。
//
// 事前確率は (n_c + α) / (N + α|C|)、条件付き確率は
// (m + α) / (s_c + α|V_f|) で推定します。V_f は全クラスを通して観測された
// 特徴量 f の値集合です。失敗時に途中までのモデルを返すことはありません。
func (t *Trainer) Train(features *dataset.Frame, labels []dataset.Value) (*Model, error) {
	const op = "Train"
	start := time.Now()

	if err := t.config.Validate(); err != nil {
		return nil, err
	}
	if features == nil || features.Len() == 0 {
		return nil, errors.NewInvalidInputError(op, "features cannot be empty")
	}
	if features.Width() == 0 {
		return nil, errors.NewInvalidInputError(op, "no feature columns")
	}
	if len(labels) == 0 {
		return nil, errors.NewInvalidInputError(op, "labels cannot be empty")
	}
	if len(labels) != features.Len() {
		return nil, errors.NewInvalidInputErrorf(op, "features have %d rows but labels have %d", features.Len(), len(labels))
	}
	y, err := dataset.NormalizeAll(labels)
	if err != nil {
		return nil, errors.Wrap(err, "labels")
	}

	alpha := t.config.LaplaceAlpha
	n := len(y)

	classes := dataset.Distinct(y)
	classIndex := indexValues(classes)
	nClasses := len(classes)

	yIdx := make([]int, n)
	classCounts := make([]float64, nClasses)
	for i, label := range y {
		c := classIndex[label]
		yIdx[i] = c
		classCounts[c]++
	}

	priors := make([]float64, nClasses)
	denom := float64(n) + alpha*float64(nClasses)
	for c := range priors {
		priors[c] = (classCounts[c] + alpha) / denom
	}

	names := features.Columns()
	tables := make([]featureTable, len(names))
	featureIndex := make(map[string]int, len(names))
	for f, name := range names {
		featureIndex[name] = f
		column, err := features.Column(name)
		if err != nil {
			return nil, err
		}
		tables[f] = buildTable(column, yIdx, classCounts, alpha)
	}

	model := &Model{
		classes:      classes,
		classIndex:   classIndex,
		classSymbols: symbolIndex(classes),
		priors:       priors,
		features:     names,
		featureIndex: featureIndex,
		tables:       tables,
		alpha:        alpha,
		nSamples:     n,
		trained:      true,
	}

	t.logger.Info("Training completed",
		log.ModelNameKey, ModelName,
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.SamplesKey, n,
		log.FeaturesKey, len(names),
		log.ClassesKey, nClasses,
		log.SmoothingKey, alpha,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return model, nil
}

// buildTable は 1 特徴量分の平滑化済み確率表を作ります。
func buildTable(column []dataset.Value, yIdx []int, classCounts []float64, alpha float64) featureTable {
	values := dataset.Distinct(column)
	index := indexValues(values)
	nClasses, nValues := len(classCounts), len(values)

	counts := mat.NewDense(nClasses, nValues, nil)
	for i, v := range column {
		c, j := yIdx[i], index[v]
		counts.Set(c, j, counts.At(c, j)+1)
	}

	probs := mat.NewDense(nClasses, nValues, nil)
	probs.Apply(func(c, _ int, m float64) float64 {
		return (m + alpha) / (classCounts[c] + alpha*float64(nValues))
	}, counts)

	return newFeatureTable(values, probs)
}
