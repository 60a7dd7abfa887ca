package naive_bayes

import (
	"fmt"
	"math"
	"slices"
	"sync/atomic"
	"time"

	"github.com/YuminosukeSato/catnb/core/parallel"
	"github.com/YuminosukeSato/catnb/dataset"
	"github.com/YuminosukeSato/catnb/pkg/errors"
	"github.com/YuminosukeSato/catnb/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// Classifier は 1 つの Model に束縛された分類器です。
// 内部状態は構築時に確定し、以後は読み取りのみのため並行に使えます。
type Classifier struct {
	settings
	model *Model

	logPriors []float64
	// logTables[f] は classes × values の対数確率
	logTables []*mat.Dense
	logUnseen float64
}

// NewClassifier は model に束縛された Classifier を作成します。
// model が nil または未学習の場合は ModelNotTrainedError を返します。
func NewClassifier(model *Model, opts ...Option) (*Classifier, error) {
	if !model.IsTrained() {
		return nil, errors.NewModelNotTrainedError("NewClassifier")
	}
	c := &Classifier{settings: defaultSettings("naive_bayes.classifier"), model: model}
	for _, opt := range opts {
		opt(&c.settings)
	}
	if err := c.config.Validate(); err != nil {
		return nil, err
	}

	if floor := model.minProbability(); c.config.UnseenProbability >= floor {
		return nil, errors.NewValidationError("unseen_probability",
			fmt.Sprintf("must be smaller than every smoothed probability (min %g)", floor),
			c.config.UnseenProbability)
	}

	c.logPriors = make([]float64, len(model.priors))
	for i, p := range model.priors {
		c.logPriors[i] = math.Log(p)
	}
	c.logTables = make([]*mat.Dense, len(model.tables))
	for f, t := range model.tables {
		r, k := t.probs.Dims()
		lt := mat.NewDense(r, k, nil)
		lt.Apply(func(_, _ int, v float64) float64 { return math.Log(v) }, t.probs)
		c.logTables[f] = lt
	}
	c.logUnseen = math.Log(c.config.UnseenProbability)
	return c, nil
}

// Model は束縛されたモデルを返します。
func (c *Classifier) Model() *Model {
	return c.model
}

// JointLogLikelihood は各クラスの ln P(c) + Σ ln P(x_f | f, c) を
// Model.Classes() の順で返します。モデルに存在しない特徴量は無視され、
// 学習時に観測されなかった値は固定の未知値確率で評価されます。
func (c *Classifier) JointLogLikelihood(record dataset.Record) ([]float64, error) {
	scores, _, err := c.score(record)
	return scores, err
}

func (c *Classifier) score(record dataset.Record) ([]float64, int, error) {
	scores := slices.Clone(c.logPriors)
	unseen := 0
	// 加算順序はモデルの特徴量順に固定する
	for f, name := range c.model.features {
		raw, ok := record[name]
		if !ok {
			continue
		}
		v, err := dataset.Normalize(raw)
		if err != nil {
			return nil, 0, errors.Wrapf(err, "feature %q", name)
		}
		if !c.accumulate(scores, f, v) {
			unseen++
		}
	}
	return scores, unseen, nil
}

// accumulate は特徴量 f の値 v の対数尤度を scores に加算し、v が既知かを返します。
func (c *Classifier) accumulate(scores []float64, f int, v dataset.Value) bool {
	j, seen := c.model.tables[f].index[v]
	if !seen {
		for i := range scores {
			scores[i] += c.logUnseen
		}
		return false
	}
	lt := c.logTables[f]
	for i := range scores {
		scores[i] += lt.At(i, j)
	}
	return true
}

// tieTolerance 以下の相対差は同点とみなす
const tieTolerance = 1e-12

// argmax は最大スコアのクラス番号を返します。同点の場合は正準順序で先のクラス。
func argmax(scores []float64) int {
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i]-scores[best] > tieTolerance*math.Max(1, math.Abs(scores[best])) {
			best = i
		}
	}
	return best
}

// ClassifySingle は 1 レコードを分類し、事後確率が最大のクラスを返します。
func (c *Classifier) ClassifySingle(record dataset.Record) (dataset.Value, error) {
	scores, unseen, err := c.score(record)
	if err != nil {
		return nil, err
	}
	if unseen > 0 {
		c.logger.Debug("Unseen feature values scored with fallback probability",
			log.UnseenValuesKey, unseen)
	}
	return c.model.classes[argmax(scores)], nil
}

// PredictProba は各クラスの事後確率を返します。総和は 1 になります。
func (c *Classifier) PredictProba(record dataset.Record) (map[dataset.Value]float64, error) {
	scores, _, err := c.score(record)
	if err != nil {
		return nil, err
	}
	norm := errors.LogSumExp(scores)
	out := make(map[dataset.Value]float64, len(scores))
	for i, s := range scores {
		out[c.model.classes[i]] = math.Exp(s - norm)
	}
	return out, nil
}

// ClassifyGroup は frame の各行を分類し、入力と同じ順序で結果を返します。
func (c *Classifier) ClassifyGroup(frame *dataset.Frame) ([]dataset.Value, error) {
	if frame == nil {
		return nil, errors.NewInvalidInputError("ClassifyGroup", "data cannot be nil")
	}
	// モデルの特徴量番号 → 列番号（-1 は欠損）
	columns := make([]int, len(c.model.features))
	for f, name := range c.model.features {
		columns[f] = -1
		if j, ok := frame.ColumnIndex(name); ok {
			columns[f] = j
		}
	}

	return c.classifyBatch(frame.Len(), func(i int) ([]float64, int, error) {
		scores := slices.Clone(c.logPriors)
		unseen := 0
		for f, j := range columns {
			if j < 0 {
				continue
			}
			if !c.accumulate(scores, f, frame.At(i, j)) {
				unseen++
			}
		}
		return scores, unseen, nil
	})
}

// ClassifyRecords は複数レコードを入力順に分類します。
func (c *Classifier) ClassifyRecords(records []dataset.Record) ([]dataset.Value, error) {
	return c.classifyBatch(len(records), func(i int) ([]float64, int, error) {
		scores, unseen, err := c.score(records[i])
		if err != nil {
			return nil, 0, errors.Wrapf(err, "record %d", i)
		}
		return scores, unseen, nil
	})
}

func (c *Classifier) classifyBatch(n int, scoreRow func(i int) ([]float64, int, error)) ([]dataset.Value, error) {
	start := time.Now()
	predictions := make([]dataset.Value, n)
	var unseen atomic.Int64

	err := parallel.ParallelizeWithThreshold(n, c.parallelThreshold, c.workers, func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			scores, u, err := scoreRow(i)
			if err != nil {
				return err
			}
			unseen.Add(int64(u))
			predictions[i] = c.model.classes[argmax(scores)]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	workers := 1
	if c.parallelThreshold >= 0 && n > c.parallelThreshold {
		workers = parallel.Workers(n, c.workers)
	}
	c.logger.Debug("Batch classification completed",
		log.OperationKey, log.OperationPredict,
		log.PhaseKey, log.PhaseInference,
		log.PredsKey, n,
		log.UnseenValuesKey, unseen.Load(),
		log.WorkersKey, workers,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return predictions, nil
}

// ParseRecord は文字列だけからなる入力（CLI やフォームの値）をモデルの値に
// 対応付けます。学習時の値の文字列表現と一致すればその値を使い、
// そうでなければ dataset.Parse で推定します。
func (c *Classifier) ParseRecord(raw map[string]string) dataset.Record {
	out := make(dataset.Record, len(raw))
	for name, s := range raw {
		out[name] = c.parseValue(name, s)
	}
	return out
}

func (c *Classifier) parseValue(feature, s string) dataset.Value {
	if f, ok := c.model.featureIndex[feature]; ok {
		if v, ok := c.model.tables[f].symbols[s]; ok {
			return v
		}
	}
	return dataset.Parse(s)
}
