package model_selection

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/YuminosukeSato/catnb/dataset"
	"github.com/YuminosukeSato/catnb/metrics"
	"github.com/YuminosukeSato/catnb/pkg/errors"
	"github.com/YuminosukeSato/catnb/pkg/log"
	"github.com/YuminosukeSato/catnb/sklearn/naive_bayes"
	"golang.org/x/sync/errgroup"
)

// CVFold は交差検証の 1 分割
type CVFold struct {
	TrainIndices []int
	TestIndices  []int
}

// StratifiedKFold は各分割でクラス比率を保つ k 分割交差検証
type StratifiedKFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed uint64
}

// NewStratifiedKFold は新しい StratifiedKFold を作成します（nSplits < 2 なら 5）。
func NewStratifiedKFold(nSplits int, shuffle bool, randomSeed uint64) *StratifiedKFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &StratifiedKFold{
		NSplits:    nSplits,
		Shuffle:    shuffle,
		RandomSeed: randomSeed,
	}
}

// GetNSplits は分割数を返します。
func (skf *StratifiedKFold) GetNSplits() int {
	return skf.NSplits
}

// Split は labels から層化した学習用・テスト用の行番号を分割ごとに返します。
// 行数が分割数より少ない場合は InvalidInputError。
func (skf *StratifiedKFold) Split(labels []dataset.Value) ([]CVFold, error) {
	y, err := dataset.NormalizeAll(labels)
	if err != nil {
		return nil, err
	}
	n := len(y)
	if n < skf.NSplits {
		return nil, errors.NewInvalidInputErrorf("StratifiedKFold", "cannot split %d rows into %d folds", n, skf.NSplits)
	}

	classes := dataset.Distinct(y)
	byClass := make(map[dataset.Value][]int, len(classes))
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}

	var r *rand.Rand
	if skf.Shuffle {
		r = newRand(skf.RandomSeed)
	}

	foldOf := make([]int, n)
	// クラスを正準順序で走査し、各クラスの行を分割へ順番に配る。
	// 前のクラスの続きから配ることで分割の大きさを揃える
	next := 0
	for _, c := range classes {
		rows := byClass[c]
		if r != nil {
			r.Shuffle(len(rows), func(i, j int) {
				rows[i], rows[j] = rows[j], rows[i]
			})
		}
		for _, i := range rows {
			foldOf[i] = next
			next = (next + 1) % skf.NSplits
		}
	}

	folds := make([]CVFold, skf.NSplits)
	for k := range folds {
		folds[k] = CVFold{TrainIndices: make([]int, 0, n), TestIndices: make([]int, 0)}
	}
	for i, k := range foldOf {
		for f := range folds {
			if f == k {
				folds[f].TestIndices = append(folds[f].TestIndices, i)
			} else {
				folds[f].TrainIndices = append(folds[f].TrainIndices, i)
			}
		}
	}
	return folds, nil
}

// CVResult は交差検証の結果
type CVResult struct {
	TrainScores []float64
	TestScores  []float64
	FitTimes    []float64 // 秒
	ScoreTimes  []float64 // 秒
	Models      []*naive_bayes.Model
	BestFold    int
	BestScore   float64
}

// GetMeanScore はテストスコアの平均を返します。
func (cv *CVResult) GetMeanScore() float64 {
	if len(cv.TestScores) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, score := range cv.TestScores {
		sum += score
	}
	return sum / float64(len(cv.TestScores))
}

// GetStdScore はテストスコアの標本標準偏差を返します。
func (cv *CVResult) GetStdScore() float64 {
	if len(cv.TestScores) <= 1 {
		return 0.0
	}
	mean := cv.GetMeanScore()
	sumSq := 0.0
	for _, score := range cv.TestScores {
		diff := score - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(len(cv.TestScores)-1))
}

// CrossValidate は各分割で学習・分類を行い、正解率を記録します。
// 分割は並行に処理されます。
func CrossValidate(trainer *naive_bayes.Trainer, frame *dataset.Frame, target string, skf *StratifiedKFold, opts ...naive_bayes.Option) (*CVResult, error) {
	if trainer == nil || skf == nil {
		return nil, errors.NewInvalidInputError("CrossValidate", "trainer and splitter are required")
	}
	if frame == nil {
		return nil, errors.NewInvalidInputError("CrossValidate", "data cannot be nil")
	}
	features, labels, err := frame.SplitTarget(target)
	if err != nil {
		return nil, err
	}
	folds, err := skf.Split(labels)
	if err != nil {
		return nil, err
	}

	nFolds := len(folds)
	result := &CVResult{
		TrainScores: make([]float64, nFolds),
		TestScores:  make([]float64, nFolds),
		FitTimes:    make([]float64, nFolds),
		ScoreTimes:  make([]float64, nFolds),
		Models:      make([]*naive_bayes.Model, nFolds),
	}

	var g errgroup.Group
	for idx, fold := range folds {
		g.Go(func() error {
			trainX, trainY, err := subset(features, labels, fold.TrainIndices)
			if err != nil {
				return err
			}
			testX, testY, err := subset(features, labels, fold.TestIndices)
			if err != nil {
				return err
			}

			start := time.Now()
			model, err := trainer.Train(trainX, trainY)
			if err != nil {
				return errors.Wrapf(err, "fold %d training failed", idx)
			}
			result.FitTimes[idx] = time.Since(start).Seconds()
			result.Models[idx] = model

			clf, err := naive_bayes.NewClassifier(model, opts...)
			if err != nil {
				return err
			}
			start = time.Now()
			if result.TrainScores[idx], err = score(clf, trainX, trainY); err != nil {
				return errors.Wrapf(err, "fold %d train prediction failed", idx)
			}
			if result.TestScores[idx], err = score(clf, testX, testY); err != nil {
				return errors.Wrapf(err, "fold %d test prediction failed", idx)
			}
			result.ScoreTimes[idx] = time.Since(start).Seconds()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.BestScore = result.TestScores[0]
	for i := 1; i < nFolds; i++ {
		if result.TestScores[i] > result.BestScore {
			result.BestScore = result.TestScores[i]
			result.BestFold = i
		}
	}

	log.GetLoggerWithName("model_selection").Info("Cross-validation completed",
		log.OperationKey, log.OperationValidate,
		log.PhaseKey, log.PhaseValidation,
		log.SamplesKey, frame.Len(),
		"cv.folds", nFolds,
		log.AccuracyKey, result.GetMeanScore(),
		"cv.accuracy_std", result.GetStdScore(),
	)
	return result, nil
}

func subset(features *dataset.Frame, labels []dataset.Value, idx []int) (*dataset.Frame, []dataset.Value, error) {
	x, err := features.Subset(idx)
	if err != nil {
		return nil, nil, err
	}
	y := make([]dataset.Value, len(idx))
	for k, i := range idx {
		y[k] = labels[i]
	}
	return x, y, nil
}

func score(clf *naive_bayes.Classifier, x *dataset.Frame, y []dataset.Value) (float64, error) {
	pred, err := clf.ClassifyGroup(x)
	if err != nil {
		return 0, err
	}
	return metrics.Accuracy(y, pred)
}
