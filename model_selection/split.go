// Package model_selection はデータ分割と交差検証を提供します。
package model_selection

import (
	"math"
	"math/rand/v2"
	"slices"
	"sort"

	"github.com/YuminosukeSato/catnb/dataset"
	"github.com/YuminosukeSato/catnb/pkg/errors"
)

// DefaultTestFraction と DefaultSeed は検証用分割の既定値
const (
	DefaultTestFraction = 0.3
	DefaultSeed         = 42
)

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

func checkFraction(op, name string, f float64) error {
	if math.IsNaN(f) || f <= 0 || f >= 1 {
		return errors.NewInvalidInputErrorf(op, "%s must be in (0, 1), got %v", name, f)
	}
	return nil
}

// StratifiedSplitIndices は labels を層化してテスト用と学習用の行番号に分けます。
//
// テスト件数は ceil(testFraction * N) で、各クラスへの割り当ては
// 比例配分の端数を大きい順（同点はクラスの正準順序）に配る最大剰余法で決めます。
// クラス内のどの行を選ぶかは seed で決まる乱数で決定し、返す行番号は昇順です。
func StratifiedSplitIndices(labels []dataset.Value, testFraction float64, seed uint64) (train, test []int, err error) {
	const op = "StratifiedSplit"
	if err := checkFraction(op, "test_fraction", testFraction); err != nil {
		return nil, nil, err
	}
	y, err := dataset.NormalizeAll(labels)
	if err != nil {
		return nil, nil, err
	}
	n := len(y)
	if n == 0 {
		return nil, nil, errors.NewInvalidInputError(op, "no rows to split")
	}

	classes := dataset.Distinct(y)
	if n < len(classes) {
		return nil, nil, errors.NewInvalidInputErrorf(op, "%d rows cannot be stratified over %d classes", n, len(classes))
	}
	// 0.3*10 のような積が浮動小数点誤差で整数をわずかに超えないようにする
	nTest := int(math.Ceil(testFraction*float64(n) - 1e-9))
	if nTest <= 0 || nTest >= n {
		return nil, nil, errors.NewInvalidInputErrorf(op,
			"test_fraction %v of %d rows leaves an empty partition", testFraction, n)
	}

	byClass := make(map[dataset.Value][]int, len(classes))
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}

	quota := allocate(classes, byClass, nTest, n)

	r := newRand(seed)
	isTest := make([]bool, n)
	for k, c := range classes {
		rows := slices.Clone(byClass[c])
		r.Shuffle(len(rows), func(i, j int) {
			rows[i], rows[j] = rows[j], rows[i]
		})
		for _, i := range rows[:quota[k]] {
			isTest[i] = true
		}
	}

	train = make([]int, 0, n-nTest)
	test = make([]int, 0, nTest)
	for i, t := range isTest {
		if t {
			test = append(test, i)
		} else {
			train = append(train, i)
		}
	}
	return train, test, nil
}

// allocate は最大剰余法で nTest 件を各クラスへ割り当てます。
func allocate(classes []dataset.Value, byClass map[dataset.Value][]int, nTest, n int) []int {
	quota := make([]int, len(classes))
	remainders := make([]float64, len(classes))
	assigned := 0
	for k, c := range classes {
		exact := float64(nTest) * float64(len(byClass[c])) / float64(n)
		quota[k] = int(math.Floor(exact))
		remainders[k] = exact - float64(quota[k])
		assigned += quota[k]
	}

	order := make([]int, len(classes))
	for k := range order {
		order[k] = k
	}
	// 端数の大きい順。SliceStable で同点はクラス順を保つ
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]] > remainders[order[b]]
	})
	for _, k := range order {
		if assigned == nTest {
			break
		}
		if quota[k] < len(byClass[classes[k]]) {
			quota[k]++
			assigned++
		}
	}
	return quota
}

// StratifiedSplit は frame を labelColumn で層化して学習用とテスト用に分けます。
// どちらの Frame もラベル列を含み、行は元の相対順序を保ちます。
// 同じ入力と seed からは常に同じ分割が得られます。
func StratifiedSplit(frame *dataset.Frame, labelColumn string, testFraction float64, seed uint64) (train, test *dataset.Frame, err error) {
	if frame == nil {
		return nil, nil, errors.NewInvalidInputError("StratifiedSplit", "data cannot be nil")
	}
	labels, err := frame.Column(labelColumn)
	if err != nil {
		return nil, nil, err
	}
	trainIdx, testIdx, err := StratifiedSplitIndices(labels, testFraction, seed)
	if err != nil {
		return nil, nil, err
	}
	if train, err = frame.Subset(trainIdx); err != nil {
		return nil, nil, err
	}
	if test, err = frame.Subset(testIdx); err != nil {
		return nil, nil, err
	}
	return train, test, nil
}

// TrainTestSplitFrame は層化せずに行をシャッフルして分割します。
// 学習側は floor(trainRatio * N) 行で、両方とも空でない必要があります。
func TrainTestSplitFrame(frame *dataset.Frame, trainRatio float64, seed uint64) (train, test *dataset.Frame, err error) {
	const op = "TrainTestSplit"
	if frame == nil {
		return nil, nil, errors.NewInvalidInputError(op, "data cannot be nil")
	}
	if err := checkFraction(op, "train_ratio", trainRatio); err != nil {
		return nil, nil, err
	}
	n := frame.Len()
	nTrain := int(math.Floor(trainRatio*float64(n) + 1e-9))
	if nTrain == 0 || nTrain == n {
		return nil, nil, errors.NewInvalidInputErrorf(op,
			"train_ratio %v of %d rows leaves an empty partition", trainRatio, n)
	}

	perm := newRand(seed).Perm(n)
	if train, err = frame.Subset(perm[:nTrain]); err != nil {
		return nil, nil, err
	}
	if test, err = frame.Subset(perm[nTrain:]); err != nil {
		return nil, nil, err
	}
	return train, test, nil
}
