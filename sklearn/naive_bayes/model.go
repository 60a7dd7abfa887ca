package naive_bayes

import (
	"slices"

	"github.com/YuminosukeSato/catnb/dataset"
	"gonum.org/v1/gonum/mat"
)

// ModelName は構造化ログに出力するモデル名
const ModelName = "CategoricalNB"

// featureTable は 1 特徴量分の条件付き確率表。
// probs の (i, j) は P(values[j] | feature, classes[i]) を保持します。
type featureTable struct {
	values  []dataset.Value
	index   map[dataset.Value]int
	symbols map[string]dataset.Value
	probs   *mat.Dense
}

func newFeatureTable(values []dataset.Value, probs *mat.Dense) featureTable {
	return featureTable{
		values:  values,
		index:   indexValues(values),
		symbols: symbolIndex(values),
		probs:   probs,
	}
}

// Model は学習済みのパラメータ集合です。
// Trainer が一度の学習で生成し、その後は変更されません。複数の Classifier から
// 同時に読み取っても安全です。ゼロ値の Model{} は未学習として扱われます。
type Model struct {
	classes      []dataset.Value
	classIndex   map[dataset.Value]int
	classSymbols map[string]dataset.Value
	priors       []float64

	features     []string
	featureIndex map[string]int
	tables       []featureTable

	alpha    float64
	nSamples int
	trained  bool
}

// ModelInfo はモデルの概要です。
type ModelInfo struct {
	Status       string          `json:"status"`
	Classes      []dataset.Value `json:"classes"`
	Features     []string        `json:"features"`
	ClassCount   int             `json:"class_count"`
	FeatureCount int             `json:"feature_count"`
}

// IsTrained は Trainer によって構築されたモデルかどうかを返します。
func (m *Model) IsTrained() bool {
	return m != nil && m.trained
}

// Classes はクラスラベルを正準順序で返します。
func (m *Model) Classes() []dataset.Value {
	if m == nil {
		return nil
	}
	return slices.Clone(m.classes)
}

// Features は学習に使われた特徴量名を列順で返します。
func (m *Model) Features() []string {
	if m == nil {
		return nil
	}
	return slices.Clone(m.features)
}

// ClassPriors はクラスごとの事前確率を返します。
func (m *Model) ClassPriors() map[dataset.Value]float64 {
	out := make(map[dataset.Value]float64)
	if m == nil {
		return out
	}
	for i, c := range m.classes {
		out[c] = m.priors[i]
	}
	return out
}

// FeatureProbabilities は feature → class → value → 確率 の入れ子マップを返します。
// 返り値はコピーなので変更してもモデルには影響しません。
func (m *Model) FeatureProbabilities() map[string]map[dataset.Value]map[dataset.Value]float64 {
	out := make(map[string]map[dataset.Value]map[dataset.Value]float64)
	if m == nil {
		return out
	}
	for f, name := range m.features {
		t := m.tables[f]
		byClass := make(map[dataset.Value]map[dataset.Value]float64, len(m.classes))
		for i, c := range m.classes {
			row := make(map[dataset.Value]float64, len(t.values))
			for j, v := range t.values {
				row[v] = t.probs.At(i, j)
			}
			byClass[c] = row
		}
		out[name] = byClass
	}
	return out
}

// FeatureValues は特徴量について学習時に観測された値を正準順序で返します。
func (m *Model) FeatureValues(feature string) ([]dataset.Value, bool) {
	if m == nil {
		return nil, false
	}
	f, ok := m.featureIndex[feature]
	if !ok {
		return nil, false
	}
	return slices.Clone(m.tables[f].values), true
}

// Prior はクラスの事前確率を返します。未知のクラスでは ok == false。
func (m *Model) Prior(class any) (float64, bool) {
	if m == nil {
		return 0, false
	}
	c, err := dataset.Normalize(class)
	if err != nil {
		return 0, false
	}
	i, ok := m.classIndex[c]
	if !ok {
		return 0, false
	}
	return m.priors[i], true
}

// FeatureProbability は P(value | feature, class) を返します。
// 特徴量・クラス・値のいずれかが学習時に存在しなければ ok == false。
func (m *Model) FeatureProbability(feature string, class, value any) (float64, bool) {
	if m == nil {
		return 0, false
	}
	f, ok := m.featureIndex[feature]
	if !ok {
		return 0, false
	}
	c, err := dataset.Normalize(class)
	if err != nil {
		return 0, false
	}
	v, err := dataset.Normalize(value)
	if err != nil {
		return 0, false
	}
	i, ok := m.classIndex[c]
	if !ok {
		return 0, false
	}
	j, ok := m.tables[f].index[v]
	if !ok {
		return 0, false
	}
	return m.tables[f].probs.At(i, j), true
}

// Alpha は学習時の平滑化定数を返します。
func (m *Model) Alpha() float64 {
	if m == nil {
		return 0
	}
	return m.alpha
}

// NSamples は学習に使われた行数を返します。
func (m *Model) NSamples() int {
	if m == nil {
		return 0
	}
	return m.nSamples
}

// Info はモデルの概要を返します。
func (m *Model) Info() ModelInfo {
	if !m.IsTrained() {
		return ModelInfo{Status: "Not trained", Classes: []dataset.Value{}, Features: []string{}}
	}
	return ModelInfo{
		Status:       "Trained",
		Classes:      m.Classes(),
		Features:     m.Features(),
		ClassCount:   len(m.classes),
		FeatureCount: len(m.features),
	}
}

func indexValues(values []dataset.Value) map[dataset.Value]int {
	idx := make(map[dataset.Value]int, len(values))
	for i, v := range values {
		idx[v] = i
	}
	return idx
}
