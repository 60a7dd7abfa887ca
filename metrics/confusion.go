// Package metrics は分類結果の評価指標を提供します。
package metrics

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/YuminosukeSato/catnb/dataset"
	"github.com/YuminosukeSato/catnb/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ConfusionMatrix は正解ラベルと予測ラベルの組み合わせを数えた正方行列です。
// 行が正解、列が予測で、両軸とも全ラベルの和集合を正準順序に並べたものです。
type ConfusionMatrix struct {
	labels []dataset.Value
	index  map[dataset.Value]int
	counts *mat.Dense // ラベルが 0 個のときは nil
}

// NewConfusionMatrix は yTrue と yPred から混同行列を作成します。
// 長さが異なる場合は InvalidInputError を返します。
func NewConfusionMatrix(yTrue, yPred []dataset.Value) (*ConfusionMatrix, error) {
	const op = "NewConfusionMatrix"
	if len(yTrue) != len(yPred) {
		return nil, errors.NewInvalidInputErrorf(op, "y_true has %d labels but y_pred has %d", len(yTrue), len(yPred))
	}
	t, err := dataset.NormalizeAll(yTrue)
	if err != nil {
		return nil, errors.Wrap(err, "y_true")
	}
	p, err := dataset.NormalizeAll(yPred)
	if err != nil {
		return nil, errors.Wrap(err, "y_pred")
	}

	all := make([]dataset.Value, 0, len(t)+len(p))
	all = append(all, t...)
	all = append(all, p...)
	labels := dataset.Distinct(all)

	cm := &ConfusionMatrix{labels: labels, index: make(map[dataset.Value]int, len(labels))}
	for i, l := range labels {
		cm.index[l] = i
	}
	if len(labels) == 0 {
		return cm, nil
	}

	cm.counts = mat.NewDense(len(labels), len(labels), nil)
	for k := range t {
		i, j := cm.index[t[k]], cm.index[p[k]]
		cm.counts.Set(i, j, cm.counts.At(i, j)+1)
	}
	return cm, nil
}

// Labels は軸のラベルを正準順序で返します。
func (cm *ConfusionMatrix) Labels() []dataset.Value {
	out := make([]dataset.Value, len(cm.labels))
	copy(out, cm.labels)
	return out
}

// Size は行列の一辺の長さを返します。
func (cm *ConfusionMatrix) Size() int {
	return len(cm.labels)
}

// At は i 番目のラベルが正解で j 番目のラベルが予測された件数を返します。
func (cm *ConfusionMatrix) At(i, j int) int {
	return int(cm.counts.At(i, j))
}

// Count は正解 trueLabel・予測 predLabel の件数を返します。未知のラベルは 0。
func (cm *ConfusionMatrix) Count(trueLabel, predLabel any) int {
	i, ok := cm.lookup(trueLabel)
	if !ok {
		return 0
	}
	j, ok := cm.lookup(predLabel)
	if !ok {
		return 0
	}
	return cm.At(i, j)
}

func (cm *ConfusionMatrix) lookup(label any) (int, bool) {
	v, err := dataset.Normalize(label)
	if err != nil {
		return 0, false
	}
	i, ok := cm.index[v]
	return i, ok
}

// Total は全件数を返します。
func (cm *ConfusionMatrix) Total() int {
	if cm.counts == nil {
		return 0
	}
	return int(mat.Sum(cm.counts))
}

// Correct は対角成分の和（正しく分類された件数）を返します。
func (cm *ConfusionMatrix) Correct() int {
	if cm.counts == nil {
		return 0
	}
	return int(mat.Trace(cm.counts))
}

// Accuracy は Correct / Total を返します。件数が 0 の場合は 0 を返し、
// UndefinedMetricWarning を発生させます。
func (cm *ConfusionMatrix) Accuracy() float64 {
	total := cm.Total()
	if total == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("accuracy", "no samples", 0))
		return 0
	}
	return float64(cm.Correct()) / float64(total)
}

// Rows は行列を [][]int として返します。
func (cm *ConfusionMatrix) Rows() [][]int {
	n := len(cm.labels)
	rows := make([][]int, n)
	for i := 0; i < n; i++ {
		rows[i] = make([]int, n)
		for j := 0; j < n; j++ {
			rows[i][j] = cm.At(i, j)
		}
	}
	return rows
}

// Precision は label の適合率 TP / (TP + FP) を返します。
// そのラベルへの予測が一つもない場合は 0 を返し、警告を発生させます。
func (cm *ConfusionMatrix) Precision(label any) float64 {
	i, ok := cm.lookup(label)
	if !ok {
		errors.Warn(errors.NewUndefinedMetricWarning("precision", fmt.Sprintf("unknown label %v", label), 0))
		return 0
	}
	predicted := mat.Sum(cm.counts.ColView(i))
	if predicted == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("precision",
			fmt.Sprintf("no predicted samples for label %v", label), 0))
		return 0
	}
	return cm.counts.At(i, i) / predicted
}

// Recall は label の再現率 TP / (TP + FN) を返します。
// そのラベルの正解が一つもない場合は 0 を返し、警告を発生させます。
func (cm *ConfusionMatrix) Recall(label any) float64 {
	i, ok := cm.lookup(label)
	if !ok {
		errors.Warn(errors.NewUndefinedMetricWarning("recall", fmt.Sprintf("unknown label %v", label), 0))
		return 0
	}
	actual := mat.Sum(cm.counts.RowView(i))
	if actual == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("recall",
			fmt.Sprintf("no true samples for label %v", label), 0))
		return 0
	}
	return cm.counts.At(i, i) / actual
}

// F1 は適合率と再現率の調和平均を返します。
func (cm *ConfusionMatrix) F1(label any) float64 {
	p, r := cm.Precision(label), cm.Recall(label)
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// Support は label の正解件数を返します。
func (cm *ConfusionMatrix) Support(label any) int {
	i, ok := cm.lookup(label)
	if !ok {
		return 0
	}
	return int(mat.Sum(cm.counts.RowView(i)))
}

// String は行列を表形式で返します。
func (cm *ConfusionMatrix) String() string {
	names := make([]string, len(cm.labels))
	width := len("true\\pred")
	for i, l := range cm.labels {
		names[i] = dataset.Format(l)
		width = max(width, len(names[i]))
	}
	for _, row := range cm.Rows() {
		for _, v := range row {
			width = max(width, len(fmt.Sprint(v)))
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%*s", width, "true\\pred")
	for _, n := range names {
		fmt.Fprintf(&b, " %*s", width, n)
	}
	b.WriteByte('\n')
	for i, row := range cm.Rows() {
		fmt.Fprintf(&b, "%*s", width, names[i])
		for _, v := range row {
			fmt.Fprintf(&b, " %*d", width, v)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

type confusionMatrixJSON struct {
	Labels []dataset.Value `json:"labels"`
	Matrix [][]int         `json:"matrix"`
}

// MarshalJSON は {"labels": [...], "matrix": [[...]]} 形式で出力します。
func (cm *ConfusionMatrix) MarshalJSON() ([]byte, error) {
	return json.Marshal(confusionMatrixJSON{Labels: cm.Labels(), Matrix: cm.Rows()})
}

// UnmarshalJSON は MarshalJSON の出力を読み込みます。
func (cm *ConfusionMatrix) UnmarshalJSON(data []byte) error {
	var raw confusionMatrixJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "decode confusion matrix")
	}
	labels, err := dataset.NormalizeAll(raw.Labels)
	if err != nil {
		return err
	}
	n := len(labels)
	if len(raw.Matrix) != n {
		return errors.NewInvalidInputErrorf("UnmarshalJSON", "matrix has %d rows for %d labels", len(raw.Matrix), n)
	}
	restored := ConfusionMatrix{labels: labels, index: make(map[dataset.Value]int, n)}
	for i, l := range labels {
		if _, dup := restored.index[l]; dup {
			return errors.NewInvalidInputErrorf("UnmarshalJSON", "duplicate label %v", l)
		}
		restored.index[l] = i
	}
	if n > 0 {
		restored.counts = mat.NewDense(n, n, nil)
		for i, row := range raw.Matrix {
			if len(row) != n {
				return errors.NewInvalidInputErrorf("UnmarshalJSON", "row %d has %d columns, want %d", i, len(row), n)
			}
			for j, v := range row {
				if v < 0 {
					return errors.NewInvalidInputErrorf("UnmarshalJSON", "negative count at (%d, %d)", i, j)
				}
				restored.counts.Set(i, j, float64(v))
			}
		}
	}
	*cm = restored
	return nil
}
