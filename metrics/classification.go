package metrics

import (
	"fmt"
	"strings"

	"github.com/YuminosukeSato/catnb/dataset"
	"github.com/YuminosukeSato/catnb/pkg/errors"
)

// Accuracy は正解率を計算する。
// 空の入力と長さの不一致は InvalidInputError。
func Accuracy(yTrue, yPred []dataset.Value) (float64, error) {
	if len(yTrue) == 0 {
		return 0, errors.NewInvalidInputError("Accuracy", "empty labels")
	}
	cm, err := NewConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return cm.Accuracy(), nil
}

// ClassReport は 1 クラス分の評価指標
type ClassReport struct {
	Label     dataset.Value `json:"label"`
	Precision float64       `json:"precision"`
	Recall    float64       `json:"recall"`
	F1        float64       `json:"f1"`
	Support   int           `json:"support"`
}

// Report はクラスごとの指標と全体の正解率をまとめたもの
type Report struct {
	Classes        []ClassReport `json:"classes"`
	Accuracy       float64       `json:"accuracy"`
	MacroPrecision float64       `json:"macro_precision"`
	MacroRecall    float64       `json:"macro_recall"`
	MacroF1        float64       `json:"macro_f1"`
	Total          int           `json:"total"`
}

// Report はクラスごとの適合率・再現率・F1 を計算します。
// 分母が 0 になる指標は 0 として扱われます。
func (cm *ConfusionMatrix) Report() Report {
	r := Report{Total: cm.Total()}
	if r.Total == 0 {
		return r
	}
	r.Accuracy = cm.Accuracy()

	// 分母 0 の警告は集計時に一度だけ出す
	undefined := 0
	for i, label := range cm.labels {
		tp := cm.counts.At(i, i)
		var predicted, actual float64
		for k := range cm.labels {
			predicted += cm.counts.At(k, i)
			actual += cm.counts.At(i, k)
		}
		cr := ClassReport{Label: label, Support: int(actual)}
		if predicted > 0 {
			cr.Precision = tp / predicted
		} else {
			undefined++
		}
		if actual > 0 {
			cr.Recall = tp / actual
		} else {
			undefined++
		}
		if cr.Precision+cr.Recall > 0 {
			cr.F1 = 2 * cr.Precision * cr.Recall / (cr.Precision + cr.Recall)
		}
		r.Classes = append(r.Classes, cr)
		r.MacroPrecision += cr.Precision
		r.MacroRecall += cr.Recall
		r.MacroF1 += cr.F1
	}
	n := float64(len(r.Classes))
	r.MacroPrecision /= n
	r.MacroRecall /= n
	r.MacroF1 /= n

	if undefined > 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("precision/recall",
			fmt.Sprintf("%d labels with no predicted or no true samples", undefined), 0))
	}
	return r
}

// String は scikit-learn の classification_report に似た表を返します。
func (r Report) String() string {
	width := len("macro avg")
	names := make([]string, len(r.Classes))
	for i, c := range r.Classes {
		names[i] = dataset.Format(c.Label)
		width = max(width, len(names[i]))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%*s %9s %9s %9s %9s\n\n", width, "", "precision", "recall", "f1-score", "support")
	for i, c := range r.Classes {
		fmt.Fprintf(&b, "%*s %9.2f %9.2f %9.2f %9d\n", width, names[i], c.Precision, c.Recall, c.F1, c.Support)
	}
	b.WriteByte('\n')
	fmt.Fprintf(&b, "%*s %9s %9s %9.2f %9d\n", width, "accuracy", "", "", r.Accuracy, r.Total)
	fmt.Fprintf(&b, "%*s %9.2f %9.2f %9.2f %9d\n", width, "macro avg", r.MacroPrecision, r.MacroRecall, r.MacroF1, r.Total)
	return b.String()
}
