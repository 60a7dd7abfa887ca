package naive_bayes

import (
	"math"

	"github.com/YuminosukeSato/catnb/dataset"
	"github.com/YuminosukeSato/catnb/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// symbolIndex は文字列表現から値への対応表を作ります。
// 表現が衝突した場合は正準順序で先の値が残ります。
func symbolIndex(values []dataset.Value) map[string]dataset.Value {
	out := make(map[string]dataset.Value, len(values))
	for _, v := range values {
		s := dataset.Format(v)
		if _, ok := out[s]; !ok {
			out[s] = v
		}
	}
	return out
}

func conformValue(index map[dataset.Value]int, symbols map[string]dataset.Value, v dataset.Value) dataset.Value {
	if _, ok := index[v]; ok {
		return v
	}
	if alias, ok := symbols[dataset.Format(v)]; ok {
		return alias
	}
	return v
}

// ConformRecord は record の各値を、同じ文字列表現を持つ学習時の値に置き換えた
// 新しい Record を返します。CSV の型推定や JSON の数値で 1 と "1" のように
// 型だけが異なる入力をモデルの記号に揃えるためのものです。
// モデルにない特徴量や対応する値のない入力はそのまま残ります。
func (m *Model) ConformRecord(record dataset.Record) dataset.Record {
	out := make(dataset.Record, len(record))
	for name, v := range record {
		if f, ok := m.featureIndex[name]; ok {
			t := m.tables[f]
			v = conformValue(t.index, t.symbols, v)
		}
		out[name] = v
	}
	return out
}

// ConformFrame は ConformRecord と同じ規則で frame の特徴量列を揃え、
// target 列をクラスラベルに揃えた新しい Frame を返します。
// target が空の場合はラベル列を扱いません。
func (m *Model) ConformFrame(frame *dataset.Frame, target string) (*dataset.Frame, error) {
	if !m.IsTrained() {
		return nil, errors.NewModelNotTrainedError("ConformFrame")
	}
	if frame == nil {
		return nil, errors.NewInvalidInputError("ConformFrame", "data cannot be nil")
	}
	columns := frame.Columns()
	conform := make([]func(dataset.Value) dataset.Value, len(columns))
	for j, name := range columns {
		switch f, ok := m.featureIndex[name]; {
		case name == target:
			conform[j] = func(v dataset.Value) dataset.Value {
				return conformValue(m.classIndex, m.classSymbols, v)
			}
		case ok:
			t := m.tables[f]
			conform[j] = func(v dataset.Value) dataset.Value {
				return conformValue(t.index, t.symbols, v)
			}
		}
	}

	rows := make([][]any, frame.Len())
	for i := range rows {
		row := make([]any, len(columns))
		for j := range columns {
			v := frame.At(i, j)
			if conform[j] != nil {
				v = conform[j](v)
			}
			row[j] = v
		}
		rows[i] = row
	}
	return dataset.NewFrame(columns, rows)
}

// minProbability は確率表全体の最小値を返します。
func (m *Model) minProbability() float64 {
	floor := 1.0
	for _, t := range m.tables {
		floor = math.Min(floor, mat.Min(t.probs))
	}
	return floor
}
