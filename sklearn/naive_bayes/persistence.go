package naive_bayes

import (
	"bytes"
	"encoding/gob"
	"math"
	"slices"

	"github.com/YuminosukeSato/catnb/dataset"
	"github.com/YuminosukeSato/catnb/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const snapshotVersion = 1

// sumTolerance は確率の総和が 1 であるかを判定する許容誤差
const sumTolerance = 1e-9

// snapshotValue は gob で interface 値を扱わずに済むようにした Value の表現
type snapshotValue struct {
	Kind uint8 // 0: bool, 1: number, 2: string
	B    bool
	F    float64
	S    string
}

// modelSnapshot は Model の直列化形式です。
type modelSnapshot struct {
	Version  int
	Classes  []snapshotValue
	Priors   []float64
	Features []string
	Values   [][]snapshotValue
	Tables   [][]float64 // 特徴量ごとに classes × values の行優先配列
	Alpha    float64
	NSamples int
}

func toSnapshotValue(v dataset.Value) snapshotValue {
	switch x := v.(type) {
	case bool:
		return snapshotValue{Kind: 0, B: x}
	case float64:
		return snapshotValue{Kind: 1, F: x}
	default:
		return snapshotValue{Kind: 2, S: dataset.Format(v)}
	}
}

func fromSnapshotValue(s snapshotValue) (dataset.Value, error) {
	switch s.Kind {
	case 0:
		return s.B, nil
	case 1:
		return dataset.Normalize(s.F)
	case 2:
		return s.S, nil
	default:
		return nil, errors.NewInvalidInputErrorf("GobDecode", "unknown value kind %d", s.Kind)
	}
}

func toSnapshotValues(values []dataset.Value) []snapshotValue {
	out := make([]snapshotValue, len(values))
	for i, v := range values {
		out[i] = toSnapshotValue(v)
	}
	return out
}

func fromSnapshotValues(in []snapshotValue) ([]dataset.Value, error) {
	out := make([]dataset.Value, len(in))
	for i, s := range in {
		v, err := fromSnapshotValue(s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// GobEncode は gob.GobEncoder を実装します。
func (m *Model) GobEncode() ([]byte, error) {
	if !m.IsTrained() {
		return nil, errors.NewModelNotTrainedError("GobEncode")
	}
	snap := modelSnapshot{
		Version:  snapshotVersion,
		Classes:  toSnapshotValues(m.classes),
		Priors:   slices.Clone(m.priors),
		Features: slices.Clone(m.features),
		Values:   make([][]snapshotValue, len(m.tables)),
		Tables:   make([][]float64, len(m.tables)),
		Alpha:    m.alpha,
		NSamples: m.nSamples,
	}
	for f, t := range m.tables {
		snap.Values[f] = toSnapshotValues(t.values)
		snap.Tables[f] = slices.Clone(t.probs.RawMatrix().Data)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return nil, errors.Wrap(err, "encode model snapshot")
	}
	return buf.Bytes(), nil
}

// GobDecode は gob.GobDecoder を実装します。
// 復元したパラメータは検証され、確率の総和が 1 にならない場合などは
// InvalidInputError を返します。
func (m *Model) GobDecode(data []byte) error {
	var snap modelSnapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return errors.Wrap(err, "decode model snapshot")
	}
	restored, err := snap.model()
	if err != nil {
		return err
	}
	*m = *restored
	return nil
}

func (s *modelSnapshot) model() (*Model, error) {
	const op = "GobDecode"
	if s.Version != snapshotVersion {
		return nil, errors.NewInvalidInputErrorf(op, "unsupported snapshot version %d", s.Version)
	}
	classes, err := fromSnapshotValues(s.Classes)
	if err != nil {
		return nil, err
	}
	nClasses := len(classes)
	if nClasses == 0 {
		return nil, errors.NewInvalidInputError(op, "snapshot has no classes")
	}
	if !isStrictlySorted(classes) {
		return nil, errors.NewInvalidInputError(op, "classes are not in canonical order")
	}
	if len(s.Priors) != nClasses {
		return nil, errors.NewInvalidInputErrorf(op, "%d priors for %d classes", len(s.Priors), nClasses)
	}
	if err := checkDistribution(op, "class priors", s.Priors); err != nil {
		return nil, err
	}
	if len(s.Features) == 0 {
		return nil, errors.NewInvalidInputError(op, "snapshot has no features")
	}
	if len(s.Values) != len(s.Features) || len(s.Tables) != len(s.Features) {
		return nil, errors.NewInvalidInputError(op, "feature tables do not match feature list")
	}
	if math.IsNaN(s.Alpha) || s.Alpha <= 0 {
		return nil, errors.NewInvalidInputErrorf(op, "invalid smoothing constant %v", s.Alpha)
	}

	m := &Model{
		classes:      classes,
		classIndex:   indexValues(classes),
		classSymbols: symbolIndex(classes),
		priors:       slices.Clone(s.Priors),
		features:     slices.Clone(s.Features),
		featureIndex: make(map[string]int, len(s.Features)),
		tables:       make([]featureTable, len(s.Features)),
		alpha:        s.Alpha,
		nSamples:     s.NSamples,
		trained:      true,
	}
	for f, name := range s.Features {
		if _, dup := m.featureIndex[name]; dup {
			return nil, errors.NewInvalidInputErrorf(op, "duplicate feature %q", name)
		}
		m.featureIndex[name] = f

		values, err := fromSnapshotValues(s.Values[f])
		if err != nil {
			return nil, err
		}
		if len(values) == 0 || !isStrictlySorted(values) {
			return nil, errors.NewInvalidInputErrorf(op, "feature %q has an invalid value list", name)
		}
		if len(s.Tables[f]) != nClasses*len(values) {
			return nil, errors.NewInvalidInputErrorf(op, "feature %q table has %d entries, want %d",
				name, len(s.Tables[f]), nClasses*len(values))
		}
		probs := mat.NewDense(nClasses, len(values), slices.Clone(s.Tables[f]))
		for i := 0; i < nClasses; i++ {
			if err := checkDistribution(op, "feature "+name, probs.RawRowView(i)); err != nil {
				return nil, err
			}
		}
		m.tables[f] = newFeatureTable(values, probs)
	}
	return m, nil
}

func checkDistribution(op, what string, p []float64) error {
	for _, v := range p {
		if math.IsNaN(v) || v <= 0 || v > 1 {
			return errors.NewInvalidInputErrorf(op, "%s contains probability %v outside (0, 1]", what, v)
		}
	}
	if sum := floats.Sum(p); math.Abs(sum-1) > sumTolerance {
		return errors.NewInvalidInputErrorf(op, "%s sum to %v, want 1", what, sum)
	}
	return nil
}

func isStrictlySorted(values []dataset.Value) bool {
	for i := 1; i < len(values); i++ {
		if dataset.Compare(values[i-1], values[i]) >= 0 {
			return false
		}
	}
	return true
}
