package dataset

import (
	"bytes"
	"encoding/json"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YuminosukeSato/catnb/pkg/errors"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    Value
		wantErr bool
	}{
		{"string", "sunny", "sunny", false},
		{"bool", true, true, false},
		{"int", 3, 3.0, false},
		{"int64", int64(-2), -2.0, false},
		{"uint8", uint8(7), 7.0, false},
		{"float32", float32(0.5), 0.5, false},
		{"json number", json.Number("12"), 12.0, false},
		{"negative zero", math.Copysign(0, -1), 0.0, false},
		{"nil", nil, nil, true},
		{"NaN", math.NaN(), nil, true},
		{"slice", []string{"a"}, nil, true},
		{"bad json number", json.Number("x"), nil, true},
		{"int64 at exact limit", int64(1 << 53), float64(1 << 53), false},
		{"int64 beyond exact limit", int64(1<<53 + 1), nil, true},
		{"negative int64 beyond exact limit", int64(-(1<<53 + 1)), nil, true},
		{"uint64 beyond exact limit", uint64(1 << 63), nil, true},
		{"json integer beyond exact limit", json.Number("9007199254740993"), nil, true},
		{"json integer beyond int64", json.Number("123456789012345678901234"), nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Normalize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.IsInvalidInput(err) {
					t.Errorf("expected InvalidInputError, got %v", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("Normalize() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestNormalizeMakesJSONAndCSVNumbersEqual(t *testing.T) {
	var decoded map[string]any
	if err := json.Unmarshal([]byte(`{"n": 3}`), &decoded); err != nil {
		t.Fatal(err)
	}
	fromJSON, _ := Normalize(decoded["n"])
	fromCSV := Parse("3")
	if fromJSON != fromCSV {
		t.Errorf("JSON %#v and CSV %#v should be the same symbol", fromJSON, fromCSV)
	}
}

func TestCompareAndDistinct(t *testing.T) {
	values := []Value{"b", 2.0, true, "a", 1.0, false, "b", 2.0}
	got := Distinct(values)
	want := []Value{false, true, 1.0, 2.0, "a", "b"}
	if len(got) != len(want) {
		t.Fatalf("Distinct() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Distinct()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if Compare("a", "a") != 0 || Compare(1.0, "1") >= 0 || Compare(true, 0.0) >= 0 {
		t.Error("Compare ordering is wrong")
	}
}

func TestFormatAndParse(t *testing.T) {
	for _, s := range []string{"sunny", "3", "2.5", "true", "-1"} {
		if got := Format(Parse(s)); got != s {
			t.Errorf("Format(Parse(%q)) = %q", s, got)
		}
	}
	if Parse("Inf") != "Inf" {
		t.Error("infinite numbers should stay strings")
	}
	for _, s := range []string{"9007199254740993", "-9007199254740993", "123456789012345678901234"} {
		if Parse(s) != s {
			t.Errorf("Parse(%q) = %#v, integers beyond 2^53 should stay strings", s, Parse(s))
		}
	}
	if Parse("9007199254740992") != float64(1<<53) {
		t.Error("2^53 itself is exact")
	}
}

func TestLargeIntegersStayDistinct(t *testing.T) {
	f, err := ReadCSV(strings.NewReader("id,label\n9007199254740993,a\n9007199254740992,b\n"))
	if err != nil {
		t.Fatal(err)
	}
	ids, _ := f.Column("id")
	if ids[0] == ids[1] {
		t.Errorf("distinct ids collapsed to %#v", ids[0])
	}
	if ids[0] != "9007199254740993" {
		t.Errorf("id column should hold strings, got %#v", ids[0])
	}
}

func weatherFrame(t *testing.T) *Frame {
	t.Helper()
	f, err := NewFrame([]string{"weather", "wind", "play"}, [][]any{
		{"sunny", "weak", "yes"},
		{"sunny", "strong", "yes"},
		{"rainy", "strong", "no"},
	})
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	return f
}

func TestNewFrameValidation(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		rows    [][]any
	}{
		{"no columns", nil, nil},
		{"empty column name", []string{"a", ""}, nil},
		{"duplicate column", []string{"a", "a"}, nil},
		{"ragged row", []string{"a", "b"}, [][]any{{"x"}}},
		{"nil cell", []string{"a"}, [][]any{{nil}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewFrame(tt.columns, tt.rows); !errors.IsInvalidInput(err) {
				t.Errorf("expected InvalidInputError, got %v", err)
			}
		})
	}
}

func TestFrameAccessors(t *testing.T) {
	f := weatherFrame(t)

	if f.Len() != 3 || f.Width() != 3 {
		t.Fatalf("shape = (%d, %d), want (3, 3)", f.Len(), f.Width())
	}
	col, err := f.Column("wind")
	if err != nil {
		t.Fatal(err)
	}
	if col[0] != "weak" || col[2] != "strong" {
		t.Errorf("Column(wind) = %v", col)
	}
	if _, err := f.Column("humidity"); !errors.IsUnknownColumn(err) {
		t.Errorf("expected UnknownColumnError, got %v", err)
	}
	if j, ok := f.ColumnIndex("play"); !ok || j != 2 {
		t.Errorf("ColumnIndex(play) = %d, %v", j, ok)
	}
	if _, ok := f.ColumnIndex("humidity"); ok {
		t.Error("ColumnIndex should miss unknown columns")
	}

	r := f.Record(2)
	if r["weather"] != "rainy" || r["play"] != "no" {
		t.Errorf("Record(2) = %v", r)
	}

	cols := f.Columns()
	cols[0] = "mutated"
	if f.Columns()[0] != "weather" {
		t.Error("Columns() should return a copy")
	}
}

func TestFrameSplitTarget(t *testing.T) {
	f := weatherFrame(t)

	features, labels, err := f.SplitTarget("play")
	if err != nil {
		t.Fatal(err)
	}
	if features.Width() != 2 || features.HasColumn("play") {
		t.Errorf("features should drop target, got %v", features.Columns())
	}
	if len(labels) != 3 || labels[0] != "yes" {
		t.Errorf("labels = %v", labels)
	}

	if _, _, err := f.SplitTarget("outcome"); !errors.IsUnknownColumn(err) {
		t.Errorf("expected UnknownColumnError, got %v", err)
	}

	only, _ := NewFrame([]string{"play"}, [][]any{{"yes"}})
	if _, _, err := only.SplitTarget("play"); !errors.IsInvalidInput(err) {
		t.Errorf("expected InvalidInputError when no feature remains, got %v", err)
	}
}

func TestFrameSubsetAndFromRecords(t *testing.T) {
	f := weatherFrame(t)

	sub, err := f.Subset([]int{2, 0})
	if err != nil {
		t.Fatal(err)
	}
	if sub.Len() != 2 || sub.At(0, 0) != "rainy" || sub.At(1, 0) != "sunny" {
		t.Errorf("Subset order wrong: %v", sub.Records())
	}
	if _, err := f.Subset([]int{5}); !errors.IsInvalidInput(err) {
		t.Errorf("expected InvalidInputError, got %v", err)
	}

	rebuilt, err := FromRecords(f.Columns(), f.Records())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < f.Len(); i++ {
		for j := 0; j < f.Width(); j++ {
			if rebuilt.At(i, j) != f.At(i, j) {
				t.Fatalf("FromRecords mismatch at (%d, %d)", i, j)
			}
		}
	}
	if _, err := FromRecords([]string{"weather", "humidity"}, f.Records()); !errors.IsInvalidInput(err) {
		t.Errorf("expected InvalidInputError for missing column, got %v", err)
	}
}

func TestReadCSVInfersColumnKinds(t *testing.T) {
	input := "\ufeffoutlook, temp ,windy,id\nsunny,85,false,a1\novercast,83,true,2\nrainy,70,FALSE,3\n"
	f, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if got := f.Columns(); got[0] != "outlook" || got[1] != "temp" {
		t.Errorf("header not cleaned: %q", got)
	}
	if f.At(0, 1) != 85.0 {
		t.Errorf("temp should be numeric, got %#v", f.At(0, 1))
	}
	if f.At(2, 2) != false {
		t.Errorf("windy should be boolean, got %#v", f.At(2, 2))
	}
	// mixed column stays string even where a cell looks numeric
	if f.At(1, 3) != "2" {
		t.Errorf("id should stay string, got %#v", f.At(1, 3))
	}
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"header only", "a,b\n"},
		{"ragged", "a,b\n1,2\n3\n"},
		{"empty cell", "a,b\n1,\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadCSV(strings.NewReader(tt.input)); !errors.IsInvalidInput(err) {
				t.Errorf("expected InvalidInputError, got %v", err)
			}
		})
	}
}

func TestCSVRoundTrip(t *testing.T) {
	f := weatherFrame(t)
	path := filepath.Join(t.TempDir(), "weather.csv")
	if err := SaveCSV(path, f); err != nil {
		t.Fatalf("SaveCSV: %v", err)
	}
	loaded, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	var a, b bytes.Buffer
	_ = WriteCSV(&a, f)
	_ = WriteCSV(&b, loaded)
	if a.String() != b.String() {
		t.Errorf("round trip changed content:\n%s\nvs\n%s", a.String(), b.String())
	}

	if _, err := LoadCSV(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := LoadCSV("  "); !errors.IsInvalidInput(err) {
		t.Errorf("expected InvalidInputError for blank path, got %v", err)
	}
}
