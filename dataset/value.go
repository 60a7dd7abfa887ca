// Package dataset holds the tabular input of the classifier: categorical
// values, records, and column-named frames, plus CSV ingestion.
package dataset

import (
	"cmp"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/YuminosukeSato/catnb/pkg/errors"
)

// Value is one categorical symbol. After Normalize it holds exactly one of
// string, float64 or bool, which makes it a valid map key.
type Value = any

// Record maps feature names to values for a single row.
type Record map[string]Value

// Normalize canonicalises v. Every integer and float kind becomes float64 so
// that 3 decoded from JSON and 3 parsed from CSV are the same symbol.
func Normalize(v any) (Value, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case bool:
		return x, nil
	case float64:
		return checkFloat(x)
	case float32:
		return checkFloat(float64(x))
	case int:
		return exactInt(int64(x))
	case int8:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return exactInt(x)
	case uint:
		return exactUint(uint64(x))
	case uint8:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return exactUint(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return exactInt(i)
		} else if errors.Is(err, strconv.ErrRange) {
			return nil, errors.NewInvalidInputErrorf("Normalize", "integer %s is too large to be represented exactly", x.String())
		}
		f, err := x.Float64()
		if err != nil {
			return nil, errors.NewInvalidInputErrorf("Normalize", "malformed number %q", x.String())
		}
		return checkFloat(f)
	case nil:
		return nil, errors.NewInvalidInputError("Normalize", "missing value")
	default:
		return nil, errors.NewInvalidInputErrorf("Normalize", "unsupported value type %T", v)
	}
}

// MaxExactInt is the largest integer magnitude a numeric symbol can hold.
// Larger integers would collide with their neighbours once stored as float64.
const MaxExactInt = 1 << 53

func exactInt(i int64) (Value, error) {
	if i > MaxExactInt || i < -MaxExactInt {
		return nil, errors.NewInvalidInputErrorf("Normalize", "integer %d is too large to be represented exactly", i)
	}
	return float64(i), nil
}

func exactUint(u uint64) (Value, error) {
	if u > MaxExactInt {
		return nil, errors.NewInvalidInputErrorf("Normalize", "integer %d is too large to be represented exactly", u)
	}
	return float64(u), nil
}

func checkFloat(f float64) (Value, error) {
	if math.IsNaN(f) {
		return nil, errors.NewInvalidInputError("Normalize", "NaN is not a categorical value")
	}
	if f == 0 {
		// -0 and +0 are the same symbol
		return 0.0, nil
	}
	return f, nil
}

// NormalizeAll canonicalises a slice, reporting the first bad index.
func NormalizeAll(values []any) ([]Value, error) {
	out := make([]Value, len(values))
	for i, v := range values {
		nv, err := Normalize(v)
		if err != nil {
			return nil, errors.Wrapf(err, "value %d", i)
		}
		out[i] = nv
	}
	return out, nil
}

// NormalizeRecord canonicalises every value of r into a new Record.
func NormalizeRecord(r map[string]any) (Record, error) {
	out := make(Record, len(r))
	for k, v := range r {
		nv, err := Normalize(v)
		if err != nil {
			return nil, errors.Wrapf(err, "feature %q", k)
		}
		out[k] = nv
	}
	return out, nil
}

func kindRank(v Value) int {
	switch v.(type) {
	case bool:
		return 0
	case float64:
		return 1
	case string:
		return 2
	default:
		return 3
	}
}

// Compare is the canonical order of normalised values: booleans, then
// numbers, then strings, each in natural order.
func Compare(a, b Value) int {
	ra, rb := kindRank(a), kindRank(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch x := a.(type) {
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	case float64:
		return cmp.Compare(x, b.(float64))
	case string:
		return cmp.Compare(x, b.(string))
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

// SortValues sorts vs in place in canonical order.
func SortValues(vs []Value) {
	slices.SortFunc(vs, Compare)
}

// Distinct returns the distinct values of vs in canonical order.
func Distinct(vs []Value) []Value {
	seen := make(map[Value]struct{}, len(vs))
	out := make([]Value, 0)
	for _, v := range vs {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	SortValues(out)
	return out
}

// Format renders v the way the CSV loader would have read it.
func Format(v Value) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Parse infers the value of a single CSV cell: number, then boolean, then string.
// An integer beyond MaxExactInt stays a string.
func Parse(s string) Value {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		if i > MaxExactInt || i < -MaxExactInt {
			return s
		}
	} else if errors.Is(err, strconv.ErrRange) {
		return s
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		if f == 0 {
			return 0.0
		}
		return f
	}
	switch s {
	case "true", "True", "TRUE":
		return true
	case "false", "False", "FALSE":
		return false
	}
	return s
}
