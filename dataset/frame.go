package dataset

import (
	"slices"

	"github.com/YuminosukeSato/catnb/pkg/errors"
)

// Frame is an immutable column-named table of normalised values.
type Frame struct {
	columns []string
	index   map[string]int
	rows    [][]Value
}

// NewFrame builds a Frame, normalising every cell. Column names must be
// unique and non-empty and every row must have one value per column.
func NewFrame(columns []string, rows [][]any) (*Frame, error) {
	if len(columns) == 0 {
		return nil, errors.NewInvalidInputError("NewFrame", "no columns")
	}
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if c == "" {
			return nil, errors.NewInvalidInputErrorf("NewFrame", "column %d has an empty name", i)
		}
		if _, dup := index[c]; dup {
			return nil, errors.NewInvalidInputErrorf("NewFrame", "duplicate column %q", c)
		}
		index[c] = i
	}

	normalized := make([][]Value, len(rows))
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, errors.NewInvalidInputErrorf("NewFrame", "row %d has %d values, want %d", i, len(row), len(columns))
		}
		out := make([]Value, len(row))
		for j, v := range row {
			nv, err := Normalize(v)
			if err != nil {
				return nil, errors.Wrapf(err, "row %d column %q", i, columns[j])
			}
			out[j] = nv
		}
		normalized[i] = out
	}

	return &Frame{
		columns: slices.Clone(columns),
		index:   index,
		rows:    normalized,
	}, nil
}

// FromRecords builds a Frame from records using the given column order.
// A record lacking one of the columns is rejected.
func FromRecords(columns []string, records []Record) (*Frame, error) {
	rows := make([][]any, len(records))
	for i, r := range records {
		row := make([]any, len(columns))
		for j, c := range columns {
			v, ok := r[c]
			if !ok {
				return nil, errors.NewInvalidInputErrorf("FromRecords", "record %d lacks column %q", i, c)
			}
			row[j] = v
		}
		rows[i] = row
	}
	return NewFrame(columns, rows)
}

// Columns returns a copy of the column names.
func (f *Frame) Columns() []string {
	return slices.Clone(f.columns)
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.rows)
}

// Width returns the number of columns.
func (f *Frame) Width() int {
	return len(f.columns)
}

// HasColumn reports whether name is a column of f.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.index[name]
	return ok
}

// ColumnIndex returns the position of the named column.
func (f *Frame) ColumnIndex(name string) (int, bool) {
	j, ok := f.index[name]
	return j, ok
}

// At returns the value at row i of column j.
func (f *Frame) At(i, j int) Value {
	return f.rows[i][j]
}

// Column returns a copy of the named column.
func (f *Frame) Column(name string) ([]Value, error) {
	j, ok := f.index[name]
	if !ok {
		return nil, errors.NewUnknownColumnError(name, f.columns)
	}
	out := make([]Value, len(f.rows))
	for i, row := range f.rows {
		out[i] = row[j]
	}
	return out, nil
}

// Row returns a copy of row i in column order.
func (f *Frame) Row(i int) []Value {
	return slices.Clone(f.rows[i])
}

// Record returns row i as a Record.
func (f *Frame) Record(i int) Record {
	r := make(Record, len(f.columns))
	for j, c := range f.columns {
		r[c] = f.rows[i][j]
	}
	return r
}

// Records returns every row as a Record, in row order.
func (f *Frame) Records() []Record {
	out := make([]Record, len(f.rows))
	for i := range f.rows {
		out[i] = f.Record(i)
	}
	return out
}

// Drop returns a new Frame without the named column.
func (f *Frame) Drop(name string) (*Frame, error) {
	j, ok := f.index[name]
	if !ok {
		return nil, errors.NewUnknownColumnError(name, f.columns)
	}
	columns := make([]string, 0, len(f.columns)-1)
	columns = append(columns, f.columns[:j]...)
	columns = append(columns, f.columns[j+1:]...)

	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}
	rows := make([][]Value, len(f.rows))
	for i, row := range f.rows {
		r := make([]Value, 0, len(columns))
		r = append(r, row[:j]...)
		r = append(r, row[j+1:]...)
		rows[i] = r
	}
	return &Frame{columns: columns, index: index, rows: rows}, nil
}

// Subset returns a new Frame with the rows at indices, in that order.
func (f *Frame) Subset(indices []int) (*Frame, error) {
	rows := make([][]Value, len(indices))
	for k, i := range indices {
		if i < 0 || i >= len(f.rows) {
			return nil, errors.NewInvalidInputErrorf("Subset", "row index %d out of range [0, %d)", i, len(f.rows))
		}
		rows[k] = slices.Clone(f.rows[i])
	}
	return &Frame{columns: slices.Clone(f.columns), index: f.index, rows: rows}, nil
}

// SplitTarget separates the target column from the features. It fails with
// UnknownColumnError when the target is absent and InvalidInputError when no
// feature column would remain or the frame has no rows.
func (f *Frame) SplitTarget(target string) (*Frame, []Value, error) {
	labels, err := f.Column(target)
	if err != nil {
		return nil, nil, err
	}
	if len(f.rows) == 0 {
		return nil, nil, errors.NewInvalidInputError("SplitTarget", "frame has no rows")
	}
	if len(f.columns) < 2 {
		return nil, nil, errors.NewInvalidInputErrorf("SplitTarget", "no feature columns besides target %q", target)
	}
	features, err := f.Drop(target)
	if err != nil {
		return nil, nil, err
	}
	return features, labels, nil
}
