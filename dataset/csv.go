package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/YuminosukeSato/catnb/pkg/errors"
)

// ReadCSV parses a CSV stream with a header row. Column types are inferred
// per column: a column whose cells all parse as numbers holds float64, one
// whose cells are all true/false holds bool, anything else holds strings.
// Empty cells are rejected; the core assumes missing-value-free input.
func ReadCSV(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.NewInvalidInputError("ReadCSV", "CSV file is empty")
	}
	if err != nil {
		return nil, errors.NewInvalidInputErrorf("ReadCSV", "error parsing CSV header: %v", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	// strip a UTF-8 BOM left by spreadsheet exports
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	var cells [][]string
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewInvalidInputErrorf("ReadCSV", "error parsing CSV line %d: %v", line, err)
		}
		for j, c := range rec {
			if strings.TrimSpace(c) == "" {
				return nil, errors.NewInvalidInputErrorf("ReadCSV", "line %d column %q is empty", line, header[j])
			}
		}
		cells = append(cells, rec)
	}
	if len(cells) == 0 {
		return nil, errors.NewInvalidInputError("ReadCSV", "CSV file has a header but no rows")
	}

	kinds := inferColumnKinds(len(header), cells)
	rows := make([][]any, len(cells))
	for i, rec := range cells {
		row := make([]any, len(rec))
		for j, c := range rec {
			row[j] = convertCell(strings.TrimSpace(c), kinds[j])
		}
		rows[i] = row
	}
	return NewFrame(header, rows)
}

// LoadCSV reads a CSV file from disk.
func LoadCSV(path string) (*Frame, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.NewInvalidInputError("LoadCSV", "file path cannot be empty")
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer file.Close()
	return ReadCSV(file)
}

// WriteCSV writes f with a header row.
func WriteCSV(w io.Writer, f *Frame) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(f.columns); err != nil {
		return errors.Wrap(err, "write CSV header")
	}
	rec := make([]string, len(f.columns))
	for _, row := range f.rows {
		for j, v := range row {
			rec[j] = Format(v)
		}
		if err := writer.Write(rec); err != nil {
			return errors.Wrap(err, "write CSV row")
		}
	}
	writer.Flush()
	return errors.WithStack(writer.Error())
}

// SaveCSV writes f to path, replacing any existing file.
func SaveCSV(path string, f *Frame) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := WriteCSV(file, f); err != nil {
		file.Close()
		return err
	}
	return errors.WithStack(file.Close())
}

type cellKind int

const (
	kindString cellKind = iota
	kindNumber
	kindBool
)

func inferColumnKinds(width int, cells [][]string) []cellKind {
	kinds := make([]cellKind, width)
	for j := 0; j < width; j++ {
		allNumber, allBool := true, true
		for _, rec := range cells {
			switch Parse(strings.TrimSpace(rec[j])).(type) {
			case float64:
				allBool = false
			case bool:
				allNumber = false
			default:
				allNumber, allBool = false, false
			}
			if !allNumber && !allBool {
				break
			}
		}
		switch {
		case allNumber:
			kinds[j] = kindNumber
		case allBool:
			kinds[j] = kindBool
		default:
			kinds[j] = kindString
		}
	}
	return kinds
}

func convertCell(s string, kind cellKind) any {
	if kind == kindString {
		return s
	}
	return Parse(s)
}
