package dataset

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/YuminosukeSato/cropyield/pkg/errors"
)

// ReadCSV loads a CSV file with a header row. Values stay strings; numeric
// coercion happens in the feature engineer and the preprocessor.
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	t, err := ParseCSV(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return t, nil
}

// ParseCSV reads a header row followed by data rows from r.
func ParseCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.Wrap(errors.ErrEmptyData, "csv has no header row")
	}
	if err != nil {
		return nil, errors.Wrap(err, "csv header")
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	var rows []Record
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// csv.ParseError already carries the line number
			return nil, errors.Wrap(err, "csv row")
		}
		row := make(Record, len(columns))
		for i, c := range columns {
			row[c] = rec[i]
		}
		rows = append(rows, row)
	}
	return NewTable(columns, rows)
}

// WriteCSV writes t with a header row, creating parent directories.
func WriteCSV(path string, t *Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.Columns); err != nil {
		return errors.Wrap(err, "write header")
	}
	rec := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, c := range t.Columns {
			s, err := ToCategory(row[c])
			if err != nil {
				return errors.Wrapf(err, "column %q", c)
			}
			rec[i] = s
		}
		if err := w.Write(rec); err != nil {
			return errors.Wrap(err, "write row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrapf(err, "flush %s", path)
	}
	return f.Close()
}
