package dataset

import (
	"github.com/YuminosukeSato/cropyield/pkg/errors"
)

// Table is an ordered set of rows sharing one column list.
// Columns keeps the input order (the CSV header order); the preprocessor
// relies on it for the passthrough block.
type Table struct {
	Columns []string
	Rows    []Record
}

// NewTable builds a table. Every row must hold exactly the listed columns.
func NewTable(columns []string, rows []Record) (*Table, error) {
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if _, dup := seen[c]; dup {
			return nil, errors.NewValidationError("columns", "duplicate column", c)
		}
		seen[c] = struct{}{}
	}
	for i, r := range rows {
		for _, c := range columns {
			if _, ok := r[c]; !ok {
				return nil, errors.Wrapf(errors.ErrMissingColumn, "row %d: column %q", i, c)
			}
		}
	}
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols, Rows: rows}, nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn reports whether name is one of the table's columns.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Column returns the values of one column in row order.
func (t *Table) Column(name string) []any {
	out := make([]any, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[name]
	}
	return out
}

// Floats returns the column coerced with ToFloat. The error names the first
// offending row.
func (t *Table) Floats(name string) ([]float64, error) {
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		v, err := r.Float(name)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i)
		}
		out[i] = v
	}
	return out, nil
}

// WithRows returns a table with the same columns and the given rows.
func (t *Table) WithRows(rows []Record) *Table {
	cols := make([]string, len(t.Columns))
	copy(cols, t.Columns)
	return &Table{Columns: cols, Rows: rows}
}

// Drop returns a table without the named column. Rows are copied.
func (t *Table) Drop(name string) *Table {
	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c != name {
			cols = append(cols, c)
		}
	}
	rows := make([]Record, len(t.Rows))
	for i, r := range t.Rows {
		nr := r.Clone()
		delete(nr, name)
		rows[i] = nr
	}
	return &Table{Columns: cols, Rows: rows}
}
