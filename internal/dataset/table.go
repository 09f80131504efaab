package dataset

import (
	"errors"
	"fmt"
)

var (
	// ErrColumnNotFound is returned when a named column does not exist
	ErrColumnNotFound = errors.New("column not found")
	// ErrDuplicateColumn is returned when a column name is added twice
	ErrDuplicateColumn = errors.New("duplicate column")
	// ErrRowWidth is returned when a row does not match the column count
	ErrRowWidth = errors.New("row width does not match column count")
)

// Table is an in-memory column-named table of Values
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]Value
}

// New creates an empty table with the given columns
func New(columns ...string) (*Table, error) {
	t := &Table{
		columns: make([]string, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for _, c := range columns {
		if _, dup := t.index[c]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c)
		}
		t.index[c] = len(t.columns)
		t.columns = append(t.columns, c)
	}
	return t, nil
}

// MustNew is New for statically known column lists; it panics on duplicates.
func MustNew(columns ...string) *Table {
	t, err := New(columns...)
	if err != nil {
		panic(err)
	}
	return t
}

// Append adds a row. The row must have one value per column.
func (t *Table) Append(row ...Value) error {
	if len(row) != len(t.columns) {
		return fmt.Errorf("%w: got %d values for %d columns", ErrRowWidth, len(row), len(t.columns))
	}
	cp := make([]Value, len(row))
	copy(cp, row)
	t.rows = append(t.rows, cp)
	return nil
}

// Columns returns a copy of the column names in order
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Has reports whether the table has the named column
func (t *Table) Has(column string) bool {
	_, ok := t.index[column]
	return ok
}

// ColumnIndex returns the position of a column
func (t *Table) ColumnIndex(column string) (int, bool) {
	i, ok := t.index[column]
	return i, ok
}

// Value returns the cell at row/column; unknown columns yield null.
func (t *Table) Value(row int, column string) Value {
	i, ok := t.index[column]
	if !ok {
		return Null()
	}
	return t.rows[row][i]
}

// Float returns the numeric cell at row/column
func (t *Table) Float(row int, column string) (float64, bool) {
	return t.Value(row, column).Float()
}

// Row returns a copy of a row
func (t *Table) Row(row int) []Value {
	out := make([]Value, len(t.columns))
	copy(out, t.rows[row])
	return out
}

// Column returns a copy of all values of a column
func (t *Table) Column(column string) ([]Value, error) {
	i, ok := t.index[column]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, column)
	}
	out := make([]Value, len(t.rows))
	for r, row := range t.rows {
		out[r] = row[i]
	}
	return out, nil
}

// AddColumn appends a column with one value per existing row
func (t *Table) AddColumn(column string, values []Value) error {
	if _, dup := t.index[column]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicateColumn, column)
	}
	if len(values) != len(t.rows) {
		return fmt.Errorf("%w: column %q has %d values for %d rows", ErrRowWidth, column, len(values), len(t.rows))
	}
	t.index[column] = len(t.columns)
	t.columns = append(t.columns, column)
	for r := range t.rows {
		t.rows[r] = append(t.rows[r], values[r])
	}
	return nil
}

// DedupBy returns a copy of the table keeping only the first row for each
// value of the key column, and the number of rows dropped.
func (t *Table) DedupBy(column string) (*Table, int, error) {
	i, ok := t.index[column]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %q", ErrColumnNotFound, column)
	}
	seen := make(map[Value]struct{}, len(t.rows))
	keep := make([]int, 0, len(t.rows))
	for r, row := range t.rows {
		key := row[i]
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keep = append(keep, r)
	}
	return t.Select(keep), len(t.rows) - len(keep), nil
}

// Select returns a new table with the given rows, in the given order
func (t *Table) Select(rows []int) *Table {
	out := &Table{
		columns: t.Columns(),
		index:   make(map[string]int, len(t.columns)),
		rows:    make([][]Value, 0, len(rows)),
	}
	for c, i := range t.index {
		out.index[c] = i
	}
	for _, r := range rows {
		out.rows = append(out.rows, t.Row(r))
	}
	return out
}

// Clone returns a deep copy of the table
func (t *Table) Clone() *Table {
	all := make([]int, len(t.rows))
	for i := range all {
		all[i] = i
	}
	return t.Select(all)
}
