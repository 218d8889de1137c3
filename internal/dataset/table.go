package dataset

import "fmt"

// Coercion records how many cells of a column were nulled by type coercion.
type Coercion struct {
	Column  string
	Invalid int
}

func (c Coercion) String() string {
	return fmt.Sprintf("%s: %d value(s) could not be coerced and were set to null", c.Column, c.Invalid)
}

// Table is an immutable, ordered collection of rows keyed by column name.
// Filtering returns a new Table that shares row storage with its parent.
type Table struct {
	Name      string
	Coercions []Coercion

	columns []string
	index   map[string]int
	rows    [][]Value
}

// NewTable builds a table. Rows shorter than the header are padded with nulls
// and longer rows are truncated.
func NewTable(name string, columns []string, rows [][]Value) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		// first occurrence wins for duplicate headers
		if _, ok := idx[c]; !ok {
			idx[c] = i
		}
	}
	for i, r := range rows {
		if len(r) == len(cols) {
			continue
		}
		fixed := make([]Value, len(cols))
		copy(fixed, r)
		rows[i] = fixed
	}
	return &Table{Name: name, columns: cols, index: idx, rows: rows}
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

func (t *Table) NumRows() int { return len(t.rows) }
func (t *Table) NumCols() int { return len(t.columns) }

// Has reports whether the table carries the named column (exact match).
func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Index returns the position of a column.
func (t *Table) Index(col string) (int, bool) {
	i, ok := t.index[col]
	return i, ok
}

// Row returns the i-th row. Callers must not modify it.
func (t *Table) Row(i int) []Value { return t.rows[i] }

// Get returns the value of col in row i, or null when the column is absent.
func (t *Table) Get(i int, col string) Value {
	j, ok := t.index[col]
	if !ok {
		return NullValue()
	}
	return t.rows[i][j]
}

// Column returns all values of one column in row order.
func (t *Table) Column(col string) ([]Value, bool) {
	j, ok := t.index[col]
	if !ok {
		return nil, false
	}
	out := make([]Value, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[j]
	}
	return out, true
}

// Filter returns the rows for which keep returns true.
func (t *Table) Filter(keep func(row []Value) bool) *Table {
	out := make([][]Value, 0, len(t.rows))
	for _, r := range t.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return t.derive(out)
}

// Head returns at most n leading rows.
func (t *Table) Head(n int) *Table {
	if n < 0 || n >= len(t.rows) {
		return t
	}
	return t.derive(t.rows[:n])
}

// Distinct returns the non-null values of col in first-appearance order.
func (t *Table) Distinct(col string) []Value {
	j, ok := t.index[col]
	if !ok {
		return nil
	}
	seen := map[string]struct{}{}
	var out []Value
	for _, r := range t.rows {
		v := r[j]
		if v.IsNull() {
			continue
		}
		k := v.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}

func (t *Table) derive(rows [][]Value) *Table {
	return &Table{Name: t.Name, Coercions: t.Coercions, columns: t.columns, index: t.index, rows: rows}
}
