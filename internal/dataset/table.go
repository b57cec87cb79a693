// Package dataset holds the in-memory table that download and cleaning runs
// accumulate into before the single write at the end of a run.
package dataset

// Table is an ordered collection of loosely-typed rows. Columns appear in
// first-seen order; rows are maps because the server emits a varying superset
// of fields, so no column is required to exist on every row.
type Table struct {
	columns []string
	present map[string]struct{}
	rows    []map[string]any
}

// New creates an empty table
func New() *Table {
	return &Table{present: make(map[string]struct{})}
}

// RegisterColumns declares columns ahead of any rows, in the given order
func (t *Table) RegisterColumns(names ...string) {
	for _, name := range names {
		if _, ok := t.present[name]; !ok {
			t.present[name] = struct{}{}
			t.columns = append(t.columns, name)
		}
	}
}

// AppendRow adds one row, registering any columns not seen before
func (t *Table) AppendRow(row map[string]any) {
	for key := range row {
		if _, ok := t.present[key]; !ok {
			t.present[key] = struct{}{}
			t.columns = append(t.columns, key)
		}
	}
	// Registration order of a single row's new columns is map-iteration order;
	// only cross-row first-seen ordering is guaranteed.
	t.rows = append(t.rows, row)
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Columns returns the column names in first-seen order
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// HasColumn reports whether the table has seen the named column
func (t *Table) HasColumn(name string) bool {
	_, ok := t.present[name]
	return ok
}

// Rows returns the underlying rows. Callers must not mutate them.
func (t *Table) Rows() []map[string]any {
	return t.rows
}

// Row returns the i-th row
func (t *Table) Row(i int) map[string]any {
	return t.rows[i]
}

// Project returns a new table containing the intersection of wanted and the
// columns actually present, in wanted order. Missing wanted columns are
// silently omitted.
func (t *Table) Project(wanted []string) *Table {
	out := New()
	var kept []string
	for _, name := range wanted {
		if t.HasColumn(name) {
			kept = append(kept, name)
			out.present[name] = struct{}{}
		}
	}
	out.columns = kept

	for _, row := range t.rows {
		projected := make(map[string]any, len(kept))
		for _, name := range kept {
			if value, ok := row[name]; ok {
				projected[name] = value
			}
		}
		out.rows = append(out.rows, projected)
	}

	return out
}

// Filter returns a new table with the rows for which keep returns true,
// preserving column order and row order.
func (t *Table) Filter(keep func(row map[string]any) bool) *Table {
	out := New()
	out.columns = t.Columns()
	for _, name := range out.columns {
		out.present[name] = struct{}{}
	}
	for _, row := range t.rows {
		if keep(row) {
			out.rows = append(out.rows, row)
		}
	}
	return out
}
