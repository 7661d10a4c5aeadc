// Package dataset holds the tabular core of the dashboard: immutable
// column-ordered defect tables plus the pure filter and column-priority
// transforms that every render pass is built from.
//
// A record is nothing more than its ordered (column, value) pairs. We never
// define a fixed struct per defect feed — the CSV/SQL schemas differ between
// railroads and change without notice, so the info panel and the tables
// iterate the pairs generically instead.
package dataset

// Type tags a dataset with the defect feed it came from.
type Type string

const (
	DTN Type = "DTN" // track-geometry defects
	TEC Type = "TEC" // automated-inspection (ATGMS) defects
)

// Dataset is an ordered sequence of rows sharing one column schema.
// Treat it as immutable after load: every transform in this package
// returns a fresh value and never touches the receiver's slices.
type Dataset struct {
	Type    Type
	Columns []string
	Rows    [][]string
}

// Field is one cell of a record paired with its column name, in schema
// order. The map frontend walks these to build the per-point info panel.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ColumnIndex returns the schema position of column, or -1 when absent.
func (d Dataset) ColumnIndex(column string) int {
	for i, c := range d.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the schema carries the named column.
func (d Dataset) HasColumn(column string) bool { return d.ColumnIndex(column) >= 0 }

// Len returns the row count.
func (d Dataset) Len() int { return len(d.Rows) }

// Cell returns row i's value for column, or "" when the column is absent
// or the row is ragged. Missing data renders as empty rather than erroring
// so one short row cannot take the whole view down.
func (d Dataset) Cell(i int, column string) string {
	j := d.ColumnIndex(column)
	if j < 0 || i < 0 || i >= len(d.Rows) || j >= len(d.Rows[i]) {
		return ""
	}
	return d.Rows[i][j]
}

// Fields returns row i as ordered (column, value) pairs.
func (d Dataset) Fields(i int) []Field {
	if i < 0 || i >= len(d.Rows) {
		return nil
	}
	row := d.Rows[i]
	fields := make([]Field, len(d.Columns))
	for j, c := range d.Columns {
		v := ""
		if j < len(row) {
			v = row[j]
		}
		fields[j] = Field{Name: c, Value: v}
	}
	return fields
}

// DistinctValues lists the observed values of column in first-seen row
// order. The sidebar selectors prepend the All sentinel themselves.
// Returns nil when the column is absent.
func (d Dataset) DistinctValues(column string) []string {
	j := d.ColumnIndex(column)
	if j < 0 {
		return nil
	}
	seen := make(map[string]struct{}, 16)
	var out []string
	for _, row := range d.Rows {
		if j >= len(row) {
			continue
		}
		v := row[j]
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
