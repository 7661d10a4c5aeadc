package dataset

// All is the sentinel selector value meaning "no constraint on this column".
const All = "All"

// FilterSpec maps column names to the single value each retained row must
// carry. A value of All (or an unknown column) places no constraint.
type FilterSpec map[string]string

// Clone returns an independent copy so callers can override defaults
// without mutating shared state.
func (f FilterSpec) Clone() FilterSpec {
	out := make(FilterSpec, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Merge overlays other onto a copy of f; a column present in both takes
// other's value. Selections replace rather than intersect, so filtering
// once with the merged spec matches filtering with the later value alone.
func (f FilterSpec) Merge(other FilterSpec) FilterSpec {
	out := f.Clone()
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Apply retains the rows matching every non-All constraint whose column
// exists in the schema. Unknown columns are ignored rather than treated
// as errors: the two feeds share a FilterSpec shape but not a schema.
// Row order is preserved and the input dataset is left untouched.
func Apply(d Dataset, spec FilterSpec) Dataset {
	// Resolve constraints to column indexes once, skipping inactive ones.
	type constraint struct {
		idx   int
		value string
	}
	active := make([]constraint, 0, len(spec))
	for column, value := range spec {
		if value == All {
			continue
		}
		if idx := d.ColumnIndex(column); idx >= 0 {
			active = append(active, constraint{idx: idx, value: value})
		}
	}

	out := Dataset{Type: d.Type, Columns: d.Columns}
	if len(active) == 0 {
		out.Rows = d.Rows
		return out
	}

	rows := make([][]string, 0, len(d.Rows))
	for _, row := range d.Rows {
		keep := true
		for _, c := range active {
			if c.idx >= len(row) || row[c.idx] != c.value {
				keep = false
				break
			}
		}
		if keep {
			rows = append(rows, row)
		}
	}
	out.Rows = rows
	return out
}

// Reorder moves the priority columns that exist in the schema to the front,
// in the priority list's order, and keeps the remaining columns in their
// original order. The column set never changes and reapplying the same
// priority list is a no-op, so the tables and the info panels stay stable
// across repeated render passes.
func Reorder(d Dataset, priority []string) Dataset {
	perm := make([]int, 0, len(d.Columns))
	taken := make(map[int]struct{}, len(d.Columns))
	for _, column := range priority {
		if idx := d.ColumnIndex(column); idx >= 0 {
			if _, dup := taken[idx]; dup {
				continue // duplicate entry in the priority list
			}
			taken[idx] = struct{}{}
			perm = append(perm, idx)
		}
	}
	for idx := range d.Columns {
		if _, ok := taken[idx]; !ok {
			perm = append(perm, idx)
		}
	}

	columns := make([]string, len(perm))
	for i, idx := range perm {
		columns[i] = d.Columns[idx]
	}
	rows := make([][]string, len(d.Rows))
	for r, row := range d.Rows {
		cells := make([]string, len(perm))
		for i, idx := range perm {
			if idx < len(row) {
				cells[i] = row[idx]
			}
		}
		rows[r] = cells
	}
	return Dataset{Type: d.Type, Columns: columns, Rows: rows}
}
