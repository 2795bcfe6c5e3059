package value

// Cell is one column of a row.
type Cell struct {
	Column string
	Value  any
}

// Row is an ordered mapping from column name to an untyped scalar
// (int64, float64, string, bool, time.Time or nil).
type Row struct {
	Cells []Cell
	index map[string]int // lazy index for lookups
}

// NewRow creates a row from cells, in order.
func NewRow(cells ...Cell) *Row {
	r := &Row{Cells: cells}
	r.reindex()
	return r
}

// Get returns the value of col. A nil row has no columns.
func (r *Row) Get(col string) (any, bool) {
	if r == nil {
		return nil, false
	}
	if r.index == nil {
		r.reindex()
	}
	i, ok := r.index[col]
	if !ok {
		return nil, false
	}
	return r.Cells[i].Value, true
}

// Set sets col, preserving the position of an existing column.
func (r *Row) Set(col string, v any) {
	if r.index == nil {
		r.reindex()
	}
	if i, ok := r.index[col]; ok {
		r.Cells[i].Value = v
		return
	}
	r.index[col] = len(r.Cells)
	r.Cells = append(r.Cells, Cell{Column: col, Value: v})
}

// Columns returns the column names in order.
func (r *Row) Columns() []string {
	if r == nil {
		return nil
	}
	cols := make([]string, len(r.Cells))
	for i, c := range r.Cells {
		cols[i] = c.Column
	}
	return cols
}

func (r *Row) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Cells)
}

func (r *Row) reindex() {
	r.index = make(map[string]int, len(r.Cells))
	for i, c := range r.Cells {
		r.index[c.Column] = i
	}
}

// RowContext is the pair of rows a transform or predicate is evaluated
// against. Either row may be nil when that side is treated as empty.
type RowContext struct {
	LeftID  string
	Left    *Row
	RightID string
	Right   *Row
}

// Names reports whether id is one of the two dataset identifiers.
func (rc *RowContext) Names(id string) bool {
	return id == rc.LeftID || id == rc.RightID
}

// Row returns the row bound to the dataset identifier id.
func (rc *RowContext) Row(id string) (*Row, bool) {
	switch id {
	case rc.LeftID:
		return rc.Left, true
	case rc.RightID:
		return rc.Right, true
	}
	return nil, false
}
