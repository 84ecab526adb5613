package fills

// Frame is a fixed-schema columnar batch: one column slice per canonical
// column, in canonical order. Cell values are nil or a scalar (int64, string,
// bool); nested sub-records never survive into a frame, they are text-encoded
// by the normalizer. A frame is owned by the worker processing one partition
// and is never shared.
type Frame struct {
	cols [][]any
	rows int
}

// NewFrame returns an empty frame with the canonical column set and capacity
// for rows rows.
func NewFrame(rows int) *Frame {
	cols := make([][]any, len(Columns))
	for i := range cols {
		cols[i] = make([]any, 0, rows)
	}
	return &Frame{cols: cols}
}

func (f *Frame) NumRows() int {
	if f == nil {
		return 0
	}
	return f.rows
}

func (f *Frame) NumCols() int { return len(f.cols) }

// Column returns the values of the i-th canonical column.
func (f *Frame) Column(i int) []any { return f.cols[i] }

// ColumnByName returns the values of the named source column, or nil if the
// name is not canonical.
func (f *Frame) ColumnByName(source string) []any {
	i := ColumnIndex(source)
	if i < 0 {
		return nil
	}
	return f.cols[i]
}

// Row copies row i into a slice in canonical column order.
func (f *Frame) Row(i int) []any {
	row := make([]any, len(f.cols))
	for c := range f.cols {
		row[c] = f.cols[c][i]
	}
	return row
}

// appendRow appends one row given in canonical column order.
func (f *Frame) appendRow(row []any) {
	for c := range f.cols {
		f.cols[c] = append(f.cols[c], row[c])
	}
	f.rows++
}
