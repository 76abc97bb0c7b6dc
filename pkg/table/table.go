package table

// Cell pairs a detected box with the text recognized inside it.
type Cell struct {
	Box  BoundingBox `json:"box"`
	Text string      `json:"text"`
}

// Table is a grid whose boxes have been replaced by cells. Rows may have
// different lengths.
type Table struct {
	Rows [][]Cell `json:"rows"`
}

// NewTable allocates a table shaped like g with empty text in every cell.
func NewTable(g Grid) *Table {
	t := &Table{Rows: make([][]Cell, len(g))}
	for i, row := range g {
		t.Rows[i] = make([]Cell, len(row))
		for j, b := range row {
			t.Rows[i][j] = Cell{Box: b}
		}
	}
	return t
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int {
	return len(t.Rows)
}

// CellCount returns the number of cells across all rows.
func (t *Table) CellCount() int {
	n := 0
	for _, r := range t.Rows {
		n += len(r)
	}
	return n
}

// Strings returns the cell texts row by row, preserving raggedness.
func (t *Table) Strings() [][]string {
	out := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = make([]string, len(row))
		for j, c := range row {
			out[i][j] = c.Text
		}
	}
	return out
}
