package table

import (
	"fmt"
	"sort"
)

// DefaultRowTolerance is the vertical distance in pixels under which two
// boxes still belong to the same row.
const DefaultRowTolerance = 15

// RowPolicy selects what a box's Y is compared against when deciding whether
// it continues the current row.
type RowPolicy string

const (
	// Chained compares each box with the box immediately before it in
	// y-order. A long run of slightly staggered boxes can drift arbitrarily
	// far from the row's first box and still be grouped together.
	Chained RowPolicy = "chained"
	// Anchored compares each box with the first box of the current row.
	Anchored RowPolicy = "anchored"
)

// ParseRowPolicy accepts "chained" or "anchored"; the empty string selects Chained.
func ParseRowPolicy(s string) (RowPolicy, error) {
	switch RowPolicy(s) {
	case "", Chained:
		return Chained, nil
	case Anchored:
		return Anchored, nil
	default:
		return "", fmt.Errorf("unknown row policy %q (want chained or anchored)", s)
	}
}

// Row is a sequence of boxes ordered left to right.
type Row []BoundingBox

// Grid is a sequence of rows ordered top to bottom.
type Grid []Row

// GridOptions configures Reconstruct.
type GridOptions struct {
	RowTolerance int
	Policy       RowPolicy
}

// DefaultGridOptions returns a tolerance of 15 pixels with chained grouping.
func DefaultGridOptions() GridOptions {
	return GridOptions{RowTolerance: DefaultRowTolerance, Policy: Chained}
}

// Count returns the total number of boxes in the grid.
func (g Grid) Count() int {
	n := 0
	for _, r := range g {
		n += len(r)
	}
	return n
}

// ReconstructRows groups boxes into rows with the chained policy.
func ReconstructRows(boxes []BoundingBox, tolerance int) Grid {
	return Reconstruct(boxes, GridOptions{RowTolerance: tolerance, Policy: Chained})
}

// Reconstruct orders an unordered set of boxes into rows (top to bottom)
// and columns (left to right). Every input box appears in exactly one row.
// The input slice is not modified.
func Reconstruct(boxes []BoundingBox, opts GridOptions) Grid {
	if len(boxes) == 0 {
		return Grid{}
	}
	tol := opts.RowTolerance
	if tol < 0 {
		tol = 0
	}

	sorted := make([]BoundingBox, len(boxes))
	copy(sorted, boxes)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y < sorted[j].Y })

	grid := make(Grid, 0)
	current := Row{sorted[0]}
	refY := sorted[0].Y
	for _, b := range sorted[1:] {
		if abs(b.Y-refY) <= tol {
			current = append(current, b)
		} else {
			grid = append(grid, sortByX(current))
			current = Row{b}
			refY = b.Y
		}
		if opts.Policy != Anchored {
			refY = b.Y
		}
	}
	return append(grid, sortByX(current))
}

func sortByX(r Row) Row {
	sort.SliceStable(r, func(i, j int) bool { return r[i].X < r[j].X })
	return r
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
