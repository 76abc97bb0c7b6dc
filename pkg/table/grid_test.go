package table

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconstructScenarios(t *testing.T) {
	tests := []struct {
		name   string
		boxes  []BoundingBox
		opts   GridOptions
		expect Grid
	}{
		{
			name:   "empty",
			boxes:  nil,
			opts:   DefaultGridOptions(),
			expect: Grid{},
		},
		{
			name:   "single box",
			boxes:  []BoundingBox{Box(5, 5, 10, 10)},
			opts:   DefaultGridOptions(),
			expect: Grid{{Box(5, 5, 10, 10)}},
		},
		{
			name:  "two rows, first sorted by x",
			boxes: []BoundingBox{Box(20, 0, 10, 10), Box(0, 30, 10, 10), Box(0, 0, 10, 10)},
			opts:  DefaultGridOptions(),
			expect: Grid{
				{Box(0, 0, 10, 10), Box(20, 0, 10, 10)},
				{Box(0, 30, 10, 10)},
			},
		},
		{
			name:   "chained drift merges",
			boxes:  []BoundingBox{Box(0, 0, 10, 10), Box(0, 12, 10, 10), Box(0, 25, 10, 10)},
			opts:   DefaultGridOptions(),
			expect: Grid{{Box(0, 0, 10, 10), Box(0, 12, 10, 10), Box(0, 25, 10, 10)}},
		},
		{
			name:  "anchored drift splits",
			boxes: []BoundingBox{Box(0, 0, 10, 10), Box(0, 12, 10, 10), Box(0, 25, 10, 10)},
			opts:  GridOptions{RowTolerance: 15, Policy: Anchored},
			expect: Grid{
				{Box(0, 0, 10, 10), Box(0, 12, 10, 10)},
				{Box(0, 25, 10, 10)},
			},
		},
		{
			name:   "tolerance boundary is inclusive",
			boxes:  []BoundingBox{Box(40, 15, 5, 5), Box(0, 0, 5, 5)},
			opts:   DefaultGridOptions(),
			expect: Grid{{Box(0, 0, 5, 5), Box(40, 15, 5, 5)}},
		},
		{
			name:   "negative tolerance acts as zero",
			boxes:  []BoundingBox{Box(0, 0, 5, 5), Box(9, 0, 5, 5), Box(0, 1, 5, 5)},
			opts:   GridOptions{RowTolerance: -3},
			expect: Grid{{Box(0, 0, 5, 5), Box(9, 0, 5, 5)}, {Box(0, 1, 5, 5)}},
		},
		{
			name:   "degenerate boxes pass through",
			boxes:  []BoundingBox{Box(3, 0, 0, 0), Box(1, 2, 0, 4)},
			opts:   DefaultGridOptions(),
			expect: Grid{{Box(1, 2, 0, 4), Box(3, 0, 0, 0)}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reconstruct(tt.boxes, tt.opts)
			assert.Equal(t, tt.expect, got)
		})
	}
}

func TestReconstructDuplicatesAreDistinct(t *testing.T) {
	b := Box(1, 1, 4, 4)
	got := ReconstructRows([]BoundingBox{b, b, b}, 15)
	require.Len(t, got, 1)
	assert.Len(t, got[0], 3)
}

func TestReconstructDoesNotMutateInput(t *testing.T) {
	in := []BoundingBox{Box(9, 40, 1, 1), Box(0, 0, 1, 1), Box(5, 0, 1, 1)}
	snapshot := append([]BoundingBox(nil), in...)
	_ = Reconstruct(in, DefaultGridOptions())
	assert.Equal(t, snapshot, in)
}

func TestReconstructTieBreakKeepsInputOrder(t *testing.T) {
	a := Box(10, 0, 3, 3)
	b := Box(10, 0, 7, 7)
	got := ReconstructRows([]BoundingBox{a, b}, 15)
	assert.Equal(t, Grid{{a, b}}, got)

	got = ReconstructRows([]BoundingBox{b, a}, 15)
	assert.Equal(t, Grid{{b, a}}, got)
}

func randomBoxes(r *rand.Rand, n int) []BoundingBox {
	out := make([]BoundingBox, n)
	for i := range out {
		out[i] = Box(r.Intn(500), r.Intn(800), r.Intn(60), r.Intn(30))
	}
	return out
}

func TestReconstructProperties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for iter := 0; iter < 200; iter++ {
		boxes := randomBoxes(r, 1+r.Intn(60))
		tol := r.Intn(30)
		for _, policy := range []RowPolicy{Chained, Anchored} {
			opts := GridOptions{RowTolerance: tol, Policy: policy}
			grid := Reconstruct(boxes, opts)

			// conservation: multiset of boxes is preserved
			require.Equal(t, len(boxes), grid.Count())
			seen := map[BoundingBox]int{}
			for _, b := range boxes {
				seen[b]++
			}
			for _, row := range grid {
				require.NotEmpty(t, row)
				for _, b := range row {
					seen[b]--
				}
			}
			for b, n := range seen {
				require.Zero(t, n, "box %v count mismatch", b)
			}

			for i, row := range grid {
				for j := 1; j < len(row); j++ {
					require.LessOrEqual(t, row[j-1].X, row[j].X)
				}
				if i == 0 {
					continue
				}
				prev := grid[i-1]
				nextMin := minY(row)
				switch policy {
				case Chained:
					require.Greater(t, nextMin-maxY(prev), tol)
				case Anchored:
					require.Greater(t, nextMin-minY(prev), tol)
				}
			}

			require.Equal(t, grid, Reconstruct(boxes, opts), "reconstruction must be deterministic")
		}
	}
}

func minY(r Row) int {
	m := r[0].Y
	for _, b := range r {
		if b.Y < m {
			m = b.Y
		}
	}
	return m
}

func maxY(r Row) int {
	m := r[0].Y
	for _, b := range r {
		if b.Y > m {
			m = b.Y
		}
	}
	return m
}

func TestParseRowPolicy(t *testing.T) {
	p, err := ParseRowPolicy("")
	require.NoError(t, err)
	assert.Equal(t, Chained, p)

	p, err = ParseRowPolicy("anchored")
	require.NoError(t, err)
	assert.Equal(t, Anchored, p)

	_, err = ParseRowPolicy("diagonal")
	assert.Error(t, err)
}
