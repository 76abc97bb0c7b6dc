package table

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoundingBoxClip(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 50)

	tests := []struct {
		name string
		in   BoundingBox
		want BoundingBox
	}{
		{"inside", Box(10, 10, 20, 20), Box(10, 10, 20, 20)},
		{"partially outside", Box(90, 40, 30, 30), Box(90, 40, 10, 10)},
		{"negative origin", Box(-5, -5, 10, 10), Box(0, 0, 5, 5)},
		{"fully outside", Box(200, 200, 10, 10), BoundingBox{}},
		{"zero area", Box(10, 10, 0, 5), BoundingBox{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Clip(bounds))
		})
	}
}

func TestBoundingBoxHelpers(t *testing.T) {
	b := Box(2, 3, 4, 5)
	assert.Equal(t, image.Rect(2, 3, 6, 8), b.Rect())
	assert.Equal(t, b, FromRect(b.Rect()))
	assert.Equal(t, 20, b.Area())
	assert.False(t, b.Empty())
	assert.True(t, Box(0, 0, 0, 9).Empty())
	assert.Equal(t, "(2,3,4,5)", b.String())
}

func TestTableFromGrid(t *testing.T) {
	g := Grid{
		{Box(0, 0, 1, 1), Box(5, 0, 1, 1)},
		{Box(0, 9, 1, 1)},
	}
	tb := NewTable(g)
	tb.Rows[0][1].Text = "b"
	tb.Rows[1][0].Text = "c"

	assert.Equal(t, 2, tb.RowCount())
	assert.Equal(t, 3, tb.CellCount())
	assert.Equal(t, [][]string{{"", "b"}, {"c"}}, tb.Strings())
	assert.Equal(t, Box(5, 0, 1, 1), tb.Rows[0][1].Box)
}

func TestEmptyTable(t *testing.T) {
	tb := NewTable(Grid{})
	assert.Zero(t, tb.RowCount())
	assert.Empty(t, tb.Strings())
}
