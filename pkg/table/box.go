// Package table holds the table model (boxes, rows, grids, cells) and the
// reconstruction of an ordered grid from unordered detected regions.
package table

import (
	"fmt"
	"image"
)

// BoundingBox is an axis-aligned pixel rectangle. X and Y are the top-left
// corner with the origin at the top-left of the image.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Box is shorthand for BoundingBox{x, y, w, h}.
func Box(x, y, w, h int) BoundingBox {
	return BoundingBox{X: x, Y: y, Width: w, Height: h}
}

// FromRect converts an image.Rectangle.
func FromRect(r image.Rectangle) BoundingBox {
	r = r.Canon()
	return BoundingBox{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Rect returns the box as an image.Rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// Area is Width*Height, zero for degenerate boxes.
func (b BoundingBox) Area() int {
	if b.Width <= 0 || b.Height <= 0 {
		return 0
	}
	return b.Width * b.Height
}

// Empty reports whether the box covers no pixels.
func (b BoundingBox) Empty() bool {
	return b.Area() == 0
}

// Clip returns the intersection of the box with bounds. The result is the
// zero box when they do not overlap.
func (b BoundingBox) Clip(bounds image.Rectangle) BoundingBox {
	r := b.Rect().Intersect(bounds)
	if r.Empty() {
		return BoundingBox{}
	}
	return FromRect(r)
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d)", b.X, b.Y, b.Width, b.Height)
}
