package ocr

import (
	"image"

	"tablify/pkg/table"
)

// RegionOptions configures FindRegions.
type RegionOptions struct {
	// ExternalOnly drops regions that sit inside a hole of another region,
	// keeping only outermost blobs.
	ExternalOnly bool
	// MinArea drops regions whose bounding box covers fewer pixels.
	MinArea int
}

// DefaultRegionOptions keeps outermost regions of any size.
func DefaultRegionOptions() RegionOptions {
	return RegionOptions{ExternalOnly: true}
}

// FindRegions returns the bounding box of every 8-connected Ink component
// of bin, in raster order of each component's first pixel.
func FindRegions(bin *image.Gray, opts RegionOptions) []table.BoundingBox {
	b := bin.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil
	}
	ink := func(x, y int) bool {
		return bin.Pix[(y)*bin.Stride+x] == Ink
	}

	var outside []bool
	if opts.ExternalOnly {
		outside = outerBackground(bin)
	}

	labels := make([]int32, w*h)
	var boxes []table.BoundingBox
	var stack []int
	next := int32(0)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if labels[y*w+x] != 0 || !ink(x, y) {
				continue
			}
			next++
			minX, minY, maxX, maxY := x, y, x, y
			external := !opts.ExternalOnly
			labels[y*w+x] = next
			stack = append(stack[:0], y*w+x)
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				px, py := p%w, p/w
				if px < minX {
					minX = px
				}
				if px > maxX {
					maxX = px
				}
				if py < minY {
					minY = py
				}
				if py > maxY {
					maxY = py
				}
				if !external && touchesOutside(outside, px, py, w, h) {
					external = true
				}
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						nx, ny := px+dx, py+dy
						if nx < 0 || ny < 0 || nx >= w || ny >= h {
							continue
						}
						q := ny*w + nx
						if labels[q] == 0 && ink(nx, ny) {
							labels[q] = next
							stack = append(stack, q)
						}
					}
				}
			}
			if !external {
				continue
			}
			box := table.Box(minX+b.Min.X, minY+b.Min.Y, maxX-minX+1, maxY-minY+1)
			if box.Area() < opts.MinArea {
				continue
			}
			boxes = append(boxes, box)
		}
	}
	return boxes
}

// outerBackground marks the Paper pixels 4-connected to the image border.
// Paper that is not marked lies in a hole enclosed by ink.
func outerBackground(bin *image.Gray) []bool {
	w, h := bin.Bounds().Dx(), bin.Bounds().Dy()
	out := make([]bool, w*h)
	var stack []int
	push := func(x, y int) {
		p := y*w + x
		if out[p] || bin.Pix[y*bin.Stride+x] == Ink {
			return
		}
		out[p] = true
		stack = append(stack, p)
	}
	for x := 0; x < w; x++ {
		push(x, 0)
		push(x, h-1)
	}
	for y := 0; y < h; y++ {
		push(0, y)
		push(w-1, y)
	}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := p%w, p/w
		if x > 0 {
			push(x-1, y)
		}
		if x < w-1 {
			push(x+1, y)
		}
		if y > 0 {
			push(x, y-1)
		}
		if y < h-1 {
			push(x, y+1)
		}
	}
	return out
}

// touchesOutside reports whether an ink pixel lies on the image border or
// next to outer background.
func touchesOutside(outside []bool, x, y, w, h int) bool {
	if x == 0 || y == 0 || x == w-1 || y == h-1 {
		return true
	}
	return outside[y*w+x-1] || outside[y*w+x+1] || outside[(y-1)*w+x] || outside[(y+1)*w+x]
}
