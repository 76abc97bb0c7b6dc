package ocr

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablify/pkg/table"
)

func binaryOf(img image.Image) *image.Gray {
	return BinarizeInv(Grayscale(img), 127)
}

func TestFindRegionsSeparateBlobs(t *testing.T) {
	img := paper(100, 100,
		image.Rect(10, 10, 20, 20),
		image.Rect(50, 12, 70, 18),
		image.Rect(10, 60, 30, 80),
	)
	boxes := FindRegions(binaryOf(img), DefaultRegionOptions())
	assert.ElementsMatch(t, []table.BoundingBox{
		table.Box(10, 10, 10, 10),
		table.Box(50, 12, 20, 6),
		table.Box(10, 60, 20, 20),
	}, boxes)
}

func TestFindRegionsDiagonalIsConnected(t *testing.T) {
	img := paper(10, 10, image.Rect(2, 2, 3, 3), image.Rect(3, 3, 4, 4))
	boxes := FindRegions(binaryOf(img), DefaultRegionOptions())
	assert.Equal(t, []table.BoundingBox{table.Box(2, 2, 2, 2)}, boxes)
}

func frame(x0, y0, x1, y1, t int) []image.Rectangle {
	return []image.Rectangle{
		image.Rect(x0, y0, x1, y0+t),
		image.Rect(x0, y1-t, x1, y1),
		image.Rect(x0, y0, x0+t, y1),
		image.Rect(x1-t, y0, x1, y1),
	}
}

func TestFindRegionsNested(t *testing.T) {
	rects := append(frame(5, 5, 60, 60, 2), image.Rect(20, 20, 30, 30))
	bin := binaryOf(paper(80, 80, rects...))

	external := FindRegions(bin, RegionOptions{ExternalOnly: true})
	assert.Equal(t, []table.BoundingBox{table.Box(5, 5, 55, 55)}, external)

	all := FindRegions(bin, RegionOptions{ExternalOnly: false})
	assert.ElementsMatch(t, []table.BoundingBox{table.Box(5, 5, 55, 55), table.Box(20, 20, 10, 10)}, all)
}

func TestFindRegionsInsideOpenShapeIsExternal(t *testing.T) {
	// a U shape does not enclose what sits between its arms
	rects := []image.Rectangle{
		image.Rect(5, 5, 7, 40),
		image.Rect(33, 5, 35, 40),
		image.Rect(5, 38, 35, 40),
		image.Rect(15, 15, 25, 25),
	}
	boxes := FindRegions(binaryOf(paper(50, 50, rects...)), DefaultRegionOptions())
	assert.Len(t, boxes, 2)
}

func TestFindRegionsMinArea(t *testing.T) {
	img := paper(50, 50, image.Rect(1, 1, 3, 3), image.Rect(10, 10, 30, 30))
	boxes := FindRegions(binaryOf(img), RegionOptions{ExternalOnly: true, MinArea: 10})
	require.Len(t, boxes, 1)
	assert.Equal(t, table.Box(10, 10, 20, 20), boxes[0])
}

func TestFindRegionsTouchingBorder(t *testing.T) {
	img := paper(20, 20, image.Rect(0, 0, 5, 5))
	boxes := FindRegions(binaryOf(img), DefaultRegionOptions())
	assert.Equal(t, []table.BoundingBox{table.Box(0, 0, 5, 5)}, boxes)
}

func TestFindRegionsEmpty(t *testing.T) {
	assert.Empty(t, FindRegions(binaryOf(paper(30, 30)), DefaultRegionOptions()))
	assert.Empty(t, FindRegions(image.NewGray(image.Rect(0, 0, 0, 0)), DefaultRegionOptions()))
}
