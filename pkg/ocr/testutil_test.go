package ocr

import (
	"image"
	"image/color"
	"image/draw"
)

// paper returns a white w x h image with black rectangles painted on it.
func paper(w, h int, ink ...image.Rectangle) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	for _, r := range ink {
		draw.Draw(img, r, image.NewUniform(color.Black), image.Point{}, draw.Src)
	}
	return img
}

func inkCount(g *image.Gray) int {
	n := 0
	for _, v := range g.Pix {
		if v == Ink {
			n++
		}
	}
	return n
}
