package ocr

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"

	"tablify/pkg/table"
)

// Detector finds candidate cell regions in a source image. The returned boxes
// are in no particular order.
type Detector interface {
	Detect(img image.Image) ([]table.BoundingBox, error)
}

// DetectorKind names a Detector implementation.
type DetectorKind string

const (
	DetectorNative DetectorKind = "native"
	DetectorOpenCV DetectorKind = "opencv"
)

// NativeDetector runs Preprocess and FindRegions in pure Go.
type NativeDetector struct {
	Preprocess PreprocessOptions
	Regions    RegionOptions
}

// NewNativeDetector returns a detector with the given options.
func NewNativeDetector(pre PreprocessOptions, reg RegionOptions) *NativeDetector {
	return &NativeDetector{Preprocess: pre, Regions: reg}
}

// Detect implements Detector.
func (d *NativeDetector) Detect(img image.Image) ([]table.BoundingBox, error) {
	bin, err := Preprocess(img, d.Preprocess)
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}
	boxes := FindRegions(bin, d.Regions)
	// Preprocess rebases to (0,0); shift back into source coordinates.
	if origin := img.Bounds().Min; origin != (image.Point{}) {
		for i := range boxes {
			boxes[i].X += origin.X
			boxes[i].Y += origin.Y
		}
	}
	return boxes, nil
}

// NewDetector builds the detector named by kind.
func NewDetector(kind DetectorKind, pre PreprocessOptions, reg RegionOptions) (Detector, error) {
	switch DetectorKind(strings.ToLower(string(kind))) {
	case "", DetectorNative:
		return NewNativeDetector(pre, reg), nil
	case DetectorOpenCV:
		return NewOpenCVDetector(pre, reg)
	default:
		return nil, fmt.Errorf("unknown detector %q (want native or opencv)", kind)
	}
}

// DrawBoxes returns a copy of img with every box outlined in blue, for
// inspecting detection results.
func DrawBoxes(img image.Image, boxes []table.BoundingBox) *image.NRGBA {
	out := imaging.Clone(img)
	origin := img.Bounds().Min
	blue := color.NRGBA{R: 0, G: 0, B: 255, A: 255}
	for _, b := range boxes {
		r := b.Rect().Sub(origin).Intersect(out.Bounds())
		if r.Empty() {
			continue
		}
		for t := 0; t < 2; t++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				out.SetNRGBA(x, clampInt(r.Min.Y+t, r.Min.Y, r.Max.Y-1), blue)
				out.SetNRGBA(x, clampInt(r.Max.Y-1-t, r.Min.Y, r.Max.Y-1), blue)
			}
			for y := r.Min.Y; y < r.Max.Y; y++ {
				out.SetNRGBA(clampInt(r.Min.X+t, r.Min.X, r.Max.X-1), y, blue)
				out.SetNRGBA(clampInt(r.Max.X-1-t, r.Min.X, r.Max.X-1), y, blue)
			}
		}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
