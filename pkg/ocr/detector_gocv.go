//go:build gocv

package ocr

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"tablify/pkg/table"
)

// OpenCVDetector performs the same threshold, dilate and contour steps as
// NativeDetector using OpenCV.
type OpenCVDetector struct {
	pre PreprocessOptions
	reg RegionOptions
}

// NewOpenCVDetector validates the options and returns an OpenCV backed detector.
func NewOpenCVDetector(pre PreprocessOptions, reg RegionOptions) (Detector, error) {
	if err := pre.Validate(); err != nil {
		return nil, err
	}
	return &OpenCVDetector{pre: pre, reg: reg}, nil
}

// Detect implements Detector.
func (d *OpenCVDetector) Detect(img image.Image) ([]table.BoundingBox, error) {
	src, err := imageToMat(img)
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}
	defer src.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorRGBAToGray)

	binary := gocv.NewMat()
	defer binary.Close()
	if d.pre.Threshold == ThresholdOtsu {
		gocv.Threshold(gray, &binary, 0, 255, gocv.ThresholdBinaryInv|gocv.ThresholdOtsu)
	} else {
		gocv.Threshold(gray, &binary, float32(d.pre.FixedThreshold), 255, gocv.ThresholdBinaryInv)
	}

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(d.pre.KernelWidth, d.pre.KernelHeight))
	defer kernel.Close()
	dilated := gocv.NewMat()
	defer dilated.Close()
	gocv.Dilate(binary, &dilated, kernel)

	mode := gocv.RetrievalList
	if d.reg.ExternalOnly {
		mode = gocv.RetrievalExternal
	}
	contours := gocv.FindContours(dilated, mode, gocv.ChainApproxNone)
	defer contours.Close()

	origin := img.Bounds().Min
	boxes := make([]table.BoundingBox, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		r := gocv.BoundingRect(contours.At(i)).Add(origin)
		box := table.FromRect(r)
		if box.Area() < d.reg.MinArea {
			continue
		}
		boxes = append(boxes, box)
	}
	return boxes, nil
}

// imageToMat converts a Go image.Image to a 4-channel OpenCV Mat.
func imageToMat(img image.Image) (gocv.Mat, error) {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			rgba.Set(x-b.Min.X, y-b.Min.Y, img.At(x, y))
		}
	}
	return gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC4, rgba.Pix)
}
