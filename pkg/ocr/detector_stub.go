//go:build !gocv

package ocr

// NewOpenCVDetector returns ErrOpenCVNotEnabled. Rebuild with -tags gocv
// (requires OpenCV 4) to use the OpenCV backend.
func NewOpenCVDetector(pre PreprocessOptions, reg RegionOptions) (Detector, error) {
	return nil, ErrOpenCVNotEnabled
}
