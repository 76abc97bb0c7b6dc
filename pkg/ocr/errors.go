package ocr

import (
	"errors"
	"fmt"
)

// ErrOpenCVNotEnabled is returned by NewOpenCVDetector when the binary was
// built without the gocv build tag.
var ErrOpenCVNotEnabled = errors.New("OpenCV detector not enabled; rebuild with -tags gocv")

// ErrUnknownThreshold is returned for a threshold method other than otsu or fixed.
var ErrUnknownThreshold = errors.New("unknown threshold method")

// ImageLoadError reports an input image that could not be read or decoded.
type ImageLoadError struct {
	Path string
	Err  error
}

func (e *ImageLoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("load image: %v", e.Err)
	}
	return fmt.Sprintf("load image %s: %v", e.Path, e.Err)
}

func (e *ImageLoadError) Unwrap() error {
	return e.Err
}
