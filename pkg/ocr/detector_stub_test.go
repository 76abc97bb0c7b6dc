//go:build !gocv

package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpenCVDetectorDisabled(t *testing.T) {
	d, err := NewDetector(DetectorOpenCV, DefaultPreprocessOptions(), DefaultRegionOptions())
	assert.ErrorIs(t, err, ErrOpenCVNotEnabled)
	assert.Nil(t, d)
}
