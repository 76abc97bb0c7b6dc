package ocr

import (
	"image"
	"io"

	"github.com/disintegration/imaging"

	// Decoders beyond the png/jpeg/gif set imaging registers.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// LoadImage opens and decodes the image at path, applying any EXIF
// orientation. Failures are returned as *ImageLoadError.
func LoadImage(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, &ImageLoadError{Path: path, Err: err}
	}
	return img, nil
}

// DecodeImage decodes an image from r. Failures are returned as *ImageLoadError
// carrying name as the path.
func DecodeImage(r io.Reader, name string) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, &ImageLoadError{Path: name, Err: err}
	}
	return img, nil
}
