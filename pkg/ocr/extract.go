package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/disintegration/imaging"

	"tablify/pkg/table"
)

// Engine recognizes the text in an encoded image.
type Engine interface {
	Recognize(ctx context.Context, imageData []byte) (string, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, imageData []byte) (string, error)

// Recognize implements Engine.
func (f EngineFunc) Recognize(ctx context.Context, imageData []byte) (string, error) {
	return f(ctx, imageData)
}

// CellExtractor crops one cell out of a source image and runs it through an Engine.
type CellExtractor struct {
	engine Engine
}

// NewCellExtractor returns an extractor backed by engine.
func NewCellExtractor(engine Engine) *CellExtractor {
	return &CellExtractor{engine: engine}
}

// Extract returns the trimmed text inside box. Boxes that fall outside img
// are clipped to it; when nothing is left the engine is not called and the
// text is empty.
func (e *CellExtractor) Extract(ctx context.Context, img image.Image, box table.BoundingBox) (string, error) {
	clipped := box.Clip(img.Bounds())
	if clipped.Empty() {
		return "", nil
	}
	crop := imaging.Crop(img, clipped.Rect())

	var buf bytes.Buffer
	if err := png.Encode(&buf, crop); err != nil {
		return "", fmt.Errorf("encode cell %s: %w", box, err)
	}
	text, err := e.engine.Recognize(ctx, buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("recognize cell %s: %w", box, err)
	}
	return strings.TrimSpace(text), nil
}
