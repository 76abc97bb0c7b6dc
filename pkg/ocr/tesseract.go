package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract is an Engine backed by the Tesseract library through gosseract.
// A fresh client is created per call, so one Tesseract may be shared by
// concurrent workers.
type Tesseract struct {
	Language    string
	PageSegMode gosseract.PageSegMode
	Whitelist   string
}

// NewTesseract returns an engine for lang ("eng" when empty) with fully
// automatic page segmentation.
func NewTesseract(lang string) *Tesseract {
	if lang == "" {
		lang = "eng"
	}
	return &Tesseract{Language: lang, PageSegMode: gosseract.PSM_AUTO}
}

type recognizeResult struct {
	text string
	err  error
}

// Recognize implements Engine. When ctx ends first the call returns
// ctx.Err(); the Tesseract call itself cannot be interrupted and finishes in
// the background.
func (t *Tesseract) Recognize(ctx context.Context, imageData []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	done := make(chan recognizeResult, 1)
	go func() {
		text, err := t.recognize(imageData)
		done <- recognizeResult{text: text, err: err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.text, r.err
	}
}

func (t *Tesseract) recognize(imageData []byte) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage(t.Language); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	if err := client.SetPageSegMode(t.PageSegMode); err != nil {
		return "", fmt.Errorf("set page segmentation mode: %w", err)
	}
	if t.Whitelist != "" {
		if err := client.SetWhitelist(t.Whitelist); err != nil {
			return "", fmt.Errorf("set whitelist: %w", err)
		}
	}
	if err := client.SetImageFromBytes(imageData); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return text, nil
}
