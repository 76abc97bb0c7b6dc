package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"tablify/pkg/log"
	"tablify/pkg/ocr"
	"tablify/pkg/table"
)

// Runs Tesseract on each detected cell in grid order and prints the raw and
// trimmed text, one line per cell.
func main() {
	f := flag.String("file", "", "image file to OCR")
	lang := flag.String("lang", "eng", "tesseract language")
	whitelist := flag.String("whitelist", "", "restrict recognized characters")
	timeout := flag.Duration("timeout", 10*time.Second, "per-cell timeout")
	flag.Parse()
	if *f == "" {
		log.Fatalf("-file required")
	}
	img, err := ocr.LoadImage(*f)
	if err != nil {
		log.Fatalf("%v", err)
	}
	boxes, err := ocr.NewNativeDetector(ocr.DefaultPreprocessOptions(), ocr.DefaultRegionOptions()).Detect(img)
	if err != nil {
		log.Fatalf("detect: %v", err)
	}

	tess := ocr.NewTesseract(*lang)
	tess.Whitelist = *whitelist
	ex := ocr.NewCellExtractor(tess)
	for i, row := range table.ReconstructRows(boxes, table.DefaultRowTolerance) {
		for j, box := range row {
			ctx, cancel := context.WithTimeout(context.Background(), *timeout)
			start := time.Now()
			text, err := ex.Extract(ctx, img, box)
			cancel()
			if err != nil {
				fmt.Printf("[%d,%d] %s error=%v\n", i, j, box, err)
				continue
			}
			fmt.Printf("[%d,%d] %s %q (%s)\n", i, j, box, text, time.Since(start).Round(time.Millisecond))
		}
	}
}
