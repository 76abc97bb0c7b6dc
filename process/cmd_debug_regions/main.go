package main

import (
	"encoding/json"
	"flag"
	"os"

	"tablify/pkg/log"
	"tablify/pkg/ocr"
	"tablify/pkg/table"
)

// Prints the detected cell boxes grouped into rows, without running OCR.
func main() {
	f := flag.String("file", "", "table image")
	tol := flag.Int("tolerance", table.DefaultRowTolerance, "row tolerance in pixels")
	policy := flag.String("policy", string(table.Chained), "chained or anchored")
	detector := flag.String("detector", string(ocr.DetectorNative), "native or opencv")
	minArea := flag.Int("min-area", 0, "drop regions smaller than this")
	flag.Parse()
	if *f == "" {
		log.Fatalf("-file required")
	}
	p, err := table.ParseRowPolicy(*policy)
	if err != nil {
		log.Fatalf("%v", err)
	}

	img, err := ocr.LoadImage(*f)
	if err != nil {
		log.Fatalf("%v", err)
	}
	reg := ocr.DefaultRegionOptions()
	reg.MinArea = *minArea
	det, err := ocr.NewDetector(ocr.DetectorKind(*detector), ocr.DefaultPreprocessOptions(), reg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	boxes, err := det.Detect(img)
	if err != nil {
		log.Fatalf("detect: %v", err)
	}
	grid := table.Reconstruct(boxes, table.GridOptions{RowTolerance: *tol, Policy: p})

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(grid); err != nil {
		log.Fatalf("encode: %v", err)
	}
	log.Infof("%d regions in %d rows", grid.Count(), len(grid))
}
