package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"tablify/pkg/log"
	"tablify/pkg/ocr"

	"github.com/disintegration/imaging"
)

// Writes every intermediate image of cell detection so kernel and threshold
// settings can be tuned by eye.
func main() {
	f := flag.String("file", "", "table image")
	out := flag.String("out", "debug", "output directory")
	threshold := flag.String("threshold", "otsu", "otsu or fixed")
	fixed := flag.Int("fixed", 127, "threshold for -threshold fixed")
	kw := flag.Int("kw", 18, "dilation kernel width")
	kh := flag.Int("kh", 18, "dilation kernel height")
	flag.Parse()
	if *f == "" {
		log.Fatalf("-file required")
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		log.Fatalf("mkdir: %v", err)
	}

	img, err := ocr.LoadImage(*f)
	if err != nil {
		log.Fatalf("%v", err)
	}
	opts := ocr.PreprocessOptions{
		Threshold:      ocr.ThresholdMethod(*threshold),
		FixedThreshold: uint8(*fixed),
		KernelWidth:    *kw,
		KernelHeight:   *kh,
	}
	if err := opts.Validate(); err != nil {
		log.Fatalf("%v", err)
	}

	gray := ocr.Grayscale(img)
	t := opts.FixedThreshold
	if opts.Threshold == ocr.ThresholdOtsu {
		t = ocr.OtsuThreshold(gray)
	}
	bin := ocr.BinarizeInv(gray, t)
	dilated := ocr.Dilate(bin, opts.KernelWidth, opts.KernelHeight)
	boxes := ocr.FindRegions(dilated, ocr.DefaultRegionOptions())

	steps := []struct {
		name string
		save func(string) error
	}{
		{"1_gray.png", func(p string) error { return imaging.Save(gray, p) }},
		{"2_binary.png", func(p string) error { return imaging.Save(bin, p) }},
		{"3_dilated.png", func(p string) error { return imaging.Save(dilated, p) }},
		{"4_boxes.png", func(p string) error { return imaging.Save(ocr.DrawBoxes(img, boxes), p) }},
	}
	for _, s := range steps {
		p := filepath.Join(*out, s.name)
		if err := s.save(p); err != nil {
			log.Fatalf("save %s: %v", p, err)
		}
	}
	fmt.Printf("threshold=%d regions=%d written to %s\n", t, len(boxes), *out)
}
