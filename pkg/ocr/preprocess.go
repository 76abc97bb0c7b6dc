package ocr

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Foreground and background values of a binary image produced by Preprocess.
const (
	Ink   uint8 = 255
	Paper uint8 = 0
)

// ThresholdMethod selects how the global binarization threshold is chosen.
type ThresholdMethod string

const (
	ThresholdOtsu  ThresholdMethod = "otsu"
	ThresholdFixed ThresholdMethod = "fixed"
)

// PreprocessOptions configures Preprocess.
type PreprocessOptions struct {
	Threshold      ThresholdMethod
	FixedThreshold uint8
	// KernelWidth and KernelHeight size the rectangular structuring element
	// used to dilate ink so that the strokes of one cell merge into a blob.
	KernelWidth  int
	KernelHeight int
}

// DefaultPreprocessOptions returns Otsu thresholding with an 18x18 kernel.
func DefaultPreprocessOptions() PreprocessOptions {
	return PreprocessOptions{
		Threshold:      ThresholdOtsu,
		FixedThreshold: 127,
		KernelWidth:    18,
		KernelHeight:   18,
	}
}

// Validate checks the option values.
func (o PreprocessOptions) Validate() error {
	switch o.Threshold {
	case ThresholdOtsu, ThresholdFixed:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownThreshold, o.Threshold)
	}
	if o.KernelWidth < 1 || o.KernelHeight < 1 {
		return fmt.Errorf("kernel size must be at least 1x1, got %dx%d", o.KernelWidth, o.KernelHeight)
	}
	return nil
}

// Preprocess converts img to grayscale, binarizes it with ink as foreground
// and dilates the result. The returned image has bounds starting at (0,0).
func Preprocess(img image.Image, opts PreprocessOptions) (*image.Gray, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	gray := Grayscale(img)
	t := opts.FixedThreshold
	if opts.Threshold == ThresholdOtsu {
		t = OtsuThreshold(gray)
	}
	bin := BinarizeInv(gray, t)
	return Dilate(bin, opts.KernelWidth, opts.KernelHeight), nil
}

// Grayscale returns the luma of img as an 8-bit gray image.
func Grayscale(img image.Image) *image.Gray {
	g := imaging.Grayscale(img)
	b := g.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := g.Pix[y*g.Stride : y*g.Stride+b.Dx()*4]
		dst := out.Pix[y*out.Stride : y*out.Stride+b.Dx()]
		for x := range dst {
			dst[x] = src[x*4]
		}
	}
	return out
}

// OtsuThreshold picks the global threshold that maximizes the between-class
// variance of the gray histogram.
func OtsuThreshold(g *image.Gray) uint8 {
	var hist [256]int
	b := g.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := g.Pix[(y-b.Min.Y)*g.Stride : (y-b.Min.Y)*g.Stride+b.Dx()]
		for _, v := range row {
			hist[v]++
		}
	}
	total := b.Dx() * b.Dy()
	if total == 0 {
		return 0
	}

	var sum float64
	for i, c := range hist {
		sum += float64(i * c)
	}
	var sumB, maxVar float64
	var wB int
	var best uint8
	for t := 0; t < 256; t++ {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(t * hist[t])
		mB := sumB / float64(wB)
		mF := (sum - sumB) / float64(wF)
		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if between > maxVar {
			maxVar = between
			best = uint8(t)
		}
	}
	return best
}

// BinarizeInv marks pixels at or below threshold as Ink and the rest as Paper.
func BinarizeInv(g *image.Gray, threshold uint8) *image.Gray {
	b := g.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := g.Pix[y*g.Stride : y*g.Stride+b.Dx()]
		dst := out.Pix[y*out.Stride : y*out.Stride+b.Dx()]
		for x, v := range src {
			if v <= threshold {
				dst[x] = Ink
			}
		}
	}
	return out
}

// Dilate grows Ink by a kw x kh rectangle anchored at its center (kw/2, kh/2).
// The rectangle is separable, so it runs as a horizontal then a vertical
// sliding window.
func Dilate(bin *image.Gray, kw, kh int) *image.Gray {
	if kw <= 1 && kh <= 1 {
		return bin
	}
	w, h := bin.Bounds().Dx(), bin.Bounds().Dy()
	horiz := image.NewGray(image.Rect(0, 0, w, h))
	line := make([]uint8, w)
	for y := 0; y < h; y++ {
		copy(line, bin.Pix[y*bin.Stride:y*bin.Stride+w])
		dilateLine(line, horiz.Pix[y*horiz.Stride:y*horiz.Stride+w], kw)
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	col := make([]uint8, h)
	res := make([]uint8, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = horiz.Pix[y*horiz.Stride+x]
		}
		dilateLine(col, res, kh)
		for y := 0; y < h; y++ {
			out.Pix[y*out.Stride+x] = res[y]
		}
	}
	return out
}

// dilateLine sets dst[i] to Ink when any of src[i-k/2 .. i-k/2+k-1] is Ink.
func dilateLine(src, dst []uint8, k int) {
	n := len(src)
	if k < 1 {
		k = 1
	}
	anchor := k / 2
	prefix := make([]int, n+1)
	for i, v := range src {
		prefix[i+1] = prefix[i]
		if v == Ink {
			prefix[i+1]++
		}
	}
	for i := 0; i < n; i++ {
		lo := i - anchor
		hi := lo + k
		if lo < 0 {
			lo = 0
		}
		if hi > n {
			hi = n
		}
		if lo < hi && prefix[hi]-prefix[lo] > 0 {
			dst[i] = Ink
		} else {
			dst[i] = Paper
		}
	}
}
