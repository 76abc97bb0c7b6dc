// Package pipeline wires detection, grid reconstruction and cell recognition
// into a single image-to-table conversion.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"tablify/pkg/export"
	"tablify/pkg/log"
	"tablify/pkg/ocr"
	"tablify/pkg/table"
)

// DefaultCellTimeout bounds the recognition of a single cell.
const DefaultCellTimeout = 10 * time.Second

// CellExtractor is the per-cell recognition step.
type CellExtractor interface {
	Extract(ctx context.Context, img image.Image, box table.BoundingBox) (string, error)
}

// Options configures a Pipeline.
type Options struct {
	Grid table.GridOptions
	// Workers is the number of cells recognized concurrently. Values below 1
	// use runtime.NumCPU().
	Workers int
	// CellTimeout bounds each cell; zero disables the limit.
	CellTimeout time.Duration
}

// DefaultOptions returns chained grouping at 15px, NumCPU workers and a 10s cell timeout.
func DefaultOptions() Options {
	return Options{
		Grid:        table.DefaultGridOptions(),
		Workers:     runtime.NumCPU(),
		CellTimeout: DefaultCellTimeout,
	}
}

// Pipeline converts table images into tables. It holds no per-image state
// and may be used concurrently.
type Pipeline struct {
	detector  ocr.Detector
	extractor CellExtractor
	opts      Options
}

// New returns a pipeline using detector for regions and extractor for text.
func New(detector ocr.Detector, extractor CellExtractor, opts Options) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = runtime.NumCPU()
	}
	return &Pipeline{detector: detector, extractor: extractor, opts: opts}
}

// Options returns the pipeline's options.
func (p *Pipeline) Options() Options {
	return p.opts
}

// WithGrid returns a copy of p that groups rows with g.
func (p *Pipeline) WithGrid(g table.GridOptions) *Pipeline {
	cp := *p
	cp.opts.Grid = g
	return &cp
}

// Detect returns the ordered grid of cell boxes for img.
func (p *Pipeline) Detect(img image.Image) (table.Grid, error) {
	boxes, err := p.detector.Detect(img)
	if err != nil {
		return nil, fmt.Errorf("detect regions: %w", err)
	}
	return table.Reconstruct(boxes, p.opts.Grid), nil
}

// Process detects the cells of img and recognizes the text of each. A cell
// whose recognition fails or times out is left empty. Process only fails
// when detection fails or ctx is done.
func (p *Pipeline) Process(ctx context.Context, img image.Image) (*table.Table, error) {
	start := time.Now()
	grid, err := p.Detect(img)
	if err != nil {
		return nil, err
	}
	log.Debugf("detected %d cells in %d rows", grid.Count(), len(grid))

	t := table.NewTable(grid)
	if err := p.extractAll(ctx, img, t); err != nil {
		return nil, err
	}
	log.Infof("recognized %d cells in %d rows (%s)", t.CellCount(), t.RowCount(), time.Since(start).Round(time.Millisecond))
	return t, nil
}

// ProcessFile loads the image at path and processes it.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) (*table.Table, error) {
	img, err := ocr.LoadImage(path)
	if err != nil {
		return nil, err
	}
	return p.Process(ctx, img)
}

// Convert processes imagePath and writes the table to outputPath in the
// format implied by its extension.
func (p *Pipeline) Convert(ctx context.Context, imagePath, outputPath string) (*table.Table, error) {
	t, err := p.ProcessFile(ctx, imagePath)
	if err != nil {
		return nil, err
	}
	if err := export.WriteFile(outputPath, export.FormatFromPath(outputPath), t); err != nil {
		return nil, err
	}
	return t, nil
}

type cellRef struct{ row, col int }

// extractAll fills in the text of every cell. Each task writes only its own
// cell, so results land in grid order whatever order the tasks finish in.
func (p *Pipeline) extractAll(ctx context.Context, img image.Image, t *table.Table) error {
	var refs []cellRef
	for i, row := range t.Rows {
		for j := range row {
			refs = append(refs, cellRef{i, j})
		}
	}
	if len(refs) == 0 {
		return ctx.Err()
	}

	task := func(ref cellRef) func() {
		return func() {
			cell := &t.Rows[ref.row][ref.col]
			cell.Text = p.extractCell(ctx, img, cell.Box)
		}
	}

	if p.opts.Workers == 1 || len(refs) == 1 {
		for _, ref := range refs {
			if err := ctx.Err(); err != nil {
				return err
			}
			task(ref)()
		}
		return ctx.Err()
	}

	pool, err := ants.NewPool(min(p.opts.Workers, len(refs)))
	if err != nil {
		return fmt.Errorf("create cell worker pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for _, ref := range refs {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		run := task(ref)
		if err := pool.Submit(func() {
			defer wg.Done()
			run()
		}); err != nil {
			wg.Done()
			log.Warnf("submit cell %d/%d: %v; running inline", ref.row, ref.col, err)
			run()
		}
	}
	wg.Wait()
	return ctx.Err()
}

func (p *Pipeline) extractCell(ctx context.Context, img image.Image, box table.BoundingBox) string {
	if p.opts.CellTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.CellTimeout)
		defer cancel()
	}
	text, err := p.extractor.Extract(ctx, img, box)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warnf("cell %s timed out after %s; leaving it empty", box, p.opts.CellTimeout)
		} else {
			log.Warnf("cell %s: %v; leaving it empty", box, err)
		}
		return ""
	}
	log.Debugf("cell %s: %q", box, ocr.Snippet(text, 60))
	return text
}
