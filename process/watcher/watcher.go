// Package watcher converts table images dropped into a directory.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/panjf2000/ants/v2"

	"tablify/pkg/export"
	"tablify/pkg/log"
	"tablify/pkg/table"
)

// Converter turns one image file into an output file.
type Converter interface {
	Convert(ctx context.Context, imagePath, outputPath string) (*table.Table, error)
}

// Result describes one processed file.
type Result struct {
	Path     string
	Output   string
	Table    *table.Table
	Err      error
	Duration time.Duration
}

// Options configures a Watcher.
type Options struct {
	// OutDir receives the outputs; empty means next to the source image.
	OutDir string
	Format export.Format
	// Workers bounds concurrent conversions (default 2).
	Workers int
	// Settle is how long a file must see no events before it is converted.
	Settle time.Duration
	// ProcessedDir, when set, receives source images after a successful conversion.
	ProcessedDir string
	// OnResult is called after every conversion, from a worker goroutine.
	OnResult func(Result)
}

const (
	defaultSettle = 300 * time.Millisecond
	pollInterval  = 250 * time.Millisecond
)

// Watcher converts existing and newly created images in one directory.
type Watcher struct {
	dir  string
	conv Converter
	opts Options
}

// New validates dir and returns a watcher over it.
func New(dir string, conv Converter, opts Options) (*Watcher, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	if opts.Workers < 1 {
		opts.Workers = 2
	}
	if opts.Settle <= 0 {
		opts.Settle = defaultSettle
	}
	if opts.Format == "" {
		opts.Format = export.CSV
	}
	for _, d := range []string{opts.OutDir, opts.ProcessedDir} {
		if d == "" {
			continue
		}
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, err
		}
	}
	return &Watcher{dir: dir, conv: conv, opts: opts}, nil
}

// OutputPath returns where the output for image name is written.
func (w *Watcher) OutputPath(name string) string {
	base := filepath.Base(name)
	base = base[:len(base)-len(filepath.Ext(base))] + "." + string(w.opts.Format)
	dir := w.opts.OutDir
	if dir == "" {
		dir = w.dir
	}
	return filepath.Join(dir, base)
}

// Pending lists supported images in the directory whose output is missing or
// older than the image, sorted by name.
func (w *Watcher) Pending() []string {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !IsSupportedExt(e.Name()) {
			continue
		}
		src, err := e.Info()
		if err != nil {
			continue
		}
		if dst, err := os.Stat(w.OutputPath(e.Name())); err == nil && !dst.ModTime().Before(src.ModTime()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

// Scan converts every pending image once and returns when all are done.
func (w *Watcher) Scan(ctx context.Context) error {
	pool, err := ants.NewPool(w.opts.Workers)
	if err != nil {
		return err
	}
	defer pool.Release()
	var wg sync.WaitGroup
	for _, name := range w.Pending() {
		if ctx.Err() != nil {
			break
		}
		w.submit(ctx, pool, &wg, name)
	}
	wg.Wait()
	return ctx.Err()
}

// Run scans the directory and then converts new images until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return err
	}

	pool, err := ants.NewPool(w.opts.Workers)
	if err != nil {
		return err
	}
	defer pool.Release()
	var wg sync.WaitGroup
	defer wg.Wait()

	pending := w.Pending()
	log.Infof("watching %s (%d pending, workers=%d)", w.dir, len(pending), w.opts.Workers)
	for _, name := range pending {
		w.submit(ctx, pool, &wg, name)
	}

	// debounce map of files still being written
	settling := map[string]time.Time{}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			name := filepath.Base(ev.Name)
			if !IsSupportedExt(name) {
				continue
			}
			settling[name] = time.Now()
		case <-ticker.C:
			now := time.Now()
			for name, t := range settling {
				if now.Sub(t) > w.opts.Settle {
					delete(settling, name)
					w.submit(ctx, pool, &wg, name)
				}
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warnf("watch error: %v", err)
		}
	}
}

func (w *Watcher) submit(ctx context.Context, pool *ants.Pool, wg *sync.WaitGroup, name string) {
	wg.Add(1)
	task := func() {
		defer wg.Done()
		w.process(ctx, name)
	}
	if err := pool.Submit(task); err != nil {
		log.Warnf("submit %s: %v; converting inline", name, err)
		task()
	}
}

func (w *Watcher) process(ctx context.Context, name string) {
	src := filepath.Join(w.dir, name)
	if _, err := os.Stat(src); err != nil {
		// removed or moved before it settled
		return
	}
	out := w.OutputPath(name)
	start := time.Now()
	t, err := w.conv.Convert(ctx, src, out)
	res := Result{Path: src, Output: out, Table: t, Err: err, Duration: time.Since(start)}
	if err != nil {
		log.Errorf("convert %s: %v", name, err)
	} else {
		log.Infof("converted %s -> %s (%d rows, %d cells, %s)", name, out, t.RowCount(), t.CellCount(), res.Duration.Round(time.Millisecond))
		if w.opts.ProcessedDir != "" {
			if err := moveFile(src, filepath.Join(w.opts.ProcessedDir, name)); err != nil {
				log.Warnf("move %s to processed: %v", name, err)
			}
		}
	}
	if w.opts.OnResult != nil {
		w.opts.OnResult(res)
	}
}

// IsSupportedExt reports whether name has an image extension the loader decodes.
func IsSupportedExt(name string) bool {
	// skip editor and download temp files
	if strings.HasPrefix(filepath.Base(name), ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return true
	}
	return false
}

// moveFile attempts an atomic rename and falls back to copy+remove across devices.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return errors.Join(err, os.Remove(dst))
	}
	return os.Remove(src)
}
