package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablify/pkg/export"
	"tablify/pkg/table"
)

type fakeConverter struct {
	mu    sync.Mutex
	seen  []string
	fails map[string]bool
}

func (f *fakeConverter) Convert(_ context.Context, imagePath, outputPath string) (*table.Table, error) {
	f.mu.Lock()
	f.seen = append(f.seen, filepath.Base(imagePath))
	f.mu.Unlock()
	if f.fails[filepath.Base(imagePath)] {
		return nil, errors.New("boom")
	}
	t := table.NewTable(table.Grid{{table.Box(0, 0, 1, 1)}})
	return t, export.WriteFile(outputPath, export.FormatFromPath(outputPath), t)
}

func (f *fakeConverter) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.seen...)
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestIsSupportedExt(t *testing.T) {
	for name, want := range map[string]bool{
		"a.png":       true,
		"b.JPG":       true,
		"c.tiff":      true,
		"d.webp":      true,
		"e.csv":       false,
		"f":           false,
		".hidden.png": false,
	} {
		assert.Equal(t, want, IsSupportedExt(name), name)
	}
}

func TestOutputPath(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, &fakeConverter{}, Options{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "scan.csv"), w.OutputPath("scan.png"))

	out := filepath.Join(dir, "out")
	w, err = New(dir, &fakeConverter{}, Options{OutDir: out, Format: export.XLSX})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "scan.xlsx"), w.OutputPath("scan.png"))
	assert.DirExists(t, out)
}

func TestNewRejectsFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "a.png")
	touch(t, f)
	_, err := New(f, &fakeConverter{}, Options{})
	assert.Error(t, err)
}

func TestPendingSkipsUpToDateOutputs(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.png"))
	touch(t, filepath.Join(dir, "a.jpg"))
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, "done.png"))
	touch(t, filepath.Join(dir, "done.csv"))
	// make the output clearly newer than its image
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "done.csv"), future, future))

	w, err := New(dir, &fakeConverter{}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg", "b.png"}, w.Pending())
}

func TestScanConvertsAndReports(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	processed := filepath.Join(dir, "processed")
	touch(t, filepath.Join(dir, "ok.png"))
	touch(t, filepath.Join(dir, "bad.png"))

	conv := &fakeConverter{fails: map[string]bool{"bad.png": true}}
	var mu sync.Mutex
	results := map[string]error{}
	w, err := New(dir, conv, Options{
		OutDir:       out,
		ProcessedDir: processed,
		Workers:      2,
		OnResult: func(r Result) {
			mu.Lock()
			results[filepath.Base(r.Path)] = r.Err
			mu.Unlock()
		},
	})
	require.NoError(t, err)
	require.NoError(t, w.Scan(context.Background()))

	assert.ElementsMatch(t, []string{"ok.png", "bad.png"}, conv.names())
	require.Len(t, results, 2)
	assert.NoError(t, results["ok.png"])
	assert.Error(t, results["bad.png"])

	assert.FileExists(t, filepath.Join(out, "ok.csv"))
	assert.NoFileExists(t, filepath.Join(out, "bad.csv"))
	// only successful sources are moved
	assert.FileExists(t, filepath.Join(processed, "ok.png"))
	assert.NoFileExists(t, filepath.Join(dir, "ok.png"))
	assert.FileExists(t, filepath.Join(dir, "bad.png"))
}

func TestRunPicksUpNewFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "existing.png"))
	conv := &fakeConverter{}
	w, err := New(dir, conv, Options{Settle: 50 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(conv.names()) == 1
	}, 5*time.Second, 20*time.Millisecond)

	touch(t, filepath.Join(dir, "new.png"))
	touch(t, filepath.Join(dir, "ignored.txt"))
	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "new.csv"))
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.ElementsMatch(t, []string{"existing.png", "new.png"}, conv.names())
}
