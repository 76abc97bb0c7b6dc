package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"tablify/pkg/ocr"
	"tablify/pkg/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, table.DefaultGridOptions(), cfg.gridOptions())
	assert.Equal(t, ocr.DefaultPreprocessOptions(), cfg.preprocessOptions())
	assert.Equal(t, ocr.DefaultRegionOptions(), cfg.regionOptions())
	assert.Equal(t, ":8081", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.OCR.CellTimeout)
}

func TestLoadConfigFile(t *testing.T) {
	p := writeFile(t, t.TempDir(), "tablify.yaml", `
log:
  level: debug
grid:
  row_tolerance: 8
  row_policy: anchored
preprocess:
  threshold: fixed
  fixed_threshold: 100
  kernel_width: 9
  kernel_height: 5
ocr:
  language: deu
  whitelist: "0123456789"
  cell_timeout: 2s
server:
  addr: ":9000"
storage:
  endpoint: "minio:9000"
`)
	cfg, err := loadConfig(p)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, table.GridOptions{RowTolerance: 8, Policy: table.Anchored}, cfg.gridOptions())
	assert.Equal(t, ocr.PreprocessOptions{Threshold: ocr.ThresholdFixed, FixedThreshold: 100, KernelWidth: 9, KernelHeight: 5}, cfg.preprocessOptions())
	assert.Equal(t, 2*time.Second, cfg.OCR.CellTimeout)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	// unspecified keys keep their defaults
	assert.True(t, cfg.Preprocess.ExternalOnly)
	assert.Equal(t, "tablify", cfg.Storage.Bucket)
	assert.True(t, cfg.Storage.Enabled())

	tess := cfg.tesseract()
	assert.Equal(t, "deu", tess.Language)
	assert.Equal(t, "0123456789", tess.Whitelist)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("TABLIFY_ROW_TOLERANCE", "3")
	t.Setenv("TABLIFY_ROW_POLICY", "anchored")
	t.Setenv("TABLIFY_OCR_LANG", "fra")
	t.Setenv("TABLIFY_OCR_WORKERS", "4")
	t.Setenv("DB_DSN", "postgres://localhost/tablify")
	t.Setenv("DB_AUTO_MIGRATE", "no")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("SERVER_ADDR", ":7000")
	t.Setenv("MINIO_BUCKET", "tables")
	t.Setenv("MINIO_USE_SSL", "true")

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Grid.RowTolerance)
	assert.Equal(t, table.Anchored, cfg.gridOptions().Policy)
	assert.Equal(t, "fra", cfg.OCR.Language)
	assert.Equal(t, 4, cfg.OCR.Workers)
	assert.Equal(t, "postgres://localhost/tablify", cfg.Database.DSN)
	assert.False(t, cfg.Database.AutoMigrate)
	assert.Equal(t, "s3cret", cfg.Server.JWTSecret)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "tables", cfg.Storage.Bucket)
	assert.True(t, cfg.Storage.UseSSL)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := loadConfig(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "config: read")

	_, err = loadConfig(writeFile(t, dir, "bad.yaml", "grid: [unterminated"))
	assert.ErrorContains(t, err, "config: parse")

	t.Run("bad env number", func(t *testing.T) {
		t.Setenv("TABLIFY_ROW_TOLERANCE", "wide")
		_, err := loadConfig("")
		assert.ErrorContains(t, err, "TABLIFY_ROW_TOLERANCE")
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"negative tolerance", func(c *Config) { c.Grid.RowTolerance = -1 }, "row_tolerance"},
		{"unknown policy", func(c *Config) { c.Grid.RowPolicy = "zigzag" }, "row_policy"},
		{"unknown threshold", func(c *Config) { c.Preprocess.Threshold = "adaptive" }, "threshold"},
		{"fixed threshold range", func(c *Config) { c.Preprocess.FixedThreshold = 300 }, "fixed_threshold"},
		{"zero kernel", func(c *Config) { c.Preprocess.KernelWidth = 0 }, "kernel"},
		{"unknown detector", func(c *Config) { c.Preprocess.Detector = "magic" }, "detector"},
		{"upload limit", func(c *Config) { c.Server.MaxUploadMB = 0 }, "max_upload_mb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	p := writeFile(t, t.TempDir(), ".env", "# comment\nTABLIFY_TEST_A=from-file\nexport TABLIFY_TEST_B=\"quoted\"\nTABLIFY_TEST_C=from-file\nnot a pair\n")
	t.Setenv("TABLIFY_TEST_C", "from-env")
	// registered so the values set by loadDotEnv are cleared afterwards
	t.Setenv("TABLIFY_TEST_A", "")
	t.Setenv("TABLIFY_TEST_B", "")
	os.Unsetenv("TABLIFY_TEST_A")
	os.Unsetenv("TABLIFY_TEST_B")

	loadDotEnv(p)
	assert.Equal(t, "from-file", os.Getenv("TABLIFY_TEST_A"))
	assert.Equal(t, "quoted", os.Getenv("TABLIFY_TEST_B"))
	assert.Equal(t, "from-env", os.Getenv("TABLIFY_TEST_C"))

	loadDotEnv(filepath.Join(t.TempDir(), "absent"))
}

func TestNewPipelineFromConfig(t *testing.T) {
	cfg := defaultConfig()
	cfg.OCR.Workers = 3
	cfg.Grid.RowPolicy = "anchored"
	p, err := cfg.newPipeline()
	require.NoError(t, err)
	assert.Equal(t, 3, p.Options().Workers)
	assert.Equal(t, table.Anchored, p.Options().Grid.Policy)
}
