package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"
	"gopkg.in/yaml.v3"

	"tablify/pkg/log"
	"tablify/pkg/ocr"
	"tablify/pkg/pipeline"
	"tablify/pkg/storage"
	"tablify/pkg/table"
)

// defaultConfigFile is read when --config is not given and the file exists.
const defaultConfigFile = "tablify.yaml"

// Config is the tablify configuration file layout.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Grid       GridConfig       `yaml:"grid"`
	Preprocess PreprocessConfig `yaml:"preprocess"`
	OCR        OCRConfig        `yaml:"ocr"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Storage    storage.Config   `yaml:"storage"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type GridConfig struct {
	RowTolerance int    `yaml:"row_tolerance"`
	RowPolicy    string `yaml:"row_policy"`
}

type PreprocessConfig struct {
	Threshold      string `yaml:"threshold"`
	FixedThreshold int    `yaml:"fixed_threshold"`
	KernelWidth    int    `yaml:"kernel_width"`
	KernelHeight   int    `yaml:"kernel_height"`
	ExternalOnly   bool   `yaml:"external_only"`
	MinArea        int    `yaml:"min_area"`
	Detector       string `yaml:"detector"`
}

type OCRConfig struct {
	Language    string        `yaml:"language"`
	PageSegMode int           `yaml:"page_seg_mode"`
	Whitelist   string        `yaml:"whitelist"`
	Workers     int           `yaml:"workers"`
	CellTimeout time.Duration `yaml:"cell_timeout"`
}

type ServerConfig struct {
	Addr        string        `yaml:"addr"`
	JWTSecret   string        `yaml:"jwt_secret"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
	MaxUploadMB int64         `yaml:"max_upload_mb"`
}

type DatabaseConfig struct {
	DSN         string `yaml:"dsn"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

func defaultConfig() Config {
	return Config{
		Log:  LogConfig{Level: log.LevelInfo},
		Grid: GridConfig{RowTolerance: table.DefaultRowTolerance, RowPolicy: string(table.Chained)},
		Preprocess: PreprocessConfig{
			Threshold:      string(ocr.ThresholdOtsu),
			FixedThreshold: 127,
			KernelWidth:    18,
			KernelHeight:   18,
			ExternalOnly:   true,
			Detector:       string(ocr.DetectorNative),
		},
		OCR: OCRConfig{
			Language:    "eng",
			PageSegMode: int(gosseract.PSM_AUTO),
			CellTimeout: pipeline.DefaultCellTimeout,
		},
		Server: ServerConfig{
			Addr:        ":8081",
			TokenTTL:    24 * time.Hour,
			MaxUploadMB: 10,
		},
		Database: DatabaseConfig{AutoMigrate: true},
		Storage:  storage.Config{Bucket: "tablify"},
	}
}

// loadConfig reads path over the defaults and applies environment overrides.
// An empty path falls back to tablify.yaml when it exists.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("TABLIFY_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("TABLIFY_ROW_TOLERANCE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: TABLIFY_ROW_TOLERANCE: %w", err)
		}
		cfg.Grid.RowTolerance = n
	}
	if v := os.Getenv("TABLIFY_ROW_POLICY"); v != "" {
		cfg.Grid.RowPolicy = v
	}
	if v := os.Getenv("TABLIFY_OCR_LANG"); v != "" {
		cfg.OCR.Language = v
	}
	if v := os.Getenv("TABLIFY_OCR_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: TABLIFY_OCR_WORKERS: %w", err)
		}
		cfg.OCR.Workers = n
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("DB_AUTO_MIGRATE"); v != "" {
		cfg.Database.AutoMigrate = parseBool(v, cfg.Database.AutoMigrate)
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Server.JWTSecret = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.Storage.Endpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.Storage.AccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.Storage.SecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		cfg.Storage.Bucket = v
	}
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		cfg.Storage.UseSSL = parseBool(v, cfg.Storage.UseSSL)
	}
	return nil
}

func parseBool(v string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

// Validate checks enumerations and ranges.
func (c Config) Validate() error {
	var errs []error
	if c.Grid.RowTolerance < 0 {
		errs = append(errs, fmt.Errorf("config: grid.row_tolerance must be >= 0, got %d", c.Grid.RowTolerance))
	}
	if _, err := table.ParseRowPolicy(c.Grid.RowPolicy); err != nil {
		errs = append(errs, fmt.Errorf("config: grid.row_policy: %w", err))
	}
	if c.Preprocess.FixedThreshold < 0 || c.Preprocess.FixedThreshold > 255 {
		errs = append(errs, fmt.Errorf("config: preprocess.fixed_threshold must be in [0,255], got %d", c.Preprocess.FixedThreshold))
	}
	if err := c.preprocessOptions().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("config: preprocess: %w", err))
	}
	switch ocr.DetectorKind(strings.ToLower(c.Preprocess.Detector)) {
	case "", ocr.DetectorNative, ocr.DetectorOpenCV:
	default:
		errs = append(errs, fmt.Errorf("config: preprocess.detector must be native or opencv, got %q", c.Preprocess.Detector))
	}
	if c.OCR.CellTimeout < 0 {
		errs = append(errs, fmt.Errorf("config: ocr.cell_timeout must be >= 0"))
	}
	if c.Server.MaxUploadMB < 1 {
		errs = append(errs, fmt.Errorf("config: server.max_upload_mb must be >= 1"))
	}
	return errors.Join(errs...)
}

func (c Config) gridOptions() table.GridOptions {
	policy, _ := table.ParseRowPolicy(c.Grid.RowPolicy)
	return table.GridOptions{RowTolerance: c.Grid.RowTolerance, Policy: policy}
}

func (c Config) preprocessOptions() ocr.PreprocessOptions {
	return ocr.PreprocessOptions{
		Threshold:      ocr.ThresholdMethod(strings.ToLower(c.Preprocess.Threshold)),
		FixedThreshold: uint8(c.Preprocess.FixedThreshold),
		KernelWidth:    c.Preprocess.KernelWidth,
		KernelHeight:   c.Preprocess.KernelHeight,
	}
}

func (c Config) regionOptions() ocr.RegionOptions {
	return ocr.RegionOptions{ExternalOnly: c.Preprocess.ExternalOnly, MinArea: c.Preprocess.MinArea}
}

func (c Config) tesseract() *ocr.Tesseract {
	t := ocr.NewTesseract(c.OCR.Language)
	t.PageSegMode = gosseract.PageSegMode(c.OCR.PageSegMode)
	t.Whitelist = c.OCR.Whitelist
	return t
}

// newPipeline builds the detector, Tesseract engine and pipeline described by c.
func (c Config) newPipeline() (*pipeline.Pipeline, error) {
	det, err := ocr.NewDetector(ocr.DetectorKind(c.Preprocess.Detector), c.preprocessOptions(), c.regionOptions())
	if err != nil {
		return nil, err
	}
	return pipeline.New(det, ocr.NewCellExtractor(c.tesseract()), pipeline.Options{
		Grid:        c.gridOptions(),
		Workers:     c.OCR.Workers,
		CellTimeout: c.OCR.CellTimeout,
	}), nil
}

// loadDotEnv loads key=value pairs from a local .env file into the environment
// without overwriting variables that are already set. Lines starting with # are ignored.
func loadDotEnv(path string) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		if eq := strings.IndexByte(line, '='); eq > 0 {
			key := strings.TrimSpace(line[:eq])
			val := strings.Trim(strings.TrimSpace(line[eq+1:]), `"'`)
			if _, exists := os.LookupEnv(key); !exists {
				_ = os.Setenv(key, val)
			}
		}
	}
}
