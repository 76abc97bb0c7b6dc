// Command tablify recovers the cell grid of a table image and writes it as CSV.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tablify/models"
	"tablify/pkg/export"
	"tablify/pkg/log"
	"tablify/pkg/ocr"
	"tablify/pkg/pipeline"
	"tablify/pkg/storage"
	"tablify/process/watcher"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const (
	usageLine     = "Usage: tablify <image_path> [output_path]"
	defaultOutput = "output.csv"
	devJWTSecret  = "dev-insecure-secret-change"
)

// Exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitImageLoad   = 2
	exitWriteOutput = 3
)

// errUsage is returned after the usage line has been printed.
var errUsage = errors.New("usage")

// buildPipeline is replaced in tests to avoid a Tesseract dependency.
var buildPipeline = func(cfg Config) (*pipeline.Pipeline, error) {
	return cfg.newPipeline()
}

func main() {
	loadDotEnv(".env")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the command line and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, errUsage) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	var loadErr *ocr.ImageLoadError
	var writeErr *export.WriteError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &loadErr):
		return exitImageLoad
	case errors.As(err, &writeErr):
		return exitWriteOutput
	default:
		return exitFailure
	}
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	var (
		configPath string
		cfg        Config
	)
	root := &cobra.Command{
		Use:           "tablify <image_path> [output_path]",
		Short:         "Recover a table from an image and write it as CSV",
		Long:          "tablify detects the cells of a table image, groups them into rows,\nreads each cell with Tesseract and writes the grid as CSV, XLSX or JSON\n(chosen by the output extension).",
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// usage wins over a broken config
			if !cmd.HasParent() && len(args) == 0 {
				fmt.Fprintln(stdout, usageLine)
				return errUsage
			}
			var err error
			cfg, err = loadConfig(configPath)
			if err != nil {
				return err
			}
			log.SetLevel(cfg.Log.Level)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := defaultOutput
			if len(args) > 1 {
				output = args[1]
			}
			return convert(cmd.Context(), cfg, args[0], output, stdout)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default "+defaultConfigFile+" when present)")

	root.AddCommand(
		newServeCmd(&cfg),
		newWatchCmd(&cfg),
		newMigrateCmd(&cfg, stdout),
		newTokenCmd(&cfg, stdout),
	)
	return root
}

func convert(ctx context.Context, cfg Config, imagePath, outputPath string, stdout io.Writer) error {
	fmt.Fprintf(stdout, "Processing image: %s\n", imagePath)
	fmt.Fprintf(stdout, "Output CSV will be saved to: %s\n", outputPath)
	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	start := time.Now()
	t, err := p.Convert(ctx, imagePath, outputPath)
	if err != nil {
		return err
	}
	log.Infof("wrote %d rows (%d cells) to %s in %s", t.RowCount(), t.CellCount(), outputPath, time.Since(start).Round(time.Millisecond))
	return nil
}

func newServeCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the table extraction HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := buildPipeline(*cfg)
			if err != nil {
				return err
			}
			var db *gorm.DB
			if cfg.Database.DSN != "" {
				if db, err = openDB(cfg.Database); err != nil {
					return err
				}
			} else {
				log.Warnf("no database configured; /login and /extractions are disabled")
			}
			var archive objectStore
			if cfg.Storage.Enabled() {
				a, err := storage.New(ctx, cfg.Storage)
				if err != nil {
					return err
				}
				archive = a
			}
			if cfg.Server.JWTSecret == "" {
				log.Warnf("JWT_SECRET not set, using development secret")
				cfg.Server.JWTSecret = devJWTSecret
			}

			r := gin.Default()
			newServer(*cfg, p, db, archive).setupRoutes(r)
			srv := &http.Server{Addr: cfg.Server.Addr, Handler: r}

			errCh := make(chan error, 1)
			go func() {
				log.Infof("listening on %s (log level %s)", cfg.Server.Addr, log.Level())
				errCh <- srv.ListenAndServe()
			}()
			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func newWatchCmd(cfg *Config) *cobra.Command {
	var (
		outDir       string
		processedDir string
		format       string
		once         bool
	)
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Convert images dropped into a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			p, err := buildPipeline(*cfg)
			if err != nil {
				return err
			}
			opts := watcher.Options{
				OutDir:       outDir,
				Format:       f,
				Workers:      2,
				ProcessedDir: processedDir,
			}
			if cfg.Database.DSN != "" {
				db, err := openDB(cfg.Database)
				if err != nil {
					return err
				}
				opts.OnResult = func(r watcher.Result) { recordWatchResult(db, r) }
			}
			w, err := watcher.New(args[0], p, opts)
			if err != nil {
				return err
			}
			if once {
				return w.Scan(cmd.Context())
			}
			return w.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "output directory (default: next to each image)")
	cmd.Flags().StringVar(&processedDir, "processed", "", "move converted images into this directory")
	cmd.Flags().StringVar(&format, "format", "csv", "output format: csv, xlsx or json")
	cmd.Flags().BoolVar(&once, "once", false, "convert pending images and exit")
	return cmd
}

func newMigrateCmd(cfg *Config, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations and seeding, then exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbCfg := cfg.Database
			dbCfg.AutoMigrate = true
			if _, err := openDB(dbCfg); err != nil {
				return err
			}
			fmt.Fprintln(stdout, "migration and seeding completed")
			return nil
		},
	}
}

func newTokenCmd(cfg *Config, stdout io.Writer) *cobra.Command {
	var (
		role string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <client>",
		Short: "Mint an API token for a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Server.JWTSecret == "" {
				return errors.New("JWT_SECRET (server.jwt_secret) is required to mint tokens")
			}
			if ttl <= 0 {
				ttl = cfg.Server.TokenTTL
			}
			token, err := issueToken([]byte(cfg.Server.JWTSecret), args[0], role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, token)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", models.RoleClient, "role claim (client or administrator)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default server.token_ttl)")
	return cmd
}
