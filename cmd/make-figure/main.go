// Command make-figure draws a grid of landscape-metric time series, one row
// per urban agglomeration and one column per metric, from classified raster
// extracts.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/landscape.report/internal/cli"
	"github.com/banshee-data/landscape.report/internal/config"
	"github.com/banshee-data/landscape.report/internal/db"
	"github.com/banshee-data/landscape.report/internal/figure"
	"github.com/banshee-data/landscape.report/internal/fsutil"
	"github.com/banshee-data/landscape.report/internal/landscape"
	"github.com/banshee-data/landscape.report/internal/monitoring"
	"github.com/banshee-data/landscape.report/internal/raster"
	"github.com/banshee-data/landscape.report/internal/timeutil"
)

// clock times the metric computation.
var clock timeutil.Clock = timeutil.RealClock{}

func main() {
	monitoring.Configure("make-figure", monitoring.LevelInfo)

	if path, ok := findDotEnv(); ok {
		if err := godotenv.Load(path); err != nil {
			log.Printf("warning: could not load %s: %v", path, err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout)
	var exitErr *cli.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		stop()
		fmt.Fprintf(os.Stderr, "Error: %s\nTry 'make-figure -h' for help.\n", exitErr.Message)
		os.Exit(exitErr.Code)
	default:
		stop()
		log.Fatalf("make-figure failed: %v", err)
	}
}

// findDotEnv walks up from the working directory to the first .env file.
func findDotEnv() (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for {
		path := filepath.Join(dir, ".env")
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, exit, err := cli.Parse(args, stdout)
	if err != nil {
		return err
	}
	if exit {
		return nil
	}
	monitoring.SetLevel(opts.LogLevel)

	if _, err := figure.FormatFromPath(opts.OutputPath); err != nil {
		return &cli.ExitError{Code: 2, Message: fmt.Sprintf("invalid value for OUT_FIGURE_FILEPATH: %v", err)}
	}

	figCfg := config.DefaultFigureConfig()
	if opts.ConfigPath != "" {
		if figCfg, err = config.LoadFigureConfig(opts.ConfigPath); err != nil {
			return err
		}
		monitoring.Debugf("loaded figure config from %s", opts.ConfigPath)
	}
	if opts.Workers > 0 {
		figCfg.Workers = &opts.Workers
	}

	reader, err := raster.NewReaderFromConfig(figCfg)
	if err != nil {
		return err
	}

	var cache landscape.Cache
	var database *db.DB
	if opts.CacheDB != "" {
		if database, err = db.NewDB(opts.CacheDB); err != nil {
			return fmt.Errorf("open cache %s: %w", opts.CacheDB, err)
		}
		defer database.Close()
		cache = database
		monitoring.Debugf("using metric cache %s", opts.CacheDB)
	}

	start := clock.Now()
	assembler := &figure.Assembler{Loader: reader, Cache: cache, Config: figCfg}
	grid, err := assembler.Compute(ctx, figure.Request{
		ExtractsDir: opts.ExtractsDir,
		Metrics:     opts.Metrics,
		Basenames:   opts.Basenames,
		Slugs:       opts.Slugs,
	})
	if err != nil {
		return err
	}
	monitoring.Debugf("computed %dx%d grid in %s", grid.Rows(), grid.Cols(), clock.Since(start))

	fig, err := figure.New(grid,
		vg.Length(figCfg.GetCellWidthInches())*vg.Inch,
		vg.Length(figCfg.GetCellHeightInches())*vg.Inch)
	if err != nil {
		return err
	}

	fsys := fsutil.OSFileSystem{}
	monitoring.Logf("saving figure to %s", opts.OutputPath)
	if err := fig.Save(fsys, opts.OutputPath); err != nil {
		return err
	}

	if opts.HTMLPath != "" {
		monitoring.Logf("saving interactive figure to %s", opts.HTMLPath)
		if err := figure.SaveHTML(fsys, opts.HTMLPath, grid, figure.HTMLOptions{}); err != nil {
			return err
		}
	}

	if database != nil {
		if err := pruneCache(ctx, database, reader, opts, figCfg.GetExtension()); err != nil {
			return err
		}
		id, err := database.RecordFigureRun(ctx, db.FigureRun{
			OutputPath:     opts.OutputPath,
			Agglomerations: grid.Slugs,
			Metrics:        grid.Metrics,
			Dates:          grid.Dates,
		})
		if err != nil {
			return err
		}
		monitoring.Debugf("recorded figure run %s", id)
	}
	return nil
}

// pruneCache drops cached values computed from earlier versions of the
// rasters used by this figure.
func pruneCache(ctx context.Context, database *db.DB, reader *raster.Reader, opts *cli.Config, ext string) error {
	for _, slug := range opts.Slugs {
		for _, basename := range opts.Basenames {
			path := figure.RasterPath(opts.ExtractsDir, slug, basename, ext)
			fingerprint, err := reader.Fingerprint(path)
			if err != nil {
				return err
			}
			n, err := database.PurgeStale(ctx, path, fingerprint)
			if err != nil {
				return fmt.Errorf("prune cache for %s: %w", path, err)
			}
			if n > 0 {
				monitoring.Debugf("dropped %d stale cached values for %s", n, path)
			}
		}
	}
	return nil
}
