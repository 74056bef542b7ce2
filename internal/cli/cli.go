package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/banshee-data/landscape.report/internal/fsutil"
	"github.com/banshee-data/landscape.report/internal/monitoring"
	"github.com/banshee-data/landscape.report/internal/version"
)

// Environment variables providing defaults for --config and --cache-db.
const (
	EnvConfig  = "MAKE_FIGURE_CONFIG"
	EnvCacheDB = "MAKE_FIGURE_CACHE_DB"
)

const programName = "make-figure"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, v ...interface{}) *ExitError {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, v...)}
}

// Config is the parsed command line.
type Config struct {
	ExtractsDir string
	OutputPath  string
	Metrics     []string
	Basenames   []string
	Slugs       []string

	ConfigPath string
	CacheDB    string
	HTMLPath   string
	// Workers overrides the config file when > 0.
	Workers  int
	LogLevel monitoring.Level
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*Config, bool, error) {
	return parse(args, output, fsutil.OSFileSystem{})
}

func parse(args []string, output io.Writer, fsys fsutil.FileSystem) (*Config, bool, error) {
	flagSet := flag.NewFlagSet(programName, flag.ContinueOnError)
	flagSet.SetOutput(output)

	metrics := NewEatAll("metrics", "Landscape metric names, one column each.")
	basenames := NewEatAll("clc-basenames", "Raster basenames in date order; the date code sits at offset 8 (g100_clc12_V18_5 -> 12).")
	slugs := NewEatAll("agglomeration-slugs", "Agglomeration slugs, one row each.")
	eatAll := []*EatAll{metrics, basenames, slugs}

	flagSet.Usage = func() {
		fmt.Fprint(output, `
make-figure - compare landscape metric time series across urban agglomerations.

Usage:
  make-figure [options] URBAN_EXTRACTS_DIR OUT_FIGURE_FILEPATH \
      --metrics M [M ...] --clc-basenames B [B ...] --agglomeration-slugs S [S ...]

Arguments:
  URBAN_EXTRACTS_DIR
    Directory holding the extracts, named {slug}-{basename}.tif.
  OUT_FIGURE_FILEPATH
    Figure to write; the extension selects the format (png, svg, pdf, ...).

Options:
`)
		flagSet.PrintDefaults()
	}

	for _, e := range eatAll {
		flagSet.Var(e, e.Name, e.Usage)
	}
	configFlag := flagSet.String("config", os.Getenv(EnvConfig), "Path to a JSON figure config (env "+EnvConfig+").")
	cacheFlag := flagSet.String("cache-db", os.Getenv(EnvCacheDB), "Path to a sqlite metric cache; empty disables caching (env "+EnvCacheDB+").")
	htmlFlag := flagSet.String("html", "", "Also write an interactive HTML version of the figure to this path.")
	workersFlag := flagSet.Int("workers", 0, "Rasters processed concurrently per agglomeration. 0 uses the config value.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	versionFlag := flagSet.Bool("version", false, "Print the version and exit.")

	if len(args) == 0 {
		flagSet.Usage()
		return nil, true, nil
	}

	rest, err := ExtractEatAll(args, eatAll...)
	if err != nil {
		return nil, false, usageError("%v", err)
	}

	// Positional arguments may sit between options: parse, take one
	// positional, continue with what follows it.
	var positional []string
	for {
		if err := flagSet.Parse(rest); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return nil, true, nil
			}
			return nil, false, usageError("%v", err)
		}
		if flagSet.NArg() == 0 {
			break
		}
		if k := len(rest) - flagSet.NArg() - 1; k >= 0 && rest[k] == "--" {
			positional = append(positional, flagSet.Args()...)
			break
		}
		positional = append(positional, flagSet.Arg(0))
		rest = flagSet.Args()[1:]
	}

	if *versionFlag {
		fmt.Fprintln(output, version.String(programName))
		return nil, true, nil
	}

	switch {
	case len(positional) < 2:
		names := []string{"URBAN_EXTRACTS_DIR", "OUT_FIGURE_FILEPATH"}
		return nil, false, usageError("missing argument %s", names[len(positional)])
	case len(positional) > 2:
		return nil, false, usageError("unexpected extra arguments: %s", strings.Join(positional[2:], " "))
	}
	for _, e := range eatAll {
		if e.Required && len(e.Values) == 0 {
			return nil, false, usageError("missing option --%s", e.Name)
		}
	}

	dir := positional[0]
	if !fsutil.Exists(fsys, dir) {
		return nil, false, usageError("invalid value for URBAN_EXTRACTS_DIR: path %q does not exist", dir)
	}
	if !fsutil.IsDir(fsys, dir) {
		return nil, false, usageError("invalid value for URBAN_EXTRACTS_DIR: %q is not a directory", dir)
	}

	level, err := monitoring.ParseLevel(*logLevelFlag)
	if err != nil {
		return nil, false, usageError("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}
	if *workersFlag < 0 {
		return nil, false, usageError("invalid workers: must be >= 0")
	}

	return &Config{
		ExtractsDir: dir,
		OutputPath:  positional[1],
		Metrics:     metrics.Values,
		Basenames:   basenames.Values,
		Slugs:       slugs.Values,
		ConfigPath:  *configFlag,
		CacheDB:     *cacheFlag,
		HTMLPath:    *htmlFlag,
		Workers:     *workersFlag,
		LogLevel:    level,
	}, false, nil
}
