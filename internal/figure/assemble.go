package figure

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/landscape.report/internal/config"
	"github.com/banshee-data/landscape.report/internal/landscape"
	"github.com/banshee-data/landscape.report/internal/monitoring"
	"github.com/banshee-data/landscape.report/internal/security"
)

// Request names the extracts and metrics of one figure.
type Request struct {
	ExtractsDir string
	Metrics     []string
	Basenames   []string
	Slugs       []string
}

// Grid holds one series per (agglomeration, metric) cell, row-major.
type Grid struct {
	Slugs   []string
	Metrics []string
	Dates   []string
	Class   int
	Series  [][]landscape.Series
}

// Rows is the number of agglomerations.
func (g *Grid) Rows() int { return len(g.Slugs) }

// Cols is the number of metrics.
func (g *Grid) Cols() int { return len(g.Metrics) }

// Assembler computes the series of a figure from raster extracts.
type Assembler struct {
	Loader landscape.Loader
	// Cache is optional.
	Cache  landscape.Cache
	Config *config.FigureConfig
}

// settingsDescriber is implemented by loaders whose options change metric
// values; the description is part of every cache key.
type settingsDescriber interface {
	Settings() string
}

// RasterPath returns the extract of slug for basename inside dir.
func RasterPath(dir, slug, basename, ext string) string {
	return filepath.Join(dir, slug+"-"+basename+ext)
}

// Compute runs one spatio-temporal analysis per agglomeration, in slug
// order.
func (a *Assembler) Compute(ctx context.Context, req Request) (*Grid, error) {
	switch {
	case len(req.Metrics) == 0:
		return nil, fmt.Errorf("no metrics requested")
	case len(req.Basenames) == 0:
		return nil, fmt.Errorf("no raster basenames given")
	case len(req.Slugs) == 0:
		return nil, fmt.Errorf("no agglomeration slugs given")
	}
	if err := landscape.ValidateMetrics(req.Metrics); err != nil {
		return nil, err
	}

	cfg := a.Config
	if cfg == nil {
		cfg = config.EmptyFigureConfig()
	}
	dates, err := ExtractDates(req.Basenames, cfg.GetDateOffset(), cfg.GetDateLength())
	if err != nil {
		return nil, err
	}

	settings := ""
	if sd, ok := a.Loader.(settingsDescriber); ok {
		settings = sd.Settings()
	}
	class := cfg.GetClassValue()
	ext := cfg.GetExtension()

	grid := &Grid{
		Slugs:   req.Slugs,
		Metrics: req.Metrics,
		Dates:   dates,
		Class:   class,
		Series:  make([][]landscape.Series, len(req.Slugs)),
	}

	for i, slug := range req.Slugs {
		paths := make([]string, len(req.Basenames))
		for k, basename := range req.Basenames {
			p := RasterPath(req.ExtractsDir, slug, basename, ext)
			if err := security.ValidatePathWithinDirectory(p, req.ExtractsDir); err != nil {
				return nil, fmt.Errorf("agglomeration %q: %w", slug, err)
			}
			paths[k] = p
		}

		monitoring.Logf("computing landscape metrics for %s", slug)
		sta, err := landscape.NewSpatioTemporalAnalysis(ctx, a.Loader, paths, landscape.Options{
			Metrics:  req.Metrics,
			Classes:  []int{class},
			Dates:    dates,
			Workers:  cfg.GetWorkers(),
			Cache:    a.Cache,
			Settings: settings,
		})
		if err != nil {
			return nil, fmt.Errorf("agglomeration %q: %w", slug, err)
		}

		row := make([]landscape.Series, len(req.Metrics))
		for j, metric := range req.Metrics {
			s, err := sta.Series(metric, class)
			if err != nil {
				return nil, fmt.Errorf("agglomeration %q: %w", slug, err)
			}
			row[j] = s
		}
		grid.Series[i] = row
	}
	return grid, nil
}
