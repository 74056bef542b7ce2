package landscape

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/landscape.report/internal/monitoring"
)

// Loader reads landscapes from raster paths.
type Loader interface {
	Load(ctx context.Context, path string) (*Landscape, error)
	// Fingerprint identifies the current content of path, for cache keys.
	Fingerprint(path string) (string, error)
}

// CacheKey identifies one computed metric value.
type CacheKey struct {
	Path        string
	Fingerprint string
	Settings    string
	Class       int
	Metric      string
}

// Cache stores metric values between runs.
type Cache interface {
	Lookup(ctx context.Context, key CacheKey) (value float64, ok bool, err error)
	Store(ctx context.Context, key CacheKey, value float64) error
}

// Options configures a SpatioTemporalAnalysis.
type Options struct {
	Metrics []string
	Classes []int
	// Dates labels each path; defaults to "0", "1", ...
	Dates []string
	// Workers bounds how many rasters are processed at once; <= 0 uses
	// GOMAXPROCS.
	Workers int
	// Cache is optional.
	Cache Cache
	// Settings describes loader settings that change metric values (cell
	// size fallback, neighbourhood rule, ...); it is part of every cache key.
	Settings string
}

// Series is the time series of one metric for one class.
type Series struct {
	Metric string
	Class  int
	Dates  []string
	Values []float64
}

type seriesKey struct {
	metric string
	class  int
}

// SpatioTemporalAnalysis holds class-level metrics computed for a sequence
// of rasters of the same area at successive dates.
type SpatioTemporalAnalysis struct {
	Paths   []string
	Dates   []string
	Metrics []string
	Classes []int

	values map[seriesKey][]float64
}

// NewSpatioTemporalAnalysis computes every metric for every class on each
// path. Rasters are processed concurrently but results keep path order.
func NewSpatioTemporalAnalysis(ctx context.Context, loader Loader, paths []string, opts Options) (*SpatioTemporalAnalysis, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("spatio-temporal analysis needs at least one raster")
	}
	if err := ValidateMetrics(opts.Metrics); err != nil {
		return nil, err
	}
	if len(opts.Classes) == 0 {
		return nil, fmt.Errorf("spatio-temporal analysis needs at least one class")
	}
	dates := opts.Dates
	if dates == nil {
		dates = make([]string, len(paths))
		for i := range dates {
			dates[i] = strconv.Itoa(i)
		}
	}
	if len(dates) != len(paths) {
		return nil, fmt.Errorf("got %d dates for %d rasters", len(dates), len(paths))
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	perPath := make([]map[seriesKey]float64, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			values, err := computePath(gctx, loader, path, opts)
			if err != nil {
				return err
			}
			perPath[i] = values
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sta := &SpatioTemporalAnalysis{
		Paths:   append([]string(nil), paths...),
		Dates:   append([]string(nil), dates...),
		Metrics: append([]string(nil), opts.Metrics...),
		Classes: append([]int(nil), opts.Classes...),
		values:  make(map[seriesKey][]float64),
	}
	for _, metric := range opts.Metrics {
		for _, class := range opts.Classes {
			k := seriesKey{metric, class}
			series := make([]float64, len(paths))
			for i := range paths {
				series[i] = perPath[i][k]
			}
			sta.values[k] = series
		}
	}
	return sta, nil
}

// computePath returns every requested value for one raster, loading it only
// when the cache cannot answer all of them.
func computePath(ctx context.Context, loader Loader, path string, opts Options) (map[seriesKey]float64, error) {
	values := make(map[seriesKey]float64, len(opts.Metrics)*len(opts.Classes))

	var fingerprint string
	if opts.Cache != nil {
		var err error
		if fingerprint, err = loader.Fingerprint(path); err != nil {
			return nil, err
		}
	}
	keyFor := func(k seriesKey) CacheKey {
		return CacheKey{Path: path, Fingerprint: fingerprint, Settings: opts.Settings, Class: k.class, Metric: k.metric}
	}

	var missing []seriesKey
	for _, metric := range opts.Metrics {
		for _, class := range opts.Classes {
			k := seriesKey{metric, class}
			if opts.Cache != nil {
				v, ok, err := opts.Cache.Lookup(ctx, keyFor(k))
				if err != nil {
					return nil, fmt.Errorf("cache lookup for %s: %w", path, err)
				}
				if ok {
					values[k] = v
					continue
				}
			}
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		monitoring.Debugf("all metrics for %s served from cache", path)
		return values, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ls, err := loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	for _, k := range missing {
		v, err := ls.ClassMetric(k.metric, k.class)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		values[k] = v
		if opts.Cache != nil {
			if err := opts.Cache.Store(ctx, keyFor(k), v); err != nil {
				return nil, fmt.Errorf("cache store for %s: %w", path, err)
			}
		}
	}
	monitoring.Debugf("computed %d metric values for %s", len(missing), path)
	return values, nil
}

// Series returns the time series of metric for class.
func (sta *SpatioTemporalAnalysis) Series(metric string, class int) (Series, error) {
	values, ok := sta.values[seriesKey{metric, class}]
	if !ok {
		return Series{}, fmt.Errorf("metric %q for class %d was not computed", metric, class)
	}
	return Series{
		Metric: metric,
		Class:  class,
		Dates:  append([]string(nil), sta.Dates...),
		Values: append([]float64(nil), values...),
	}, nil
}
