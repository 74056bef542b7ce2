package landscape

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/landscape.report/internal/units"
)

// ErrUnknownMetric is returned for metric names with no implementation.
var ErrUnknownMetric = errors.New("unknown landscape metric")

// classMetric computes one class-level value from a class's statistics.
type classMetric func(l *Landscape, st *classStats) float64

// patchAttribute computes one value per patch for distribution metrics.
type patchAttribute func(p Patch) float64

var classMetrics = map[string]classMetric{
	"total_area": func(l *Landscape, st *classStats) float64 {
		return units.Hectares(st.area)
	},
	"proportion_of_landscape": func(l *Landscape, st *classStats) float64 {
		return ratio(100*st.area, l.Area())
	},
	"number_of_patches": func(l *Landscape, st *classStats) float64 {
		return float64(len(st.patches))
	},
	"patch_density": func(l *Landscape, st *classStats) float64 {
		// patches per 100 ha
		return 100 * units.PerHectare(ratio(float64(len(st.patches)), l.Area()))
	},
	"largest_patch_index": func(l *Landscape, st *classStats) float64 {
		largest := 0.0
		for _, p := range st.patches {
			largest = math.Max(largest, p.Area)
		}
		return ratio(100*largest, l.Area())
	},
	"total_edge": func(l *Landscape, st *classStats) float64 {
		return st.edge(l.CountBoundary)
	},
	"edge_density": func(l *Landscape, st *classStats) float64 {
		// metres per hectare
		return units.PerHectare(ratio(st.edge(l.CountBoundary), l.Area()))
	},
	"landscape_shape_index": func(l *Landscape, st *classStats) float64 {
		return ratio(0.25*st.edge(true), math.Sqrt(st.area))
	},
	"effective_mesh_size": func(l *Landscape, st *classStats) float64 {
		sum := 0.0
		for _, p := range st.patches {
			sum += p.Area * p.Area
		}
		return units.Hectares(ratio(sum, l.Area()))
	},
}

var patchAttributes = map[string]patchAttribute{
	"area": func(p Patch) float64 {
		return units.Hectares(p.Area)
	},
	"perimeter": func(p Patch) float64 {
		return p.Perimeter
	},
	"perimeter_area_ratio": func(p Patch) float64 {
		return p.Perimeter / p.Area
	},
	"shape_index": func(p Patch) float64 {
		return 0.25 * p.Perimeter / math.Sqrt(p.Area)
	},
	"fractal_dimension": func(p Patch) float64 {
		lnArea := math.Log(p.Area)
		if lnArea <= 0 {
			return 1
		}
		return 2 * math.Log(0.25*p.Perimeter) / lnArea
	},
}

// distribution summarises patch attribute values; weights are patch areas.
type distribution func(values, weights []float64) float64

var distributions = map[string]distribution{
	"mn": func(values, _ []float64) float64 {
		return stat.Mean(values, nil)
	},
	"am": func(values, weights []float64) float64 {
		return stat.Mean(values, weights)
	},
	"md": func(values, _ []float64) float64 {
		return median(values)
	},
	"ra": func(values, _ []float64) float64 {
		return floats.Max(values) - floats.Min(values)
	},
	"sd": func(values, _ []float64) float64 {
		_, variance := stat.PopMeanVariance(values, nil)
		return math.Sqrt(variance)
	},
	"cv": func(values, _ []float64) float64 {
		mean, variance := stat.PopMeanVariance(values, nil)
		return ratio(100*math.Sqrt(variance), mean)
	},
}

var classMetricUnits = map[string]string{
	"total_area":              units.Hectare,
	"proportion_of_landscape": units.Percent,
	"number_of_patches":       units.None,
	"patch_density":           units.PatchesPer100Ha,
	"largest_patch_index":     units.Percent,
	"total_edge":              units.Metre,
	"edge_density":            units.MetresPerHectare,
	"landscape_shape_index":   units.None,
	"effective_mesh_size":     units.Hectare,
}

var patchAttributeUnits = map[string]string{
	"area":                 units.Hectare,
	"perimeter":            units.Metre,
	"perimeter_area_ratio": units.MetresPerSqMetre,
	"shape_index":          units.None,
	"fractal_dimension":    units.None,
}

func init() {
	for attrName, attr := range patchAttributes {
		for suffix, dist := range distributions {
			name := attrName + "_" + suffix
			classMetrics[name] = distributionMetric(attr, dist)
			classMetricUnits[name] = patchAttributeUnits[attrName]
			if suffix == "cv" {
				classMetricUnits[name] = units.Percent
			}
		}
	}
}

func distributionMetric(attr patchAttribute, dist distribution) classMetric {
	return func(l *Landscape, st *classStats) float64 {
		if len(st.patches) == 0 {
			return math.NaN()
		}
		values := make([]float64, len(st.patches))
		weights := make([]float64, len(st.patches))
		for i, p := range st.patches {
			values[i] = attr(p)
			weights[i] = p.Area
		}
		return dist(values, weights)
	}
}

func (st *classStats) edge(countBoundary bool) float64 {
	if countBoundary {
		return st.innerEdge + st.boundaryEdge
	}
	return st.innerEdge
}

// ratio divides, yielding NaN rather than ±Inf when den is zero.
func ratio(num, den float64) float64 {
	if den == 0 {
		return math.NaN()
	}
	return num / den
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// MetricUnit returns the unit a metric is reported in, or ErrUnknownMetric.
func MetricUnit(name string) (string, error) {
	u, ok := classMetricUnits[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownMetric, name)
	}
	return u, nil
}

// MetricNames lists every supported class-level metric name in sorted order.
func MetricNames() []string {
	names := make([]string, 0, len(classMetrics))
	for name := range classMetrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateMetrics checks that every name is a supported metric.
func ValidateMetrics(names []string) error {
	var unknown []string
	for _, name := range names {
		if _, ok := classMetrics[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("%w: %s (available: %s)", ErrUnknownMetric,
			strings.Join(unknown, ", "), strings.Join(MetricNames(), ", "))
	}
	return nil
}

// ClassMetric computes the named class-level metric for class.
func (l *Landscape) ClassMetric(name string, class int) (float64, error) {
	metric, ok := classMetrics[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownMetric, name)
	}
	st, err := l.stats(class)
	if err != nil {
		return 0, err
	}
	return metric(l, st), nil
}
