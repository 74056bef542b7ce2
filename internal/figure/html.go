package figure

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/landscape.report/internal/fsutil"
	"github.com/banshee-data/landscape.report/internal/landscape"
	"github.com/banshee-data/landscape.report/internal/security"
	"github.com/banshee-data/landscape.report/internal/units"
)

// HTMLOptions controls the interactive page.
type HTMLOptions struct {
	Title string
	// AssetsHost overrides where echarts.min.js is loaded from; empty uses
	// the go-echarts CDN default.
	AssetsHost string
}

// RenderHTML writes an interactive page with one line chart per grid cell,
// in row-major order. NaN values become gaps.
func RenderHTML(w io.Writer, g *Grid, o HTMLOptions) error {
	if o.Title == "" {
		o.Title = "Landscape metrics"
	}

	page := components.NewPage()
	page.PageTitle = o.Title
	page.SetLayout(components.PageFlexLayout)
	if o.AssetsHost != "" {
		page.SetAssetsHost(o.AssetsHost)
	}

	colors := Palette(g.Rows())
	for i, slug := range g.Slugs {
		label := RowLabel(slug)
		for j, metric := range g.Metrics {
			s := g.Series[i][j]
			data := make([]opts.LineData, len(s.Values))
			for k, v := range s.Values {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					data[k] = opts.LineData{Value: "-"}
					continue
				}
				data[k] = opts.LineData{Value: v}
			}

			initOpts := opts.Initialization{
				ChartID: security.SanitizeID(fmt.Sprintf("%d-%d-%s-%s", i, j, slug, metric)),
				Width:   "480px",
				Height:  "360px",
			}
			if o.AssetsHost != "" {
				initOpts.AssetsHost = o.AssetsHost
			}

			unit, err := landscape.MetricUnit(metric)
			if err != nil {
				return err
			}

			line := charts.NewLine()
			line.SetGlobalOptions(
				charts.WithInitializationOpts(initOpts),
				charts.WithTitleOpts(opts.Title{Title: units.Label(metric, unit), Subtitle: label}),
				charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
				charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
				charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
			)
			line.SetXAxis(g.Dates).AddSeries(label, data,
				charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}),
				charts.WithItemStyleOpts(opts.ItemStyle{Color: hexColor(colors[i])}),
			)
			page.AddCharts(line)
		}
	}
	return page.Render(w)
}

// SaveHTML writes the interactive page to path, creating parent directories.
func SaveHTML(fsys fsutil.FileSystem, path string, g *Grid, o HTMLOptions) (err error) {
	if err := mkdirParent(fsys, path); err != nil {
		return err
	}
	out, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()
	if err := RenderHTML(out, g, o); err != nil {
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	return nil
}
