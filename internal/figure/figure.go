package figure

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/landscape.report/internal/fsutil"
)

// ErrUnsupportedFormat is returned for output extensions gonum/plot cannot
// write.
var ErrUnsupportedFormat = errors.New("unsupported figure format")

// Formats lists the output extensions accepted by Save, without the dot.
var Formats = []string{"eps", "jpeg", "jpg", "pdf", "png", "svg", "tif", "tiff"}

// Default cell size, matching the common 6.4in x 4.8in single-plot size.
const (
	DefaultCellWidth  = 6.4 * vg.Inch
	DefaultCellHeight = 4.8 * vg.Inch
)

// Figure is a grid of plots, one row per agglomeration and one column per
// metric, sharing a date x axis.
type Figure struct {
	Plots      [][]*plot.Plot
	CellWidth  vg.Length
	CellHeight vg.Length
}

// New lays out g. Zero cell sizes select the defaults.
func New(g *Grid, cellWidth, cellHeight vg.Length) (*Figure, error) {
	if g.Rows() == 0 || g.Cols() == 0 {
		return nil, fmt.Errorf("figure needs at least one row and one column, got %dx%d", g.Rows(), g.Cols())
	}
	if cellWidth <= 0 {
		cellWidth = DefaultCellWidth
	}
	if cellHeight <= 0 {
		cellHeight = DefaultCellHeight
	}

	ticks := make([]plot.Tick, len(g.Dates))
	blank := make([]plot.Tick, len(g.Dates))
	for k, d := range g.Dates {
		ticks[k] = plot.Tick{Value: float64(k), Label: d}
		blank[k] = plot.Tick{Value: float64(k)}
	}
	xmin, xmax := xRange(len(g.Dates))

	colors := Palette(g.Rows())
	plots := make([][]*plot.Plot, g.Rows())
	for i, slug := range g.Slugs {
		plots[i] = make([]*plot.Plot, g.Cols())
		for j, metric := range g.Metrics {
			p := plot.New()
			if err := addSeries(p, g.Series[i][j].Values, colors[i]); err != nil {
				return nil, fmt.Errorf("%s/%s: %w", slug, metric, err)
			}

			p.X.Min, p.X.Max = xmin, xmax
			if i == g.Rows()-1 {
				p.X.Tick.Marker = plot.ConstantTicks(ticks)
			} else {
				p.X.Tick.Marker = plot.ConstantTicks(blank)
			}
			if i == 0 {
				p.Title.Text = metric
			}
			if j == 0 {
				p.Y.Label.Text = RowLabel(slug)
			}
			plots[i][j] = p
		}
	}

	return &Figure{Plots: plots, CellWidth: cellWidth, CellHeight: cellHeight}, nil
}

// xRange pads the date indices so the first and last markers are not
// clipped.
func xRange(n int) (float64, float64) {
	pad := 0.05 * float64(n-1)
	if pad <= 0 {
		pad = 0.5
	}
	return -pad, float64(n-1) + pad
}

// addSeries draws values as a line with markers. NaN values are left as
// gaps; a series with no finite value leaves the plot empty.
func addSeries(p *plot.Plot, values []float64, c color.Color) error {
	pts := make(plotter.XYs, 0, len(values))
	for k, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(k), Y: v})
	}
	if len(pts) == 0 {
		p.Y.Min, p.Y.Max = 0, 1
		return nil
	}

	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return err
	}
	line.Color = c
	line.Width = vg.Points(1.5)
	points.GlyphStyle.Color = c
	points.GlyphStyle.Shape = draw.CircleGlyph{}
	points.GlyphStyle.Radius = vg.Points(2.5)
	p.Add(line, points)
	return nil
}

// Rows is the number of agglomeration rows.
func (f *Figure) Rows() int { return len(f.Plots) }

// Cols is the number of metric columns.
func (f *Figure) Cols() int {
	if len(f.Plots) == 0 {
		return 0
	}
	return len(f.Plots[0])
}

// Size returns the total figure size.
func (f *Figure) Size() (vg.Length, vg.Length) {
	return f.CellWidth * vg.Length(f.Cols()), f.CellHeight * vg.Length(f.Rows())
}

// WriteTo renders the grid in the given format ("png", "svg", "pdf", ...).
func (f *Figure) WriteTo(w io.Writer, format string) (int64, error) {
	width, height := f.Size()
	c, err := draw.NewFormattedCanvas(width, height, format)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	tiles := draw.Tiles{
		Rows:      f.Rows(),
		Cols:      f.Cols(),
		PadX:      vg.Millimeter * 4,
		PadY:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align(f.Plots, tiles, draw.New(c))
	for i := range f.Plots {
		for j, p := range f.Plots[i] {
			p.Draw(canvases[i][j])
		}
	}
	return c.WriteTo(w)
}

// FormatFromPath returns the output format implied by the extension of path.
func FormatFromPath(path string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	for _, f := range Formats {
		if ext == f {
			return ext, nil
		}
	}
	if ext == "" {
		return "", fmt.Errorf("%w: %s has no extension (want one of %s)", ErrUnsupportedFormat, path, strings.Join(Formats, ", "))
	}
	return "", fmt.Errorf("%w: %q (want one of %s)", ErrUnsupportedFormat, ext, strings.Join(Formats, ", "))
}

// Save writes the figure to path, creating parent directories as needed.
// The format follows the file extension.
func (f *Figure) Save(fsys fsutil.FileSystem, path string) (err error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
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

	if _, err := f.WriteTo(out, format); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func mkdirParent(fsys fsutil.FileSystem, path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return nil
}
