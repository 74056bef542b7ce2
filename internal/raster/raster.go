// Package raster reads classified GeoTIFF extracts into landscapes.
package raster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"math"

	"golang.org/x/image/tiff"

	"github.com/banshee-data/landscape.report/internal/config"
	"github.com/banshee-data/landscape.report/internal/fsutil"
	"github.com/banshee-data/landscape.report/internal/landscape"
	"github.com/banshee-data/landscape.report/internal/monitoring"
)

// ErrRasterNotFound is returned when a raster file does not exist.
var ErrRasterNotFound = errors.New("raster not found")

// Reader loads classified rasters from a filesystem. It implements
// landscape.Loader.
type Reader struct {
	FS fsutil.FileSystem

	// FallbackCellSize is used, in metres, when a raster has no
	// ModelPixelScaleTag.
	FallbackCellSize float64
	// DefaultNodata is used when a raster has no GDAL_NODATA tag.
	DefaultNodata    int
	HasDefaultNodata bool

	Neighborhood  landscape.Neighborhood
	CountBoundary bool
}

// NewReader returns a Reader on the OS filesystem with 1 m fallback cells,
// nodata 0 and the 8-cell neighbourhood.
func NewReader() *Reader {
	return &Reader{
		FS:               fsutil.OSFileSystem{},
		FallbackCellSize: 1,
		DefaultNodata:    0,
		HasDefaultNodata: true,
		Neighborhood:     landscape.Neighborhood8,
	}
}

// NewReaderFromConfig builds a Reader from the figure configuration.
func NewReaderFromConfig(cfg *config.FigureConfig) (*Reader, error) {
	nb, err := landscape.ParseNeighborhood(cfg.GetNeighborhoodRule())
	if err != nil {
		return nil, err
	}
	r := NewReader()
	r.FallbackCellSize = cfg.GetFallbackCellSize()
	r.DefaultNodata = cfg.GetNodata()
	r.Neighborhood = nb
	r.CountBoundary = cfg.GetCountBoundary()
	return r, nil
}

// Settings describes every reader option that changes metric values.
func (r *Reader) Settings() string {
	nodata := "none"
	if r.HasDefaultNodata {
		nodata = fmt.Sprint(r.DefaultNodata)
	}
	return fmt.Sprintf("cell=%g;nodata=%s;neighborhood=%d;boundary=%t",
		r.FallbackCellSize, nodata, r.Neighborhood, r.CountBoundary)
}

// Fingerprint identifies the raster content by size and modification time.
func (r *Reader) Fingerprint(path string) (string, error) {
	info, err := r.FS.Stat(path)
	if err != nil {
		return "", wrapNotFound(path, err)
	}
	return fmt.Sprintf("%d-%d", info.Size(), info.ModTime().UnixNano()), nil
}

// Load decodes the raster at path into a landscape.
func (r *Reader) Load(ctx context.Context, path string) (*landscape.Landscape, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := fsutil.ReadFile(r.FS, path)
	if err != nil {
		return nil, wrapNotFound(path, err)
	}
	ls, err := r.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("raster %s: %w", path, err)
	}
	monitoring.Debugf("loaded %s: %dx%d cells of %gx%g m", path, ls.Width(), ls.Height(), ls.CellWidth, ls.CellHeight)
	return ls, nil
}

// Decode turns TIFF bytes into a landscape using the reader's settings.
func (r *Reader) Decode(data []byte) (*landscape.Landscape, error) {
	tags, err := ReadGeoTags(data)
	if err != nil {
		return nil, err
	}
	img, err := tiff.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode tiff: %w", err)
	}
	values, err := classGrid(img)
	if err != nil {
		return nil, err
	}

	cellW, cellH := r.FallbackCellSize, r.FallbackCellSize
	if tags.HasPixelScale {
		cellW, cellH = tags.PixelScaleX, tags.PixelScaleY
	} else {
		monitoring.Debugf("no pixel scale tag, using %g m cells", r.FallbackCellSize)
	}

	ls, err := landscape.New(values, cellW, cellH)
	if err != nil {
		return nil, err
	}
	switch {
	case tags.HasNodata && tags.Nodata == math.Trunc(tags.Nodata):
		ls.SetNodata(int(tags.Nodata))
	case tags.HasNodata:
		monitoring.Warnf("ignoring non-integer nodata %g on a classified raster", tags.Nodata)
	case r.HasDefaultNodata:
		ls.SetNodata(r.DefaultNodata)
	}
	ls.Neighborhood = r.Neighborhood
	ls.CountBoundary = r.CountBoundary
	return ls, nil
}

// classGrid extracts class values from single-band integer images.
func classGrid(img image.Image) ([][]int, error) {
	b := img.Bounds()
	values := make([][]int, b.Dy())
	for y := range values {
		values[y] = make([]int, b.Dx())
	}

	switch m := img.(type) {
	case *image.Gray:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				values[y-b.Min.Y][x-b.Min.X] = int(m.GrayAt(x, y).Y)
			}
		}
	case *image.Gray16:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				values[y-b.Min.Y][x-b.Min.X] = int(m.Gray16At(x, y).Y)
			}
		}
	case *image.Paletted:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				values[y-b.Min.Y][x-b.Min.X] = int(m.ColorIndexAt(x, y))
			}
		}
	default:
		return nil, fmt.Errorf("unsupported pixel layout %T: classified rasters must be single-band integers", img)
	}
	return values, nil
}

func wrapNotFound(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrRasterNotFound, path)
	}
	return fmt.Errorf("raster %s: %w", path, err)
}
