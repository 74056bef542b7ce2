package raster

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/tiff"
)

// TIFF tags carrying georeferencing that the image decoder ignores.
const (
	tagModelPixelScale = 33550
	tagGDALNodata      = 42113
)

// ErrNotTIFF is returned when the header is not a classic TIFF header.
var ErrNotTIFF = errors.New("not a TIFF file")

// GeoTags holds the georeferencing read from the first image directory.
type GeoTags struct {
	PixelScaleX   float64
	PixelScaleY   float64
	HasPixelScale bool

	Nodata    float64
	HasNodata bool
}

// ReadGeoTags reads ModelPixelScaleTag and GDAL_NODATA from the first IFD
// of a TIFF. Absent tags leave the corresponding Has* flag false.
func ReadGeoTags(data []byte) (GeoTags, error) {
	var tags GeoTags
	if err := checkHeader(data); err != nil {
		return tags, err
	}

	t, err := tiff.Parse(bytes.NewReader(data), nil, nil)
	if err != nil {
		return tags, fmt.Errorf("parse TIFF: %w", err)
	}
	ifds := t.IFDs()
	if len(ifds) == 0 {
		return tags, fmt.Errorf("TIFF has no image directory")
	}
	ifd := ifds[0]

	if ifd.HasField(tagModelPixelScale) {
		f := ifd.GetField(tagModelPixelScale)
		b, order := f.Value().Bytes(), f.Value().Order()
		if f.Count() < 2 || uint64(len(b)) != 8*uint64(f.Count()) {
			return tags, fmt.Errorf("ModelPixelScaleTag must hold at least 2 doubles")
		}
		tags.PixelScaleX = math.Abs(math.Float64frombits(order.Uint64(b[0:8])))
		tags.PixelScaleY = math.Abs(math.Float64frombits(order.Uint64(b[8:16])))
		tags.HasPixelScale = tags.PixelScaleX > 0 && tags.PixelScaleY > 0
	}

	if ifd.HasField(tagGDALNodata) {
		s := strings.TrimSpace(strings.TrimRight(string(ifd.GetField(tagGDALNodata).Value().Bytes()), "\x00"))
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			tags.Nodata = v
			tags.HasNodata = true
		}
	}
	return tags, nil
}

// checkHeader rejects anything but a classic TIFF before handing the bytes
// to the parser, so callers can tell a wrong format from a damaged file.
func checkHeader(data []byte) error {
	if len(data) < 8 {
		return ErrNotTIFF
	}
	var order binary.ByteOrder
	switch string(data[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return ErrNotTIFF
	}
	switch magic := order.Uint16(data[2:4]); magic {
	case 42:
		return nil
	case 43:
		return fmt.Errorf("BigTIFF is not supported")
	default:
		return fmt.Errorf("%w: magic %d", ErrNotTIFF, magic)
	}
}
