// Package testutil provides shared test utilities and fixtures.
//
// The raster helpers write minimal uncompressed 8-bit GeoTIFFs so tests can
// exercise the reader, the analysis and the figure pipeline without
// shipping binary fixtures.
package testutil

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// GeoTIFFOptions controls the georeferencing tags written with a fixture.
type GeoTIFFOptions struct {
	// PixelScale writes ModelPixelScaleTag when positive.
	PixelScale float64
	// Nodata writes GDAL_NODATA when non-empty.
	Nodata string
}

// ifdEntry mirrors the 12-byte on-disk layout of a TIFF directory entry.
type ifdEntry struct {
	Tag   uint16
	Type  uint16
	Count uint32
	Value uint32
}

// ClassifiedTIFF encodes values (row-major, one byte per cell) as a
// little-endian single-strip grayscale TIFF.
func ClassifiedTIFF(values [][]uint8, opts GeoTIFFOptions) []byte {
	h := len(values)
	w := 0
	if h > 0 {
		w = len(values[0])
	}

	var pixels bytes.Buffer
	for _, row := range values {
		pixels.Write(row)
	}

	const header = 8
	offset := uint32(header + pixels.Len())
	var extra bytes.Buffer
	entries := []ifdEntry{
		{256, 4, 1, uint32(w)},
		{257, 4, 1, uint32(h)},
		{258, 3, 1, 8},
		{259, 3, 1, 1},
		{262, 3, 1, 1},
		{273, 4, 1, header},
		{277, 3, 1, 1},
		{278, 4, 1, uint32(h)},
		{279, 4, 1, uint32(pixels.Len())},
	}
	if opts.PixelScale > 0 {
		entries = append(entries, ifdEntry{33550, 12, 3, offset + uint32(extra.Len())})
		for _, v := range []float64{opts.PixelScale, opts.PixelScale, 0} {
			_ = binary.Write(&extra, binary.LittleEndian, math.Float64bits(v))
		}
	}
	if opts.Nodata != "" {
		s := append([]byte(opts.Nodata), 0)
		e := ifdEntry{Tag: 42113, Type: 2, Count: uint32(len(s))}
		if len(s) <= 4 {
			var inline [4]byte
			copy(inline[:], s)
			e.Value = binary.LittleEndian.Uint32(inline[:])
		} else {
			e.Value = offset + uint32(extra.Len())
			extra.Write(s)
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Tag < entries[j].Tag })

	ifd := offset + uint32(extra.Len())
	pad := ifd % 2
	ifd += pad

	var out bytes.Buffer
	out.WriteString("II")
	_ = binary.Write(&out, binary.LittleEndian, uint16(42))
	_ = binary.Write(&out, binary.LittleEndian, ifd)
	out.Write(pixels.Bytes())
	out.Write(extra.Bytes())
	if pad == 1 {
		out.WriteByte(0)
	}
	_ = binary.Write(&out, binary.LittleEndian, uint16(len(entries)))
	for _, e := range entries {
		_ = binary.Write(&out, binary.LittleEndian, e)
	}
	_ = binary.Write(&out, binary.LittleEndian, uint32(0))
	return out.Bytes()
}

// WriteClassifiedTIFF writes a fixture to dir/name and returns its path.
func WriteClassifiedTIFF(t testing.TB, dir, name string, values [][]uint8, opts GeoTIFFOptions) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir for fixture: %v", err)
	}
	if err := os.WriteFile(path, ClassifiedTIFF(values, opts), 0644); err != nil {
		t.Fatalf("write fixture %s: %v", path, err)
	}
	return path
}

// UrbanGrowth returns n square grids of the given size where the urban
// class (1) fills the first i+1 rows of grid i and the rest is class 2.
func UrbanGrowth(n, size int) [][][]uint8 {
	grids := make([][][]uint8, n)
	for i := range grids {
		grid := make([][]uint8, size)
		for y := range grid {
			grid[y] = make([]uint8, size)
			for x := range grid[y] {
				grid[y][x] = 2
				if y <= i {
					grid[y][x] = 1
				}
			}
		}
		grids[i] = grid
	}
	return grids
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
