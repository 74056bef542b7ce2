package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/landscape.report/internal/cli"
	"github.com/banshee-data/landscape.report/internal/db"
	"github.com/banshee-data/landscape.report/internal/monitoring"
	"github.com/banshee-data/landscape.report/internal/testutil"
	"github.com/banshee-data/landscape.report/internal/timeutil"
)

var basenames = []string{"g100_clc00_V18_5", "g100_clc06_V18_5", "g100_clc12_V18_5"}

func writeExtracts(t *testing.T, slugs ...string) string {
	t.Helper()
	dir := t.TempDir()
	grids := testutil.UrbanGrowth(len(basenames), 8)
	for _, slug := range slugs {
		for k, b := range basenames {
			testutil.WriteClassifiedTIFF(t, dir, fmt.Sprintf("%s-%s.tif", slug, b), grids[k],
				testutil.GeoTIFFOptions{PixelScale: 100, Nodata: "0"})
		}
	}
	return dir
}

func captureLogs(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	t.Cleanup(func() {
		monitoring.SetLogger(nil)
		monitoring.SetLevel(monitoring.LevelInfo)
	})
	return &lines
}

func figureArgs(dir, out string, extra ...string) []string {
	args := []string{dir, out,
		"--metrics", "total_area", "number_of_patches",
		"--clc-basenames"}
	args = append(args, basenames...)
	args = append(args, "--agglomeration-slugs", "bern", "new-york")
	return append(args, extra...)
}

func TestRun_WritesFigure(t *testing.T) {
	logs := captureLogs(t)
	dir := writeExtracts(t, "bern", "new-york")
	out := filepath.Join(t.TempDir(), "figures", "urban.png")

	require.NoError(t, run(context.Background(), figureArgs(dir, out), &bytes.Buffer{}))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	b := img.Bounds()
	assert.Greater(t, b.Dx(), b.Dy(), "two metric columns of 6.4in vs two rows of 4.8in")

	assert.Equal(t, []string{
		"computing landscape metrics for bern",
		"computing landscape metrics for new-york",
		"saving figure to " + out,
	}, *logs)
}

// steppingClock moves forward by step every time it is read.
type steppingClock struct {
	*timeutil.MockClock
	step time.Duration
}

func (c steppingClock) Now() time.Time {
	now := c.MockClock.Now()
	c.Advance(c.step)
	return now
}

func TestRun_DebugTiming(t *testing.T) {
	logs := captureLogs(t)
	prev := clock
	clock = steppingClock{MockClock: timeutil.NewMockClock(time.Unix(0, 0)), step: 1500 * time.Millisecond}
	t.Cleanup(func() { clock = prev })

	dir := writeExtracts(t, "bern", "new-york")
	out := filepath.Join(t.TempDir(), "urban.png")
	require.NoError(t, run(context.Background(), figureArgs(dir, out, "--log-level", "debug"), &bytes.Buffer{}))

	assert.Contains(t, *logs, "computed 2x2 grid in 1.5s")
}

func TestRun_CacheHTMLAndRunRecord(t *testing.T) {
	captureLogs(t)
	dir := writeExtracts(t, "bern", "new-york")
	tmp := t.TempDir()
	out := filepath.Join(tmp, "urban.svg")
	html := filepath.Join(tmp, "html", "urban.html")
	cachePath := filepath.Join(tmp, "cache.db")

	args := figureArgs(dir, out, "--cache-db", cachePath, "--html", html, "--workers", "2")
	require.NoError(t, run(context.Background(), args, &bytes.Buffer{}))
	require.NoError(t, run(context.Background(), args, &bytes.Buffer{}))

	assert.FileExists(t, out)
	assert.FileExists(t, html)

	database, err := db.NewDB(cachePath)
	require.NoError(t, err)
	defer database.Close()

	runs, err := database.RecentFigureRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, []string{"bern", "new-york"}, runs[0].Agglomerations)
	assert.Equal(t, []string{"00", "06", "12"}, runs[0].Dates)
	assert.NotEqual(t, runs[0].RunID, runs[1].RunID)

	var n int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM metric_values`).Scan(&n))
	assert.Equal(t, 2*3*2, n, "slugs x dates x metrics")
}

func TestRun_ConfigFile(t *testing.T) {
	captureLogs(t)
	dir := t.TempDir()
	grids := testutil.UrbanGrowth(1, 4)
	testutil.WriteClassifiedTIFF(t, dir, "bern-clc_2018.tiff", grids[0], testutil.GeoTIFFOptions{})

	cfgPath := filepath.Join(t.TempDir(), "figure.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"date_offset": 4, "date_length": 4, "extension": ".tiff", "cell_width_in": 3, "cell_height_in": 2}`), 0644))

	out := filepath.Join(t.TempDir(), "fig.png")
	args := []string{dir, out, "--metrics", "total_area", "--clc-basenames", "clc_2018",
		"--agglomeration-slugs", "bern", "--config", cfgPath}
	require.NoError(t, run(context.Background(), args, &bytes.Buffer{}))
	assert.FileExists(t, out)
}

func TestRun_Errors(t *testing.T) {
	captureLogs(t)
	dir := writeExtracts(t, "bern")
	tmp := t.TempDir()

	t.Run("usage error", func(t *testing.T) {
		err := run(context.Background(), []string{dir}, &bytes.Buffer{})
		var exitErr *cli.ExitError
		require.True(t, errors.As(err, &exitErr))
		assert.Equal(t, 2, exitErr.Code)
	})

	t.Run("unsupported output format", func(t *testing.T) {
		err := run(context.Background(), figureArgs(dir, filepath.Join(tmp, "fig.bmp")), &bytes.Buffer{})
		var exitErr *cli.ExitError
		require.True(t, errors.As(err, &exitErr))
		assert.Contains(t, exitErr.Message, "OUT_FIGURE_FILEPATH")
	})

	t.Run("missing raster", func(t *testing.T) {
		out := filepath.Join(tmp, "fig.png")
		err := run(context.Background(), figureArgs(dir, out), &bytes.Buffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "new-york")
		assert.NoFileExists(t, out)
	})

	t.Run("unknown metric", func(t *testing.T) {
		args := []string{dir, filepath.Join(tmp, "x.png"), "--metrics", "bogus",
			"--clc-basenames", basenames[0], "--agglomeration-slugs", "bern"}
		err := run(context.Background(), args, &bytes.Buffer{})
		assert.ErrorContains(t, err, "bogus")
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := run(ctx, figureArgs(writeExtracts(t, "bern", "new-york"), filepath.Join(tmp, "c.png")), &bytes.Buffer{})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRun_Help(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-h"}, &out))
	assert.Contains(t, out.String(), "--clc-basenames")
}

func TestFindDotEnv(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("MAKE_FIGURE_CACHE_DB=x.db\n"), 0644))

	t.Chdir(nested)
	path, ok := findDotEnv()
	require.True(t, ok)
	resolvedRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	resolvedPath, err := filepath.EvalSymlinks(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(resolvedRoot, ".env"), resolvedPath)
}

func TestRun_PrunesChangedRasters(t *testing.T) {
	captureLogs(t)
	dir := writeExtracts(t, "bern", "new-york")
	tmp := t.TempDir()
	cachePath := filepath.Join(tmp, "cache.db")
	args := figureArgs(dir, filepath.Join(tmp, "fig.png"), "--cache-db", cachePath)

	require.NoError(t, run(context.Background(), args, &bytes.Buffer{}))

	changed := filepath.Join(dir, "bern-"+basenames[0]+".tif")
	grids := testutil.UrbanGrowth(len(basenames), 8)
	testutil.WriteClassifiedTIFF(t, dir, filepath.Base(changed), grids[2], testutil.GeoTIFFOptions{PixelScale: 100, Nodata: "0"})
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(changed, later, later))

	require.NoError(t, run(context.Background(), args, &bytes.Buffer{}))

	database, err := db.NewDB(cachePath)
	require.NoError(t, err)
	defer database.Close()

	var rows, distinct int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM metric_values`).Scan(&rows))
	require.NoError(t, database.QueryRow(`SELECT COUNT(DISTINCT fingerprint) FROM metric_values WHERE raster_path = ?`, changed).Scan(&distinct))
	assert.Equal(t, 2*3*2, rows)
	assert.Equal(t, 1, distinct)

	var area float64
	require.NoError(t, database.QueryRow(
		`SELECT value FROM metric_values WHERE raster_path = ? AND metric = 'total_area'`, changed).Scan(&area))
	assert.InDelta(t, 24, area, 1e-9, "three urban rows of eight 1 ha cells")
}
