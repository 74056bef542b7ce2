// Package db stores computed landscape metrics and figure provenance in a
// SQLite database so repeated runs skip rasters they have already analysed.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"math"
	"net/url"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/landscape.report/internal/landscape"
	"github.com/banshee-data/landscape.report/internal/timeutil"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// pragmas are applied to every pooled connection through the DSN.
var pragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"temp_store(MEMORY)",
}

type DB struct {
	*sql.DB
	// Clock stamps figure runs.
	Clock timeutil.Clock
}

// NewDB opens (creating if needed) the cache database at path and migrates
// it to the latest schema.
func NewDB(path string) (*DB, error) {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	sqlDB, err := sql.Open("sqlite", dsn(path, q))
	if err != nil {
		return nil, err
	}
	db := &DB{DB: sqlDB, Clock: timeutil.RealClock{}}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// dsn builds a SQLite URI for path. The path is percent-escaped so "?",
// "#" and "%" in a file name are not read as URI syntax.
func dsn(path string, q url.Values) string {
	return "file:" + (&url.URL{Path: path}).EscapedPath() + "?" + q.Encode()
}

// Lookup implements landscape.Cache.
func (db *DB) Lookup(ctx context.Context, key landscape.CacheKey) (float64, bool, error) {
	var v sql.NullFloat64
	err := db.QueryRowContext(ctx,
		`SELECT value FROM metric_values
		 WHERE raster_path = ? AND fingerprint = ? AND settings = ? AND class_value = ? AND metric = ?`,
		key.Path, key.Fingerprint, key.Settings, key.Class, key.Metric,
	).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lookup %s/%s: %w", key.Path, key.Metric, err)
	}
	if !v.Valid {
		// NaN is stored as NULL
		return math.NaN(), true, nil
	}
	return v.Float64, true, nil
}

// Store implements landscape.Cache.
func (db *DB) Store(ctx context.Context, key landscape.CacheKey, value float64) error {
	stored := sql.NullFloat64{Float64: value, Valid: !math.IsNaN(value) && !math.IsInf(value, 0)}
	_, err := db.ExecContext(ctx,
		`INSERT OR REPLACE INTO metric_values (raster_path, fingerprint, settings, class_value, metric, value)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		key.Path, key.Fingerprint, key.Settings, key.Class, key.Metric, stored,
	)
	if err != nil {
		return fmt.Errorf("store %s/%s: %w", key.Path, key.Metric, err)
	}
	return nil
}

// PurgeStale removes cached values whose raster has since changed: every
// row for path with a fingerprint other than current.
func (db *DB) PurgeStale(ctx context.Context, path, current string) (int64, error) {
	res, err := db.ExecContext(ctx,
		`DELETE FROM metric_values WHERE raster_path = ? AND fingerprint <> ?`, path, current)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

var _ landscape.Cache = (*DB)(nil)
