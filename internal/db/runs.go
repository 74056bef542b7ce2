package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FigureRun records one generated figure.
type FigureRun struct {
	RunID          string    `json:"run_id"`
	OutputPath     string    `json:"output_path"`
	Agglomerations []string  `json:"agglomerations"`
	Metrics        []string  `json:"metrics"`
	Dates          []string  `json:"dates"`
	CreatedAt      time.Time `json:"created_at"`
}

// RecordFigureRun stores run with a fresh id and returns that id.
func (db *DB) RecordFigureRun(ctx context.Context, run FigureRun) (string, error) {
	run.RunID = uuid.NewString()
	run.CreatedAt = db.Clock.Now().UTC()

	aggs, err := json.Marshal(run.Agglomerations)
	if err != nil {
		return "", err
	}
	metrics, err := json.Marshal(run.Metrics)
	if err != nil {
		return "", err
	}
	dates, err := json.Marshal(run.Dates)
	if err != nil {
		return "", err
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO figure_runs (run_id, output_path, agglomerations, metrics, dates, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.RunID, run.OutputPath, string(aggs), string(metrics), string(dates), run.CreatedAt.Format(timestampLayout),
	)
	if err != nil {
		return "", fmt.Errorf("failed to record figure run: %w", err)
	}
	return run.RunID, nil
}

// RecentFigureRuns returns up to limit runs, newest first.
func (db *DB) RecentFigureRuns(ctx context.Context, limit int) ([]FigureRun, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT run_id, output_path, agglomerations, metrics, dates, created_at
		 FROM figure_runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []FigureRun
	for rows.Next() {
		var (
			run                  FigureRun
			aggs, metrics, dates string
			created              string
		)
		if err := rows.Scan(&run.RunID, &run.OutputPath, &aggs, &metrics, &dates, &created); err != nil {
			return nil, err
		}
		run.CreatedAt = parseTimestamp(created)
		if err := json.Unmarshal([]byte(aggs), &run.Agglomerations); err != nil {
			return nil, fmt.Errorf("run %s agglomerations: %w", run.RunID, err)
		}
		if err := json.Unmarshal([]byte(metrics), &run.Metrics); err != nil {
			return nil, fmt.Errorf("run %s metrics: %w", run.RunID, err)
		}
		if err := json.Unmarshal([]byte(dates), &run.Dates); err != nil {
			return nil, fmt.Errorf("run %s dates: %w", run.RunID, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// timestampLayout sorts lexically, so ORDER BY created_at is chronological.
const timestampLayout = "2006-01-02 15:04:05.000000000"

// parseTimestamp accepts the stored layout, SQLite's CURRENT_TIMESTAMP text
// and the RFC 3339 form the driver produces for TIMESTAMP columns.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
