package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ibeckermayer/sentigraph/internal/types"
)

// Store handles all database operations
type Store struct {
	db *sql.DB
}

// New creates a new Store with SQLite backend
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		scorer TEXT NOT NULL,
		exclude_neutral BOOLEAN NOT NULL,
		sources TEXT,
		records INTEGER DEFAULT 0,
		skipped INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		author TEXT,
		text TEXT NOT NULL,
		shares INTEGER NOT NULL,
		favorites INTEGER NOT NULL,
		tags TEXT,
		sentiment REAL NOT NULL,
		referenced_id TEXT,
		referenced_author TEXT,
		referenced_text TEXT,
		run_id TEXT REFERENCES runs(id)
	);

	CREATE TABLE IF NOT EXISTS daily_aggregates (
		run_id TEXT NOT NULL REFERENCES runs(id),
		date TEXT NOT NULL,
		mean REAL NOT NULL,
		std_dev REAL NOT NULL,
		weighted_mean REAL NOT NULL,
		weighted_std_dev REAL NOT NULL,
		count INTEGER NOT NULL,
		PRIMARY KEY (run_id, date)
	);

	CREATE TABLE IF NOT EXISTS correlations (
		run_id TEXT PRIMARY KEY REFERENCES runs(id),
		avg_influence REAL NOT NULL,
		covariance REAL NOT NULL,
		correlation REAL NOT NULL,
		count INTEGER NOT NULL,
		defined BOOLEAN NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_records_date ON records(date);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_daily_date ON daily_aggregates(date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// BeginRun inserts a new run, assigning it an ID when it has none.
func (s *Store) BeginRun(r *Run) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	sourcesJSON, _ := json.Marshal(r.Sources)

	_, err := s.db.Exec(`
		INSERT INTO runs (id, started_at, scorer, exclude_neutral, sources)
		VALUES (?, ?, ?, ?, ?)
	`, r.ID, r.StartedAt.UTC(), r.Scorer, r.ExcludeNeutral, string(sourcesJSON))
	if err != nil {
		return fmt.Errorf("failed to begin run: %w", err)
	}
	return nil
}

// FinishRun records the outcome counts of a run.
func (s *Store) FinishRun(runID string, records, skipped int) error {
	res, err := s.db.Exec(`
		UPDATE runs SET finished_at = ?, records = ?, skipped = ?
		WHERE id = ?
	`, time.Now().UTC(), records, skipped, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("unknown run %s", runID)
	}
	return nil
}

// SaveAggregates stores the daily statistics and correlation of a run,
// replacing any earlier values for that run.
func (s *Store) SaveAggregates(runID string, days []types.DailyAggregate, corr types.Correlation) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM daily_aggregates WHERE run_id = ?`, runID); err != nil {
		return err
	}
	for _, d := range days {
		_, err := tx.Exec(`
			INSERT INTO daily_aggregates (run_id, date, mean, std_dev, weighted_mean, weighted_std_dev, count)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, runID, string(d.Date), d.Mean, d.StdDev, d.WeightedMean, d.WeightedStdDev, d.Count)
		if err != nil {
			return fmt.Errorf("failed to save aggregate for %s: %w", d.Date, err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO correlations (run_id, avg_influence, covariance, correlation, count, defined)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			avg_influence = excluded.avg_influence,
			covariance = excluded.covariance,
			correlation = excluded.correlation,
			count = excluded.count,
			defined = excluded.defined
	`, runID, corr.AvgInfluence, corr.Covariance, corr.Correlation, corr.Count, corr.Defined)
	if err != nil {
		return fmt.Errorf("failed to save correlation: %w", err)
	}

	return tx.Commit()
}

// GetRun returns a run and its saved statistics.
func (s *Store) GetRun(runID string) (*RunResult, error) {
	row := s.db.QueryRow(`
		SELECT id, started_at, finished_at, scorer, exclude_neutral, sources, records, skipped
		FROM runs WHERE id = ?
	`, runID)
	run, err := scanRun(row)
	if err != nil {
		return nil, err
	}

	result := &RunResult{Run: run}

	rows, err := s.db.Query(`
		SELECT date, mean, std_dev, weighted_mean, weighted_std_dev, count
		FROM daily_aggregates WHERE run_id = ?
		ORDER BY date ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var d types.DailyAggregate
		var date string
		if err := rows.Scan(&date, &d.Mean, &d.StdDev, &d.WeightedMean, &d.WeightedStdDev, &d.Count); err != nil {
			return nil, err
		}
		d.Date = types.Date(date)
		result.Days = append(result.Days, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = s.db.QueryRow(`
		SELECT avg_influence, covariance, correlation, count, defined
		FROM correlations WHERE run_id = ?
	`, runID).Scan(&result.Correlation.AvgInfluence, &result.Correlation.Covariance,
		&result.Correlation.Correlation, &result.Correlation.Count, &result.Correlation.Defined)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}

	return result, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, scorer, exclude_neutral, sources, records, skipped
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// DailyHistory returns the aggregates every finished run computed for a
// date, oldest run first.
func (s *Store) DailyHistory(date types.Date) ([]DayHistory, error) {
	rows, err := s.db.Query(`
		SELECT r.id, r.started_at, d.date, d.mean, d.std_dev, d.weighted_mean, d.weighted_std_dev, d.count
		FROM daily_aggregates d
		JOIN runs r ON r.id = d.run_id
		WHERE d.date = ? AND r.finished_at IS NOT NULL
		ORDER BY r.started_at ASC
	`, string(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []DayHistory
	for rows.Next() {
		var h DayHistory
		var d string
		err := rows.Scan(&h.RunID, &h.StartedAt, &d, &h.Mean, &h.StdDev, &h.WeightedMean, &h.WeightedStdDev, &h.Count)
		if err != nil {
			return nil, err
		}
		h.Date = types.Date(d)
		history = append(history, h)
	}
	return history, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var r Run
	var finished sql.NullTime
	var sourcesJSON sql.NullString

	err := row.Scan(&r.ID, &r.StartedAt, &finished, &r.Scorer, &r.ExcludeNeutral,
		&sourcesJSON, &r.Records, &r.Skipped)
	if err != nil {
		return r, err
	}
	if finished.Valid {
		r.FinishedAt = finished.Time
	}
	if sourcesJSON.Valid {
		json.Unmarshal([]byte(sourcesJSON.String), &r.Sources)
	}
	return r, nil
}
