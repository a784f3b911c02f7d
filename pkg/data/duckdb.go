package data

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id           VARCHAR PRIMARY KEY,
	name         VARCHAR,
	source_dir   VARCHAR,
	base_dir     VARCHAR,
	archive_path VARCHAR,
	log_path     VARCHAR,
	state        VARCHAR,
	success      BOOLEAN,
	images       INTEGER,
	failures     INTEGER,
	started_at   TIMESTAMP,
	finished_at  TIMESTAMP
);
CREATE TABLE IF NOT EXISTS run_items (
	run_id          VARCHAR,
	item_key        VARCHAR,
	bucket          VARCHAR,
	zone            VARCHAR,
	destination_dir VARCHAR,
	status          VARCHAR,
	detail          VARCHAR
);
`

func InitDuckDB(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return db, nil
}

// Repository stores run history.
type Repository struct {
	db *sql.DB
}

func NewDuckDBRepository(path string) (*Repository, error) {
	db, err := InitDuckDB(path)
	if err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

// RunSummary is one row of the runs table.
type RunSummary struct {
	ID          string
	Name        string
	SourceDir   string
	BaseDir     string
	ArchivePath string
	State       string
	Success     bool
	Images      int
	Failures    int
	StartedAt   time.Time
	FinishedAt  time.Time
}

// SaveReport stores a run and its items, replacing a previous copy of the same run.
func (r *Repository) SaveReport(report *RunReport) error {
	if report == nil {
		return fmt.Errorf("report cannot be nil")
	}
	if report.ID == "" {
		return fmt.Errorf("report has no id")
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM run_items WHERE run_id = ?`, report.ID); err != nil {
		return fmt.Errorf("failed to clear run items: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM runs WHERE id = ?`, report.ID); err != nil {
		return fmt.Errorf("failed to clear run: %w", err)
	}

	_, err = tx.Exec(`INSERT INTO runs
		(id, name, source_dir, base_dir, archive_path, log_path, state, success, images, failures, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.ID, report.Name, report.SourceDir, report.BaseDir, report.ArchivePath, report.LogPath,
		report.State, report.Success, len(report.Items), report.Failures(), report.StartedAt, report.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	for _, item := range report.Items {
		_, err := tx.Exec(`INSERT INTO run_items
			(run_id, item_key, bucket, zone, destination_dir, status, detail)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			report.ID, item.ItemKey, item.Bucket.String(), string(item.Zone), item.DestinationDir, item.Status, item.Detail)
		if err != nil {
			return fmt.Errorf("failed to save item %s: %w", item.ItemKey, err)
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs first. A limit of zero returns all runs.
func (r *Repository) ListRuns(limit int) ([]*RunSummary, error) {
	query := `SELECT id, name, source_dir, base_dir, archive_path, state, success, images, failures, started_at, finished_at
		FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*RunSummary
	for rows.Next() {
		run := &RunSummary{}
		if err := rows.Scan(&run.ID, &run.Name, &run.SourceDir, &run.BaseDir, &run.ArchivePath, &run.State,
			&run.Success, &run.Images, &run.Failures, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRunItems returns the item outcomes of a run ordered by destination.
func (r *Repository) GetRunItems(runID string) ([]ItemOutcome, error) {
	rows, err := r.db.Query(`SELECT item_key, bucket, zone, destination_dir, status, detail
		FROM run_items WHERE run_id = ? ORDER BY destination_dir`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ItemOutcome
	for rows.Next() {
		var item ItemOutcome
		var bucket, zone string
		if err := rows.Scan(&item.ItemKey, &bucket, &zone, &item.DestinationDir, &item.Status, &item.Detail); err != nil {
			return nil, err
		}
		if bucket == BucketCTM.String() {
			item.Bucket = BucketCTM
		}
		item.Zone = Zone(zone)
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *Repository) Close() error {
	return r.db.Close()
}
