package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the
// schema changes; users clear the history database after a bump.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match
// the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const timeLayout = time.RFC3339

// Run is one sync run summary row.
type Run struct {
	ID         string
	Theme      string
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
	Downloaded int
	Skipped    int
	Failed     int
}

// DatasetRecord is one dataset outcome within a run.
type DatasetRecord struct {
	RunID       string
	DatasetID   string
	DatasetName string
	Outcome     string
	Detail      string
	DurationMS  int64
}

// Store manages run history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// RecordRun inserts a run and its dataset outcomes in one transaction.
func (s *Store) RecordRun(ctx context.Context, run Run, records []DatasetRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	dryRun := 0
	if run.DryRun {
		dryRun = 1
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, theme, dry_run, started_at, finished_at, downloaded, skipped, failed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Theme, dryRun,
		run.StartedAt.UTC().Format(timeLayout),
		run.FinishedAt.UTC().Format(timeLayout),
		run.Downloaded, run.Skipped, run.Failed)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, rec := range records {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_datasets (run_id, dataset_id, dataset_name, outcome, detail, duration_ms)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID, rec.DatasetID, rec.DatasetName, rec.Outcome, rec.Detail, rec.DurationMS)
		if err != nil {
			return fmt.Errorf("insert run dataset %s: %w", rec.DatasetID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, theme, dry_run, started_at, finished_at, downloaded, skipped, failed
		 FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RunDatasets returns the dataset outcomes for a run, failures first,
// then by dataset id.
func (s *Store) RunDatasets(ctx context.Context, runID string) ([]DatasetRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, dataset_id, dataset_name, outcome, detail, duration_ms
		 FROM run_datasets WHERE run_id = ?
		 ORDER BY CASE outcome WHEN 'failed' THEN 0 ELSE 1 END, dataset_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run datasets: %w", err)
	}
	defer rows.Close()

	var records []DatasetRecord
	for rows.Next() {
		var rec DatasetRecord
		if err := rows.Scan(&rec.RunID, &rec.DatasetID, &rec.DatasetName, &rec.Outcome, &rec.Detail, &rec.DurationMS); err != nil {
			return nil, fmt.Errorf("scan run dataset: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanRun(rows *sql.Rows) (Run, error) {
	var (
		run      Run
		dryRun   int
		started  string
		finished string
	)
	if err := rows.Scan(&run.ID, &run.Theme, &dryRun, &started, &finished,
		&run.Downloaded, &run.Skipped, &run.Failed); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.DryRun = dryRun != 0

	var err error
	run.StartedAt, err = time.Parse(timeLayout, started)
	if err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	run.FinishedAt, err = time.Parse(timeLayout, finished)
	if err != nil {
		return Run{}, fmt.Errorf("parse finished_at: %w", err)
	}
	return run, nil
}
