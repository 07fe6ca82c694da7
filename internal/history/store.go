// Package history persists run summaries and per-file expansion results
// to a SQLite database so past runs can be inspected and compared.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/graft/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// FileRecord is a persisted per-file expansion result
type FileRecord struct {
	Path           string
	Passes         int
	Substituted    bool
	DepthExhausted bool
	MissingRefs    int
}

// Store manages the SQLite database for run history
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore creates a new Store instance and initializes the database
func NewStore(dbPath string) (*Store, error) {
	// Handle in-memory database
	if dbPath == ":memory:" {
		return openAndInitStore(dbPath)
	}

	// Ensure parent directory exists for file-based databases
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	return openAndInitStore(dbPath)
}

// openAndInitStore opens the database connection and initializes schema
func openAndInitStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Configure SQLite for concurrent access with retry logic.
	// Set busy_timeout FIRST so subsequent operations wait on locks.
	// foreign_keys must be on for run_files rows to follow their run.
	pragmas := []string{
		"PRAGMA busy_timeout=5000", // Must be first
		"PRAGMA foreign_keys=ON",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	store := &Store{
		db:     db,
		dbPath: dbPath,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return store, nil
}

// execWithRetry executes a SQL statement with exponential backoff retry on lock errors.
func execWithRetry(db *sql.DB, sql string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(sql)
		if err == nil {
			return nil
		}

		// Only retry on "database is locked" errors
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}

		lastErr = err
		delay := baseDelay * time.Duration(1<<attempt)
		time.Sleep(delay)
	}
	return lastErr
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// initSchema creates tables and indexes from the embedded schema
func (s *Store) initSchema() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// RecordRun persists a run summary and its per-file results in one transaction
func (s *Store) RecordRun(ctx context.Context, summary models.RunSummary, files []models.ExpansionResult) error {
	extensionsJSON := "[]"
	if len(summary.Extensions) > 0 {
		data, err := json.Marshal(summary.Extensions)
		if err != nil {
			return fmt.Errorf("marshal extensions: %w", err)
		}
		extensionsJSON = string(data)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	runQuery := `INSERT INTO runs
		(id, started_at, source_root, output_root, pattern, max_depth, extensions,
		 files_scanned, files_expanded, files_written, write_failures,
		 depth_exhausted, missing_refs, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = tx.ExecContext(ctx, runQuery,
		summary.ID,
		summary.StartedAt,
		summary.SourceRoot,
		summary.OutputRoot,
		summary.Pattern,
		summary.MaxDepth,
		extensionsJSON,
		summary.FilesScanned,
		summary.FilesExpanded,
		summary.FilesWritten,
		summary.WriteFailures,
		summary.DepthExhausted,
		summary.MissingRefs,
		summary.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	fileQuery := `INSERT INTO run_files
		(run_id, path, passes, substituted, depth_exhausted, missing_refs)
		VALUES (?, ?, ?, ?, ?, ?)`

	for _, file := range files {
		_, err := tx.ExecContext(ctx, fileQuery,
			summary.ID,
			file.Path,
			file.Passes,
			file.Substituted,
			file.DepthExhausted,
			file.MissingRefs,
		)
		if err != nil {
			return fmt.Errorf("insert run file %s: %w", file.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// RecentRuns retrieves the most recent runs, newest first
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]models.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, started_at, source_root, output_root, pattern, max_depth, extensions,
		files_scanned, files_expanded, files_written, write_failures,
		depth_exhausted, missing_refs, duration_ms
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []models.RunSummary
	for rows.Next() {
		var summary models.RunSummary
		var extensionsJSON sql.NullString
		var durationMS int64
		err := rows.Scan(
			&summary.ID,
			&summary.StartedAt,
			&summary.SourceRoot,
			&summary.OutputRoot,
			&summary.Pattern,
			&summary.MaxDepth,
			&extensionsJSON,
			&summary.FilesScanned,
			&summary.FilesExpanded,
			&summary.FilesWritten,
			&summary.WriteFailures,
			&summary.DepthExhausted,
			&summary.MissingRefs,
			&durationMS,
		)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}

		if extensionsJSON.Valid && extensionsJSON.String != "" && extensionsJSON.String != "[]" {
			if err := json.Unmarshal([]byte(extensionsJSON.String), &summary.Extensions); err != nil {
				return nil, fmt.Errorf("unmarshal extensions for run %s: %w", summary.ID, err)
			}
		}
		summary.Duration = time.Duration(durationMS) * time.Millisecond

		runs = append(runs, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

// Run retrieves a single recorded run by ID
func (s *Store) Run(ctx context.Context, runID string) (*models.RunSummary, error) {
	query := `SELECT id, started_at, source_root, output_root, pattern, max_depth, extensions,
		files_scanned, files_expanded, files_written, write_failures,
		depth_exhausted, missing_refs, duration_ms
		FROM runs
		WHERE id = ?`

	var summary models.RunSummary
	var extensionsJSON sql.NullString
	var durationMS int64
	err := s.db.QueryRowContext(ctx, query, runID).Scan(
		&summary.ID,
		&summary.StartedAt,
		&summary.SourceRoot,
		&summary.OutputRoot,
		&summary.Pattern,
		&summary.MaxDepth,
		&extensionsJSON,
		&summary.FilesScanned,
		&summary.FilesExpanded,
		&summary.FilesWritten,
		&summary.WriteFailures,
		&summary.DepthExhausted,
		&summary.MissingRefs,
		&durationMS,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}

	if extensionsJSON.Valid && extensionsJSON.String != "" && extensionsJSON.String != "[]" {
		if err := json.Unmarshal([]byte(extensionsJSON.String), &summary.Extensions); err != nil {
			return nil, fmt.Errorf("unmarshal extensions for run %s: %w", summary.ID, err)
		}
	}
	summary.Duration = time.Duration(durationMS) * time.Millisecond

	return &summary, nil
}

// RunFiles retrieves the per-file results for a run, ordered by path
func (s *Store) RunFiles(ctx context.Context, runID string) ([]FileRecord, error) {
	query := `SELECT path, passes, substituted, depth_exhausted, missing_refs
		FROM run_files
		WHERE run_id = ?
		ORDER BY path`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query run files: %w", err)
	}
	defer rows.Close()

	var files []FileRecord
	for rows.Next() {
		var file FileRecord
		err := rows.Scan(
			&file.Path,
			&file.Passes,
			&file.Substituted,
			&file.DepthExhausted,
			&file.MissingRefs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan run file: %w", err)
		}
		files = append(files, file)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run files: %w", err)
	}

	return files, nil
}

// Prune deletes all but the most recent keepRuns runs and returns the
// number of runs removed. A keepRuns of 0 keeps everything.
func (s *Store) Prune(ctx context.Context, keepRuns int) (int64, error) {
	if keepRuns <= 0 {
		return 0, nil
	}

	// Deletes cascade to run_files via the foreign key
	query := `DELETE FROM runs WHERE id NOT IN (
		SELECT id FROM runs ORDER BY started_at DESC LIMIT ?
	)`

	result, err := s.db.ExecContext(ctx, query, keepRuns)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count pruned runs: %w", err)
	}

	return deleted, nil
}

// Clear removes all run history and returns the number of runs removed
func (s *Store) Clear(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_files`); err != nil {
		return 0, fmt.Errorf("clear run files: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM runs`)
	if err != nil {
		return 0, fmt.Errorf("clear runs: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count cleared runs: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	return deleted, nil
}
