// Package history keeps an SQLite log of every job attempt across runs.
// The batch state file stays authoritative; history only explains how a
// job reached its status.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/dbfc/internal/engine"
	"github.com/harrison/dbfc/internal/models"
	"github.com/harrison/dbfc/internal/state"
)

// FileName is the default database file inside a batch control directory.
const FileName = "history.db"

// maxStderr bounds the stderr stored per attempt.
const maxStderr = 4096

// Attempt is one recorded job attempt.
type Attempt struct {
	ID           int64
	RunID        string
	BatchName    string
	SourcePath   string
	Status       models.JobStatus
	Stage        string
	ExitCode     *int
	ErrorMessage string
	Stderr       string
	DurationMs   int64
	Timestamp    time.Time
}

// RunSummary aggregates the attempts of one run.
type RunSummary struct {
	RunID     string
	Started   time.Time
	Attempted int
	Failed    int
}

// Store manages the SQLite attempt database
type Store struct {
	db     *sql.DB
	dbPath string
}

// DefaultPath returns the history database location for a source tree.
func DefaultPath(sourceDir string) string {
	return filepath.Join(state.ControlDir(sourceDir), FileName)
}

// NewStore opens (creating if needed) the database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// An in-memory database lives only as long as its connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA busy_timeout=5000", // Must be first
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.ApplyMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// execWithRetry executes a statement with exponential backoff on lock errors.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
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

// Path returns the database location.
func (s *Store) Path() string {
	return s.dbPath
}

// RecordAttempt stores the outcome of one job attempt. It satisfies
// engine.Recorder.
func (s *Store) RecordAttempt(runID, batchName string, outcome models.JobOutcome) error {
	a := &Attempt{
		RunID:      runID,
		BatchName:  batchName,
		SourcePath: outcome.Job.SourcePath,
		Status:     outcome.Job.Status,
		ExitCode:   outcome.ExitCode,
		Stderr:     tail(outcome.Stderr, maxStderr),
		DurationMs: outcome.Duration.Milliseconds(),
		Timestamp:  time.Now().UTC(),
	}
	if outcome.Err != nil {
		a.ErrorMessage = outcome.Err.Error()
		a.Stage = string(engine.StageOf(outcome.Err))
	}
	return s.Record(context.Background(), a)
}

// Record inserts a and sets its ID.
func (s *Store) Record(ctx context.Context, a *Attempt) error {
	var exitCode sql.NullInt64
	if a.ExitCode != nil {
		exitCode = sql.NullInt64{Int64: int64(*a.ExitCode), Valid: true}
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}

	query := `INSERT INTO job_attempts
		(run_id, batch_name, source_path, status, stage, exit_code, error_message, stderr, duration_ms, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := s.db.ExecContext(ctx, query,
		a.RunID,
		a.BatchName,
		a.SourcePath,
		string(a.Status),
		a.Stage,
		exitCode,
		a.ErrorMessage,
		a.Stderr,
		a.DurationMs,
		a.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert job attempt: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	a.ID = id
	return nil
}

const attemptColumns = `id, run_id, batch_name, source_path, status, stage, exit_code, error_message, stderr, duration_ms, timestamp`

// LastFailures returns the most recent failed attempt per source file of a
// batch, keyed by source path.
func (s *Store) LastFailures(ctx context.Context, batchName string) (map[string]*Attempt, error) {
	query := `SELECT ` + attemptColumns + `
		FROM job_attempts
		WHERE id IN (
			SELECT MAX(id) FROM job_attempts
			WHERE batch_name = ? AND status = ?
			GROUP BY source_path
		)`
	attempts, err := s.queryAttempts(ctx, query, batchName, string(models.StatusError))
	if err != nil {
		return nil, err
	}
	failures := make(map[string]*Attempt, len(attempts))
	for _, a := range attempts {
		failures[a.SourcePath] = a
	}
	return failures, nil
}

// Runs summarises the runs of a batch, most recent first.
func (s *Store) Runs(ctx context.Context, batchName string) ([]RunSummary, error) {
	query := `SELECT run_id, MIN(id) AS first_id, MIN(timestamp), COUNT(*),
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END)
		FROM job_attempts
		WHERE batch_name = ?
		GROUP BY run_id
		ORDER BY first_id DESC`

	rows, err := s.db.QueryContext(ctx, query, string(models.StatusError), batchName)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		var firstID int64
		var started string
		if err := rows.Scan(&r.RunID, &firstID, &started, &r.Attempted, &r.Failed); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		r.Started = parseTimestamp(started)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

func (s *Store) queryAttempts(ctx context.Context, query string, args ...any) ([]*Attempt, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*Attempt
	for rows.Next() {
		a := &Attempt{}
		var status string
		var stage, errorMessage, stderr sql.NullString
		var exitCode, duration sql.NullInt64
		err := rows.Scan(
			&a.ID,
			&a.RunID,
			&a.BatchName,
			&a.SourcePath,
			&status,
			&stage,
			&exitCode,
			&errorMessage,
			&stderr,
			&duration,
			&a.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan attempt row: %w", err)
		}

		a.Status = models.JobStatus(status)
		a.Stage = stage.String
		a.ErrorMessage = errorMessage.String
		a.Stderr = stderr.String
		a.DurationMs = duration.Int64
		if exitCode.Valid {
			code := int(exitCode.Int64)
			a.ExitCode = &code
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempt rows: %w", err)
	}
	return attempts, nil
}

// parseTimestamp reads an aggregate timestamp, which the driver returns as
// text rather than time.Time.
func parseTimestamp(s string) time.Time {
	layouts := []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02T15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999",
		time.RFC3339Nano,
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// tail keeps at most the last n bytes of s, where tools usually print the
// error. The cut never splits a UTF-8 sequence.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return s[start:]
}
