package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS caption_jobs (
    id TEXT PRIMARY KEY,
    status TEXT NOT NULL,
    record TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
)`

const (
	sqliteBusyCode          = 5
	sqliteConstraintCode    = 19
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// SQLiteStore keeps each job as a JSON document in one row.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLiteStore opens (or creates) the database at path.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite store: create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range append(pragmas, sqliteSchema) {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, execErr)
		}
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Create inserts a new row, failing with ErrExists on a duplicate id.
func (s *SQLiteStore) Create(ctx context.Context, job *Job) error {
	if err := checkID(job.ID); err != nil {
		return err
	}
	record, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("sqlite store: encode %s: %w", job.ID, err)
	}
	err = retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx,
			`INSERT INTO caption_jobs (id, status, record, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			job.ID, string(job.Status), string(record), formatTime(job.CreatedAt), formatTime(job.UpdatedAt),
		)
		return execErr
	})
	if err != nil {
		if isConstraint(err) {
			return fmt.Errorf("%w: %s", ErrExists, job.ID)
		}
		return fmt.Errorf("sqlite store: insert %s: %w", job.ID, err)
	}
	return nil
}

// Load returns the job for id, or (nil, nil) when absent.
func (s *SQLiteStore) Load(ctx context.Context, id string) (*Job, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	var record string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM caption_jobs WHERE id = ?`, id).Scan(&record)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite store: load %s: %w", id, err)
	}
	return decodeRecord(id, []byte(record))
}

// Save upserts the whole record in one statement.
func (s *SQLiteStore) Save(ctx context.Context, job *Job) error {
	if err := checkID(job.ID); err != nil {
		return err
	}
	record, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("sqlite store: encode %s: %w", job.ID, err)
	}
	err = retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx,
			`INSERT INTO caption_jobs (id, status, record, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
             ON CONFLICT(id) DO UPDATE SET status = excluded.status, record = excluded.record, updated_at = excluded.updated_at`,
			job.ID, string(job.Status), string(record), formatTime(job.CreatedAt), formatTime(job.UpdatedAt),
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("sqlite store: save %s: %w", job.ID, err)
	}
	return nil
}

// List returns up to limit jobs, newest first. A limit <= 0 returns all.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]*Job, error) {
	query := `SELECT id, record FROM caption_jobs ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: list: %w", err)
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		var id, record string
		if err := rows.Scan(&id, &record); err != nil {
			return nil, fmt.Errorf("sqlite store: scan: %w", err)
		}
		job, err := decodeRecord(id, []byte(record))
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func decodeRecord(id string, data []byte) (*Job, error) {
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &job, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func sqliteCode(err error) int {
	var coder interface{ Code() int }
	if errors.As(err, &coder) {
		return coder.Code() & 0xff
	}
	return 0
}

func isConstraint(err error) bool {
	return sqliteCode(err) == sqliteConstraintCode || strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	if sqliteCode(err) == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if !isBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
