package history

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a run id is unknown
var ErrNotFound = errors.New("history: run not found")

// Store keeps an audit trail of sync passes in a local sqlite file
type Store struct {
	sql *sql.DB
}

func Open(path string) (*Store, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := d.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return nil, err
	}
	s := &Store{sql: d}
	if err := s.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.sql.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.sql.PingContext(ctx) }

func (s *Store) migrate() error {
	_, err := s.sql.Exec(`
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    started_at INTEGER NOT NULL,
    finished_at INTEGER NOT NULL,
    window_start TEXT NOT NULL,
    window_end TEXT NOT NULL,
    status TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS run_providers (
    run_id TEXT NOT NULL,
    provider TEXT NOT NULL,
    status TEXT NOT NULL,
    error_code TEXT,
    error_message TEXT,
    invoices_found INTEGER NOT NULL DEFAULT 0,
    documents_stored INTEGER NOT NULL DEFAULT 0,
    documents_skipped INTEGER NOT NULL DEFAULT 0,
    reminders_created INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (run_id, provider)
);
`)
	return err
}

// Run is one recorded sync pass
type Run struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time
	WindowStart string
	WindowEnd   string
	Status      string
	Providers   []ProviderResult
}

// ProviderResult is the per-provider outcome within a run
type ProviderResult struct {
	Provider         string
	Status           string
	ErrorCode        string
	ErrorMessage     string
	InvoicesFound    int
	DocumentsStored  int
	DocumentsSkipped int
	RemindersCreated int
}

func (s *Store) RecordRun(ctx context.Context, run Run) error {
	tx, err := s.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
INSERT INTO runs (id, started_at, finished_at, window_start, window_end, status)
VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.Unix(), run.FinishedAt.Unix(),
		run.WindowStart, run.WindowEnd, run.Status)
	if err != nil {
		return err
	}

	for _, p := range run.Providers {
		_, err = tx.ExecContext(ctx, `
INSERT INTO run_providers
    (run_id, provider, status, error_code, error_message,
     invoices_found, documents_stored, documents_skipped, reminders_created)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, p.Provider, p.Status, p.ErrorCode, p.ErrorMessage,
			p.InvoicesFound, p.DocumentsStored, p.DocumentsSkipped, p.RemindersCreated)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first, without provider detail
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.sql.QueryContext(ctx, `
SELECT id, started_at, finished_at, window_start, window_end, status
FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started, finished int64
		if err := rows.Scan(&r.ID, &started, &finished, &r.WindowStart, &r.WindowEnd, &r.Status); err != nil {
			return nil, err
		}
		r.StartedAt = time.Unix(started, 0).UTC()
		r.FinishedAt = time.Unix(finished, 0).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRun returns one run with its per-provider results
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	var r Run
	var started, finished int64
	err := s.sql.QueryRowContext(ctx, `
SELECT id, started_at, finished_at, window_start, window_end, status
FROM runs WHERE id = ?`, id).
		Scan(&r.ID, &started, &finished, &r.WindowStart, &r.WindowEnd, &r.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.StartedAt = time.Unix(started, 0).UTC()
	r.FinishedAt = time.Unix(finished, 0).UTC()

	rows, err := s.sql.QueryContext(ctx, `
SELECT provider, status, error_code, error_message,
       invoices_found, documents_stored, documents_skipped, reminders_created
FROM run_providers WHERE run_id = ? ORDER BY provider`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p ProviderResult
		var code, msg sql.NullString
		if err := rows.Scan(&p.Provider, &p.Status, &code, &msg,
			&p.InvoicesFound, &p.DocumentsStored, &p.DocumentsSkipped, &p.RemindersCreated); err != nil {
			return nil, err
		}
		p.ErrorCode = code.String
		p.ErrorMessage = msg.String
		r.Providers = append(r.Providers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &r, nil
}
