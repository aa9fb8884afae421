// Package journal keeps a SQLite log of harvest sessions for the history
// command.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const fileName = "journal.db"

// Run is one recorded session.
type Run struct {
	ID          string
	StartURL    string
	Host        string
	Mode        string
	Status      string
	Reason      string
	Chapters    int
	NewChapters int
	Recoveries  int
	Artifact    string
	StartedAt   time.Time
	FinishedAt  time.Time
}

func (r Run) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

type Journal struct {
	db   *sql.DB
	path string
}

// Open opens or creates the journal in dir.
func Open(dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("journal: create dir: %w", err)
	}

	path := filepath.Join(dir, fileName)
	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("journal: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	j := &Journal{db: db, path: path}
	if err := j.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}
	return j, nil
}

func (j *Journal) Path() string { return j.path }

func (j *Journal) Close() error { return j.db.Close() }

func (j *Journal) migrate(ctx context.Context) error {
	_, err := j.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		start_url TEXT NOT NULL,
		host TEXT NOT NULL,
		mode TEXT NOT NULL,
		status TEXT NOT NULL,
		reason TEXT,
		chapters INTEGER NOT NULL DEFAULT 0,
		new_chapters INTEGER NOT NULL DEFAULT 0,
		recoveries INTEGER NOT NULL DEFAULT 0,
		artifact TEXT,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_host ON runs(host);
	`)
	return err
}

// Record inserts r, replacing a row with the same id.
func (j *Journal) Record(ctx context.Context, r Run) error {
	_, err := j.db.ExecContext(ctx, `
	INSERT OR REPLACE INTO runs
		(id, start_url, host, mode, status, reason, chapters, new_chapters, recoveries, artifact, started_at, finished_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartURL, r.Host, r.Mode, r.Status, r.Reason,
		r.Chapters, r.NewChapters, r.Recoveries, r.Artifact,
		r.StartedAt.UnixMilli(), r.FinishedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("journal: record %s: %w", r.ID, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first. host filters when non-empty.
func (j *Journal) Recent(ctx context.Context, host string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	q := `SELECT id, start_url, host, mode, status, COALESCE(reason, ''), chapters, new_chapters,
		recoveries, COALESCE(artifact, ''), started_at, finished_at FROM runs`
	args := []any{}
	if host != "" {
		q += ` WHERE host = ?`
		args = append(args, host)
	}
	q += ` ORDER BY started_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished int64
		)
		if err := rows.Scan(&r.ID, &r.StartURL, &r.Host, &r.Mode, &r.Status, &r.Reason,
			&r.Chapters, &r.NewChapters, &r.Recoveries, &r.Artifact, &started, &finished); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		r.StartedAt = time.UnixMilli(started)
		r.FinishedAt = time.UnixMilli(finished)
		out = append(out, r)
	}
	return out, rows.Err()
}
