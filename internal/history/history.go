// Package history persists finished runs to a local SQLite database so an
// operator can answer "when did this node last come up cleanly" without
// grepping the run log. Rows are only ever inserted.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"meshup"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	role        TEXT NOT NULL,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	status      TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS stages (
	run_id     INTEGER NOT NULL REFERENCES runs(id),
	idx        INTEGER NOT NULL,
	stage      TEXT NOT NULL,
	outcome    TEXT NOT NULL,
	elapsed_ms INTEGER NOT NULL,
	detail     TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, idx)
);`

// Store records finished runs.
type Store struct {
	db *sql.DB
}

// Open opens the history database at path, creating file, directory, and
// schema as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts a finalized run with its stages in one transaction and
// fills in run.ID.
func (s *Store) Record(ctx context.Context, run *meshup.Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (role, started_at, finished_at, status) VALUES (?, ?, ?, ?)`,
		string(run.Role), run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(), run.Status.String())
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read run id: %w", err)
	}

	for i, st := range run.Stages {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO stages (run_id, idx, stage, outcome, elapsed_ms, detail) VALUES (?, ?, ?, ?, ?, ?)`,
			id, i, st.Stage, st.Outcome.String(), st.Elapsed.Milliseconds(), st.Detail); err != nil {
			return fmt.Errorf("insert stage %s: %w", st.Stage, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit history tx: %w", err)
	}
	run.ID = id
	return nil
}

// Recent returns the newest runs first, without stage detail.
func (s *Store) Recent(ctx context.Context, limit int) ([]meshup.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, started_at, finished_at, status FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []meshup.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Get returns one run with its stages in execution order. A missing id
// maps to os.ErrNotExist.
func (s *Store) Get(ctx context.Context, id int64) (*meshup.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, role, started_at, finished_at, status FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, os.ErrNotExist
		}
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT stage, outcome, elapsed_ms, coalesce(detail, '') FROM stages WHERE run_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			stage   string
			outcome string
			ms      int64
			detail  string
		)
		if err := rows.Scan(&stage, &outcome, &ms, &detail); err != nil {
			return nil, fmt.Errorf("read stage: %w", err)
		}
		parsed, ok := meshup.ParseOutcome(outcome)
		if !ok {
			return nil, fmt.Errorf("unknown stage outcome %q", outcome)
		}
		run.Stages = append(run.Stages, meshup.StageResult{
			Stage:   stage,
			Outcome: parsed,
			Elapsed: time.Duration(ms) * time.Millisecond,
			Detail:  detail,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	return &run, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (meshup.Run, error) {
	var (
		run      meshup.Run
		role     string
		started  int64
		finished int64
		status   string
	)
	if err := row.Scan(&run.ID, &role, &started, &finished, &status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return meshup.Run{}, sql.ErrNoRows
		}
		return meshup.Run{}, fmt.Errorf("read run: %w", err)
	}
	parsed, ok := meshup.ParseStatus(status)
	if !ok {
		return meshup.Run{}, fmt.Errorf("unknown run status %q", status)
	}
	run.Role = meshup.Role(role)
	run.StartedAt = time.UnixMilli(started).UTC()
	run.FinishedAt = time.UnixMilli(finished).UTC()
	run.Status = parsed
	return run, nil
}
