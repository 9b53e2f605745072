// Package store persists run history and session memory in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"

	"github.com/valpere/autodoceval/internal"
	"github.com/valpere/autodoceval/internal/history"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS eval_runs (
		id TEXT PRIMARY KEY,
		doc_path TEXT NOT NULL,
		run_type TEXT NOT NULL,
		target_score REAL,
		max_iterations INTEGER,
		scale TEXT,
		status TEXT,
		initial_score REAL,
		final_score REAL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS eval_iterations (
		run_id TEXT NOT NULL,
		idx INTEGER NOT NULL,
		score REAL NOT NULL,
		feedback TEXT,
		delta REAL,
		output_path TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (run_id, idx),
		FOREIGN KEY (run_id) REFERENCES eval_runs(id)
	);

	-- memory_entries holds per-session evaluation and improvement summaries
	-- that providers fold back into their prompts.
	CREATE TABLE IF NOT EXISTS memory_entries (
		id TEXT PRIMARY KEY,
		memory_id TEXT NOT NULL,
		entry TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_iterations_run ON eval_iterations(run_id);
	CREATE INDEX IF NOT EXISTS idx_memory_lookup ON memory_entries(memory_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) SaveRun(ctx context.Context, run internal.EvalRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO eval_runs (id, doc_path, run_type, target_score, max_iterations, scale, status, initial_score, final_score, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.DocPath, run.RunType, run.TargetScore, run.MaxIterations, run.Scale,
		run.Status, run.InitialScore, run.FinalScore, run.Timestamp)
	return err
}

// UpdateRunOutcome records the terminal status and scores of a run.
func (s *Store) UpdateRunOutcome(ctx context.Context, runID string, status history.Status, initialScore, finalScore float64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE eval_runs SET status = ?, initial_score = ?, final_score = ? WHERE id = ?`,
		string(status), initialScore, finalScore, runID)
	return err
}

// SaveIteration persists one iteration record. Iterations are saved as they
// complete, so an aborted run keeps everything recorded before the failure.
func (s *Store) SaveIteration(ctx context.Context, runID string, rec history.Record) error {
	var delta sql.NullFloat64
	if rec.Delta != nil {
		delta = sql.NullFloat64{Float64: *rec.Delta, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO eval_iterations (run_id, idx, score, feedback, delta, output_path) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, rec.Index, rec.Score, rec.Feedback, delta, rec.OutputPath)
	return err
}

func (s *Store) GetRun(ctx context.Context, runID string) (*internal.EvalRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, doc_path, run_type, target_score, max_iterations, scale, status, initial_score, final_score, created_at
		 FROM eval_runs WHERE id = ?`, runID)

	var run internal.EvalRun
	err := row.Scan(&run.ID, &run.DocPath, &run.RunType, &run.TargetScore, &run.MaxIterations,
		&run.Scale, &run.Status, &run.InitialScore, &run.FinalScore, &run.Timestamp)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *Store) ListRuns(ctx context.Context) ([]internal.EvalRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, doc_path, run_type, target_score, max_iterations, scale, status, initial_score, final_score, created_at
		 FROM eval_runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []internal.EvalRun
	for rows.Next() {
		var run internal.EvalRun
		if err := rows.Scan(&run.ID, &run.DocPath, &run.RunType, &run.TargetScore, &run.MaxIterations,
			&run.Scale, &run.Status, &run.InitialScore, &run.FinalScore, &run.Timestamp); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListIterations returns a run's iteration records in index order.
func (s *Store) ListIterations(ctx context.Context, runID string) ([]history.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, score, feedback, delta, output_path FROM eval_iterations WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []history.Record
	for rows.Next() {
		var rec history.Record
		var delta sql.NullFloat64
		var outputPath sql.NullString
		if err := rows.Scan(&rec.Index, &rec.Score, &rec.Feedback, &delta, &outputPath); err != nil {
			return nil, err
		}
		if delta.Valid {
			v := delta.Float64
			rec.Delta = &v
		}
		rec.OutputPath = outputPath.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ClearRuns deletes all runs and their iterations. Memory entries survive;
// they belong to sessions, not runs.
func (s *Store) ClearRuns(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM eval_iterations`); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM eval_runs`)
	return err
}

// Record stores a session memory entry. Entries are normalized to NFC so
// lookups are stable across differently composed source text.
func (s *Store) Record(ctx context.Context, memoryID, entry string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memory_entries (id, memory_id, entry) VALUES (?, ?, ?)`,
		uuid.New().String(), norm.NFC.String(memoryID), norm.NFC.String(entry))
	return err
}

// Recall returns up to limit most recent entries for the session, oldest
// first so prompts read chronologically.
func (s *Store) Recall(ctx context.Context, memoryID string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT entry FROM (
			SELECT entry, created_at, rowid FROM memory_entries WHERE memory_id = ?
			ORDER BY created_at DESC, rowid DESC LIMIT ?
		 ) ORDER BY created_at ASC, rowid ASC`,
		norm.NFC.String(memoryID), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []string
	for rows.Next() {
		var entry string
		if err := rows.Scan(&entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ClearMemory deletes all entries for one session.
func (s *Store) ClearMemory(ctx context.Context, memoryID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM memory_entries WHERE memory_id = ?`, norm.NFC.String(memoryID))
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}
