package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// RunStatus is the state of an expansion run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run records one invocation of the expand command.
type Run struct {
	ID          string     `json:"id" yaml:"id"`
	Files       []string   `json:"files" yaml:"files"`
	Status      RunStatus  `json:"status" yaml:"status"`
	Expansions  int        `json:"expansions" yaml:"expansions"`
	Diagnostics int        `json:"diagnostics" yaml:"diagnostics"`
	Error       string     `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at" yaml:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// CreateRun starts a run over files.
func (s *Store) CreateRun(ctx context.Context, files []string) (*Run, error) {
	if s.db == nil {
		return nil, errNotOpen
	}
	run := &Run{
		ID:        generateID(),
		Files:     nonNil(files),
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	encoded, err := json.Marshal(run.Files)
	if err != nil {
		return nil, fmt.Errorf("failed to encode files: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, files, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, string(encoded), string(run.Status), formatTime(run.StartedAt),
	); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// CompleteRun records the outcome of a run. A non-nil runErr marks it failed.
func (s *Store) CompleteRun(ctx context.Context, id string, expansions, diagnostics int, runErr error) error {
	if s.db == nil {
		return errNotOpen
	}
	status := RunStatusCompleted
	var msg sql.NullString
	if runErr != nil {
		status = RunStatusFailed
		msg = sql.NullString{String: runErr.Error(), Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, expansions = ?, diagnostics = ?, error = ?, completed_at = ? WHERE id = ?`,
		string(status), expansions, diagnostics, msg, formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetRun returns a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	if s.db == nil {
		return nil, errNotOpen
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, files, status, expansions, diagnostics, error, started_at, completed_at FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return run, err
}

// ListRuns returns up to limit runs, newest first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, errNotOpen
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, files, status, expansions, diagnostics, error, started_at, completed_at FROM runs ORDER BY started_at DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return out, nil
}

func scanRun(sc scanner) (*Run, error) {
	var (
		run              Run
		files, status    string
		started          string
		errMsg, finished sql.NullString
	)
	if err := sc.Scan(&run.ID, &files, &status, &run.Expansions, &run.Diagnostics, &errMsg, &started, &finished); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read run: %w", err)
	}
	run.Status = RunStatus(status)
	if err := json.Unmarshal([]byte(files), &run.Files); err != nil {
		return nil, fmt.Errorf("failed to decode files of run %s: %w", run.ID, err)
	}
	t, err := parseTime(started)
	if err != nil {
		return nil, fmt.Errorf("failed to parse start time of run %s: %w", run.ID, err)
	}
	run.StartedAt = t
	if finished.Valid {
		t, err := parseTime(finished.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse completion time of run %s: %w", run.ID, err)
		}
		run.CompletedAt = &t
	}
	if errMsg.Valid {
		run.Error = errMsg.String
	}
	return &run, nil
}
