package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// MacroRecord is one macro definition found in a source file.
type MacroRecord struct {
	Name      string    `json:"name" yaml:"name"`
	File      string    `json:"file" yaml:"file"`
	Line      int       `json:"line" yaml:"line"`
	Formals   []string  `json:"formals" yaml:"formals"`
	Body      string    `json:"body" yaml:"body"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// SaveMacros replaces every record previously saved for file with defs.
func (s *Store) SaveMacros(ctx context.Context, file string, defs []MacroRecord) error {
	if s.db == nil {
		return errNotOpen
	}
	now := formatTime(time.Now())

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM macros WHERE file = ?`, file); err != nil {
			return fmt.Errorf("failed to clear macros for %s: %w", file, err)
		}
		for _, d := range defs {
			formals, err := json.Marshal(nonNil(d.Formals))
			if err != nil {
				return fmt.Errorf("failed to encode formals of %s: %w", d.Name, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO macros (name, file, line, formals, body, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
				d.Name, file, d.Line, string(formals), d.Body, now,
			); err != nil {
				return fmt.Errorf("failed to save macro %s: %w", d.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Debug("saved macros", "file", file, "count", len(defs))
	return nil
}

// ListMacros returns every record ordered by name, then file.
func (s *Store) ListMacros(ctx context.Context) ([]MacroRecord, error) {
	if s.db == nil {
		return nil, errNotOpen
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, file, line, formals, body, updated_at FROM macros ORDER BY name, file`)
	if err != nil {
		return nil, fmt.Errorf("failed to list macros: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []MacroRecord
	for rows.Next() {
		rec, err := scanMacro(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list macros: %w", err)
	}
	return out, nil
}

// GetMacro returns the most recently saved record with the given name.
func (s *Store) GetMacro(ctx context.Context, name string) (*MacroRecord, error) {
	if s.db == nil {
		return nil, errNotOpen
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT name, file, line, formals, body, updated_at FROM macros WHERE name = ? ORDER BY updated_at DESC, file LIMIT 1`,
		name)
	rec, err := scanMacro(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("macro %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMacro(sc scanner) (MacroRecord, error) {
	var (
		rec              MacroRecord
		formals, updated string
	)
	if err := sc.Scan(&rec.Name, &rec.File, &rec.Line, &formals, &rec.Body, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("failed to read macro: %w", err)
	}
	if err := json.Unmarshal([]byte(formals), &rec.Formals); err != nil {
		return rec, fmt.Errorf("failed to decode formals of %s: %w", rec.Name, err)
	}
	t, err := parseTime(updated)
	if err != nil {
		return rec, fmt.Errorf("failed to parse timestamp of %s: %w", rec.Name, err)
	}
	rec.UpdatedAt = t
	return rec, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
