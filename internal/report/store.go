// Package report stores scan results in SQLite so large scans can be
// inspected after the fact.
//
// Store is safe for concurrent use. SaveRun writes a run and its matches
// in one transaction.
package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver

	"pagefind/internal/domain"
)

// Run is one scan: a query searched across the pages found below Roots.
type Run struct {
	ID        int64     `json:"id"`
	Query     string    `json:"query"`
	Roots     []string  `json:"roots"`
	Pages     int       `json:"pages"`
	Matched   int       `json:"matched"`
	StartedAt time.Time `json:"started_at"`
}

// Page is the result of a run on one page that matched.
type Page struct {
	Source  string             `json:"source"`
	Mode    string             `json:"mode"`
	Matches []domain.MatchInfo `json:"matches"`
}

// Store persists runs in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate report database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query TEXT NOT NULL,
		roots TEXT NOT NULL DEFAULT '[]',
		pages INTEGER NOT NULL DEFAULT 0,
		matched INTEGER NOT NULL DEFAULT 0,
		started_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS matches (
		run_id INTEGER NOT NULL,
		source TEXT NOT NULL,
		mode TEXT NOT NULL,
		position INTEGER NOT NULL,
		tag TEXT NOT NULL,
		text TEXT NOT NULL DEFAULT '',
		locator TEXT NOT NULL DEFAULT '',
		path TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_matches_run ON matches(run_id, source, position);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores run with the pages that matched and returns its id.
// run.ID and run.Matched are ignored.
func (s *Store) SaveRun(ctx context.Context, run Run, pages []Page) (int64, error) {
	roots, err := json.Marshal(run.Roots)
	if err != nil {
		return 0, fmt.Errorf("failed to encode roots: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (query, roots, pages, matched, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.Query, string(roots), run.Pages, len(pages), run.StartedAt.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO matches (run_id, source, mode, position, tag, text, locator, path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range pages {
		for _, m := range p.Matches {
			if _, err := stmt.ExecContext(ctx, id, p.Source, p.Mode, m.Index, m.Tag, m.Text, m.Locator, m.Path); err != nil {
				return 0, fmt.Errorf("failed to save match: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

// Runs returns up to limit runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, query, roots, pages, matched, started_at
		FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r         Run
			roots     string
			startedAt int64
		)
		if err := rows.Scan(&r.ID, &r.Query, &roots, &r.Pages, &r.Matched, &startedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(roots), &r.Roots); err != nil {
			return nil, fmt.Errorf("failed to decode roots of run %d: %w", r.ID, err)
		}
		r.StartedAt = time.Unix(0, startedAt)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Pages returns the pages that matched in run id, ordered by source.
func (s *Store) Pages(ctx context.Context, id int64) ([]Page, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source, mode, position, tag, text, locator, path
		FROM matches WHERE run_id = ? ORDER BY source, position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var pages []Page
	for rows.Next() {
		var (
			source, mode string
			m            domain.MatchInfo
		)
		if err := rows.Scan(&source, &mode, &m.Index, &m.Tag, &m.Text, &m.Locator, &m.Path); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		if n := len(pages); n == 0 || pages[n-1].Source != source {
			pages = append(pages, Page{Source: source, Mode: mode})
		}
		last := &pages[len(pages)-1]
		last.Matches = append(last.Matches, m)
	}
	return pages, rows.Err()
}

// Delete removes run id and its matches.
func (s *Store) Delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM matches WHERE run_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete matches: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %d not found", id)
	}
	return tx.Commit()
}
