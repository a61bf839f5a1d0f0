// Package db persists finalized questionnaire results to SQLite.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/immuned/rheumabot/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS results (
	id TEXT PRIMARY KEY,
	phone TEXT NOT NULL,
	score INTEGER NOT NULL,
	severity TEXT NOT NULL,
	completed_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS result_answers (
	result_id TEXT NOT NULL REFERENCES results(id),
	ordinal INTEGER NOT NULL,
	question TEXT NOT NULL,
	answer TEXT NOT NULL,
	rank INTEGER NOT NULL,
	PRIMARY KEY (result_id, ordinal)
);
`

// SQLiteSink writes completed questionnaires. It is the fire-and-forget
// boundary of the conversation flow: callers report its errors and move on.
type SQLiteSink struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and prepares the schema.
func Open(path string) (*SQLiteSink, error) {
	if path == "" {
		return nil, errors.New("db: empty path")
	}
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("db: open %s: %w", path, err)
	}
	return NewSQLiteSink(conn)
}

// NewSQLiteSink wraps an existing connection, applying pragmas and schema.
func NewSQLiteSink(conn *sql.DB) (*SQLiteSink, error) {
	if conn == nil {
		return nil, errors.New("db: nil conn")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := conn.Exec(stmt); err != nil {
			return nil, fmt.Errorf("db: apply pragma %q: %w", stmt, err)
		}
	}
	if _, err := conn.Exec(schema); err != nil {
		return nil, fmt.Errorf("db: create schema: %w", err)
	}
	return &SQLiteSink{db: conn}, nil
}

// SaveResult stores one result and its answers in a single transaction. The
// answer rows are written exactly as captured at append time.
func (s *SQLiteSink) SaveResult(ctx context.Context, r *models.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO results (id, phone, score, severity, completed_at) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.Phone, r.Score.Numeric, string(r.Score.Severity), r.CompletedAt,
	); err != nil {
		return fmt.Errorf("db: insert result %s: %w", r.ID, err)
	}
	for _, a := range r.Answers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO result_answers (result_id, ordinal, question, answer, rank) VALUES (?, ?, ?, ?, ?)`,
			r.ID, a.Ordinal, a.Prompt, a.Label, a.Rank,
		); err != nil {
			return fmt.Errorf("db: insert answer %d for %s: %w", a.Ordinal, r.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("db: commit %s: %w", r.ID, err)
	}
	return nil
}

// GetResult loads one result with its answers, mainly for tests and ops.
func (s *SQLiteSink) GetResult(ctx context.Context, id string) (*models.Result, error) {
	r := &models.Result{ID: id}
	var severity string
	err := s.db.QueryRowContext(ctx,
		`SELECT phone, score, severity, completed_at FROM results WHERE id = ?`, id,
	).Scan(&r.Phone, &r.Score.Numeric, &severity, &r.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("db: get result %s: %w", id, err)
	}
	r.Score.Severity = models.Severity(severity)

	rows, err := s.db.QueryContext(ctx,
		`SELECT ordinal, question, answer, rank FROM result_answers WHERE result_id = ? ORDER BY ordinal`, id)
	if err != nil {
		return nil, fmt.Errorf("db: get answers %s: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var a models.Answer
		if err := rows.Scan(&a.Ordinal, &a.Prompt, &a.Label, &a.Rank); err != nil {
			return nil, fmt.Errorf("db: scan answer: %w", err)
		}
		r.Answers = append(r.Answers, a)
	}
	return r, rows.Err()
}

// Close closes the underlying connection.
func (s *SQLiteSink) Close() error { return s.db.Close() }
