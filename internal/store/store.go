// Package store persists which recordings were already processed so reruns
// are idempotent.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS processed_files (
	file_id TEXT PRIMARY KEY,
	file_name TEXT,
	manager_score INTEGER,
	processed_at TIMESTAMP
)`

// Store is the durable dedup record of processed file ids. It is the
// source of truth for "already handled", independent of the spreadsheet.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database and ensures the schema exists.
// Safe to call on every startup.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &Store{db: db}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// NewWithDB wraps an existing connection; the schema must already exist.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// SchemaSQL returns the authoritative table definition (used by tests).
func SchemaSQL() string {
	return schema
}

// Exists reports whether a file id was already fully processed.
func (s *Store) Exists(ctx context.Context, fileID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM processed_files WHERE file_id = ?", fileID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query processed_files: %w", err)
	}
	return true, nil
}

// Record upserts the processed mark for a file. Latest write wins, so
// recording the same id twice leaves exactly one row.
func (s *Store) Record(ctx context.Context, fileID, fileName string, score int) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO processed_files (file_id, file_name, manager_score, processed_at) VALUES (?, ?, ?, ?)",
		fileID, fileName, score, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to record processed file: %w", err)
	}
	return nil
}

// Count returns the number of processed records (used by tests and summaries).
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM processed_files").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count processed_files: %w", err)
	}
	return n, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
