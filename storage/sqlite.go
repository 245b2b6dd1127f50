// Package storage persists conversation turns and reads operational data.
//
// Two backends exist: Postgres for production and SQLite for local runs
// and tests. Both are safe for concurrent use through their driver's
// connection pooling.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/meatline/meatline/history"
)

// SqliteStore implements history.TurnStore on a local SQLite file.
// Intended for development and tests where Postgres is unavailable.
type SqliteStore struct {
	db *sql.DB
}

// OpenSqlite opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string) (*SqliteStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	store := &SqliteStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory() (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}

	store := &SqliteStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

func (s *SqliteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS conversation_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			client_phone TEXT NOT NULL,
			role TEXT NOT NULL,
			message TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_history_client
		ON conversation_history(client_phone, id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Append adds turns to the end of a client's log. Turns are never
// rewritten in place.
func (s *SqliteStore) Append(ctx context.Context, turns []history.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO conversation_history (client_phone, role, message, created_at) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	for _, t := range turns {
		created := t.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx, t.ClientID, t.Role, t.Message, created.Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("failed to insert turn: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// List returns a client's turns in insertion order.
// Returns empty slice if the client has no history.
func (s *SqliteStore) List(ctx context.Context, clientID string) ([]history.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT client_phone, role, message, created_at FROM conversation_history WHERE client_phone = ? ORDER BY id ASC",
		clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	turns := []history.Turn{}
	for rows.Next() {
		var t history.Turn
		var created string
		if err := rows.Scan(&t.ClientID, &t.Role, &t.Message, &created); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		if ts, perr := time.Parse(time.RFC3339Nano, created); perr == nil {
			t.CreatedAt = ts
		}
		turns = append(turns, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating turns: %w", err)
	}
	return turns, nil
}

// DeleteAll removes every turn for a client.
func (s *SqliteStore) DeleteAll(ctx context.Context, clientID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM conversation_history WHERE client_phone = ?",
		clientID)
	if err != nil {
		return fmt.Errorf("failed to delete history: %w", err)
	}
	return nil
}

var _ history.TurnStore = (*SqliteStore)(nil)
