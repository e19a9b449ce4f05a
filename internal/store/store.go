// Package store persists pentools state (chat conversations, settings and
// the command log) in a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations(updated_at DESC);

CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS command_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    command TEXT NOT NULL,
    exit_code INTEGER,
    duration_ms INTEGER,
    output_len INTEGER,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`

// Store wraps the pentools SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) state.db inside dataDir.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return OpenPath(filepath.Join(dataDir, "state.db"))
}

// OpenPath opens the database file at path.
func OpenPath(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply sqlite schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// LogCommand records a shell execution.
func (s *Store) LogCommand(ctx context.Context, command string, exitCode int, duration time.Duration, outputLen int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO command_log (command, exit_code, duration_ms, output_len) VALUES (?, ?, ?, ?)`,
		command, exitCode, duration.Milliseconds(), outputLen)
	if err != nil {
		return fmt.Errorf("failed to log command: %w", err)
	}
	return nil
}

// CommandLogEntry is one row of the command log.
type CommandLogEntry struct {
	ID         int64
	Command    string
	ExitCode   int
	DurationMs int64
	OutputLen  int
	CreatedAt  string
}

// RecentCommands returns the newest command log rows first.
func (s *Store) RecentCommands(ctx context.Context, limit int) ([]CommandLogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, command, exit_code, duration_ms, output_len, created_at
		 FROM command_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []CommandLogEntry
	for rows.Next() {
		var e CommandLogEntry
		if err := rows.Scan(&e.ID, &e.Command, &e.ExitCode, &e.DurationMs, &e.OutputLen, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetSetting returns the value for key, or ErrNotFound.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting upserts key.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	return nil
}

// DeleteSetting removes key. Missing keys are not an error.
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key)
	return err
}

// ConversationRow is a stored conversation.
type ConversationRow struct {
	ID        string
	Title     string
	CreatedAt int64
	UpdatedAt int64
}

// InsertConversation stores a new conversation.
func (s *Store) InsertConversation(ctx context.Context, c ConversationRow) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.Title, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert conversation: %w", err)
	}
	return nil
}

// GetConversation returns the conversation with id, or ErrNotFound.
func (s *Store) GetConversation(ctx context.Context, id string) (*ConversationRow, error) {
	var c ConversationRow
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, created_at, updated_at FROM conversations WHERE id = ?`, id).
		Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation: %w", err)
	}
	return &c, nil
}

// ListConversations returns conversations newest-updated first. A non-empty
// keyword filters titles case-insensitively.
func (s *Store) ListConversations(ctx context.Context, keyword string) ([]ConversationRow, error) {
	query := `SELECT id, title, created_at, updated_at FROM conversations`
	var args []interface{}
	if keyword = strings.TrimSpace(keyword); keyword != "" {
		query += ` WHERE instr(lower(title), ?) > 0`
		args = append(args, strings.ToLower(keyword))
	}
	query += ` ORDER BY updated_at DESC, rowid DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ConversationRow
	for rows.Next() {
		var c ConversationRow
		if err := rows.Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateConversationTitle renames a conversation and bumps updated_at.
func (s *Store) UpdateConversationTitle(ctx context.Context, id, title string, updatedAt int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET title = ?, updated_at = ? WHERE id = ?`, title, updatedAt, id)
	if err != nil {
		return fmt.Errorf("failed to rename conversation: %w", err)
	}
	return expectRow(res)
}

// DeleteConversation removes a conversation.
func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return expectRow(res)
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
