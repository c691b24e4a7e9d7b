// ABOUTME: SQLite implementation of LocalStore and ChatStore using modernc.org/sqlite
// ABOUTME: Provides namespaced local storage and chat transcripts with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// SQLiteStore implements LocalStore and ChatStore using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != MemoryPath {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Each connection to :memory: is a separate database
	if path == MemoryPath {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS local_storage (
			namespace TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (namespace, key)
		);

		CREATE TABLE IF NOT EXISTS chat_messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			namespace TEXT NOT NULL,
			sender TEXT NOT NULL,
			text TEXT NOT NULL,
			created_at TEXT NOT NULL,

			CHECK (sender IN ('admin', 'ai'))
		);

		CREATE INDEX IF NOT EXISTS idx_chat_messages_namespace
			ON chat_messages(namespace, id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Ping checks that the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// GetItem returns one entry of a namespace.
// Returns ErrNotFound if the key is not set.
func (s *SQLiteStore) GetItem(ctx context.Context, namespace, key string) (*Item, error) {
	query := `SELECT value, updated_at FROM local_storage WHERE namespace = ? AND key = ?`

	var value, updatedAt string
	err := s.db.QueryRowContext(ctx, query, namespace, key).Scan(&value, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying item: %w", err)
	}

	item := &Item{Namespace: namespace, Key: key, Value: value}
	item.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return item, nil
}

// SetItem saves or replaces one entry of a namespace.
func (s *SQLiteStore) SetItem(ctx context.Context, namespace, key, value string) error {
	query := `
		INSERT INTO local_storage (namespace, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (namespace, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		namespace,
		key,
		value,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving item: %w", err)
	}

	s.logger.Debug("saved item", "key", key, "size", len(value))
	return nil
}

// RemoveItem deletes one entry. Removing a missing key is not an error.
func (s *SQLiteStore) RemoveItem(ctx context.Context, namespace, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM local_storage WHERE namespace = ? AND key = ?`, namespace, key)
	if err != nil {
		return fmt.Errorf("removing item: %w", err)
	}
	return nil
}

// ListKeys returns the keys of a namespace in lexical order.
func (s *SQLiteStore) ListKeys(ctx context.Context, namespace string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM local_storage WHERE namespace = ? ORDER BY key`, namespace)
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// SaveChatMessage appends a message to a namespace's transcript and sets its ID.
func (s *SQLiteStore) SaveChatMessage(ctx context.Context, msg *ChatMessage) error {
	if msg.Namespace == "" {
		return ErrEmptyNamespace
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO chat_messages (namespace, sender, text, created_at)
		VALUES (?, ?, ?, ?)
	`
	res, err := s.db.ExecContext(ctx, query,
		msg.Namespace,
		msg.Sender,
		msg.Text,
		msg.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting chat message: %w", err)
	}

	msg.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading chat message id: %w", err)
	}
	return nil
}

// ListChatMessages returns the newest limit messages of a transcript, oldest first.
// A limit of zero or less returns the whole transcript.
func (s *SQLiteStore) ListChatMessages(ctx context.Context, namespace string, limit int) ([]*ChatMessage, error) {
	if limit <= 0 {
		limit = -1
	}

	query := `
		SELECT id, sender, text, created_at FROM (
			SELECT id, sender, text, created_at
			FROM chat_messages
			WHERE namespace = ?
			ORDER BY id DESC
			LIMIT ?
		) ORDER BY id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, namespace, limit)
	if err != nil {
		return nil, fmt.Errorf("querying chat messages: %w", err)
	}
	defer rows.Close()

	var messages []*ChatMessage
	for rows.Next() {
		msg := &ChatMessage{Namespace: namespace}
		var createdAt string
		if err := rows.Scan(&msg.ID, &msg.Sender, &msg.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning chat message: %w", err)
		}
		msg.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

var (
	_ LocalStore = (*SQLiteStore)(nil)
	_ ChatStore  = (*SQLiteStore)(nil)
)
