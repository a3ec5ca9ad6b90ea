package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/crewchat-hq/crewchat/internal/models"
)

// SQLiteStore handles SQLite database operations. It is the development and
// test backend; production deployments use PostgresStore against the shared
// platform database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/crewchat.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/crewchat.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	// Initialize schema
	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist. The users and
// project_members tables mirror the platform schema so the member directory
// works against the same file in development.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id INTEGER NOT NULL,
		sender_id INTEGER NOT NULL,
		receiver_id INTEGER,
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		delivered INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS project_members (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		project_id INTEGER NOT NULL,
		role TEXT NOT NULL DEFAULT '',
		UNIQUE(user_id, project_id)
	);

	CREATE INDEX IF NOT EXISTS idx_messages_pending ON messages(receiver_id, delivered);
	CREATE INDEX IF NOT EXISTS idx_messages_project ON messages(project_id, created_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// DB exposes the underlying handle for the member directory.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Append persists a message and returns it with the assigned id.
func (s *SQLiteStore) Append(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error) {
	stored := *msg
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (project_id, sender_id, receiver_id, content, created_at, delivered)
		VALUES (?, ?, ?, ?, ?, ?)
	`, stored.ProjectID, stored.SenderID, stored.ReceiverID, stored.Content, stored.CreatedAt, stored.Delivered)
	if err != nil {
		return nil, err
	}

	stored.ID, err = res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// MarkDelivered flips the delivered flag. Already-delivered rows are left
// untouched, so repeated calls are no-ops.
func (s *SQLiteStore) MarkDelivered(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE messages SET delivered = 1 WHERE id = ? AND delivered = 0
	`, id)
	return err
}

// PendingFor returns undelivered direct messages for a user, oldest first.
func (s *SQLiteStore) PendingFor(ctx context.Context, userID int64) ([]models.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, sender_id, receiver_id, content, created_at, delivered
		FROM messages
		WHERE receiver_id = ? AND delivered = 0
		ORDER BY created_at ASC, id ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

// HistoryFor returns all messages for a project, oldest first.
func (s *SQLiteStore) HistoryFor(ctx context.Context, projectID int64) ([]models.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, sender_id, receiver_id, content, created_at, delivered
		FROM messages
		WHERE project_id = ?
		ORDER BY created_at ASC, id ASC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}
