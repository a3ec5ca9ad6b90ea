package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crewchat-hq/crewchat/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Pool exposes the underlying connection pool so the member directory can
// share it; the platform's users and project_members tables live in the same
// database as the message log.
func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Append persists a message and returns it with the assigned id.
func (s *PostgresStore) Append(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error) {
	stored := *msg
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO messages (project_id, sender_id, receiver_id, content, created_at, delivered)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, stored.ProjectID, stored.SenderID, stored.ReceiverID, stored.Content, stored.CreatedAt, stored.Delivered).
		Scan(&stored.ID)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// MarkDelivered flips the delivered flag. Already-delivered rows are left
// untouched, so repeated calls are no-ops.
func (s *PostgresStore) MarkDelivered(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE messages SET delivered = TRUE WHERE id = $1 AND delivered = FALSE
	`, id)
	return err
}

// PendingFor returns undelivered direct messages for a user, oldest first.
func (s *PostgresStore) PendingFor(ctx context.Context, userID int64) ([]models.ChatMessage, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, project_id, sender_id, receiver_id, content, created_at, delivered
		FROM messages
		WHERE receiver_id = $1 AND delivered = FALSE
		ORDER BY created_at ASC, id ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

// HistoryFor returns all messages for a project, oldest first.
func (s *PostgresStore) HistoryFor(ctx context.Context, projectID int64) ([]models.ChatMessage, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, project_id, sender_id, receiver_id, content, created_at, delivered
		FROM messages
		WHERE project_id = $1
		ORDER BY created_at ASC, id ASC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

// rowScanner is satisfied by both pgx.Rows and database/sql *Rows iterations.
type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanMessages(rows rowScanner) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	for rows.Next() {
		var msg models.ChatMessage
		err := rows.Scan(
			&msg.ID,
			&msg.ProjectID,
			&msg.SenderID,
			&msg.ReceiverID,
			&msg.Content,
			&msg.CreatedAt,
			&msg.Delivered,
		)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
