package store

import (
	"context"

	"github.com/crewchat-hq/crewchat/internal/models"
)

// MessageStore is the durable, append-only log of chat messages.
// Both PostgresStore and SQLiteStore implement this interface.
//
// Rows are never deleted by this service and never updated except for the
// one-way delivered flag transition performed by MarkDelivered.
type MessageStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Append persists a message and returns it with the assigned id and
	// creation timestamp filled in. A failed append means the message was
	// never recorded; callers must not push it as if it had been.
	Append(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error)

	// MarkDelivered flips the delivered flag to true. Marking an already
	// delivered (or nonexistent) message is a no-op.
	MarkDelivered(ctx context.Context, id int64) error

	// PendingFor returns undelivered direct messages addressed to the user,
	// ordered by creation timestamp ascending.
	PendingFor(ctx context.Context, userID int64) ([]models.ChatMessage, error)

	// HistoryFor returns all messages for a project, ordered by creation
	// timestamp ascending.
	HistoryFor(ctx context.Context, projectID int64) ([]models.ChatMessage, error)
}
