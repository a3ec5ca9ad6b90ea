package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// RunMigrations creates the messages table and its indexes on PostgreSQL.
// The users and project_members tables are owned by the platform CRUD
// service and are expected to exist already; this service only reads them.
func RunMigrations(databaseURL string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		id BIGSERIAL PRIMARY KEY,
		project_id BIGINT NOT NULL,
		sender_id BIGINT NOT NULL,
		receiver_id BIGINT,
		content TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		delivered BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE INDEX IF NOT EXISTS idx_messages_pending
		ON messages(receiver_id, created_at) WHERE delivered = FALSE;
	CREATE INDEX IF NOT EXISTS idx_messages_project
		ON messages(project_id, created_at);
	`

	_, err = conn.Exec(ctx, schema)
	return err
}
