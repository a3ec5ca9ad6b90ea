package member

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDirectory reads membership facts from the platform database. It
// shares the message store's connection pool.
type PostgresDirectory struct {
	pool *pgxpool.Pool
}

// NewPostgresDirectory creates a directory backed by the given pool.
func NewPostgresDirectory(pool *pgxpool.Pool) *PostgresDirectory {
	return &PostgresDirectory{pool: pool}
}

// IsCollaborator reports whether the user holds a role on the project.
func (d *PostgresDirectory) IsCollaborator(ctx context.Context, userID, projectID int64) (bool, error) {
	var exists bool
	err := d.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM project_members WHERE user_id = $1 AND project_id = $2
		)
	`, userID, projectID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// RoleOf returns the user's role on the project.
func (d *PostgresDirectory) RoleOf(ctx context.Context, userID, projectID int64) (string, error) {
	var role string
	err := d.pool.QueryRow(ctx, `
		SELECT role FROM project_members WHERE user_id = $1 AND project_id = $2
	`, userID, projectID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	return role, nil
}

// UsernameForID resolves a user id to a username.
func (d *PostgresDirectory) UsernameForID(ctx context.Context, userID int64) (string, error) {
	var username string
	err := d.pool.QueryRow(ctx, `
		SELECT username FROM users WHERE id = $1
	`, userID).Scan(&username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	return username, nil
}

// UserIDForUsername resolves a username to a user id.
func (d *PostgresDirectory) UserIDForUsername(ctx context.Context, username string) (int64, error) {
	var id int64
	err := d.pool.QueryRow(ctx, `
		SELECT id FROM users WHERE username = $1
	`, username).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return id, nil
}
