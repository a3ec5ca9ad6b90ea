package member

import (
	"context"
	"database/sql"
	"errors"
)

// SQLiteDirectory reads membership facts from the SQLite development
// database. It shares the SQLite message store's handle.
type SQLiteDirectory struct {
	db *sql.DB
}

// NewSQLiteDirectory creates a directory backed by the given handle.
func NewSQLiteDirectory(db *sql.DB) *SQLiteDirectory {
	return &SQLiteDirectory{db: db}
}

// IsCollaborator reports whether the user holds a role on the project.
func (d *SQLiteDirectory) IsCollaborator(ctx context.Context, userID, projectID int64) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM project_members WHERE user_id = ? AND project_id = ?
		)
	`, userID, projectID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// RoleOf returns the user's role on the project.
func (d *SQLiteDirectory) RoleOf(ctx context.Context, userID, projectID int64) (string, error) {
	var role string
	err := d.db.QueryRowContext(ctx, `
		SELECT role FROM project_members WHERE user_id = ? AND project_id = ?
	`, userID, projectID).Scan(&role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	return role, nil
}

// UsernameForID resolves a user id to a username.
func (d *SQLiteDirectory) UsernameForID(ctx context.Context, userID int64) (string, error) {
	var username string
	err := d.db.QueryRowContext(ctx, `
		SELECT username FROM users WHERE id = ?
	`, userID).Scan(&username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	return username, nil
}

// UserIDForUsername resolves a username to a user id.
func (d *SQLiteDirectory) UserIDForUsername(ctx context.Context, username string) (int64, error) {
	var id int64
	err := d.db.QueryRowContext(ctx, `
		SELECT id FROM users WHERE username = ?
	`, username).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return id, nil
}
