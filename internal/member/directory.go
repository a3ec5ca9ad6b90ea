// Package member wraps the platform's collaborator data: who is on a
// project, with what role, and how usernames map to ids. The platform CRUD
// service owns these tables; this service only reads them, on every send,
// so a revoked membership takes effect on the next message attempt.
package member

import (
	"context"
	"errors"
)

// ErrUserNotFound is returned when a username or user id does not resolve.
var ErrUserNotFound = errors.New("user not found")

// Directory resolves collaborator membership and user identity.
type Directory interface {
	// IsCollaborator reports whether the user holds a role on the project.
	IsCollaborator(ctx context.Context, userID, projectID int64) (bool, error)

	// RoleOf returns the user's role on the project, or ErrUserNotFound if
	// the user is not a collaborator.
	RoleOf(ctx context.Context, userID, projectID int64) (string, error)

	// UsernameForID resolves a user id to a username, or ErrUserNotFound.
	UsernameForID(ctx context.Context, userID int64) (string, error)

	// UserIDForUsername resolves a username to a user id, or ErrUserNotFound.
	UserIDForUsername(ctx context.Context, username string) (int64, error)
}
