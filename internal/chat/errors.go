package chat

import (
	"errors"
	"fmt"
)

// ErrKind classifies command failures so callers and the wire layer branch
// on kind instead of matching error strings.
type ErrKind string

const (
	// KindAuthorizationDenied: the sender or the named receiver is not a
	// collaborator on the project. No state was mutated.
	KindAuthorizationDenied ErrKind = "AUTHORIZATION_DENIED"

	// KindPersistenceFailure: the store could not record or update the
	// message. For direct sends the whole send was aborted.
	KindPersistenceFailure ErrKind = "PERSISTENCE_FAILURE"

	// KindUnknownUser: a username or user id lookup missed.
	KindUnknownUser ErrKind = "UNKNOWN_USER"
)

// Error is a command failure reported synchronously to the issuing
// connection.
type Error struct {
	Kind    ErrKind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func denied(format string, args ...any) *Error {
	return &Error{Kind: KindAuthorizationDenied, Message: fmt.Sprintf(format, args...)}
}

func persistence(msg string, cause error) *Error {
	return &Error{Kind: KindPersistenceFailure, Message: msg, cause: cause}
}

func unknownUser(format string, args ...any) *Error {
	return &Error{Kind: KindUnknownUser, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the failure kind from an error chain. The second return is
// false for transport or store errors that carry no chat classification.
func KindOf(err error) (ErrKind, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return "", false
}
