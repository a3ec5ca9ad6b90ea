package models

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventKind is the closed set of feed event kinds.
type EventKind string

const (
	EventChat  EventKind = "CHAT"
	EventJoin  EventKind = "JOIN"
	EventLeave EventKind = "LEAVE"
)

// Event is what goes over a feed: a chat message or a join/leave
// announcement. Events are built through the constructors below so the kind
// field always matches the payload shape (JOIN/LEAVE carry no text).
type Event struct {
	ID        string    `json:"id"` // ULID
	Kind      EventKind `json:"kind"`
	ProjectID int64     `json:"project_id"`
	SenderID  int64     `json:"sender_id"`
	Username  string    `json:"username"`
	Text      string    `json:"text,omitempty"`
	Timestamp time.Time `json:"ts"`
}

// NewChatEvent builds a CHAT event for a broadcast or direct message.
func NewChatEvent(projectID, senderID int64, username, text string, ts time.Time) Event {
	return Event{
		ID:        ulid.Make().String(),
		Kind:      EventChat,
		ProjectID: projectID,
		SenderID:  senderID,
		Username:  username,
		Text:      text,
		Timestamp: ts,
	}
}

// NewJoinEvent builds a JOIN announcement.
func NewJoinEvent(projectID, userID int64, username string) Event {
	return Event{
		ID:        ulid.Make().String(),
		Kind:      EventJoin,
		ProjectID: projectID,
		SenderID:  userID,
		Username:  username,
		Timestamp: time.Now().UTC(),
	}
}

// NewLeaveEvent builds a LEAVE announcement.
func NewLeaveEvent(projectID, userID int64, username string) Event {
	return Event{
		ID:        ulid.Make().String(),
		Kind:      EventLeave,
		ProjectID: projectID,
		SenderID:  userID,
		Username:  username,
		Timestamp: time.Now().UTC(),
	}
}

// Validate rejects events whose kind is outside the closed set or whose
// payload does not match the kind.
func (e Event) Validate() error {
	switch e.Kind {
	case EventChat:
		if e.Text == "" {
			return fmt.Errorf("CHAT event requires text")
		}
		return nil
	case EventJoin, EventLeave:
		if e.Text != "" {
			return fmt.Errorf("%s event must not carry text", e.Kind)
		}
		return nil
	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
}
