package models

import "time"

// ChatMessage is a persisted chat message. ReceiverID is nil for broadcast
// messages; those are created with Delivered=true because they are pushed to
// the project feed at creation time and the row exists for history only.
// Direct messages start with Delivered=false and flip to true exactly once,
// when a push to the online recipient succeeds.
type ChatMessage struct {
	ID         int64     `json:"id"`
	ProjectID  int64     `json:"project_id"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID *int64    `json:"receiver_id,omitempty"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	Delivered  bool      `json:"delivered"`
}

// IsBroadcast reports whether the message has no specific receiver.
func (m *ChatMessage) IsBroadcast() bool {
	return m.ReceiverID == nil
}
