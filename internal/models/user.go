package models

import "time"

// User is a platform account, read-only from this service's point of view.
// Account CRUD belongs to the main platform; the messaging tier only resolves
// usernames and ids.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}
