// Package presence tracks which collaborators currently hold an open
// connection for a project. The registry is in-memory only; it is rebuilt
// from zero on process restart as connections re-establish.
package presence

import (
	"sync"

	"github.com/google/uuid"

	"github.com/crewchat-hq/crewchat/internal/models"
)

// Conn is the handle the registry keeps for an online collaborator. Push
// must not block: implementations enqueue onto a buffered per-connection
// queue and fail fast when the peer cannot keep up.
type Conn interface {
	ID() uuid.UUID
	Push(ev models.Event) error
	Close()
}

// Registry maps (project, user) to the active connection handle. Entries are
// bucketed per project so lookups and updates for one project never contend
// with another, and no lock is ever held across I/O (the registry stores
// handles, it never calls them).
type Registry struct {
	mu       sync.RWMutex
	projects map[int64]*projectBucket
}

type projectBucket struct {
	mu    sync.RWMutex
	users map[int64]Conn
}

// NewRegistry creates an empty registry. One instance is constructed at
// process start and injected into the router; tests construct their own.
func NewRegistry() *Registry {
	return &Registry{projects: make(map[int64]*projectBucket)}
}

func (r *Registry) bucket(projectID int64) *projectBucket {
	r.mu.RLock()
	b, ok := r.projects[projectID]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok = r.projects[projectID]; ok {
		return b
	}
	b = &projectBucket{users: make(map[int64]Conn)}
	r.projects[projectID] = b
	return b
}

// Register records conn as the active connection for (project, user),
// overwriting any prior handle (last-connection-wins). The displaced handle,
// if any, is returned so the caller can close it outside the lock.
func (r *Registry) Register(projectID, userID int64, conn Conn) Conn {
	b := r.bucket(projectID)

	b.mu.Lock()
	defer b.mu.Unlock()
	prev := b.users[userID]
	b.users[userID] = conn
	if prev != nil && prev.ID() == conn.ID() {
		return nil
	}
	return prev
}

// Unregister removes the entry for (project, user) if it is still owned by
// connID, reporting whether an entry was removed. A disconnect from a
// connection that has already been displaced by a newer session must not
// evict that newer session. Unregistering an absent pair is a no-op.
func (r *Registry) Unregister(projectID, userID int64, connID uuid.UUID) bool {
	r.mu.RLock()
	b, ok := r.projects[projectID]
	r.mu.RUnlock()
	if !ok {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if cur, ok := b.users[userID]; ok && cur.ID() == connID {
		delete(b.users, userID)
		return true
	}
	return false
}

// Lookup returns the active connection for (project, user), if any.
func (r *Registry) Lookup(projectID, userID int64) (Conn, bool) {
	r.mu.RLock()
	b, ok := r.projects[projectID]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	conn, ok := b.users[userID]
	return conn, ok
}
