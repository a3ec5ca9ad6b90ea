package chat

import (
	"sync"

	"github.com/google/uuid"

	"github.com/crewchat-hq/crewchat/internal/models"
	"github.com/crewchat-hq/crewchat/internal/presence"
)

// Feeds holds the per-project broadcast feeds. Every joined connection for a
// project is subscribed to that project's feed; publishing fans out to all
// current subscribers regardless of the presence registry.
type Feeds struct {
	mu       sync.RWMutex
	projects map[int64]*feed
}

type feed struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]presence.Conn
}

// NewFeeds creates an empty feed table.
func NewFeeds() *Feeds {
	return &Feeds{projects: make(map[int64]*feed)}
}

func (f *Feeds) feed(projectID int64) *feed {
	f.mu.RLock()
	pf, ok := f.projects[projectID]
	f.mu.RUnlock()
	if ok {
		return pf
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if pf, ok = f.projects[projectID]; ok {
		return pf
	}
	pf = &feed{subs: make(map[uuid.UUID]presence.Conn)}
	f.projects[projectID] = pf
	return pf
}

// Subscribe adds a connection to a project's feed.
func (f *Feeds) Subscribe(projectID int64, conn presence.Conn) {
	pf := f.feed(projectID)
	pf.mu.Lock()
	pf.subs[conn.ID()] = conn
	pf.mu.Unlock()
}

// Unsubscribe removes a connection from a project's feed. Unknown ids are a
// no-op.
func (f *Feeds) Unsubscribe(projectID int64, connID uuid.UUID) {
	f.mu.RLock()
	pf, ok := f.projects[projectID]
	f.mu.RUnlock()
	if !ok {
		return
	}
	pf.mu.Lock()
	delete(pf.subs, connID)
	pf.mu.Unlock()
}

// Publish fans an event out to every current subscriber, including the
// sender's own connection. Push is non-blocking by contract, so holding the
// read lock across the loop never stalls on a slow peer.
func (f *Feeds) Publish(projectID int64, ev models.Event) {
	f.mu.RLock()
	pf, ok := f.projects[projectID]
	f.mu.RUnlock()
	if !ok {
		return
	}

	pf.mu.RLock()
	defer pf.mu.RUnlock()
	for _, conn := range pf.subs {
		// A full queue means the peer is not draining; the connection's own
		// liveness handling will tear it down.
		_ = conn.Push(ev)
	}
}

// Subscribers returns the number of connections on a project's feed.
func (f *Feeds) Subscribers(projectID int64) int {
	f.mu.RLock()
	pf, ok := f.projects[projectID]
	f.mu.RUnlock()
	if !ok {
		return 0
	}
	pf.mu.RLock()
	defer pf.mu.RUnlock()
	return len(pf.subs)
}
