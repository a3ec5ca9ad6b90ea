package presence

import (
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/crewchat-hq/crewchat/internal/models"
)

// fakeConn records pushes and closes for assertions.
type fakeConn struct {
	id     uuid.UUID
	mu     sync.Mutex
	closed bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{id: uuid.New()}
}

func (c *fakeConn) ID() uuid.UUID { return c.id }

func (c *fakeConn) Push(ev models.Event) error { return nil }

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	conn := newFakeConn()

	if prev := r.Register(1, 10, conn); prev != nil {
		t.Fatalf("expected no displaced conn, got %v", prev.ID())
	}

	got, ok := r.Lookup(1, 10)
	if !ok {
		t.Fatal("expected user 10 online in project 1")
	}
	if got.ID() != conn.ID() {
		t.Fatalf("expected conn %v, got %v", conn.ID(), got.ID())
	}

	if _, ok := r.Lookup(1, 11); ok {
		t.Fatal("user 11 should not be online")
	}
	if _, ok := r.Lookup(2, 10); ok {
		t.Fatal("user 10 should not be online in project 2")
	}
}

func TestRegisterLastConnectionWins(t *testing.T) {
	r := NewRegistry()
	first := newFakeConn()
	second := newFakeConn()

	r.Register(1, 10, first)
	displaced := r.Register(1, 10, second)

	if displaced == nil || displaced.ID() != first.ID() {
		t.Fatal("expected first connection to be displaced")
	}

	got, _ := r.Lookup(1, 10)
	if got.ID() != second.ID() {
		t.Fatal("expected lookup to return the newer connection")
	}
}

func TestRegisterSameConnTwice(t *testing.T) {
	r := NewRegistry()
	conn := newFakeConn()

	r.Register(1, 10, conn)
	if displaced := r.Register(1, 10, conn); displaced != nil {
		t.Fatal("re-registering the same connection must not displace itself")
	}
}

func TestUnregisterIsOwnershipChecked(t *testing.T) {
	r := NewRegistry()
	old := newFakeConn()
	replacement := newFakeConn()

	r.Register(1, 10, old)
	r.Register(1, 10, replacement)

	// The displaced connection's disconnect path runs late; it must not
	// evict the session that replaced it.
	r.Unregister(1, 10, old.ID())

	got, ok := r.Lookup(1, 10)
	if !ok || got.ID() != replacement.ID() {
		t.Fatal("stale unregister evicted the newer session")
	}

	r.Unregister(1, 10, replacement.ID())
	if _, ok := r.Lookup(1, 10); ok {
		t.Fatal("expected user offline after owning unregister")
	}
}

func TestUnregisterAbsentIsNoop(t *testing.T) {
	r := NewRegistry()

	// Neither the project bucket nor the entry exists.
	r.Unregister(42, 10, uuid.New())

	r.Register(42, 10, newFakeConn())
	r.Unregister(42, 99, uuid.New())
	if _, ok := r.Lookup(42, 10); !ok {
		t.Fatal("unrelated unregister removed a live entry")
	}
}

func TestConcurrentRegisterLookupUnregister(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for p := int64(0); p < 8; p++ {
		for u := int64(0); u < 16; u++ {
			wg.Add(1)
			go func(projectID, userID int64) {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					conn := newFakeConn()
					r.Register(projectID, userID, conn)
					r.Lookup(projectID, userID)
					r.Unregister(projectID, userID, conn.ID())
				}
			}(p, u)
		}
	}
	wg.Wait()

	for p := int64(0); p < 8; p++ {
		for u := int64(0); u < 16; u++ {
			if _, ok := r.Lookup(p, u); ok {
				t.Fatalf("project %d user %d still registered after all workers unregistered", p, u)
			}
		}
	}
}
