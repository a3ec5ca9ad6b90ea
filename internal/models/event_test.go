package models

import (
	"testing"
	"time"
)

func TestEventValidate(t *testing.T) {
	now := time.Now()

	if err := NewChatEvent(1, 2, "alice", "hello", now).Validate(); err != nil {
		t.Fatalf("valid chat event rejected: %v", err)
	}
	if err := NewJoinEvent(1, 2, "alice").Validate(); err != nil {
		t.Fatalf("valid join event rejected: %v", err)
	}
	if err := NewLeaveEvent(1, 2, "alice").Validate(); err != nil {
		t.Fatalf("valid leave event rejected: %v", err)
	}

	if err := (Event{Kind: EventChat}).Validate(); err == nil {
		t.Fatal("chat event without text must be rejected")
	}
	if err := (Event{Kind: EventJoin, Text: "smuggled"}).Validate(); err == nil {
		t.Fatal("join event with text must be rejected")
	}
	if err := (Event{Kind: "TYPING"}).Validate(); err == nil {
		t.Fatal("unknown kind must be rejected")
	}
}

func TestEventIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		ev := NewChatEvent(1, 2, "alice", "x", time.Now())
		if seen[ev.ID] {
			t.Fatalf("duplicate event id %s", ev.ID)
		}
		seen[ev.ID] = true
	}
}
