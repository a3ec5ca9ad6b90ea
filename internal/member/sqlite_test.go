package member

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func newTestDirectory(t *testing.T) *SQLiteDirectory {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "members.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
	CREATE TABLE users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE project_members (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		project_id INTEGER NOT NULL,
		role TEXT NOT NULL DEFAULT '',
		UNIQUE(user_id, project_id)
	);
	INSERT INTO users (id, username) VALUES (1, 'alice'), (2, 'bob');
	INSERT INTO project_members (user_id, project_id, role) VALUES
		(1, 100, 'director'),
		(2, 100, 'gaffer'),
		(1, 200, 'producer');
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatal(err)
	}

	return NewSQLiteDirectory(db)
}

func TestIsCollaborator(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()

	ok, err := d.IsCollaborator(ctx, 1, 100)
	if err != nil || !ok {
		t.Fatalf("alice should be on project 100 (ok=%v err=%v)", ok, err)
	}

	ok, err = d.IsCollaborator(ctx, 2, 200)
	if err != nil || ok {
		t.Fatalf("bob should not be on project 200 (ok=%v err=%v)", ok, err)
	}

	ok, err = d.IsCollaborator(ctx, 99, 100)
	if err != nil || ok {
		t.Fatalf("unknown user should not be a collaborator (ok=%v err=%v)", ok, err)
	}
}

func TestRoleOf(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()

	role, err := d.RoleOf(ctx, 2, 100)
	if err != nil {
		t.Fatal(err)
	}
	if role != "gaffer" {
		t.Fatalf("expected gaffer, got %q", role)
	}

	if _, err := d.RoleOf(ctx, 2, 200); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUsernameLookups(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()

	name, err := d.UsernameForID(ctx, 1)
	if err != nil || name != "alice" {
		t.Fatalf("expected alice, got %q (%v)", name, err)
	}

	id, err := d.UserIDForUsername(ctx, "bob")
	if err != nil || id != 2 {
		t.Fatalf("expected 2, got %d (%v)", id, err)
	}

	if _, err := d.UsernameForID(ctx, 99); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := d.UserIDForUsername(ctx, "mallory"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
