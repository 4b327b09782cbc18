package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/jbickell/laneway/internal/database"
)

func setupContactTestDB(t *testing.T) (*ContactStore, *TaskStore, *UserStore, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewContactStore(db), NewTaskStore(db), NewUserStore(db), db
}

func TestContactCRUD(t *testing.T) {
	cs, _, us, _ := setupContactTestDB(t)

	u, err := us.Create("a@example.com", "A", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	c, err := cs.Create(u.ID, "Plumber Pete", "plumber", "#EF4444")
	if err != nil {
		t.Fatalf("create contact: %v", err)
	}
	if c.Name != "Plumber Pete" || c.Role != "plumber" || c.Color != "#EF4444" {
		t.Errorf("contact fields = %q %q %q", c.Name, c.Role, c.Color)
	}

	updated, err := cs.Update(c.ID, "Pete", "handyman", "#3B82F6")
	if err != nil {
		t.Fatalf("update contact: %v", err)
	}
	if updated.Name != "Pete" || updated.Role != "handyman" {
		t.Errorf("updated fields = %q %q", updated.Name, updated.Role)
	}

	list, err := cs.ListByUser(u.ID)
	if err != nil {
		t.Fatalf("list contacts: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 contact, got %d", len(list))
	}

	if err := cs.Delete(c.ID); err != nil {
		t.Fatalf("delete contact: %v", err)
	}
	got, err := cs.GetByID(c.ID)
	if err != nil {
		t.Fatalf("get deleted: %v", err)
	}
	if got != nil {
		t.Error("expected deleted contact to be gone")
	}
}

func TestContactListScopedToUser(t *testing.T) {
	cs, _, us, _ := setupContactTestDB(t)

	a, _ := us.Create("a@example.com", "A", "hash")
	b, _ := us.Create("b@example.com", "B", "hash")

	if _, err := cs.Create(a.ID, "Mine", "", ""); err != nil {
		t.Fatalf("create contact: %v", err)
	}
	if _, err := cs.Create(b.ID, "Theirs", "", ""); err != nil {
		t.Fatalf("create contact: %v", err)
	}

	list, err := cs.ListByUser(a.ID)
	if err != nil {
		t.Fatalf("list contacts: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Mine" {
		t.Errorf("expected only own contact, got %+v", list)
	}
}

func TestContactDeleteClearsTaskReference(t *testing.T) {
	cs, ts, us, _ := setupContactTestDB(t)

	u, err := us.Create("a@example.com", "A", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	c, err := cs.Create(u.ID, "Pete", "plumber", "")
	if err != nil {
		t.Fatalf("create contact: %v", err)
	}
	task, err := ts.Create(u.ID, "fix sink", "", "now", nil)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := ts.DelegateToContact(task.ID, c.ID, time.Now()); err != nil {
		t.Fatalf("delegate to contact: %v", err)
	}

	if err := cs.Delete(c.ID); err != nil {
		t.Fatalf("delete contact: %v", err)
	}

	got, err := ts.GetByID(task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.DelegatedContactID != nil {
		t.Error("expected contact reference cleared on task")
	}
}
