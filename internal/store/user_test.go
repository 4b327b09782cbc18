package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/jbickell/laneway/internal/database"
)

func setupUserTestDB(t *testing.T) (*UserStore, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewUserStore(db), db
}

func TestUserCreateAndLookup(t *testing.T) {
	us, _ := setupUserTestDB(t)

	u, err := us.Create("a@example.com", "Alex", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.Email != "a@example.com" || u.Name != "Alex" {
		t.Errorf("user fields = %q %q", u.Email, u.Name)
	}

	byEmail, err := us.GetByEmail("a@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if byEmail == nil || byEmail.ID != u.ID {
		t.Fatal("expected lookup by email to find user")
	}

	missing, err := us.GetByEmail("nobody@example.com")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown email")
	}
}

func TestUserDuplicateEmail(t *testing.T) {
	us, _ := setupUserTestDB(t)

	if _, err := us.Create("a@example.com", "A", "hash"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := us.Create("a@example.com", "B", "hash2"); err == nil {
		t.Fatal("expected duplicate email to fail")
	}
}

func TestUpdatePassword(t *testing.T) {
	us, _ := setupUserTestDB(t)

	u, err := us.Create("a@example.com", "A", "old-hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := us.UpdatePassword(u.ID, "new-hash"); err != nil {
		t.Fatalf("update password: %v", err)
	}
	got, err := us.GetByID(u.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.PasswordHash != "new-hash" {
		t.Errorf("password hash = %q", got.PasswordHash)
	}
}

func TestSetStripeCustomerID(t *testing.T) {
	us, _ := setupUserTestDB(t)

	u, err := us.Create("a@example.com", "A", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := us.SetStripeCustomerID(u.ID, "cus_123"); err != nil {
		t.Fatalf("set customer id: %v", err)
	}
	got, err := us.GetByID(u.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.StripeCustomerID != "cus_123" {
		t.Errorf("stripe customer id = %q", got.StripeCustomerID)
	}
}

func TestDeleteAccountCascade(t *testing.T) {
	us, db := setupUserTestDB(t)
	ts := NewTaskStore(db)
	cs := NewContactStore(db)
	tms := NewTeamStore(db)
	ss := NewStatsStore(db)
	sess := NewSessionStore(db)
	ps := NewPushStore(db)

	victim, err := us.Create("victim@example.com", "V", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	other, err := us.Create("other@example.com", "O", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	// Victim owns a task with a subtask and a note, a contact, a team link,
	// a session, a push subscription, and a stats row.
	task, err := ts.Create(victim.ID, "mine", "", "now", nil)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := ts.CreateSubtask(task.ID, "step"); err != nil {
		t.Fatalf("create subtask: %v", err)
	}
	if _, err := ts.CreateNote(task.ID, &victim.ID, "status_update", "note"); err != nil {
		t.Fatalf("create note: %v", err)
	}
	if _, err := cs.Create(victim.ID, "Plumber", "", ""); err != nil {
		t.Fatalf("create contact: %v", err)
	}
	if err := tms.CreateLink(victim.ID, other.ID, "O", "#EF4444", "V", "#3B82F6"); err != nil {
		t.Fatalf("create link: %v", err)
	}
	if _, err := sess.Create(victim.ID); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := ps.Create(victim.ID, "https://push.example/ep", "p", "a", "phone"); err != nil {
		t.Fatalf("create push sub: %v", err)
	}
	if _, err := ss.GetOrCreate(victim.ID); err != nil {
		t.Fatalf("create stats: %v", err)
	}

	// Other user's task delegated to victim must survive with delegation
	// cleared, not be deleted.
	incoming, err := ts.Create(other.ID, "theirs", "", "now", nil)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := ts.DelegateToUser(incoming.ID, victim.ID, "assigned", time.Now()); err != nil {
		t.Fatalf("delegate: %v", err)
	}

	if err := us.DeleteAccount(victim.ID); err != nil {
		t.Fatalf("delete account: %v", err)
	}

	if got, _ := us.GetByID(victim.ID); got != nil {
		t.Error("expected user gone")
	}

	counts := map[string]string{
		"tasks":              `SELECT COUNT(*) FROM tasks WHERE user_id = ?`,
		"subtasks":           `SELECT COUNT(*) FROM subtasks WHERE task_id = ?`,
		"contacts":           `SELECT COUNT(*) FROM contacts WHERE user_id = ?`,
		"team_members":       `SELECT COUNT(*) FROM team_members WHERE user_id = ? OR teammate_id = ?`,
		"sessions":           `SELECT COUNT(*) FROM sessions WHERE user_id = ?`,
		"push_subscriptions": `SELECT COUNT(*) FROM push_subscriptions WHERE user_id = ?`,
		"user_stats":         `SELECT COUNT(*) FROM user_stats WHERE user_id = ?`,
	}
	for table, q := range counts {
		var n int
		var err error
		switch table {
		case "subtasks":
			err = db.QueryRow(q, task.ID).Scan(&n)
		case "team_members":
			err = db.QueryRow(q, victim.ID, victim.ID).Scan(&n)
		default:
			err = db.QueryRow(q, victim.ID).Scan(&n)
		}
		if err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if n != 0 {
			t.Errorf("expected no %s rows after cascade, got %d", table, n)
		}
	}

	survivor, err := ts.GetByID(incoming.ID)
	if err != nil {
		t.Fatalf("get surviving task: %v", err)
	}
	if survivor == nil {
		t.Fatal("other user's task must survive")
	}
	if survivor.DelegatedToUserID != nil || survivor.DelegationStatus != nil {
		t.Error("expected incoming delegation cleared")
	}
}
