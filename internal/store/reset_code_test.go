package store

import (
	"testing"
	"time"

	"github.com/jbickell/laneway/internal/database"
)

func setupResetCodeTestDB(t *testing.T) *ResetCodeStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewResetCodeStore(db)
}

func TestResetCodeFormat(t *testing.T) {
	for i := 0; i < 20; i++ {
		code, err := generateResetCode()
		if err != nil {
			t.Fatalf("generate code: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("code %q length = %d, want 6", code, len(code))
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("code %q contains non-digit %q", code, r)
			}
		}
	}
}

func TestResetCodeCreateAndLookup(t *testing.T) {
	rs := setupResetCodeTestDB(t)

	rc, err := rs.Create("a@example.com")
	if err != nil {
		t.Fatalf("create code: %v", err)
	}
	if rc.Attempts != 0 || rc.UsedAt != nil {
		t.Errorf("fresh code attempts=%d used=%v", rc.Attempts, rc.UsedAt)
	}
	until := time.Until(rc.ExpiresAt)
	if until < 14*time.Minute || until > 16*time.Minute {
		t.Errorf("expiry %v from now, want ~15m", until)
	}

	got, err := rs.GetByEmailAndCode("a@example.com", rc.Code)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got == nil || got.ID != rc.ID {
		t.Fatal("expected live code to be found")
	}

	wrong, err := rs.GetByEmailAndCode("a@example.com", "000000")
	if err != nil {
		t.Fatalf("lookup wrong code: %v", err)
	}
	if wrong != nil {
		t.Error("expected nil for wrong code")
	}
}

func TestResetCodeCreateInvalidatesPrevious(t *testing.T) {
	rs := setupResetCodeTestDB(t)

	first, err := rs.Create("a@example.com")
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := rs.Create("a@example.com")
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	stale, err := rs.GetByEmailAndCode("a@example.com", first.Code)
	if err != nil {
		t.Fatalf("lookup first: %v", err)
	}
	if stale != nil && stale.ID == first.ID {
		t.Error("expected first code invalidated by second Create")
	}
	live, err := rs.GetByEmailAndCode("a@example.com", second.Code)
	if err != nil {
		t.Fatalf("lookup second: %v", err)
	}
	if live == nil {
		t.Error("expected second code still live")
	}
}

func TestResetCodeAttempts(t *testing.T) {
	rs := setupResetCodeTestDB(t)

	if _, err := rs.Create("a@example.com"); err != nil {
		t.Fatalf("create code: %v", err)
	}

	for want := 1; want <= 3; want++ {
		got, err := rs.IncrementAttempts("a@example.com")
		if err != nil {
			t.Fatalf("increment: %v", err)
		}
		if got != want {
			t.Errorf("attempts = %d, want %d", got, want)
		}
	}

	// No live code means nothing to count against.
	got, err := rs.IncrementAttempts("nobody@example.com")
	if err != nil {
		t.Fatalf("increment unknown email: %v", err)
	}
	if got != 0 {
		t.Errorf("attempts for unknown email = %d, want 0", got)
	}
}

func TestResetCodeMarkUsed(t *testing.T) {
	rs := setupResetCodeTestDB(t)

	rc, err := rs.Create("a@example.com")
	if err != nil {
		t.Fatalf("create code: %v", err)
	}
	if err := rs.MarkUsed(rc.ID); err != nil {
		t.Fatalf("mark used: %v", err)
	}
	got, err := rs.GetByEmailAndCode("a@example.com", rc.Code)
	if err != nil {
		t.Fatalf("lookup used code: %v", err)
	}
	if got != nil {
		t.Error("expected used code to no longer match")
	}
}
