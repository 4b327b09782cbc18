package handler

import (
	"database/sql"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/jbickell/laneway/internal/database"
	"github.com/jbickell/laneway/internal/delegation"
	"github.com/jbickell/laneway/internal/store"
)

func setupTaskHandler(t *testing.T) (*TaskHandler, *store.TaskStore, *store.UserStore, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ts := store.NewTaskStore(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewTaskHandler(ts, store.NewContactStore(db), store.NewTeamStore(db), store.NewStatsStore(db), store.NewPushStore(db), nil, nil, logger)
	return h, ts, store.NewUserStore(db), db
}

// delegationStatusMux routes through a real mux so {id} resolves.
func delegationStatusMux(h *TaskHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/tasks/{id}/delegation-status", h.SetDelegationStatus)
	return mux
}

func TestSetDelegationStatusNonDelegatee(t *testing.T) {
	h, ts, us, db := setupTaskHandler(t)
	mux := delegationStatusMux(h)

	owner, _ := us.Create("owner@example.com", "O", "hash")
	mate, _ := us.Create("mate@example.com", "M", "hash")
	outsider, _ := us.Create("other@example.com", "X", "hash")

	task, err := ts.Create(owner.ID, "handoff", "", "now", nil)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := ts.DelegateToUser(task.ID, mate.ID, string(delegation.StatusAssigned), time.Now()); err != nil {
		t.Fatalf("delegate: %v", err)
	}

	// Neither the owner nor an unrelated user may report progress.
	for _, uid := range []int64{owner.ID, outsider.ID} {
		rec := httptest.NewRecorder()
		req := authedRequest("POST", "/api/tasks/"+strconv.FormatInt(task.ID, 10)+"/delegation-status", uid, `{"status":"done"}`)
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("user %d: status = %d, want %d", uid, rec.Code, http.StatusForbidden)
		}
	}

	got, err := ts.GetByID(task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.DelegationStatus == nil || *got.DelegationStatus != string(delegation.StatusAssigned) {
		t.Errorf("delegation status changed by unauthorized request: %v", got.DelegationStatus)
	}
	var notes int
	if err := db.QueryRow(`SELECT COUNT(*) FROM delegation_notes`).Scan(&notes); err != nil {
		t.Fatalf("count notes: %v", err)
	}
	if notes != 0 {
		t.Errorf("unauthorized request must not append notes, got %d", notes)
	}
}

func TestSetDelegationStatusByDelegatee(t *testing.T) {
	h, ts, us, _ := setupTaskHandler(t)
	mux := delegationStatusMux(h)

	owner, _ := us.Create("owner@example.com", "O", "hash")
	mate, _ := us.Create("mate@example.com", "M", "hash")

	task, err := ts.Create(owner.ID, "handoff", "", "now", nil)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := ts.DelegateToUser(task.ID, mate.ID, string(delegation.StatusAssigned), time.Now()); err != nil {
		t.Fatalf("delegate: %v", err)
	}

	rec := httptest.NewRecorder()
	req := authedRequest("POST", "/api/tasks/"+strconv.FormatInt(task.ID, 10)+"/delegation-status", mate.ID, `{"status":"in_progress","note":"started this morning"}`)
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	got, err := ts.GetByID(task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.DelegationStatus == nil || *got.DelegationStatus != string(delegation.StatusInProgress) {
		t.Errorf("delegation status = %v, want in_progress", got.DelegationStatus)
	}

	notes, err := ts.ListNotes(task.ID)
	if err != nil {
		t.Fatalf("list notes: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("expected one note for the provided text, got %d", len(notes))
	}
	if notes[0].Type != "status_update" || notes[0].Text != "started this morning" {
		t.Errorf("note = %q/%q, want status_update with provided text", notes[0].Type, notes[0].Text)
	}
}

func TestSetDelegationStatusWithoutNote(t *testing.T) {
	h, ts, us, db := setupTaskHandler(t)
	mux := delegationStatusMux(h)

	owner, _ := us.Create("owner@example.com", "O", "hash")
	mate, _ := us.Create("mate@example.com", "M", "hash")

	task, err := ts.Create(owner.ID, "handoff", "", "now", nil)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := ts.DelegateToUser(task.ID, mate.ID, string(delegation.StatusAssigned), time.Now()); err != nil {
		t.Fatalf("delegate: %v", err)
	}

	rec := httptest.NewRecorder()
	req := authedRequest("POST", "/api/tasks/"+strconv.FormatInt(task.ID, 10)+"/delegation-status", mate.ID, `{"status":"waiting"}`)
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var notes int
	if err := db.QueryRow(`SELECT COUNT(*) FROM delegation_notes`).Scan(&notes); err != nil {
		t.Fatalf("count notes: %v", err)
	}
	if notes != 0 {
		t.Errorf("status update without note text must not append notes, got %d", notes)
	}
}
