package lane

import (
	"testing"
	"time"

	"github.com/jbickell/laneway/internal/model"
)

func TestValid(t *testing.T) {
	for _, s := range []string{"now", "soon", "later", "park"} {
		if !Valid(s) {
			t.Errorf("Valid(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"", "NOW", "someday", "done"} {
		if Valid(s) {
			t.Errorf("Valid(%q) = true, want false", s)
		}
	}
}

func TestIsStaleThresholds(t *testing.T) {
	today := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		lane    Lane
		ageDays int
		want    bool
	}{
		{"soon under threshold", Soon, 6, false},
		{"soon at threshold", Soon, 7, true},
		{"soon past threshold", Soon, 30, true},
		{"park under threshold", Park, 13, false},
		{"park at threshold", Park, 14, true},
		{"now never stale", Now, 100, false},
		{"later never stale", Later, 100, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := &model.Task{
				Lane:      string(tt.lane),
				CreatedAt: today.AddDate(0, 0, -tt.ageDays),
			}
			if got := IsStale(task, today); got != tt.want {
				t.Errorf("IsStale(%s, %dd) = %v, want %v", tt.lane, tt.ageDays, got, tt.want)
			}
		})
	}
}

func TestIsStaleCompletedTask(t *testing.T) {
	today := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	done := today.AddDate(0, 0, -1)
	task := &model.Task{
		Lane:        string(Soon),
		CreatedAt:   today.AddDate(0, 0, -30),
		CompletedAt: &done,
	}
	if IsStale(task, today) {
		t.Error("completed task should never be stale")
	}
}

// A task created in "later" and moved to "soon" after its creation is
// already past the soon threshold: staleness runs from creation, not from
// the move.
func TestStalenessSurvivesLaneMove(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	today := created.AddDate(0, 0, 8)

	task := &model.Task{Lane: string(Later), CreatedAt: created}
	if IsStale(task, today) {
		t.Fatal("task in later should not be stale")
	}

	// Simulate moveTask: change the lane field only.
	task.Lane = string(Soon)
	if !IsStale(task, today) {
		t.Error("task moved to soon at day 8 should be immediately stale")
	}
	if !task.CreatedAt.Equal(created) {
		t.Error("move must not touch CreatedAt")
	}
}

func TestFilterOpenPreservesOrder(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	done := base.Add(time.Hour)
	tasks := []model.Task{
		{ID: 1, Lane: "now", CreatedAt: base},
		{ID: 2, Lane: "soon", CreatedAt: base.Add(time.Minute)},
		{ID: 3, Lane: "now", CreatedAt: base.Add(2 * time.Minute), CompletedAt: &done},
		{ID: 4, Lane: "now", CreatedAt: base.Add(3 * time.Minute)},
	}

	got := FilterOpen(tasks, Now)
	if len(got) != 2 {
		t.Fatalf("expected 2 open now tasks, got %d", len(got))
	}
	if got[0].ID != 1 || got[1].ID != 4 {
		t.Errorf("order = [%d %d], want [1 4]", got[0].ID, got[1].ID)
	}
}

func TestFilterStale(t *testing.T) {
	today := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	tasks := []model.Task{
		{ID: 1, Lane: "soon", CreatedAt: today.AddDate(0, 0, -10)},
		{ID: 2, Lane: "soon", CreatedAt: today.AddDate(0, 0, -2)},
		{ID: 3, Lane: "park", CreatedAt: today.AddDate(0, 0, -20)},
	}

	stale := FilterStale(tasks, Soon, today)
	if len(stale) != 1 || stale[0].ID != 1 {
		t.Errorf("stale soon = %v, want task 1 only", stale)
	}

	stale = FilterStale(tasks, Park, today)
	if len(stale) != 1 || stale[0].ID != 3 {
		t.Errorf("stale park = %v, want task 3 only", stale)
	}
}
