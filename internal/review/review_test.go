package review

import (
	"testing"
	"time"

	"github.com/jbickell/laneway/internal/model"
)

func TestBuild(t *testing.T) {
	now := time.Date(2026, 3, 20, 8, 0, 0, 0, time.UTC)
	open := []model.Task{
		{ID: 1, Lane: "now", CreatedAt: now.AddDate(0, 0, -1)},
		{ID: 2, Lane: "soon", CreatedAt: now.AddDate(0, 0, -10)},
		{ID: 3, Lane: "soon", CreatedAt: now.AddDate(0, 0, -1)},
		{ID: 4, Lane: "park", CreatedAt: now.AddDate(0, 0, -30)},
	}
	doneAt := now.AddDate(0, 0, -2)
	completed := []model.Task{{ID: 5, Lane: "now", CompletedAt: &doneAt}}
	stats := model.UserStats{UserID: 7, Points: 120, Level: "focused"}

	s := Build(open, completed, stats, now)

	if len(s.Lanes) != 4 {
		t.Fatalf("expected 4 lanes, got %d", len(s.Lanes))
	}
	byLane := map[string]LaneSummary{}
	for _, ls := range s.Lanes {
		byLane[string(ls.Lane)] = ls
	}

	if len(byLane["now"].Open) != 1 || byLane["now"].Open[0].ID != 1 {
		t.Errorf("now open = %v, want task 1", byLane["now"].Open)
	}
	if len(byLane["soon"].Open) != 2 {
		t.Errorf("soon open count = %d, want 2", len(byLane["soon"].Open))
	}
	if len(byLane["soon"].Stale) != 1 || byLane["soon"].Stale[0].ID != 2 {
		t.Errorf("soon stale = %v, want task 2", byLane["soon"].Stale)
	}
	if len(byLane["park"].Stale) != 1 || byLane["park"].Stale[0].ID != 4 {
		t.Errorf("park stale = %v, want task 4", byLane["park"].Stale)
	}
	if len(byLane["now"].Stale) != 0 {
		t.Errorf("now lane should never have stale tasks")
	}

	if s.Stats.Points != 120 {
		t.Errorf("stats not carried through")
	}
	if len(s.CompletedThisWeek) != 1 || s.CompletedThisWeek[0].ID != 5 {
		t.Errorf("completed this week = %v, want task 5", s.CompletedThisWeek)
	}
}
