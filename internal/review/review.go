// Package review assembles the weekly-review payload. It is a read-only
// composition over lane classification and the gamification snapshot and
// produces no new state.
package review

import (
	"time"

	"github.com/jbickell/laneway/internal/lane"
	"github.com/jbickell/laneway/internal/model"
)

type LaneSummary struct {
	Lane  lane.Lane    `json:"lane"`
	Open  []model.Task `json:"open"`
	Stale []model.Task `json:"stale"`
}

type Summary struct {
	Lanes             []LaneSummary   `json:"lanes"`
	Stats             model.UserStats `json:"stats"`
	CompletedThisWeek []model.Task    `json:"completed_this_week"`
	GeneratedAt       time.Time       `json:"generated_at"`
}

// Build composes the review from the user's open tasks (creation order),
// the tasks completed in the trailing week, and the stats row. Any action
// the user takes from the review (moving a stale task, completing one)
// goes back through the normal task operations.
func Build(open, completedWeek []model.Task, stats model.UserStats, now time.Time) Summary {
	lanes := make([]LaneSummary, 0, len(lane.All))
	for _, l := range lane.All {
		lanes = append(lanes, LaneSummary{
			Lane:  l,
			Open:  lane.FilterOpen(open, l),
			Stale: lane.FilterStale(open, l, now),
		})
	}
	return Summary{
		Lanes:             lanes,
		Stats:             stats,
		CompletedThisWeek: completedWeek,
		GeneratedAt:       now,
	}
}
