package lane

import (
	"time"

	"github.com/jbickell/laneway/internal/model"
)

// Lane is one of the four time-horizon buckets a task lives in.
type Lane string

const (
	Now   Lane = "now"
	Soon  Lane = "soon"
	Later Lane = "later"
	Park  Lane = "park"
)

// Default is the lane a task lands in when none is specified.
const Default = Now

// All lists the lanes in display order.
var All = []Lane{Now, Soon, Later, Park}

// Valid reports whether s names a lane. Every lane-to-lane move is legal,
// so this is the only check a move needs.
func Valid(s string) bool {
	switch Lane(s) {
	case Now, Soon, Later, Park:
		return true
	}
	return false
}

// Staleness thresholds. A task goes stale after sitting in soon or park
// past these windows, measured from creation. Moving a task between lanes
// does not reset its creation time, so the clock runs from when the task
// first appeared, not from its last move.
const (
	soonStaleAfter = 7 * 24 * time.Hour
	parkStaleAfter = 14 * 24 * time.Hour
)

// IsStale reports whether a task counts as stale for review purposes on
// the given day. Staleness is computed at read time and never persisted.
// Completed tasks are never stale.
func IsStale(t *model.Task, today time.Time) bool {
	if t.Completed() {
		return false
	}
	age := today.Sub(t.CreatedAt)
	switch Lane(t.Lane) {
	case Soon:
		return age >= soonStaleAfter
	case Park:
		return age >= parkStaleAfter
	}
	return false
}

// FilterOpen returns the tasks in the given lane that are not completed,
// preserving input order. Stores list tasks in creation order, so the
// result keeps insertion order.
func FilterOpen(tasks []model.Task, l Lane) []model.Task {
	var out []model.Task
	for _, t := range tasks {
		if t.Completed() {
			continue
		}
		if Lane(t.Lane) == l {
			out = append(out, t)
		}
	}
	return out
}

// FilterStale returns the open tasks in the given lane that are stale on
// the given day, preserving input order.
func FilterStale(tasks []model.Task, l Lane, today time.Time) []model.Task {
	var out []model.Task
	for _, t := range FilterOpen(tasks, l) {
		if IsStale(&t, today) {
			out = append(out, t)
		}
	}
	return out
}
