// Package gamify computes streak, point, and level changes from task
// completions. Everything here is pure: callers pass the current date in,
// nothing reads the clock, and the store applies the result.
package gamify

import (
	"time"

	"github.com/jbickell/laneway/internal/model"
)

// PointsPerCompletion is the flat award for completing a task.
const PointsPerCompletion = 10

// DateLayout is the calendar-date form used for LastActiveDate.
const DateLayout = "2006-01-02"

// Level tiers, ascending by point threshold. Level is a monotone function
// of total points: it is recomputed after every award and can only move up
// while points do not decrease.
type Level struct {
	Name      string
	MinPoints int
}

var Levels = []Level{
	{Name: "starter", MinPoints: 0},
	{Name: "focused", MinPoints: 100},
	{Name: "productive", MinPoints: 250},
	{Name: "unstoppable", MinPoints: 500},
	{Name: "legendary", MinPoints: 1000},
}

// LevelForPoints returns the name of the highest tier whose threshold the
// point total has reached.
func LevelForPoints(points int) string {
	name := Levels[0].Name
	for _, lv := range Levels {
		if points >= lv.MinPoints {
			name = lv.Name
		}
	}
	return name
}

// ApplyCompletion mutates stats for one open-to-completed transition on
// the given calendar day. Callers must gate on an observed transition:
// re-completing an already-completed task must not reach this function.
//
// Streak rules: a second completion on the same day leaves the streak
// unchanged; a completion the day after the last active day extends it;
// any longer gap (or no prior activity) resets it to 1.
func ApplyCompletion(stats *model.UserStats, today time.Time) {
	day := today.Format(DateLayout)
	yesterday := today.AddDate(0, 0, -1).Format(DateLayout)

	switch stats.LastActiveDate {
	case day:
		// Already counted today.
	case yesterday:
		stats.CurrentStreak++
	default:
		stats.CurrentStreak = 1
	}
	if stats.CurrentStreak > stats.LongestStreak {
		stats.LongestStreak = stats.CurrentStreak
	}

	stats.Points += PointsPerCompletion
	stats.TotalTasksCompleted++
	stats.Level = LevelForPoints(stats.Points)
	stats.LastActiveDate = day
}

// CompletedSince counts the tasks in the slice completed on or after the
// cutoff. Weekly aggregates are recomputed from completions on each read,
// not kept as a stored rolling window.
func CompletedSince(tasks []model.Task, cutoff time.Time) int {
	n := 0
	for _, t := range tasks {
		if t.CompletedAt != nil && !t.CompletedAt.Before(cutoff) {
			n++
		}
	}
	return n
}
