package model

import "time"

// UserStats is the per-user gamification row, mutated only by completion
// events (and the account cascade). LastActiveDate is a calendar date in
// YYYY-MM-DD form, not a timestamp.
type UserStats struct {
	UserID              int64     `json:"user_id"`
	Points              int       `json:"points"`
	TotalTasksCompleted int       `json:"total_tasks_completed"`
	CurrentStreak       int       `json:"current_streak"`
	LongestStreak       int       `json:"longest_streak"`
	Level               string    `json:"level"`
	LastActiveDate      string    `json:"last_active_date"`
	UpdatedAt           time.Time `json:"updated_at"`
}
