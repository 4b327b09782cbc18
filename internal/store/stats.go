package store

import (
	"database/sql"
	"fmt"

	"github.com/jbickell/laneway/internal/model"
)

type StatsStore struct {
	db *sql.DB
}

func NewStatsStore(db *sql.DB) *StatsStore {
	return &StatsStore{db: db}
}

func scanStats(scanner interface{ Scan(...any) error }) (*model.UserStats, error) {
	var st model.UserStats
	err := scanner.Scan(
		&st.UserID, &st.Points, &st.TotalTasksCompleted,
		&st.CurrentStreak, &st.LongestStreak, &st.Level, &st.LastActiveDate, &st.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

const statsCols = `user_id, points, total_tasks_completed, current_streak, longest_streak, level, last_active_date, updated_at`

// GetOrCreate returns the user's stats row, inserting a zeroed one if this
// is the first touch.
func (s *StatsStore) GetOrCreate(userID int64) (*model.UserStats, error) {
	st, err := s.Get(userID)
	if err != nil {
		return nil, err
	}
	if st != nil {
		return st, nil
	}

	_, err = s.db.Exec(`INSERT INTO user_stats (user_id) VALUES (?)`, userID)
	if err != nil {
		return nil, fmt.Errorf("insert user stats: %w", err)
	}
	return s.Get(userID)
}

func (s *StatsStore) Get(userID int64) (*model.UserStats, error) {
	row := s.db.QueryRow(`SELECT `+statsCols+` FROM user_stats WHERE user_id = ?`, userID)
	st, err := scanStats(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user stats: %w", err)
	}
	return st, nil
}

// Save writes the full stats row back after a gamification update.
func (s *StatsStore) Save(st *model.UserStats) error {
	_, err := s.db.Exec(
		`UPDATE user_stats SET points = ?, total_tasks_completed = ?, current_streak = ?, longest_streak = ?, level = ?, last_active_date = ?, updated_at = datetime('now') WHERE user_id = ?`,
		st.Points, st.TotalTasksCompleted, st.CurrentStreak, st.LongestStreak, st.Level, st.LastActiveDate, st.UserID,
	)
	if err != nil {
		return fmt.Errorf("save user stats: %w", err)
	}
	return nil
}
