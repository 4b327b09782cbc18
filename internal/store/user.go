package store

import (
	"database/sql"
	"fmt"

	"github.com/jbickell/laneway/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := scanner.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.StripeCustomerID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const userCols = `id, email, name, password_hash, stripe_customer_id, created_at, updated_at`

func (s *UserStore) Create(email, name, passwordHash string) (*model.User, error) {
	result, err := s.db.Exec(
		`INSERT INTO users (email, name, password_hash) VALUES (?, ?, ?)`,
		email, name, passwordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(email string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *UserStore) UpdatePassword(id int64, passwordHash string) error {
	_, err := s.db.Exec(
		`UPDATE users SET password_hash = ?, updated_at = datetime('now') WHERE id = ?`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *UserStore) SetStripeCustomerID(id int64, customerID string) error {
	_, err := s.db.Exec(
		`UPDATE users SET stripe_customer_id = ?, updated_at = datetime('now') WHERE id = ?`,
		customerID, id,
	)
	if err != nil {
		return fmt.Errorf("set stripe customer id: %w", err)
	}
	return nil
}

// DeleteAccount removes a user and everything hanging off them in one
// transaction: notes, subtasks, tasks, contacts, both directions of team
// links, sent invites, reset codes, sessions, push subscriptions, stats,
// then the user row. Tasks delegated to this user by others are
// un-delegated rather than deleted (the owner keeps the task).
func (s *UserStore) DeleteAccount(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var email string
	if err := tx.QueryRow(`SELECT email FROM users WHERE id = ?`, id).Scan(&email); err != nil {
		return fmt.Errorf("load user email: %w", err)
	}

	steps := []struct {
		name  string
		query string
		args  []any
	}{
		{"delete notes", `DELETE FROM delegation_notes WHERE task_id IN (SELECT id FROM tasks WHERE user_id = ?)`, []any{id}},
		{"delete subtasks", `DELETE FROM subtasks WHERE task_id IN (SELECT id FROM tasks WHERE user_id = ?)`, []any{id}},
		{"clear incoming delegations", `UPDATE tasks SET delegated_to_user_id = NULL, delegation_status = NULL, delegated_at = NULL, last_delegation_update = NULL WHERE delegated_to_user_id = ?`, []any{id}},
		{"delete tasks", `DELETE FROM tasks WHERE user_id = ?`, []any{id}},
		{"delete contacts", `DELETE FROM contacts WHERE user_id = ?`, []any{id}},
		{"delete team links", `DELETE FROM team_members WHERE user_id = ? OR teammate_id = ?`, []any{id, id}},
		{"delete sent invites", `DELETE FROM team_invites WHERE inviter_id = ?`, []any{id}},
		{"delete reset codes", `DELETE FROM reset_codes WHERE email = ?`, []any{email}},
		{"delete sessions", `DELETE FROM sessions WHERE user_id = ?`, []any{id}},
		{"delete push subscriptions", `DELETE FROM push_subscriptions WHERE user_id = ?`, []any{id}},
		{"delete stats", `DELETE FROM user_stats WHERE user_id = ?`, []any{id}},
		{"delete user", `DELETE FROM users WHERE id = ?`, []any{id}},
	}
	for _, step := range steps {
		if _, err := tx.Exec(step.query, step.args...); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}

	return tx.Commit()
}
