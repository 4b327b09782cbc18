package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jbickell/laneway/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var dueDate, completedAt, delegatedAt, lastUpdate sql.NullTime
	var contactID, delegatedTo sql.NullInt64
	var status sql.NullString

	err := scanner.Scan(
		&t.ID, &t.UserID, &t.Title, &t.Notes, &t.Lane, &dueDate, &completedAt,
		&contactID, &delegatedTo, &status, &delegatedAt, &lastUpdate,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if dueDate.Valid {
		t.DueDate = &dueDate.Time
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	if contactID.Valid {
		t.DelegatedContactID = &contactID.Int64
	}
	if delegatedTo.Valid {
		t.DelegatedToUserID = &delegatedTo.Int64
	}
	if status.Valid {
		t.DelegationStatus = &status.String
	}
	if delegatedAt.Valid {
		t.DelegatedAt = &delegatedAt.Time
	}
	if lastUpdate.Valid {
		t.LastDelegationUpdate = &lastUpdate.Time
	}
	return &t, nil
}

const taskCols = `id, user_id, title, notes, lane, due_date, completed_at, delegated_contact_id, delegated_to_user_id, delegation_status, delegated_at, last_delegation_update, created_at, updated_at`

func (s *TaskStore) Create(userID int64, title, notes string, lane string, dueDate *time.Time) (*model.Task, error) {
	var due sql.NullTime
	if dueDate != nil {
		due = sql.NullTime{Time: dueDate.UTC(), Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO tasks (user_id, title, notes, lane, due_date) VALUES (?, ?, ?, ?, ?)`,
		userID, title, notes, lane, due,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) GetByID(id int64) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// ListByUser returns all of a user's tasks, open and completed, in
// creation order.
func (s *TaskStore) ListByUser(userID int64) ([]model.Task, error) {
	return s.list(`SELECT `+taskCols+` FROM tasks WHERE user_id = ? ORDER BY created_at ASC, id ASC`, userID)
}

// ListOpenByLane returns the user's open tasks in one lane, in creation
// order. Completed tasks never appear in lane listings.
func (s *TaskStore) ListOpenByLane(userID int64, lane string) ([]model.Task, error) {
	return s.list(
		`SELECT `+taskCols+` FROM tasks WHERE user_id = ? AND lane = ? AND completed_at IS NULL ORDER BY created_at ASC, id ASC`,
		userID, lane,
	)
}

// ListDelegatedToUser returns the open tasks delegated to the given user
// by their teammates, most recently delegated first.
func (s *TaskStore) ListDelegatedToUser(userID int64) ([]model.Task, error) {
	return s.list(
		`SELECT `+taskCols+` FROM tasks WHERE delegated_to_user_id = ? AND completed_at IS NULL ORDER BY delegated_at DESC, id DESC`,
		userID,
	)
}

// ListCompletedSince returns the user's tasks completed at or after the
// cutoff, most recent first.
func (s *TaskStore) ListCompletedSince(userID int64, cutoff time.Time) ([]model.Task, error) {
	return s.list(
		`SELECT `+taskCols+` FROM tasks WHERE user_id = ? AND completed_at IS NOT NULL AND completed_at >= ? ORDER BY completed_at DESC`,
		userID, cutoff.UTC(),
	)
}

func (s *TaskStore) list(query string, args ...any) ([]model.Task, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *TaskStore) Update(id int64, title, notes string, dueDate *time.Time) (*model.Task, error) {
	var due sql.NullTime
	if dueDate != nil {
		due = sql.NullTime{Time: dueDate.UTC(), Valid: true}
	}

	_, err := s.db.Exec(
		`UPDATE tasks SET title = ?, notes = ?, due_date = ?, updated_at = datetime('now') WHERE id = ?`,
		title, notes, due, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return s.GetByID(id)
}

// Move changes the task's lane. Only the lane field is touched: created_at
// is left alone so staleness keeps running from the original creation.
func (s *TaskStore) Move(id int64, lane string) (*model.Task, error) {
	_, err := s.db.Exec(
		`UPDATE tasks SET lane = ?, updated_at = datetime('now') WHERE id = ?`,
		lane, id,
	)
	if err != nil {
		return nil, fmt.Errorf("move task: %w", err)
	}
	return s.GetByID(id)
}

// Complete marks the task completed at the given time and reports whether
// the row actually transitioned from open to completed. A task that is
// already completed is left untouched and reports false, which is what
// gates the gamification award.
func (s *TaskStore) Complete(id int64, completedAt time.Time) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE tasks SET completed_at = ?, updated_at = datetime('now') WHERE id = ? AND completed_at IS NULL`,
		completedAt.UTC(), id,
	)
	if err != nil {
		return false, fmt.Errorf("complete task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// Delete removes the task. Subtasks and delegation notes go with it via
// foreign-key cascade.
func (s *TaskStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// --- Delegation field methods ---

// DelegateToContact assigns the task to a local contact. Contact
// delegation does not use the status field or delegated_to_user_id.
func (s *TaskStore) DelegateToContact(id, contactID int64, at time.Time) (*model.Task, error) {
	_, err := s.db.Exec(
		`UPDATE tasks SET delegated_contact_id = ?, delegated_to_user_id = NULL, delegation_status = NULL, delegated_at = ?, last_delegation_update = NULL, updated_at = datetime('now') WHERE id = ?`,
		contactID, at.UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("delegate to contact: %w", err)
	}
	return s.GetByID(id)
}

// DelegateToUser assigns the task to a linked teammate and starts the
// status pipeline at "assigned".
func (s *TaskStore) DelegateToUser(id, userID int64, status string, at time.Time) (*model.Task, error) {
	_, err := s.db.Exec(
		`UPDATE tasks SET delegated_to_user_id = ?, delegation_status = ?, delegated_contact_id = NULL, delegated_at = ?, last_delegation_update = ?, updated_at = datetime('now') WHERE id = ?`,
		userID, status, at.UTC(), at.UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("delegate to user: %w", err)
	}
	return s.GetByID(id)
}

// SetDelegationStatus records a delegatee status update. The authorization
// check (caller is the delegatee) happens before this is called.
func (s *TaskStore) SetDelegationStatus(id int64, status string, at time.Time) (*model.Task, error) {
	_, err := s.db.Exec(
		`UPDATE tasks SET delegation_status = ?, last_delegation_update = ?, updated_at = datetime('now') WHERE id = ?`,
		status, at.UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("set delegation status: %w", err)
	}
	return s.GetByID(id)
}

// ClearDelegation drops all delegation fields from the task.
func (s *TaskStore) ClearDelegation(id int64) (*model.Task, error) {
	_, err := s.db.Exec(
		`UPDATE tasks SET delegated_contact_id = NULL, delegated_to_user_id = NULL, delegation_status = NULL, delegated_at = NULL, last_delegation_update = NULL, updated_at = datetime('now') WHERE id = ?`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("clear delegation: %w", err)
	}
	return s.GetByID(id)
}

// --- Subtask methods ---

func scanSubtask(scanner interface{ Scan(...any) error }) (*model.Subtask, error) {
	var st model.Subtask
	var completed int
	err := scanner.Scan(&st.ID, &st.TaskID, &st.Title, &completed, &st.CreatedAt)
	if err != nil {
		return nil, err
	}
	st.Completed = completed != 0
	return &st, nil
}

const subtaskCols = `id, task_id, title, completed, created_at`

func (s *TaskStore) CreateSubtask(taskID int64, title string) (*model.Subtask, error) {
	result, err := s.db.Exec(
		`INSERT INTO subtasks (task_id, title) VALUES (?, ?)`,
		taskID, title,
	)
	if err != nil {
		return nil, fmt.Errorf("insert subtask: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetSubtaskByID(id)
}

func (s *TaskStore) GetSubtaskByID(id int64) (*model.Subtask, error) {
	row := s.db.QueryRow(`SELECT `+subtaskCols+` FROM subtasks WHERE id = ?`, id)
	st, err := scanSubtask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get subtask: %w", err)
	}
	return st, nil
}

func (s *TaskStore) ListSubtasks(taskID int64) ([]model.Subtask, error) {
	rows, err := s.db.Query(
		`SELECT `+subtaskCols+` FROM subtasks WHERE task_id = ? ORDER BY created_at ASC, id ASC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list subtasks: %w", err)
	}
	defer rows.Close()

	var subtasks []model.Subtask
	for rows.Next() {
		st, err := scanSubtask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subtask: %w", err)
		}
		subtasks = append(subtasks, *st)
	}
	return subtasks, rows.Err()
}

func (s *TaskStore) UpdateSubtask(id int64, title string, completed bool) (*model.Subtask, error) {
	var c int
	if completed {
		c = 1
	}
	_, err := s.db.Exec(
		`UPDATE subtasks SET title = ?, completed = ? WHERE id = ?`,
		title, c, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update subtask: %w", err)
	}
	return s.GetSubtaskByID(id)
}

func (s *TaskStore) DeleteSubtask(id int64) error {
	_, err := s.db.Exec(`DELETE FROM subtasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete subtask: %w", err)
	}
	return nil
}

// --- Delegation note methods ---

func scanNote(scanner interface{ Scan(...any) error }) (*model.DelegationNote, error) {
	var n model.DelegationNote
	var authorID sql.NullInt64
	err := scanner.Scan(&n.ID, &n.TaskID, &authorID, &n.Type, &n.Text, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	if authorID.Valid {
		n.AuthorID = &authorID.Int64
	}
	return &n, nil
}

const noteCols = `id, task_id, author_id, type, text, created_at`

// CreateNote appends a delegation note. Notes are never updated after
// creation.
func (s *TaskStore) CreateNote(taskID int64, authorID *int64, noteType, text string) (*model.DelegationNote, error) {
	var aID sql.NullInt64
	if authorID != nil {
		aID = sql.NullInt64{Int64: *authorID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO delegation_notes (task_id, author_id, type, text) VALUES (?, ?, ?, ?)`,
		taskID, aID, noteType, text,
	)
	if err != nil {
		return nil, fmt.Errorf("insert delegation note: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+noteCols+` FROM delegation_notes WHERE id = ?`, id)
	return scanNote(row)
}

func (s *TaskStore) ListNotes(taskID int64) ([]model.DelegationNote, error) {
	rows, err := s.db.Query(
		`SELECT `+noteCols+` FROM delegation_notes WHERE task_id = ? ORDER BY created_at ASC, id ASC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list delegation notes: %w", err)
	}
	defer rows.Close()

	var notes []model.DelegationNote
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan delegation note: %w", err)
		}
		notes = append(notes, *n)
	}
	return notes, rows.Err()
}
