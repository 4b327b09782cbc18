package model

import "time"

type Task struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Title     string     `json:"title"`
	Notes     string     `json:"notes"`
	Lane      string     `json:"lane"`
	DueDate   *time.Time `json:"due_date"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// CompletedAt is nil while the task is open.
	CompletedAt *time.Time `json:"completed_at"`

	// Delegation fields. DelegatedContactID is set for local-contact
	// delegation; DelegatedToUserID and DelegationStatus are set together
	// for teammate delegation and are nil otherwise.
	DelegatedContactID   *int64     `json:"delegated_contact_id"`
	DelegatedToUserID    *int64     `json:"delegated_to_user_id"`
	DelegationStatus     *string    `json:"delegation_status"`
	DelegatedAt          *time.Time `json:"delegated_at"`
	LastDelegationUpdate *time.Time `json:"last_delegation_update"`
}

// Completed reports whether the task has been completed.
func (t *Task) Completed() bool {
	return t.CompletedAt != nil
}

type Subtask struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

// DelegationNote is an append-only log entry on a delegated task.
type DelegationNote struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	AuthorID  *int64    `json:"author_id"`
	Type      string    `json:"type"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
