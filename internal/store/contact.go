package store

import (
	"database/sql"
	"fmt"

	"github.com/jbickell/laneway/internal/model"
)

type ContactStore struct {
	db *sql.DB
}

func NewContactStore(db *sql.DB) *ContactStore {
	return &ContactStore{db: db}
}

func scanContact(scanner interface{ Scan(...any) error }) (*model.Contact, error) {
	var c model.Contact
	err := scanner.Scan(&c.ID, &c.UserID, &c.Name, &c.Role, &c.Color, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const contactCols = `id, user_id, name, role, color, created_at, updated_at`

func (s *ContactStore) Create(userID int64, name, role, color string) (*model.Contact, error) {
	result, err := s.db.Exec(
		`INSERT INTO contacts (user_id, name, role, color) VALUES (?, ?, ?, ?)`,
		userID, name, role, color,
	)
	if err != nil {
		return nil, fmt.Errorf("insert contact: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ContactStore) GetByID(id int64) (*model.Contact, error) {
	row := s.db.QueryRow(`SELECT `+contactCols+` FROM contacts WHERE id = ?`, id)
	c, err := scanContact(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get contact: %w", err)
	}
	return c, nil
}

func (s *ContactStore) ListByUser(userID int64) ([]model.Contact, error) {
	rows, err := s.db.Query(
		`SELECT `+contactCols+` FROM contacts WHERE user_id = ? ORDER BY name ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, *c)
	}
	return contacts, rows.Err()
}

func (s *ContactStore) Update(id int64, name, role, color string) (*model.Contact, error) {
	_, err := s.db.Exec(
		`UPDATE contacts SET name = ?, role = ?, color = ?, updated_at = datetime('now') WHERE id = ?`,
		name, role, color, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update contact: %w", err)
	}
	return s.GetByID(id)
}

func (s *ContactStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM contacts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	return nil
}
