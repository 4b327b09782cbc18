package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/jbickell/laneway/internal/model"
)

type TeamStore struct {
	db *sql.DB
}

func NewTeamStore(db *sql.DB) *TeamStore {
	return &TeamStore{db: db}
}

// Invite codes use a 31-character alphabet: digits and capitals minus the
// visually ambiguous 0, 1, O, I, and L.
const (
	inviteCodeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"
	inviteCodeLength   = 8
	inviteExpiry       = 7 * 24 * time.Hour

	// One initial attempt plus four retries on code collision.
	inviteCodeRetries = 4
)

// ErrCodeExhausted is returned when invite code generation keeps colliding.
var ErrCodeExhausted = fmt.Errorf("invite code generation exhausted retries")

func generateInviteCode() (string, error) {
	buf := make([]byte, inviteCodeLength)
	max := big.NewInt(int64(len(inviteCodeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate invite code: %w", err)
		}
		buf[i] = inviteCodeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

func isInviteCodeCollision(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: team_invites.invite_code")
}

func scanInvite(scanner interface{ Scan(...any) error }) (*model.TeamInvite, error) {
	var i model.TeamInvite
	err := scanner.Scan(&i.ID, &i.InviteCode, &i.InviterID, &i.InviteeEmail, &i.Status, &i.ExpiresAt, &i.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

const inviteCols = `id, invite_code, inviter_id, invitee_email, status, expires_at, created_at`

// CreateInvite issues a new pending invite with a fresh code and a 7-day
// expiry. Code generation is retried a bounded number of times on unique
// collision; exhausting the retries is a hard failure, never a fallback to
// a colliding code.
func (s *TeamStore) CreateInvite(ctx context.Context, inviterID int64, inviteeEmail string) (*model.TeamInvite, error) {
	var id int64
	backoff := retry.WithMaxRetries(inviteCodeRetries, retry.NewConstant(time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		code, err := generateInviteCode()
		if err != nil {
			return err
		}
		result, err := s.db.Exec(
			`INSERT INTO team_invites (invite_code, inviter_id, invitee_email, status, expires_at) VALUES (?, ?, ?, ?, ?)`,
			code, inviterID, inviteeEmail, model.InviteStatusPending, time.Now().UTC().Add(inviteExpiry),
		)
		if isInviteCodeCollision(err) {
			return retry.RetryableError(err)
		}
		if err != nil {
			return fmt.Errorf("insert invite: %w", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		return nil
	})
	if isInviteCodeCollision(err) {
		return nil, ErrCodeExhausted
	}
	if err != nil {
		return nil, err
	}
	return s.GetInviteByID(id)
}

// RegenerateInvite replaces the invite's code in place: new code, status
// back to pending, fresh 7-day expiry. No new row is created.
func (s *TeamStore) RegenerateInvite(ctx context.Context, id int64) (*model.TeamInvite, error) {
	backoff := retry.WithMaxRetries(inviteCodeRetries, retry.NewConstant(time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		code, err := generateInviteCode()
		if err != nil {
			return err
		}
		_, err = s.db.Exec(
			`UPDATE team_invites SET invite_code = ?, status = ?, expires_at = ? WHERE id = ?`,
			code, model.InviteStatusPending, time.Now().UTC().Add(inviteExpiry), id,
		)
		if isInviteCodeCollision(err) {
			return retry.RetryableError(err)
		}
		if err != nil {
			return fmt.Errorf("regenerate invite: %w", err)
		}
		return nil
	})
	if isInviteCodeCollision(err) {
		return nil, ErrCodeExhausted
	}
	if err != nil {
		return nil, err
	}
	return s.GetInviteByID(id)
}

func (s *TeamStore) GetInviteByID(id int64) (*model.TeamInvite, error) {
	row := s.db.QueryRow(`SELECT `+inviteCols+` FROM team_invites WHERE id = ?`, id)
	i, err := scanInvite(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get invite: %w", err)
	}
	return i, nil
}

func (s *TeamStore) GetInviteByCode(code string) (*model.TeamInvite, error) {
	row := s.db.QueryRow(`SELECT `+inviteCols+` FROM team_invites WHERE invite_code = ?`, code)
	i, err := scanInvite(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get invite by code: %w", err)
	}
	return i, nil
}

func (s *TeamStore) ListSentInvites(inviterID int64) ([]model.TeamInvite, error) {
	return s.listInvites(
		`SELECT `+inviteCols+` FROM team_invites WHERE inviter_id = ? ORDER BY created_at DESC`,
		inviterID,
	)
}

// ListReceivedInvites returns pending invites addressed to the given email.
func (s *TeamStore) ListReceivedInvites(email string) ([]model.TeamInvite, error) {
	return s.listInvites(
		`SELECT `+inviteCols+` FROM team_invites WHERE invitee_email = ? AND status = ? ORDER BY created_at DESC`,
		email, model.InviteStatusPending,
	)
}

func (s *TeamStore) listInvites(query string, args ...any) ([]model.TeamInvite, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	defer rows.Close()

	var invites []model.TeamInvite
	for rows.Next() {
		i, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invite: %w", err)
		}
		invites = append(invites, *i)
	}
	return invites, rows.Err()
}

func (s *TeamStore) SetInviteStatus(id int64, status string) error {
	_, err := s.db.Exec(`UPDATE team_invites SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("set invite status: %w", err)
	}
	return nil
}

// DeleteInvite removes the invite row outright. Used for cancelling sent
// invites; declined received invites are kept with status declined.
func (s *TeamStore) DeleteInvite(id int64) error {
	_, err := s.db.Exec(`DELETE FROM team_invites WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete invite: %w", err)
	}
	return nil
}

// --- Team member methods ---

func scanMember(scanner interface{ Scan(...any) error }) (*model.TeamMember, error) {
	var m model.TeamMember
	err := scanner.Scan(&m.ID, &m.UserID, &m.TeammateID, &m.Nickname, &m.Color, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

const memberCols = `id, user_id, teammate_id, nickname, color, created_at`

func (s *TeamStore) GetMemberByID(id int64) (*model.TeamMember, error) {
	row := s.db.QueryRow(`SELECT `+memberCols+` FROM team_members WHERE id = ?`, id)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get team member: %w", err)
	}
	return m, nil
}

// GetLink returns the directed row userID -> teammateID, or nil.
func (s *TeamStore) GetLink(userID, teammateID int64) (*model.TeamMember, error) {
	row := s.db.QueryRow(
		`SELECT `+memberCols+` FROM team_members WHERE user_id = ? AND teammate_id = ?`,
		userID, teammateID,
	)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get team link: %w", err)
	}
	return m, nil
}

func (s *TeamStore) ListMembers(userID int64) ([]model.TeamMember, error) {
	rows, err := s.db.Query(
		`SELECT `+memberCols+` FROM team_members WHERE user_id = ? ORDER BY nickname ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	defer rows.Close()

	var members []model.TeamMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan team member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// CreateLink writes both mirrored rows of a relationship in one
// transaction. nicknameFor/colorFor name the counterpart as seen from each
// side.
func (s *TeamStore) CreateLink(userA, userB int64, nicknameForA, colorForA, nicknameForB, colorForB string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO team_members (user_id, teammate_id, nickname, color) VALUES (?, ?, ?, ?)`,
		userA, userB, nicknameForA, colorForA,
	); err != nil {
		return fmt.Errorf("insert team link: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO team_members (user_id, teammate_id, nickname, color) VALUES (?, ?, ?, ?)`,
		userB, userA, nicknameForB, colorForB,
	); err != nil {
		return fmt.Errorf("insert mirrored team link: %w", err)
	}
	return tx.Commit()
}

// RemoveLink deletes both directions of the relationship and clears the
// delegation fields on tasks either party had delegated to the other, all
// in one transaction, so no task keeps pointing at an ex-teammate.
func (s *TeamStore) RemoveLink(userA, userB int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM team_members WHERE (user_id = ? AND teammate_id = ?) OR (user_id = ? AND teammate_id = ?)`,
		userA, userB, userB, userA,
	); err != nil {
		return fmt.Errorf("delete team links: %w", err)
	}

	if _, err := tx.Exec(
		`UPDATE tasks SET delegated_to_user_id = NULL, delegation_status = NULL, delegated_at = NULL, last_delegation_update = NULL, updated_at = datetime('now')
		 WHERE (user_id = ? AND delegated_to_user_id = ?) OR (user_id = ? AND delegated_to_user_id = ?)`,
		userA, userB, userB, userA,
	); err != nil {
		return fmt.Errorf("clear delegations: %w", err)
	}

	return tx.Commit()
}
