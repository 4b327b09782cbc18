package model

import "time"

// TeamMember is one direction of a confirmed link between two accounts.
// A relationship is stored as two mirrored rows, one per direction, each
// carrying that direction's nickname and display color.
type TeamMember struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	TeammateID int64     `json:"teammate_id"`
	Nickname   string    `json:"nickname"`
	Color      string    `json:"color"`
	CreatedAt  time.Time `json:"created_at"`
}

const (
	InviteStatusPending  = "pending"
	InviteStatusAccepted = "accepted"
	InviteStatusDeclined = "declined"
)

// TeamInvite is a single-use, time-boxed invitation code.
type TeamInvite struct {
	ID           int64     `json:"id"`
	InviteCode   string    `json:"invite_code"`
	InviterID    int64     `json:"inviter_id"`
	InviteeEmail string    `json:"invitee_email"`
	Status       string    `json:"status"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// Expired reports whether the invite's expiry has passed.
func (i *TeamInvite) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
