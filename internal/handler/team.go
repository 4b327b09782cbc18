package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/jbickell/laneway/internal/auth"
	"github.com/jbickell/laneway/internal/email"
	"github.com/jbickell/laneway/internal/model"
	"github.com/jbickell/laneway/internal/store"
	"github.com/jbickell/laneway/internal/websocket"
)

// memberColors is the palette used for display colors assigned on accept.
var memberColors = []string{
	"#3B82F6", "#EF4444", "#10B981", "#F59E0B",
	"#8B5CF6", "#EC4899", "#14B8A6", "#F97316",
}

type TeamHandler struct {
	teamStore *store.TeamStore
	userStore *store.UserStore
	email     *email.Client
	hub       *websocket.Hub
	logger    *slog.Logger
}

func NewTeamHandler(ts *store.TeamStore, us *store.UserStore, ec *email.Client, hub *websocket.Hub, logger *slog.Logger) *TeamHandler {
	return &TeamHandler{teamStore: ts, userStore: us, email: ec, hub: hub, logger: logger}
}

func (h *TeamHandler) notify(userID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Notify(userID, msg)
	}
}

func (h *TeamHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	members, err := h.teamStore.ListMembers(userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list team"})
		return
	}
	if members == nil {
		members = []model.TeamMember{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *TeamHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	member, err := h.teamStore.GetMemberByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get team member"})
		return
	}
	if member == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "team member not found"})
		return
	}
	if member.UserID != userID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "access denied"})
		return
	}

	// Removes both directions and clears delegations between the two users.
	if err := h.teamStore.RemoveLink(member.UserID, member.TeammateID); err != nil {
		h.logger.Error("remove team link", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to remove team member"})
		return
	}

	h.notify(member.UserID, websocket.NewMessage("team", "removed", member.ID, nil))
	h.notify(member.TeammateID, websocket.NewMessage("team", "removed", member.ID, nil))

	w.WriteHeader(http.StatusNoContent)
}

type inviteRequest struct {
	Email string `json:"email"`
}

func (h *TeamHandler) CreateInvite(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req inviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	invite, err := h.teamStore.CreateInvite(r.Context(), userID, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrCodeExhausted) {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "could not generate a unique invite code, try again"})
			return
		}
		h.logger.Error("create invite", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create invite"})
		return
	}

	if req.Email != "" && h.email != nil && h.email.Configured() {
		inviter, err := h.userStore.GetByID(userID)
		if err == nil && inviter != nil {
			if err := h.email.SendInvite(req.Email, inviter.Name, invite.InviteCode); err != nil {
				h.logger.Error("send invite email", "error", err)
			}
		}
	}

	writeJSON(w, http.StatusCreated, invite)
}

func (h *TeamHandler) ListInvites(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	sent, err := h.teamStore.ListSentInvites(userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list invites"})
		return
	}
	if sent == nil {
		sent = []model.TeamInvite{}
	}

	received := []model.TeamInvite{}
	user, err := h.userStore.GetByID(userID)
	if err == nil && user != nil {
		rcv, err := h.teamStore.ListReceivedInvites(user.Email)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list invites"})
			return
		}
		if rcv != nil {
			received = rcv
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sent":     sent,
		"received": received,
	})
}

type acceptInviteRequest struct {
	Code string `json:"code"`
}

func (h *TeamHandler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req acceptInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	req.Code = strings.TrimSpace(strings.ToUpper(req.Code))
	if req.Code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "code is required"})
		return
	}

	invite, err := h.teamStore.GetInviteByCode(req.Code)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to look up invite"})
		return
	}
	if invite == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "invite not found"})
		return
	}
	if invite.Status != model.InviteStatusPending {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "invite already used"})
		return
	}
	if invite.Expired(time.Now()) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "invite expired"})
		return
	}
	if invite.InviterID == userID {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "cannot accept your own invite"})
		return
	}

	accepter, err := h.userStore.GetByID(userID)
	if err != nil || accepter == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get user"})
		return
	}
	if invite.InviteeEmail != "" && !strings.EqualFold(invite.InviteeEmail, accepter.Email) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "access denied"})
		return
	}

	inviter, err := h.userStore.GetByID(invite.InviterID)
	if err != nil || inviter == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get inviter"})
		return
	}

	// Idempotent accept: an existing relation just marks the invite accepted.
	existing, err := h.teamStore.GetLink(invite.InviterID, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check team"})
		return
	}
	if existing == nil {
		colorForInviter, colorForAccepter := pickDistinctColors()
		err = h.teamStore.CreateLink(
			invite.InviterID, userID,
			displayNickname(accepter), colorForInviter,
			displayNickname(inviter), colorForAccepter,
		)
		if err != nil {
			h.logger.Error("create team link", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create team link"})
			return
		}
	}

	if err := h.teamStore.SetInviteStatus(invite.ID, model.InviteStatusAccepted); err != nil {
		h.logger.Error("mark invite accepted", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update invite"})
		return
	}

	h.notify(invite.InviterID, websocket.NewMessage("invite", "accepted", invite.ID, nil))
	h.notify(userID, websocket.NewMessage("team", "joined", invite.ID, nil))

	members, err := h.teamStore.ListMembers(userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list team"})
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *TeamHandler) DeclineInvite(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	invite, err := h.teamStore.GetInviteByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get invite"})
		return
	}
	if invite == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "invite not found"})
		return
	}

	user, err := h.userStore.GetByID(userID)
	if err != nil || user == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get user"})
		return
	}
	if !strings.EqualFold(invite.InviteeEmail, user.Email) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "access denied"})
		return
	}
	if invite.Status != model.InviteStatusPending {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "invite already used"})
		return
	}

	// Declined invites are retained, not deleted.
	if err := h.teamStore.SetInviteStatus(invite.ID, model.InviteStatusDeclined); err != nil {
		h.logger.Error("decline invite", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to decline invite"})
		return
	}

	h.notify(invite.InviterID, websocket.NewMessage("invite", "declined", invite.ID, nil))

	w.WriteHeader(http.StatusNoContent)
}

func (h *TeamHandler) CancelInvite(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	invite, err := h.teamStore.GetInviteByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get invite"})
		return
	}
	if invite == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "invite not found"})
		return
	}
	if invite.InviterID != userID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "access denied"})
		return
	}

	// Cancelling a sent invite deletes the row outright.
	if err := h.teamStore.DeleteInvite(invite.ID); err != nil {
		h.logger.Error("cancel invite", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to cancel invite"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TeamHandler) RegenerateInvite(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	invite, err := h.teamStore.GetInviteByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get invite"})
		return
	}
	if invite == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "invite not found"})
		return
	}
	if invite.InviterID != userID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "access denied"})
		return
	}

	regenerated, err := h.teamStore.RegenerateInvite(r.Context(), invite.ID)
	if err != nil {
		if errors.Is(err, store.ErrCodeExhausted) {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "could not generate a unique invite code, try again"})
			return
		}
		h.logger.Error("regenerate invite", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to regenerate invite"})
		return
	}

	writeJSON(w, http.StatusOK, regenerated)
}

// displayNickname derives a teammate nickname from the counterpart's name,
// falling back to the local part of their email.
func displayNickname(u *model.User) string {
	if u.Name != "" {
		return u.Name
	}
	if at := strings.Index(u.Email, "@"); at > 0 {
		return u.Email[:at]
	}
	return u.Email
}

func pickDistinctColors() (string, string) {
	i := rand.Intn(len(memberColors))
	j := rand.Intn(len(memberColors) - 1)
	if j >= i {
		j++
	}
	return memberColors[i], memberColors[j]
}
