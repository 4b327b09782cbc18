package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jbickell/laneway/internal/auth"
	"github.com/jbickell/laneway/internal/email"
	"github.com/jbickell/laneway/internal/store"
)

const maxSupportMessageLength = 5000

type SupportHandler struct {
	userStore    *store.UserStore
	emailClient  *email.Client
	supportEmail string
	logger       *slog.Logger
}

func NewSupportHandler(us *store.UserStore, ec *email.Client, supportEmail string, logger *slog.Logger) *SupportHandler {
	return &SupportHandler{userStore: us, emailClient: ec, supportEmail: supportEmail, logger: logger}
}

type supportRequest struct {
	Message string `json:"message"`
}

func (h *SupportHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req supportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}
	if len(req.Message) > maxSupportMessageLength {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is too long"})
		return
	}

	if h.emailClient == nil || !h.emailClient.Configured() || h.supportEmail == "" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "support email is not configured"})
		return
	}

	user, err := h.userStore.GetByID(userID)
	if err != nil || user == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get user"})
		return
	}

	if err := h.emailClient.SendSupport(h.supportEmail, user.Email, req.Message); err != nil {
		h.logger.Error("send support email", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to send message"})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}
