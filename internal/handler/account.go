package handler

import (
	"log/slog"
	"net/http"

	"github.com/jbickell/laneway/internal/auth"
	"github.com/jbickell/laneway/internal/store"
)

type AccountHandler struct {
	userStore *store.UserStore
	logger    *slog.Logger
}

func NewAccountHandler(us *store.UserStore, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{userStore: us, logger: logger}
}

func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	user, err := h.userStore.GetByID(userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get user"})
		return
	}
	if user == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Delete removes the account and everything it owns in one transaction.
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	if err := h.userStore.DeleteAccount(userID); err != nil {
		h.logger.Error("delete account", "error", err, "user_id", userID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete account"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})

	w.WriteHeader(http.StatusNoContent)
}
