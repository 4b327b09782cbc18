package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jbickell/laneway/internal/auth"
	"github.com/jbickell/laneway/internal/model"
	"github.com/jbickell/laneway/internal/store"
	"github.com/jbickell/laneway/internal/websocket"
)

type ContactHandler struct {
	contactStore *store.ContactStore
	hub          *websocket.Hub
	logger       *slog.Logger
}

func NewContactHandler(cs *store.ContactStore, hub *websocket.Hub, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{contactStore: cs, hub: hub, logger: logger}
}

func (h *ContactHandler) notify(userID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Notify(userID, msg)
	}
}

type contactRequest struct {
	Name  string `json:"name"`
	Role  string `json:"role"`
	Color string `json:"color"`
}

func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	contact, err := h.contactStore.Create(userID, req.Name, req.Role, req.Color)
	if err != nil {
		h.logger.Error("create contact", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create contact"})
		return
	}

	h.notify(userID, websocket.NewMessage("contact", "created", contact.ID, nil))

	writeJSON(w, http.StatusCreated, contact)
}

func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	contacts, err := h.contactStore.ListByUser(userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list contacts"})
		return
	}
	if contacts == nil {
		contacts = []model.Contact{}
	}
	writeJSON(w, http.StatusOK, contacts)
}

// getOwnedContact loads a contact and checks ownership, writing the error
// response itself on failure.
func (h *ContactHandler) getOwnedContact(w http.ResponseWriter, r *http.Request) *model.Contact {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return nil
	}

	contact, err := h.contactStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get contact"})
		return nil
	}
	if contact == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "contact not found"})
		return nil
	}
	if contact.UserID != userID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not your contact"})
		return nil
	}
	return contact
}

func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	contact := h.getOwnedContact(w, r)
	if contact == nil {
		return
	}
	writeJSON(w, http.StatusOK, contact)
}

func (h *ContactHandler) Update(w http.ResponseWriter, r *http.Request) {
	contact := h.getOwnedContact(w, r)
	if contact == nil {
		return
	}

	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	updated, err := h.contactStore.Update(contact.ID, req.Name, req.Role, req.Color)
	if err != nil {
		h.logger.Error("update contact", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update contact"})
		return
	}

	h.notify(contact.UserID, websocket.NewMessage("contact", "updated", updated.ID, nil))

	writeJSON(w, http.StatusOK, updated)
}

func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	contact := h.getOwnedContact(w, r)
	if contact == nil {
		return
	}

	// Deleting a contact orphans its delegations; the schema clears the
	// reference via ON DELETE SET NULL.
	if err := h.contactStore.Delete(contact.ID); err != nil {
		h.logger.Error("delete contact", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete contact"})
		return
	}

	h.notify(contact.UserID, websocket.NewMessage("contact", "deleted", contact.ID, nil))

	w.WriteHeader(http.StatusNoContent)
}
