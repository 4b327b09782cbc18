package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jbickell/laneway/internal/auth"
	"github.com/jbickell/laneway/internal/billing"
	"github.com/jbickell/laneway/internal/extract"
	"github.com/jbickell/laneway/internal/lane"
	"github.com/jbickell/laneway/internal/model"
	"github.com/jbickell/laneway/internal/store"
	"github.com/jbickell/laneway/internal/transcribe"
	"github.com/jbickell/laneway/internal/websocket"
)

// maxCaptureAudioBytes caps uploaded audio at 10 MB.
const maxCaptureAudioBytes = 10 << 20

type CaptureHandler struct {
	taskStore  *store.TaskStore
	userStore  *store.UserStore
	billing    *billing.Client
	transcribe *transcribe.Client
	extract    *extract.Client
	hub        *websocket.Hub
	logger     *slog.Logger
}

func NewCaptureHandler(ts *store.TaskStore, us *store.UserStore, bc *billing.Client, tc *transcribe.Client, ec *extract.Client, hub *websocket.Hub, logger *slog.Logger) *CaptureHandler {
	return &CaptureHandler{
		taskStore:  ts,
		userStore:  us,
		billing:    bc,
		transcribe: tc,
		extract:    ec,
		hub:        hub,
		logger:     logger,
	}
}

type captureRequest struct {
	Transcript string `json:"transcript"`
}

// Capture turns a voice transcript into tasks in the "now" lane. Audio
// uploads (multipart form, field "audio") are transcribed first; JSON
// bodies carry the transcript directly. Premium only.
func (h *CaptureHandler) Capture(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	user, err := h.userStore.GetByID(userID)
	if err != nil || user == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get user"})
		return
	}

	status, err := h.billing.SubscriptionStatus(user.StripeCustomerID)
	if err != nil {
		h.logger.Error("subscription status", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check subscription"})
		return
	}
	if !status.Premium() {
		writeJSON(w, http.StatusPaymentRequired, map[string]string{"error": "voice capture requires a premium subscription"})
		return
	}

	transcript, ok := h.readTranscript(w, r)
	if !ok {
		return
	}
	if transcript == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "transcript is empty"})
		return
	}

	candidates, err := h.extract.Extract(r.Context(), transcript)
	if err != nil {
		h.logger.Error("extract tasks", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "task extraction failed"})
		return
	}

	created := make([]model.Task, 0, len(candidates))
	for _, c := range candidates {
		task, err := h.taskStore.Create(userID, c.Title, c.Notes, string(lane.Default), nil)
		if err != nil {
			h.logger.Error("create captured task", "error", err)
			continue
		}
		created = append(created, *task)
		if h.hub != nil {
			h.hub.Notify(userID, websocket.NewMessage("task", "created", task.ID, map[string]any{"lane": task.Lane}))
		}
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"transcript": transcript,
		"tasks":      created,
	})
}

func (h *CaptureHandler) readTranscript(w http.ResponseWriter, r *http.Request) (string, bool) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxCaptureAudioBytes); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
			return "", false
		}
		file, header, err := r.FormFile("audio")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "audio file is required"})
			return "", false
		}
		defer file.Close()

		ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
		defer cancel()

		transcript, err := h.transcribe.Transcribe(ctx, file, header.Filename)
		if err != nil {
			h.logger.Error("transcribe audio", "error", err)
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "transcription failed"})
			return "", false
		}
		return strings.TrimSpace(transcript), true
	}

	var req captureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return "", false
	}
	return strings.TrimSpace(req.Transcript), true
}
