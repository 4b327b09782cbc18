package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jbickell/laneway/internal/auth"
	"github.com/jbickell/laneway/internal/gamify"
	"github.com/jbickell/laneway/internal/model"
	"github.com/jbickell/laneway/internal/review"
	"github.com/jbickell/laneway/internal/store"
)

type StatsHandler struct {
	statsStore *store.StatsStore
	taskStore  *store.TaskStore
	logger     *slog.Logger
}

func NewStatsHandler(ss *store.StatsStore, ts *store.TaskStore, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{statsStore: ss, taskStore: ts, logger: logger}
}

func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	stats, err := h.statsStore.GetOrCreate(userID)
	if err != nil {
		h.logger.Error("get stats", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get stats"})
		return
	}

	now := time.Now()
	cutoff := now.AddDate(0, 0, -7)
	completed, err := h.taskStore.ListCompletedSince(userID, cutoff)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get weekly completions"})
		return
	}

	writeJSON(w, http.StatusOK, struct {
		model.UserStats
		CompletedThisWeek int `json:"completed_this_week"`
	}{*stats, gamify.CompletedSince(completed, cutoff)})
}

func (h *StatsHandler) Review(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	now := time.Now()

	open, err := h.taskStore.ListByUser(userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list tasks"})
		return
	}

	completed, err := h.taskStore.ListCompletedSince(userID, now.AddDate(0, 0, -7))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get weekly completions"})
		return
	}

	stats, err := h.statsStore.GetOrCreate(userID)
	if err != nil {
		h.logger.Error("get stats", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get stats"})
		return
	}

	writeJSON(w, http.StatusOK, review.Build(open, completed, *stats, now))
}
