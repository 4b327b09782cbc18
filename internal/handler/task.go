package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jbickell/laneway/internal/auth"
	"github.com/jbickell/laneway/internal/delegation"
	"github.com/jbickell/laneway/internal/gamify"
	"github.com/jbickell/laneway/internal/lane"
	"github.com/jbickell/laneway/internal/model"
	"github.com/jbickell/laneway/internal/push"
	"github.com/jbickell/laneway/internal/store"
	"github.com/jbickell/laneway/internal/websocket"
)

type TaskHandler struct {
	taskStore    *store.TaskStore
	contactStore *store.ContactStore
	teamStore    *store.TeamStore
	statsStore   *store.StatsStore
	pushStore    *store.PushStore
	pushService  *push.Service
	hub          *websocket.Hub
	logger       *slog.Logger
}

func NewTaskHandler(ts *store.TaskStore, cs *store.ContactStore, tms *store.TeamStore, ss *store.StatsStore, ps *store.PushStore, svc *push.Service, hub *websocket.Hub, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		taskStore:    ts,
		contactStore: cs,
		teamStore:    tms,
		statsStore:   ss,
		pushStore:    ps,
		pushService:  svc,
		hub:          hub,
		logger:       logger,
	}
}

func (h *TaskHandler) notify(userID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Notify(userID, msg)
	}
}

// sendPush delivers a push notification to every subscription of the user,
// dropping subscriptions the push service reports as gone.
func (h *TaskHandler) sendPush(userID int64, payload push.Payload) {
	if h.pushService == nil || !h.pushService.Configured() {
		return
	}
	subs, err := h.pushStore.ListByUser(userID)
	if err != nil {
		h.logger.Error("list push subscriptions", "error", err)
		return
	}
	for i := range subs {
		if err := h.pushService.Send(&subs[i], payload); err != nil {
			if errors.Is(err, push.ErrExpired) {
				if err := h.pushStore.Delete(subs[i].ID); err != nil {
					h.logger.Error("delete expired push subscription", "error", err)
				}
				continue
			}
			h.logger.Error("send push", "error", err, "subscription_id", subs[i].ID)
		}
	}
}

// taskResponse wraps a task with its computed staleness.
type taskResponse struct {
	model.Task
	Stale bool `json:"stale"`
}

func wrapTask(t *model.Task, today time.Time) taskResponse {
	return taskResponse{Task: *t, Stale: lane.IsStale(t, today)}
}

func wrapTasks(tasks []model.Task, today time.Time) []taskResponse {
	out := make([]taskResponse, 0, len(tasks))
	for i := range tasks {
		out = append(out, wrapTask(&tasks[i], today))
	}
	return out
}

type taskRequest struct {
	Title   string  `json:"title"`
	Notes   string  `json:"notes"`
	Lane    string  `json:"lane"`
	DueDate *string `json:"due_date"`
}

func parseDueDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}

	if req.Lane == "" {
		req.Lane = string(lane.Default)
	}
	if !lane.Valid(req.Lane) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid lane"})
		return
	}

	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid due_date, expected YYYY-MM-DD"})
		return
	}

	task, err := h.taskStore.Create(userID, req.Title, req.Notes, req.Lane, dueDate)
	if err != nil {
		h.logger.Error("create task", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create task"})
		return
	}

	h.notify(userID, websocket.NewMessage("task", "created", task.ID, map[string]any{"lane": task.Lane}))

	writeJSON(w, http.StatusCreated, wrapTask(task, time.Now()))
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	now := time.Now()

	laneParam := r.URL.Query().Get("lane")
	if laneParam != "" {
		if !lane.Valid(laneParam) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid lane"})
			return
		}
		tasks, err := h.taskStore.ListOpenByLane(userID, laneParam)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list tasks"})
			return
		}
		writeJSON(w, http.StatusOK, wrapTasks(tasks, now))
		return
	}

	tasks, err := h.taskStore.ListByUser(userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list tasks"})
		return
	}
	writeJSON(w, http.StatusOK, wrapTasks(tasks, now))
}

// getOwnedTask loads a task and checks ownership, writing the error response
// itself when the task is missing or owned by someone else.
func (h *TaskHandler) getOwnedTask(w http.ResponseWriter, r *http.Request) *model.Task {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return nil
	}

	task, err := h.taskStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return nil
	}
	if task == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return nil
	}
	if task.UserID != userID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not your task"})
		return nil
	}
	return task
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	task, err := h.taskStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return
	}
	if task == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}

	// Owner and delegatee can both view.
	delegatee := task.DelegatedToUserID != nil && *task.DelegatedToUserID == userID
	if task.UserID != userID && !delegatee {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not your task"})
		return
	}

	subtasks, err := h.taskStore.ListSubtasks(task.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list subtasks"})
		return
	}

	writeJSON(w, http.StatusOK, struct {
		taskResponse
		Subtasks []model.Subtask `json:"subtasks"`
	}{wrapTask(task, time.Now()), subtasks})
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	task := h.getOwnedTask(w, r)
	if task == nil {
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}

	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid due_date, expected YYYY-MM-DD"})
		return
	}

	updated, err := h.taskStore.Update(task.ID, req.Title, req.Notes, dueDate)
	if err != nil {
		h.logger.Error("update task", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update task"})
		return
	}

	h.notify(task.UserID, websocket.NewMessage("task", "updated", updated.ID, nil))

	writeJSON(w, http.StatusOK, wrapTask(updated, time.Now()))
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	task := h.getOwnedTask(w, r)
	if task == nil {
		return
	}

	if err := h.taskStore.Delete(task.ID); err != nil {
		h.logger.Error("delete task", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete task"})
		return
	}

	h.notify(task.UserID, websocket.NewMessage("task", "deleted", task.ID, nil))

	w.WriteHeader(http.StatusNoContent)
}

type moveRequest struct {
	Lane string `json:"lane"`
}

func (h *TaskHandler) Move(w http.ResponseWriter, r *http.Request) {
	task := h.getOwnedTask(w, r)
	if task == nil {
		return
	}

	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if !lane.Valid(req.Lane) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid lane"})
		return
	}
	if task.Completed() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "task is completed"})
		return
	}

	moved, err := h.taskStore.Move(task.ID, req.Lane)
	if err != nil {
		h.logger.Error("move task", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to move task"})
		return
	}

	h.notify(task.UserID, websocket.NewMessage("task", "moved", moved.ID, map[string]any{"lane": moved.Lane}))

	writeJSON(w, http.StatusOK, wrapTask(moved, time.Now()))
}

func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	task := h.getOwnedTask(w, r)
	if task == nil {
		return
	}

	now := time.Now()
	changed, err := h.taskStore.Complete(task.ID, now)
	if err != nil {
		h.logger.Error("complete task", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to complete task"})
		return
	}

	completed, err := h.taskStore.GetByID(task.ID)
	if err != nil || completed == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return
	}

	stats, err := h.statsStore.GetOrCreate(task.UserID)
	if err != nil {
		h.logger.Error("get stats", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get stats"})
		return
	}

	// Award only on the transition to completed, never on repeats.
	if changed {
		gamify.ApplyCompletion(stats, now)
		if err := h.statsStore.Save(stats); err != nil {
			h.logger.Error("save stats", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save stats"})
			return
		}
		h.notify(task.UserID, websocket.NewMessage("task", "completed", task.ID, nil))
		h.notify(task.UserID, websocket.NewMessage("stats", "updated", task.UserID, map[string]any{"points": stats.Points, "level": stats.Level}))
	}

	writeJSON(w, http.StatusOK, struct {
		taskResponse
		Stats *model.UserStats `json:"stats"`
	}{wrapTask(completed, now), stats})
}

type delegateRequest struct {
	ContactID  *int64 `json:"contact_id"`
	TeammateID *int64 `json:"teammate_id"`
}

func (h *TaskHandler) Delegate(w http.ResponseWriter, r *http.Request) {
	task := h.getOwnedTask(w, r)
	if task == nil {
		return
	}
	if task.Completed() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "task is completed"})
		return
	}

	var req delegateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if (req.ContactID == nil) == (req.TeammateID == nil) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "exactly one of contact_id or teammate_id is required"})
		return
	}

	now := time.Now()

	if req.ContactID != nil {
		contact, err := h.contactStore.GetByID(*req.ContactID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get contact"})
			return
		}
		if contact == nil || contact.UserID != task.UserID {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "contact not found"})
			return
		}

		delegated, err := h.taskStore.DelegateToContact(task.ID, contact.ID, now)
		if err != nil {
			h.logger.Error("delegate task", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delegate task"})
			return
		}

		h.notify(task.UserID, websocket.NewMessage("task", "delegated", task.ID, nil))
		writeJSON(w, http.StatusOK, wrapTask(delegated, now))
		return
	}

	link, err := h.teamStore.GetLink(task.UserID, *req.TeammateID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check team"})
		return
	}
	if link == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "not a teammate"})
		return
	}

	delegated, err := h.taskStore.DelegateToUser(task.ID, *req.TeammateID, string(delegation.StatusAssigned), now)
	if err != nil {
		h.logger.Error("delegate task", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delegate task"})
		return
	}

	h.notify(task.UserID, websocket.NewMessage("task", "delegated", task.ID, nil))
	h.notify(*req.TeammateID, websocket.NewMessage("task", "assigned", task.ID, nil))
	h.sendPush(*req.TeammateID, push.Payload{
		Title: "Task assigned",
		Body:  task.Title,
		URL:   "/delegated",
		Tag:   "task-assigned-" + strconv.FormatInt(task.ID, 10),
	})

	writeJSON(w, http.StatusOK, wrapTask(delegated, now))
}

func (h *TaskHandler) ClearDelegation(w http.ResponseWriter, r *http.Request) {
	task := h.getOwnedTask(w, r)
	if task == nil {
		return
	}
	if task.DelegatedContactID == nil && task.DelegatedToUserID == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "task is not delegated"})
		return
	}

	prevDelegatee := task.DelegatedToUserID

	cleared, err := h.taskStore.ClearDelegation(task.ID)
	if err != nil {
		h.logger.Error("clear delegation", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to clear delegation"})
		return
	}

	h.notify(task.UserID, websocket.NewMessage("task", "delegation_cleared", task.ID, nil))
	if prevDelegatee != nil {
		h.notify(*prevDelegatee, websocket.NewMessage("task", "delegation_cleared", task.ID, nil))
	}

	writeJSON(w, http.StatusOK, wrapTask(cleared, time.Now()))
}

type delegationStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

func (h *TaskHandler) SetDelegationStatus(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	task, err := h.taskStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return
	}
	if task == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}
	if task.DelegatedToUserID == nil || *task.DelegatedToUserID != userID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not delegated to you"})
		return
	}

	var req delegationStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if !delegation.Valid(req.Status) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	now := time.Now()
	updated, err := h.taskStore.SetDelegationStatus(task.ID, req.Status, now)
	if err != nil {
		h.logger.Error("set delegation status", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update status"})
		return
	}

	req.Note = strings.TrimSpace(req.Note)
	if req.Note != "" {
		if _, err := h.taskStore.CreateNote(task.ID, &userID, "status_update", req.Note); err != nil {
			h.logger.Error("create status note", "error", err)
		}
	}

	h.notify(task.UserID, websocket.NewMessage("task", "delegation_updated", task.ID, map[string]any{"status": req.Status}))
	h.sendPush(task.UserID, push.Payload{
		Title: "Delegation update",
		Body:  task.Title + ": " + req.Status,
		URL:   "/tasks/" + strconv.FormatInt(task.ID, 10),
		Tag:   "delegation-" + strconv.FormatInt(task.ID, 10),
	})

	writeJSON(w, http.StatusOK, wrapTask(updated, now))
}

func (h *TaskHandler) ListDelegatedToMe(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	tasks, err := h.taskStore.ListDelegatedToUser(userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list tasks"})
		return
	}
	writeJSON(w, http.StatusOK, wrapTasks(tasks, time.Now()))
}

func (h *TaskHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	task, err := h.taskStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return
	}
	if task == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}
	delegatee := task.DelegatedToUserID != nil && *task.DelegatedToUserID == userID
	if task.UserID != userID && !delegatee {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not your task"})
		return
	}

	notes, err := h.taskStore.ListNotes(task.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list notes"})
		return
	}
	if notes == nil {
		notes = []model.DelegationNote{}
	}
	writeJSON(w, http.StatusOK, notes)
}

type subtaskRequest struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

func (h *TaskHandler) CreateSubtask(w http.ResponseWriter, r *http.Request) {
	task := h.getOwnedTask(w, r)
	if task == nil {
		return
	}

	var req subtaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}

	subtask, err := h.taskStore.CreateSubtask(task.ID, req.Title)
	if err != nil {
		h.logger.Error("create subtask", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create subtask"})
		return
	}

	h.notify(task.UserID, websocket.NewMessage("subtask", "created", subtask.ID, map[string]any{"task_id": task.ID}))

	writeJSON(w, http.StatusCreated, subtask)
}

// getSubtask loads a subtask under a parent task, checking that the caller
// owns the parent or is its delegatee.
func (h *TaskHandler) getSubtask(w http.ResponseWriter, r *http.Request, ownerOnly bool) (*model.Task, *model.Subtask) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return nil, nil
	}
	subtaskID, err := strconv.ParseInt(r.PathValue("subtask_id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid subtask id"})
		return nil, nil
	}

	task, err := h.taskStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return nil, nil
	}
	if task == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return nil, nil
	}

	delegatee := task.DelegatedToUserID != nil && *task.DelegatedToUserID == userID
	if task.UserID != userID && (ownerOnly || !delegatee) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not your task"})
		return nil, nil
	}

	subtask, err := h.taskStore.GetSubtaskByID(subtaskID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get subtask"})
		return nil, nil
	}
	if subtask == nil || subtask.TaskID != task.ID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "subtask not found"})
		return nil, nil
	}
	return task, subtask
}

func (h *TaskHandler) UpdateSubtask(w http.ResponseWriter, r *http.Request) {
	task, subtask := h.getSubtask(w, r, false)
	if subtask == nil {
		return
	}

	var req subtaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		req.Title = subtask.Title
	}

	updated, err := h.taskStore.UpdateSubtask(subtask.ID, req.Title, req.Completed)
	if err != nil {
		h.logger.Error("update subtask", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update subtask"})
		return
	}

	h.notify(task.UserID, websocket.NewMessage("subtask", "updated", updated.ID, map[string]any{"task_id": task.ID}))

	writeJSON(w, http.StatusOK, updated)
}

func (h *TaskHandler) DeleteSubtask(w http.ResponseWriter, r *http.Request) {
	task, subtask := h.getSubtask(w, r, true)
	if subtask == nil {
		return
	}

	if err := h.taskStore.DeleteSubtask(subtask.ID); err != nil {
		h.logger.Error("delete subtask", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete subtask"})
		return
	}

	h.notify(task.UserID, websocket.NewMessage("subtask", "deleted", subtask.ID, map[string]any{"task_id": task.ID}))

	w.WriteHeader(http.StatusNoContent)
}
