package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jmoreau/tether/internal/auth"
	"github.com/jmoreau/tether/internal/model"
	"github.com/jmoreau/tether/internal/notify"
	"github.com/jmoreau/tether/internal/store"
	"github.com/jmoreau/tether/internal/websocket"
)

type TaskHandler struct {
	taskStore        *store.TaskStore
	partnershipStore *store.PartnershipStore
	notifier         *notify.Notifier
	hub              *websocket.Hub
	logger           *slog.Logger
}

func NewTaskHandler(ts *store.TaskStore, ps *store.PartnershipStore, n *notify.Notifier, hub *websocket.Hub, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		taskStore:        ts,
		partnershipStore: ps,
		notifier:         n,
		hub:              hub,
		logger:           logger,
	}
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req struct {
		Title            string     `json:"title"`
		Description      string     `json:"description"`
		PointsValue      int        `json:"points_value"`
		CompletionTarget int        `json:"completion_target"`
		DueDate          *time.Time `json:"due_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}
	if req.PointsValue < 1 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "points_value must be at least 1"})
		return
	}

	p, err := h.partnershipStore.GetAcceptedForUser(userID)
	if err != nil {
		h.logger.Error("task partnership lookup", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create task"})
		return
	}
	if p == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "shared tasks require an accepted partnership"})
		return
	}

	task, err := h.taskStore.Create(p.ID, userID, req.Title, req.Description, req.PointsValue, req.CompletionTarget, req.DueDate)
	if err != nil {
		h.logger.Error("create task", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create task"})
		return
	}

	h.notifier.Notify(p.Partner(userID), "New shared task",
		fmt.Sprintf("%s (%d points each on completion)", task.Title, task.PointsValue), "task", "/tasks")
	h.hub.SendToUsers(websocket.NewMessage("task", "created", task.ID, nil), p.DominantID, p.SubmissiveID)

	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	p, err := h.partnershipStore.GetAcceptedForUser(userID)
	if err != nil {
		h.logger.Error("task partnership lookup", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list tasks"})
		return
	}
	if p == nil {
		writeJSON(w, http.StatusOK, []model.SharedTask{})
		return
	}

	tasks, err := h.taskStore.ListByPartnership(p.ID)
	if err != nil {
		h.logger.Error("list tasks", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list tasks"})
		return
	}
	if tasks == nil {
		tasks = []model.SharedTask{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, _, ok := h.loadMember(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Contribute adds progress toward the target. Crossing the target completes
// the task and credits both partners in the same transaction.
func (h *TaskHandler) Contribute(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req struct {
		Amount int    `json:"amount"`
		Note   string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Amount < 1 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "amount must be at least 1"})
		return
	}

	task, err := h.taskStore.Contribute(id, userID, req.Amount, req.Note)
	if err != nil {
		if writeWorkflowError(w, err) {
			return
		}
		h.logger.Error("contribute to task", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to record contribution"})
		return
	}

	p, perr := h.partnershipStore.GetByID(task.PartnershipID)
	if perr == nil && p != nil {
		if task.CompletedAt != nil {
			msg := fmt.Sprintf("%s is complete; both partners earned %d points", task.Title, task.PointsValue)
			h.notifier.Notify(p.DominantID, "Shared task completed", msg, "task", "/tasks")
			h.notifier.Notify(p.SubmissiveID, "Shared task completed", msg, "task", "/tasks")
			h.hub.SendToUsers(websocket.NewMessage("task", "completed", task.ID, nil), p.DominantID, p.SubmissiveID)
		} else {
			h.hub.SendToUsers(websocket.NewMessage("task", "updated", task.ID,
				map[string]any{"progress": task.CurrentProgress}), p.DominantID, p.SubmissiveID)
		}
	}

	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) ListContributions(w http.ResponseWriter, r *http.Request) {
	task, _, ok := h.loadMember(w, r)
	if !ok {
		return
	}

	contributions, err := h.taskStore.ListContributions(task.ID)
	if err != nil {
		h.logger.Error("list contributions", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list contributions"})
		return
	}
	if contributions == nil {
		contributions = []model.TaskContribution{}
	}
	writeJSON(w, http.StatusOK, contributions)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	task, _, ok := h.loadMember(w, r)
	if !ok {
		return
	}
	if task.CreatedBy != userID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "only the creator can delete a task"})
		return
	}
	if task.CompletedAt != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "completed tasks cannot be deleted"})
		return
	}

	if err := h.taskStore.Delete(task.ID); err != nil {
		h.logger.Error("delete task", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete task"})
		return
	}

	h.hub.SendToUsers(websocket.NewMessage("task", "deleted", task.ID, nil), userID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// loadMember fetches the task from the id path param and enforces that the
// caller belongs to its partnership.
func (h *TaskHandler) loadMember(w http.ResponseWriter, r *http.Request) (*model.SharedTask, *model.Partnership, bool) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return nil, nil, false
	}

	task, err := h.taskStore.GetByID(id)
	if err != nil {
		h.logger.Error("get task", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return nil, nil, false
	}
	if task == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return nil, nil, false
	}

	p, err := h.partnershipStore.GetByID(task.PartnershipID)
	if err != nil {
		h.logger.Error("get task partnership", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return nil, nil, false
	}
	if p == nil || !p.HasMember(userID) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not your task"})
		return nil, nil, false
	}
	return task, p, true
}
