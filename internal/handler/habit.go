package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jmoreau/tether/internal/auth"
	"github.com/jmoreau/tether/internal/habit"
	"github.com/jmoreau/tether/internal/model"
	"github.com/jmoreau/tether/internal/notify"
	"github.com/jmoreau/tether/internal/store"
	"github.com/jmoreau/tether/internal/websocket"
)

type HabitHandler struct {
	habitStore       *store.HabitStore
	partnershipStore *store.PartnershipStore
	notifier         *notify.Notifier
	hub              *websocket.Hub
	logger           *slog.Logger
}

func NewHabitHandler(hs *store.HabitStore, ps *store.PartnershipStore, n *notify.Notifier, hub *websocket.Hub, logger *slog.Logger) *HabitHandler {
	return &HabitHandler{
		habitStore:       hs,
		partnershipStore: ps,
		notifier:         n,
		hub:              hub,
		logger:           logger,
	}
}

type habitRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Frequency   string `json:"frequency"`
	PointsValue int    `json:"points_value"`
	AssignedTo  int64  `json:"assigned_to"`
}

func (h *HabitHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req habitRequest
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
	freq, err := habit.ParseFrequency(req.Frequency)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.AssignedTo == 0 {
		req.AssignedTo = userID
	}

	// Habits land either on yourself or on your accepted partner.
	if req.AssignedTo != userID {
		p, err := h.partnershipStore.GetAcceptedBetween(userID, req.AssignedTo)
		if err != nil {
			h.logger.Error("habit partnership lookup", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create habit"})
			return
		}
		if p == nil {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "you can only assign habits to your partner"})
			return
		}
	}

	created, err := h.habitStore.Create(req.Title, req.Description, freq, req.PointsValue, req.AssignedTo, userID)
	if err != nil {
		h.logger.Error("create habit", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create habit"})
		return
	}

	if created.AssignedTo != userID {
		h.notifier.Notify(created.AssignedTo, "New habit assigned",
			fmt.Sprintf("%s (%d points, %s)", created.Title, created.PointsValue, created.Frequency),
			"habit", "/habits")
	}
	h.hub.SendToUsers(websocket.NewMessage("habit", "created", created.ID, nil), created.AssignedTo, created.CreatedBy)

	writeJSON(w, http.StatusCreated, created)
}

// List returns habits assigned to the caller, or habits the caller created
// when ?created=1.
func (h *HabitHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var (
		habits []model.Habit
		err    error
	)
	if r.URL.Query().Get("created") == "1" {
		habits, err = h.habitStore.ListByCreator(userID)
	} else {
		habits, err = h.habitStore.ListByAssignee(userID)
	}
	if err != nil {
		h.logger.Error("list habits", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list habits"})
		return
	}
	if habits == nil {
		habits = []model.Habit{}
	}
	writeJSON(w, http.StatusOK, habits)
}

func (h *HabitHandler) Get(w http.ResponseWriter, r *http.Request) {
	hb, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, hb)
}

func (h *HabitHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	hb, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	if hb.CreatedBy != userID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "only the creator can edit a habit"})
		return
	}

	var req habitRequest
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
	freq, err := habit.ParseFrequency(req.Frequency)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	updated, err := h.habitStore.Update(hb.ID, req.Title, req.Description, freq, req.PointsValue)
	if err != nil {
		h.logger.Error("update habit", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update habit"})
		return
	}

	h.hub.SendToUsers(websocket.NewMessage("habit", "updated", updated.ID, nil), updated.AssignedTo, updated.CreatedBy)
	writeJSON(w, http.StatusOK, updated)
}

func (h *HabitHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	hb, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	if hb.CreatedBy != userID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "only the creator can archive a habit"})
		return
	}

	var req struct {
		IsActive bool `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if err := h.habitStore.SetActive(hb.ID, req.IsActive); err != nil {
		h.logger.Error("set habit active", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update habit"})
		return
	}

	h.hub.SendToUsers(websocket.NewMessage("habit", "updated", hb.ID, nil), hb.AssignedTo, hb.CreatedBy)
	writeJSON(w, http.StatusOK, map[string]bool{"is_active": req.IsActive})
}

func (h *HabitHandler) Complete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req struct {
		Notes string `json:"notes"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
			return
		}
	}

	completion, err := h.habitStore.Complete(id, userID, req.Notes, time.Now())
	if err != nil {
		if writeWorkflowError(w, err) {
			return
		}
		h.logger.Error("complete habit", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to complete habit"})
		return
	}

	hb, err := h.habitStore.GetByID(id)
	if err != nil {
		h.logger.Error("complete habit lookup", "habit_id", id, "error", err)
	}
	if hb != nil {
		if hb.CreatedBy != userID {
			h.notifier.Notify(hb.CreatedBy, "Habit completed",
				fmt.Sprintf("%s earned %d points", hb.Title, completion.PointsEarned),
				"habit", "/habits")
		}
		h.hub.SendToUsers(websocket.NewMessage("completion", "created", completion.ID,
			map[string]any{"habit_id": hb.ID, "points": completion.PointsEarned}),
			hb.AssignedTo, hb.CreatedBy)
	}

	writeJSON(w, http.StatusCreated, completion)
}

// UndoComplete removes a completion and records the offsetting ledger entry.
func (h *HabitHandler) UndoComplete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if err := h.habitStore.UndoComplete(id, userID); err != nil {
		if writeWorkflowError(w, err) {
			return
		}
		h.logger.Error("undo completion", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to undo completion"})
		return
	}

	h.hub.SendToUsers(websocket.NewMessage("completion", "deleted", id, nil), userID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "undone"})
}

func (h *HabitHandler) ListCompletions(w http.ResponseWriter, r *http.Request) {
	hb, ok := h.loadVisible(w, r)
	if !ok {
		return
	}

	completions, err := h.habitStore.ListCompletionsByHabit(hb.ID)
	if err != nil {
		h.logger.Error("list completions", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list completions"})
		return
	}
	if completions == nil {
		completions = []model.HabitCompletion{}
	}
	writeJSON(w, http.StatusOK, completions)
}

// loadVisible fetches the habit from the id path param and enforces that the
// caller is its assignee or creator. On failure it writes the response and
// returns ok=false.
func (h *HabitHandler) loadVisible(w http.ResponseWriter, r *http.Request) (*model.Habit, bool) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return nil, false
	}

	hb, err := h.habitStore.GetByID(id)
	if err != nil {
		h.logger.Error("get habit", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get habit"})
		return nil, false
	}
	if hb == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "habit not found"})
		return nil, false
	}
	if hb.AssignedTo != userID && hb.CreatedBy != userID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not your habit"})
		return nil, false
	}
	return hb, true
}
