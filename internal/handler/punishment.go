package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/jmoreau/tether/internal/auth"
	"github.com/jmoreau/tether/internal/model"
	"github.com/jmoreau/tether/internal/notify"
	"github.com/jmoreau/tether/internal/store"
	"github.com/jmoreau/tether/internal/websocket"
)

type PunishmentHandler struct {
	punishmentStore  *store.PunishmentStore
	partnershipStore *store.PartnershipStore
	notifier         *notify.Notifier
	hub              *websocket.Hub
	logger           *slog.Logger
}

func NewPunishmentHandler(ps *store.PunishmentStore, prs *store.PartnershipStore, n *notify.Notifier, hub *websocket.Hub, logger *slog.Logger) *PunishmentHandler {
	return &PunishmentHandler{
		punishmentStore:  ps,
		partnershipStore: prs,
		notifier:         n,
		hub:              hub,
		logger:           logger,
	}
}

type punishmentRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Category    string `json:"category"`
	ForUser     int64  `json:"for_user"`
}

func validSeverity(s string) bool {
	switch s {
	case "mild", "moderate", "severe":
		return true
	}
	return false
}

func (h *PunishmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req punishmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}
	if !validSeverity(req.Severity) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "severity must be mild, moderate, or severe"})
		return
	}
	if req.ForUser == 0 || req.ForUser == userID {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "for_user must be your partner"})
		return
	}

	p, err := h.partnershipStore.GetAcceptedBetween(userID, req.ForUser)
	if err != nil {
		h.logger.Error("punishment partnership lookup", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create punishment"})
		return
	}
	if p == nil {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "you can only create punishments for your partner"})
		return
	}

	punishment, err := h.punishmentStore.Create(req.Title, req.Description, req.Severity, req.Category, userID, req.ForUser)
	if err != nil {
		h.logger.Error("create punishment", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create punishment"})
		return
	}

	h.hub.SendToUsers(websocket.NewMessage("punishment", "created", punishment.ID, nil), punishment.ForUser, punishment.CreatedBy)
	writeJSON(w, http.StatusCreated, punishment)
}

// List returns the caller's punishment templates. ?user_id= switches to the
// partner's, for the creator managing them.
func (h *PunishmentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	target := userID
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user_id"})
			return
		}
		if id != userID {
			p, err := h.partnershipStore.GetAcceptedBetween(userID, id)
			if err != nil {
				h.logger.Error("list punishments partnership lookup", "error", err)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list punishments"})
				return
			}
			if p == nil {
				writeJSON(w, http.StatusForbidden, map[string]string{"error": "not your partner"})
				return
			}
		}
		target = id
	}

	punishments, err := h.punishmentStore.ListForUser(target)
	if err != nil {
		h.logger.Error("list punishments", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list punishments"})
		return
	}
	if punishments == nil {
		punishments = []model.Punishment{}
	}
	writeJSON(w, http.StatusOK, punishments)
}

func (h *PunishmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	punishment, ok := h.loadOwned(w, r, userID)
	if !ok {
		return
	}

	var req punishmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}
	if !validSeverity(req.Severity) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "severity must be mild, moderate, or severe"})
		return
	}

	updated, err := h.punishmentStore.Update(punishment.ID, req.Title, req.Description, req.Severity, req.Category)
	if err != nil {
		h.logger.Error("update punishment", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update punishment"})
		return
	}

	h.hub.SendToUsers(websocket.NewMessage("punishment", "updated", updated.ID, nil), updated.ForUser, updated.CreatedBy)
	writeJSON(w, http.StatusOK, updated)
}

func (h *PunishmentHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	punishment, ok := h.loadOwned(w, r, userID)
	if !ok {
		return
	}

	var req struct {
		IsActive bool `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if err := h.punishmentStore.SetActive(punishment.ID, req.IsActive); err != nil {
		h.logger.Error("set punishment active", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update punishment"})
		return
	}

	h.hub.SendToUsers(websocket.NewMessage("punishment", "updated", punishment.ID, nil), punishment.ForUser, punishment.CreatedBy)
	writeJSON(w, http.StatusOK, map[string]bool{"is_active": req.IsActive})
}

// Assign creates an assignment from a template. No ledger entry is written:
// the cost of a punishment is behavioral, not point-denominated.
func (h *PunishmentHandler) Assign(w http.ResponseWriter, r *http.Request) {
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

	assignment, err := h.punishmentStore.Assign(id, userID, req.Notes)
	if err != nil {
		if writeWorkflowError(w, err) {
			return
		}
		h.logger.Error("assign punishment", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to assign punishment"})
		return
	}

	punishment, err := h.punishmentStore.GetByID(assignment.PunishmentID)
	if err != nil {
		h.logger.Error("assign punishment lookup", "assignment_id", assignment.ID, "error", err)
	}
	title := "a punishment"
	if punishment != nil {
		title = punishment.Title
	}
	h.notifier.Notify(assignment.AssignedTo, "Punishment assigned",
		"You have been assigned: "+title, "punishment", "/punishments")
	h.hub.SendToUsers(websocket.NewMessage("assignment", "created", assignment.ID, nil),
		assignment.AssignedTo, assignment.AssignedBy)

	writeJSON(w, http.StatusCreated, assignment)
}

func (h *PunishmentHandler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	assignments, err := h.punishmentStore.ListAssignmentsByUser(userID)
	if err != nil {
		h.logger.Error("list assignments", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list assignments"})
		return
	}
	if assignments == nil {
		assignments = []model.PunishmentAssignment{}
	}
	writeJSON(w, http.StatusOK, assignments)
}

func (h *PunishmentHandler) CompleteAssignment(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	assignment, err := h.punishmentStore.CompleteAssignment(id, userID)
	if err != nil {
		if writeWorkflowError(w, err) {
			return
		}
		h.logger.Error("complete assignment", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to complete assignment"})
		return
	}

	h.notifier.Notify(assignment.AssignedBy, "Punishment completed",
		"A punishment was marked complete and awaits your validation", "punishment", "/punishments")
	h.hub.SendToUsers(websocket.NewMessage("assignment", "completed", assignment.ID, nil),
		assignment.AssignedTo, assignment.AssignedBy)

	writeJSON(w, http.StatusOK, assignment)
}

func (h *PunishmentHandler) ValidateAssignment(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	assignment, err := h.punishmentStore.ValidateAssignment(id, userID)
	if err != nil {
		if writeWorkflowError(w, err) {
			return
		}
		h.logger.Error("validate assignment", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to validate assignment"})
		return
	}

	h.notifier.Notify(assignment.AssignedTo, "Punishment validated",
		"Your completed punishment was validated", "punishment", "/punishments")
	h.hub.SendToUsers(websocket.NewMessage("assignment", "validated", assignment.ID, nil),
		assignment.AssignedTo, assignment.AssignedBy)

	writeJSON(w, http.StatusOK, assignment)
}

func (h *PunishmentHandler) loadOwned(w http.ResponseWriter, r *http.Request, userID int64) (*model.Punishment, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return nil, false
	}

	punishment, err := h.punishmentStore.GetByID(id)
	if err != nil {
		h.logger.Error("get punishment", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get punishment"})
		return nil, false
	}
	if punishment == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "punishment not found"})
		return nil, false
	}
	if punishment.CreatedBy != userID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "only the creator can manage a punishment"})
		return nil, false
	}
	return punishment, true
}
