package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/jmoreau/tether/internal/auth"
	"github.com/jmoreau/tether/internal/model"
	"github.com/jmoreau/tether/internal/notify"
	"github.com/jmoreau/tether/internal/store"
	"github.com/jmoreau/tether/internal/websocket"
)

type PartnershipHandler struct {
	partnershipStore *store.PartnershipStore
	profileStore     *store.ProfileStore
	notifier         *notify.Notifier
	hub              *websocket.Hub
	logger           *slog.Logger
}

func NewPartnershipHandler(ps *store.PartnershipStore, prs *store.ProfileStore, n *notify.Notifier, hub *websocket.Hub, logger *slog.Logger) *PartnershipHandler {
	return &PartnershipHandler{
		partnershipStore: ps,
		profileStore:     prs,
		notifier:         n,
		hub:              hub,
		logger:           logger,
	}
}

// Propose creates a pending partnership. The proposer names the partner and
// which side each takes; the proposer must be one of the two members.
func (h *PartnershipHandler) Propose(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req struct {
		DominantID   int64 `json:"dominant_id"`
		SubmissiveID int64 `json:"submissive_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if req.DominantID == 0 || req.SubmissiveID == 0 || req.DominantID == req.SubmissiveID {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "dominant_id and submissive_id must be two distinct users"})
		return
	}
	if userID != req.DominantID && userID != req.SubmissiveID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "you must be a member of the partnership you propose"})
		return
	}

	partner, err := h.profileStore.GetByUserID(firstOther(userID, req.DominantID, req.SubmissiveID))
	if err != nil {
		h.logger.Error("propose partner lookup", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create partnership"})
		return
	}
	if partner == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "partner not found"})
		return
	}

	p, err := h.partnershipStore.Propose(req.DominantID, req.SubmissiveID, userID)
	if err != nil {
		if writeWorkflowError(w, err) {
			return
		}
		h.logger.Error("propose partnership", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create partnership"})
		return
	}

	proposer, _ := h.profileStore.GetByUserID(userID)
	name := "A user"
	if proposer != nil {
		name = proposer.DisplayName
	}
	h.notifier.Notify(p.Partner(userID), "Partnership request",
		name+" wants to form a partnership with you", "partnership", "/partnerships")
	h.hub.SendToUsers(websocket.NewMessage("partnership", "created", p.ID, nil), p.DominantID, p.SubmissiveID)

	writeJSON(w, http.StatusCreated, p)
}

func (h *PartnershipHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	partnerships, err := h.partnershipStore.ListByUser(userID)
	if err != nil {
		h.logger.Error("list partnerships", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list partnerships"})
		return
	}
	if partnerships == nil {
		partnerships = []model.Partnership{}
	}
	writeJSON(w, http.StatusOK, partnerships)
}

func (h *PartnershipHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "accept")
}

func (h *PartnershipHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "reject")
}

func (h *PartnershipHandler) respond(w http.ResponseWriter, r *http.Request, action string) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var p *model.Partnership
	if action == "accept" {
		p, err = h.partnershipStore.Accept(id, userID)
	} else {
		p, err = h.partnershipStore.Reject(id, userID)
	}
	if err != nil {
		if writeWorkflowError(w, err) {
			return
		}
		h.logger.Error("respond to partnership", "action", action, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update partnership"})
		return
	}

	responder, _ := h.profileStore.GetByUserID(userID)
	name := "Your partner"
	if responder != nil {
		name = responder.DisplayName
	}
	verb := "accepted"
	if action == "reject" {
		verb = "declined"
	}
	h.notifier.Notify(p.Partner(userID), "Partnership "+verb,
		name+" "+verb+" your partnership request", "partnership", "/partnerships")
	h.hub.SendToUsers(websocket.NewMessage("partnership", verb, p.ID, nil), p.DominantID, p.SubmissiveID)

	writeJSON(w, http.StatusOK, p)
}

func (h *PartnershipHandler) Dissolve(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	p, err := h.partnershipStore.Dissolve(id, userID)
	if err != nil {
		if writeWorkflowError(w, err) {
			return
		}
		h.logger.Error("dissolve partnership", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to dissolve partnership"})
		return
	}

	h.notifier.Notify(p.Partner(userID), "Partnership ended",
		"Your partnership has been dissolved", "partnership", "/partnerships")
	h.hub.SendToUsers(websocket.NewMessage("partnership", "dissolved", p.ID, nil), p.DominantID, p.SubmissiveID)

	writeJSON(w, http.StatusOK, p)
}

// Current returns the caller's accepted partnership, or 404 when unpaired.
func (h *PartnershipHandler) Current(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	p, err := h.partnershipStore.GetAcceptedForUser(userID)
	if err != nil {
		h.logger.Error("current partnership", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get partnership"})
		return
	}
	if p == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no accepted partnership"})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func firstOther(self, a, b int64) int64 {
	if a == self {
		return b
	}
	return a
}
