package handler

import (
	"encoding/json"
	"fmt"
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

type RewardHandler struct {
	rewardStore      *store.RewardStore
	partnershipStore *store.PartnershipStore
	notifier         *notify.Notifier
	hub              *websocket.Hub
	logger           *slog.Logger
}

func NewRewardHandler(rs *store.RewardStore, ps *store.PartnershipStore, n *notify.Notifier, hub *websocket.Hub, logger *slog.Logger) *RewardHandler {
	return &RewardHandler{
		rewardStore:      rs,
		partnershipStore: ps,
		notifier:         n,
		hub:              hub,
		logger:           logger,
	}
}

type rewardRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	PointsCost  int    `json:"points_cost"`
	Category    string `json:"category"`
	ForUser     int64  `json:"for_user"`
}

func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}
	if req.PointsCost < 1 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "points_cost must be at least 1"})
		return
	}
	if req.ForUser == 0 || req.ForUser == userID {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "for_user must be your partner"})
		return
	}

	p, err := h.partnershipStore.GetAcceptedBetween(userID, req.ForUser)
	if err != nil {
		h.logger.Error("reward partnership lookup", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create reward"})
		return
	}
	if p == nil {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "you can only create rewards for your partner"})
		return
	}

	reward, err := h.rewardStore.Create(req.Title, req.Description, req.PointsCost, req.Category, userID, req.ForUser)
	if err != nil {
		h.logger.Error("create reward", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create reward"})
		return
	}

	h.notifier.Notify(reward.ForUser, "New reward available",
		fmt.Sprintf("%s (%d points)", reward.Title, reward.PointsCost), "reward", "/rewards")
	h.hub.SendToUsers(websocket.NewMessage("reward", "created", reward.ID, nil), reward.ForUser, reward.CreatedBy)

	writeJSON(w, http.StatusCreated, reward)
}

// List returns the caller's reward shop. ?user_id= switches to the partner's
// shop, for the creator managing it.
func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
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
				h.logger.Error("list rewards partnership lookup", "error", err)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list rewards"})
				return
			}
			if p == nil {
				writeJSON(w, http.StatusForbidden, map[string]string{"error": "not your partner"})
				return
			}
		}
		target = id
	}

	rewards, err := h.rewardStore.ListForUser(target)
	if err != nil {
		h.logger.Error("list rewards", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list rewards"})
		return
	}
	if rewards == nil {
		rewards = []model.Reward{}
	}
	writeJSON(w, http.StatusOK, rewards)
}

func (h *RewardHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	reward, ok := h.loadOwned(w, r, userID)
	if !ok {
		return
	}

	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}
	if req.PointsCost < 1 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "points_cost must be at least 1"})
		return
	}

	updated, err := h.rewardStore.Update(reward.ID, req.Title, req.Description, req.PointsCost, req.Category)
	if err != nil {
		h.logger.Error("update reward", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update reward"})
		return
	}

	h.hub.SendToUsers(websocket.NewMessage("reward", "updated", updated.ID, nil), updated.ForUser, updated.CreatedBy)
	writeJSON(w, http.StatusOK, updated)
}

func (h *RewardHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	reward, ok := h.loadOwned(w, r, userID)
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

	if err := h.rewardStore.SetActive(reward.ID, req.IsActive); err != nil {
		h.logger.Error("set reward active", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update reward"})
		return
	}

	h.hub.SendToUsers(websocket.NewMessage("reward", "updated", reward.ID, nil), reward.ForUser, reward.CreatedBy)
	writeJSON(w, http.StatusOK, map[string]bool{"is_active": req.IsActive})
}

// Purchase spends points on a reward. The balance check and the debit happen
// in one transaction in the store, so two rapid purchases cannot both clear.
func (h *RewardHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	purchase, err := h.rewardStore.Purchase(id, userID)
	if err != nil {
		if writeWorkflowError(w, err) {
			return
		}
		h.logger.Error("purchase reward", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to purchase reward"})
		return
	}

	reward, err := h.rewardStore.GetByID(purchase.RewardID)
	if err != nil {
		h.logger.Error("purchase reward lookup", "purchase_id", purchase.ID, "error", err)
	}
	if reward != nil {
		h.notifier.Notify(reward.CreatedBy, "Reward purchased",
			fmt.Sprintf("%s was purchased for %d points and awaits your validation", reward.Title, purchase.PointsSpent),
			"reward", "/rewards/purchases")
		h.hub.SendToUsers(websocket.NewMessage("purchase", "created", purchase.ID, nil), reward.ForUser, reward.CreatedBy)
	}

	writeJSON(w, http.StatusCreated, purchase)
}

func (h *RewardHandler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	purchases, err := h.rewardStore.ListPurchasesByUser(userID)
	if err != nil {
		h.logger.Error("list purchases", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list purchases"})
		return
	}
	if purchases == nil {
		purchases = []model.RewardPurchase{}
	}
	writeJSON(w, http.StatusOK, purchases)
}

func (h *RewardHandler) Validate(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	purchase, err := h.rewardStore.Validate(id, userID)
	if err != nil {
		if writeWorkflowError(w, err) {
			return
		}
		h.logger.Error("validate purchase", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to validate purchase"})
		return
	}

	h.notifier.Notify(purchase.UserID, "Reward granted",
		"Your reward purchase was validated and is ready to use", "reward", "/rewards/purchases")
	h.hub.SendToUsers(websocket.NewMessage("purchase", "granted", purchase.ID, nil), purchase.UserID, userID)

	writeJSON(w, http.StatusOK, purchase)
}

// Refuse declines a pending purchase and refunds the points in full.
func (h *RewardHandler) Refuse(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
			return
		}
	}

	purchase, err := h.rewardStore.Refuse(id, userID, req.Reason)
	if err != nil {
		if writeWorkflowError(w, err) {
			return
		}
		h.logger.Error("refuse purchase", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to refuse purchase"})
		return
	}

	msg := fmt.Sprintf("Your purchase was refused and %d points were refunded", purchase.PointsSpent)
	if purchase.RefusalReason != "" {
		msg += ": " + purchase.RefusalReason
	}
	h.notifier.Notify(purchase.UserID, "Reward refused", msg, "reward", "/rewards/purchases")
	h.hub.SendToUsers(websocket.NewMessage("purchase", "refused", purchase.ID, nil), purchase.UserID, userID)

	writeJSON(w, http.StatusOK, purchase)
}

func (h *RewardHandler) MarkUsed(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	purchase, err := h.rewardStore.MarkUsed(id, userID)
	if err != nil {
		if writeWorkflowError(w, err) {
			return
		}
		h.logger.Error("mark purchase used", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to mark purchase used"})
		return
	}

	h.hub.SendToUsers(websocket.NewMessage("purchase", "used", purchase.ID, nil), purchase.UserID)
	writeJSON(w, http.StatusOK, purchase)
}

func (h *RewardHandler) loadOwned(w http.ResponseWriter, r *http.Request, userID int64) (*model.Reward, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return nil, false
	}

	reward, err := h.rewardStore.GetByID(id)
	if err != nil {
		h.logger.Error("get reward", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get reward"})
		return nil, false
	}
	if reward == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "reward not found"})
		return nil, false
	}
	if reward.CreatedBy != userID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "only the creator can manage a reward"})
		return nil, false
	}
	return reward, true
}
