package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jmoreau/tether/internal/auth"
	"github.com/jmoreau/tether/internal/model"
	"github.com/jmoreau/tether/internal/notify"
	"github.com/jmoreau/tether/internal/points"
	"github.com/jmoreau/tether/internal/store"
	"github.com/jmoreau/tether/internal/websocket"
)

type LedgerHandler struct {
	ledgerStore      *store.LedgerStore
	partnershipStore *store.PartnershipStore
	notifier         *notify.Notifier
	hub              *websocket.Hub
	logger           *slog.Logger
}

func NewLedgerHandler(ls *store.LedgerStore, ps *store.PartnershipStore, n *notify.Notifier, hub *websocket.Hub, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{
		ledgerStore:      ls,
		partnershipStore: ps,
		notifier:         n,
		hub:              hub,
		logger:           logger,
	}
}

func (h *LedgerHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	txs, err := h.ledgerStore.ListByUser(userID, limit)
	if err != nil {
		h.logger.Error("list transactions", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list transactions"})
		return
	}
	if txs == nil {
		txs = []model.PointsTransaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (h *LedgerHandler) Balance(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	balance, err := h.ledgerStore.GetBalance(userID)
	if err != nil {
		h.logger.Error("get balance", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get balance"})
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

// PartnerStats returns the dashboard summary for the caller's partner.
func (h *LedgerHandler) PartnerStats(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	p, err := h.partnershipStore.GetAcceptedForUser(userID)
	if err != nil {
		h.logger.Error("partner stats partnership", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get partner stats"})
		return
	}
	if p == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no accepted partnership"})
		return
	}

	stats, err := h.ledgerStore.GetPartnerStats(p.Partner(userID), time.Now())
	if err != nil {
		h.logger.Error("partner stats", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get partner stats"})
		return
	}
	if stats == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "partner profile not found"})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Adjust records a manual bonus, penalty, or punishment entry against the
// caller's partner. Purchases and refunds are reward-typed and only the
// reward workflow writes those, so reward entries are rejected here.
func (h *LedgerHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req struct {
		UserID int64  `json:"user_id"`
		Points int    `json:"points"`
		Type   string `json:"type"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reason is required"})
		return
	}
	if req.Points == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "points must be non-zero"})
		return
	}

	txType, err := points.ParseTransactionType(req.Type)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if txType == points.TypeReward {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reward transactions are written by the purchase workflow"})
		return
	}
	if err := points.CheckSign(txType, req.Points); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	p, err := h.partnershipStore.GetAcceptedBetween(userID, req.UserID)
	if err != nil {
		h.logger.Error("adjust partnership lookup", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to record adjustment"})
		return
	}
	if p == nil {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "you can only adjust your partner's points"})
		return
	}

	tx, err := h.ledgerStore.Record(req.UserID, userID, req.Points, txType, req.Reason, nil)
	if err != nil {
		h.logger.Error("record adjustment", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to record adjustment"})
		return
	}

	title := "Points awarded"
	if req.Points < 0 {
		title = "Points deducted"
	}
	h.notifier.Notify(req.UserID, title,
		fmt.Sprintf("%+d points: %s", req.Points, req.Reason), "points", "/points")
	h.hub.SendToUsers(websocket.NewMessage("transaction", "created", tx.ID, nil), p.DominantID, p.SubmissiveID)

	writeJSON(w, http.StatusCreated, tx)
}
