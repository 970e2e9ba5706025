package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jmoreau/tether/internal/auth"
	"github.com/jmoreau/tether/internal/model"
	"github.com/jmoreau/tether/internal/store"
)

type NotificationHandler struct {
	notificationStore *store.NotificationStore
	logger            *slog.Logger
}

func NewNotificationHandler(ns *store.NotificationStore, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{notificationStore: ns, logger: logger}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	unreadOnly := r.URL.Query().Get("unread") == "1"
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	notifications, err := h.notificationStore.ListByUser(userID, unreadOnly, limit)
	if err != nil {
		h.logger.Error("list notifications", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list notifications"})
		return
	}
	if notifications == nil {
		notifications = []model.Notification{}
	}
	writeJSON(w, http.StatusOK, notifications)
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	count, err := h.notificationStore.CountUnread(userID)
	if err != nil {
		h.logger.Error("count unread", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to count notifications"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread": count})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if err := h.notificationStore.MarkRead(id, userID); err != nil {
		if writeWorkflowError(w, err) {
			return
		}
		h.logger.Error("mark notification read", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to mark notification read"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	if err := h.notificationStore.MarkAllRead(userID); err != nil {
		h.logger.Error("mark all notifications read", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to mark notifications read"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if err := h.notificationStore.Delete(id, userID); err != nil {
		if writeWorkflowError(w, err) {
			return
		}
		h.logger.Error("delete notification", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete notification"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
