package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/jmoreau/tether/internal/auth"
	"github.com/jmoreau/tether/internal/model"
	"github.com/jmoreau/tether/internal/store"
)

var hexColorRegexp = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type ProfileHandler struct {
	profileStore *store.ProfileStore
	logger       *slog.Logger
}

func NewProfileHandler(ps *store.ProfileStore, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profileStore: ps, logger: logger}
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	profile, err := h.profileStore.GetByUserID(id)
	if err != nil {
		h.logger.Error("get profile", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get profile"})
		return
	}
	if profile == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "profile not found"})
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req struct {
		DisplayName string `json:"display_name"`
		Role        string `json:"role"`
		Bio         string `json:"bio"`
		ThemeColor  string `json:"theme_color"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.DisplayName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "display_name is required"})
		return
	}
	if !validRole(req.Role) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "role must be dominant, submissive, or switch"})
		return
	}
	if req.ThemeColor == "" {
		req.ThemeColor = "#6366F1"
	}
	if !hexColorRegexp.MatchString(req.ThemeColor) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "theme_color must be a hex color (e.g. #FF0000)"})
		return
	}

	profile, err := h.profileStore.Update(userID, req.DisplayName, req.Role, req.Bio, req.ThemeColor)
	if err != nil {
		h.logger.Error("update profile", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update profile"})
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Search finds potential partners by display name.
func (h *ProfileHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "q is required"})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	profiles, err := h.profileStore.Search(query, userID, limit)
	if err != nil {
		h.logger.Error("search profiles", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to search profiles"})
		return
	}
	if profiles == nil {
		profiles = []model.Profile{}
	}
	writeJSON(w, http.StatusOK, profiles)
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeWorkflowError maps store sentinel errors to client-facing statuses.
// It reports whether err was handled; unhandled errors are the caller's to
// log and answer with a 500.
func writeWorkflowError(w http.ResponseWriter, err error) bool {
	var status int
	switch {
	case errors.Is(err, sql.ErrNoRows):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrNotAuthorized), errors.Is(err, store.ErrNotAssigned):
		status = http.StatusForbidden
	case errors.Is(err, store.ErrInvalidTransition),
		errors.Is(err, store.ErrInsufficientPoints),
		errors.Is(err, store.ErrAlreadyCompleted),
		errors.Is(err, store.ErrInactive),
		errors.Is(err, store.ErrPartnershipExists):
		status = http.StatusConflict
	default:
		return false
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
	return true
}
