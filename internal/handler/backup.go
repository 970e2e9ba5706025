package handler

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jmoreau/tether/internal/backup"
	"github.com/jmoreau/tether/internal/model"
	"github.com/jmoreau/tether/internal/store"
)

type BackupHandler struct {
	manager       *backup.Manager
	backupStore   *store.BackupStore
	settingsStore *store.SettingsStore
	logger        *slog.Logger
}

func NewBackupHandler(m *backup.Manager, bs *store.BackupStore, ss *store.SettingsStore, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{
		manager:       m,
		backupStore:   bs,
		settingsStore: ss,
		logger:        logger,
	}
}

func (h *BackupHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Status())
}

func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	backups, err := h.backupStore.List(limit)
	if err != nil {
		h.logger.Error("list backups", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list backups"})
		return
	}
	if backups == nil {
		backups = []model.Backup{}
	}
	writeJSON(w, http.StatusOK, backups)
}

// Run starts an immediate backup. The first run generates and stores the
// key-derivation salt; later runs must present the same passphrase or the
// restore path will reject the archive.
func (h *BackupHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Passphrase string `json:"passphrase"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if len(req.Passphrase) < 12 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "passphrase must be at least 12 characters"})
		return
	}

	if err := h.ensureSalt(); err != nil {
		h.logger.Error("backup salt", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to run backup"})
		return
	}

	id, err := h.manager.RunNow(r.Context(), req.Passphrase)
	if err != nil {
		h.logger.Error("run backup", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": fmt.Sprintf("backup failed: %v", err)})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"backup_id": id})
}

// Restore downloads and decrypts a backup over the live database file. The
// process must be restarted afterward so the new file is reopened.
func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req struct {
		Passphrase string `json:"passphrase"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Passphrase == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "passphrase is required"})
		return
	}

	if err := h.manager.Restore(r.Context(), id, req.Passphrase); err != nil {
		h.logger.Error("restore backup", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": fmt.Sprintf("restore failed: %v", err)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "restored, restart required"})
}

func (h *BackupHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	body, size, err := h.manager.Download(r.Context(), id)
	if err != nil {
		h.logger.Error("download backup", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to download backup"})
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="backup-%d.db.enc"`, id))
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Error("stream backup", "error", err)
	}
}

func (h *BackupHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	enabled, _ := h.settingsStore.GetBool(store.SettingBackupEnabled)
	hour, _ := h.settingsStore.GetInt(store.SettingBackupScheduleHour, 3)
	retention, _ := h.settingsStore.GetInt(store.SettingBackupRetentionDays, 30)

	writeJSON(w, http.StatusOK, map[string]any{
		"enabled":        enabled,
		"schedule_hour":  hour,
		"retention_days": retention,
	})
}

func (h *BackupHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled       bool `json:"enabled"`
		ScheduleHour  int  `json:"schedule_hour"`
		RetentionDays int  `json:"retention_days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.ScheduleHour < 0 || req.ScheduleHour > 23 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "schedule_hour must be 0-23"})
		return
	}
	if req.RetentionDays < 1 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "retention_days must be at least 1"})
		return
	}

	settings := map[string]string{
		store.SettingBackupEnabled:       strconv.FormatBool(req.Enabled),
		store.SettingBackupScheduleHour:  strconv.Itoa(req.ScheduleHour),
		store.SettingBackupRetentionDays: strconv.Itoa(req.RetentionDays),
	}
	for key, value := range settings {
		if err := h.settingsStore.Set(key, value); err != nil {
			h.logger.Error("save backup setting", "key", key, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save settings"})
			return
		}
	}
	if req.Enabled {
		if err := h.ensureSalt(); err != nil {
			h.logger.Error("backup salt", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save settings"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (h *BackupHandler) ensureSalt() error {
	existing, err := h.settingsStore.Get(store.SettingBackupSalt)
	if err != nil {
		return err
	}
	if existing != "" {
		return nil
	}
	salt, err := backup.GenerateSalt()
	if err != nil {
		return err
	}
	return h.settingsStore.Set(store.SettingBackupSalt, hex.EncodeToString(salt))
}
