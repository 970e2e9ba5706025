package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmoreau/tether/internal/backup"
	"github.com/jmoreau/tether/internal/handler"
	"github.com/jmoreau/tether/internal/middleware"
	"github.com/jmoreau/tether/internal/notify"
	"github.com/jmoreau/tether/internal/push"
	"github.com/jmoreau/tether/internal/store"
	ws "github.com/jmoreau/tether/internal/websocket"
)

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	authH         *handler.AuthHandler
	profileH      *handler.ProfileHandler
	partnershipH  *handler.PartnershipHandler
	ledgerH       *handler.LedgerHandler
	habitH        *handler.HabitHandler
	rewardH       *handler.RewardHandler
	punishmentH   *handler.PunishmentHandler
	taskH         *handler.TaskHandler
	notificationH *handler.NotificationHandler
	pushH         *handler.PushHandler
	backupH       *handler.BackupHandler
	sessionStore  *store.SessionStore
	profileStore  *store.ProfileStore
	rateLimiter   *middleware.RateLimiter
	backupManager *backup.Manager
	logger        *slog.Logger
}

func New(db *sql.DB, pushSvc *push.Service, backupCfg backup.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	profileStore := store.NewProfileStore(db)
	sessionStore := store.NewSessionStore(db)
	partnershipStore := store.NewPartnershipStore(db)
	ledgerStore := store.NewLedgerStore(db)
	habitStore := store.NewHabitStore(db)
	rewardStore := store.NewRewardStore(db)
	punishmentStore := store.NewPunishmentStore(db)
	taskStore := store.NewTaskStore(db)
	notificationStore := store.NewNotificationStore(db)
	pushStore := store.NewPushStore(db)
	settingsStore := store.NewSettingsStore(db)
	backupStore := store.NewBackupStore(db)

	backupMgr := backup.NewManager(backupCfg, db, backupStore, settingsStore, logger.With("component", "backup"))
	notifier := notify.New(notificationStore, pushStore, pushSvc, hub, logger)

	return &Server{
		db:            db,
		hub:           hub,
		authH:         handler.NewAuthHandler(userStore, profileStore, sessionStore, logger.With("component", "auth")),
		profileH:      handler.NewProfileHandler(profileStore, logger.With("component", "profile")),
		partnershipH:  handler.NewPartnershipHandler(partnershipStore, profileStore, notifier, hub, logger.With("component", "partnership")),
		ledgerH:       handler.NewLedgerHandler(ledgerStore, partnershipStore, notifier, hub, logger.With("component", "ledger")),
		habitH:        handler.NewHabitHandler(habitStore, partnershipStore, notifier, hub, logger.With("component", "habit")),
		rewardH:       handler.NewRewardHandler(rewardStore, partnershipStore, notifier, hub, logger.With("component", "reward")),
		punishmentH:   handler.NewPunishmentHandler(punishmentStore, partnershipStore, notifier, hub, logger.With("component", "punishment")),
		taskH:         handler.NewTaskHandler(taskStore, partnershipStore, notifier, hub, logger.With("component", "task")),
		notificationH: handler.NewNotificationHandler(notificationStore, logger.With("component", "notification")),
		pushH:         handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push")),
		backupH:       handler.NewBackupHandler(backupMgr, backupStore, settingsStore, logger.With("component", "backup_handler")),
		sessionStore:  sessionStore,
		profileStore:  profileStore,
		rateLimiter:   middleware.NewRateLimiter(),
		backupManager: backupMgr,
		logger:        logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/auth/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.profileStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/auth/me", s.authH.Me)
	mux.HandleFunc("PUT /api/auth/password", s.authH.ChangePassword)

	// Profile routes
	mux.HandleFunc("GET /api/profiles/{id}", s.profileH.Get)
	mux.HandleFunc("PUT /api/profile", s.profileH.Update)
	mux.HandleFunc("GET /api/profiles/search", s.profileH.Search)

	// Partnership routes
	mux.HandleFunc("POST /api/partnerships", s.partnershipH.Propose)
	mux.HandleFunc("GET /api/partnerships", s.partnershipH.List)
	mux.HandleFunc("GET /api/partnerships/current", s.partnershipH.Current)
	mux.HandleFunc("POST /api/partnerships/{id}/accept", s.partnershipH.Accept)
	mux.HandleFunc("POST /api/partnerships/{id}/reject", s.partnershipH.Reject)
	mux.HandleFunc("POST /api/partnerships/{id}/dissolve", s.partnershipH.Dissolve)

	// Points ledger routes
	mux.HandleFunc("GET /api/points/transactions", s.ledgerH.ListTransactions)
	mux.HandleFunc("GET /api/points/balance", s.ledgerH.Balance)
	mux.HandleFunc("GET /api/points/partner", s.ledgerH.PartnerStats)
	mux.Handle("POST /api/points/adjust", middleware.RequireDominant(http.HandlerFunc(s.ledgerH.Adjust)))

	// Habit routes
	mux.HandleFunc("POST /api/habits", s.habitH.Create)
	mux.HandleFunc("GET /api/habits", s.habitH.List)
	mux.HandleFunc("GET /api/habits/{id}", s.habitH.Get)
	mux.HandleFunc("PUT /api/habits/{id}", s.habitH.Update)
	mux.HandleFunc("PUT /api/habits/{id}/active", s.habitH.SetActive)
	mux.HandleFunc("POST /api/habits/{id}/complete", s.habitH.Complete)
	mux.HandleFunc("GET /api/habits/{id}/completions", s.habitH.ListCompletions)
	mux.HandleFunc("DELETE /api/completions/{id}", s.habitH.UndoComplete)

	// Reward routes
	mux.Handle("POST /api/rewards", middleware.RequireDominant(http.HandlerFunc(s.rewardH.Create)))
	mux.HandleFunc("GET /api/rewards", s.rewardH.List)
	mux.HandleFunc("PUT /api/rewards/{id}", s.rewardH.Update)
	mux.HandleFunc("PUT /api/rewards/{id}/active", s.rewardH.SetActive)
	mux.HandleFunc("POST /api/rewards/{id}/purchase", s.rewardH.Purchase)
	mux.HandleFunc("GET /api/purchases", s.rewardH.ListPurchases)
	mux.HandleFunc("POST /api/purchases/{id}/validate", s.rewardH.Validate)
	mux.HandleFunc("POST /api/purchases/{id}/refuse", s.rewardH.Refuse)
	mux.HandleFunc("POST /api/purchases/{id}/use", s.rewardH.MarkUsed)

	// Punishment routes
	mux.Handle("POST /api/punishments", middleware.RequireDominant(http.HandlerFunc(s.punishmentH.Create)))
	mux.HandleFunc("GET /api/punishments", s.punishmentH.List)
	mux.HandleFunc("PUT /api/punishments/{id}", s.punishmentH.Update)
	mux.HandleFunc("PUT /api/punishments/{id}/active", s.punishmentH.SetActive)
	mux.Handle("POST /api/punishments/{id}/assign", middleware.RequireDominant(http.HandlerFunc(s.punishmentH.Assign)))
	mux.HandleFunc("GET /api/assignments", s.punishmentH.ListAssignments)
	mux.HandleFunc("POST /api/assignments/{id}/complete", s.punishmentH.CompleteAssignment)
	mux.HandleFunc("POST /api/assignments/{id}/validate", s.punishmentH.ValidateAssignment)

	// Shared task routes
	mux.HandleFunc("POST /api/tasks", s.taskH.Create)
	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("GET /api/tasks/{id}", s.taskH.Get)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.taskH.Delete)
	mux.HandleFunc("POST /api/tasks/{id}/contribute", s.taskH.Contribute)
	mux.HandleFunc("GET /api/tasks/{id}/contributions", s.taskH.ListContributions)

	// Notification routes
	mux.HandleFunc("GET /api/notifications", s.notificationH.List)
	mux.HandleFunc("GET /api/notifications/unread-count", s.notificationH.UnreadCount)
	mux.HandleFunc("POST /api/notifications/{id}/read", s.notificationH.MarkRead)
	mux.HandleFunc("POST /api/notifications/read-all", s.notificationH.MarkAllRead)
	mux.HandleFunc("DELETE /api/notifications/{id}", s.notificationH.Delete)

	// Push notification routes
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDPublicKey)
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("POST /api/push/unsubscribe", s.pushH.Unsubscribe)

	// Backup routes, dominant only
	mux.Handle("GET /api/backups/status", middleware.RequireDominant(http.HandlerFunc(s.backupH.Status)))
	mux.Handle("GET /api/backups", middleware.RequireDominant(http.HandlerFunc(s.backupH.List)))
	mux.Handle("POST /api/backups", middleware.RequireDominant(http.HandlerFunc(s.backupH.Run)))
	mux.Handle("POST /api/backups/{id}/restore", middleware.RequireDominant(http.HandlerFunc(s.backupH.Restore)))
	mux.Handle("GET /api/backups/{id}/download", middleware.RequireDominant(http.HandlerFunc(s.backupH.Download)))
	mux.Handle("GET /api/backups/settings", middleware.RequireDominant(http.HandlerFunc(s.backupH.GetSettings)))
	mux.Handle("PUT /api/backups/settings", middleware.RequireDominant(http.HandlerFunc(s.backupH.UpdateSettings)))

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))
}
