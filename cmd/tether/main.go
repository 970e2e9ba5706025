package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoreau/tether/internal/backup"
	"github.com/jmoreau/tether/internal/database"
	"github.com/jmoreau/tether/internal/logging"
	"github.com/jmoreau/tether/internal/push"
	"github.com/jmoreau/tether/internal/server"
)

func main() {
	port := os.Getenv("TETHER_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("TETHER_DB_PATH")
	if dbPath == "" {
		dbPath = "tether.db"
	}

	logger := logging.Setup(os.Getenv("TETHER_LOG_LEVEL"))

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	var pushSvc *push.Service
	vapidPublic := os.Getenv("TETHER_VAPID_PUBLIC_KEY")
	vapidPrivate := os.Getenv("TETHER_VAPID_PRIVATE_KEY")
	if vapidPublic != "" && vapidPrivate != "" {
		pushSvc = push.NewService(vapidPublic, vapidPrivate)
	} else {
		logger.Info("push notifications disabled, VAPID keys not set")
	}

	backupCfg := backup.Config{
		DBPath: dbPath,
		S3: backup.S3Config{
			Endpoint:  os.Getenv("TETHER_S3_ENDPOINT"),
			Bucket:    os.Getenv("TETHER_S3_BUCKET"),
			Region:    os.Getenv("TETHER_S3_REGION"),
			AccessKey: os.Getenv("TETHER_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("TETHER_S3_SECRET_KEY"),
		},
	}

	srv := server.New(db, pushSvc, backupCfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv.BackupManager().Start(ctx)

	// Periodic cleanup of expired sessions and stale rate limiter entries.
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					logger.Error("session cleanup", "error", err)
				} else if n > 0 {
					logger.Info("expired sessions removed", "count", n)
				}
				srv.RateLimiter().Cleanup()
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Tether running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	srv.BackupManager().Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
