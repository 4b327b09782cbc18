package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jbickell/laneway/internal/backup"
	"github.com/jbickell/laneway/internal/billing"
	"github.com/jbickell/laneway/internal/database"
	"github.com/jbickell/laneway/internal/logging"
	"github.com/jbickell/laneway/internal/server"
)

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger := logging.Setup(env("LANEWAY_LOG_LEVEL", "info"))

	port := env("LANEWAY_PORT", "8080")
	dbPath := env("LANEWAY_DB_PATH", "laneway.db")

	jwtSecret := os.Getenv("LANEWAY_JWT_SECRET")
	if jwtSecret == "" {
		logger.Error("LANEWAY_JWT_SECRET is required")
		os.Exit(1)
	}

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	backupInterval, _ := time.ParseDuration(env("LANEWAY_BACKUP_INTERVAL", "24h"))
	backupRetention, _ := strconv.Atoi(env("LANEWAY_BACKUP_RETENTION_DAYS", "30"))

	cfg := server.Config{
		BaseURL:         env("LANEWAY_BASE_URL", "http://localhost:"+port),
		JWTSecret:       jwtSecret,
		SupportEmail:    os.Getenv("LANEWAY_SUPPORT_EMAIL"),
		PostmarkToken:   os.Getenv("LANEWAY_POSTMARK_TOKEN"),
		FromEmail:       env("LANEWAY_FROM_EMAIL", "noreply@laneway.app"),
		TranscribeKey:   os.Getenv("LANEWAY_TRANSCRIBE_API_KEY"),
		ExtractKey:      os.Getenv("LANEWAY_EXTRACT_API_KEY"),
		VAPIDPublicKey:  os.Getenv("LANEWAY_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("LANEWAY_VAPID_PRIVATE_KEY"),
		Billing: billing.Config{
			SecretKey:  os.Getenv("LANEWAY_STRIPE_SECRET_KEY"),
			PriceID:    os.Getenv("LANEWAY_STRIPE_PRICE_ID"),
			SuccessURL: env("LANEWAY_STRIPE_SUCCESS_URL", "http://localhost:"+port+"/billing/success"),
			CancelURL:  env("LANEWAY_STRIPE_CANCEL_URL", "http://localhost:"+port+"/billing/cancel"),
		},
		Backup: backup.Config{
			S3: backup.S3Config{
				Endpoint:  os.Getenv("LANEWAY_S3_ENDPOINT"),
				Bucket:    os.Getenv("LANEWAY_S3_BUCKET"),
				Region:    env("LANEWAY_S3_REGION", "auto"),
				AccessKey: os.Getenv("LANEWAY_S3_ACCESS_KEY"),
				SecretKey: os.Getenv("LANEWAY_S3_SECRET_KEY"),
			},
			DBPath:        dbPath,
			Interval:      backupInterval,
			RetentionDays: backupRetention,
		},
	}

	srv := server.New(db, cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv.BackupManager().Start(ctx)
	defer srv.BackupManager().Stop()

	// Hourly cleanup of expired sessions, reset codes, and limiter entries.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					logger.Error("session cleanup", "error", err)
				} else if n > 0 {
					logger.Info("expired sessions deleted", "count", n)
				}
				if _, err := srv.ResetCodeStore().DeleteExpired(); err != nil {
					logger.Error("reset code cleanup", "error", err)
				}
				srv.RateLimiter().Cleanup()
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("laneway listening", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
