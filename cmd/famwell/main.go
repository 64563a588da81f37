package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/famwell/internal/config"
	"github.com/dukerupert/famwell/internal/database"
	"github.com/dukerupert/famwell/internal/email"
	"github.com/dukerupert/famwell/internal/export"
	"github.com/dukerupert/famwell/internal/federated"
	"github.com/dukerupert/famwell/internal/logging"
	"github.com/dukerupert/famwell/internal/push"
	"github.com/dukerupert/famwell/internal/server"
)

const cleanupInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	opts := server.Options{
		BaseURL:      cfg.BaseURL,
		SecureCookie: cfg.SecureCookie,
		ReminderHour: cfg.ReminderHour,
		EmailClient:  email.NewClient(cfg.Email.Token, cfg.Email.FromEmail, cfg.BaseURL),
		Archive: export.S3Config{
			Endpoint:  cfg.Export.Endpoint,
			Bucket:    cfg.Export.Bucket,
			Region:    cfg.Export.Region,
			AccessKey: cfg.Export.AccessKey,
			SecretKey: cfg.Export.SecretKey,
		},
	}

	if cfg.PushEnabled() {
		opts.PushService = push.NewService(cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey, cfg.Push.Subscriber)
	} else if pub, priv, err := push.GenerateVAPIDKeys(); err == nil {
		logger.Info("push notifications disabled; set these to enable",
			"FAMWELL_PUSH_VAPID_PUBLIC_KEY", pub,
			"FAMWELL_PUSH_VAPID_PRIVATE_KEY", priv,
		)
	}

	if cfg.FederatedEnabled() {
		verifier, err := federated.NewVerifier(federated.Config{
			Issuer:       cfg.Federated.Issuer,
			Audience:     cfg.Federated.Audience,
			PublicKeyPEM: cfg.Federated.PublicKeyPEM,
			HMACSecret:   cfg.Federated.HMACSecret,
		})
		if err != nil {
			logger.Error("failed to configure federated sign-in", "error", err)
			os.Exit(1)
		}
		opts.Verifier = verifier
	}

	srv := server.New(db, opts, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if sched := srv.ReminderScheduler(); sched != nil {
		sched.Start(ctx)
		defer sched.Stop()
	}
	go runCleanup(ctx, srv, logger)

	// No WriteTimeout: websocket connections stay open.
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("famwell running", "url", cfg.BaseURL, "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

// runCleanup prunes expired sessions and idle rate limit buckets.
func runCleanup(ctx context.Context, srv *server.Server, logger *slog.Logger) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := srv.SessionStore().DeleteExpired()
			if err != nil {
				logger.Error("delete expired sessions", "error", err)
			}
			buckets := srv.RateLimiter().Cleanup()
			logger.Debug("cleanup", "sessions", n, "rate_limit_buckets", buckets)
		}
	}
}
