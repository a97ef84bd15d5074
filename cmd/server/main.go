package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"helpdesk-inbox/backend/internal/repository"
	"helpdesk-inbox/backend/pkg/config"
	"helpdesk-inbox/backend/pkg/di"
	"helpdesk-inbox/backend/pkg/logger"
	"helpdesk-inbox/backend/pkg/router"
	"helpdesk-inbox/backend/pkg/secrets"
	"helpdesk-inbox/backend/shared/observability"
	sharedredis "helpdesk-inbox/backend/shared/redis"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.New()

	// Initialize structured logger
	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"

	log := logger.New(logConfig)
	logger.SetGlobal(log)

	log.Info("Starting application", "version", os.Getenv("APP_VERSION"), "env", cfg.Server.Env)

	ctx := context.Background()

	// Vault overrides the environment when enabled
	vaultManager, err := secrets.NewVaultManager(secrets.VaultConfigFromEnv(), log)
	if err != nil {
		log.LogError(err, "Failed to initialize secrets manager")
		os.Exit(1)
	}
	cfg.JWT.Secret = vaultManager.GetSecretWithDefault(ctx, secrets.KeyJWTSecret, cfg.JWT.Secret)
	cfg.Facebook.VerifyToken = vaultManager.GetSecretWithDefault(ctx, secrets.KeyFBVerifyToken, cfg.Facebook.VerifyToken)
	cfg.Facebook.AppSecret = vaultManager.GetSecretWithDefault(ctx, secrets.KeyFBAppSecret, cfg.Facebook.AppSecret)
	cfg.Database.Password = vaultManager.GetSecretWithDefault(ctx, secrets.KeyDBPassword, cfg.Database.Password)

	if cfg.Facebook.VerifyToken == "" {
		log.Warn("FB_WEBHOOK_VERIFY_TOKEN is empty, webhook verification will always fail")
	}

	shutdownTracing := func(context.Context) error { return nil }
	if cfg.Observability.TracingEnabled {
		shutdownTracing, err = observability.SetupTracing(cfg.Observability.ServiceName, os.Stdout)
		if err != nil {
			log.LogError(err, "Failed to initialize tracing")
			os.Exit(1)
		}
	}

	// Initialize database
	db, err := config.NewDB(cfg, log)
	if err != nil {
		log.LogError(err, "Failed to initialize database")
		os.Exit(1)
	}

	if err := repository.Migrate(db); err != nil {
		log.LogError(err, "Failed to migrate database")
		os.Exit(1)
	}

	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		rdb, err = sharedredis.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			log.LogError(err, "Failed to connect to redis")
			os.Exit(1)
		}
		log.Info("Using redis for conversation locks")
	}

	// Initialize dependency injection container
	container, err := di.New(cfg, db, rdb, log)
	if err != nil {
		log.LogError(err, "Failed to initialize dependency container")
		os.Exit(1)
	}

	// Initialize and setup router
	r := router.New(container)
	r.SetupRoutes()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start the server in a goroutine
	go func() {
		log.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogError(err, "Server failed to start")
			os.Exit(1)
		}
	}()

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Block until we receive a signal
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.LogError(err, "Server forced to shutdown")
	}
	container.Close()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.LogError(err, "Failed to flush traces")
	}

	log.Info("Server exited gracefully")
}
