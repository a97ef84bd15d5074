package di

import (
	"context"
	"fmt"
	"net/http"

	"helpdesk-inbox/backend/internal/graph"
	"helpdesk-inbox/backend/internal/repository"
	"helpdesk-inbox/backend/internal/service"
	"helpdesk-inbox/backend/internal/ws"
	"helpdesk-inbox/backend/pkg/cache"
	"helpdesk-inbox/backend/pkg/config"
	"helpdesk-inbox/backend/pkg/health"
	"helpdesk-inbox/backend/pkg/jwt"
	"helpdesk-inbox/backend/pkg/lock"
	"helpdesk-inbox/backend/pkg/logger"
	"helpdesk-inbox/backend/shared/observability"
	sharedredis "helpdesk-inbox/backend/shared/redis"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Container holds all the dependencies for the application
type Container struct {
	Config         *config.Config
	DB             *gorm.DB
	Redis          *redis.Client
	Logger         *logger.Logger
	JWTService     *jwt.Service
	Metrics        *observability.Metrics
	MetricsHandler http.Handler
	Health         *health.Checker
	Hub            *ws.Hub
	Graph          *graph.Client
	Pages          *service.PageDirectory
	Webhooks       *service.WebhookService
	Inbox          *service.InboxService
	Replies        *service.ReplyService
}

// New wires the application. rdb may be nil, in which case per-conversation
// locking stays in process.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, log *logger.Logger) (*Container, error) {
	jwtService, err := jwt.NewService(cfg.JWT.Secret, cfg.JWT.Expiry)
	if err != nil {
		return nil, fmt.Errorf("failed to create jwt service: %w", err)
	}

	metrics, metricsHandler, err := observability.NewMetrics(prometheus.NewRegistry())
	if err != nil {
		return nil, err
	}

	pageCache, err := cache.New(cfg.Cache.MaxSize, cfg.Cache.TTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create page cache: %w", err)
	}

	var locker lock.Locker = lock.NewLocalLocker()
	if rdb != nil {
		locker = lock.NewRedisLocker(rdb, cfg.Ingestion.LockTTL, log)
	}

	conversations := repository.NewGormConversationRepository(db)
	messages := repository.NewGormMessageRepository(db)
	pages := service.NewPageDirectory(repository.NewGormPageRepository(db), pageCache, log)

	graphClient := graph.NewClient(graph.Options{
		BaseURL:          cfg.Facebook.GraphAPIURL,
		Timeout:          cfg.Facebook.ProfileTimeout,
		FailureThreshold: cfg.Breaker.FailureThreshold,
		RetryTimeout:     cfg.Breaker.RetryTimeout,
	}, log)

	hub := ws.NewHub(log, metrics)

	webhooks := service.NewWebhookService(service.WebhookDeps{
		Pages:         pages,
		Profiles:      graphClient,
		Conversations: conversations,
		Messages:      messages,
		Locker:        locker,
		Notifier:      hub,
		Metrics:       metrics,
		Logger:        log,
		EventTimeout:  cfg.Ingestion.EventTimeout,
	})
	inbox := service.NewInboxService(pages, conversations, messages)
	replies := service.NewReplyService(inbox, graphClient, conversations, messages, hub, log)

	checker := health.NewChecker(log, 0)
	checker.Register("database", true, func(ctx context.Context) error {
		return db.WithContext(ctx).Exec("SELECT 1").Error
	})
	if rdb != nil {
		checker.Register("redis", false, func(ctx context.Context) error {
			return sharedredis.Ping(ctx, rdb)
		})
	}

	return &Container{
		Config:         cfg,
		DB:             db,
		Redis:          rdb,
		Logger:         log,
		JWTService:     jwtService,
		Metrics:        metrics,
		MetricsHandler: metricsHandler,
		Health:         checker,
		Hub:            hub,
		Graph:          graphClient,
		Pages:          pages,
		Webhooks:       webhooks,
		Inbox:          inbox,
		Replies:        replies,
	}, nil
}

// Close releases connections held by the container.
func (c *Container) Close() {
	c.Hub.Close()
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.LogError(err, "Failed to close redis client")
		}
	}
	if sqlDB, err := c.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			c.Logger.LogError(err, "Failed to close database")
		}
	}
}
