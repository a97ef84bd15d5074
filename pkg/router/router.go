package router

import (
	"net/http"

	"helpdesk-inbox/backend/internal/api"
	"helpdesk-inbox/backend/internal/ws"
	"helpdesk-inbox/backend/pkg/config"
	"helpdesk-inbox/backend/pkg/di"
	"helpdesk-inbox/backend/pkg/errors"
	"helpdesk-inbox/backend/pkg/logger"
	"helpdesk-inbox/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Config    *config.Config
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	logger.SetGlobal(container.Logger)
	cfg := container.Config

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())
	engine.Use(middleware.CORS(cfg.Security.AllowedOrigins))

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Config:    cfg,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	c := r.Container

	if r.Config.Observability.OpenAPISchema != "" {
		r.AddOpenAPIValidation(r.Config.Observability.OpenAPISchema)
	}

	r.Engine.GET("/health", c.Health.Handler())
	r.Engine.GET("/api/health", c.Health.Handler())
	r.Engine.GET("/metrics", gin.WrapH(c.MetricsHandler))

	// The platform retries on throttling, so the webhook is not rate limited.
	api.NewWebhookHandler(c.Webhooks, api.WebhookConfig{
		VerifyToken: r.Config.Facebook.VerifyToken,
		AppSecret:   r.Config.Facebook.AppSecret,
		MaxBodySize: r.Config.Security.MaxBodySize,
	}, r.Logger).RegisterRoutes(r.Engine)

	limiter := middleware.NewRateLimiter(r.Logger, middleware.RateLimiterOptions{
		Limit: rateLimit(r.Config.Security.RateLimit),
		Burst: r.Config.Security.RateLimitBurst,
	})
	limited := r.Engine.Group("", limiter.Middleware())

	jwtAuth := middleware.JWTAuthMiddleware(c.JWTService, r.Logger)
	api.NewConversationHandler(c.Inbox, c.Replies).RegisterRoutes(limited, jwtAuth)

	wsHandler := ws.NewHandler(c.Hub, c.JWTService, r.Config.Security.AllowedOrigins, r.Logger)
	limited.GET("/ws", wsHandler.ServeWs)

	r.Engine.NoRoute(func(ctx *gin.Context) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Route not found"}})
	})
}

func rateLimit(perSecond float64) rate.Limit {
	if perSecond <= 0 {
		return rate.Inf
	}
	return rate.Limit(perSecond)
}
