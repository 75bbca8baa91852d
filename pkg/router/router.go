package router

import (
	"tabletalk/backend/internal/api"
	"tabletalk/backend/internal/ws"
	"tabletalk/backend/pkg/di"
	"tabletalk/backend/pkg/errors"
	"tabletalk/backend/pkg/logger"
	"tabletalk/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Hub       *ws.Hub
	Logger    *logger.Logger
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	cfg := container.Config
	log := container.Logger

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Logger middleware first to capture all requests
	engine.Use(logger.Middleware(log))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())

	rateLimiter := middleware.NewRateLimiter(log)
	engine.Use(rateLimiter.Middleware())

	hub := ws.NewHub(container.Manager, log)
	go hub.Run()

	return &Router{
		Engine:    engine,
		Container: container,
		Hub:       hub,
		Logger:    log,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	r.Engine.Use(corsMiddleware())

	tablesHandler := api.NewTablesHandler(r.Container.Manager, r.Hub, r.Logger)
	adminHandler := api.NewAdminHandler(r.Container.Manager, r.Hub, r.Container.Config, r.Logger)
	uploadsHandler := api.NewUploadsHandler(r.Container.Manager, r.Container.Config, r.Logger)

	v1 := r.Engine.Group("/api/v1")
	{
		v1.GET("/health", r.Container.Health.Handler())
		tablesHandler.RegisterRoutes(v1)
		adminHandler.RegisterRoutes(v1)
		uploadsHandler.RegisterRoutes(v1)
	}

	// Uploaded avatars and shared images
	r.Engine.Static("/uploads", r.Container.Config.Store.UploadsDir)

	r.Engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Engine.GET("/ws", func(c *gin.Context) {
		ws.ServeWs(r.Hub, c)
	})
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Accept-Encoding, Authorization, Origin, Upgrade, Connection, Cache-Control")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Upgrade, Connection")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
