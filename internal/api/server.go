// Package api exposes the planner over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"platewise/internal/catalog"
	"platewise/internal/config"
	"platewise/internal/models"
	"platewise/internal/monitoring"
	"platewise/internal/optimizer"
)

// Version is reported by the status route and the version command
var Version = "1.0"

// Deps are the collaborators a Server routes requests to
type Deps struct {
	Holder    *catalog.Holder
	Optimizer *optimizer.Optimizer
	Monitor   *monitoring.Monitor
	Metrics   *monitoring.MetricsCollector
	Logger    *slog.Logger
}

// Server represents the planner API
type Server struct {
	Router *gin.Engine

	holder    *catalog.Holder
	optimizer *optimizer.Optimizer
	monitor   *monitoring.Monitor
	metrics   *monitoring.MetricsCollector
	logger    *slog.Logger

	cfg      *config.Config
	defaults models.PlanRequest
}

// NewServer creates a new API server instance
func NewServer(cfg *config.Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Monitor == nil {
		deps.Monitor = monitoring.NewMonitor()
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger(deps.Logger), cors(cfg.Server.CORSOrigins))

	s := &Server{
		Router:    router,
		holder:    deps.Holder,
		optimizer: deps.Optimizer,
		monitor:   deps.Monitor,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		cfg:       cfg,
		defaults:  cfg.Planner.DefaultRequest(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API endpoints
func (s *Server) setupRoutes() {
	s.Router.GET("/", s.handleHome)

	if s.metrics != nil && s.cfg.Metrics.Enabled {
		s.Router.GET(s.cfg.Metrics.Path, gin.WrapH(s.metrics.Handler()))
	}

	api := s.Router.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.GET("/menu", s.handleMenu)

		plan := api.Group("/optimize")
		plan.Use(rateLimit(s.cfg.Server.RateLimit.RPS, s.cfg.Server.RateLimit.Burst))
		if s.cfg.Server.JWTSecret != "" {
			plan.Use(authMiddleware(s.cfg.Server.JWTSecret))
		}
		{
			plan.POST("", s.handleOptimize)
			plan.POST("/multiple", s.handleOptimizeMultiple)
			plan.GET("/stream", s.handleStream)
		}
	}

	s.Router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Endpoint not found"})
	})
}
