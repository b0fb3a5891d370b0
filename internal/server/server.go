package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/api"
	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/middleware"
)

// Dependencies are the long-lived resources the server wires into handlers.
type Dependencies struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Services api.Services
	Limiters api.Limiters
}

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	http   *http.Server
	cfg    *config.Config
}

// New builds the router with middleware, API routes, health and metrics.
func New(cfg *config.Config, deps Dependencies) *Server {
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		middleware.RequestLogger(),
		middleware.Recovery(),
		middleware.Metrics(),
		middleware.CORS(cfg.CORSOrigins),
	)

	health := api.NewHealthHandler(deps.DB, deps.Redis)
	router.GET("/health", health.HealthCheck)
	router.GET("/api/health", health.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.MediaStorage == "local" {
		router.Static(cfg.MediaURL, cfg.MediaRoot)
	}

	api.RegisterRoutes(router, deps.Services, deps.Limiters, cfg.PageSize)

	return &Server{
		router: router,
		cfg:    cfg,
		http: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	logging.Info().Str("addr", s.http.Addr).Msg("starting HTTP server")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
