package server

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/browsergrid/backend/internal/agent"
	apihttp "github.com/browsergrid/backend/internal/api/http"
	"github.com/browsergrid/backend/internal/api/middleware"
	"github.com/browsergrid/backend/internal/container"
	"github.com/browsergrid/backend/internal/domain/routing"
	"github.com/browsergrid/backend/internal/domain/session"
	"github.com/browsergrid/backend/internal/infrastructure/config"
	"github.com/browsergrid/backend/internal/infrastructure/logging"
	"github.com/browsergrid/backend/internal/infrastructure/metadata"
	"github.com/browsergrid/backend/internal/infrastructure/monitoring"
	"github.com/browsergrid/backend/internal/infrastructure/tracing"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router         *gin.Engine
	engine         container.Engine
	routes         routing.Store
	sessionManager *session.Manager
	reaper         *container.Reaper
	logger         *logging.Logger
	config         *config.Config
	metrics        *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	// Initialize logger
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}

	logger.Info("Initializing BrowserGrid server",
		zap.String("port", cfg.Server.Port),
		zap.String("image", cfg.Docker.Image),
	)

	// Initialize metrics first (needed by other components)
	metrics := monitoring.NewMetrics()

	// Initialize request tracing
	tracer := tracing.New("browsergrid", logger.Logger)

	// Docker engine (required)
	engine, err := container.NewDockerEngine(container.Config{
		Image:       cfg.Docker.Image,
		ShmSizeMB:   cfg.Docker.ShmSizeMB,
		StopTimeout: cfg.Docker.StopTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to docker daemon: %w", err)
	}
	logger.Info("Connected to Docker daemon")

	// Routing store: Redis when configured, otherwise a single-instance
	// in-memory store
	var routes routing.Store
	if cfg.Redis.Addr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		store, err := routing.NewRedisStore(ctx, routing.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cancel()
		if err != nil {
			engine.Close()
			return nil, err
		}
		routes = store
		logger.Info("Connected to Redis routing store", zap.String("addr", cfg.Redis.Addr))
	} else {
		routes = routing.NewMemoryStore()
		logger.Warn("REDIS_ADDR not set, using in-memory routing store; session stickiness only works with a single instance")
	}

	issuer := routing.NewTokenIssuer(cfg.Routing.TokenSecret, cfg.Routing.TokenTTL)
	resolver := metadata.NewResolver(cfg.Server.PublicDNS)

	runner := agent.NewRunner(agent.Config{
		Command:   cfg.Agent.Command,
		Args:      cfg.Agent.Args,
		WorkDir:   cfg.Agent.WorkDir,
		UsePTY:    cfg.Agent.UsePTY,
		KillGrace: cfg.Agent.KillGrace,
	}, logger)

	// Session manager ties the pieces together
	sessionManager := session.NewManager(session.Config{
		SessionTimeout: cfg.Agent.Timeout,
		LaunchTimeout:  cfg.Docker.LaunchTimeout,
		RouteTTL:       cfg.Routing.RouteTTL,
		ServerPort:     cfg.Server.Port,
		DefaultModel:   cfg.Agent.Model,
		TranscriptDir:  cfg.Agent.Transcript,
	}, engine, container.NewProber(), runner, routes, issuer, resolver, metrics, logger)

	// Reaper removes containers orphaned by crashes
	reaper := container.NewReaper(engine, sessionManager.IsLive, cfg.Docker.ReapInterval, metrics, logger)
	reaper.Start()

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	// Create handlers
	handlers := apihttp.NewHandlers(sessionManager, issuer, apihttp.VNCConfig{
		Password: cfg.VNC.Password,
		WSPath:   cfg.VNC.WSPath,
	}, metrics, logger)

	// Register routes
	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	// Session lifecycle
	router.POST("/start", handlers.StartSession)
	router.GET("/sessions", handlers.ListSessions)
	router.GET("/sessions/:id", handlers.GetSession)
	router.DELETE("/sessions/:id", handlers.StopSession)

	// VNC viewer and proxy
	router.GET("/vnc/:id", handlers.VNCViewer)
	router.GET("/vnc-proxy/:id", handlers.VNCProxy)

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	logger.Info("Server initialized successfully")

	return &Server{
		router:         router,
		engine:         engine,
		routes:         routes,
		sessionManager: sessionManager,
		reaper:         reaper,
		logger:         logger,
		config:         cfg,
		metrics:        metrics,
	}, nil
}

// Run starts the HTTP server
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Router exposes the handler tree for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	s.reaper.Stop()

	// Tear down live sessions so no containers outlive the process
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.sessionManager.Shutdown(ctx)

	if err := s.routes.Close(); err != nil {
		s.logger.Error("Failed to close routing store", zap.Error(err))
	}
	if err := s.engine.Close(); err != nil {
		s.logger.Error("Failed to close docker client", zap.Error(err))
		return fmt.Errorf("failed to close docker client: %w", err)
	}

	// Sync logger before exit
	s.logger.Sync()

	return nil
}
