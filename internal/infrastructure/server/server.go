package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	handlers "github.com/GriffinCanCode/jsruntime/internal/api/http"
	"github.com/GriffinCanCode/jsruntime/internal/api/middleware"
	"github.com/GriffinCanCode/jsruntime/internal/asynccontext"
	"github.com/GriffinCanCode/jsruntime/internal/infrastructure/config"
	"github.com/GriffinCanCode/jsruntime/internal/infrastructure/logging"
	"github.com/GriffinCanCode/jsruntime/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/jsruntime/internal/sandbox"
	"github.com/GriffinCanCode/jsruntime/internal/textcodec"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router  *gin.Engine
	http    *http.Server
	pool    *sandbox.Pool
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return NewServerWithLogger(cfg, logger)
}

// NewServerWithLogger creates a server that logs through logger
func NewServerWithLogger(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	logger.Info("Initializing jsruntime server",
		zap.String("port", cfg.Server.Port),
		zap.String("context_bridge", cfg.Sandbox.ContextBridge),
		zap.Int("pool_size", cfg.Sandbox.PoolSize),
	)

	metrics := monitoring.NewMetrics(cfg.Metrics.Namespace)

	sandboxLogger := logger.Component("sandbox")
	var recorder sandbox.Recorder
	if cfg.Metrics.Enabled {
		recorder = metrics
	}
	pool, err := sandbox.NewPool(SandboxConfig(cfg.Sandbox),
		sandbox.PoolConfig{Size: cfg.Sandbox.PoolSize, Wait: cfg.Sandbox.PoolWait},
		sandbox.WithLogger(sandboxLogger),
		sandbox.WithRecorder(recorder),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sandbox pool: %w", err)
	}
	logger.Info("Sandbox pool ready", zap.Int("size", cfg.Sandbox.PoolSize))

	// Stateless ops share one registry; streaming decoders stay per isolate.
	ops := textcodec.NewRegistry(
		textcodec.WithLogger(logger.Component("textcodec")),
		textcodec.WithObserver(metrics),
	)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID(logger.Component("http")))
	if cfg.Metrics.Enabled {
		router.Use(monitoring.Middleware(metrics))
	}
	router.Use(middleware.CORS(middleware.DefaultCORSConfig().WithOrigins(cfg.Server.AllowedOrigins)))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	h := handlers.NewHandlers(pool, ops, metrics, logger.Component("api"), cfg.Server.MaxScriptBytes)

	router.GET("/", h.Root)
	router.GET("/health", h.Health)
	router.POST("/v1/execute", h.Execute)
	router.POST("/v1/ops/:namespace/:name", h.Op)
	router.GET("/v1/stats", h.Stats)
	if cfg.Metrics.Enabled {
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	logger.Info("Server initialized successfully")

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		pool:    pool,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}, nil
}

// SandboxConfig maps service configuration onto the runtime configuration.
func SandboxConfig(cfg config.SandboxConfig) sandbox.Config {
	bridge := cfg.ContextBridge
	if bridge == "" {
		bridge = asynccontext.ModeEmbedder
	}
	return sandbox.Config{
		MaxCallStackSize: cfg.MaxCallStackSize,
		Timeout:          cfg.Timeout,
		EnableConsole:    cfg.EnableConsole,
		EnableTimers:     cfg.EnableTimers,
		ContextBridge:    bridge,
		MaxTasks:         cfg.MaxTasks,
		MaxBufferBytes:   cfg.MaxBufferBytes,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the HTTP server and blocks until it stops. A server stopped by
// Shutdown returns nil.
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones within ctx and
// closes the pool.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	err := s.http.Shutdown(ctx)
	if err != nil {
		s.logger.Error("HTTP shutdown incomplete", zap.Error(err))
	}
	if cerr := s.pool.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("failed to close sandbox pool: %w", cerr)
	}

	_ = s.logger.Sync()
	return err
}
