// Package server sets up the HTTP server exposing the analysis pipeline
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/mbd888/smsguard/internal/config"
	"github.com/mbd888/smsguard/internal/idgen"
	"github.com/mbd888/smsguard/internal/insight"
	"github.com/mbd888/smsguard/internal/logging"
	"github.com/mbd888/smsguard/internal/metrics"
	"github.com/mbd888/smsguard/internal/notify"
	"github.com/mbd888/smsguard/internal/ratelimit"
	"github.com/mbd888/smsguard/internal/scorer"
	"github.com/mbd888/smsguard/internal/sender"
	"github.com/mbd888/smsguard/internal/tracker"
	"github.com/mbd888/smsguard/internal/traces"
	"github.com/mbd888/smsguard/internal/trustlist"
)

// Server wraps the HTTP server and pipeline dependencies
type Server struct {
	cfg      *config.Config
	analyzer *insight.Analyzer
	tracker  *tracker.Tracker
	store    insight.Store
	engine   *scorer.Engine
	db       *sql.DB // nil if using in-memory
	router   *gin.Engine
	httpSrv  *http.Server
	logger   *slog.Logger
	notifier notify.Notifier
	limiter  *ratelimit.Limiter

	shutdownTracing func(context.Context) error

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithNotifier sets a custom notification sink (for testing or real delivery)
func WithNotifier(n notify.Notifier) Option {
	return func(s *Server) { s.notifier = n }
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, "json"),
	}
	for _, opt := range opts {
		opt(s)
	}

	ctx := context.Background()

	// Trust list: file override or embedded default
	var lists *trustlist.List
	if cfg.TrustListPath != "" {
		var err error
		lists, err = trustlist.LoadFile(cfg.TrustListPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load trust list: %w", err)
		}
	} else {
		lists = trustlist.Default()
	}
	headers, domains, shorteners := lists.Counts()
	s.logger.Info("trust list loaded",
		"headers", headers, "domains", domains, "shorteners", shorteners)

	// Scorer: Load must complete before any scoring call
	s.engine = scorer.NewEngine()
	if err := s.engine.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load scorer: %w", err)
	}
	s.logger.Info("fraud scorer loaded", "version", s.engine.Version())

	// Storage (Postgres if DATABASE_URL set, otherwise in-memory)
	var trackerStore tracker.Store
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		s.db = db
		s.logger.Info("using PostgreSQL storage", "url", maskDSN(cfg.DatabaseURL))

		assessments := insight.NewPostgresStore(db)
		if err := assessments.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate assessment store", "error", err)
		}
		s.store = assessments

		pgTracker := tracker.NewPostgresStore(db)
		if err := pgTracker.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate tracker store", "error", err)
		}
		trackerStore = pgTracker
	} else {
		s.store = insight.NewMemoryStore()
		trackerStore = tracker.NewMemoryStore()
		s.logger.Info("using in-memory storage (data will not persist)")
	}

	s.tracker = tracker.NewWithStore(trackerStore)
	if err := s.tracker.Hydrate(ctx, time.Now()); err != nil {
		s.logger.Warn("failed to hydrate tracker state", "error", err)
	}

	if s.notifier == nil {
		s.notifier = &notify.LogNotifier{Logger: s.logger}
	}
	dispatcher := notify.NewDispatcher(s.notifier, s.logger)

	s.analyzer = insight.NewAnalyzer(
		sender.NewVerifier(lists),
		s.engine,
		s.tracker,
		insight.WithStore(s.store),
		insight.WithNotifier(dispatcher),
		insight.WithLogger(s.logger),
		insight.WithContextThreshold(time.Duration(cfg.ContextThresholdMinutes)*time.Minute),
		insight.WithAttackWindow(time.Duration(cfg.AttackWindowMinutes)*time.Minute, cfg.MaxOTPsInWindow),
	)

	// Configure gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)
	return s, nil
}

// maskDSN hides the password in a connection string for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = idgen.WithPrefix("req_")
		}

		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		logger := logging.L(c.Request.Context())

		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method, "path", path,
				"status", status, "latency_ms", latency.Milliseconds())
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method, "path", path,
				"status", status, "latency_ms", latency.Milliseconds())
		default:
			logger.Info("request completed",
				"method", c.Request.Method, "path", path,
				"status", status, "latency_ms", latency.Milliseconds())
		}
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.livenessHandler)
	s.router.GET("/readyz", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	s.limiter = ratelimit.New(ratelimit.DefaultConfig())
	v1 := s.router.Group("/v1")
	v1.Use(s.limiter.Middleware())
	{
		v1.POST("/analyze", s.analyzeHandler)
		v1.POST("/interaction", s.interactionHandler)
		v1.GET("/assessments", s.assessmentsHandler)
	}
}

// Run starts the server and blocks until shutdown
func (s *Server) Run(ctx context.Context) error {
	shutdownTracing, err := traces.Init(ctx, s.cfg.OTLPEndpoint, s.logger)
	if err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}
	s.shutdownTracing = shutdownTracing

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "port", s.cfg.Port)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	s.ready.Store(true)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.limiter != nil {
		s.limiter.Stop()
	}

	var errs []error
	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if s.shutdownTracing != nil {
		if err := s.shutdownTracing(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracing shutdown: %w", err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("db close: %w", err))
		}
	}

	s.logger.Info("shutdown complete")
	return errors.Join(errs...)
}

// Router exposes the gin engine, for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}
