// Package http implements the JSON API the dashboard front end consumes.
// It is a thin rendering shell over the query façade: parse filters, call a
// handler, map the error taxonomy onto status codes. An upstream failure
// renders an empty data set plus a message; it never crashes the process.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sponte-hub/sponte-dashboard/internal/application/query"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	// Host - address to bind (default "0.0.0.0").
	Host string

	// Port - port to listen on (default 8080).
	Port int

	// ReadTimeout - maximum duration for reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout - maximum duration for writing the response.
	WriteTimeout time.Duration

	// AllowedOrigins - CORS origins for the dashboard front end.
	AllowedOrigins []string

	// Debug switches gin into debug mode.
	Debug bool
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   30 * time.Second,
		AllowedOrigins: []string{"*"},
	}
}

// Address returns the bind address string.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Queries bundles the query handlers the routes dispatch to.
type Queries struct {
	ListClasses         *query.ListClassesHandler
	ListActiveStudents  *query.ListActiveStudentsHandler
	ListLessons         *query.ListLessonsHandler
	ListClassFinancials *query.ListClassFinancialsHandler
	GetCashFlow         *query.GetCashFlowHandler
	GetFinancialSummary *query.GetFinancialSummaryHandler
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server is the dashboard HTTP server.
type Server struct {
	config  Config
	logger  *slog.Logger
	engine  *gin.Engine
	httpSrv *http.Server
}

// NewServer builds the server with routes and middleware wired.
func NewServer(config Config, queries Queries, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestID())
	engine.Use(requestLogger(logger))
	engine.Use(cors.New(cors.Config{
		AllowOrigins: config.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}))

	h := &handlers{queries: queries, logger: logger}
	engine.GET("/healthz", h.health)

	api := engine.Group("/api/v1")
	{
		api.GET("/classes", h.listClasses)
		api.GET("/students", h.listActiveStudents)
		api.GET("/lessons", h.listLessons)
		api.GET("/classes/:id/financials", h.listClassFinancials)
		api.GET("/reports/cashflow", h.getCashFlow)
		api.GET("/reports/summary", h.getFinancialSummary)
	}

	return &Server{
		config: config,
		logger: logger,
		engine: engine,
		httpSrv: &http.Server{
			Addr:         config.Address(),
			Handler:      engine,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
		},
	}
}

// Engine exposes the gin engine. Test hook.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start begins serving; it blocks until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.config.Address())
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// requestIDHeader carries the per-request correlation id.
const requestIDHeader = "X-Request-ID"

// requestID assigns a UUID to every request lacking one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// requestLogger logs one line per request with latency and status.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"request_id", c.GetString("request_id"),
		)
	}
}
