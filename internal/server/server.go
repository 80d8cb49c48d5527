// Package server exposes the dashboard HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/atri1011/datafx/internal/app"
	"github.com/atri1011/datafx/internal/domain"
	"github.com/atri1011/datafx/internal/render"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	readTimeout     = 10 * time.Second
	writeTimeout    = 5 * time.Minute // POST /api/refresh waits for fetch and AI
	idleTimeout     = 120 * time.Second
	shutdownTimeout = 10 * time.Second
)

type Analyzer interface {
	Refresh(ctx context.Context) (*domain.AnalysisResult, error)
	Latest() (*domain.AnalysisResult, error)
	Status() app.Status
}

type ChartSource interface {
	Snapshot() (render.Charts, bool)
}

type ConfigService interface {
	LoadUserConfig(ctx context.Context) (domain.UserConfig, error)
	UpdateUserConfig(ctx context.Context, patch domain.UserConfigPatch) (domain.UserConfig, error)
}

type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]domain.AnalysisRun, error)
	Get(ctx context.Context, id int64) (*domain.AnalysisResult, error)
}

// Deps are the collaborators of the HTTP layer. History, WebSocket and
// Metrics may be nil; their routes then answer 404.
type Deps struct {
	Analyzer  Analyzer
	Charts    ChartSource
	Config    ConfigService
	History   HistoryReader
	WebSocket http.Handler
	Metrics   http.Handler
	Logger    *zap.Logger
	Now       func() time.Time
}

type Server struct {
	deps   Deps
	router *gin.Engine
	server *http.Server
	logger *zap.Logger
}

func New(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(deps.Logger))

	s := &Server{
		deps:   deps,
		router: router,
		logger: deps.Logger,
	}
	s.routes()

	s.server = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	return s
}

func (s *Server) routes() {
	s.router.GET("/healthz", s.health)

	api := s.router.Group("/api")
	api.GET("/analysis", s.getAnalysis)
	api.POST("/refresh", s.refresh)
	api.GET("/charts", s.getCharts)
	api.GET("/export/:format", s.export)
	api.GET("/config", s.getConfig)
	api.PUT("/config", s.putConfig)
	api.GET("/history", s.listHistory)
	api.GET("/history/:id", s.getHistory)

	if s.deps.WebSocket != nil {
		s.router.GET("/ws", gin.WrapH(s.deps.WebSocket))
	}
	if s.deps.Metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.deps.Metrics))
	}
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown; it returns nil on a clean shutdown.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		}
		if status >= http.StatusInternalServerError {
			logger.Warn("HTTP request failed", fields...)
			return
		}
		logger.Debug("HTTP request", fields...)
	}
}
