// Package dashboard serves the read-only reporting endpoints over HTTP.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edgard/scribebot/internal/config"
	"github.com/edgard/scribebot/internal/database"
)

const (
	reportTimeout   = 10 * time.Second
	healthTimeout   = 2 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Reporter is the part of the store the dashboard reads from.
type Reporter interface {
	Report(ctx context.Context) (*database.AggregateReport, error)
	Ping(ctx context.Context) error
}

// NewRouter returns the gin engine with the dashboard routes.
func NewRouter(reporter Reporter, log *slog.Logger, ginMode string) *gin.Engine {
	if ginMode != "" {
		gin.SetMode(ginMode)
	}
	router := gin.New()
	router.Use(requestLogger(log), gin.Recovery())

	h := &handler{reporter: reporter, log: log}
	router.GET("/dashboard", h.report)
	router.GET("/healthz", h.health)

	return router
}

type handler struct {
	reporter Reporter
	log      *slog.Logger
}

func (h *handler) report(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), reportTimeout)
	defer cancel()

	report, err := h.reporter.Report(ctx)
	if err != nil {
		h.log.ErrorContext(ctx, "Failed to build report", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	if err := h.reporter.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.DebugContext(c.Request.Context(), "HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// Server runs the dashboard until its context is cancelled.
type Server struct {
	srv *http.Server
	log *slog.Logger
}

// NewServer returns a dashboard server listening on cfg.Addr.
func NewServer(cfg config.DashboardConfig, reporter Reporter, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "dashboard")
	return &Server{
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           NewRouter(reporter, log, cfg.GinMode),
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

// Run serves until ctx is done, then shuts the server down.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Dashboard listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("dashboard server failed: %w", err)
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("dashboard shutdown failed: %w", err)
	}
	s.log.Info("Dashboard stopped")
	return nil
}
