// Package api serves the task service over HTTP for the daemon.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/valter-silva-au/reminderwave/internal/core"
)

// Server is the ReminderWave HTTP API.
type Server struct {
	tasks  core.TaskService
	log    *slog.Logger
	now    func() time.Time
	router *gin.Engine
}

// NewServer builds the router. metrics, when non-nil, is mounted at /metrics.
func NewServer(tasks core.TaskService, metrics http.Handler, log *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	s := &Server{
		tasks:  tasks,
		log:    log,
		now:    time.Now,
		router: router,
	}

	api := router.Group("/api")
	{
		api.GET("/health", s.handleHealth)

		api.GET("/tasks", s.handleList)
		api.POST("/tasks", s.handleCreate)
		api.GET("/tasks/overdue", s.handleOverdue)
		api.GET("/tasks/upcoming", s.handleUpcoming)
		api.GET("/tasks/today", s.handleToday)
		api.GET("/tasks/:id", s.handleGet)
		api.PUT("/tasks/:id", s.handleUpdate)
		api.POST("/tasks/:id/toggle", s.handleToggle)
		api.DELETE("/tasks/:id", s.handleDelete)
	}

	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("api listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("api stopped")
	return nil
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("api request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}
