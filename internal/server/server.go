// Package server exposes the engine over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/YuminosukeSato/catnb/internal/engine"
	"github.com/YuminosukeSato/catnb/pkg/errors"
	"github.com/YuminosukeSato/catnb/pkg/log"
)

const shutdownTimeout = 10 * time.Second

// Server routes HTTP requests to an Engine.
type Server struct {
	engine *engine.Engine
	router *gin.Engine
	logger log.Logger
}

// New builds the router. The gin mode comes from the engine configuration.
func New(e *engine.Engine) *Server {
	gin.SetMode(e.Config().Server.Mode)

	s := &Server{
		engine: e,
		router: gin.New(),
		logger: log.GetLoggerWithName("server"),
	}
	s.router.Use(s.recoverPanics(), s.logRequests())

	s.router.GET("/healthz", s.healthz)
	s.router.GET("/info", s.info)
	s.router.POST("/train", s.train)
	s.router.POST("/predict", s.predict)
	s.router.POST("/test", s.test)
	s.router.POST("/validate", s.validate)
	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	cfg := s.engine.Config().Server
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("Server shutting down")
		return errors.Wrap(srv.Shutdown(shutdownCtx), "shutdown")
	}
}

// recoverPanics turns a handler panic into a 500 response.
func (s *Server) recoverPanics() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := errors.SafeExecute(c.Request.Method+" "+c.Request.URL.Path, func() error {
			c.Next()
			return nil
		})
		if err != nil {
			s.logger.Error("Handler panicked", log.ErrAttr(err)...)
			if !c.Writer.Written() {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			} else {
				c.Abort()
			}
		}
	}
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("Request served",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			log.DurationMsKey, time.Since(start).Milliseconds(),
		)
	}
}

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	var verr *errors.ValidationError
	switch {
	case errors.IsInvalidInput(err), errors.IsUnknownColumn(err), errors.IsModelNotTrained(err), errors.As(err, &verr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", log.ErrAttr(err)...)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
