package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
)

// HTTPServer wraps a gin engine with lifecycle management.
type HTTPServer struct {
	opts   *ServerOptions
	engine *gin.Engine
	server *http.Server
}

// NewHTTPServer creates the HTTP server with recovery and access logging middleware.
func NewHTTPServer(opts *ServerOptions) *HTTPServer {
	gin.SetMode(opts.Mode)

	engine := gin.New()
	engine.Use(gin.Recovery(), accessLogger())

	return &HTTPServer{
		opts:   opts,
		engine: engine,
		server: &http.Server{
			Addr:    opts.Addr,
			Handler: engine,
		},
	}
}

// Engine returns the underlying gin engine for route registration.
func (s *HTTPServer) Engine() *gin.Engine {
	return s.engine
}

// Run starts the server and blocks until a shutdown signal arrives.
func (s *HTTPServer) Run() error {
	errCh := make(chan error, 1)
	go func() {
		logger.Infow("HTTP server listening", "addr", s.opts.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-quit:
		logger.Infow("Server shutting down...", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

// accessLogger 记录每个请求的方法、路径、状态码与耗时。
func accessLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Infow("HTTP request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}
