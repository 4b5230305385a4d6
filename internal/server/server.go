// Package server provides the HTTP server. It uses the Gin web framework
// with zap-backed request logging and panic recovery, and exposes the API
// under /api/v1. Development mode runs Gin in debug mode; production mode
// runs it in release mode.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/querydeck/querydeck/internal/config"
)

type Server struct {
	cfg    *config.Configuration
	router *gin.Engine
	srv    *http.Server
}

// RegisterHandlersFn receives the /api/v1 router group and attaches handlers
// to it.
type RegisterHandlersFn func(router *gin.RouterGroup)

// NewServer builds the router, applies the middleware stack and registers the
// API handlers under /api/v1.
func NewServer(cfg *config.Configuration, registerHandlers RegisterHandlersFn) *Server {
	if cfg.Server.ServerMode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(Logger())
	router.Use(ginzap.RecoveryWithZap(zap.L().Named("http"), true))

	api := router.Group("/api/v1")
	registerHandlers(api)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return &Server{
		cfg:    cfg,
		router: router,
		srv: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
			Handler: router,
		},
	}
}

// Start blocks serving requests until the listener fails or Stop is called.
func (s *Server) Start() error {
	zap.S().Named("server").Infow("starting HTTP server", "addr", s.srv.Addr, "mode", s.cfg.Server.ServerMode)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully, waiting for in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	zap.S().Named("server").Infow("stopping HTTP server")
	return s.srv.Shutdown(ctx)
}

// Logger logs each request with method, path, status and latency on the
// "http" logger.
func Logger() gin.HandlerFunc {
	log := zap.S().Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := []any{
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"ip", c.ClientIP(),
		}
		if query != "" {
			fields = append(fields, "query", query)
		}
		if len(c.Errors) > 0 {
			log.Errorw("request failed", append(fields, "errors", c.Errors.String())...)
			return
		}
		log.Debugw("request completed", fields...)
	}
}
