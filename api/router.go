// Package api exposes the workflow over HTTP.
package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/syndicate/api/handler"
	"github.com/use-agent/syndicate/api/middleware"
	"github.com/use-agent/syndicate/config"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(factory handler.RunnerFactory, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health — no auth required.
	v1.GET("/health", handler.Health(cfg, startTime))

	// Protected group — auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Runs are asynchronous: POST launches, GET polls.
	runTimeout := cfg.Collect.Timeout + 10*time.Minute
	protected.POST("/runs", handler.PostRun(factory, runTimeout))
	protected.GET("/runs/:id", handler.GetRun())

	return r
}
