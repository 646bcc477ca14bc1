package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/stylegrab/api/handler"
	"github.com/use-agent/stylegrab/api/middleware"
	"github.com/use-agent/stylegrab/cache"
	"github.com/use-agent/stylegrab/config"
	"github.com/use-agent/stylegrab/scraper"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint stays outside auth so monitoring probes always work.
// ar may be nil when no archive bucket is configured.
func NewRouter(sc *scraper.Scraper, cfg *config.Config, cc *cache.Cache, ar handler.Archiver, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health: no auth required.
	v1.GET("/health", handler.Health(sc, startTime))

	// Protected group: auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/scrape", handler.Scrape(sc, cc, ar))
	protected.POST("/scrape/export", handler.Export(sc, cc, ar))

	return r
}
