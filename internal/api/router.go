package api

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/forum-ingest/config"
	_ "github.com/d60-Lab/forum-ingest/docs"
	"github.com/d60-Lab/forum-ingest/internal/api/handler"
	"github.com/d60-Lab/forum-ingest/internal/api/middleware"
)

// NewRouter 注册全部路由
func NewRouter(cfg *config.Config, h *handler.Handler) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Logger())
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	{
		v1.POST("/crawl",
			middleware.JWTAuth(cfg.Auth.JWTSecret),
			middleware.RateLimit(cfg.RateLimit.CrawlRPS, cfg.RateLimit.CrawlBurst),
			h.TriggerCrawl,
		)
		v1.GET("/platforms", h.ListPlatforms)
		v1.GET("/runs", h.ListRuns)
		v1.GET("/posts", h.ListPosts)
		v1.GET("/stats", h.GetStats)
	}
	return r
}
