package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/forum-ingest/config"
	"github.com/d60-Lab/forum-ingest/internal/crawler"
	"github.com/d60-Lab/forum-ingest/internal/repository"
	"github.com/d60-Lab/forum-ingest/internal/service"
	"github.com/d60-Lab/forum-ingest/internal/source"
	"github.com/d60-Lab/forum-ingest/pkg/cache"
	"github.com/d60-Lab/forum-ingest/pkg/database"
	"github.com/d60-Lab/forum-ingest/pkg/logger"
	"github.com/d60-Lab/forum-ingest/pkg/monitor"
	"github.com/d60-Lab/forum-ingest/pkg/tracing"
)

// App 进程内共享的组件，HTTP 服务与 CLI 共用
type App struct {
	Config       *config.Config
	Registry     *source.Registry
	PostRepo     repository.PostRepository
	CrawlService service.CrawlService
	PostService  service.PostService

	redis           *redis.Client
	shutdownTracing func(context.Context) error
}

// New 按配置初始化日志、数据库、缓存与服务
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := logger.Init(logger.Config{Level: cfg.Log.Level, Development: cfg.Log.Development}); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if err := monitor.Init(cfg.Sentry.DSN, cfg.Sentry.Environment); err != nil {
		logger.Warn("sentry disabled", zap.Error(err))
	}
	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		return nil, err
	}
	postRepo := repository.NewPostRepository(db)
	if err := postRepo.InitSchema(); err != nil {
		return nil, err
	}
	runRepo := repository.NewCrawlRunRepository(db)
	if err := runRepo.InitSchema(); err != nil {
		return nil, err
	}

	rdb, err := cache.InitRedis(ctx, cfg.Redis)
	if err != nil {
		// 统计缓存可选，连不上就直接查库
		logger.Warn("redis unavailable, stats cache disabled", zap.Error(err))
		rdb = nil
	}
	stats := service.NewStatsCache(rdb, cfg.Redis.StatsTTL)

	registry := source.NewDefaultRegistry(cfg.Crawler)
	a := &App{
		Config:          cfg,
		Registry:        registry,
		PostRepo:        postRepo,
		CrawlService:    service.NewCrawlService(registry, crawler.NewDriver(), postRepo, runRepo, stats),
		PostService:     service.NewPostService(postRepo, registry, stats, cfg.Crawler.StatsTopN),
		redis:           rdb,
		shutdownTracing: shutdownTracing,
	}
	logger.Info("app initialized",
		zap.String("db_driver", cfg.Database.Driver),
		zap.Bool("stats_cache", rdb != nil),
		zap.Any("platforms", registry.Supported()))
	return a, nil
}

// Close 释放资源，按初始化的逆序
func (a *App) Close(ctx context.Context) {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if err := a.PostRepo.Close(); err != nil {
		logger.Warn("close database", zap.Error(err))
	}
	if err := a.shutdownTracing(ctx); err != nil {
		logger.Warn("shutdown tracing", zap.Error(err))
	}
	monitor.Flush()
	_ = logger.Sync()
}
