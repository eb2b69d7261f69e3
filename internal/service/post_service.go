package service

import (
	"context"
	"fmt"

	"github.com/d60-Lab/forum-ingest/internal/model"
	"github.com/d60-Lab/forum-ingest/internal/repository"
	"github.com/d60-Lab/forum-ingest/internal/source"
)

// PostService 查询与统计
type PostService interface {
	ListPosts(ctx context.Context, stockCode, platform string, limit int) ([]*model.Post, error)
	GetStats(ctx context.Context) (*model.Stats, error)
}

type postService struct {
	postRepo repository.PostRepository
	registry *source.Registry
	stats    *StatsCache
	topN     int
}

func NewPostService(postRepo repository.PostRepository, registry *source.Registry, stats *StatsCache, topN int) PostService {
	return &postService{postRepo: postRepo, registry: registry, stats: stats, topN: topN}
}

func (s *postService) ListPosts(ctx context.Context, stockCode, platform string, limit int) ([]*model.Post, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must be >= 0", ErrInvalidRequest)
	}
	if platform != "" {
		if _, err := s.registry.Resolve(platform); err != nil {
			return nil, err
		}
	}
	return s.postRepo.Query(ctx, model.PostQuery{
		StockCode: stockCode,
		Platform:  model.Platform(platform),
		Limit:     limit,
	})
}

func (s *postService) GetStats(ctx context.Context) (*model.Stats, error) {
	if cached, ok := s.stats.Get(ctx, s.topN); ok {
		return cached, nil
	}
	stats, err := s.postRepo.Stats(ctx, s.topN)
	if err != nil {
		return nil, err
	}
	s.stats.Set(ctx, s.topN, stats)
	return stats, nil
}
