package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/d60-Lab/forum-ingest/internal/model"
)

// CrawlRunRepository 采集运行记录
type CrawlRunRepository interface {
	Create(ctx context.Context, run *model.CrawlRun) error
	// List 按开始时间倒序
	List(ctx context.Context, q model.RunQuery) ([]*model.CrawlRun, error)
	InitSchema() error
}

type crawlRunRepository struct {
	db *gorm.DB
}

func NewCrawlRunRepository(db *gorm.DB) CrawlRunRepository { return &crawlRunRepository{db: db} }

func (r *crawlRunRepository) InitSchema() error {
	if err := r.db.AutoMigrate(&model.CrawlRun{}); err != nil {
		return fmt.Errorf("failed to migrate crawl_runs table: %w", err)
	}
	return nil
}

func (r *crawlRunRepository) Create(ctx context.Context, run *model.CrawlRun) error {
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("%w: create crawl run: %w", ErrStorage, err)
	}
	return nil
}

func (r *crawlRunRepository) List(ctx context.Context, q model.RunQuery) ([]*model.CrawlRun, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = model.DefaultRunLimit
	}
	tx := r.db.WithContext(ctx).Model(&model.CrawlRun{})
	if q.StockCode != "" {
		tx = tx.Where("stock_code = ?", q.StockCode)
	}
	if q.Platform != "" {
		tx = tx.Where("platform = ?", q.Platform)
	}
	var runs []*model.CrawlRun
	if err := tx.Order("started_at DESC").Order("id DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("%w: list crawl runs: %w", ErrStorage, err)
	}
	return runs, nil
}
