package repository

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/forum-ingest/internal/model"
	"github.com/d60-Lab/forum-ingest/pkg/logger"
)

// ErrStorage 持久化层错误
var ErrStorage = errors.New("storage failure")

const upsertChunkSize = 200

// PostRepository 帖子仓储
type PostRepository interface {
	// UpsertMany 按 id 幂等写入，一个事务内完成；返回写入（新增或更新）的条数
	UpsertMany(ctx context.Context, posts []*model.Post) (int64, error)

	// Query 条件查询，按发布时间倒序
	Query(ctx context.Context, q model.PostQuery) ([]*model.Post, error)

	// Stats 聚合统计；topN <= 0 时返回全部股票
	Stats(ctx context.Context, topN int) (*model.Stats, error)

	// Count 帖子总数
	Count(ctx context.Context) (int64, error)

	InitSchema() error
	Close() error
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository { return &postRepository{db: db} }

func (r *postRepository) InitSchema() error {
	if err := r.db.AutoMigrate(&model.Post{}); err != nil {
		return fmt.Errorf("failed to migrate posts table: %w", err)
	}
	return nil
}

func (r *postRepository) UpsertMany(ctx context.Context, posts []*model.Post) (int64, error) {
	batch := dedupeByID(posts)
	if len(batch) == 0 {
		return 0, nil
	}

	// 冲突时只覆盖可变列，created_at 保持首次入库时间
	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(model.MutableColumns),
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for start := 0; start < len(batch); start += upsertChunkSize {
			end := min(start+upsertChunkSize, len(batch))
			if err := tx.Clauses(onConflict).Create(batch[start:end]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("upsert posts failed", zap.Int("count", len(batch)), zap.Error(err))
		return 0, fmt.Errorf("%w: upsert posts: %w", ErrStorage, err)
	}
	logger.Debug("posts upserted", zap.Int("count", len(batch)))
	return int64(len(batch)), nil
}

// dedupeByID 同一批次内重复 id 保留最后一条，保持首次出现的位置
func dedupeByID(posts []*model.Post) []*model.Post {
	index := make(map[string]int, len(posts))
	out := make([]*model.Post, 0, len(posts))
	for _, p := range posts {
		if p == nil {
			continue
		}
		if i, ok := index[p.ID]; ok {
			out[i] = p
			continue
		}
		index[p.ID] = len(out)
		out = append(out, p)
	}
	return out
}

func (r *postRepository) Query(ctx context.Context, q model.PostQuery) ([]*model.Post, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = model.DefaultQueryLimit
	}

	tx := r.db.WithContext(ctx).Model(&model.Post{})
	if q.StockCode != "" {
		tx = tx.Where("stock_code = ?", q.StockCode)
	}
	if q.Platform != "" {
		tx = tx.Where("source = ?", q.Platform)
	}

	var posts []*model.Post
	err := tx.Order("publish_time DESC").Order("id DESC").Limit(limit).Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("%w: query posts: %w", ErrStorage, err)
	}
	return posts, nil
}

type groupCount struct {
	Name  string
	Total int64
}

func (r *postRepository) Stats(ctx context.Context, topN int) (*model.Stats, error) {
	db := r.db.WithContext(ctx)

	var platforms []groupCount
	if err := db.Model(&model.Post{}).
		Select("source AS name, COUNT(*) AS total").
		Group("source").
		Scan(&platforms).Error; err != nil {
		return nil, fmt.Errorf("%w: stats by platform: %w", ErrStorage, err)
	}

	stockQuery := db.Model(&model.Post{}).
		Select("stock_code AS name, COUNT(*) AS total").
		Group("stock_code").
		Order("total DESC").
		Order("name ASC")
	if topN > 0 {
		stockQuery = stockQuery.Limit(topN)
	}
	var stocks []groupCount
	if err := stockQuery.Scan(&stocks).Error; err != nil {
		return nil, fmt.Errorf("%w: stats by stock: %w", ErrStorage, err)
	}

	// total 取平台分组之和，保证 sum(byPlatform) == totalPosts
	stats := &model.Stats{
		ByPlatform: make(map[string]int64, len(platforms)),
		ByStock:    make(map[string]int64, len(stocks)),
	}
	for _, p := range platforms {
		stats.ByPlatform[p.Name] = p.Total
		stats.TotalPosts += p.Total
	}
	for _, s := range stocks {
		stats.ByStock[s.Name] = s.Total
	}
	return stats, nil
}

func (r *postRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Post{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("%w: count posts: %w", ErrStorage, err)
	}
	return count, nil
}

func (r *postRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
