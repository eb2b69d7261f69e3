package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/forum-ingest/internal/model"
	"github.com/d60-Lab/forum-ingest/pkg/logger"
)

const statsKeyPrefix = "posts:stats:"

// StatsCache 统计结果的读穿缓存；写入后整体失效
type StatsCache struct {
	cache *redis.Client
	ttl   time.Duration
}

// NewStatsCache client 为 nil 时返回 nil，调用方按未启用处理
func NewStatsCache(client *redis.Client, ttl time.Duration) *StatsCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &StatsCache{cache: client, ttl: ttl}
}

func statsKey(topN int) string { return fmt.Sprintf("%s%d", statsKeyPrefix, topN) }

// Get 命中返回 true；缓存故障视为未命中
func (c *StatsCache) Get(ctx context.Context, topN int) (*model.Stats, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.cache.Get(ctx, statsKey(topN)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("stats cache get failed", zap.Error(err))
		}
		return nil, false
	}
	var stats model.Stats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, false
	}
	return &stats, true
}

func (c *StatsCache) Set(ctx context.Context, topN int, stats *model.Stats) {
	if c == nil || stats == nil {
		return
	}
	payload, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, statsKey(topN), payload, c.ttl).Err(); err != nil {
		logger.Warn("stats cache set failed", zap.Error(err))
	}
}

// Invalidate 删除所有 topN 变体
func (c *StatsCache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	iter := c.cache.Scan(ctx, 0, statsKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		logger.Warn("stats cache scan failed", zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.cache.Del(ctx, keys...).Err(); err != nil {
		logger.Warn("stats cache invalidate failed", zap.Error(err))
	}
}
