package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d60-Lab/forum-ingest/internal/crawler"
	"github.com/d60-Lab/forum-ingest/internal/model"
	"github.com/d60-Lab/forum-ingest/internal/repository"
	"github.com/d60-Lab/forum-ingest/internal/source"
)

// stubAdapter 每页返回固定条数的东方财富记录，点击数可调整以模拟重复采集
type stubAdapter struct {
	platform model.Platform
	perPage  int
	clicks   int

	mu    sync.Mutex
	calls int
}

func (a *stubAdapter) Platform() model.Platform { return a.platform }

func (a *stubAdapter) Delay() time.Duration { return 0 }

func (a *stubAdapter) FetchPage(_ context.Context, code string, page int) ([]source.RawRecord, error) {
	a.mu.Lock()
	a.calls++
	clicks := a.clicks
	a.mu.Unlock()

	if page == 99 {
		return nil, source.ErrMarkerNotFound
	}
	out := make([]source.RawRecord, 0, a.perPage)
	for i := 0; i < a.perPage; i++ {
		out = append(out, source.RawRecord(fmt.Sprintf(
			`{"post_id":"%s%d%02d","post_title":"p%d","stockbar_code":%q,"post_click_count":%d,"post_publish_time":"2026-01-06 17:%02d:00"}`,
			code, page, i, i, code, clicks, i)))
	}
	return out, nil
}

func (a *stubAdapter) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

type testEnv struct {
	adapter *stubAdapter
	repo    repository.PostRepository
	runs    repository.CrawlRunRepository
	redis   *miniredis.Miniredis
	stats   *StatsCache
	crawl   CrawlService
	posts   PostService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	repo := repository.NewPostRepository(db)
	require.NoError(t, repo.InitSchema())
	t.Cleanup(func() { _ = repo.Close() })
	runs := repository.NewCrawlRunRepository(db)
	require.NoError(t, runs.InitSchema())

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	stats := NewStatsCache(client, time.Minute)

	adapter := &stubAdapter{platform: model.PlatformEastmoney, perPage: 3, clicks: 1}
	registry := source.NewRegistry(adapter)

	return &testEnv{
		adapter: adapter,
		repo:    repo,
		runs:    runs,
		redis:   mr,
		stats:   stats,
		crawl:   NewCrawlService(registry, crawler.NewDriver(), repo, runs, stats),
		posts:   NewPostService(repo, registry, stats, 10),
	}
}

func TestCrawlService_TriggerCrawl(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.crawl.TriggerCrawl(ctx, TriggerCrawlInput{StockCode: "002085", PageStart: 1, PageEnd: 2})
	require.NoError(t, err)
	assert.Equal(t, 6, res.Count)
	assert.Equal(t, int64(6), res.Saved)
	assert.Equal(t, model.PlatformEastmoney, res.Platform)
	assert.Equal(t, "成功爬取 6 条数据", res.Message)
	assert.NotEmpty(t, res.RunID)
	assert.Len(t, res.Pages, 2)

	count, err := env.repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), count)
}

func TestCrawlService_DefaultsPlatformAndPages(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.crawl.TriggerCrawl(context.Background(), TriggerCrawlInput{StockCode: " 002085 "})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Count)
	assert.Equal(t, 1, env.adapter.callCount())

	posts, err := env.posts.ListPosts(context.Background(), "002085", "", 0)
	require.NoError(t, err)
	assert.Len(t, posts, 3)

	// 只给起始页时只抓这一页
	res, err = env.crawl.TriggerCrawl(context.Background(), TriggerCrawlInput{StockCode: "002085", PageStart: 3})
	require.NoError(t, err)
	require.Len(t, res.Pages, 1)
	assert.Equal(t, 3, res.Pages[0].Page)
}

func TestCrawlService_RecrawlIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.crawl.TriggerCrawl(ctx, TriggerCrawlInput{StockCode: "002085"})
	require.NoError(t, err)
	first, err := env.posts.ListPosts(ctx, "002085", "eastmoney", 0)
	require.NoError(t, err)
	require.Len(t, first, 3)

	env.adapter.mu.Lock()
	env.adapter.clicks = 500
	env.adapter.mu.Unlock()

	res, err := env.crawl.TriggerCrawl(ctx, TriggerCrawlInput{StockCode: "002085"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Count)

	second, err := env.posts.ListPosts(ctx, "002085", "eastmoney", 0)
	require.NoError(t, err)
	require.Len(t, second, 3)
	for i := range second {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, int64(500), second[i].ClickCount)
		assert.True(t, first[i].CreatedAt.Equal(second[i].CreatedAt))
	}
}

func TestCrawlService_PartialFailureMessage(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.crawl.TriggerCrawl(context.Background(), TriggerCrawlInput{StockCode: "002085", PageStart: 98, PageEnd: 99})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Count)
	assert.Contains(t, res.Message, "成功爬取 3 条数据")
	assert.Contains(t, res.Message, "1 页失败")
	assert.True(t, res.Pages[1].Soft)
}

func TestCrawlService_AllPagesFailed(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.crawl.TriggerCrawl(context.Background(), TriggerCrawlInput{StockCode: "002085", PageStart: 99, PageEnd: 99})
	require.NoError(t, err)
	assert.Zero(t, res.Count)
	assert.Zero(t, res.Saved)

	runs, err := env.crawl.ListRuns(context.Background(), "002085", "", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusFailed, runs[0].Status)
	assert.Equal(t, 1, runs[0].FailedPages)
}

func TestCrawlService_InvalidInput(t *testing.T) {
	env := newTestEnv(t)
	cases := map[string]TriggerCrawlInput{
		"missing code":   {StockCode: ""},
		"blank code":     {StockCode: "   "},
		"negative start": {StockCode: "002085", PageStart: -1, PageEnd: 2},
		"end before":     {StockCode: "002085", PageStart: 3, PageEnd: 2},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := env.crawl.TriggerCrawl(context.Background(), in)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
	assert.Zero(t, env.adapter.callCount())
}

func TestCrawlService_InvalidInputMessages(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.crawl.TriggerCrawl(context.Background(), TriggerCrawlInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing stockCode")

	_, err = env.crawl.TriggerCrawl(context.Background(), TriggerCrawlInput{StockCode: "1", PageStart: 5, PageEnd: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pageEnd must be >= pageStart")
}

func TestCrawlService_UnsupportedPlatform(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.crawl.TriggerCrawl(context.Background(), TriggerCrawlInput{StockCode: "002085", Platform: "weibo"})
	assert.ErrorIs(t, err, model.ErrUnsupportedPlatform)
	assert.Contains(t, err.Error(), "eastmoney")
	assert.Zero(t, env.adapter.callCount())
	assert.Equal(t, []model.Platform{model.PlatformEastmoney}, env.crawl.SupportedPlatforms())
}

type failingRepo struct {
	repository.PostRepository
}

func (failingRepo) UpsertMany(context.Context, []*model.Post) (int64, error) {
	return 0, fmt.Errorf("%w: disk full", repository.ErrStorage)
}

func TestCrawlService_StorageFailure(t *testing.T) {
	adapter := &stubAdapter{platform: model.PlatformEastmoney, perPage: 2}
	svc := NewCrawlService(source.NewRegistry(adapter), crawler.NewDriver(), failingRepo{}, nil, nil)

	_, err := svc.TriggerCrawl(context.Background(), TriggerCrawlInput{StockCode: "002085"})
	assert.ErrorIs(t, err, repository.ErrStorage)
}

func TestCrawlService_Cancelled(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := env.crawl.TriggerCrawl(ctx, TriggerCrawlInput{StockCode: "002085", PageStart: 1, PageEnd: 3})
	assert.True(t, errors.Is(err, context.Canceled))
	require.NotNil(t, res)
	assert.Equal(t, 3, res.Count)

	// 已抓到的第一页仍入库
	count, err := env.repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	runs, err := env.crawl.ListRuns(context.Background(), "002085", "", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusCancelled, runs[0].Status)
	assert.Contains(t, runs[0].Error, "context canceled")
}

func TestCrawlService_RecordsRuns(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ok, err := env.crawl.TriggerCrawl(ctx, TriggerCrawlInput{StockCode: "002085", PageStart: 1, PageEnd: 2})
	require.NoError(t, err)
	partial, err := env.crawl.TriggerCrawl(ctx, TriggerCrawlInput{StockCode: "002085", PageStart: 98, PageEnd: 99})
	require.NoError(t, err)
	failed, err := env.crawl.TriggerCrawl(ctx, TriggerCrawlInput{StockCode: "600519", PageStart: 99, PageEnd: 99})
	require.NoError(t, err)

	runs, err := env.crawl.ListRuns(ctx, "002085", "", 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	byID := map[string]*model.CrawlRun{}
	for _, r := range runs {
		byID[r.ID] = r
	}
	require.Contains(t, byID, ok.RunID)
	require.Contains(t, byID, partial.RunID)
	assert.Equal(t, model.RunStatusOK, byID[ok.RunID].Status)
	assert.Equal(t, int64(6), byID[ok.RunID].Saved)
	assert.Equal(t, 2, byID[ok.RunID].PageEnd)
	assert.Equal(t, model.RunStatusPartial, byID[partial.RunID].Status)
	assert.Equal(t, 1, byID[partial.RunID].FailedPages)
	assert.False(t, byID[ok.RunID].FinishedAt.Before(byID[ok.RunID].StartedAt))

	all, err := env.crawl.ListRuns(ctx, "", "eastmoney", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	other, err := env.crawl.ListRuns(ctx, "600519", "", 0)
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, failed.RunID, other[0].ID)
	assert.Equal(t, model.RunStatusFailed, other[0].Status)
	assert.Zero(t, other[0].Saved)

	_, err = env.crawl.ListRuns(ctx, "", "", -1)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestCrawlService_ListRunsWithoutRepo(t *testing.T) {
	adapter := &stubAdapter{platform: model.PlatformEastmoney, perPage: 1}
	svc := NewCrawlService(source.NewRegistry(adapter), crawler.NewDriver(), failingRepo{}, nil, nil)

	runs, err := svc.ListRuns(context.Background(), "", "", 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestPostService_ListPostsValidation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.posts.ListPosts(context.Background(), "", "", -1)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = env.posts.ListPosts(context.Background(), "", "xueqiu", 0)
	assert.ErrorIs(t, err, model.ErrUnsupportedPlatform)

	posts, err := env.posts.ListPosts(context.Background(), "", "", 0)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestPostService_GetStatsUsesCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.crawl.TriggerCrawl(ctx, TriggerCrawlInput{StockCode: "002085"})
	require.NoError(t, err)

	stats, err := env.posts.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalPosts)
	assert.True(t, env.redis.Exists(statsKey(10)))

	// 绕过服务直接写库，缓存仍返回旧值
	_, err = env.repo.UpsertMany(ctx, []*model.Post{{
		ID: "eastmoney_x", NativeID: "x", StockCode: "600519", Source: model.PlatformEastmoney,
		PublishTime: time.Now().UTC(), CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}})
	require.NoError(t, err)
	cached, err := env.posts.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), cached.TotalPosts)

	// 经服务采集会使缓存失效
	_, err = env.crawl.TriggerCrawl(ctx, TriggerCrawlInput{StockCode: "300750"})
	require.NoError(t, err)
	assert.False(t, env.redis.Exists(statsKey(10)))

	fresh, err := env.posts.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), fresh.TotalPosts)
	assert.Equal(t, map[string]int64{"eastmoney": 7}, fresh.ByPlatform)
	assert.Equal(t, int64(3), fresh.ByStock["300750"])
}

func TestPostService_GetStatsWithoutCache(t *testing.T) {
	env := newTestEnv(t)
	svc := NewPostService(env.repo, source.NewRegistry(env.adapter), nil, 0)

	stats, err := svc.GetStats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalPosts)
	assert.NotNil(t, stats.ByPlatform)
	assert.NotNil(t, stats.ByStock)
}

func TestStatsCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	c := NewStatsCache(client, time.Minute)
	ctx := context.Background()

	_, ok := c.Get(ctx, 10)
	assert.False(t, ok)

	want := &model.Stats{TotalPosts: 2, ByPlatform: map[string]int64{"xueqiu": 2}, ByStock: map[string]int64{"SH600519": 2}}
	c.Set(ctx, 10, want)
	c.Set(ctx, 0, want)

	got, ok := c.Get(ctx, 10)
	require.True(t, ok)
	assert.Equal(t, want, got)
	assert.Equal(t, time.Minute, mr.TTL(statsKey(10)))

	c.Invalidate(ctx)
	_, ok = c.Get(ctx, 10)
	assert.False(t, ok)
	_, ok = c.Get(ctx, 0)
	assert.False(t, ok)

	assert.Nil(t, NewStatsCache(nil, time.Minute))

	var disabled *StatsCache
	disabled.Set(ctx, 1, want)
	disabled.Invalidate(ctx)
	_, ok = disabled.Get(ctx, 1)
	assert.False(t, ok)
}
