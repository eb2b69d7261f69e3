package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/d60-Lab/forum-ingest/internal/crawler"
	"github.com/d60-Lab/forum-ingest/internal/model"
	"github.com/d60-Lab/forum-ingest/internal/repository"
	"github.com/d60-Lab/forum-ingest/internal/source"
	"github.com/d60-Lab/forum-ingest/pkg/logger"
	"github.com/d60-Lab/forum-ingest/pkg/metrics"
	"github.com/d60-Lab/forum-ingest/pkg/monitor"
)

var (
	// ErrInvalidRequest 调用方输入缺失或非法
	ErrInvalidRequest = errors.New("invalid request")
)

// DefaultPlatform 未指定平台时使用
const DefaultPlatform = model.PlatformEastmoney

// TriggerCrawlInput 触发采集参数；零值页码按 1 处理
type TriggerCrawlInput struct {
	StockCode string
	Platform  string
	PageStart int
	PageEnd   int
}

// CrawlResult 触发采集的返回
type CrawlResult struct {
	RunID    string               `json:"runId"`
	Count    int                  `json:"count"`
	Saved    int64                `json:"saved"`
	Platform model.Platform       `json:"platform"`
	Message  string               `json:"message"`
	Pages    []crawler.PageStatus `json:"pages"`
}

// CrawlService 采集编排：解析平台 -> 抓取清洗 -> 幂等入库 -> 记录运行
type CrawlService interface {
	TriggerCrawl(ctx context.Context, in TriggerCrawlInput) (*CrawlResult, error)
	SupportedPlatforms() []model.Platform
	ListRuns(ctx context.Context, stockCode, platform string, limit int) ([]*model.CrawlRun, error)
}

type crawlService struct {
	registry *source.Registry
	driver   *crawler.Driver
	postRepo repository.PostRepository
	runRepo  repository.CrawlRunRepository
	stats    *StatsCache
	validate *validator.Validate
}

// NewCrawlService runRepo 可为 nil，此时不记录运行
func NewCrawlService(registry *source.Registry, driver *crawler.Driver, postRepo repository.PostRepository,
	runRepo repository.CrawlRunRepository, stats *StatsCache) CrawlService {
	return &crawlService{
		registry: registry,
		driver:   driver,
		postRepo: postRepo,
		runRepo:  runRepo,
		stats:    stats,
		validate: validator.New(),
	}
}

func (s *crawlService) SupportedPlatforms() []model.Platform { return s.registry.Supported() }

func (s *crawlService) TriggerCrawl(ctx context.Context, in TriggerCrawlInput) (*CrawlResult, error) {
	req := model.CrawlRequest{
		StockCode: strings.TrimSpace(in.StockCode),
		PageStart: in.PageStart,
		PageEnd:   in.PageEnd,
	}
	if req.PageStart == 0 {
		req.PageStart = 1
	}
	if req.PageEnd == 0 {
		req.PageEnd = req.PageStart
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, describeValidation(err))
	}

	platform := in.Platform
	if platform == "" {
		platform = string(DefaultPlatform)
	}
	// 在任何网络请求之前解析平台
	adapter, err := s.registry.Resolve(platform)
	if err != nil {
		return nil, err
	}

	started := time.Now().UTC()
	res, runErr := s.driver.Run(ctx, adapter, req)
	if res == nil {
		return nil, runErr
	}

	out := &CrawlResult{
		RunID:    res.RunID,
		Count:    len(res.Posts),
		Platform: res.Platform,
		Pages:    res.Pages,
	}
	run := &model.CrawlRun{
		ID:          res.RunID,
		Platform:    res.Platform,
		StockCode:   req.StockCode,
		PageStart:   req.PageStart,
		PageEnd:     req.PageEnd,
		Fetched:     len(res.Posts),
		FailedPages: len(res.FailedPages()),
		Skipped:     res.Skipped,
		StartedAt:   started,
	}
	// 取消后已抓到的数据照常入库
	storeCtx := context.WithoutCancel(ctx)

	if len(res.Posts) > 0 {
		saved, err := s.postRepo.UpsertMany(storeCtx, res.Posts)
		if err != nil {
			monitor.CaptureError(err, map[string]string{"platform": platform, "stock_code": req.StockCode, "run_id": res.RunID})
			run.Status, run.Error = model.RunStatusFailed, err.Error()
			s.recordRun(storeCtx, run)
			return nil, err
		}
		out.Saved = saved
		run.Saved = saved
		metrics.PostsUpserted.WithLabelValues(platform).Add(float64(saved))
		s.stats.Invalidate(storeCtx)
		logger.Info("posts saved", zap.String("run_id", res.RunID), zap.Int64("count", saved))
	}

	run.Status = runStatus(res, runErr)
	if runErr != nil {
		run.Error = runErr.Error()
	}
	s.recordRun(storeCtx, run)
	if runErr != nil {
		return out, runErr
	}

	out.Message = fmt.Sprintf("成功爬取 %d 条数据", out.Count)
	if failed := res.FailedPages(); len(failed) > 0 {
		out.Message += fmt.Sprintf("，%d 页失败", len(failed))
	}
	return out, nil
}

func runStatus(res *crawler.Result, runErr error) string {
	failed := len(res.FailedPages())
	switch {
	case runErr != nil:
		return model.RunStatusCancelled
	case failed > 0 && failed == len(res.Pages):
		return model.RunStatusFailed
	case failed > 0:
		return model.RunStatusPartial
	default:
		return model.RunStatusOK
	}
}

// recordRun 运行记录写失败只记日志，不影响采集结果
func (s *crawlService) recordRun(ctx context.Context, run *model.CrawlRun) {
	run.FinishedAt = time.Now().UTC()
	if s.runRepo == nil {
		return
	}
	if err := s.runRepo.Create(ctx, run); err != nil {
		logger.Warn("record crawl run failed", zap.String("run_id", run.ID), zap.Error(err))
	}
}

func (s *crawlService) ListRuns(ctx context.Context, stockCode, platform string, limit int) ([]*model.CrawlRun, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must be >= 0", ErrInvalidRequest)
	}
	if s.runRepo == nil {
		return []*model.CrawlRun{}, nil
	}
	return s.runRepo.List(ctx, model.RunQuery{
		StockCode: strings.TrimSpace(stockCode),
		Platform:  model.Platform(platform),
		Limit:     limit,
	})
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, "missing "+lowerFirst(fe.Field()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be >= %s", lowerFirst(fe.Field()), fe.Param()))
		case "gtefield":
			msgs = append(msgs, fmt.Sprintf("%s must be >= %s", lowerFirst(fe.Field()), lowerFirst(fe.Param())))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", lowerFirst(fe.Field())))
		}
	}
	return strings.Join(msgs, "; ")
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
