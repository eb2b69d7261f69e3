// Package crawler 按页驱动适配器抓取，隔离单页失败并统一做数据清洗。
package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/d60-Lab/forum-ingest/internal/model"
	"github.com/d60-Lab/forum-ingest/internal/normalizer"
	"github.com/d60-Lab/forum-ingest/internal/source"
	"github.com/d60-Lab/forum-ingest/pkg/logger"
	"github.com/d60-Lab/forum-ingest/pkg/metrics"
	"github.com/d60-Lab/forum-ingest/pkg/tracing"
)

// ErrInvalidPageRange 页码范围非法
var ErrInvalidPageRange = errors.New("invalid page range")

// PageStatus 单页抓取结果
type PageStatus struct {
	Page  int    `json:"page"`
	Count int    `json:"count"`
	Soft  bool   `json:"soft,omitempty"`
	Error string `json:"error,omitempty"`
}

func (s PageStatus) Failed() bool { return s.Error != "" }

// Result 一次采集的结果；部分页失败仍是成功结果
type Result struct {
	RunID    string
	Platform model.Platform
	Posts    []*model.Post
	Pages    []PageStatus
	// Skipped 无法清洗而被丢弃的记录数
	Skipped int
}

// FailedPages 失败的页码
func (r *Result) FailedPages() []int {
	var out []int
	for _, p := range r.Pages {
		if p.Failed() {
			out = append(out, p.Page)
		}
	}
	return out
}

// Driver 顺序抓取页码区间；同一次运行内不并发，不同运行之间无共享可变状态
type Driver struct {
	now func() time.Time
}

func NewDriver() *Driver {
	return &Driver{now: time.Now}
}

// Run 依次抓取 [PageStart, PageEnd]，页与页之间等待 adapter.Delay()。
// ctx 取消时返回已收集的结果和 ctx 错误。
func (d *Driver) Run(ctx context.Context, a source.Adapter, req model.CrawlRequest) (*Result, error) {
	if req.PageStart < 1 || req.PageEnd < req.PageStart {
		return nil, fmt.Errorf("%w: %d-%d", ErrInvalidPageRange, req.PageStart, req.PageEnd)
	}

	platform := a.Platform()
	res := &Result{RunID: uuid.New().String(), Platform: platform}
	log := logger.L().With(
		zap.String("run_id", res.RunID),
		zap.String("platform", string(platform)),
		zap.String("stock_code", req.StockCode),
	)

	ctx, span := tracing.Tracer().Start(ctx, "crawler.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("crawl.run_id", res.RunID),
		attribute.String("crawl.platform", string(platform)),
		attribute.String("crawl.stock_code", req.StockCode),
		attribute.Int("crawl.page_start", req.PageStart),
		attribute.Int("crawl.page_end", req.PageEnd),
	)

	start := time.Now()
	defer func() {
		metrics.CrawlDuration.WithLabelValues(string(platform)).Observe(time.Since(start).Seconds())
	}()

	log.Info("crawl started", zap.Int("page_start", req.PageStart), zap.Int("page_end", req.PageEnd))

	var raws []source.RawRecord
	var runErr error
	for page := req.PageStart; page <= req.PageEnd; page++ {
		if page > req.PageStart {
			if err := pause(ctx, a.Delay()); err != nil {
				runErr = err
				break
			}
		}

		records, err := d.fetchPage(ctx, a, req.StockCode, page)
		status := PageStatus{Page: page, Count: len(records)}
		switch {
		case err == nil:
			raws = append(raws, records...)
			metrics.PagesFetched.WithLabelValues(string(platform), metrics.OutcomeOK).Inc()
			log.Info("page fetched", zap.Int("page", page), zap.Int("count", len(records)))
		case source.IsSoft(err):
			status.Count, status.Soft, status.Error = 0, true, err.Error()
			metrics.PagesFetched.WithLabelValues(string(platform), metrics.OutcomeSoftFailure).Inc()
			log.Warn("page unavailable, continuing", zap.Int("page", page), zap.Error(err))
		default:
			status.Count, status.Error = 0, err.Error()
			metrics.PagesFetched.WithLabelValues(string(platform), metrics.OutcomeError).Inc()
			log.Error("page fetch failed, continuing", zap.Int("page", page), zap.Error(err))
		}
		res.Pages = append(res.Pages, status)

		if ctx.Err() != nil {
			runErr = ctx.Err()
			break
		}
	}

	now := d.now()
	res.Posts = make([]*model.Post, 0, len(raws))
	for _, raw := range raws {
		post, err := normalizer.NormalizeAt(raw, platform, now)
		if err != nil {
			res.Skipped++
			metrics.RecordsNormalized.WithLabelValues(string(platform), metrics.OutcomeSkipped).Inc()
			log.Warn("skipping record", zap.Error(err))
			continue
		}
		metrics.RecordsNormalized.WithLabelValues(string(platform), metrics.OutcomeOK).Inc()
		res.Posts = append(res.Posts, post)
	}

	span.SetAttributes(attribute.Int("crawl.posts", len(res.Posts)))
	if runErr != nil {
		span.SetStatus(codes.Error, runErr.Error())
		log.Warn("crawl interrupted", zap.Int("posts", len(res.Posts)), zap.Error(runErr))
		return res, runErr
	}
	log.Info("crawl finished",
		zap.Int("posts", len(res.Posts)),
		zap.Ints("failed_pages", res.FailedPages()),
		zap.Int("skipped", res.Skipped))
	return res, nil
}

// fetchPage 调用适配器；适配器 panic 也只影响当前页
func (d *Driver) fetchPage(ctx context.Context, a source.Adapter, code string, page int) (records []source.RawRecord, err error) {
	ctx, span := tracing.Tracer().Start(ctx, "crawler.FetchPage")
	defer span.End()
	span.SetAttributes(attribute.Int("crawl.page", page))

	defer func() {
		if r := recover(); r != nil {
			records, err = nil, fmt.Errorf("adapter panic: %v", r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()
	return a.FetchPage(ctx, code, page)
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
