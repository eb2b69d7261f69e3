package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/forum-ingest/internal/model"
	"github.com/d60-Lab/forum-ingest/pkg/logger"
)

const (
	xueqiuBaseURL    = "https://xueqiu.com"
	xueqiuSearchPath = "/query/v1/symbol/search/status.json"
	xueqiuDelay      = time.Second // 雪球限流更严格
	xueqiuPageSize   = 10
)

// XueqiuAdapter 雪球：JSON API，被反爬拦截时返回 HTML
type XueqiuAdapter struct {
	baseURL string
	delay   time.Duration
	headers map[string]string
	fetcher *Fetcher
}

func NewXueqiuAdapter(f *Fetcher, opts Options) *XueqiuAdapter {
	a := &XueqiuAdapter{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		delay:   opts.Delay,
		headers: copyHeaders(opts.Headers),
		fetcher: f,
	}
	if a.baseURL == "" {
		a.baseURL = xueqiuBaseURL
	}
	if a.delay <= 0 {
		a.delay = xueqiuDelay
	}
	return a
}

func (a *XueqiuAdapter) Platform() model.Platform { return model.PlatformXueqiu }

func (a *XueqiuAdapter) Delay() time.Duration { return a.delay }

func (a *XueqiuAdapter) PageURL(code string, page int) string {
	symbol, ok := DeriveSymbol(code)
	if !ok {
		logger.Warn("unrecognized stock code prefix, using code as symbol",
			zap.String("platform", string(a.Platform())), zap.String("stock_code", code))
	}
	q := url.Values{}
	q.Set("count", strconv.Itoa(xueqiuPageSize))
	q.Set("comment", "0")
	q.Set("symbol", symbol)
	q.Set("hl", "0")
	q.Set("source", "all")
	q.Set("sort", "time")
	q.Set("page", strconv.Itoa(page))
	q.Set("q", "")
	q.Set("type", "11")
	return a.baseURL + xueqiuSearchPath + "?" + q.Encode()
}

func (a *XueqiuAdapter) FetchPage(ctx context.Context, stockCode string, page int) ([]RawRecord, error) {
	u := a.PageURL(stockCode, page)
	logger.Debug("fetching page", zap.String("platform", string(a.Platform())), zap.Int("page", page), zap.String("url", u))

	body, err := a.fetcher.Get(ctx, u, a.headers)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if bytes.HasPrefix(trimmed, []byte("<")) {
		return nil, ErrAntiBot
	}

	var payload struct {
		List *[]json.RawMessage `json:"list"`
	}
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	if payload.List == nil {
		return nil, fmt.Errorf("%w: missing list field", ErrUnexpectedShape)
	}
	return *payload.List, nil
}
