package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/d60-Lab/forum-ingest/internal/model"
	"github.com/d60-Lab/forum-ingest/pkg/logger"
)

const (
	eastmoneyBaseURL = "https://guba.eastmoney.com"
	eastmoneyDelay   = 500 * time.Millisecond
)

// 股吧列表页把帖子列表写在 `var article_list = {...};` 里，对象之后的内容不固定
var articleListRe = regexp.MustCompile(`var\s+article_list\s*=\s*`)

// EastmoneyAdapter 东方财富股吧：HTML 页面内嵌 JSON
type EastmoneyAdapter struct {
	baseURL string
	delay   time.Duration
	headers map[string]string
	fetcher *Fetcher
}

func NewEastmoneyAdapter(f *Fetcher, opts Options) *EastmoneyAdapter {
	a := &EastmoneyAdapter{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		delay:   opts.Delay,
		headers: copyHeaders(opts.Headers),
		fetcher: f,
	}
	if a.baseURL == "" {
		a.baseURL = eastmoneyBaseURL
	}
	if a.delay <= 0 {
		a.delay = eastmoneyDelay
	}
	return a
}

func (a *EastmoneyAdapter) Platform() model.Platform { return model.PlatformEastmoney }

func (a *EastmoneyAdapter) Delay() time.Duration { return a.delay }

// PageURL 第一页 list,{code}.html，其余 list,{code}_{page}.html
func (a *EastmoneyAdapter) PageURL(code string, page int) string {
	if page <= 1 {
		return fmt.Sprintf("%s/list,%s.html", a.baseURL, code)
	}
	return fmt.Sprintf("%s/list,%s_%d.html", a.baseURL, code, page)
}

func (a *EastmoneyAdapter) FetchPage(ctx context.Context, stockCode string, page int) ([]RawRecord, error) {
	url := a.PageURL(stockCode, page)
	logger.Debug("fetching page", zap.String("platform", string(a.Platform())), zap.Int("page", page), zap.String("url", url))

	body, err := a.fetcher.Get(ctx, url, a.headers)
	if err != nil {
		return nil, err
	}

	blob, err := extractArticleList(body)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Re []json.RawMessage `json:"re"`
	}
	if err := json.Unmarshal(blob, &payload); err != nil {
		return nil, fmt.Errorf("%w: decode article_list: %v", ErrUnexpectedShape, err)
	}
	return payload.Re, nil
}

// extractArticleList 先在 <script> 中定位，页面结构异常时退回全文匹配
func extractArticleList(body []byte) (json.RawMessage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err == nil {
		var script string
		doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := s.Text()
			if articleListRe.MatchString(text) {
				script = text
				return false
			}
			return true
		})
		if script != "" {
			return decodeAfterMarker(script)
		}
	}
	return decodeAfterMarker(string(body))
}

// decodeAfterMarker 只解码标记后的第一个 JSON 值，忽略其后的脚本
func decodeAfterMarker(text string) (json.RawMessage, error) {
	loc := articleListRe.FindStringIndex(text)
	if loc == nil {
		return nil, ErrMarkerNotFound
	}
	var blob json.RawMessage
	if err := json.NewDecoder(strings.NewReader(text[loc[1]:])).Decode(&blob); err != nil {
		return nil, fmt.Errorf("%w: decode article_list: %v", ErrUnexpectedShape, err)
	}
	return blob, nil
}
