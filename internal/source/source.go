// Package source 各平台的抓取适配器：构造分页请求并把原始响应解析为记录列表。
package source

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/d60-Lab/forum-ingest/internal/model"
)

// RawRecord 平台原始记录，结构由 normalizer 按平台解释
type RawRecord = json.RawMessage

// Adapter 单个平台的抓取能力
type Adapter interface {
	Platform() model.Platform
	// Delay 两页之间的等待时间，反映目标平台的限流容忍度
	Delay() time.Duration
	// FetchPage 抓取一页。普通 HTTP/解析失败返回包装了 ErrSourceUnavailable 的错误，
	// 由调用方记录日志后按空页处理。
	FetchPage(ctx context.Context, stockCode string, page int) ([]RawRecord, error)
}

// Options 适配器静态配置，headers 可携带 cookie
type Options struct {
	BaseURL string
	Delay   time.Duration
	Headers map[string]string
}

var (
	// ErrSourceUnavailable 单页软失败
	ErrSourceUnavailable = errors.New("source unavailable")

	ErrUnexpectedStatus = wrapSoft("unexpected http status")
	ErrMarkerNotFound   = wrapSoft("embedded data marker not found")
	ErrAntiBot          = wrapSoft("anti-bot challenge page returned")
	ErrUnexpectedShape  = wrapSoft("unexpected response shape")
)

type softError struct{ msg string }

func (e *softError) Error() string { return e.msg }

func (e *softError) Unwrap() error { return ErrSourceUnavailable }

func wrapSoft(msg string) error { return &softError{msg: msg} }

// IsSoft 是否为可预期的单页失败
func IsSoft(err error) bool {
	return errors.Is(err, ErrSourceUnavailable)
}
