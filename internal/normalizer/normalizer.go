// Package normalizer 把各平台原始记录映射为统一的 model.Post。
package normalizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/d60-Lab/forum-ingest/internal/model"
)

// ErrMalformedRecord 原始记录无法解码或缺少原生 ID
var ErrMalformedRecord = errors.New("malformed raw record")

// MapFunc 单个平台的映射函数；now 为入库时间，也作为时间解析失败时的回退值
type MapFunc func(raw json.RawMessage, now time.Time) (*model.Post, error)

var mappers = map[model.Platform]MapFunc{
	model.PlatformEastmoney: mapEastmoney,
	model.PlatformXueqiu:    mapXueqiu,
}

// Normalize 以当前时间作为入库时间
func Normalize(raw json.RawMessage, p model.Platform) (*model.Post, error) {
	return NormalizeAt(raw, p, time.Now())
}

// NormalizeAt 按平台分发到映射函数
func NormalizeAt(raw json.RawMessage, p model.Platform, now time.Time) (*model.Post, error) {
	fn, ok := mappers[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnsupportedPlatform, p)
	}
	return fn(raw, now.UTC())
}

// Supports 是否存在该平台的映射函数
func Supports(p model.Platform) bool {
	_, ok := mappers[p]
	return ok
}

func nickname(s string) string {
	if s == "" {
		return model.AnonymousNickname
	}
	return s
}

func nonNegative(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}

func optional(values ...string) *string {
	for _, v := range values {
		if v != "" {
			return &v
		}
	}
	return nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
