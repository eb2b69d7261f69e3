package normalizer

import (
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/forum-ingest/pkg/logger"
)

// SourceLocation 输出本地时间字符串的平台（东方财富）使用的时区，固定 UTC+8
var SourceLocation = time.FixedZone("UTC+8", 8*60*60)

var localLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
}

// ParseLocalTime 按 UTC+8 解析本地时间字符串，返回 UTC 时刻
func ParseLocalTime(s string) (time.Time, bool) {
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, SourceLocation); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// localTimeOr 解析失败时记录告警并回退到 fallback
func localTimeOr(s string, fallback time.Time) time.Time {
	if s == "" {
		return fallback
	}
	t, ok := ParseLocalTime(s)
	if !ok {
		logger.Warn("failed to parse publish time, falling back to now", zap.String("value", s))
		return fallback
	}
	return t
}

// epochMillisOr 毫秒时间戳转 UTC，缺失时回退
func epochMillisOr(ms int64, fallback time.Time) time.Time {
	if ms <= 0 {
		return fallback
	}
	return time.UnixMilli(ms).UTC()
}
