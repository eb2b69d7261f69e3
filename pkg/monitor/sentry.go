// Package monitor 错误上报（Sentry）
package monitor

import (
	"time"

	"github.com/getsentry/sentry-go"
)

var enabled bool

// Init DSN 为空时不启用
func Init(dsn, environment string) error {
	if dsn == "" {
		return nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
	}); err != nil {
		return err
	}
	enabled = true
	return nil
}

// CaptureError 附带标签上报错误
func CaptureError(err error, tags map[string]string) {
	if !enabled || err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		sentry.CaptureException(err)
	})
}

// Flush 退出前等待上报完成
func Flush() {
	if enabled {
		sentry.Flush(2 * time.Second)
	}
}
