// Package logger 提供进程级 zap 日志
package logger

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu  sync.RWMutex
	log = zap.NewNop()
)

// wrapped 供本包的 Info/Warn 等函数使用，跳过一层调用栈
var wrapped = zap.NewNop()

// Config 日志配置
type Config struct {
	Level       string
	Development bool
}

// Init 初始化全局 logger，只应在启动时调用一次
func Init(cfg Config) error {
	var zc zap.Config
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.Level = zap.NewAtomicLevelAt(parseLevel(cfg.Level))

	l, err := zc.Build()
	if err != nil {
		return err
	}
	Set(l)
	return nil
}

// Set 替换全局 logger（测试中可注入 observer）
func Set(l *zap.Logger) {
	mu.Lock()
	log = l
	wrapped = l.WithOptions(zap.AddCallerSkip(1))
	mu.Unlock()
}

// L 返回当前全局 logger
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func w() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return wrapped
}

func Debug(msg string, fields ...zap.Field) { w().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { w().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { w().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { w().Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { w().Fatal(msg, fields...) }

// Sync 刷新缓冲
func Sync() error { return L().Sync() }
