package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/forum-ingest/config"
)

// InitDB 按配置打开数据库连接（sqlite 或 postgres）
func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dc := cfg.Database
	gcfg := &gorm.Config{Logger: gormlogger.Default.LogMode(parseLogLevel(dc.LogLevel))}

	var dialector gorm.Dialector
	switch strings.ToLower(dc.Driver) {
	case "", "sqlite":
		if dc.DSN != ":memory:" && !strings.HasPrefix(dc.DSN, "file:") {
			if err := os.MkdirAll(filepath.Dir(dc.DSN), 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
		dialector = sqlite.Open(dc.DSN)
	case "postgres":
		dialector = postgres.Open(dc.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", dc.Driver)
	}

	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if dc.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(dc.MaxOpenConns)
	}
	if dc.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(dc.MaxIdleConns)
	}
	if dc.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(dc.ConnMaxLifetime)
	}
	// sqlite 单写者，避免 database is locked
	if dialector.Name() == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

func parseLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
