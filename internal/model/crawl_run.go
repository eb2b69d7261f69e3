package model

import "time"

// 采集运行状态
const (
	RunStatusOK        = "ok"
	RunStatusPartial   = "partial" // 部分页失败
	RunStatusFailed    = "failed"  // 全部页失败或入库失败
	RunStatusCancelled = "cancelled"
)

// CrawlRun 一次采集的摘要，每次触发写一条
type CrawlRun struct {
	ID          string    `json:"runId" gorm:"primaryKey;type:varchar(36)"`
	Platform    Platform  `json:"platform" gorm:"type:varchar(32);not null;index:idx_run_stock_platform,priority:2"`
	StockCode   string    `json:"stockCode" gorm:"type:varchar(32);not null;index:idx_run_stock_platform,priority:1"`
	PageStart   int       `json:"pageStart"`
	PageEnd     int       `json:"pageEnd"`
	Fetched     int       `json:"fetched"` // 清洗后的帖子数
	Saved       int64     `json:"saved"`
	FailedPages int       `json:"failedPages"`
	Skipped     int       `json:"skipped"`
	Status      string    `json:"status" gorm:"type:varchar(16);not null;index"`
	Error       string    `json:"error,omitempty" gorm:"type:text"`
	StartedAt   time.Time `json:"startedAt" gorm:"not null;index"`
	FinishedAt  time.Time `json:"finishedAt"`
}

func (CrawlRun) TableName() string { return "crawl_runs" }

// RunQuery 运行记录查询条件
type RunQuery struct {
	StockCode string
	Platform  Platform
	Limit     int
}

// DefaultRunLimit 运行记录默认返回条数
const DefaultRunLimit = 20
