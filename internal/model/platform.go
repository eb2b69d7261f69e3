package model

import "errors"

// Platform 数据来源平台标识
type Platform string

const (
	PlatformEastmoney Platform = "eastmoney" // 东方财富股吧
	PlatformXueqiu    Platform = "xueqiu"    // 雪球
)

// ErrUnsupportedPlatform 平台未注册
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// CrawlRequest 单次采集请求，不落库
type CrawlRequest struct {
	StockCode string `json:"stockCode" validate:"required"`
	PageStart int    `json:"pageStart" validate:"min=1"`
	PageEnd   int    `json:"pageEnd" validate:"min=1,gtefield=PageStart"`
}

// PostQuery 查询条件，非空字段按 AND 组合
type PostQuery struct {
	StockCode string
	Platform  Platform
	Limit     int
}

// DefaultQueryLimit 查询默认返回条数
const DefaultQueryLimit = 100

// Stats 聚合统计
type Stats struct {
	TotalPosts int64            `json:"totalPosts"`
	ByPlatform map[string]int64 `json:"byPlatform"`
	ByStock    map[string]int64 `json:"byStock"`
}
