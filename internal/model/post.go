package model

import (
	"time"

	"gorm.io/datatypes"
)

// AnonymousNickname 来源未给出昵称时的占位
const AnonymousNickname = "匿名"

// Author 发帖人
type Author struct {
	ID       string `json:"id" gorm:"type:varchar(64)"`
	Nickname string `json:"nickname" gorm:"type:varchar(128)"`
}

// Post 统一帖子模型，ID = {platform}_{nativeID}
type Post struct {
	ID           string         `json:"id" gorm:"primaryKey;type:varchar(96)"`
	NativeID     string         `json:"nativeId" gorm:"type:varchar(64);not null"`
	Title        string         `json:"title" gorm:"type:text;not null"`
	Content      *string        `json:"content,omitempty" gorm:"type:text"`
	Author       Author         `json:"author" gorm:"embedded;embeddedPrefix:author_"`
	StockCode    string         `json:"stockCode" gorm:"type:varchar(32);not null;default:'';index:idx_stock_code;index:idx_stock_source,priority:1"`
	PublishTime  time.Time      `json:"publishTime" gorm:"not null;index:idx_publish_time"`
	ClickCount   int64          `json:"clickCount" gorm:"not null;default:0"`
	CommentCount int64          `json:"commentCount" gorm:"not null;default:0"`
	Source       Platform       `json:"source" gorm:"type:varchar(32);not null;index:idx_source;index:idx_stock_source,priority:2"`
	RawData      datatypes.JSON `json:"rawData,omitempty"`
	CreatedAt    time.Time      `json:"createdAt" gorm:"not null"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

func (Post) TableName() string { return "posts" }

// PostID 由平台与原生 ID 拼出全局唯一 ID
func PostID(p Platform, nativeID string) string {
	return string(p) + "_" + nativeID
}

// MutableColumns 重复入库时允许覆盖的列；id、created_at 等保持不变
var MutableColumns = []string{
	"title",
	"content",
	"author_id",
	"author_nickname",
	"click_count",
	"comment_count",
	"raw_data",
	"updated_at",
}
