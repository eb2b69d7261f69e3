package normalizer

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/d60-Lab/forum-ingest/internal/model"
)

const xueqiuTitleRunes = 50

type eastmoneyRaw struct {
	PostID           flexString `json:"post_id"`
	PostTitle        string     `json:"post_title"`
	StockbarCode     string     `json:"stockbar_code"`
	UserID           flexString `json:"user_id"`
	UserNickname     string     `json:"user_nickname"`
	PostClickCount   flexInt    `json:"post_click_count"`
	PostCommentCount flexInt    `json:"post_comment_count"`
	PostPublishTime  string     `json:"post_publish_time"`
}

func mapEastmoney(raw json.RawMessage, now time.Time) (*model.Post, error) {
	var r eastmoneyRaw
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if r.PostID == "" {
		return nil, fmt.Errorf("%w: missing post_id", ErrMalformedRecord)
	}

	return &model.Post{
		ID:       model.PostID(model.PlatformEastmoney, string(r.PostID)),
		NativeID: string(r.PostID),
		Title:    r.PostTitle,
		Author: model.Author{
			ID:       string(r.UserID),
			Nickname: nickname(r.UserNickname),
		},
		StockCode:    r.StockbarCode,
		PublishTime:  localTimeOr(r.PostPublishTime, now),
		ClickCount:   nonNegative(int64(r.PostClickCount)),
		CommentCount: nonNegative(int64(r.PostCommentCount)),
		Source:       model.PlatformEastmoney,
		RawData:      datatypes.JSON(raw),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

type xueqiuRaw struct {
	ID          flexString `json:"id"`
	Title       string     `json:"title"`
	Text        string     `json:"text"`
	Description string     `json:"description"`
	User        *struct {
		ID         flexString `json:"id"`
		ScreenName string     `json:"screen_name"`
	} `json:"user"`
	Symbol     string  `json:"symbol"`
	CreatedAt  flexInt `json:"created_at"` // 毫秒
	ViewCount  flexInt `json:"view_count"`
	ReplyCount flexInt `json:"reply_count"`
}

func mapXueqiu(raw json.RawMessage, now time.Time) (*model.Post, error) {
	var r xueqiuRaw
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if r.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrMalformedRecord)
	}

	title := r.Title
	if title == "" {
		title = truncateRunes(r.Text, xueqiuTitleRunes)
	}
	author := model.Author{Nickname: model.AnonymousNickname}
	if r.User != nil {
		author.ID = string(r.User.ID)
		author.Nickname = nickname(r.User.ScreenName)
	}

	return &model.Post{
		ID:           model.PostID(model.PlatformXueqiu, string(r.ID)),
		NativeID:     string(r.ID),
		Title:        title,
		Content:      optional(r.Text, r.Description),
		Author:       author,
		StockCode:    r.Symbol,
		PublishTime:  epochMillisOr(int64(r.CreatedAt), now),
		ClickCount:   nonNegative(int64(r.ViewCount)),
		CommentCount: nonNegative(int64(r.ReplyCount)),
		Source:       model.PlatformXueqiu,
		RawData:      datatypes.JSON(raw),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
