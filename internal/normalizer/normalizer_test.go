package normalizer

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/d60-Lab/forum-ingest/internal/model"
	"github.com/d60-Lab/forum-ingest/pkg/logger"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNormalize_Eastmoney(t *testing.T) {
	raw := json.RawMessage(`{
		"post_id": 1578234410,
		"post_title": "业绩预告出来了",
		"stockbar_code": "002085",
		"user_id": "8123456",
		"user_nickname": "股民甲",
		"post_click_count": 1532,
		"post_comment_count": "12",
		"post_publish_time": "2026-01-06 17:46:04"
	}`)

	p, err := NormalizeAt(raw, model.PlatformEastmoney, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, "eastmoney_1578234410", p.ID)
	assert.Equal(t, "1578234410", p.NativeID)
	assert.Equal(t, "业绩预告出来了", p.Title)
	assert.Nil(t, p.Content)
	assert.Equal(t, model.Author{ID: "8123456", Nickname: "股民甲"}, p.Author)
	assert.Equal(t, "002085", p.StockCode)
	assert.Equal(t, time.Date(2026, 1, 6, 9, 46, 4, 0, time.UTC), p.PublishTime)
	assert.Equal(t, int64(1532), p.ClickCount)
	assert.Equal(t, int64(12), p.CommentCount)
	assert.Equal(t, model.PlatformEastmoney, p.Source)
	assert.JSONEq(t, string(raw), string(p.RawData))
	assert.Equal(t, fixedNow, p.CreatedAt)
}

func TestNormalize_EastmoneyDefaults(t *testing.T) {
	p, err := NormalizeAt(json.RawMessage(`{"post_id":"42"}`), model.PlatformEastmoney, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, "eastmoney_42", p.ID)
	assert.Equal(t, "", p.Title)
	assert.Equal(t, model.AnonymousNickname, p.Author.Nickname)
	assert.Equal(t, "", p.Author.ID)
	assert.Equal(t, "", p.StockCode)
	assert.Zero(t, p.ClickCount)
	assert.Zero(t, p.CommentCount)
	assert.Equal(t, fixedNow, p.PublishTime)
}

func TestNormalize_EastmoneyBadTimeFallsBack(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	logger.Set(zap.New(core))
	t.Cleanup(func() { logger.Set(zap.NewNop()) })

	p, err := NormalizeAt(json.RawMessage(`{"post_id":"42","post_publish_time":"yesterday"}`), model.PlatformEastmoney, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, fixedNow, p.PublishTime)

	warned := logs.FilterField(zap.String("value", "yesterday"))
	assert.Equal(t, 1, warned.Len())
}

func TestNormalize_Xueqiu(t *testing.T) {
	raw := json.RawMessage(`{
		"id": 318877441,
		"title": "",
		"text": "白酒板块今天整体走强，茅台放量上涨，后市怎么看？欢迎大家一起讨论。这里再多写一些字把长度凑到五十个字以上。",
		"user": {"id": 9911, "screen_name": "雪球用户"},
		"symbol": "SH600519",
		"created_at": 1767692764000,
		"view_count": 88,
		"reply_count": 3
	}`)

	p, err := NormalizeAt(raw, model.PlatformXueqiu, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, "xueqiu_318877441", p.ID)
	assert.Equal(t, 50, len([]rune(p.Title)))
	assert.True(t, strings.HasPrefix(p.Title, "白酒板块今天整体走强"))
	require.NotNil(t, p.Content)
	assert.True(t, strings.HasPrefix(*p.Content, p.Title))
	assert.Equal(t, model.Author{ID: "9911", Nickname: "雪球用户"}, p.Author)
	assert.Equal(t, "SH600519", p.StockCode)
	assert.Equal(t, time.UnixMilli(1767692764000).UTC(), p.PublishTime)
	assert.Equal(t, int64(88), p.ClickCount)
	assert.Equal(t, int64(3), p.CommentCount)
	assert.Equal(t, model.PlatformXueqiu, p.Source)
}

func TestNormalize_XueqiuDefaults(t *testing.T) {
	p, err := NormalizeAt(json.RawMessage(`{"id":"7","title":"有标题","description":"摘要"}`), model.PlatformXueqiu, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, "有标题", p.Title)
	require.NotNil(t, p.Content)
	assert.Equal(t, "摘要", *p.Content)
	assert.Equal(t, model.AnonymousNickname, p.Author.Nickname)
	assert.Equal(t, fixedNow, p.PublishTime)

	p, err = NormalizeAt(json.RawMessage(`{"id":8,"user":{"id":1,"screen_name":""}}`), model.PlatformXueqiu, fixedNow)
	require.NoError(t, err)
	assert.Nil(t, p.Content)
	assert.Equal(t, "", p.Title)
	assert.Equal(t, model.AnonymousNickname, p.Author.Nickname)
}

func TestNormalize_NegativeCountsClamped(t *testing.T) {
	p, err := NormalizeAt(json.RawMessage(`{"id":1,"view_count":-5,"reply_count":"-1"}`), model.PlatformXueqiu, fixedNow)
	require.NoError(t, err)
	assert.Zero(t, p.ClickCount)
	assert.Zero(t, p.CommentCount)
}

func TestNormalize_Malformed(t *testing.T) {
	cases := map[string]struct {
		raw      string
		platform model.Platform
	}{
		"eastmoney missing id": {`{"post_title":"x"}`, model.PlatformEastmoney},
		"xueqiu missing id":    {`{"text":"x"}`, model.PlatformXueqiu},
		"not an object":        {`[1,2]`, model.PlatformEastmoney},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NormalizeAt(json.RawMessage(tc.raw), tc.platform, fixedNow)
			assert.ErrorIs(t, err, ErrMalformedRecord)
		})
	}
}

func TestNormalize_UnsupportedPlatform(t *testing.T) {
	_, err := Normalize(json.RawMessage(`{"id":1}`), model.Platform("weibo"))
	assert.ErrorIs(t, err, model.ErrUnsupportedPlatform)
	assert.False(t, Supports("weibo"))
	assert.True(t, Supports(model.PlatformXueqiu))
}

func TestParseLocalTime(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2026-01-06 17:46:04", time.Date(2026, 1, 6, 9, 46, 4, 0, time.UTC), true},
		{"2026-01-06 07:30", time.Date(2026, 1, 5, 23, 30, 0, 0, time.UTC), true},
		{"2026/01/06 08:00:00", time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC), true},
		{"06-01-2026", time.Time{}, false},
	}
	for _, tc := range cases {
		got, ok := ParseLocalTime(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}
