package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/forum-ingest/internal/model"
	"github.com/d60-Lab/forum-ingest/pkg/response"
)

// ListPosts 查询帖子
// @Summary 查询帖子（按发布时间倒序）
// @Tags 帖子
// @Produce json
// @Param stockCode query string false "股票代码"
// @Param platform query string false "平台"
// @Param limit query int false "返回条数" default(100)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 400 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/posts [get]
func (h *Handler) ListPosts(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(model.DefaultQueryLimit)))
	if err != nil {
		response.BadRequest(c, "limit must be an integer")
		return
	}
	posts, err := h.postService.ListPosts(c.Request.Context(), c.Query("stockCode"), c.Query("platform"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"count": len(posts), "data": posts})
}

// GetStats 统计
// @Summary 帖子统计（总数、按平台、按股票 TopN）
// @Tags 帖子
// @Produce json
// @Success 200 {object} response.Response{data=model.Stats}
// @Failure 500 {object} response.Response
// @Router /api/v1/stats [get]
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.postService.GetStats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, stats)
}
