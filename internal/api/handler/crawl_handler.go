package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/forum-ingest/internal/model"
	"github.com/d60-Lab/forum-ingest/internal/service"
	"github.com/d60-Lab/forum-ingest/pkg/response"
)

type crawlRequest struct {
	StockCode string `json:"stockCode"`
	Platform  string `json:"platform"`
	PageStart int    `json:"pageStart"`
	PageEnd   int    `json:"pageEnd"`
}

// TriggerCrawl 触发采集
// @Summary 采集指定股票的论坛帖子并入库
// @Tags 采集
// @Accept json
// @Produce json
// @Param request body crawlRequest true "采集参数，platform 默认 eastmoney，页码默认 1"
// @Success 200 {object} response.Response{data=service.CrawlResult}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 429 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/crawl [post]
func (h *Handler) TriggerCrawl(c *gin.Context) {
	var req crawlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	res, err := h.crawlService.TriggerCrawl(c.Request.Context(), service.TriggerCrawlInput{
		StockCode: req.StockCode,
		Platform:  req.Platform,
		PageStart: req.PageStart,
		PageEnd:   req.PageEnd,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, res)
}

// ListPlatforms 支持的平台
// @Summary 支持的平台列表
// @Tags 采集
// @Produce json
// @Success 200 {object} response.Response{data=[]string}
// @Router /api/v1/platforms [get]
func (h *Handler) ListPlatforms(c *gin.Context) {
	response.Success(c, h.crawlService.SupportedPlatforms())
}

// ListRuns 采集记录
// @Summary 采集运行记录（按开始时间倒序）
// @Tags 采集
// @Produce json
// @Param stockCode query string false "股票代码"
// @Param platform query string false "平台"
// @Param limit query int false "返回条数" default(20)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 400 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/runs [get]
func (h *Handler) ListRuns(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(model.DefaultRunLimit)))
	if err != nil {
		response.BadRequest(c, "limit must be an integer")
		return
	}
	runs, err := h.crawlService.ListRuns(c.Request.Context(), c.Query("stockCode"), c.Query("platform"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"count": len(runs), "data": runs})
}
