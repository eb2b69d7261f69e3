package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/forum-ingest/internal/model"
	"github.com/d60-Lab/forum-ingest/internal/service"
	"github.com/d60-Lab/forum-ingest/pkg/response"
)

// Handler HTTP 处理器集合
type Handler struct {
	crawlService service.CrawlService
	postService  service.PostService
}

func NewHandler(crawlService service.CrawlService, postService service.PostService) *Handler {
	return &Handler{crawlService: crawlService, postService: postService}
}

// writeError 调用方错误 400，其余 500
func writeError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrInvalidRequest) || errors.Is(err, model.ErrUnsupportedPlatform) {
		response.BadRequest(c, err.Error())
		return
	}
	response.InternalError(c, err)
}

// Health 健康检查
// @Summary 健康检查
// @Tags 系统
// @Success 200 {object} response.Response
// @Router /health [get]
func (h *Handler) Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}
