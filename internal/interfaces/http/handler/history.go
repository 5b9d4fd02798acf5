package handler

import (
	"z-novel-copilot/internal/domain/repository"
	"z-novel-copilot/internal/interfaces/http/dto"

	"github.com/gin-gonic/gin"
)

// HistoryHandler 生成历史
type HistoryHandler struct {
	repo repository.GenerationHistoryRepository
}

// NewHistoryHandler 创建生成历史处理器
func NewHistoryHandler(repo repository.GenerationHistoryRepository) *HistoryHandler {
	return &HistoryHandler{repo: repo}
}

// List 作品的生成历史，按时间倒序
// @Summary 获取生成历史
// @Tags History
// @Produce json
// @Param pid path string true "项目 ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[[]dto.GenerationHistoryResponse]
// @Router /v1/projects/{pid}/generations [get]
func (h *HistoryHandler) List(c *gin.Context) {
	result, err := h.repo.ListByProject(c.Request.Context(), dto.ProjectID(c), dto.BindPage(c))
	if err != nil {
		writeError(c, err, "failed to list generation history")
		return
	}
	dto.Page(c, result, dto.ToGenerationHistoryList)
}

// Accept 标记为已采纳
// @Summary 标记生成历史为已采纳
// @Tags History
// @Param id path string true "历史 ID"
// @Success 204 "No Content"
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/generations/history/{id}/accept [post]
func (h *HistoryHandler) Accept(c *gin.Context) {
	if err := h.repo.MarkAccepted(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err, "failed to mark generation accepted")
		return
	}
	dto.NoContent(c)
}
