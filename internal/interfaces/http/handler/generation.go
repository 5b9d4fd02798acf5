package handler

import (
	"context"

	"z-novel-copilot/internal/application/generation"
	"z-novel-copilot/internal/domain/entity"
	"z-novel-copilot/internal/interfaces/http/dto"

	"github.com/gin-gonic/gin"
)

// GenerationService 协调器的 HTTP 视角
type GenerationService interface {
	Start(ctx context.Context, req generation.StartRequest) (string, error)
	Cancel(channel entity.Channel) bool
	CancelAll()
}

// GenerationHandler 原始生成接口：start / cancel / cancelAll
type GenerationHandler struct {
	svc GenerationService
}

// NewGenerationHandler 创建生成处理器
func NewGenerationHandler(svc GenerationService) *GenerationHandler {
	return &GenerationHandler{svc: svc}
}

// Start 发起生成，分片通过 /v1/events 推送
// @Summary 发起流式生成
// @Tags Generations
// @Accept json
// @Produce json
// @Param body body dto.StartGenerationRequest true "生成请求"
// @Success 202 {object} dto.Response[dto.RequestIDResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/generations [post]
func (h *GenerationHandler) Start(c *gin.Context) {
	var req dto.StartGenerationRequest
	if !bindJSON(c, &req) {
		return
	}

	id, err := h.svc.Start(c.Request.Context(), req.ToStartRequest())
	if err != nil {
		writeError(c, err, "failed to start generation")
		return
	}
	dto.Accepted(c, dto.RequestIDResponse{RequestID: id})
}

// Cancel 取消通道的活跃请求，无活跃请求时为空操作
// @Summary 取消通道生成
// @Tags Generations
// @Produce json
// @Param channel path string true "通道 (chat, inline)"
// @Success 200 {object} dto.Response[dto.CancelResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/generations/{channel} [delete]
func (h *GenerationHandler) Cancel(c *gin.Context) {
	channel := entity.Channel(c.Param("channel"))
	if !channel.Valid() {
		dto.BadRequest(c, "invalid channel: "+string(channel))
		return
	}
	dto.Success(c, dto.CancelResponse{Canceled: h.svc.Cancel(channel)})
}

// CancelAll 中止全部请求，之后不再推送任何分片
// @Summary 取消全部生成
// @Tags Generations
// @Success 204 "No Content"
// @Router /v1/generations [delete]
func (h *GenerationHandler) CancelAll(c *gin.Context) {
	h.svc.CancelAll()
	dto.NoContent(c)
}
