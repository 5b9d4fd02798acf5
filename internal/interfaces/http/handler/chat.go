package handler

import (
	"z-novel-copilot/internal/application/session"
	"z-novel-copilot/internal/interfaces/http/dto"

	"github.com/gin-gonic/gin"
)

// ChatHandler 对话会话
type ChatHandler struct {
	ws *session.Workspace
}

// NewChatHandler 创建对话处理器
func NewChatHandler(ws *session.Workspace) *ChatHandler {
	return &ChatHandler{ws: ws}
}

// Get 当前对话视图
// @Summary 获取对话会话
// @Tags Chat
// @Produce json
// @Success 200 {object} dto.Response[dto.ChatResponse]
// @Router /v1/chat [get]
func (h *ChatHandler) Get(c *gin.Context) {
	dto.Success(c, dto.ToChatResponse(h.ws.Chat.Snapshot()))
}

// BindConversation 切换对话并加载历史
// @Summary 绑定对话
// @Tags Chat
// @Accept json
// @Produce json
// @Param body body dto.BindConversationRequest true "对话定位"
// @Success 200 {object} dto.Response[dto.ChatResponse]
// @Router /v1/chat/conversation [put]
func (h *ChatHandler) BindConversation(c *gin.Context) {
	var req dto.BindConversationRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.ws.BindConversation(c.Request.Context(), req.ToRef()); err != nil {
		writeError(c, err, "failed to load conversation")
		return
	}
	dto.Success(c, dto.ToChatResponse(h.ws.Chat.Snapshot()))
}

// Send 发送消息
// @Summary 发送对话消息
// @Tags Chat
// @Accept json
// @Produce json
// @Param body body dto.SendMessageRequest true "消息"
// @Success 202 {object} dto.Response[dto.RequestIDResponse]
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/chat/messages [post]
func (h *ChatHandler) Send(c *gin.Context) {
	var req dto.SendMessageRequest
	if !bindJSON(c, &req) {
		return
	}
	id, err := h.ws.SendChat(c.Request.Context(), req.ToParams())
	if err != nil {
		writeError(c, err, "failed to send message")
		return
	}
	dto.Accepted(c, dto.RequestIDResponse{RequestID: id})
}

// Cancel 中止回复
// @Summary 取消对话回复
// @Tags Chat
// @Produce json
// @Success 200 {object} dto.Response[dto.ChatResponse]
// @Router /v1/chat/cancel [post]
func (h *ChatHandler) Cancel(c *gin.Context) {
	h.ws.Chat.Cancel(c.Request.Context())
	dto.Success(c, dto.ToChatResponse(h.ws.Chat.Snapshot()))
}

// Clear 清空对话记录
// @Summary 清空对话
// @Tags Chat
// @Success 204 "No Content"
// @Router /v1/chat [delete]
func (h *ChatHandler) Clear(c *gin.Context) {
	if err := h.ws.Chat.Clear(c.Request.Context()); err != nil {
		writeError(c, err, "failed to clear conversation")
		return
	}
	dto.NoContent(c)
}
