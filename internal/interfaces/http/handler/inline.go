package handler

import (
	"z-novel-copilot/internal/application/session"
	"z-novel-copilot/internal/interfaces/http/dto"

	"github.com/gin-gonic/gin"
)

// InlineHandler 行内建议会话
type InlineHandler struct {
	ws *session.Workspace
}

// NewInlineHandler 创建行内建议处理器
func NewInlineHandler(ws *session.Workspace) *InlineHandler {
	return &InlineHandler{ws: ws}
}

func (h *InlineHandler) state(c *gin.Context) {
	dto.Success(c, dto.ToSuggestionResponse(h.ws.Suggestion.State()))
}

// Get 当前行内建议状态
// @Summary 获取行内建议状态
// @Tags Inline
// @Produce json
// @Success 200 {object} dto.Response[dto.SuggestionResponse]
// @Router /v1/inline [get]
func (h *InlineHandler) Get(c *gin.Context) {
	h.state(c)
}

// BindDocument 绑定章节，会话复位
// @Summary 绑定行内建议的宿主章节
// @Tags Inline
// @Accept json
// @Produce json
// @Param body body dto.BindDocumentRequest true "章节"
// @Success 200 {object} dto.Response[dto.ChapterResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/inline/document [put]
func (h *InlineHandler) BindDocument(c *gin.Context) {
	var req dto.BindDocumentRequest
	if !bindJSON(c, &req) {
		return
	}
	chapter, err := h.ws.BindChapter(c.Request.Context(), req.ChapterID)
	if err != nil {
		writeError(c, err, "failed to bind chapter")
		return
	}
	dto.Success(c, dto.ToChapterResponse(chapter))
}

// Start 发起行内生成
// @Summary 发起行内生成
// @Tags Inline
// @Accept json
// @Produce json
// @Param body body dto.InlineStartRequest true "生成参数"
// @Success 202 {object} dto.Response[dto.RequestIDResponse]
// @Failure 409 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /v1/inline/start [post]
func (h *InlineHandler) Start(c *gin.Context) {
	var req dto.InlineStartRequest
	if !bindJSON(c, &req) {
		return
	}
	id, err := h.ws.StartInline(c.Request.Context(), req.ToParams())
	if err != nil {
		writeError(c, err, "failed to start inline generation")
		return
	}
	dto.Accepted(c, dto.RequestIDResponse{RequestID: id})
}

// Accept 采纳当前建议
// @Summary 采纳建议
// @Tags Inline
// @Produce json
// @Success 200 {object} dto.Response[dto.CommitResponse]
// @Failure 409 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /v1/inline/accept [post]
func (h *InlineHandler) Accept(c *gin.Context) {
	commit, err := h.ws.Suggestion.Accept(c.Request.Context())
	h.committed(c, commit, err)
}

// PartialAccept 采纳到第一个句末
// @Summary 部分采纳建议
// @Tags Inline
// @Produce json
// @Success 200 {object} dto.Response[dto.CommitResponse]
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/inline/partial-accept [post]
func (h *InlineHandler) PartialAccept(c *gin.Context) {
	commit, err := h.ws.Suggestion.PartialAccept(c.Request.Context())
	h.committed(c, commit, err)
}

func (h *InlineHandler) committed(c *gin.Context, commit session.Commit, err error) {
	if err != nil {
		writeError(c, err, "failed to accept suggestion")
		return
	}
	dto.Success(c, dto.CommitResponse{
		Offset:     commit.Offset,
		Text:       commit.Text,
		Suggestion: dto.ToSuggestionResponse(h.ws.Suggestion.State()),
	})
}

// Reject 丢弃建议
// @Summary 丢弃建议
// @Tags Inline
// @Accept json
// @Produce json
// @Param body body dto.CursorRequest true "光标"
// @Success 200 {object} dto.Response[dto.SuggestionResponse]
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/inline/reject [post]
func (h *InlineHandler) Reject(c *gin.Context) {
	var req dto.CursorRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.ws.Suggestion.Reject(req.Cursor); err != nil {
		writeError(c, err, "failed to reject suggestion")
		return
	}
	h.state(c)
}

// Regenerate 归档当前文本并重新生成
// @Summary 重新生成
// @Tags Inline
// @Accept json
// @Produce json
// @Param body body dto.RegenerateRequest false "新参数"
// @Success 202 {object} dto.Response[dto.RequestIDResponse]
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/inline/regenerate [post]
func (h *InlineHandler) Regenerate(c *gin.Context) {
	var req dto.RegenerateRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	id, err := h.ws.Suggestion.Regenerate(c.Request.Context(), req.Options.ToEntity())
	if err != nil {
		writeError(c, err, "failed to regenerate")
		return
	}
	dto.Accepted(c, dto.RequestIDResponse{RequestID: id})
}

// Next 下一个候选
// @Summary 下一个候选
// @Tags Inline
// @Produce json
// @Success 200 {object} dto.Response[dto.SuggestionResponse]
// @Router /v1/inline/next [post]
func (h *InlineHandler) Next(c *gin.Context) {
	if err := h.ws.Suggestion.CycleNext(); err != nil {
		writeError(c, err, "failed to cycle alternatives")
		return
	}
	h.state(c)
}

// Previous 上一个候选
// @Summary 上一个候选
// @Tags Inline
// @Produce json
// @Success 200 {object} dto.Response[dto.SuggestionResponse]
// @Router /v1/inline/previous [post]
func (h *InlineHandler) Previous(c *gin.Context) {
	if err := h.ws.Suggestion.CyclePrevious(); err != nil {
		writeError(c, err, "failed to cycle alternatives")
		return
	}
	h.state(c)
}

// Cancel 取消进行中的行内生成
// @Summary 取消行内生成
// @Tags Inline
// @Produce json
// @Success 200 {object} dto.Response[dto.SuggestionResponse]
// @Router /v1/inline/cancel [post]
func (h *InlineHandler) Cancel(c *gin.Context) {
	h.ws.Suggestion.Cancel()
	h.state(c)
}

// Edit 文档编辑事件
// @Summary 上报文档编辑
// @Tags Inline
// @Accept json
// @Produce json
// @Param body body dto.EditRequest true "编辑"
// @Success 200 {object} dto.Response[dto.SuggestionResponse]
// @Router /v1/inline/edits [post]
func (h *InlineHandler) Edit(c *gin.Context) {
	var req dto.EditRequest
	if !bindJSON(c, &req) {
		return
	}
	origin := session.EditOrigin(req.Origin)
	if origin == "" {
		origin = session.EditOriginUser
	}
	h.ws.Suggestion.DocumentEdited(origin, req.Cursor)
	h.state(c)
}
