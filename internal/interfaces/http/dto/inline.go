package dto

import (
	"z-novel-copilot/internal/application/session"
	"z-novel-copilot/internal/domain/entity"
)

// BindDocumentRequest 绑定章节
type BindDocumentRequest struct {
	ChapterID string `json:"chapter_id" binding:"required"`
}

// InlineStartRequest 发起行内生成
type InlineStartRequest struct {
	Cursor      int             `json:"cursor" binding:"gte=0"`
	Action      string          `json:"action,omitempty" binding:"omitempty,oneof=continue polish rewrite"`
	ProviderID  string          `json:"provider_id,omitempty"`
	Options     *OptionsRequest `json:"options,omitempty"`
	Selection   string          `json:"selection,omitempty"`
	Instruction string          `json:"instruction,omitempty"`
}

// ToParams 转换为会话参数
func (r *InlineStartRequest) ToParams() session.InlineParams {
	return session.InlineParams{
		Cursor:      r.Cursor,
		Action:      entity.GenerationAction(r.Action),
		ProviderID:  r.ProviderID,
		Options:     r.Options.ToEntity(),
		Selection:   r.Selection,
		Instruction: r.Instruction,
	}
}

// CursorRequest 携带光标位置的请求（reject）
type CursorRequest struct {
	Cursor int `json:"cursor" binding:"gte=0"`
}

// RegenerateRequest 重新生成，options 为空时沿用上次参数
type RegenerateRequest struct {
	Options *OptionsRequest `json:"options,omitempty"`
}

// EditRequest 文档编辑事件
type EditRequest struct {
	Origin string `json:"origin" binding:"omitempty,oneof=user suggestion"`
	Cursor int    `json:"cursor" binding:"gte=0"`
}

// AlternativeResponse 候选文本
type AlternativeResponse struct {
	Text    string                    `json:"text"`
	Options *entity.GenerationOptions `json:"options,omitempty"`
}

// SuggestionResponse 行内建议视图
type SuggestionResponse struct {
	Status                   string                    `json:"status"`
	AnchorPosition           int                       `json:"anchor_position"`
	ActiveText               string                    `json:"active_text"`
	LiveText                 string                    `json:"live_text"`
	Alternatives             []AlternativeResponse     `json:"alternatives"`
	SelectedAlternativeIndex int                       `json:"selected_alternative_index"`
	ErrorMessage             string                    `json:"error_message,omitempty"`
	ActiveRequestID          string                    `json:"active_request_id,omitempty"`
	Options                  *entity.GenerationOptions `json:"options,omitempty"`
}

// ToSuggestionResponse 转换行内建议状态
func ToSuggestionResponse(st session.SuggestionState) *SuggestionResponse {
	alts := make([]AlternativeResponse, 0, len(st.Alternatives))
	for _, a := range st.Alternatives {
		alts = append(alts, AlternativeResponse{Text: a.Text, Options: a.Options})
	}
	return &SuggestionResponse{
		Status:                   string(st.Status),
		AnchorPosition:           st.AnchorPosition,
		ActiveText:               st.ActiveText(),
		LiveText:                 st.LiveText,
		Alternatives:             alts,
		SelectedAlternativeIndex: st.SelectedAlternativeIndex,
		ErrorMessage:             st.ErrorMessage,
		ActiveRequestID:          st.ActiveRequestID,
		Options:                  st.Options,
	}
}

// CommitResponse 采纳结果
type CommitResponse struct {
	Offset     int                 `json:"offset"`
	Text       string              `json:"text"`
	Suggestion *SuggestionResponse `json:"suggestion"`
}

// ChapterResponse 章节
type ChapterResponse struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	SeqNum    int    `json:"seq_num"`
	Title     string `json:"title,omitempty"`
	Content   string `json:"content"`
	WordCount int    `json:"word_count"`
	Version   int    `json:"version"`
}

// ToChapterResponse 转换章节
func ToChapterResponse(c *entity.Chapter) *ChapterResponse {
	if c == nil {
		return nil
	}
	return &ChapterResponse{
		ID:        c.ID,
		ProjectID: c.ProjectID,
		SeqNum:    c.SeqNum,
		Title:     c.Title,
		Content:   c.Content,
		WordCount: c.WordCount,
		Version:   c.Version,
	}
}
