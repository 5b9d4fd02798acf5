package dto

import (
	"time"

	"z-novel-copilot/internal/application/session"
	"z-novel-copilot/internal/domain/entity"
)

// BindConversationRequest 绑定对话
type BindConversationRequest struct {
	ProjectID string  `json:"project_id" binding:"required"`
	ChapterID *string `json:"chapter_id,omitempty"`
}

// ToRef 转换为对话定位键
func (r *BindConversationRequest) ToRef() entity.ConversationRef {
	ref := entity.ConversationRef{ProjectID: r.ProjectID}
	if r.ChapterID != nil && *r.ChapterID != "" {
		id := *r.ChapterID
		ref.ChapterID = &id
	}
	return ref
}

// SendMessageRequest 发送对话消息
type SendMessageRequest struct {
	Content    string          `json:"content" binding:"required"`
	ProviderID string          `json:"provider_id,omitempty"`
	Options    *OptionsRequest `json:"options,omitempty"`
}

// ToParams 转换为会话参数
func (r *SendMessageRequest) ToParams() session.ChatParams {
	return session.ChatParams{
		Content:    r.Content,
		ProviderID: r.ProviderID,
		Options:    r.Options.ToEntity(),
	}
}

// TranscriptEntryResponse 对话记录条目
type TranscriptEntryResponse struct {
	ID          string `json:"id,omitempty"`
	Role        string `json:"role"`
	Content     string `json:"content"`
	Interrupted bool   `json:"interrupted,omitempty"`
	Failed      bool   `json:"failed,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// ChatResponse 对话会话视图
type ChatResponse struct {
	Status          string                     `json:"status"`
	Conversation    *entity.ConversationRef    `json:"conversation,omitempty"`
	Transcript      []*TranscriptEntryResponse `json:"transcript"`
	Streaming       string                     `json:"streaming,omitempty"`
	ActiveRequestID string                     `json:"active_request_id,omitempty"`
}

// ToChatResponse 转换对话快照
func ToChatResponse(snap session.ChatSnapshot) *ChatResponse {
	entries := make([]*TranscriptEntryResponse, 0, len(snap.Transcript))
	for _, m := range snap.Transcript {
		e := &TranscriptEntryResponse{
			ID:          m.ID,
			Role:        string(m.Role),
			Content:     m.Content,
			Interrupted: m.Interrupted,
			Failed:      m.Failed,
		}
		if !m.CreatedAt.IsZero() {
			e.CreatedAt = m.CreatedAt.Format(time.RFC3339)
		}
		entries = append(entries, e)
	}
	return &ChatResponse{
		Status:          string(snap.Status),
		Conversation:    snap.Conversation,
		Transcript:      entries,
		Streaming:       snap.Streaming,
		ActiveRequestID: snap.ActiveRequestID,
	}
}
