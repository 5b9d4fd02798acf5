package dto

import (
	"time"

	"z-novel-copilot/internal/application/generation"
	"z-novel-copilot/internal/domain/entity"
	"z-novel-copilot/internal/infrastructure/llm"
)

// MessageRequest 角色标注的消息
type MessageRequest struct {
	Role    string `json:"role" binding:"required,oneof=system user assistant"`
	Content string `json:"content"`
}

// OptionsRequest 生成参数
type OptionsRequest struct {
	Temperature  *float32 `json:"temperature,omitempty" binding:"omitempty,gte=0,lte=2"`
	TargetLength string   `json:"target_length,omitempty" binding:"omitempty,oneof=short medium long"`
}

// ToEntity 空请求返回 nil
func (r *OptionsRequest) ToEntity() *entity.GenerationOptions {
	if r == nil {
		return nil
	}
	return &entity.GenerationOptions{
		Temperature:  r.Temperature,
		TargetLength: entity.TargetLength(r.TargetLength),
	}
}

// StartGenerationRequest 直接调用协调器的生成请求
type StartGenerationRequest struct {
	RequestID  string           `json:"request_id,omitempty" binding:"omitempty,max=64"`
	Channel    string           `json:"channel" binding:"required,oneof=chat inline"`
	ProviderID string           `json:"provider_id,omitempty"`
	Messages   []MessageRequest `json:"messages" binding:"required,min=1,dive"`
	Options    *OptionsRequest  `json:"options,omitempty"`
	Action     string           `json:"action,omitempty" binding:"omitempty,oneof=continue polish rewrite chat"`
	ProjectID  string           `json:"project_id,omitempty"`
	ChapterID  string           `json:"chapter_id,omitempty"`
}

// ToStartRequest 转换为协调器请求
func (r *StartGenerationRequest) ToStartRequest() generation.StartRequest {
	msgs := make([]llm.Message, 0, len(r.Messages))
	var input string
	for _, m := range r.Messages {
		msgs = append(msgs, llm.Message{Role: entity.Role(m.Role), Content: m.Content})
		if m.Role == string(entity.RoleUser) {
			input = m.Content
		}
	}
	return generation.StartRequest{
		RequestID:  r.RequestID,
		Channel:    entity.Channel(r.Channel),
		ProviderID: r.ProviderID,
		Messages:   msgs,
		Options:    r.Options.ToEntity(),
		Action:     entity.GenerationAction(r.Action),
		InputText:  input,
		ProjectID:  r.ProjectID,
		ChapterID:  r.ChapterID,
	}
}

// RequestIDResponse 返回新分配的 requestId
type RequestIDResponse struct {
	RequestID string `json:"request_id"`
}

// CancelResponse 取消结果
type CancelResponse struct {
	Canceled bool `json:"canceled"`
}

// GenerationHistoryResponse 生成历史
type GenerationHistoryResponse struct {
	ID         string                    `json:"id"`
	RequestID  string                    `json:"request_id"`
	ProjectID  string                    `json:"project_id"`
	ChapterID  string                    `json:"chapter_id,omitempty"`
	Channel    string                    `json:"channel"`
	Action     string                    `json:"action"`
	ProviderID string                    `json:"provider_id,omitempty"`
	InputText  string                    `json:"input_text"`
	OutputText string                    `json:"output_text"`
	Options    *entity.GenerationOptions `json:"options,omitempty"`
	Accepted   bool                      `json:"accepted"`
	CreatedAt  string                    `json:"created_at"`
}

// ToGenerationHistoryResponse 转换生成历史
func ToGenerationHistoryResponse(h *entity.GenerationHistory) *GenerationHistoryResponse {
	if h == nil {
		return nil
	}
	resp := &GenerationHistoryResponse{
		ID:         h.ID,
		RequestID:  h.RequestID,
		ProjectID:  h.ProjectID,
		Channel:    string(h.Channel),
		Action:     string(h.Action),
		ProviderID: h.ProviderID,
		InputText:  h.InputText,
		OutputText: h.OutputText,
		Options:    h.Options,
		Accepted:   h.Accepted,
		CreatedAt:  h.CreatedAt.Format(time.RFC3339),
	}
	if h.ChapterID != nil {
		resp.ChapterID = *h.ChapterID
	}
	return resp
}

// ToGenerationHistoryList 转换生成历史列表
func ToGenerationHistoryList(items []*entity.GenerationHistory) []*GenerationHistoryResponse {
	out := make([]*GenerationHistoryResponse, 0, len(items))
	for _, h := range items {
		out = append(out, ToGenerationHistoryResponse(h))
	}
	return out
}
