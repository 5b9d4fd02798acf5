package service

import (
	"context"

	"z-novel-copilot/internal/domain/entity"
)

// HistoryRecord 一次成功生成的历史记录
type HistoryRecord struct {
	RequestID  string                    `json:"request_id"`
	ProjectID  string                    `json:"project_id"`
	ChapterID  string                    `json:"chapter_id,omitempty"`
	Channel    entity.Channel            `json:"channel"`
	Action     entity.GenerationAction   `json:"action"`
	ProviderID string                    `json:"provider_id"`
	InputText  string                    `json:"input_text"`
	OutputText string                    `json:"output_text"`
	Options    *entity.GenerationOptions `json:"options,omitempty"`
}

// HistoryRecorder 记录生成历史
// 约定：实现应尽量 best-effort，不阻塞流式输出
type HistoryRecorder interface {
	Record(ctx context.Context, rec HistoryRecord) error
}
