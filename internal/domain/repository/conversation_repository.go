// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"z-novel-copilot/internal/domain/entity"
)

// ConversationRepository 对话仓储接口
type ConversationRepository interface {
	// GetOrCreate 按 (projectId, chapterId?) 获取对话，不存在则创建
	GetOrCreate(ctx context.Context, ref entity.ConversationRef) (*entity.Conversation, error)

	// ListMessages 按时间顺序列出对话条目
	ListMessages(ctx context.Context, conversationID string) ([]*entity.ConversationMessage, error)

	// AppendMessage 追加一条对话条目
	AppendMessage(ctx context.Context, msg *entity.ConversationMessage) error

	// ClearMessages 清空对话条目
	ClearMessages(ctx context.Context, conversationID string) error
}
