package session

import (
	"context"
	"sync"

	"z-novel-copilot/internal/domain/entity"
	"z-novel-copilot/internal/domain/repository"
	"z-novel-copilot/internal/domain/service"
)

// RepositoryTranscript 基于对话仓储的 service.TranscriptStore 实现
type RepositoryTranscript struct {
	repo repository.ConversationRepository
	// ids ConversationRef.Key() -> conversation id
	ids sync.Map
}

// NewRepositoryTranscript 创建记录存储
func NewRepositoryTranscript(repo repository.ConversationRepository) *RepositoryTranscript {
	return &RepositoryTranscript{repo: repo}
}

var _ service.TranscriptStore = (*RepositoryTranscript)(nil)

func (t *RepositoryTranscript) conversationID(ctx context.Context, ref entity.ConversationRef) (string, error) {
	if id, ok := t.ids.Load(ref.Key()); ok {
		return id.(string), nil
	}
	conv, err := t.repo.GetOrCreate(ctx, ref)
	if err != nil {
		return "", err
	}
	t.ids.Store(ref.Key(), conv.ID)
	return conv.ID, nil
}

// Append 追加一条记录，返回记录 ID
func (t *RepositoryTranscript) Append(ctx context.Context, ref entity.ConversationRef, entry service.TranscriptEntry) (string, error) {
	convID, err := t.conversationID(ctx, ref)
	if err != nil {
		return "", err
	}
	msg := &entity.ConversationMessage{
		ConversationID: convID,
		Role:           entry.Role,
		Content:        entry.Content,
		Interrupted:    entry.Interrupted,
	}
	if err := t.repo.AppendMessage(ctx, msg); err != nil {
		return "", err
	}
	return msg.ID, nil
}

// LoadHistory 按时间顺序加载记录
func (t *RepositoryTranscript) LoadHistory(ctx context.Context, ref entity.ConversationRef) ([]*entity.ConversationMessage, error) {
	convID, err := t.conversationID(ctx, ref)
	if err != nil {
		return nil, err
	}
	return t.repo.ListMessages(ctx, convID)
}

// Clear 删除对话的全部记录，对话本身保留
func (t *RepositoryTranscript) Clear(ctx context.Context, ref entity.ConversationRef) error {
	convID, err := t.conversationID(ctx, ref)
	if err != nil {
		return err
	}
	return t.repo.ClearMessages(ctx, convID)
}
