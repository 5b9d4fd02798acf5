package service

import (
	"context"

	"z-novel-copilot/internal/domain/entity"
)

// TranscriptEntry 待持久化的对话条目
type TranscriptEntry struct {
	Role        entity.Role
	Content     string
	Interrupted bool
}

// TranscriptStore 对话记录持久化
type TranscriptStore interface {
	Append(ctx context.Context, ref entity.ConversationRef, entry TranscriptEntry) (string, error)
	LoadHistory(ctx context.Context, ref entity.ConversationRef) ([]*entity.ConversationMessage, error)
	Clear(ctx context.Context, ref entity.ConversationRef) error
}
