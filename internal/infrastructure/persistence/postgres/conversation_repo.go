package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"z-novel-copilot/internal/domain/entity"
)

// ConversationRepository 对话仓储实现
type ConversationRepository struct {
	client *Client
}

// NewConversationRepository 创建对话仓储
func NewConversationRepository(client *Client) *ConversationRepository {
	return &ConversationRepository{client: client}
}

// GetOrCreate 按 (projectId, chapterId?) 获取或创建对话
func (r *ConversationRepository) GetOrCreate(ctx context.Context, ref entity.ConversationRef) (*entity.Conversation, error) {
	ctx, span := tracer.Start(ctx, "postgres.ConversationRepository.GetOrCreate")
	defer span.End()

	var conv entity.Conversation
	err := getDB(ctx, r.client.db).Transaction(func(tx *gorm.DB) error {
		query := tx.Where("project_id = ?", ref.ProjectID)
		if ref.ChapterID == nil || *ref.ChapterID == "" {
			query = query.Where("chapter_id IS NULL")
		} else {
			query = query.Where("chapter_id = ?", *ref.ChapterID)
		}

		err := query.Order("created_at ASC").First(&conv).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		conv = entity.Conversation{ProjectID: ref.ProjectID}
		if ref.ChapterID != nil && *ref.ChapterID != "" {
			conv.ChapterID = ref.ChapterID
		}
		return tx.Create(&conv).Error
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get or create conversation: %w", err)
	}
	return &conv, nil
}

// ListMessages 按时间顺序列出对话条目
func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID string) ([]*entity.ConversationMessage, error) {
	ctx, span := tracer.Start(ctx, "postgres.ConversationRepository.ListMessages")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var msgs []*entity.ConversationMessage
	if err := db.Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&msgs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list conversation messages: %w", err)
	}
	return msgs, nil
}

// AppendMessage 追加对话条目
func (r *ConversationRepository) AppendMessage(ctx context.Context, msg *entity.ConversationMessage) error {
	ctx, span := tracer.Start(ctx, "postgres.ConversationRepository.AppendMessage")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(msg).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to append conversation message: %w", err)
	}
	return nil
}

// ClearMessages 清空对话条目
func (r *ConversationRepository) ClearMessages(ctx context.Context, conversationID string) error {
	ctx, span := tracer.Start(ctx, "postgres.ConversationRepository.ClearMessages")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Where("conversation_id = ?", conversationID).Delete(&entity.ConversationMessage{}).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to clear conversation messages: %w", err)
	}
	return nil
}
