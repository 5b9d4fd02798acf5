package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"z-novel-copilot/internal/domain/entity"
	"z-novel-copilot/internal/domain/repository"
	apperrors "z-novel-copilot/pkg/errors"
)

// GenerationHistoryRepository 生成历史仓储实现
type GenerationHistoryRepository struct {
	client *Client
}

// NewGenerationHistoryRepository 创建生成历史仓储
func NewGenerationHistoryRepository(client *Client) *GenerationHistoryRepository {
	return &GenerationHistoryRepository{client: client}
}

// Create 写入记录，RequestID 冲突时忽略（消费端重投递）
func (r *GenerationHistoryRepository) Create(ctx context.Context, history *entity.GenerationHistory) error {
	ctx, span := tracer.Start(ctx, "postgres.GenerationHistoryRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "request_id"}},
		DoNothing: true,
	}).Create(history).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create generation history: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取
func (r *GenerationHistoryRepository) GetByID(ctx context.Context, id string) (*entity.GenerationHistory, error) {
	ctx, span := tracer.Start(ctx, "postgres.GenerationHistoryRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var history entity.GenerationHistory
	if err := db.First(&history, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get generation history: %w", err)
	}
	return &history, nil
}

// ListByProject 分页列出项目生成历史
func (r *GenerationHistoryRepository) ListByProject(ctx context.Context, projectID string, pagination repository.Pagination) (*repository.PagedResult[*entity.GenerationHistory], error) {
	ctx, span := tracer.Start(ctx, "postgres.GenerationHistoryRepository.ListByProject")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.GenerationHistory{}).Where("project_id = ?", projectID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count generation histories: %w", err)
	}

	var items []*entity.GenerationHistory
	if err := query.Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&items).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list generation histories: %w", err)
	}

	return repository.NewPagedResult(items, total, pagination), nil
}

// MarkAccepted 标记为已采纳
func (r *GenerationHistoryRepository) MarkAccepted(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.GenerationHistoryRepository.MarkAccepted")
	defer span.End()

	db := getDB(ctx, r.client.db)
	result := db.Model(&entity.GenerationHistory{}).Where("id = ?", id).Update("accepted", true)
	if result.Error != nil {
		span.RecordError(result.Error)
		return fmt.Errorf("failed to mark generation history accepted: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrHistoryNotFound
	}
	return nil
}
