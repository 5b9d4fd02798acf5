package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"z-novel-copilot/internal/domain/entity"
)

// ProviderRepository 生成后端仓储实现
type ProviderRepository struct {
	client *Client
}

// NewProviderRepository 创建生成后端仓储
func NewProviderRepository(client *Client) *ProviderRepository {
	return &ProviderRepository{client: client}
}

// GetByID 根据 ID 获取
func (r *ProviderRepository) GetByID(ctx context.Context, id string) (*entity.Provider, error) {
	ctx, span := tracer.Start(ctx, "postgres.ProviderRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var provider entity.Provider
	if err := db.First(&provider, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}
	return &provider, nil
}

// List 列出全部后端
func (r *ProviderRepository) List(ctx context.Context) ([]*entity.Provider, error) {
	ctx, span := tracer.Start(ctx, "postgres.ProviderRepository.List")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var providers []*entity.Provider
	if err := db.Order("id ASC").Find(&providers).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	return providers, nil
}

// Upsert 按 ID 插入或覆盖
func (r *ProviderRepository) Upsert(ctx context.Context, provider *entity.Provider) error {
	ctx, span := tracer.Start(ctx, "postgres.ProviderRepository.Upsert")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "type", "base_url", "model", "api_key_cipher", "max_tokens", "updated_at"}),
	}).Create(provider).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to upsert provider: %w", err)
	}
	return nil
}
