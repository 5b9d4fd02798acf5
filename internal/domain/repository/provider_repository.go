// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"z-novel-copilot/internal/domain/entity"
)

// ProviderRepository 生成后端仓储接口
type ProviderRepository interface {
	// GetByID 根据 ID 获取，不存在时返回 nil, nil
	GetByID(ctx context.Context, id string) (*entity.Provider, error)

	List(ctx context.Context) ([]*entity.Provider, error)

	// Upsert 按 ID 插入或覆盖
	Upsert(ctx context.Context, provider *entity.Provider) error
}
